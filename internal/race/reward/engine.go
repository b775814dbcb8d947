package reward

import (
	"math"
	"sort"
)

// Config holds configurable payout constants (defaults match production).
type Config struct {
	// PositionMultipliers[i] applies to position i+1. Positions past the end
	// of the slice use DefaultMultiplier.
	PositionMultipliers []float64
	DefaultMultiplier   float64
}

// DefaultConfig returns production defaults: 1st place earns the full prompt
// length in XP, 2nd half, 3rd a third, everyone else a quarter.
func DefaultConfig() Config {
	return Config{
		PositionMultipliers: []float64{1.0, 0.5, 1.0 / 3.0},
		DefaultMultiplier:   0.25,
	}
}

// Engine computes placement order and experience payouts.
type Engine struct {
	config Config
}

// NewEngine creates a reward engine with the provided config.
func NewEngine(config Config) *Engine {
	if config.DefaultMultiplier == 0 && len(config.PositionMultipliers) == 0 {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// Standing is a participant snapshot at race completion.
type Standing struct {
	ParticipantID string
	DisplayName   string
	WPM           float64
	Accuracy      float64
	Progress      float64 // 0-100
	FinishOrder   int     // 1-based finish position; 0 if never finished
	Finished      bool
}

// Result is a finalized, immutable finish record.
type Result struct {
	ParticipantID string
	DisplayName   string
	Position      int
	WPM           float64
	Accuracy      float64
	Experience    int
	Finished      bool
}

// Multiplier returns the payout multiplier for a 1-based position.
func (e *Engine) Multiplier(position int) float64 {
	if position >= 1 && position <= len(e.config.PositionMultipliers) {
		return e.config.PositionMultipliers[position-1]
	}
	return e.config.DefaultMultiplier
}

// Payout computes experience for a position given the characters typed.
// Experience rewards typing more of the correct text; placement is only a
// multiplier, so WPM and accuracy do not enter the formula.
func (e *Engine) Payout(position, charsTyped int) int {
	if charsTyped < 0 {
		charsTyped = 0
	}
	return int(math.Floor(float64(charsTyped) * e.Multiplier(position)))
}

// Rank orders standings into final results: finishers first by finish order,
// then non-finishers by progress descending. Positions are reassigned as a
// contiguous 1..N sequence. Non-finishers are paid on the characters they
// actually typed, estimated from progress.
func (e *Engine) Rank(standings []Standing, promptLength int) []Result {
	finished := make([]Standing, 0, len(standings))
	stragglers := make([]Standing, 0, len(standings))
	for _, s := range standings {
		if s.Finished {
			finished = append(finished, s)
		} else {
			stragglers = append(stragglers, s)
		}
	}

	sort.SliceStable(finished, func(i, j int) bool {
		return finished[i].FinishOrder < finished[j].FinishOrder
	})
	sort.SliceStable(stragglers, func(i, j int) bool {
		return stragglers[i].Progress > stragglers[j].Progress
	})

	ordered := append(finished, stragglers...)
	results := make([]Result, len(ordered))
	for i, s := range ordered {
		position := i + 1
		chars := promptLength
		if !s.Finished {
			chars = int(math.Round(s.Progress / 100 * float64(promptLength)))
		}
		results[i] = Result{
			ParticipantID: s.ParticipantID,
			DisplayName:   s.DisplayName,
			Position:      position,
			WPM:           s.WPM,
			Accuracy:      s.Accuracy,
			Experience:    e.Payout(position, chars),
			Finished:      s.Finished,
		}
	}
	return results
}
