package race

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// npcProfile bounds a difficulty's speed and accuracy. Consistency in (0,1]
// sets how steadily the NPC types: higher values narrow the per-tick speed
// jitter band.
type npcProfile struct {
	BaseWPM     float64
	MaxWPM      float64
	MinAccuracy float64
	Consistency float64
}

var npcProfiles = map[Difficulty]npcProfile{
	DifficultyEasy:   {BaseWPM: 25, MaxWPM: 35, MinAccuracy: 90, Consistency: 0.6},
	DifficultyNormal: {BaseWPM: 40, MaxWPM: 50, MinAccuracy: 94, Consistency: 0.7},
	DifficultyHard:   {BaseWPM: 60, MaxWPM: 70, MinAccuracy: 96, Consistency: 0.8},
	DifficultyInsane: {BaseWPM: 90, MaxWPM: 110, MinAccuracy: 98, Consistency: 0.9},
}

var npcNames = []string{
	"TypoTornado", "KeySmasher", "SwiftFingers", "CapsLockCarl", "HomeRowHero",
	"BackspaceBandit", "QwertyQueen", "SpacebarSam", "WordWeaver", "DvorakDan",
	"ShiftHappens", "TabTitan", "EnterTheRacer", "CtrlFreak", "AltEgo",
}

// DifficultyForWPM buckets a target speed into the nearest difficulty band.
func DifficultyForWPM(wpm float64) Difficulty {
	switch {
	case wpm <= 37:
		return DifficultyEasy
	case wpm <= 55:
		return DifficultyNormal
	case wpm <= 80:
		return DifficultyHard
	default:
		return DifficultyInsane
	}
}

// NewNPC builds a simulated participant targeting the given WPM.
func NewNPC(targetWPM float64) *Participant {
	difficulty := DifficultyForWPM(targetWPM)
	profile := npcProfiles[difficulty]
	if targetWPM <= 0 {
		targetWPM = profile.BaseWPM + rand.Float64()*(profile.MaxWPM-profile.BaseWPM)
	}
	name := npcNames[rand.Intn(len(npcNames))]
	return &Participant{
		ID:          "npc-" + uuid.NewString()[:8],
		DisplayName: fmt.Sprintf("%s (bot)", name),
		Difficulty:  difficulty,
		TargetWPM:   targetWPM,
		MinAccuracy: profile.MinAccuracy,
		Consistency: profile.Consistency,
		Status:      PlayerWaiting,
	}
}

// npcJitter converts a consistency rating into the half-width of the
// per-tick speed factor band: 0.5 yields the reference 0.85-1.15 spread,
// 1.0 removes the wobble entirely. Out-of-range values fall back to the
// reference spread.
func npcJitter(consistency float64) float64 {
	if consistency <= 0 || consistency > 1 {
		return 0.15
	}
	return 0.3 * (1 - consistency)
}

// NewNPCForDifficulty builds a simulated participant with a speed sampled
// from the difficulty's band.
func NewNPCForDifficulty(difficulty Difficulty) *Participant {
	profile, ok := npcProfiles[difficulty]
	if !ok {
		profile = npcProfiles[DifficultyNormal]
	}
	return NewNPC(profile.BaseWPM + rand.Float64()*(profile.MaxWPM-profile.BaseWPM))
}

// Ticker drives NPC progress for every racing session on a fixed interval.
// One scheduler services all sessions; sessions never own their own NPC
// timers.
type Ticker struct {
	dir       *Directory
	interval  time.Duration
	logger    zerolog.Logger
	shutdownC chan struct{}
}

// NewTicker creates the shared NPC scheduler.
func NewTicker(dir *Directory, interval time.Duration, logger zerolog.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultConfig().NPCTick
	}
	return &Ticker{
		dir:       dir,
		interval:  interval,
		logger:    logger.With().Str("component", "npc_ticker").Logger(),
		shutdownC: make(chan struct{}),
	}
}

// Run ticks until Stop is called.
func (t *Ticker) Run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	tickSeconds := t.interval.Seconds()
	for {
		select {
		case <-t.shutdownC:
			t.logger.Info().Msg("npc ticker stopping")
			return
		case <-ticker.C:
			for _, s := range t.dir.racingSessions() {
				s.tickNPCs(tickSeconds)
			}
		}
	}
}

// Stop terminates the ticker loop.
func (t *Ticker) Stop() {
	close(t.shutdownC)
}
