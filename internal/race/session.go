package race

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/velotype/typerace/internal/race/reward"
	wsx "github.com/velotype/typerace/pkg/http/ws"
)

// Session is one race instance: one prompt, one set of participants, one
// lifecycle. All mutation happens under mu, so progress updates and finish
// calls take effect in arrival order; finish positions are first past the
// post by construction.
type Session struct {
	ID         string
	Mode       string
	MaxPlayers int
	Persistent bool // persistent venues survive their last participant leaving

	mu            sync.Mutex
	status        string
	prompt        string
	promptSource  string
	promptTheme   string
	customPrompt  bool
	hostID        string
	participants  []*Participant
	results       []Result
	startTime     time.Time
	finishedCount int
	graceArmed    bool

	// Timer handles. Both are cancelled on reset and teardown; a stale timer
	// firing into a reused session would force-finish the wrong race.
	countdownLeft  int
	countdownTimer *time.Timer
	graceTimer     *time.Timer

	cfg     Config
	prompts PromptSource
	rewards *reward.Engine
	onDone  func(s *Session, results []Result)
	logger  zerolog.Logger
}

func newSession(id, mode string, cfg Config, prompts PromptSource, rewards *reward.Engine, onDone func(*Session, []Result), logger zerolog.Logger) *Session {
	maxPlayers := cfg.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = DefaultConfig().MaxPlayers
	}
	return &Session{
		ID:         id,
		Mode:       mode,
		MaxPlayers: maxPlayers,
		status:     StateWaitingForPlayers,
		cfg:        cfg,
		prompts:    prompts,
		rewards:    rewards,
		onDone:     onDone,
		logger:     logger.With().Str("race_id", id).Str("mode", mode).Logger(),
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// HostID returns the current host, if any.
func (s *Session) HostID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID
}

// Prompt returns the prompt text (empty until the race starts, unless fixed
// at creation).
func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// Results returns the finalized results, nil before completion.
func (s *Session) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParticipantCount returns the number of admitted participants.
func (s *Session) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// Participants returns a snapshot of the participant list.
func (s *Session) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.participants, func(p *Participant, _ int) Participant { return *p })
}

// Start requests the transition into countdown. Private and venue races only
// accept the start from the host; every mode enforces its minimum-participant
// policy.
func (s *Session) Start(requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StateWaitingForPlayers {
		return ErrAlreadyStarted
	}

	if (s.Mode == ModePrivate || s.Mode == ModeVenue) && requesterID != s.hostID {
		return ErrNotHost
	}

	switch s.Mode {
	case ModeHumanOnly:
		ready := lo.CountBy(s.participants, func(p *Participant) bool {
			return !p.IsNPC() && p.Status == PlayerReady
		})
		if ready < 2 {
			return ErrNotEnoughPlayers
		}
	case ModePrivate, ModeVenue:
		if len(s.participants) < 2 {
			return ErrNotEnoughPlayers
		}
	default: // open matchmaking: one human is enough, NPCs backfill
		if s.humanCountLocked() < 1 {
			return ErrNotEnoughPlayers
		}
	}

	s.status = StateCountdown
	s.countdownLeft = s.cfg.CountdownTicks
	if s.countdownLeft <= 0 {
		s.countdownLeft = DefaultConfig().CountdownTicks
	}
	s.logger.Info().Int("participants", len(s.participants)).Msg("countdown started")
	s.broadcastLocked(wsx.NewMessage(wsx.TypeCountdownTick, wsx.CountdownTickPayload{
		RaceID:  s.ID,
		Seconds: s.countdownLeft,
	}))
	s.countdownTimer = time.AfterFunc(s.countdownInterval(), s.countdownTick)
	return nil
}

func (s *Session) countdownInterval() time.Duration {
	ticks := s.cfg.CountdownTicks
	if ticks <= 0 {
		ticks = DefaultConfig().CountdownTicks
	}
	total := s.cfg.Countdown
	if total <= 0 {
		total = DefaultConfig().Countdown
	}
	return total / time.Duration(ticks)
}

func (s *Session) countdownTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StateCountdown {
		return // countdown aborted by a reset or teardown
	}

	s.countdownLeft--
	if s.countdownLeft <= 0 {
		s.beginRaceLocked()
		return
	}

	s.broadcastLocked(wsx.NewMessage(wsx.TypeCountdownTick, wsx.CountdownTickPayload{
		RaceID:  s.ID,
		Seconds: s.countdownLeft,
	}))
	s.countdownTimer = time.AfterFunc(s.countdownInterval(), s.countdownTick)
}

func (s *Session) beginRaceLocked() {
	s.countdownTimer = nil

	// A custom prompt fixed at creation takes precedence and is never
	// overwritten.
	if s.prompt == "" {
		s.prompt, s.promptSource = s.prompts.Next(s.promptTheme)
	}

	s.startTime = time.Now()
	s.status = StateRacing
	for _, p := range s.participants {
		p.Status = PlayerTyping
	}

	s.logger.Info().Int("prompt_chars", len(s.prompt)).Str("prompt_source", s.promptSource).Msg("race started")
	s.broadcastLocked(wsx.NewMessage(wsx.TypeRaceStarted, wsx.RaceStartedPayload{
		RaceID:       s.ID,
		Prompt:       s.prompt,
		PromptSource: s.promptSource,
		StartedAt:    s.startTime.UTC().Format(time.RFC3339Nano),
	}))
}

func (s *Session) updateProgress(participantID string, progress, wpm, accuracy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StateRacing {
		return ErrNotRacing
	}
	p, ok := s.findLocked(participantID)
	if !ok {
		return ErrNotFound
	}
	if p.Status == PlayerFinished {
		return nil
	}

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	p.Progress = progress
	p.WPM = wpm
	p.Accuracy = accuracy
	if p.Status == PlayerWaiting || p.Status == PlayerReady {
		p.Status = PlayerTyping
	}

	if progress >= 100 {
		s.finishLocked(p, wpm, accuracy)
		return nil
	}

	s.broadcastLocked(wsx.NewMessage(wsx.TypePlayerProgress, wsx.PlayerProgressPayload{
		RaceID:   s.ID,
		PlayerID: p.ID,
		Progress: p.Progress,
		WPM:      p.WPM,
		Accuracy: p.Accuracy,
	}))
	return nil
}

// Finish records a participant completing the prompt.
func (s *Session) Finish(participantID string, wpm, accuracy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StateRacing {
		return ErrNotRacing
	}
	p, ok := s.findLocked(participantID)
	if !ok {
		return ErrNotFound
	}
	if p.Status == PlayerFinished {
		return nil
	}
	s.finishLocked(p, wpm, accuracy)
	return nil
}

// finishLocked implements the finish protocol: strictly increasing positions,
// a one-shot grace timer armed by the first finisher of hosted races, and
// immediate completion once everyone is done.
func (s *Session) finishLocked(p *Participant, wpm, accuracy float64) {
	s.finishedCount++
	now := time.Now()
	p.FinishPos = s.finishedCount
	p.FinishedAt = &now
	p.Status = PlayerFinished
	p.Progress = 100
	p.WPM = wpm
	p.Accuracy = accuracy

	s.logger.Info().Str("player_id", p.ID).Int("position", p.FinishPos).Float64("wpm", wpm).Msg("participant finished")
	s.broadcastLocked(wsx.NewMessage(wsx.TypePlayerFinished, wsx.PlayerFinishedPayload{
		RaceID:   s.ID,
		PlayerID: p.ID,
		Position: p.FinishPos,
		WPM:      wpm,
		Accuracy: accuracy,
	}))

	if s.allFinishedLocked() {
		s.completeLocked()
		return
	}

	// Bound how long early finishers wait for stragglers in hosted races.
	if s.finishedCount == 1 && !s.graceArmed && (s.Mode == ModePrivate || s.Mode == ModeVenue) {
		s.graceArmed = true
		s.graceTimer = time.AfterFunc(s.cfg.Grace, s.graceExpired)
	}
}

func (s *Session) graceExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StateRacing {
		return
	}
	s.logger.Info().Int("finished", s.finishedCount).Int("participants", len(s.participants)).Msg("grace period expired, forcing finish")
	s.completeLocked()
}

func (s *Session) allFinishedLocked() bool {
	return lo.EveryBy(s.participants, func(p *Participant) bool {
		return p.Status == PlayerFinished
	})
}

// completeLocked finalizes the race: cancels the grace timer, ranks finishers
// by finish order and non-finishers by progress, and hands results to the
// completion hook off the lock.
func (s *Session) completeLocked() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}

	s.status = StateFinished
	standings := lo.Map(s.participants, func(p *Participant, _ int) reward.Standing {
		return reward.Standing{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			WPM:           p.WPM,
			Accuracy:      p.Accuracy,
			Progress:      p.Progress,
			FinishOrder:   p.FinishPos,
			Finished:      p.Status == PlayerFinished && p.FinishPos > 0,
		}
	})
	s.results = s.rewards.Rank(standings, len(s.prompt))

	s.logger.Info().Int("results", len(s.results)).Msg("race finished")
	s.broadcastLocked(wsx.NewMessage(wsx.TypeRaceFinished, wsx.RaceFinishedPayload{
		RaceID:  s.ID,
		Results: toWireResults(s.results),
	}))

	if s.onDone != nil {
		results := make([]Result, len(s.results))
		copy(results, s.results)
		go s.onDone(s, results)
	}
}

// ResetBy returns a finished (or mid-countdown) session to WaitingForPlayers
// for a rematch in place, clearing results, progress and finish positions.
// Hosted sessions only accept the reset from their host, and a session cannot
// be reset out from under active racers.
func (s *Session) ResetBy(requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if (s.Mode == ModePrivate || s.Mode == ModeVenue) && requesterID != s.hostID {
		return ErrNotHost
	}
	if s.status == StateRacing {
		return ErrRaceInProgress
	}

	s.resetLocked()
	s.logger.Info().Str("requested_by", requesterID).Msg("session reset")
	s.broadcastLocked(wsx.NewMessage(wsx.TypeRoomUpdate, s.snapshotLocked()))
	return nil
}

func (s *Session) resetLocked() {
	s.stopTimersLocked()
	s.status = StateWaitingForPlayers
	s.results = nil
	s.finishedCount = 0
	s.graceArmed = false
	s.startTime = time.Time{}
	if !s.customPrompt {
		s.prompt = ""
		s.promptSource = ""
	}
	for _, p := range s.participants {
		p.Status = PlayerWaiting
		p.Progress = 0
		p.WPM = 0
		p.Accuracy = 0
		p.FinishPos = 0
		p.FinishedAt = nil
	}
}

func (s *Session) setReady(participantID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StateWaitingForPlayers {
		return ErrRaceInProgress
	}
	p, ok := s.findLocked(participantID)
	if !ok {
		return ErrNotFound
	}
	if ready {
		p.Status = PlayerReady
	} else {
		p.Status = PlayerWaiting
	}
	s.broadcastLocked(wsx.NewMessage(wsx.TypeRoomUpdate, s.snapshotLocked()))
	return nil
}

func (s *Session) stopTimersLocked() {
	if s.countdownTimer != nil {
		s.countdownTimer.Stop()
		s.countdownTimer = nil
	}
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}

// tickNPCs advances every unfinished NPC by one simulator step. tickSeconds
// is the scheduler's fixed interval; the 5-characters-per-word convention
// ties WPM to characters per second.
func (s *Session) tickNPCs(tickSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StateRacing || len(s.prompt) == 0 {
		return
	}

	for _, p := range s.participants {
		if !p.IsNPC() || p.Status == PlayerFinished {
			continue
		}
		if s.status != StateRacing {
			break // an NPC finish can complete the race mid-loop
		}

		jitter := npcJitter(p.Consistency)
		factor := 1 - jitter + rand.Float64()*2*jitter
		delta := (p.TargetWPM * 5 / 60) * tickSeconds / float64(len(s.prompt)) * 100 * factor
		p.Progress += delta
		p.WPM = p.TargetWPM
		p.Status = PlayerTyping

		if p.Progress >= 100 {
			accuracy := p.MinAccuracy + rand.Float64()*(100-p.MinAccuracy)
			s.finishLocked(p, p.TargetWPM, accuracy)
			continue
		}

		s.broadcastLocked(wsx.NewMessage(wsx.TypePlayerProgress, wsx.PlayerProgressPayload{
			RaceID:   s.ID,
			PlayerID: p.ID,
			Progress: p.Progress,
			WPM:      p.WPM,
		}))
	}
}

func (s *Session) findLocked(participantID string) (*Participant, bool) {
	for _, p := range s.participants {
		if p.ID == participantID {
			return p, true
		}
	}
	return nil, false
}

func (s *Session) humanCountLocked() int {
	return lo.CountBy(s.participants, func(p *Participant) bool { return !p.IsNPC() })
}

// SendState delivers a full room_update snapshot to a single handle, enough
// for a reconnecting client to resynchronize.
func (s *Session) SendState(to Sender) error {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	return to.Send(wsx.NewMessage(wsx.TypeRoomUpdate, snapshot))
}

// Snapshot returns the current room_update payload.
func (s *Session) Snapshot() wsx.RoomUpdatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() wsx.RoomUpdatePayload {
	payload := wsx.RoomUpdatePayload{
		RaceID:         s.ID,
		Mode:           s.Mode,
		Status:         s.status,
		HostID:         s.hostID,
		MaxPlayers:     s.MaxPlayers,
		SlotsRemaining: s.MaxPlayers - len(s.participants),
		Racers: lo.Map(s.participants, func(p *Participant, _ int) wsx.Racer {
			return wsx.Racer{
				ID:          p.ID,
				DisplayName: p.DisplayName,
				IsNPC:       p.IsNPC(),
				Status:      p.Status,
				Progress:    p.Progress,
				WPM:         p.WPM,
				Accuracy:    p.Accuracy,
				Position:    p.FinishPos,
			}
		}),
		Results: toWireResults(s.results),
	}
	if s.status == StateRacing || s.status == StateFinished {
		payload.Prompt = s.prompt
	}
	if !s.startTime.IsZero() {
		payload.StartedAt = s.startTime.UTC().Format(time.RFC3339Nano)
	}
	return payload
}

func (s *Session) broadcastRoomUpdate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(wsx.NewMessage(wsx.TypeRoomUpdate, s.snapshotLocked()))
}

func (s *Session) broadcastLocked(msg wsx.Message) {
	for _, p := range s.participants {
		if p.Conn == nil {
			continue
		}
		if err := p.Conn.Send(msg); err != nil {
			s.logger.Debug().Err(err).Str("player_id", p.ID).Str("type", msg.Type).Msg("broadcast send failed")
		}
	}
}

func toWireResults(results []Result) []wsx.RaceResult {
	if len(results) == 0 {
		return nil
	}
	return lo.Map(results, func(r Result, _ int) wsx.RaceResult {
		return wsx.RaceResult{
			PlayerID:    r.ParticipantID,
			DisplayName: r.DisplayName,
			Position:    r.Position,
			WPM:         r.WPM,
			Accuracy:    r.Accuracy,
			Experience:  r.Experience,
			Finished:    r.Finished,
		}
	})
}
