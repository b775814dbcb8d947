package race

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/velotype/typerace/internal/race/reward"
)

// Directory creates, finds and destroys race sessions. It is the only
// cross-session shared mutable state; constructed once per process with its
// collaborators injected.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	registry *Registry
	cfg      Config
	prompts  PromptSource
	rewards  *reward.Engine
	store    Store
	notifier Notifier
	logger   zerolog.Logger
}

// NewDirectory constructs the session directory. store and notifier may be
// nil in tests; completion side effects are skipped for missing
// collaborators.
func NewDirectory(cfg Config, prompts PromptSource, rewards *reward.Engine, store Store, notifier Notifier, logger zerolog.Logger) *Directory {
	d := &Directory{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		prompts:  prompts,
		rewards:  rewards,
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "directory").Logger(),
	}
	d.registry = NewRegistry(d.onSessionEmpty, logger)
	return d
}

// Registry exposes the participant registry for handlers.
func (d *Directory) Registry() *Registry {
	return d.registry
}

// Get retrieves a session by ID or room code.
func (d *Directory) Get(id string) (*Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, exists := d.sessions[id]
	return s, exists
}

// FindOrCreate returns an open session of the given mode with spare capacity,
// creating one when none exists. New skill-matched open sessions are
// backfilled with NPCs generated around referenceWPM; human-only sessions
// never receive NPCs.
func (d *Directory) FindOrCreate(mode string, referenceWPM float64) *Session {
	d.mu.Lock()
	for _, s := range d.sessions {
		if s.Mode != mode {
			continue
		}
		if s.Status() != StateWaitingForPlayers {
			continue
		}
		if s.ParticipantCount() >= s.MaxPlayers {
			continue
		}
		d.mu.Unlock()
		return s
	}

	s := d.createLocked(uuid.NewString(), mode, false)
	d.mu.Unlock()

	// Admission goes through the registry, so backfill happens outside the
	// directory lock.
	if mode == ModeOpen {
		d.backfillNPCs(s, referenceWPM)
	}
	return s
}

// FindOrCreateThenAdmit is the matchmaking join path: resolve a session for
// the mode, then admit the participant into it.
func (d *Directory) FindOrCreateThenAdmit(mode string, referenceWPM float64, p *Participant) (*Session, error) {
	s := d.FindOrCreate(mode, referenceWPM)
	if err := d.registry.Admit(s, p); err != nil {
		return nil, err
	}
	return s, nil
}

// AdmitToSession admits a participant into a known session.
func (d *Directory) AdmitToSession(sessionID string, p *Participant) (*Session, error) {
	s, exists := d.Get(sessionID)
	if !exists {
		return nil, ErrRaceNotFound
	}
	if err := d.registry.Admit(s, p); err != nil {
		return nil, err
	}
	return s, nil
}

// CreatePrivate creates a hosted room with a join code. The prompt is fixed
// at creation: the supplied custom text, or a themed passage. The host is
// recorded but not admitted; admission happens via the normal join path.
func (d *Directory) CreatePrivate(spec RoomSpec) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.createLocked(d.generateRoomCodeLocked(), ModePrivate, false)
	if spec.MaxPlayers > 0 && spec.MaxPlayers <= d.cfg.MaxPlayers {
		s.MaxPlayers = spec.MaxPlayers
	}

	s.mu.Lock()
	s.hostID = spec.HostID
	s.promptTheme = spec.Theme
	s.customPrompt = true
	if spec.Prompt != "" {
		s.prompt = spec.Prompt
		s.promptSource = "custom"
	} else {
		s.prompt, s.promptSource = d.prompts.Next(spec.Theme)
	}
	s.mu.Unlock()

	d.logger.Info().Str("race_id", s.ID).Str("host_id", spec.HostID).Msg("private room created")
	return s
}

// Venue returns the persistent session with the given fixed ID, creating it
// on first request. Creation is idempotent.
func (d *Directory) Venue(id string) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, exists := d.sessions[id]; exists {
		return s
	}
	s := d.createLocked(id, ModeVenue, true)
	d.logger.Info().Str("race_id", id).Msg("venue created")
	return s
}

func (d *Directory) createLocked(id, mode string, persistent bool) *Session {
	s := newSession(id, mode, d.cfg, d.prompts, d.rewards, d.handleCompletion, d.logger)
	s.Persistent = persistent
	d.sessions[id] = s
	d.logger.Info().Str("race_id", id).Str("mode", mode).Msg("session created")
	return s
}

// backfillNPCs seeds a fresh open session with skill-matched NPCs, leaving
// room for the joining human within the 6-8 racer target.
func (d *Directory) backfillNPCs(s *Session, referenceWPM float64) {
	if referenceWPM <= 0 {
		referenceWPM = d.cfg.DefaultWPM
	}
	minTotal, maxTotal := d.cfg.BackfillMin, d.cfg.BackfillMax
	if minTotal <= 0 || maxTotal < minTotal {
		minTotal, maxTotal = DefaultConfig().BackfillMin, DefaultConfig().BackfillMax
	}
	total := minTotal + rand.Intn(maxTotal-minTotal+1)
	if total > s.MaxPlayers {
		total = s.MaxPlayers
	}

	for i := 0; i < total-1; i++ {
		target := referenceWPM + (rand.Float64()*2-1)*d.cfg.NPCWPMVariance
		if target < 5 {
			target = 5
		}
		npc := NewNPC(target)
		if err := d.registry.Admit(s, npc); err != nil {
			d.logger.Warn().Err(err).Str("race_id", s.ID).Msg("npc backfill admission failed")
			return
		}
	}
}

// generateRoomCodeLocked creates a unique 6-digit join code.
func (d *Directory) generateRoomCodeLocked() string {
	for {
		code := fmt.Sprintf("%06d", 100000+rand.Intn(900000))
		if _, exists := d.sessions[code]; !exists {
			return code
		}
	}
}

// racingSessions snapshots the sessions currently racing, for the NPC ticker.
func (d *Directory) racingSessions() []*Session {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Filter(lo.Values(d.sessions), func(s *Session, _ int) bool {
		return s.Status() == StateRacing
	})
}

// SessionCount reports how many sessions exist.
func (d *Directory) SessionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

func (d *Directory) onSessionEmpty(s *Session) {
	d.mu.Lock()
	delete(d.sessions, s.ID)
	d.mu.Unlock()
	d.logger.Info().Str("race_id", s.ID).Msg("session torn down")
}

// handleCompletion runs the post-race side effects: persist results, credit
// experience and notify. All of it is fallible I/O; failures are logged and
// never touch the in-memory outcome.
func (d *Directory) handleCompletion(s *Session, results []Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	npcIDs := make(map[string]bool)
	for _, p := range s.Participants() {
		if p.IsNPC() {
			npcIDs[p.ID] = true
		}
	}

	if d.store != nil {
		for _, res := range results {
			if npcIDs[res.ParticipantID] {
				continue
			}
			if err := d.store.RecordRaceResult(ctx, s.ID, res); err != nil {
				d.logger.Warn().Err(err).Str("race_id", s.ID).Str("player_id", res.ParticipantID).Msg("failed to persist race result")
			}
			if err := d.store.CreditExperience(ctx, res.ParticipantID, res.Experience); err != nil {
				d.logger.Warn().Err(err).Str("player_id", res.ParticipantID).Msg("failed to credit experience")
			}
		}
	}

	if d.notifier != nil {
		d.notifier.PostRaceCompletion(CompletionSummary{
			RaceID:  s.ID,
			Mode:    s.Mode,
			Prompt:  s.Prompt(),
			Results: results,
		})
	}
}
