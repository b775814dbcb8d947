package race

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry owns the participant-to-session index: every other component
// resolves "which race is this player in" through it. A participant is in at
// most one session at a time; joining a new one implicitly leaves the old.
type Registry struct {
	mu      sync.Mutex
	index   map[string]*Session // participant_id -> session
	onEmpty func(*Session)      // directory teardown hook
	logger  zerolog.Logger
}

// NewRegistry creates a player registry. onEmpty fires when a non-persistent
// session loses its last human participant.
func NewRegistry(onEmpty func(*Session), logger zerolog.Logger) *Registry {
	return &Registry{
		index:   make(map[string]*Session),
		onEmpty: onEmpty,
		logger:  logger.With().Str("component", "registry").Logger(),
	}
}

// Admit adds a participant to a session. Rejects when the session is full or
// no longer accepting players. If the participant was indexed to a different
// session they are removed from it first.
func (r *Registry) Admit(s *Session, p *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.index[p.ID]; exists {
		if old == s {
			return nil // duplicate join, already admitted
		}
		if err := r.removeLocked(old, p.ID); err != nil && err != ErrNotFound {
			return err
		}
	}

	s.mu.Lock()
	if len(s.participants) >= s.MaxPlayers {
		s.mu.Unlock()
		return ErrRaceFull
	}
	if s.status != StateWaitingForPlayers {
		s.mu.Unlock()
		return ErrRaceInProgress
	}

	p.Status = PlayerWaiting
	p.JoinedAt = time.Now()
	s.participants = append(s.participants, p)

	// Venues have no fixed creator; the first human in becomes host.
	if s.hostID == "" && s.Mode == ModeVenue && !p.IsNPC() {
		s.hostID = p.ID
	}
	s.mu.Unlock()

	r.index[p.ID] = s
	r.logger.Info().
		Str("race_id", s.ID).
		Str("player_id", p.ID).
		Bool("npc", p.IsNPC()).
		Msg("participant admitted")

	s.broadcastRoomUpdate()
	return nil
}

// Remove takes a participant out of its session. Removing an unknown ID
// returns ErrNotFound, so a double leave is a safe no-op.
func (r *Registry) Remove(participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.index[participantID]
	if !exists {
		return ErrNotFound
	}
	return r.removeLocked(s, participantID)
}

func (r *Registry) removeLocked(s *Session, participantID string) error {
	s.mu.Lock()

	idx := -1
	for i, p := range s.participants {
		if p.ID == participantID {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		delete(r.index, participantID) // stale index entry
		return ErrNotFound
	}

	removed := s.participants[idx]
	s.participants = append(s.participants[:idx], s.participants[idx+1:]...)
	delete(r.index, participantID)

	// Host role transfers to the first remaining human in list order.
	if (s.Mode == ModePrivate || s.Mode == ModeVenue) && s.hostID == removed.ID {
		s.hostID = ""
		for _, p := range s.participants {
			if !p.IsNPC() {
				s.hostID = p.ID
				break
			}
		}
	}

	r.logger.Info().
		Str("race_id", s.ID).
		Str("player_id", participantID).
		Int("remaining", len(s.participants)).
		Msg("participant removed")

	if s.humanCountLocked() == 0 {
		// NPCs never leave on their own; the session is done once the last
		// human is gone.
		s.stopTimersLocked()
		for _, p := range s.participants {
			delete(r.index, p.ID)
		}
		s.participants = nil
		if s.Persistent {
			s.resetLocked()
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
		if r.onEmpty != nil {
			r.onEmpty(s)
		}
		return nil
	}

	// A straggler leaving mid-race can make everyone remaining a finisher.
	if s.status == StateRacing && s.allFinishedLocked() {
		s.completeLocked()
	}
	s.mu.Unlock()

	s.broadcastRoomUpdate()
	return nil
}

// UpdateProgress applies a progress update to wherever the participant is
// racing. Progress is clamped to [0,100]; reaching 100 triggers the finish
// protocol.
func (r *Registry) UpdateProgress(participantID string, progress, wpm, accuracy float64) error {
	s, exists := r.SessionFor(participantID)
	if !exists {
		return ErrNotFound
	}
	return s.updateProgress(participantID, progress, wpm, accuracy)
}

// SetReady toggles a participant's readiness while the session is waiting.
func (r *Registry) SetReady(participantID string, ready bool) error {
	s, exists := r.SessionFor(participantID)
	if !exists {
		return ErrNotFound
	}
	return s.setReady(participantID, ready)
}

// SessionFor resolves the session a participant is currently in.
func (r *Registry) SessionFor(participantID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, exists := r.index[participantID]
	return s, exists
}
