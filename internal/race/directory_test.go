package race

import (
	"context"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/velotype/typerace/internal/race/reward"
)

type stubStore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	recorded []Result
	credited map[string]int
}

func newStubStore() *stubStore {
	return &stubStore{
		profiles: make(map[string]*Profile),
		credited: make(map[string]int),
	}
}

func (s *stubStore) ParticipantProfile(_ context.Context, id string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[id], nil
}

func (s *stubStore) RecordRaceResult(_ context.Context, raceID string, res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, res)
	return nil
}

func (s *stubStore) CreditExperience(_ context.Context, participantID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credited[participantID] += amount
	return nil
}

func (s *stubStore) recordedResults() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.recorded))
	copy(out, s.recorded)
	return out
}

func TestFindOrCreateReusesWaitingSession(t *testing.T) {
	d := testDirectory(testConfig())

	s1, err := d.FindOrCreateThenAdmit(ModeHumanOnly, 40, mustHuman("a"))
	assert.NoError(t, err)
	s2, err := d.FindOrCreateThenAdmit(ModeHumanOnly, 40, mustHuman("b"))
	assert.NoError(t, err)

	assert.Equal(t, s1.ID, s2.ID)
	assert.Equal(t, 1, d.SessionCount())
}

func TestFindOrCreateSeparatesModes(t *testing.T) {
	d := testDirectory(testConfig())

	open, err := d.FindOrCreateThenAdmit(ModeOpen, 40, mustHuman("a"))
	assert.NoError(t, err)
	humansOnly, err := d.FindOrCreateThenAdmit(ModeHumanOnly, 40, mustHuman("b"))
	assert.NoError(t, err)

	assert.NotEqual(t, open.ID, humansOnly.ID)
}

func TestOpenSessionsBackfillSkillMatchedNPCs(t *testing.T) {
	cfg := testConfig()
	d := testDirectory(cfg)

	s, err := d.FindOrCreateThenAdmit(ModeOpen, 60, mustHuman("a"))
	assert.NoError(t, err)

	npcs := 0
	for _, p := range s.Participants() {
		if !p.IsNPC() {
			continue
		}
		npcs++
		assert.InDelta(t, 60, p.TargetWPM, cfg.NPCWPMVariance)
	}
	assert.GreaterOrEqual(t, npcs, cfg.BackfillMin-1)
	assert.LessOrEqual(t, npcs, cfg.BackfillMax-1)
}

func TestHumanOnlySessionsNeverBackfill(t *testing.T) {
	d := testDirectory(testConfig())

	s, err := d.FindOrCreateThenAdmit(ModeHumanOnly, 60, mustHuman("a"))
	assert.NoError(t, err)
	assert.Equal(t, 1, s.ParticipantCount())
}

func TestCreatePrivateGeneratesJoinCode(t *testing.T) {
	d := testDirectory(testConfig())

	s := d.CreatePrivate(RoomSpec{HostID: "host", MaxPlayers: 4})
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), s.ID)
	assert.Equal(t, ModePrivate, s.Mode)
	assert.Equal(t, 4, s.MaxPlayers)
	assert.Equal(t, "host", s.HostID())
	assert.Equal(t, 0, s.ParticipantCount(), "creation does not admit the host")

	got, exists := d.Get(s.ID)
	assert.True(t, exists)
	assert.Equal(t, s.ID, got.ID)
}

func TestCreatePrivateThemedPromptFixedAtCreation(t *testing.T) {
	d := testDirectory(testConfig())

	s := d.CreatePrivate(RoomSpec{HostID: "host", Theme: "science"})
	assert.Equal(t, testPrompt, s.Prompt(), "prompt is drawn when the room is created")
}

func TestVenueIsIdempotent(t *testing.T) {
	d := testDirectory(testConfig())

	v1 := d.Venue("cafe-17")
	v2 := d.Venue("cafe-17")
	assert.Same(t, v1, v2)
	assert.True(t, v1.Persistent)
	assert.Equal(t, ModeVenue, v1.Mode)
}

func TestAdmitToUnknownSession(t *testing.T) {
	d := testDirectory(testConfig())

	_, err := d.AdmitToSession("000000", mustHuman("a"))
	assert.ErrorIs(t, err, ErrRaceNotFound)
}

func TestCompletionPersistsAndNotifies(t *testing.T) {
	store := newStubStore()
	notifier := &stubNotifier{}
	d := NewDirectory(testConfig(), stubPrompts{}, reward.NewEngine(reward.DefaultConfig()), store, notifier, zerolog.New(io.Discard))

	s, _ := privateRace(t, d, "host", "p2")
	startRacing(t, s, "host")

	assert.NoError(t, d.Registry().UpdateProgress("host", 100, 72, 99))
	assert.NoError(t, d.Registry().UpdateProgress("p2", 100, 64, 97))

	assert.True(t, waitFor(time.Second, func() bool {
		return len(notifier.received()) == 1
	}))

	summary := notifier.received()[0]
	assert.Equal(t, s.ID, summary.RaceID)
	assert.Equal(t, ModePrivate, summary.Mode)
	assert.Len(t, summary.Results, 2)

	assert.True(t, waitFor(time.Second, func() bool {
		return len(store.recordedResults()) == 2
	}))
	recorded := store.recordedResults()
	assert.Equal(t, "host", recorded[0].ParticipantID)
	assert.Equal(t, 1, recorded[0].Position)
}

func TestCompletionSkipsNPCPersistence(t *testing.T) {
	store := newStubStore()
	d := NewDirectory(testConfig(), stubPrompts{}, reward.NewEngine(reward.DefaultConfig()), store, nil, zerolog.New(io.Discard))

	s, err := d.FindOrCreateThenAdmit(ModeOpen, 80, mustHuman("runner"))
	assert.NoError(t, err)
	startRacing(t, s, "runner")

	assert.NoError(t, s.Finish("runner", 85, 99))
	for i := 0; i < 500 && s.Status() == StateRacing; i++ {
		s.tickNPCs(1.0)
	}
	assert.Equal(t, StateFinished, s.Status())

	assert.True(t, waitFor(time.Second, func() bool {
		return len(store.recordedResults()) == 1
	}), "only the human result is persisted")
	assert.Equal(t, "runner", store.recordedResults()[0].ParticipantID)
}
