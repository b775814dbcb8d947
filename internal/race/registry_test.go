package race

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdmitDuplicateJoinIsNoOp(t *testing.T) {
	d := testDirectory(testConfig())
	s := d.CreatePrivate(RoomSpec{HostID: "host"})

	p, _ := human("host")
	assert.NoError(t, d.Registry().Admit(s, p))
	assert.NoError(t, d.Registry().Admit(s, p))
	assert.Equal(t, 1, s.ParticipantCount())
}

func TestAdmitMovesParticipantBetweenSessions(t *testing.T) {
	d := testDirectory(testConfig())
	s1 := d.CreatePrivate(RoomSpec{HostID: "host"})
	s2 := d.CreatePrivate(RoomSpec{HostID: "other"})

	p, _ := human("p1")
	anchor, _ := human("anchor") // keeps s1 alive when p1 moves out
	assert.NoError(t, d.Registry().Admit(s1, anchor))
	assert.NoError(t, d.Registry().Admit(s1, p))
	assert.Equal(t, 2, s1.ParticipantCount())

	assert.NoError(t, d.Registry().Admit(s2, p))
	assert.Equal(t, 1, s1.ParticipantCount())
	assert.Equal(t, 1, s2.ParticipantCount())

	got, exists := d.Registry().SessionFor("p1")
	assert.True(t, exists)
	assert.Equal(t, s2.ID, got.ID)
}

func TestAdmitRejectsFullSession(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPlayers = 2
	d := testDirectory(cfg)
	s := d.CreatePrivate(RoomSpec{HostID: "a"})

	assert.NoError(t, d.Registry().Admit(s, mustHuman("a")))
	assert.NoError(t, d.Registry().Admit(s, mustHuman("b")))
	assert.ErrorIs(t, d.Registry().Admit(s, mustHuman("c")), ErrRaceFull)
}

func TestAdmitRejectsRaceInProgress(t *testing.T) {
	d := testDirectory(testConfig())
	s, _ := privateRace(t, d, "host", "p2")
	startRacing(t, s, "host")

	assert.ErrorIs(t, d.Registry().Admit(s, mustHuman("late")), ErrRaceInProgress)
}

func TestRemoveIsIdempotent(t *testing.T) {
	d := testDirectory(testConfig())
	s := d.CreatePrivate(RoomSpec{HostID: "host"})
	assert.NoError(t, d.Registry().Admit(s, mustHuman("host")))
	assert.NoError(t, d.Registry().Admit(s, mustHuman("p2")))

	assert.NoError(t, d.Registry().Remove("p2"))
	assert.ErrorIs(t, d.Registry().Remove("p2"), ErrNotFound)
	assert.Equal(t, 1, s.ParticipantCount())
}

func TestHostTransfersToNextHuman(t *testing.T) {
	d := testDirectory(testConfig())
	s, _ := privateRace(t, d, "host", "p2", "p3")

	assert.NoError(t, d.Registry().Remove("host"))
	assert.Equal(t, "p2", s.HostID())
}

func TestSessionTornDownWhenLastHumanLeaves(t *testing.T) {
	d := testDirectory(testConfig())
	s, err := d.FindOrCreateThenAdmit(ModeOpen, 40, mustHuman("solo"))
	assert.NoError(t, err)
	assert.Greater(t, s.ParticipantCount(), 1, "open sessions are NPC backfilled")

	assert.NoError(t, d.Registry().Remove("solo"))

	_, exists := d.Get(s.ID)
	assert.False(t, exists, "session should be destroyed with its NPCs")
	assert.Equal(t, 0, d.SessionCount())
	_, exists = d.Registry().SessionFor("solo")
	assert.False(t, exists)
}

func TestVenueResetsInsteadOfTearingDown(t *testing.T) {
	d := testDirectory(testConfig())
	v := d.Venue("lobby-1")
	assert.NoError(t, d.Registry().Admit(v, mustHuman("a")))
	assert.NoError(t, d.Registry().Admit(v, mustHuman("b")))
	assert.Equal(t, "a", v.HostID(), "first human in becomes venue host")

	startRacing(t, v, "a")

	assert.NoError(t, d.Registry().Remove("a"))
	assert.NoError(t, d.Registry().Remove("b"))

	got, exists := d.Get("lobby-1")
	assert.True(t, exists, "venues persist without participants")
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, StateWaitingForPlayers, v.Status())
	assert.Equal(t, 0, v.ParticipantCount())
}

func TestLeaveDuringRaceCanCompleteIt(t *testing.T) {
	d := testDirectory(testConfig())
	s, _ := privateRace(t, d, "host", "p2")
	startRacing(t, s, "host")

	assert.NoError(t, d.Registry().UpdateProgress("host", 100, 65, 99))
	assert.Equal(t, StateRacing, s.Status())

	// The only unfinished participant walks away.
	assert.NoError(t, d.Registry().Remove("p2"))

	assert.True(t, waitFor(200*time.Millisecond, func() bool {
		return s.Status() == StateFinished
	}))
	results := s.Results()
	assert.Len(t, results, 1)
	assert.Equal(t, "host", results[0].ParticipantID)
}
