package race

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDifficultyForWPMBuckets(t *testing.T) {
	assert.Equal(t, DifficultyEasy, DifficultyForWPM(25))
	assert.Equal(t, DifficultyEasy, DifficultyForWPM(37))
	assert.Equal(t, DifficultyNormal, DifficultyForWPM(38))
	assert.Equal(t, DifficultyNormal, DifficultyForWPM(55))
	assert.Equal(t, DifficultyHard, DifficultyForWPM(70))
	assert.Equal(t, DifficultyInsane, DifficultyForWPM(95))
}

func TestNewNPCShape(t *testing.T) {
	npc := NewNPC(45)

	assert.True(t, strings.HasPrefix(npc.ID, "npc-"))
	assert.True(t, strings.HasSuffix(npc.DisplayName, "(bot)"))
	assert.Equal(t, DifficultyNormal, npc.Difficulty)
	assert.Equal(t, 45.0, npc.TargetWPM)
	assert.Equal(t, 94.0, npc.MinAccuracy)
	assert.Equal(t, 0.7, npc.Consistency)
	assert.True(t, npc.IsNPC())
	assert.Nil(t, npc.Conn)
}

func TestNewNPCForDifficultySamplesBand(t *testing.T) {
	for i := 0; i < 20; i++ {
		npc := NewNPCForDifficulty(DifficultyHard)
		assert.Equal(t, DifficultyHard, npc.Difficulty)
		assert.GreaterOrEqual(t, npc.TargetWPM, 60.0)
		assert.LessOrEqual(t, npc.TargetWPM, 70.0)
	}
}

func TestNPCJitterNarrowsWithConsistency(t *testing.T) {
	assert.InDelta(t, 0.15, npcJitter(0.5), 1e-9)
	assert.Greater(t, npcJitter(0.6), npcJitter(0.9), "steadier profiles wobble less")
	assert.InDelta(t, 0.0, npcJitter(1), 1e-9)
	assert.InDelta(t, 0.15, npcJitter(0), 1e-9, "unrated speed falls back to the reference band")
}

func TestTickSpeedStaysWithinConsistencyBand(t *testing.T) {
	d := testDirectory(testConfig())
	s, _ := privateRace(t, d, "host", "p2")
	npc := NewNPC(65)
	assert.NoError(t, d.Registry().Admit(s, npc))
	startRacing(t, s, "host")

	base := (npc.TargetWPM * 5 / 60) / float64(len(testPrompt)) * 100
	jitter := npcJitter(npc.Consistency)
	for i := 0; i < 10; i++ {
		before := progressOf(s, npc.ID)
		if before+base*(1+jitter) >= 100 {
			break
		}
		s.tickNPCs(1.0)
		delta := progressOf(s, npc.ID) - before
		assert.InDelta(t, base, delta, base*jitter+1e-9)
	}
}

func progressOf(s *Session, id string) float64 {
	for _, p := range s.Participants() {
		if p.ID == id {
			return p.Progress
		}
	}
	return 0
}

func TestTickNPCsAdvancesAndFinishes(t *testing.T) {
	d := testDirectory(testConfig())
	s, err := d.FindOrCreateThenAdmit(ModeOpen, 60, mustHuman("runner"))
	assert.NoError(t, err)
	startRacing(t, s, "runner")

	s.tickNPCs(1.0)
	npcMoved := false
	for _, p := range s.Participants() {
		if p.IsNPC() && p.Progress > 0 {
			npcMoved = true
		}
	}
	assert.True(t, npcMoved, "one tick should advance every NPC")

	// The human finishes, then the simulator drives the rest home.
	assert.NoError(t, s.Finish("runner", 80, 99))
	for i := 0; i < 500 && s.Status() == StateRacing; i++ {
		s.tickNPCs(1.0)
	}
	assert.Equal(t, StateFinished, s.Status())

	results := s.Results()
	assert.Equal(t, s.ParticipantCount(), len(results))
	assert.Equal(t, "runner", results[0].ParticipantID)
	for i, res := range results {
		assert.Equal(t, i+1, res.Position)
		if res.ParticipantID != "runner" {
			assert.GreaterOrEqual(t, res.Accuracy, 90.0, "npc accuracy respects its difficulty floor")
		}
	}
}

func TestTickerDrivesRacingSessions(t *testing.T) {
	cfg := testConfig()
	d := testDirectory(cfg)
	// Very fast NPCs keep the wall-clock time of the simulated race short.
	s, err := d.FindOrCreateThenAdmit(ModeOpen, 2000, mustHuman("runner"))
	assert.NoError(t, err)
	startRacing(t, s, "runner")

	ticker := NewTicker(d, cfg.NPCTick, zerolog.New(io.Discard))
	go ticker.Run()
	defer ticker.Stop()

	assert.NoError(t, s.Finish("runner", 120, 99))
	assert.True(t, waitFor(3*time.Second, func() bool {
		return s.Status() == StateFinished
	}), "ticker should carry all NPCs to the finish")
}
