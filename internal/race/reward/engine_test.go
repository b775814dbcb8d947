package reward

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiplierByPosition(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	assert.Equal(t, 1.0, engine.Multiplier(1))
	assert.Equal(t, 0.5, engine.Multiplier(2))
	assert.InDelta(t, 1.0/3.0, engine.Multiplier(3), 1e-9)
	assert.Equal(t, 0.25, engine.Multiplier(4))
	assert.Equal(t, 0.25, engine.Multiplier(8))
}

func TestPayoutFloorsFractions(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	assert.Equal(t, 200, engine.Payout(1, 200))
	assert.Equal(t, 100, engine.Payout(2, 200))
	// 200/3 = 66.66..., floored
	assert.Equal(t, 66, engine.Payout(3, 200))
	assert.Equal(t, 50, engine.Payout(4, 200))
	assert.Equal(t, 0, engine.Payout(1, -5))
}

func TestRankFinishersBeforeStragglers(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	standings := []Standing{
		{ParticipantID: "slow", Progress: 40, Finished: false},
		{ParticipantID: "second", Progress: 100, FinishOrder: 2, Finished: true},
		{ParticipantID: "winner", Progress: 100, FinishOrder: 1, Finished: true},
		{ParticipantID: "slower", Progress: 10, Finished: false},
	}

	results := engine.Rank(standings, 100)

	assert.Len(t, results, 4)
	assert.Equal(t, "winner", results[0].ParticipantID)
	assert.Equal(t, "second", results[1].ParticipantID)
	assert.Equal(t, "slow", results[2].ParticipantID)
	assert.Equal(t, "slower", results[3].ParticipantID)

	for i, res := range results {
		assert.Equal(t, i+1, res.Position, "positions must be contiguous")
	}
}

func TestRankPaysStragglersOnTypedCharacters(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	standings := []Standing{
		{ParticipantID: "winner", Progress: 100, FinishOrder: 1, Finished: true},
		{ParticipantID: "second", Progress: 100, FinishOrder: 2, Finished: true},
		{ParticipantID: "third", Progress: 100, FinishOrder: 3, Finished: true},
		{ParticipantID: "dnf", Progress: 50, Finished: false},
	}

	results := engine.Rank(standings, 300)

	assert.Equal(t, 300, results[0].Experience)
	assert.Equal(t, 150, results[1].Experience)
	assert.Equal(t, 99, results[2].Experience) // floor(300 * 1/3)
	// 50% of 300 chars at the 4th-place multiplier
	assert.Equal(t, 37, results[3].Experience) // floor(150 * 0.25)
	assert.False(t, results[3].Finished)
}

func TestRankNobodyFinished(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	standings := []Standing{
		{ParticipantID: "a", Progress: 30, Finished: false},
		{ParticipantID: "b", Progress: 80, Finished: false},
	}

	results := engine.Rank(standings, 100)

	assert.Equal(t, "b", results[0].ParticipantID)
	assert.Equal(t, 1, results[0].Position)
	assert.Equal(t, 80, results[0].Experience) // floor(80 * 1.0)
	assert.Equal(t, "a", results[1].ParticipantID)
	assert.Equal(t, 15, results[1].Experience) // floor(30 * 0.5)
}
