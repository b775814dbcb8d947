package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/velotype/typerace/internal/db/repository"
	"github.com/velotype/typerace/internal/leaderboard"
	"github.com/velotype/typerace/internal/race"
)

// raceStore adapts the repositories and the leaderboard into the single
// persistence collaborator the race core sees. Keeping the composition here
// leaves the race package with one narrow dependency.
type raceStore struct {
	players *repository.PlayerRepository
	results *repository.RaceResultRepository
	boards  *leaderboard.Service
	logger  zerolog.Logger
}

func newRaceStore(players *repository.PlayerRepository, results *repository.RaceResultRepository, boards *leaderboard.Service, logger zerolog.Logger) *raceStore {
	return &raceStore{
		players: players,
		results: results,
		boards:  boards,
		logger:  logger.With().Str("component", "race_store").Logger(),
	}
}

// ParticipantProfile resolves a stored player. Unknown IDs are guests, not
// errors.
func (s *raceStore) ParticipantProfile(ctx context.Context, id string) (*race.Profile, error) {
	p, err := s.players.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &race.Profile{
		ID:           p.ID,
		DisplayName:  p.DisplayName,
		ReferenceWPM: p.ReferenceWPM,
		Experience:   p.Experience,
	}, nil
}

// RecordRaceResult persists one finish record and folds it into the player's
// stats and the leaderboards. The player row is upserted first so guests who
// raced before registering still accumulate history.
func (s *raceStore) RecordRaceResult(ctx context.Context, raceID string, res race.Result) error {
	if err := s.players.Upsert(ctx, res.ParticipantID, res.DisplayName); err != nil {
		return err
	}

	if err := s.results.Insert(ctx, repository.RaceResult{
		RaceID:     raceID,
		PlayerID:   res.ParticipantID,
		Position:   res.Position,
		WPM:        res.WPM,
		Accuracy:   res.Accuracy,
		Experience: res.Experience,
		Finished:   res.Finished,
	}); err != nil {
		return err
	}

	if err := s.players.RecordRaceStats(ctx, res.ParticipantID, res.WPM); err != nil {
		s.logger.Warn().Err(err).Str("player_id", res.ParticipantID).Msg("failed to update race stats")
	}

	if err := s.boards.Record(ctx, leaderboard.RecordRequest{
		PlayerID:    res.ParticipantID,
		DisplayName: res.DisplayName,
		Experience:  res.Experience,
		WPM:         res.WPM,
		Won:         res.Position == 1,
	}); err != nil {
		s.logger.Warn().Err(err).Str("player_id", res.ParticipantID).Msg("failed to update leaderboard")
	}

	return nil
}

// CreditExperience adds earned experience to the player's account.
func (s *raceStore) CreditExperience(ctx context.Context, participantID string, amount int) error {
	err := s.players.CreditExperience(ctx, participantID, amount)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
