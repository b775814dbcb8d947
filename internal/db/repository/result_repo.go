package repository

import (
	"context"
	"fmt"
)

// RaceResult is one finish record for a completed race.
type RaceResult struct {
	RaceID     string
	PlayerID   string
	Position   int
	WPM        float64
	Accuracy   float64
	Experience int
	Finished   bool
}

// RaceResultRepository persists finish records for completed races.
type RaceResultRepository struct {
	db querier
}

// NewRaceResultRepository wraps a pgx pool for race result operations.
func NewRaceResultRepository(db querier) *RaceResultRepository {
	return &RaceResultRepository{db: db}
}

// Insert records one participant's result. Re-inserting the same
// (race, player) pair is a no-op so completion retries stay safe.
func (r *RaceResultRepository) Insert(ctx context.Context, res RaceResult) error {
	const q = `
		INSERT INTO race_results (race_id, player_id, position, wpm, accuracy, experience, finished)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (race_id, player_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, q,
		res.RaceID, res.PlayerID, res.Position, res.WPM, res.Accuracy, res.Experience, res.Finished,
	); err != nil {
		return fmt.Errorf("insert race result: %w", err)
	}
	return nil
}

// RecentForPlayer lists a player's latest results, newest first.
func (r *RaceResultRepository) RecentForPlayer(ctx context.Context, playerID string, limit int) ([]RaceResult, error) {
	const q = `
		SELECT race_id, player_id, position, wpm, accuracy, experience, finished
		FROM race_results
		WHERE player_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, q, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	defer rows.Close()

	var results []RaceResult
	for rows.Next() {
		var res RaceResult
		if err := rows.Scan(
			&res.RaceID, &res.PlayerID, &res.Position, &res.WPM, &res.Accuracy, &res.Experience, &res.Finished,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
