package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of pgxpool.Pool the repositories need. Tests stub it.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Player is a stored player account row.
type Player struct {
	ID           string
	DisplayName  string
	ReferenceWPM float64
	Experience   int
	RacesTotal   int
}

// PlayerRepository exposes typed DB operations on player accounts.
type PlayerRepository struct {
	db querier
}

// NewPlayerRepository wraps a pgx pool for player-specific operations.
func NewPlayerRepository(db querier) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// GetByID fetches a player by ID.
func (r *PlayerRepository) GetByID(ctx context.Context, playerID string) (*Player, error) {
	const q = `
		SELECT player_id, display_name, reference_wpm, experience, races_total
		FROM players
		WHERE player_id = $1`

	var p Player
	err := r.db.QueryRow(ctx, q, playerID).Scan(
		&p.ID, &p.DisplayName, &p.ReferenceWPM, &p.Experience, &p.RacesTotal,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

// Upsert creates or refreshes a player row. Display name wins on conflict so
// renames propagate.
func (r *PlayerRepository) Upsert(ctx context.Context, playerID, displayName string) error {
	const q = `
		INSERT INTO players (player_id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (player_id) DO UPDATE SET display_name = EXCLUDED.display_name`

	if _, err := r.db.Exec(ctx, q, playerID, displayName); err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// CreditExperience adds earned experience to a player's total.
func (r *PlayerRepository) CreditExperience(ctx context.Context, playerID string, amount int) error {
	const q = `
		UPDATE players
		SET experience = experience + $2
		WHERE player_id = $1`

	tag, err := r.db.Exec(ctx, q, playerID, amount)
	if err != nil {
		return fmt.Errorf("credit experience: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordRaceStats folds a finished race into the player's rolling reference
// speed. The reference drives NPC skill matching, so it tracks recent form:
// new = 0.7*old + 0.3*latest, seeded with the first observed speed.
func (r *PlayerRepository) RecordRaceStats(ctx context.Context, playerID string, wpm float64) error {
	const q = `
		UPDATE players
		SET races_total = races_total + 1,
		    reference_wpm = CASE
		        WHEN races_total = 0 THEN $2
		        ELSE reference_wpm * 0.7 + $2 * 0.3
		    END
		WHERE player_id = $1`

	tag, err := r.db.Exec(ctx, q, playerID, wpm)
	if err != nil {
		return fmt.Errorf("record race stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
