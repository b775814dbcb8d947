package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/velotype/typerace/internal/prompt"
)

// PromptRepository serves the curated passage pool.
type PromptRepository struct {
	db querier
}

// NewPromptRepository wraps a pgx pool for prompt pool access.
func NewPromptRepository(db querier) *PromptRepository {
	return &PromptRepository{db: db}
}

// RandomPrompt draws one active passage for the theme. No row is not an
// error shape the caller cares about beyond "fall back", so it maps to
// ErrNotFound.
func (r *PromptRepository) RandomPrompt(ctx context.Context, theme string) (*prompt.Prompt, error) {
	const q = `
		SELECT prompt_id, text, theme
		FROM prompts
		WHERE theme = $1 AND active
		ORDER BY random()
		LIMIT 1`

	var p prompt.Prompt
	err := r.db.QueryRow(ctx, q, theme).Scan(&p.ID, &p.Text, &p.Theme)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("random prompt: %w", err)
	}
	p.Source = "curated"
	return &p, nil
}

// Insert adds a passage to the curated pool.
func (r *PromptRepository) Insert(ctx context.Context, p prompt.Prompt) error {
	const q = `
		INSERT INTO prompts (prompt_id, text, theme, active)
		VALUES ($1, $2, $3, TRUE)`

	if _, err := r.db.Exec(ctx, q, p.ID, p.Text, p.Theme); err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}
