package prompt

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Repository defines curated prompt pool access (implemented by the
// pgx-backed PromptRepository).
type Repository interface {
	RandomPrompt(ctx context.Context, theme string) (*Prompt, error)
}

// Service draws race passages, respecting the priority: curated DB ->
// built-in set. A nil repository skips straight to the built-ins, which keeps
// the service usable without a database.
type Service struct {
	repo    Repository
	timeout time.Duration
	logger  zerolog.Logger
}

// NewService creates a prompt service. repo may be nil.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		timeout: 2 * time.Second,
		logger:  logger.With().Str("component", "prompt_service").Logger(),
	}
}

// Next returns a passage for the given theme and the source it came from.
// Races cannot wait on a slow pool query, so lookups are bounded and any
// failure falls back to the embedded passages.
func (s *Service) Next(theme string) (string, string) {
	if theme == "" {
		theme = "general"
	}

	if s.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		p, err := s.repo.RandomPrompt(ctx, theme)
		if err != nil {
			s.logger.Warn().Err(err).Str("theme", theme).Msg("curated prompt lookup failed")
		} else if p != nil && p.Text != "" {
			return p.Text, "curated"
		}
	}

	return s.builtin(theme), "builtin"
}

func (s *Service) builtin(theme string) string {
	passages, ok := builtinPassages[theme]
	if !ok || len(passages) == 0 {
		passages = builtinPassages["general"]
	}
	return passages[rand.Intn(len(passages))]
}

// Themes lists the themes the built-in set can always serve.
func Themes() []string {
	themes := make([]string, 0, len(builtinPassages))
	for theme := range builtinPassages {
		themes = append(themes, theme)
	}
	return themes
}
