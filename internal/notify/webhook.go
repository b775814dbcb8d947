package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/velotype/typerace/internal/race"
)

// Webhook posts race completion summaries to a configured URL. Delivery is
// fire-and-forget: a race never waits on, or fails because of, the webhook.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewWebhook creates a webhook notifier. An empty URL disables delivery.
func NewWebhook(url string, timeout time.Duration, logger zerolog.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger.With().Str("component", "webhook").Logger(),
	}
}

type completionEvent struct {
	Event      string        `json:"event"`
	RaceID     string        `json:"race_id"`
	Mode       string        `json:"mode"`
	Prompt     string        `json:"prompt"`
	Results    []race.Result `json:"results"`
	OccurredAt string        `json:"occurred_at"`
}

// PostRaceCompletion delivers the summary in the background.
func (w *Webhook) PostRaceCompletion(summary race.CompletionSummary) {
	if w.url == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		body, err := json.Marshal(completionEvent{
			Event:      "race.completed",
			RaceID:     summary.RaceID,
			Mode:       summary.Mode,
			Prompt:     summary.Prompt,
			Results:    summary.Results,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			w.logger.Warn().Err(err).Msg("failed to encode completion event")
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			w.logger.Warn().Err(err).Msg("failed to build webhook request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			w.logger.Warn().Err(err).Str("race_id", summary.RaceID).Msg("webhook delivery failed")
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			w.logger.Warn().Int("status", resp.StatusCode).Str("race_id", summary.RaceID).Msg("webhook rejected")
		}
	}()
}
