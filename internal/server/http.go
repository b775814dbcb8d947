package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/velotype/typerace/internal/config"
)

// Handlers carries the route handlers the API server mounts. Nil entries are
// mounted as 501 placeholders so the server stays bootable during partial
// wiring.
type Handlers struct {
	RaceWS         http.HandlerFunc
	CreateRoom     http.HandlerFunc
	GetRoom        http.HandlerFunc
	LeaderboardGet http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics) plus the API surface.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, h Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, redis); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	mux.HandleFunc("/ws/races", orNotImplemented(h.RaceWS))
	mux.HandleFunc("/v1/rooms", orNotImplemented(h.CreateRoom))
	mux.HandleFunc("/v1/rooms/", orNotImplemented(h.GetRoom))
	mux.HandleFunc("/v1/leaderboards/", orNotImplemented(h.LeaderboardGet))

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "handler not yet integrated", http.StatusNotImplemented)
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redis.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
