package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/velotype/typerace/internal/config"
	"github.com/velotype/typerace/internal/db/repository"
	"github.com/velotype/typerace/internal/leaderboard"
	"github.com/velotype/typerace/internal/logging"
	"github.com/velotype/typerace/internal/notify"
	"github.com/velotype/typerace/internal/prompt"
	"github.com/velotype/typerace/internal/race"
	"github.com/velotype/typerace/internal/race/reward"
	"github.com/velotype/typerace/internal/server"
	ws "github.com/velotype/typerace/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	npcTicker *race.Ticker
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	playerRepo := repository.NewPlayerRepository(pool)
	resultRepo := repository.NewRaceResultRepository(pool)
	promptRepo := repository.NewPromptRepository(pool)

	leaderboardSvc := leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
		TopN: cfg.Leaderboard.TopN,
	})
	promptSvc := prompt.NewService(promptRepo, logger)
	store := newRaceStore(playerRepo, resultRepo, leaderboardSvc, logger)
	notifier := notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout, logger)

	raceCfg := race.DefaultConfig()
	raceCfg.MaxPlayers = cfg.Race.MaxPlayers
	raceCfg.Countdown = cfg.Race.Countdown
	raceCfg.Grace = cfg.Race.Grace
	raceCfg.NPCTick = cfg.Race.NPCTick
	raceCfg.BackfillMin = cfg.Race.BackfillMin
	raceCfg.BackfillMax = cfg.Race.BackfillMax
	raceCfg.NPCWPMVariance = cfg.Race.NPCWPMVariance
	raceCfg.DefaultWPM = cfg.Race.DefaultWPM

	rewards := reward.NewEngine(reward.DefaultConfig())
	directory := race.NewDirectory(raceCfg, promptSvc, rewards, store, notifier, logger)

	wsHub := ws.NewHub(logger)
	raceHandler := race.NewHandler(directory, wsHub, store, raceCfg, logger)
	raceUpgrader := race.NewWSUpgrader(raceHandler, logger)
	raceHTTP := race.NewHTTPHandler(directory, logger)
	lbHTTP := leaderboard.NewHTTPHandler(leaderboardSvc, logger)

	npcTicker := race.NewTicker(directory, raceCfg.NPCTick, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, server.Handlers{
		RaceWS:         raceUpgrader.HandleWebSocket,
		CreateRoom:     raceHTTP.CreateRoom,
		GetRoom:        raceHTTP.GetRoom,
		LeaderboardGet: lbHTTP.HandleGet,
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		npcTicker: npcTicker,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.npcTicker.Run()

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.npcTicker.Stop()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
