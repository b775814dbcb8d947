package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Supported leaderboard windows.
const (
	WindowDaily   = "daily"
	WindowWeekly  = "weekly"
	WindowMonthly = "monthly"
	WindowAllTime = "all_time"
)

var defaultWindows = []string{WindowDaily, WindowWeekly, WindowMonthly, WindowAllTime}

// Entry represents a leaderboard record sent to clients.
type Entry struct {
	PlayerID    string  `json:"player_id"`
	DisplayName string  `json:"display_name"`
	Experience  int     `json:"experience"`
	Wins        int     `json:"wins"`
	Races       int     `json:"races"`
	AverageWPM  float64 `json:"average_wpm"`
	wpmTotal    float64
}

// RecordRequest captures one player's finished race for aggregation.
type RecordRequest struct {
	PlayerID    string
	DisplayName string
	Experience  int
	WPM         float64
	Won         bool
	Windows     []string
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	Windows        []string
	EntryTTL       time.Duration
	RedisKeyPrefix string
}

// Service manages experience leaderboards in Redis. Each window is a sorted
// set scored by experience, with a per-player metadata hash alongside.
type Service struct {
	redis    *redis.Client
	logger   zerolog.Logger
	topN     int
	windows  []string
	entryTTL time.Duration
	prefix   string
}

// NewService constructs a leaderboard service instance.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	windows := opts.Windows
	if len(windows) == 0 {
		windows = defaultWindows
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}

	return &Service{
		redis:    redis,
		logger:   logger.With().Str("component", "leaderboard").Logger(),
		topN:     topN,
		windows:  windows,
		entryTTL: opts.EntryTTL,
		prefix:   prefix,
	}
}

// Record folds a finished race into every applicable window.
func (s *Service) Record(ctx context.Context, req RecordRequest) error {
	windows := req.Windows
	if len(windows) == 0 {
		windows = s.windows
	}

	for _, window := range windows {
		if err := s.updateWindow(ctx, window, req); err != nil {
			return err
		}
	}
	return nil
}

// Top retrieves the top N entries for a given window.
func (s *Service) Top(ctx context.Context, window string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	zKey := s.leaderboardKey(window)
	results, err := s.redis.ZRevRangeWithScores(ctx, zKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		meta, err := s.readMeta(ctx, window, z.Member.(string))
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard metadata")
			continue
		}
		meta.Experience = int(z.Score)
		entries = append(entries, *meta)
	}
	return entries, nil
}

// Rank reports a player's 1-based position in a window, 0 when absent.
func (s *Service) Rank(ctx context.Context, window, playerID string) (int, error) {
	rank, err := s.redis.ZRevRank(ctx, s.leaderboardKey(window), playerID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetch rank: %w", err)
	}
	return int(rank) + 1, nil
}

func (s *Service) updateWindow(ctx context.Context, window string, req RecordRequest) error {
	zKey := s.leaderboardKey(window)
	metaKey := s.metaKey(window, req.PlayerID)

	pipe := s.redis.TxPipeline()
	pipe.ZIncrBy(ctx, zKey, float64(req.Experience), req.PlayerID)
	pipe.HIncrBy(ctx, metaKey, "wins", int64(boolToInt(req.Won)))
	pipe.HIncrBy(ctx, metaKey, "races", 1)
	pipe.HIncrByFloat(ctx, metaKey, "wpm_total", req.WPM)
	pipe.HSet(ctx, metaKey, map[string]interface{}{
		"display_name": req.DisplayName,
	})
	if s.entryTTL > 0 && window != WindowAllTime {
		pipe.Expire(ctx, zKey, s.entryTTL)
		pipe.Expire(ctx, metaKey, s.entryTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update leaderboard window %s: %w", window, err)
	}
	return nil
}

func (s *Service) readMeta(ctx context.Context, window, playerID string) (*Entry, error) {
	data, err := s.redis.HGetAll(ctx, s.metaKey(window, playerID)).Result()
	if err != nil {
		return nil, err
	}

	entry := &Entry{PlayerID: playerID}
	if len(data) == 0 {
		return entry, nil
	}

	entry.DisplayName = data["display_name"]
	entry.Wins = parseInt(data["wins"])
	entry.Races = parseInt(data["races"])
	entry.wpmTotal = parseFloat(data["wpm_total"])
	if entry.Races > 0 {
		entry.AverageWPM = entry.wpmTotal / float64(entry.Races)
	}
	return entry, nil
}

func (s *Service) leaderboardKey(window string) string {
	return fmt.Sprintf("%s:%s", s.prefix, window)
}

func (s *Service) metaKey(window, playerID string) string {
	return fmt.Sprintf("%s:%s:meta:%s", s.prefix, window, playerID)
}

// ValidWindow reports whether the window name is served.
func (s *Service) ValidWindow(window string) bool {
	for _, w := range s.windows {
		if w == window {
			return true
		}
	}
	return false
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseFloat(val string) float64 {
	if val == "" {
		return 0
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
