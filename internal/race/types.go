package race

import (
	"context"
	"errors"
	"time"

	wsx "github.com/velotype/typerace/pkg/http/ws"

	"github.com/velotype/typerace/internal/race/reward"
)

// Race modes.
const (
	ModeOpen      = "open"       // open matchmaking, NPC backfill
	ModeHumanOnly = "human_only" // open matchmaking, humans only
	ModePrivate   = "private"    // hosted room with a code
	ModeVenue     = "venue"      // persistent hosted room with a fixed ID
)

// Session lifecycle states.
const (
	StateWaitingForPlayers = "waiting_for_players"
	StateCountdown         = "countdown"
	StateRacing            = "racing"
	StateFinished          = "finished"
)

// Participant statuses within a session.
const (
	PlayerWaiting  = "waiting"
	PlayerReady    = "ready"
	PlayerTyping   = "typing"
	PlayerFinished = "finished"
)

// NPC difficulty tags.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
	DifficultyInsane Difficulty = "insane"
)

// Validation rejections. These are expected outcomes, not failures; callers
// translate them into user-facing messages.
var (
	ErrNotFound         = errors.New("participant not found")
	ErrRaceNotFound     = errors.New("race not found")
	ErrRaceFull         = errors.New("race is full")
	ErrRaceInProgress   = errors.New("race already in progress")
	ErrNotHost          = errors.New("only the host can start the race")
	ErrNotEnoughPlayers = errors.New("not enough players to start the race")
	ErrAlreadyStarted   = errors.New("race already started")
	ErrNotRacing        = errors.New("race is not in progress")
)

// Sender is the opaque send-capable handle a participant's connection
// exposes. The session never manages the socket's lifecycle.
type Sender interface {
	Send(msg wsx.Message) error
}

// Participant is one racer in a session, exclusively owned by the session
// that admitted it.
type Participant struct {
	ID          string
	DisplayName string
	Difficulty  Difficulty // NPCs only
	TargetWPM   float64    // NPCs only
	MinAccuracy float64    // NPCs only
	Consistency float64    // NPCs only; sets the per-tick speed jitter band
	Status      string
	Progress    float64 // 0-100
	WPM         float64
	Accuracy    float64 // 0-100
	FinishPos   int     // 0 until finished
	FinishedAt  *time.Time
	JoinedAt    time.Time
	Conn        Sender // nil for NPCs
}

// IsNPC reports whether the participant is simulated.
func (p *Participant) IsNPC() bool {
	return p.Difficulty != ""
}

// Result is a finalized finish record produced by the reward engine.
type Result = reward.Result

// Profile is the stored identity of a human participant.
type Profile struct {
	ID           string
	DisplayName  string
	ReferenceWPM float64
	Experience   int
}

// Store is the persistence collaborator. All methods are fallible I/O; the
// race core logs failures and continues, because the authoritative race
// state is always the in-memory session.
type Store interface {
	ParticipantProfile(ctx context.Context, id string) (*Profile, error)
	RecordRaceResult(ctx context.Context, raceID string, res Result) error
	CreditExperience(ctx context.Context, participantID string, amount int) error
}

// CompletionSummary describes a finished race for outbound notifications.
type CompletionSummary struct {
	RaceID  string
	Mode    string
	Prompt  string
	Results []Result
}

// Notifier posts race completions to an external channel, fire-and-forget.
type Notifier interface {
	PostRaceCompletion(summary CompletionSummary)
}

// PromptSource supplies the text participants must type.
type PromptSource interface {
	Next(theme string) (text, source string)
}

// Config groups the session coordination tunables.
type Config struct {
	MaxPlayers     int
	Countdown      time.Duration
	CountdownTicks int // countdown_tick messages emitted over Countdown
	Grace          time.Duration
	NPCTick        time.Duration
	BackfillMin    int // NPC backfill targets BackfillMin..BackfillMax total racers
	BackfillMax    int
	NPCWPMVariance float64
	DefaultWPM     float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:     8,
		Countdown:      3 * time.Second,
		CountdownTicks: 3,
		Grace:          5 * time.Second,
		NPCTick:        100 * time.Millisecond,
		BackfillMin:    6,
		BackfillMax:    8,
		NPCWPMVariance: 12,
		DefaultWPM:     40,
	}
}

// RoomSpec describes a private room to create.
type RoomSpec struct {
	HostID     string
	Prompt     string // custom prompt; fixed at creation, never overwritten
	Theme      string // fallback passage theme when Prompt is empty
	MaxPlayers int
}
