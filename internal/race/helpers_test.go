package race

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/velotype/typerace/internal/race/reward"
	wsx "github.com/velotype/typerace/pkg/http/ws"
)

const testPrompt = "the quick brown fox jumps over the lazy dog near the riverbank"

type stubSender struct {
	mu       sync.Mutex
	messages []wsx.Message
}

func (s *stubSender) Send(msg wsx.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *stubSender) count(msgType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func (s *stubSender) last(msgType string) (wsx.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Type == msgType {
			return s.messages[i], true
		}
	}
	return wsx.Message{}, false
}

func decodePayload[T any](msg wsx.Message) T {
	var out T
	_ = json.Unmarshal(msg.Payload, &out)
	return out
}

type stubPrompts struct {
	text string
}

func (s stubPrompts) Next(theme string) (string, string) {
	if s.text != "" {
		return s.text, "builtin"
	}
	return testPrompt, "builtin"
}

type stubNotifier struct {
	mu        sync.Mutex
	summaries []CompletionSummary
}

func (n *stubNotifier) PostRaceCompletion(summary CompletionSummary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
}

func (n *stubNotifier) received() []CompletionSummary {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]CompletionSummary, len(n.summaries))
	copy(out, n.summaries)
	return out
}

func testConfig() Config {
	return Config{
		MaxPlayers:     8,
		Countdown:      30 * time.Millisecond,
		CountdownTicks: 3,
		Grace:          40 * time.Millisecond,
		NPCTick:        5 * time.Millisecond,
		BackfillMin:    6,
		BackfillMax:    8,
		NPCWPMVariance: 12,
		DefaultWPM:     40,
	}
}

func testDirectory(cfg Config) *Directory {
	return NewDirectory(cfg, stubPrompts{}, reward.NewEngine(reward.DefaultConfig()), nil, nil, zerolog.New(io.Discard))
}

func human(id string) (*Participant, *stubSender) {
	conn := &stubSender{}
	return &Participant{
		ID:          id,
		DisplayName: "Player " + id,
		Conn:        conn,
	}, conn
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
