package ws

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestUnregisterConnectionIgnoresReplacedSocket(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	first := NewConnection(nil, zerolog.New(io.Discard))
	second := NewConnection(nil, zerolog.New(io.Discard))

	hub.Register("alice", first)
	hub.Register("alice", second)
	assert.False(t, first.Open(), "re-register closes the superseded socket")

	// The stale socket's unwind must leave the replacement untouched.
	assert.False(t, hub.UnregisterConnection("alice", first))
	current, ok := hub.Connection("alice")
	assert.True(t, ok)
	assert.Same(t, second, current)
	assert.True(t, second.Open())

	assert.True(t, hub.UnregisterConnection("alice", second))
	_, ok = hub.Connection("alice")
	assert.False(t, ok)
	assert.False(t, second.Open())

	assert.False(t, hub.UnregisterConnection("alice", second))
}
