package race

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	wsx "github.com/velotype/typerace/pkg/http/ws"
)

func newTestHandler() (*Handler, *Directory, *wsx.Hub) {
	d := testDirectory(testConfig())
	hub := wsx.NewHub(zerolog.New(io.Discard))
	h := NewHandler(d, hub, nil, testConfig(), zerolog.New(io.Discard))
	return h, d, hub
}

func dial(hub *wsx.Hub, playerID string) *wsx.Connection {
	conn := wsx.NewConnection(nil, zerolog.New(io.Discard))
	hub.Register(playerID, conn)
	return conn
}

func TestReconnectSurvivesOldSocketTeardown(t *testing.T) {
	h, d, hub := newTestHandler()
	ctx := context.Background()

	first := dial(hub, "alice")
	assert.NoError(t, h.handleMessage(ctx, "alice", "Alice", wsx.NewMessage(wsx.TypeJoinRace, wsx.JoinRacePayload{Mode: ModeOpen})))
	_, inRace := d.Registry().SessionFor("alice")
	assert.True(t, inRace)

	// Reconnect: the new socket replaces the old one, which then unwinds its
	// read loop and runs teardown.
	second := dial(hub, "alice")
	h.teardownConnection("alice", first)

	_, inRace = d.Registry().SessionFor("alice")
	assert.True(t, inRace, "reconnect must not evict the player from their race")
	current, ok := hub.Connection("alice")
	assert.True(t, ok)
	assert.Same(t, second, current)
	assert.True(t, second.Open())
}

func TestDisconnectTeardownLeavesRace(t *testing.T) {
	h, d, hub := newTestHandler()
	ctx := context.Background()

	conn := dial(hub, "bob")
	assert.NoError(t, h.handleMessage(ctx, "bob", "Bob", wsx.NewMessage(wsx.TypeJoinRace, wsx.JoinRacePayload{Mode: ModeOpen})))

	h.teardownConnection("bob", conn)

	_, inRace := d.Registry().SessionFor("bob")
	assert.False(t, inRace)
	_, ok := hub.Connection("bob")
	assert.False(t, ok)
}

func TestResetRaceMessageRearmsFinishedRoom(t *testing.T) {
	h, d, hub := newTestHandler()
	ctx := context.Background()
	dial(hub, "host")
	dial(hub, "p2")

	s := d.CreatePrivate(RoomSpec{HostID: "host"})
	join := wsx.NewMessage(wsx.TypeJoinRoom, wsx.JoinRoomPayload{RoomCode: s.ID})
	assert.NoError(t, h.handleMessage(ctx, "host", "Host", join))
	assert.NoError(t, h.handleMessage(ctx, "p2", "P2", join))

	startRacing(t, s, "host")
	assert.NoError(t, s.Finish("host", 60, 99))
	assert.NoError(t, s.Finish("p2", 55, 98))
	assert.Equal(t, StateFinished, s.Status())

	// Only the host may rearm the room.
	assert.NoError(t, h.handleMessage(ctx, "p2", "P2", wsx.NewMessage(wsx.TypeResetRace, nil)))
	assert.Equal(t, StateFinished, s.Status())

	assert.NoError(t, h.handleMessage(ctx, "host", "Host", wsx.NewMessage(wsx.TypeResetRace, nil)))
	assert.Equal(t, StateWaitingForPlayers, s.Status())
	assert.Nil(t, s.Results())
}

func TestJoinVenueMessage(t *testing.T) {
	h, d, hub := newTestHandler()
	ctx := context.Background()

	dial(hub, "alice")
	assert.NoError(t, h.handleMessage(ctx, "alice", "Alice", wsx.NewMessage(wsx.TypeJoinVenue, wsx.JoinVenuePayload{VenueID: "cafe-17"})))

	s, inRace := d.Registry().SessionFor("alice")
	assert.True(t, inRace)
	assert.Equal(t, "cafe-17", s.ID)
	assert.Equal(t, ModeVenue, s.Mode)
	assert.Equal(t, "alice", s.HostID(), "first human in the venue hosts it")

	dial(hub, "bob")
	assert.NoError(t, h.handleMessage(ctx, "bob", "Bob", wsx.NewMessage(wsx.TypeJoinVenue, wsx.JoinVenuePayload{VenueID: "cafe-17"})))
	s2, inRace := d.Registry().SessionFor("bob")
	assert.True(t, inRace)
	assert.Same(t, s, s2)

	// A blank venue ID is rejected before any session is touched.
	dial(hub, "carol")
	assert.NoError(t, h.handleMessage(ctx, "carol", "Carol", wsx.NewMessage(wsx.TypeJoinVenue, wsx.JoinVenuePayload{})))
	_, inRace = d.Registry().SessionFor("carol")
	assert.False(t, inRace)
}
