package race

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSUpgrader upgrades HTTP requests to WebSocket connections for the race
// gateway.
type WSUpgrader struct {
	upgrader websocket.Upgrader
	handler  *Handler
	logger   zerolog.Logger
}

// NewWSUpgrader creates the WebSocket upgrade handler.
func NewWSUpgrader(handler *Handler, logger zerolog.Logger) *WSUpgrader {
	return &WSUpgrader{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin enforcement belongs to the fronting proxy.
				return true
			},
		},
		handler: handler,
		logger:  logger.With().Str("component", "ws_upgrader").Logger(),
	}
}

// HandleWebSocket upgrades the request and hands the socket to the race
// handler. Identity comes from query parameters; anonymous connections get a
// generated ID so spectating and quick play work without an account.
func (u *WSUpgrader) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = uuid.NewString()
	}
	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = "Guest-" + playerID[:8]
	}

	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		u.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	u.logger.Info().Str("player_id", playerID).Msg("websocket connected")
	u.handler.HandleConnection(conn, playerID, displayName)
	u.logger.Info().Str("player_id", playerID).Msg("websocket disconnected")
}
