package race

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/velotype/typerace/pkg/http/errors"
	wsx "github.com/velotype/typerace/pkg/http/ws"
)

// Handler manages WebSocket connections and routes race-related messages.
type Handler struct {
	directory *Directory
	hub       *wsx.Hub
	store     Store
	cfg       Config
	logger    zerolog.Logger
}

// NewHandler creates the race WebSocket handler.
func NewHandler(directory *Directory, hub *wsx.Hub, store Store, cfg Config, logger zerolog.Logger) *Handler {
	return &Handler{
		directory: directory,
		hub:       hub,
		store:     store,
		cfg:       cfg,
		logger:    logger.With().Str("component", "race_handler").Logger(),
	}
}

// HandleConnection runs the read loop for a player's socket and cleans up the
// registry entry on disconnect.
func (h *Handler) HandleConnection(conn *websocket.Conn, playerID, displayName string) {
	wsConn := wsx.NewConnection(conn, h.logger)
	h.hub.Register(playerID, wsConn)

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg wsx.Message) error {
		return h.handleMessage(context.Background(), playerID, displayName, msg)
	})

	h.teardownConnection(playerID, wsConn)
}

// teardownConnection runs on disconnect: drop the socket and leave whatever
// race the player is in. A reconnect under the same player ID replaces the
// hub entry and unwinds the superseded read loop, so the teardown only acts
// when this socket is still the registered one.
func (h *Handler) teardownConnection(playerID string, wsConn *wsx.Connection) {
	if !h.hub.UnregisterConnection(playerID, wsConn) {
		return
	}
	if err := h.directory.Registry().Remove(playerID); err != nil && !errors.Is(err, ErrNotFound) {
		h.logger.Warn().Err(err).Str("player_id", playerID).Msg("cleanup on disconnect failed")
	}
}

func (h *Handler) handleMessage(ctx context.Context, playerID, displayName string, msg wsx.Message) error {
	switch msg.Type {
	case wsx.TypeJoinRace:
		return h.handleJoinRace(ctx, playerID, displayName, msg.Payload)
	case wsx.TypeJoinVenue:
		return h.handleJoinVenue(ctx, playerID, displayName, msg.Payload)
	case wsx.TypeCreateRoom:
		return h.handleCreateRoom(ctx, playerID, displayName, msg.Payload)
	case wsx.TypeJoinRoom:
		return h.handleJoinRoom(ctx, playerID, displayName, msg.Payload)
	case wsx.TypeReadyState:
		return h.handleReadyState(playerID, msg.Payload)
	case wsx.TypeStartRace:
		return h.handleStartRace(playerID)
	case wsx.TypeProgressUpdate:
		return h.handleProgressUpdate(playerID, msg.Payload)
	case wsx.TypeLeaveRace:
		return h.handleLeaveRace(playerID)
	case wsx.TypeResetRace:
		return h.handleResetRace(playerID)
	case wsx.TypeRequestState:
		return h.handleRequestState(playerID)
	default:
		return h.sendError(playerID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleJoinRace(ctx context.Context, playerID, displayName string, payload json.RawMessage) error {
	var req wsx.JoinRacePayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Invalid join_race payload")
		}
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeOpen
	}
	if mode != ModeOpen && mode != ModeHumanOnly {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Unknown race mode")
	}

	p := h.participantFor(ctx, playerID, displayName)
	referenceWPM := h.referenceWPM(ctx, playerID)

	if _, err := h.directory.FindOrCreateThenAdmit(mode, referenceWPM, p); err != nil {
		return h.rejectJoin(playerID, err)
	}
	return nil
}

func (h *Handler) handleJoinVenue(ctx context.Context, playerID, displayName string, payload json.RawMessage) error {
	var req wsx.JoinVenuePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Invalid join_venue payload")
	}
	if req.VenueID == "" {
		return h.sendError(playerID, httperrors.ErrCodeMissingField, "Venue ID is required")
	}

	v := h.directory.Venue(req.VenueID)
	p := h.participantFor(ctx, playerID, displayName)
	if _, err := h.directory.AdmitToSession(v.ID, p); err != nil {
		return h.rejectJoin(playerID, err)
	}
	return nil
}

func (h *Handler) handleCreateRoom(ctx context.Context, playerID, displayName string, payload json.RawMessage) error {
	var req wsx.CreateRoomPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Invalid create_room payload")
		}
	}

	s := h.directory.CreatePrivate(RoomSpec{
		HostID:     playerID,
		Prompt:     req.Prompt,
		Theme:      req.Theme,
		MaxPlayers: req.MaxPlayers,
	})

	// Creation does not auto-admit; the creator joins through the normal
	// path like everyone else.
	p := h.participantFor(ctx, playerID, displayName)
	if _, err := h.directory.AdmitToSession(s.ID, p); err != nil {
		return h.rejectJoin(playerID, err)
	}
	return nil
}

func (h *Handler) handleJoinRoom(ctx context.Context, playerID, displayName string, payload json.RawMessage) error {
	var req wsx.JoinRoomPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Invalid join_room payload")
	}
	if req.RoomCode == "" {
		return h.sendError(playerID, httperrors.ErrCodeInvalidRoomCode, "Room code is required")
	}

	p := h.participantFor(ctx, playerID, displayName)
	if _, err := h.directory.AdmitToSession(req.RoomCode, p); err != nil {
		if errors.Is(err, ErrRaceNotFound) {
			return h.sendError(playerID, httperrors.ErrCodeRoomNotFound, "Room not found")
		}
		return h.rejectJoin(playerID, err)
	}
	return nil
}

func (h *Handler) handleReadyState(playerID string, payload json.RawMessage) error {
	var req wsx.ReadyStatePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Invalid ready_state payload")
	}

	if err := h.directory.Registry().SetReady(playerID, req.Ready); err != nil {
		if errors.Is(err, ErrNotFound) {
			return h.sendError(playerID, httperrors.ErrCodeNotFound, "You are not in a race")
		}
		return h.sendError(playerID, httperrors.ErrCodeRaceInProgress, "Race already in progress")
	}
	return nil
}

func (h *Handler) handleStartRace(playerID string) error {
	s, exists := h.directory.Registry().SessionFor(playerID)
	if !exists {
		return h.sendError(playerID, httperrors.ErrCodeNotFound, "You are not in a race")
	}

	if err := s.Start(playerID); err != nil {
		switch {
		case errors.Is(err, ErrNotHost):
			return h.sendError(playerID, httperrors.ErrCodeNotHost, "Only the host can start the race")
		case errors.Is(err, ErrNotEnoughPlayers):
			return h.sendError(playerID, httperrors.ErrCodeNotEnoughPlayers, "Not enough players to start the race")
		case errors.Is(err, ErrAlreadyStarted):
			return h.sendError(playerID, httperrors.ErrCodeStartFailed, "Race already started")
		default:
			return h.sendError(playerID, httperrors.ErrCodeStartFailed, err.Error())
		}
	}
	return nil
}

func (h *Handler) handleProgressUpdate(playerID string, payload json.RawMessage) error {
	var req wsx.ProgressUpdatePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(playerID, httperrors.ErrCodeInvalidPayload, "Invalid progress_update payload")
	}

	err := h.directory.Registry().UpdateProgress(playerID, req.Progress, req.WPM, req.Accuracy)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		// Unknown participant referenced in an update: ignore and log.
		h.logger.Debug().Str("player_id", playerID).Msg("progress update for unknown participant")
		return nil
	case errors.Is(err, ErrNotRacing):
		return h.sendError(playerID, httperrors.ErrCodeNotRacing, "Race is not in progress")
	default:
		return h.sendError(playerID, httperrors.ErrCodeProgressRejected, err.Error())
	}
}

func (h *Handler) handleLeaveRace(playerID string) error {
	if err := h.directory.Registry().Remove(playerID); err != nil && !errors.Is(err, ErrNotFound) {
		return h.sendError(playerID, httperrors.ErrCodeInternalError, err.Error())
	}
	return nil
}

func (h *Handler) handleResetRace(playerID string) error {
	s, exists := h.directory.Registry().SessionFor(playerID)
	if !exists {
		return h.sendError(playerID, httperrors.ErrCodeNotFound, "You are not in a race")
	}

	if err := s.ResetBy(playerID); err != nil {
		switch {
		case errors.Is(err, ErrNotHost):
			return h.sendError(playerID, httperrors.ErrCodeNotHost, "Only the host can reset the race")
		case errors.Is(err, ErrRaceInProgress):
			return h.sendError(playerID, httperrors.ErrCodeRaceInProgress, "Cannot reset while the race is running")
		default:
			return h.sendError(playerID, httperrors.ErrCodeInternalError, err.Error())
		}
	}
	return nil
}

func (h *Handler) handleRequestState(playerID string) error {
	s, exists := h.directory.Registry().SessionFor(playerID)
	if !exists {
		return h.sendError(playerID, httperrors.ErrCodeNotFound, "You are not in a race")
	}
	conn, ok := h.hub.Connection(playerID)
	if !ok {
		return wsx.ErrConnectionNotFound
	}
	return s.SendState(conn)
}

// participantFor builds a human participant, preferring the stored profile's
// display name. Profile lookup failures degrade to the connection-supplied
// name; they never block a join.
func (h *Handler) participantFor(ctx context.Context, playerID, displayName string) *Participant {
	name := displayName
	if h.store != nil {
		if profile, err := h.store.ParticipantProfile(ctx, playerID); err != nil {
			h.logger.Warn().Err(err).Str("player_id", playerID).Msg("profile lookup failed")
		} else if profile != nil && profile.DisplayName != "" {
			name = profile.DisplayName
		}
	}
	conn, _ := h.hub.Connection(playerID)
	p := &Participant{
		ID:          playerID,
		DisplayName: name,
	}
	if conn != nil {
		p.Conn = conn
	}
	return p
}

func (h *Handler) referenceWPM(ctx context.Context, playerID string) float64 {
	if h.store != nil {
		if profile, err := h.store.ParticipantProfile(ctx, playerID); err == nil && profile != nil && profile.ReferenceWPM > 0 {
			return profile.ReferenceWPM
		}
	}
	return h.cfg.DefaultWPM
}

func (h *Handler) rejectJoin(playerID string, err error) error {
	switch {
	case errors.Is(err, ErrRaceFull):
		return h.sendError(playerID, httperrors.ErrCodeRaceFull, "Room is full")
	case errors.Is(err, ErrRaceInProgress):
		return h.sendError(playerID, httperrors.ErrCodeRaceInProgress, "Race already in progress")
	default:
		return h.sendError(playerID, httperrors.ErrCodeJoinFailed, err.Error())
	}
}

func (h *Handler) sendError(playerID, code, message string) error {
	return h.hub.SendToPlayer(playerID, wsx.NewMessage(wsx.TypeError, wsx.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
