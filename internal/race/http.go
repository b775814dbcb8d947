package race

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	httperrors "github.com/velotype/typerace/pkg/http/errors"
)

// HTTPHandler exposes the REST surface for rooms: creation for clients that
// set up a room before opening a socket, and snapshots for lobby pages.
type HTTPHandler struct {
	directory *Directory
	logger    zerolog.Logger
}

// NewHTTPHandler creates the room HTTP handler.
func NewHTTPHandler(directory *Directory, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		directory: directory,
		logger:    logger.With().Str("component", "race_http").Logger(),
	}
}

type createRoomRequest struct {
	HostID     string `json:"host_id"`
	Prompt     string `json:"prompt,omitempty"`
	Theme      string `json:"theme,omitempty"`
	MaxPlayers int    `json:"max_players,omitempty"`
}

type createRoomResponse struct {
	RoomCode   string `json:"room_code"`
	HostID     string `json:"host_id"`
	MaxPlayers int    `json:"max_players"`
}

// CreateRoom handles POST /v1/rooms.
func (h *HTTPHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	if req.HostID == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "host_id is required", "host_id")
		return
	}

	s := h.directory.CreatePrivate(RoomSpec{
		HostID:     req.HostID,
		Prompt:     req.Prompt,
		Theme:      req.Theme,
		MaxPlayers: req.MaxPlayers,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createRoomResponse{
		RoomCode:   s.ID,
		HostID:     s.HostID(),
		MaxPlayers: s.MaxPlayers,
	})
}

// GetRoom handles GET /v1/rooms/{code}.
func (h *HTTPHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}

	code := strings.TrimPrefix(r.URL.Path, "/v1/rooms/")
	if code == "" || strings.Contains(code, "/") {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRoomCode, "Room code is required")
		return
	}

	s, exists := h.directory.Get(code)
	if !exists {
		httperrors.RespondNotFound(w, httperrors.ErrCodeRoomNotFound, "Room not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Snapshot())
}
