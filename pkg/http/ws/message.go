package ws

import "encoding/json"

// MessageType constants for the WebSocket protocol.
const (
	// Client -> Server
	TypeJoinRace       = "join_race"
	TypeJoinVenue      = "join_venue"
	TypeCreateRoom     = "create_room"
	TypeJoinRoom       = "join_room"
	TypeReadyState     = "ready_state"
	TypeStartRace      = "start_race"
	TypeProgressUpdate = "progress_update"
	TypeLeaveRace      = "leave_race"
	TypeResetRace      = "reset_race"
	TypeRequestState   = "request_state"

	// Server -> Client
	TypeRoomUpdate     = "room_update"
	TypeCountdownTick  = "countdown_tick"
	TypeRaceStarted    = "race_started"
	TypePlayerProgress = "player_progress"
	TypePlayerFinished = "player_finished"
	TypeRaceFinished   = "race_finished"
	TypeError          = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload interface{}) Message {
	msg := Message{Type: msgType}
	msg.Payload, _ = json.Marshal(payload)
	return msg
}

// Client Messages (incoming)

type JoinRacePayload struct {
	Mode string `json:"mode"` // "open" (default) or "human_only"
}

type CreateRoomPayload struct {
	Prompt     string `json:"prompt,omitempty"` // custom prompt; themed fallback if empty
	Theme      string `json:"theme,omitempty"`
	MaxPlayers int    `json:"max_players,omitempty"`
}

type JoinRoomPayload struct {
	RoomCode string `json:"room_code"`
}

type JoinVenuePayload struct {
	VenueID string `json:"venue_id"` // fixed venue identifier, e.g. "cafe-17"
}

type ReadyStatePayload struct {
	Ready bool `json:"ready"`
}

type ProgressUpdatePayload struct {
	Progress float64 `json:"progress"` // percent of prompt typed, 0-100
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
}

// Server Messages (outgoing)

// RoomUpdatePayload carries the full session state so a (re)connecting client
// can resynchronize from a single message.
type RoomUpdatePayload struct {
	RaceID         string       `json:"race_id"`
	Mode           string       `json:"mode"`
	Status         string       `json:"status"`
	HostID         string       `json:"host_id,omitempty"`
	Prompt         string       `json:"prompt,omitempty"` // set once racing
	StartedAt      string       `json:"started_at,omitempty"`
	MaxPlayers     int          `json:"max_players"`
	SlotsRemaining int          `json:"slots_remaining"`
	Racers         []Racer      `json:"racers"`
	Results        []RaceResult `json:"results,omitempty"`
}

type Racer struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	IsNPC       bool    `json:"is_npc"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	WPM         float64 `json:"wpm"`
	Accuracy    float64 `json:"accuracy"`
	Position    int     `json:"position,omitempty"`
}

type CountdownTickPayload struct {
	RaceID  string `json:"race_id"`
	Seconds int    `json:"seconds"`
}

type RaceStartedPayload struct {
	RaceID       string `json:"race_id"`
	Prompt       string `json:"prompt"`
	PromptSource string `json:"prompt_source"`
	StartedAt    string `json:"started_at"`
}

type PlayerProgressPayload struct {
	RaceID   string  `json:"race_id"`
	PlayerID string  `json:"player_id"`
	Progress float64 `json:"progress"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
}

type PlayerFinishedPayload struct {
	RaceID   string  `json:"race_id"`
	PlayerID string  `json:"player_id"`
	Position int     `json:"position"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
}

type RaceFinishedPayload struct {
	RaceID  string       `json:"race_id"`
	Results []RaceResult `json:"results"`
}

type RaceResult struct {
	PlayerID    string  `json:"player_id"`
	DisplayName string  `json:"display_name"`
	Position    int     `json:"position"`
	WPM         float64 `json:"wpm"`
	Accuracy    float64 `json:"accuracy"`
	Experience  int     `json:"experience"`
	Finished    bool    `json:"finished"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
