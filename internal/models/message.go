// internal/models/message.go
package models

import "encoding/json"

// EventType names a frame on the WebSocket. The same envelope is used in both directions.
type EventType string

// Inbound events.
const (
	EventCreateLobby      EventType = "create_lobby"
	EventJoinLobby        EventType = "join_lobby"
	EventLeaveLobby       EventType = "leave_lobby"
	EventCharacterSelect  EventType = "character_select"
	EventCommandRequest   EventType = "authoritative_command_request"
	EventLegacyGameAction EventType = "game_action"
	EventPing             EventType = "ping"
)

// Outbound events.
const (
	EventConnected         EventType = "connected"
	EventLobbyCreated      EventType = "lobby_created"
	EventGameStart         EventType = "game_start"
	EventErrorMessage      EventType = "error_message"
	EventSelectionUpdate   EventType = "character_selection_update"
	EventSelectionComplete EventType = "character_selection_complete"
	EventAuthoritative     EventType = "authoritative_command"
	EventCommandRejected   EventType = "command_rejected"
	EventPong              EventType = "pong"
)

// Envelope is the frame every client message is wrapped in:
//
//	{
//	  "type": "join_lobby",
//	  "data": {"roomId": "AB12"}
//	}
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound frame before encoding. Data is marshaled as-is.
type Message struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Connected greets a fresh socket with its own identity.
type Connected struct {
	ConnectionID string `json:"connectionId"`
}

// ErrorMessage is a human-readable notice. Code is set when the notice maps onto a reason.
type ErrorMessage struct {
	Message string `json:"message"`
	Code    Reason `json:"code,omitempty"`
}
