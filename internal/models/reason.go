// internal/models/reason.go
package models

// Reason is the machine-readable code attached to every rejection.
type Reason string

const (
	ReasonInvalidPayload      Reason = "INVALID_PAYLOAD"
	ReasonUnsupportedAction   Reason = "UNSUPPORTED_ACTION"
	ReasonRoomNotFound        Reason = "ROOM_NOT_FOUND"
	ReasonNotInRoom           Reason = "NOT_IN_ROOM"
	ReasonGameNotStarted      Reason = "GAME_NOT_STARTED"
	ReasonNotStateAuthority   Reason = "NOT_STATE_AUTHORITY"
	ReasonInvalidStatePayload Reason = "INVALID_STATE_PAYLOAD"
	ReasonPlayerIDUnresolved  Reason = "PLAYER_ID_UNRESOLVED"
	ReasonNotYourTurn         Reason = "NOT_YOUR_TURN"
	ReasonPlayerMismatch      Reason = "PLAYER_MISMATCH"
	ReasonLobbyNotFoundOrFull Reason = "LOBBY_NOT_FOUND_OR_FULL"
)

// CommandRejected is the direct reply to a sender whose request failed a check.
type CommandRejected struct {
	Action string `json:"action"`
	Reason Reason `json:"reason"`
}
