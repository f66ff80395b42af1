// internal/models/game_action.go
package models

import "encoding/json"

// CommandMeta is stamped on every relayed command by the server.
type CommandMeta struct {
	PlayerID   Role  `json:"playerId"`
	TurnBefore Role  `json:"turnBefore"`
	TurnAfter  Role  `json:"turnAfter"`
	ServerTime int64 `json:"serverTime"`
}

// AuthoritativeCommand is what the gate forwards once a request passes.
type AuthoritativeCommand struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
	Meta   CommandMeta     `json:"meta"`
}

// LegacyGameAction is the unvalidated peer relay kept for older clients.
type LegacyGameAction struct {
	RoomID string          `json:"roomId"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}
