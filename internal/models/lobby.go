// internal/models/lobby.go
package models

// CreateLobbyRequest is the body of create_lobby. MapID falls back to the configured default.
type CreateLobbyRequest struct {
	MapID string `json:"mapId,omitempty"`
}

// RoomRequest is the body of join_lobby and leave_lobby.
type RoomRequest struct {
	RoomID string `json:"roomId"`
}

// CharacterSelectRequest is the body of character_select.
type CharacterSelectRequest struct {
	RoomID string `json:"roomId"`
	CharID string `json:"charId"`
}

// LobbyCreated is replied to the creator only.
type LobbyCreated struct {
	RoomID                string `json:"roomId"`
	MapID                 string `json:"mapId"`
	AuthorityConnectionID string `json:"authorityConnectionId"`
}

// GameStart is broadcast to both participants when the second seat fills.
type GameStart struct {
	RoomID                string   `json:"roomId"`
	Players               []string `json:"players"`
	MapID                 string   `json:"mapId"`
	AuthorityConnectionID string   `json:"authorityConnectionId"`
}

// CharacterSelection carries the full pick map. A nil entry means no pick yet.
type CharacterSelection struct {
	PlayerCharacters map[Role]*string `json:"playerCharacters"`
}
