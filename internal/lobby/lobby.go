// internal/lobby/lobby.go
package lobby

import (
	"encoding/json"
	"errors"

	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/samber/lo"
)

// MaxPlayers is the seat count of every lobby.
const MaxPlayers = 2

var ErrInvalidTurn = errors.New("turn must be P1 or P2")

// Lobby is the root aggregate of one match. All mutation goes through the
// Store or the methods below; callers never touch the roster directly.
type Lobby struct {
	roomID    string
	mapID     string
	players   []string
	authority string
	turn      models.Role
	started   bool
	gameState json.RawMessage

	selected          map[models.Role]*string
	selectionComplete bool
}

func newLobby(roomID, mapID, creator string) *Lobby {
	return &Lobby{
		roomID:    roomID,
		mapID:     mapID,
		players:   []string{creator},
		authority: creator,
		turn:      models.PlayerOne,
		selected:  emptySelection(),
	}
}

func emptySelection() map[models.Role]*string {
	return map[models.Role]*string{
		models.PlayerOne: nil,
		models.PlayerTwo: nil,
		models.Neutral:   nil,
	}
}

func (l *Lobby) RoomID() string { return l.roomID }

func (l *Lobby) MapID() string { return l.mapID }

// Players returns the roster in join order.
func (l *Lobby) Players() []string { return append([]string(nil), l.players...) }

// Authority is the connection that owns the canonical game state.
func (l *Lobby) Authority() string { return l.authority }

func (l *Lobby) CurrentTurn() models.Role { return l.turn }

func (l *Lobby) Started() bool { return l.started }

// GameState is the last snapshot pushed by the authority, nil before the first sync.
func (l *Lobby) GameState() json.RawMessage { return l.gameState }

// Has reports whether connID holds a seat.
func (l *Lobby) Has(connID string) bool { return lo.Contains(l.players, connID) }

// Full reports whether both seats are taken.
func (l *Lobby) Full() bool { return len(l.players) >= MaxPlayers }

// IsAuthority reports whether connID may publish state syncs.
func (l *Lobby) IsAuthority(connID string) bool {
	return connID != "" && connID == l.authority
}

// Peers returns every seated connection except connID.
func (l *Lobby) Peers(connID string) []string { return lo.Without(l.players, connID) }

// AdvanceTurn hands the turn to the other seat.
func (l *Lobby) AdvanceTurn() (before, after models.Role) {
	before = l.turn
	l.turn = before.Next()
	return before, l.turn
}

// SetTurn overwrites the turn with a value pushed by the authority.
func (l *Lobby) SetTurn(r models.Role) error {
	if !r.IsSeat() {
		return ErrInvalidTurn
	}
	l.turn = r
	return nil
}

// ReplaceGameState stores the authority's full snapshot.
func (l *Lobby) ReplaceGameState(state json.RawMessage) {
	l.gameState = append(json.RawMessage(nil), state...)
}

// startMatch is applied when the second seat fills.
func (l *Lobby) startMatch() {
	l.started = true
	l.turn = models.PlayerOne
	l.gameState = nil
	l.resetSelection()
}

// softReset keeps the room alive for the remaining player after a departure.
func (l *Lobby) softReset() {
	l.authority = l.players[0]
	l.started = false
	l.turn = models.PlayerOne
	l.gameState = nil
	l.resetSelection()
}

func (l *Lobby) resetSelection() {
	l.selected = emptySelection()
	l.selectionComplete = false
}

func (l *Lobby) remove(connID string) bool {
	if !l.Has(connID) {
		return false
	}
	l.players = lo.Without(l.players, connID)
	return true
}
