// internal/lobby/selection.go
package lobby

import (
	"errors"

	"github.com/jason-s-yu/tactics-relay/internal/models"
)

var ErrEmptyCharacter = errors.New("character id must not be empty")

// Selection is the outcome of a single character pick.
type Selection struct {
	Characters map[models.Role]*string
	// Completed is true only for the pick that gave every seated role a selection.
	Completed bool
}

// SelectCharacter records charID under the sender's role. It is gated on
// membership only, not on the turn or the started flag.
func (l *Lobby) SelectCharacter(connID, charID string) (Selection, error) {
	if charID == "" {
		return Selection{}, ErrEmptyCharacter
	}
	role, ok := ResolveRole(l, connID)
	if !ok {
		return Selection{}, ErrNotInLobby
	}

	pick := charID
	l.selected[role] = &pick

	completed := false
	if !l.selectionComplete && l.allSeatsSelected() {
		l.selectionComplete = true
		completed = true
	}
	return Selection{Characters: l.Selections(), Completed: completed}, nil
}

// Selections returns a copy of the pick map including the Neutral sentinel.
func (l *Lobby) Selections() map[models.Role]*string {
	out := make(map[models.Role]*string, len(l.selected))
	for role, pick := range l.selected {
		if pick == nil {
			out[role] = nil
			continue
		}
		v := *pick
		out[role] = &v
	}
	return out
}

func (l *Lobby) allSeatsSelected() bool {
	for _, connID := range l.players {
		role, ok := ResolveRole(l, connID)
		if !ok || l.selected[role] == nil {
			return false
		}
	}
	return len(l.players) > 0
}
