// internal/lobby/roles.go
package lobby

import (
	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/samber/lo"
)

// ResolveRole maps a connection to its seat by join order: index 0 is
// PlayerOne, index 1 is PlayerTwo. ok is false for connections without a seat.
func ResolveRole(l *Lobby, connID string) (role models.Role, ok bool) {
	if l == nil || connID == "" {
		return "", false
	}
	switch lo.IndexOf(l.players, connID) {
	case 0:
		return models.PlayerOne, true
	case 1:
		return models.PlayerTwo, true
	default:
		return "", false
	}
}
