// internal/models/player.go
package models

// Role is the logical seat a connection occupies inside a lobby. It is derived
// from join order and never stored against the connection itself.
type Role string

const (
	PlayerOne Role = "P1"
	PlayerTwo Role = "P2"
	// Neutral is a sentinel seat used by the game client for unowned units.
	// The relay never assigns it to a connection.
	Neutral Role = "NEUTRAL"
)

// Next returns the role whose turn follows r. The result is always a seat,
// even for Neutral or an empty role.
func (r Role) Next() Role {
	if r == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// IsSeat reports whether r is one of the two playable roles.
func (r Role) IsSeat() bool {
	return r == PlayerOne || r == PlayerTwo
}

// ParseRole maps the wire form of a role onto a seat. Neutral and unknown
// values are refused.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case PlayerOne:
		return PlayerOne, true
	case PlayerTwo:
		return PlayerTwo, true
	default:
		return "", false
	}
}
