// internal/lobby/lobby_store.go
package lobby

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMapID is used when neither the request nor the config names a map.
	DefaultMapID = "map_default"

	maxCodeAttempts = 32
)

var (
	ErrLobbyNotFoundOrFull = errors.New("lobby not found or full")
	ErrRoomNotFound        = errors.New("room not found")
	ErrNotInLobby          = errors.New("connection is not seated in this lobby")
	ErrCodeSpaceExhausted  = errors.New("could not allocate a unique room id")
)

// Departure describes what a leave or disconnect did to one lobby.
type Departure struct {
	RoomID    string
	Deleted   bool
	Remaining []string
}

// Store owns the room id to Lobby mapping. It is not safe for concurrent use:
// the relay dispatcher is its only caller and handles one event at a time.
type Store struct {
	lobbies    map[string]*Lobby
	codes      CodeGenerator
	defaultMap string
	logger     *logrus.Logger
}

// Option configures a Store at construction.
type Option func(*Store)

// WithCodeGenerator replaces the room id generator.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *Store) { s.codes = gen }
}

// WithDefaultMap sets the map used when create_lobby names none.
func WithDefaultMap(mapID string) Option {
	return func(s *Store) {
		if mapID != "" {
			s.defaultMap = mapID
		}
	}
}

// NewStore returns an empty store.
func NewStore(logger *logrus.Logger, opts ...Option) *Store {
	s := &Store{
		lobbies:    make(map[string]*Lobby),
		codes:      NanoidCodes(4),
		defaultMap: DefaultMapID,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLobby seats connID alone in a new lobby and makes it the authority.
func (s *Store) CreateLobby(connID, mapID string) (*Lobby, error) {
	roomID, err := s.allocateRoomID()
	if err != nil {
		return nil, err
	}
	if mapID == "" {
		mapID = s.defaultMap
	}

	l := newLobby(roomID, mapID, connID)
	s.lobbies[roomID] = l
	s.logger.WithFields(logrus.Fields{"room": roomID, "conn": connID, "map": mapID}).Info("lobby created")
	return l, nil
}

func (s *Store) allocateRoomID() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		if _, taken := s.lobbies[code]; !taken {
			return code, nil
		}
		s.logger.WithField("room", code).Debug("room id collision, regenerating")
	}
	return "", ErrCodeSpaceExhausted
}

// JoinLobby takes the second seat and starts the match.
func (s *Store) JoinLobby(connID, roomID string) (*Lobby, error) {
	l, ok := s.lobbies[roomID]
	if !ok || l.Full() || l.Has(connID) {
		return nil, ErrLobbyNotFoundOrFull
	}

	l.players = append(l.players, connID)
	l.startMatch()
	s.logger.WithFields(logrus.Fields{"room": roomID, "conn": connID}).Info("lobby started")
	return l, nil
}

// Leave removes connID from one lobby. The lobby is deleted when its roster
// empties, otherwise it is soft-reset for the remaining player.
func (s *Store) Leave(connID, roomID string) (Departure, error) {
	l, ok := s.lobbies[roomID]
	if !ok {
		return Departure{}, ErrRoomNotFound
	}
	if !l.remove(connID) {
		return Departure{}, ErrNotInLobby
	}
	return s.settle(l), nil
}

// Disconnect sweeps every lobby containing connID. A connection without a
// seat yields no departures.
func (s *Store) Disconnect(connID string) []Departure {
	var out []Departure
	for _, l := range s.lobbies {
		if l.remove(connID) {
			out = append(out, s.settle(l))
		}
	}
	return out
}

func (s *Store) settle(l *Lobby) Departure {
	if len(l.players) == 0 {
		delete(s.lobbies, l.roomID)
		s.logger.WithField("room", l.roomID).Info("lobby deleted")
		return Departure{RoomID: l.roomID, Deleted: true}
	}
	l.softReset()
	s.logger.WithFields(logrus.Fields{"room": l.roomID, "authority": l.authority}).Info("lobby reset for remaining player")
	return Departure{RoomID: l.roomID, Remaining: l.Players()}
}

// Get retrieves a lobby by room id.
func (s *Store) Get(roomID string) (*Lobby, bool) {
	l, ok := s.lobbies[roomID]
	return l, ok
}

// LobbyOf finds the lobby connID is seated in.
func (s *Store) LobbyOf(connID string) (*Lobby, bool) {
	for _, l := range s.lobbies {
		if l.Has(connID) {
			return l, true
		}
	}
	return nil, false
}

// Len returns the number of live lobbies.
func (s *Store) Len() int { return len(s.lobbies) }
