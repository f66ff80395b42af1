// internal/relay/lobbies.go
package relay

import (
	"encoding/json"
	"errors"

	"github.com/jason-s-yu/tactics-relay/internal/lobby"
	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/sirupsen/logrus"
)

// Departure notices shown to the player left behind.
const (
	departureLeft         = "Opponent left the lobby"
	departureDisconnected = "Opponent disconnected"
)

// decode unmarshals an optional event body. An absent body leaves v untouched.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (d *Dispatcher) createLobby(connID string, data json.RawMessage) {
	var req models.CreateLobbyRequest
	if err := decode(data, &req); err != nil {
		d.sendError(connID, "Invalid create_lobby payload", models.ReasonInvalidPayload)
		return
	}

	d.leaveCurrent(connID, "")
	l, err := d.store.CreateLobby(connID, req.MapID)
	if err != nil {
		d.logger.WithError(err).WithField("conn", connID).Error("create lobby failed")
		d.sendError(connID, "Could not create lobby", "")
		return
	}
	d.syncGauges()

	d.send(connID, models.EventLobbyCreated, models.LobbyCreated{
		RoomID:                l.RoomID(),
		MapID:                 l.MapID(),
		AuthorityConnectionID: l.Authority(),
	})
}

func (d *Dispatcher) joinLobby(connID string, data json.RawMessage) {
	var req models.RoomRequest
	if err := decode(data, &req); err != nil || req.RoomID == "" {
		d.sendError(connID, "Invalid join_lobby payload", models.ReasonInvalidPayload)
		return
	}

	// check before leaving anything behind so a failed join is side-effect free
	if target, ok := d.store.Get(req.RoomID); !ok || target.Full() || target.Has(connID) {
		d.joinFailed(connID, req.RoomID)
		return
	}

	d.leaveCurrent(connID, req.RoomID)
	l, err := d.store.JoinLobby(connID, req.RoomID)
	if err != nil {
		d.joinFailed(connID, req.RoomID)
		return
	}
	if d.metrics != nil {
		d.metrics.MatchesStarted.Inc()
	}
	d.syncGauges()

	d.broadcast(l.Players(), models.EventGameStart, models.GameStart{
		RoomID:                l.RoomID(),
		Players:               l.Players(),
		MapID:                 l.MapID(),
		AuthorityConnectionID: l.Authority(),
	})
}

func (d *Dispatcher) joinFailed(connID, roomID string) {
	if d.metrics != nil {
		d.metrics.CommandsRejected.WithLabelValues(string(models.ReasonLobbyNotFoundOrFull)).Inc()
	}
	d.logger.WithFields(logrus.Fields{"conn": connID, "room": roomID}).Debug("join rejected")
	d.sendError(connID, "Lobby not found or full", models.ReasonLobbyNotFoundOrFull)
}

func (d *Dispatcher) leaveLobby(connID string, data json.RawMessage) {
	var req models.RoomRequest
	if err := decode(data, &req); err != nil || req.RoomID == "" {
		d.sendError(connID, "Invalid leave_lobby payload", models.ReasonInvalidPayload)
		return
	}

	dep, err := d.store.Leave(connID, req.RoomID)
	switch {
	case errors.Is(err, lobby.ErrRoomNotFound):
		d.sendError(connID, "Lobby not found", models.ReasonRoomNotFound)
		return
	case errors.Is(err, lobby.ErrNotInLobby):
		d.sendError(connID, "Not in this lobby", models.ReasonNotInRoom)
		return
	case err != nil:
		d.logger.WithError(err).WithField("conn", connID).Error("leave lobby failed")
		return
	}

	d.notifyDeparture(dep, departureLeft)
	d.syncGauges()
}

// leaveCurrent removes connID from whatever lobby it sits in, unless that
// lobby is keep. A connection is seated in at most one lobby at a time.
func (d *Dispatcher) leaveCurrent(connID, keep string) {
	current, ok := d.store.LobbyOf(connID)
	if !ok || current.RoomID() == keep {
		return
	}
	dep, err := d.store.Leave(connID, current.RoomID())
	if err != nil {
		return
	}
	d.notifyDeparture(dep, departureLeft)
}

func (d *Dispatcher) notifyDeparture(dep lobby.Departure, text string) {
	if dep.Deleted {
		return
	}
	d.broadcast(dep.Remaining, models.EventErrorMessage, models.ErrorMessage{Message: text})
}

func (d *Dispatcher) selectCharacter(connID string, data json.RawMessage) {
	const action = string(models.EventCharacterSelect)

	var req models.CharacterSelectRequest
	if err := decode(data, &req); err != nil || req.RoomID == "" || req.CharID == "" {
		d.reject(connID, action, models.ReasonInvalidPayload)
		return
	}
	l, ok := d.store.Get(req.RoomID)
	if !ok {
		d.reject(connID, action, models.ReasonRoomNotFound)
		return
	}

	sel, err := l.SelectCharacter(connID, req.CharID)
	switch {
	case errors.Is(err, lobby.ErrNotInLobby):
		d.reject(connID, action, models.ReasonNotInRoom)
		return
	case err != nil:
		d.reject(connID, action, models.ReasonInvalidPayload)
		return
	}

	players := l.Players()
	update := models.CharacterSelection{PlayerCharacters: sel.Characters}
	d.broadcast(players, models.EventSelectionUpdate, update)
	if sel.Completed {
		d.logger.WithField("room", l.RoomID()).Info("character selection complete")
		d.broadcast(players, models.EventSelectionComplete, update)
	}
}
