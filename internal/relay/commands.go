// internal/relay/commands.go
package relay

import (
	"encoding/json"

	"github.com/jason-s-yu/tactics-relay/internal/journal"
	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

func (d *Dispatcher) authoritativeCommand(connID string, data json.RawMessage) {
	v := d.gate.Authorize(d.store, connID, data)
	if !v.Accepted() {
		d.reject(connID, v.Action, v.Reason)
		return
	}

	if d.metrics != nil {
		d.metrics.CommandsAccepted.WithLabelValues(v.Action).Inc()
	}
	d.logger.WithFields(logrus.Fields{
		"conn":   connID,
		"room":   v.RoomID,
		"action": v.Action,
		"turn":   v.Command.Meta.TurnAfter,
	}).Debug("command accepted")

	d.broadcast(v.Recipients, models.EventAuthoritative, v.Command)
	d.journal.Record(journal.FromCommand(v.RoomID, v.Command))
}

// legacyGameAction forwards a raw action to the other seat with only a
// membership check. It bypasses the gate and is off unless enabled.
func (d *Dispatcher) legacyGameAction(connID string, data json.RawMessage) {
	action := gjson.GetBytes(data, "action").String()
	if !d.legacy {
		d.reject(connID, action, models.ReasonUnsupportedAction)
		return
	}

	var req models.LegacyGameAction
	if err := decode(data, &req); err != nil || req.RoomID == "" {
		d.reject(connID, action, models.ReasonInvalidPayload)
		return
	}
	l, ok := d.store.Get(req.RoomID)
	if !ok {
		d.reject(connID, req.Action, models.ReasonRoomNotFound)
		return
	}
	if !l.Has(connID) {
		d.reject(connID, req.Action, models.ReasonNotInRoom)
		return
	}

	d.broadcast(l.Peers(connID), models.EventLegacyGameAction, req)
}
