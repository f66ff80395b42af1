// internal/gate/gate.go
package gate

import (
	"encoding/json"
	"time"

	"github.com/jason-s-yu/tactics-relay/internal/lobby"
	"github.com/jason-s-yu/tactics-relay/internal/models"
	"github.com/tidwall/gjson"
)

// Lookup is the slice of the lobby store the gate reads from.
type Lookup interface {
	Get(roomID string) (*lobby.Lobby, bool)
}

// Verdict is the gate's decision for one request. The gate performs no I/O;
// the caller delivers Command to Recipients or Rejection to the sender.
type Verdict struct {
	Action string
	RoomID string

	// Reason is empty when the request was accepted.
	Reason models.Reason

	Command    models.AuthoritativeCommand
	Recipients []string
	// Broadcast is true when Recipients is the whole room.
	Broadcast bool
}

// Accepted reports whether the command passed every check.
func (v Verdict) Accepted() bool { return v.Reason == "" }

// Rejection is the reply owed to the sender of a refused request.
func (v Verdict) Rejection() models.CommandRejected {
	return models.CommandRejected{Action: v.Action, Reason: v.Reason}
}

// Gate validates authoritative_command_request payloads against lobby state.
type Gate struct {
	now func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source used for serverTime.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New returns a Gate that stamps serverTime from the wall clock unless
// WithClock overrides it.
func New(opts ...Option) *Gate {
	g := &Gate{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func reject(action, roomID string, reason models.Reason) Verdict {
	return Verdict{Action: action, RoomID: roomID, Reason: reason}
}

// Authorize runs the universal checks in order, then the State-Sync or
// gameplay checks, and applies the accepted command's side effects to the lobby.
// raw is the data object of the request envelope.
func (g *Gate) Authorize(store Lookup, connID string, raw []byte) Verdict {
	if !gjson.ValidBytes(raw) {
		return reject("", "", models.ReasonInvalidPayload)
	}
	req := gjson.ParseBytes(raw)
	if !req.IsObject() {
		return reject("", "", models.ReasonInvalidPayload)
	}

	room := req.Get("roomId")
	action := req.Get("action")
	if action.Type != gjson.String {
		return reject("", roomString(room), models.ReasonInvalidPayload)
	}
	kind := action.Str
	if room.Type != gjson.String || room.Str == "" {
		return reject(kind, "", models.ReasonInvalidPayload)
	}
	roomID := room.Str

	if !Recognized(kind) {
		return reject(kind, roomID, models.ReasonUnsupportedAction)
	}
	l, ok := store.Get(roomID)
	if !ok {
		return reject(kind, roomID, models.ReasonRoomNotFound)
	}
	if !l.Has(connID) {
		return reject(kind, roomID, models.ReasonNotInRoom)
	}
	if !l.Started() {
		return reject(kind, roomID, models.ReasonGameNotStarted)
	}

	data := req.Get("data")
	if kind == KindSyncState {
		return g.syncState(l, connID, kind, data)
	}
	return g.gameplay(l, connID, kind, data)
}

func (g *Gate) syncState(l *lobby.Lobby, connID, kind string, data gjson.Result) Verdict {
	if !l.IsAuthority(connID) {
		return reject(kind, l.RoomID(), models.ReasonNotStateAuthority)
	}
	if !data.IsObject() {
		return reject(kind, l.RoomID(), models.ReasonInvalidStatePayload)
	}

	var pushed models.Role
	if ct := data.Get("currentTurn"); ct.Exists() && ct.Type != gjson.Null && ct.String() != "" {
		role, ok := models.ParseRole(ct.String())
		if !ok {
			return reject(kind, l.RoomID(), models.ReasonInvalidStatePayload)
		}
		pushed = role
	}

	actor, _ := lobby.ResolveRole(l, connID)
	before := l.CurrentTurn()
	if pushed != "" {
		// pushed is a parsed seat, SetTurn cannot fail
		_ = l.SetTurn(pushed)
	}
	payload := json.RawMessage(data.Raw)
	l.ReplaceGameState(payload)

	return Verdict{
		Action:     kind,
		RoomID:     l.RoomID(),
		Command:    g.command(kind, payload, actor, before, l.CurrentTurn()),
		Recipients: l.Players(),
		Broadcast:  true,
	}
}

func (g *Gate) gameplay(l *lobby.Lobby, connID, kind string, data gjson.Result) Verdict {
	actor, ok := lobby.ResolveRole(l, connID)
	if !ok {
		return reject(kind, l.RoomID(), models.ReasonPlayerIDUnresolved)
	}
	if TurnGated(kind) && actor != l.CurrentTurn() {
		return reject(kind, l.RoomID(), models.ReasonNotYourTurn)
	}

	var payload json.RawMessage
	if data.Exists() {
		payload = json.RawMessage(data.Raw)
	}
	if RequiresIdentity(kind) {
		stamped, reason := stampIdentity(data, actor)
		if reason != "" {
			return reject(kind, l.RoomID(), reason)
		}
		payload = stamped
	}

	before := l.CurrentTurn()
	if kind == KindEndTurn {
		l.AdvanceTurn()
	}

	return Verdict{
		Action:     kind,
		RoomID:     l.RoomID(),
		Command:    g.command(kind, payload, actor, before, l.CurrentTurn()),
		Recipients: []string{l.Authority()},
	}
}

// stampIdentity checks every self-declared playerId against the sender's seat
// and re-encodes data with exactly one playerId set to the sender. data must be
// an object or missing.
func stampIdentity(data gjson.Result, actor models.Role) (json.RawMessage, models.Reason) {
	fields := map[string]json.RawMessage{}
	switch {
	case !data.Exists() || data.Type == gjson.Null:
	case data.IsObject():
		if err := json.Unmarshal([]byte(data.Raw), &fields); err != nil {
			return nil, models.ReasonInvalidPayload
		}
	default:
		return nil, models.ReasonInvalidPayload
	}

	// gjson keeps the first duplicate key and encoding/json the last, so every
	// occurrence is checked.
	mismatch := false
	data.ForEach(func(key, value gjson.Result) bool {
		if key.Str != PlayerIDField || value.Type == gjson.Null {
			return true
		}
		if value.Type != gjson.String || value.Str != string(actor) {
			mismatch = true
			return false
		}
		return true
	})
	if mismatch {
		return nil, models.ReasonPlayerMismatch
	}

	id, _ := json.Marshal(actor)
	fields[PlayerIDField] = id
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, models.ReasonInvalidPayload
	}
	return out, ""
}

func (g *Gate) command(kind string, payload json.RawMessage, actor, before, after models.Role) models.AuthoritativeCommand {
	return models.AuthoritativeCommand{
		Action: kind,
		Data:   payload,
		Meta: models.CommandMeta{
			PlayerID:   actor,
			TurnBefore: before,
			TurnAfter:  after,
			ServerTime: g.now().UnixMilli(),
		},
	}
}

func roomString(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return ""
}
