// internal/gate/commands.go
package gate

// Command kinds accepted on the authoritative path.
const (
	KindSyncState = "sync_state"

	KindMove             = "move"
	KindAttack           = "attack"
	KindEndTurn          = "end_turn"
	KindTeleport         = "teleport"
	KindPlaceUnit        = "place_unit"
	KindAreaStrike       = "area_strike"
	KindRelocateBase     = "relocate_base"
	KindFreeze           = "freeze"
	KindHeal             = "heal"
	KindRestoreEnergy    = "restore_energy"
	KindMindControlStart = "mind_control_start"
	KindMindControlBreak = "mind_control_break"
	KindSummonActivate   = "summon_activate"
	KindSummonPlace      = "summon_place"
	KindWallChainPlace   = "wall_chain_place"
	KindSpecialAction    = "special_action"
	KindSelfDestruct     = "self_destruct"
	KindRemoteDetonate   = "remote_detonate"
	KindShopBuy          = "shop_buy"
	KindShopRefund       = "shop_refund"
	KindShopReroll       = "shop_reroll"
	KindTalentStart      = "talent_selection_start"
	KindTalentChoose     = "talent_choose"
)

// PlayerIDField is the payload field a client may use to name its own seat.
const PlayerIDField = "playerId"

type rule struct {
	// turnGated commands are only accepted from the seat holding the turn.
	turnGated bool
	// identity commands carry playerId, which must match the sender's seat.
	identity bool
}

var gameplayRules = map[string]rule{
	KindMove:             {turnGated: true},
	KindAttack:           {turnGated: true},
	KindEndTurn:          {turnGated: true, identity: true},
	KindTeleport:         {turnGated: true},
	KindPlaceUnit:        {turnGated: true, identity: true},
	KindAreaStrike:       {turnGated: true},
	KindRelocateBase:     {turnGated: true, identity: true},
	KindFreeze:           {turnGated: true},
	KindHeal:             {turnGated: true},
	KindRestoreEnergy:    {turnGated: true},
	KindMindControlStart: {turnGated: true},
	KindMindControlBreak: {},
	KindSummonActivate:   {turnGated: true},
	KindSummonPlace:      {turnGated: true},
	KindWallChainPlace:   {turnGated: true},
	KindSpecialAction:    {turnGated: true, identity: true},
	KindSelfDestruct:     {turnGated: true},
	KindRemoteDetonate:   {turnGated: true},
	KindShopBuy:          {identity: true},
	KindShopRefund:       {identity: true},
	KindShopReroll:       {identity: true},
	KindTalentStart:      {identity: true},
	KindTalentChoose:     {identity: true},
}

// Recognized reports whether kind is on the authoritative path at all.
func Recognized(kind string) bool {
	if kind == KindSyncState {
		return true
	}
	_, ok := gameplayRules[kind]
	return ok
}

// TurnGated reports whether kind requires the sender to hold the turn.
func TurnGated(kind string) bool { return gameplayRules[kind].turnGated }

// RequiresIdentity reports whether kind carries a checked playerId field.
func RequiresIdentity(kind string) bool { return gameplayRules[kind].identity }
