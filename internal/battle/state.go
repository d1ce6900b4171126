// Package battle holds the state of a single two-player battle and the
// vocabulary every other battle package shares.
package battle

import "coffeemon-arena/server/internal/events"

// TurnPhase governs which requests a battle accepts.
type TurnPhase string

const (
	PhaseSelection  TurnPhase = "SELECTION"
	PhaseSubmission TurnPhase = "SUBMISSION"
	PhaseResolution TurnPhase = "RESOLUTION"
	PhaseFinished   TurnPhase = "FINISHED"
)

// End reasons recorded on finished or cancelled battles.
const (
	ReasonKnockout   = "knockout"
	ReasonDisconnect = "disconnect"
	ReasonTimeout    = "timeout"
	ReasonLeft       = "left"
	ReasonInactivity = "inactivity"
	ReasonShutdown   = "shutdown"
	ReasonFatal      = "fatal"
)

type MoveCategory string

const (
	MoveAttack  MoveCategory = "attack"
	MoveSupport MoveCategory = "support"
)

type EffectType string

const (
	EffectBurn      EffectType = "burn"
	EffectPoison    EffectType = "poison"
	EffectSleep     EffectType = "sleep"
	EffectFreeze    EffectType = "freeze"
	EffectAttackUp  EffectType = "attackUp"
	EffectDefenseUp EffectType = "defenseUp"
	EffectLifesteal EffectType = "lifesteal"
)

type EffectCategory string

const (
	CategoryBlocking EffectCategory = "blocking"
	CategoryOverTime EffectCategory = "over_time"
	CategoryModifier EffectCategory = "modifier"
)

type EffectTarget string

const (
	TargetSelf  EffectTarget = "self"
	TargetEnemy EffectTarget = "enemy"
	TargetAlly  EffectTarget = "ally"
)

// EffectSpec describes an effect a move may trigger.
type EffectSpec struct {
	Type     EffectType   `json:"type"`
	Chance   float64      `json:"chance"`
	Duration int          `json:"duration,omitempty"`
	Value    float64      `json:"value,omitempty"`
	Target   EffectTarget `json:"target"`
}

type Move struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Power       int          `json:"power"`
	Category    MoveCategory `json:"category"`
	Description string       `json:"description,omitempty"`
	Effects     []EffectSpec `json:"effects,omitempty"`
}

// StatusEffectInstance is an effect currently attached to a unit.
type StatusEffectInstance struct {
	Type      EffectType     `json:"type"`
	Category  EffectCategory `json:"category"`
	Remaining int            `json:"remainingDuration"`
	Magnitude float64        `json:"magnitude"`
}

// Modifiers scale a unit's stats; chances are probabilities in [0,1].
type Modifiers struct {
	AttackModifier  float64 `json:"attackModifier"`
	DefenseModifier float64 `json:"defenseModifier"`
	DodgeChance     float64 `json:"dodgeChance"`
	HitChance       float64 `json:"hitChance"`
	CritChance      float64 `json:"critChance"`
	BlockChance     float64 `json:"blockChance"`
}

// DefaultModifiers returns the modifiers a fresh unit starts with.
func DefaultModifiers() Modifiers {
	return Modifiers{
		AttackModifier:  1.0,
		DefenseModifier: 1.0,
		HitChance:       1.0,
		CritChance:      0.05,
	}
}

type CombatUnit struct {
	ID            int                    `json:"id"`
	Name          string                 `json:"name"`
	Level         int                    `json:"level"`
	CurrentHP     int                    `json:"currentHp"`
	MaxHP         int                    `json:"maxHp"`
	IsFainted     bool                   `json:"isFainted"`
	CanAct        bool                   `json:"canAct"`
	Attack        int                    `json:"attack"`
	Defense       int                    `json:"defense"`
	Speed         int                    `json:"speed"`
	Moves         []Move                 `json:"moves"`
	StatusEffects []StatusEffectInstance `json:"statusEffects"`
	Modifiers     Modifiers              `json:"modifiers"`
}

// FindMove returns the unit's move with the given id.
func (u *CombatUnit) FindMove(id int) (Move, bool) {
	for _, m := range u.Moves {
		if m.ID == id {
			return m, true
		}
	}
	return Move{}, false
}

// HasEffect reports whether an effect of type t is attached.
func (u *CombatUnit) HasEffect(t EffectType) bool {
	for _, inst := range u.StatusEffects {
		if inst.Type == t {
			return true
		}
	}
	return false
}

// Faint zeroes the unit's HP and disables it.
func (u *CombatUnit) Faint() {
	u.CurrentHP = 0
	u.IsFainted = true
	u.CanAct = false
}

// TakeDamage subtracts amount clamped at zero and reports whether the unit
// dropped to zero HP.
func (u *CombatUnit) TakeDamage(amount int) bool {
	if amount < 0 {
		amount = 0
	}
	u.CurrentHP -= amount
	if u.CurrentHP < 0 {
		u.CurrentHP = 0
	}
	return u.CurrentHP == 0
}

// Heal restores up to amount HP without exceeding MaxHP and returns the HP
// actually restored.
func (u *CombatUnit) Heal(amount int) int {
	if amount <= 0 || u.IsFainted {
		return 0
	}
	before := u.CurrentHP
	u.CurrentHP += amount
	if u.CurrentHP > u.MaxHP {
		u.CurrentHP = u.MaxHP
	}
	return u.CurrentHP - before
}

// ItemKind selects what an inventory item does.
type ItemKind string

const (
	ItemHeal   ItemKind = "heal"
	ItemRevive ItemKind = "revive"
	ItemCure   ItemKind = "cure"
)

// Item is a consumable definition.
type Item struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Kind   ItemKind   `json:"kind"`
	Value  float64    `json:"value"`
	Effect EffectType `json:"effect,omitempty"`
}

type PlayerBattleState struct {
	Units           []CombatUnit   `json:"coffeemons"`
	ActiveUnitIndex *int           `json:"activeCoffeemonIndex"`
	HasSelectedUnit bool           `json:"hasSelectedCoffeemon"`
	Inventory       map[string]int `json:"inventory,omitempty"`
}

// Active returns the active unit, or nil before the first selection.
func (p *PlayerBattleState) Active() *CombatUnit {
	if p.ActiveUnitIndex == nil {
		return nil
	}
	idx := *p.ActiveUnitIndex
	if idx < 0 || idx >= len(p.Units) {
		return nil
	}
	return &p.Units[idx]
}

// SetActive points the active index at idx.
func (p *PlayerBattleState) SetActive(idx int) {
	p.ActiveUnitIndex = &idx
}

// Defeated reports whether every unit has fainted.
func (p *PlayerBattleState) Defeated() bool {
	for _, u := range p.Units {
		if !u.IsFainted {
			return false
		}
	}
	return true
}

// FirstAvailable returns the index of the first non-fainted unit or -1.
func (p *PlayerBattleState) FirstAvailable() int {
	for i, u := range p.Units {
		if !u.IsFainted {
			return i
		}
	}
	return -1
}

type ActionType string

const (
	ActionAttack  ActionType = "attack"
	ActionSwitch  ActionType = "switch"
	ActionSupport ActionType = "support"
	ActionUseItem ActionType = "useItem"
	// ActionBlocked and ActionSkip are server placeholders, never accepted
	// from clients.
	ActionBlocked ActionType = "blocked"
	ActionSkip    ActionType = "skip"
)

// ClientSubmittable reports whether clients may submit the action type.
func (t ActionType) ClientSubmittable() bool {
	switch t {
	case ActionAttack, ActionSwitch, ActionSupport, ActionUseItem:
		return true
	default:
		return false
	}
}

type PendingAction struct {
	Type        ActionType `json:"actionType"`
	PlayerID    string     `json:"playerId"`
	MoveID      int        `json:"moveId,omitempty"`
	NewIndex    int        `json:"newIndex,omitempty"`
	ItemID      string     `json:"itemId,omitempty"`
	TargetIndex int        `json:"targetIndex,omitempty"`
}

// BattleState is owned by exactly one session.
type BattleState struct {
	ID              string                   `json:"battleId"`
	Turn            int                      `json:"turn"`
	Phase           TurnPhase                `json:"turnPhase"`
	Player1ID       string                   `json:"player1Id"`
	Player2ID       string                   `json:"player2Id"`
	Player1         PlayerBattleState        `json:"player1"`
	Player2         PlayerBattleState        `json:"player2"`
	CurrentPlayerID string                   `json:"currentPlayerId,omitempty"`
	PendingActions  map[string]PendingAction `json:"pendingActions,omitempty"`
	Events          []events.Event           `json:"events"`
	WinnerID        string                   `json:"winnerId,omitempty"`
	EndReason       string                   `json:"endReason,omitempty"`
	IsBotBattle     bool                     `json:"isBotBattle,omitempty"`
}

// NewBattleState builds a battle in the SELECTION phase.
func NewBattleState(id, player1ID, player2ID string, party1, party2 []CombatUnit) *BattleState {
	return &BattleState{
		ID:             id,
		Turn:           1,
		Phase:          PhaseSelection,
		Player1ID:      player1ID,
		Player2ID:      player2ID,
		Player1:        PlayerBattleState{Units: party1},
		Player2:        PlayerBattleState{Units: party2},
		PendingActions: make(map[string]PendingAction, 2),
	}
}

// Participant reports whether playerID is one of the two players.
func (s *BattleState) Participant(playerID string) bool {
	return playerID != "" && (playerID == s.Player1ID || playerID == s.Player2ID)
}

// Player returns the state of playerID, or nil.
func (s *BattleState) Player(playerID string) *PlayerBattleState {
	switch playerID {
	case "":
		return nil
	case s.Player1ID:
		return &s.Player1
	case s.Player2ID:
		return &s.Player2
	default:
		return nil
	}
}

// Opponent returns the other player's id.
func (s *BattleState) Opponent(playerID string) string {
	switch playerID {
	case s.Player1ID:
		return s.Player2ID
	case s.Player2ID:
		return s.Player1ID
	default:
		return ""
	}
}

// PlayerIDs returns both ids in resolution order.
func (s *BattleState) PlayerIDs() [2]string {
	return [2]string{s.Player1ID, s.Player2ID}
}

// Finished reports whether the battle reached its terminal phase.
func (s *BattleState) Finished() bool {
	return s.Phase == PhaseFinished
}
