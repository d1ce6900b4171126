// Package events defines the closed set of battle notifications that a
// resolution step can emit, how they render into display text, and the
// ordered collector used while a step runs.
package events

// Kind identifies an event variant on the wire.
type Kind string

const (
	KindActionError              Kind = "ACTION_ERROR"
	KindStatusBlock              Kind = "STATUS_BLOCK"
	KindKnockoutBlock            Kind = "KNOCKOUT_BLOCK"
	KindTurnSkipped              Kind = "TURN_SKIPPED"
	KindSwitchSuccess            Kind = "SWITCH_SUCCESS"
	KindSwitchFailedSameUnit     Kind = "SWITCH_FAILED_SAME_UNIT"
	KindSwitchFailedFaintedUnit  Kind = "SWITCH_FAILED_FAINTED_UNIT"
	KindSwitchFailedInvalidIndex Kind = "SWITCH_FAILED_INVALID_INDEX"
	KindAttackHit                Kind = "ATTACK_HIT"
	KindAttackCrit               Kind = "ATTACK_CRIT"
	KindAttackMiss               Kind = "ATTACK_MISS"
	KindAttackBlocked            Kind = "ATTACK_BLOCKED"
	KindCoffeemonFainted         Kind = "COFFEEMON_FAINTED"
	KindStatusApplied            Kind = "STATUS_APPLIED"
	KindStatusDamage             Kind = "STATUS_DAMAGE"
	KindStatusHeal               Kind = "STATUS_HEAL"
	KindStatusRemoved            Kind = "STATUS_REMOVED"
	KindItemUsed                 Kind = "ITEM_USED"
	KindSupportUsed              Kind = "SUPPORT_USED"
	KindTurnEnd                  Kind = "TURN_END"
	KindBattleFinished           Kind = "BATTLE_FINISHED"
)

// Reason codes carried by ActionError.
const (
	ReasonUnknownMove     = "unknown_move"
	ReasonMoveNotAttack   = "move_not_attack"
	ReasonMoveNotSupport  = "move_not_support"
	ReasonUnknownItem     = "unknown_item"
	ReasonItemUnavailable = "item_unavailable"
	ReasonInvalidTarget   = "invalid_target"
	ReasonNoActiveUnit    = "no_active_unit"
	ReasonUnknownAction   = "unknown_action"
	ReasonNotYourTurn     = "not_your_turn"
)

// Payload is implemented by every event variant. The set is closed: only
// types declared in this package satisfy it.
type Payload interface {
	Kind() Kind
	isPayload()
}

// targeted payloads are delivered only to the player they name.
type targeted interface {
	target() string
}

type ActionError struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason"`
}

type StatusBlock struct {
	PlayerID string `json:"playerId"`
	UnitName string `json:"coffeemonName"`
	Effect   string `json:"effectType"`
}

type KnockoutBlock struct {
	PlayerID string `json:"playerId"`
	UnitName string `json:"coffeemonName"`
}

type TurnSkipped struct {
	PlayerID string `json:"playerId"`
}

type SwitchSuccess struct {
	PlayerID string `json:"playerId"`
	UnitName string `json:"coffeemonName"`
}

type SwitchFailedSameUnit struct {
	PlayerID string `json:"playerId"`
	UnitName string `json:"coffeemonName"`
}

type SwitchFailedFaintedUnit struct {
	PlayerID string `json:"playerId"`
	UnitName string `json:"coffeemonName"`
}

type SwitchFailedInvalidIndex struct {
	PlayerID string `json:"playerId"`
	Index    int    `json:"index"`
}

type AttackHit struct {
	PlayerID     string `json:"playerId"`
	AttackerName string `json:"attackerName"`
	TargetName   string `json:"targetName"`
	MoveName     string `json:"moveName"`
	Damage       int    `json:"damage"`
}

type AttackCrit struct {
	PlayerID     string `json:"playerId"`
	AttackerName string `json:"attackerName"`
	TargetName   string `json:"targetName"`
	MoveName     string `json:"moveName"`
	Damage       int    `json:"damage"`
}

type AttackMiss struct {
	PlayerID     string `json:"playerId"`
	AttackerName string `json:"attackerName"`
	TargetName   string `json:"targetName"`
	MoveName     string `json:"moveName"`
}

type AttackBlocked struct {
	TargetName string `json:"targetName"`
}

type CoffeemonFainted struct {
	PlayerID string `json:"playerId"`
	UnitName string `json:"coffeemonName"`
}

type StatusApplied struct {
	UnitName string `json:"coffeemonName"`
	Effect   string `json:"effectType"`
	Duration int    `json:"duration"`
}

type StatusDamage struct {
	UnitName string `json:"coffeemonName"`
	Effect   string `json:"effectType"`
	Damage   int    `json:"damage"`
}

type StatusHeal struct {
	UnitName string `json:"coffeemonName"`
	Effect   string `json:"effectType"`
	Amount   int    `json:"amount"`
}

type StatusRemoved struct {
	UnitName string `json:"coffeemonName"`
	Effect   string `json:"effectType"`
}

type ItemUsed struct {
	PlayerID string `json:"playerId"`
	ItemName string `json:"itemName"`
	UnitName string `json:"coffeemonName"`
}

type SupportUsed struct {
	PlayerID string `json:"playerId"`
	UnitName string `json:"coffeemonName"`
	MoveName string `json:"moveName"`
}

type TurnEnd struct {
	Turn int `json:"turn"`
}

type BattleFinished struct {
	WinnerID string `json:"winnerId"`
	Reason   string `json:"reason"`
}

func (ActionError) Kind() Kind              { return KindActionError }
func (StatusBlock) Kind() Kind              { return KindStatusBlock }
func (KnockoutBlock) Kind() Kind            { return KindKnockoutBlock }
func (TurnSkipped) Kind() Kind              { return KindTurnSkipped }
func (SwitchSuccess) Kind() Kind            { return KindSwitchSuccess }
func (SwitchFailedSameUnit) Kind() Kind     { return KindSwitchFailedSameUnit }
func (SwitchFailedFaintedUnit) Kind() Kind  { return KindSwitchFailedFaintedUnit }
func (SwitchFailedInvalidIndex) Kind() Kind { return KindSwitchFailedInvalidIndex }
func (AttackHit) Kind() Kind                { return KindAttackHit }
func (AttackCrit) Kind() Kind               { return KindAttackCrit }
func (AttackMiss) Kind() Kind               { return KindAttackMiss }
func (AttackBlocked) Kind() Kind            { return KindAttackBlocked }
func (CoffeemonFainted) Kind() Kind         { return KindCoffeemonFainted }
func (StatusApplied) Kind() Kind            { return KindStatusApplied }
func (StatusDamage) Kind() Kind             { return KindStatusDamage }
func (StatusHeal) Kind() Kind               { return KindStatusHeal }
func (StatusRemoved) Kind() Kind            { return KindStatusRemoved }
func (ItemUsed) Kind() Kind                 { return KindItemUsed }
func (SupportUsed) Kind() Kind              { return KindSupportUsed }
func (TurnEnd) Kind() Kind                  { return KindTurnEnd }
func (BattleFinished) Kind() Kind           { return KindBattleFinished }

func (ActionError) isPayload()              {}
func (StatusBlock) isPayload()              {}
func (KnockoutBlock) isPayload()            {}
func (TurnSkipped) isPayload()              {}
func (SwitchSuccess) isPayload()            {}
func (SwitchFailedSameUnit) isPayload()     {}
func (SwitchFailedFaintedUnit) isPayload()  {}
func (SwitchFailedInvalidIndex) isPayload() {}
func (AttackHit) isPayload()                {}
func (AttackCrit) isPayload()               {}
func (AttackMiss) isPayload()               {}
func (AttackBlocked) isPayload()            {}
func (CoffeemonFainted) isPayload()         {}
func (StatusApplied) isPayload()            {}
func (StatusDamage) isPayload()             {}
func (StatusHeal) isPayload()               {}
func (StatusRemoved) isPayload()            {}
func (ItemUsed) isPayload()                 {}
func (SupportUsed) isPayload()              {}
func (TurnEnd) isPayload()                  {}
func (BattleFinished) isPayload()           {}

func (p ActionError) target() string              { return p.PlayerID }
func (p KnockoutBlock) target() string            { return p.PlayerID }
func (p SwitchFailedSameUnit) target() string     { return p.PlayerID }
func (p SwitchFailedFaintedUnit) target() string  { return p.PlayerID }
func (p SwitchFailedInvalidIndex) target() string { return p.PlayerID }
