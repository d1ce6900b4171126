package battle

import (
	"context"

	"coffeemon-arena/server/logging"
)

const (
	// EventTurnResolved is emitted after every resolution step.
	EventTurnResolved logging.EventType = "battle.turn_resolved"
	// EventDamage is emitted when an attack or effect removes HP.
	EventDamage logging.EventType = "battle.damage"
	// EventDefeat is emitted when a unit faints.
	EventDefeat logging.EventType = "battle.defeat"
	// EventStatusApplied is emitted when a status effect attaches to a unit.
	EventStatusApplied logging.EventType = "battle.status_applied"
	// EventFinished is emitted when a battle reaches FINISHED.
	EventFinished logging.EventType = "battle.finished"
	// EventCancelled is emitted when a battle is torn down without a winner.
	EventCancelled logging.EventType = "battle.cancelled"
	// EventRejected is emitted when a request is refused.
	EventRejected logging.EventType = "battle.rejected"
)

// TurnResolvedPayload summarizes one resolution step.
type TurnResolvedPayload struct {
	Events []string `json:"events"`
	Phase  string   `json:"phase"`
}

// DamagePayload captures HP removed from a single unit.
type DamagePayload struct {
	Move         string `json:"move,omitempty"`
	StatusEffect string `json:"statusEffect,omitempty"`
	Amount       int    `json:"amount"`
	Critical     bool   `json:"critical,omitempty"`
}

// DefeatPayload names the unit that fainted.
type DefeatPayload struct {
	Unit string `json:"unit"`
}

// StatusAppliedPayload describes an attached effect.
type StatusAppliedPayload struct {
	Effect   string `json:"effect"`
	Duration int    `json:"duration"`
}

// EndPayload describes how a battle ended.
type EndPayload struct {
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason"`
	Turns  int    `json:"turns"`
}

// RejectedPayload describes a refused request.
type RejectedPayload struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, turn uint64, actor logging.EntityRef, targets []logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     turn,
		Actor:    actor,
		Targets:  targets,
		Severity: severity,
		Category: logging.CategoryBattle,
		Payload:  payload,
		Extra:    extra,
	})
}

// TurnResolved publishes a debug summary of a resolution step.
func TurnResolved(ctx context.Context, pub logging.Publisher, turn uint64, battle logging.EntityRef, payload TurnResolvedPayload, extra map[string]any) {
	publish(ctx, pub, EventTurnResolved, logging.SeverityDebug, turn, battle, nil, payload, extra)
}

// Damage publishes a damage event for a single target.
func Damage(ctx context.Context, pub logging.Publisher, turn uint64, actor, target logging.EntityRef, payload DamagePayload, extra map[string]any) {
	publish(ctx, pub, EventDamage, logging.SeverityInfo, turn, actor, []logging.EntityRef{target}, payload, extra)
}

// Defeat publishes a faint event owned by the unit's player.
func Defeat(ctx context.Context, pub logging.Publisher, turn uint64, owner logging.EntityRef, payload DefeatPayload, extra map[string]any) {
	publish(ctx, pub, EventDefeat, logging.SeverityInfo, turn, owner, nil, payload, extra)
}

// StatusApplied publishes a status effect attachment.
func StatusApplied(ctx context.Context, pub logging.Publisher, turn uint64, target logging.EntityRef, payload StatusAppliedPayload, extra map[string]any) {
	publish(ctx, pub, EventStatusApplied, logging.SeverityInfo, turn, target, nil, payload, extra)
}

// Finished publishes the end of a battle.
func Finished(ctx context.Context, pub logging.Publisher, turn uint64, battle logging.EntityRef, payload EndPayload, extra map[string]any) {
	publish(ctx, pub, EventFinished, logging.SeverityInfo, turn, battle, nil, payload, extra)
}

// Cancelled publishes a cancellation at warn level.
func Cancelled(ctx context.Context, pub logging.Publisher, turn uint64, battle logging.EntityRef, payload EndPayload, extra map[string]any) {
	publish(ctx, pub, EventCancelled, logging.SeverityWarn, turn, battle, nil, payload, extra)
}

// Rejected publishes a refused player request.
func Rejected(ctx context.Context, pub logging.Publisher, turn uint64, player logging.EntityRef, payload RejectedPayload, extra map[string]any) {
	publish(ctx, pub, EventRejected, logging.SeverityDebug, turn, player, nil, payload, extra)
}
