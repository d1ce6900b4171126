// Package effects applies, ticks and expires status effects on combat
// units through a table of per-type hooks.
package effects

import (
	"math"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/events"
)

// Hook reacts to a lifecycle moment of one effect instance and returns the
// notifications it produced.
type Hook func(unit *battle.CombatUnit, inst *battle.StatusEffectInstance) []events.Payload

// Definition describes one effect type. Hooks left nil are skipped.
type Definition struct {
	Type             battle.EffectType
	Category         battle.EffectCategory
	DefaultDuration  int
	DefaultMagnitude float64
	OnApply          Hook
	OnTurnEnd        Hook
	OnRemove         Hook
}

// Table maps effect types to their definitions.
type Table map[battle.EffectType]*Definition

const (
	burnDuration      = 3
	burnDamage        = 5
	poisonDuration    = 3
	poisonDamage      = 10
	sleepDuration     = 2
	freezeDuration    = 1
	modifierDuration  = 3
	modifierMagnitude = 1.5
)

// DefaultTable returns the built-in effect definitions.
func DefaultTable() Table {
	return Table{
		battle.EffectBurn: {
			Type:             battle.EffectBurn,
			Category:         battle.CategoryOverTime,
			DefaultDuration:  burnDuration,
			DefaultMagnitude: burnDamage,
			OnTurnEnd:        damageOverTime,
		},
		battle.EffectPoison: {
			Type:             battle.EffectPoison,
			Category:         battle.CategoryOverTime,
			DefaultDuration:  poisonDuration,
			DefaultMagnitude: poisonDamage,
			OnTurnEnd:        damageOverTime,
		},
		battle.EffectSleep: {
			Type:            battle.EffectSleep,
			Category:        battle.CategoryBlocking,
			DefaultDuration: sleepDuration,
		},
		battle.EffectFreeze: {
			Type:            battle.EffectFreeze,
			Category:        battle.CategoryBlocking,
			DefaultDuration: freezeDuration,
		},
		battle.EffectAttackUp: {
			Type:             battle.EffectAttackUp,
			Category:         battle.CategoryModifier,
			DefaultDuration:  modifierDuration,
			DefaultMagnitude: modifierMagnitude,
			OnApply: func(unit *battle.CombatUnit, inst *battle.StatusEffectInstance) []events.Payload {
				unit.Modifiers.AttackModifier *= inst.Magnitude
				return nil
			},
			OnRemove: func(unit *battle.CombatUnit, inst *battle.StatusEffectInstance) []events.Payload {
				if inst.Magnitude != 0 {
					unit.Modifiers.AttackModifier /= inst.Magnitude
				}
				return nil
			},
		},
		battle.EffectDefenseUp: {
			Type:             battle.EffectDefenseUp,
			Category:         battle.CategoryModifier,
			DefaultDuration:  modifierDuration,
			DefaultMagnitude: modifierMagnitude,
			OnApply: func(unit *battle.CombatUnit, inst *battle.StatusEffectInstance) []events.Payload {
				unit.Modifiers.DefenseModifier *= inst.Magnitude
				return nil
			},
			OnRemove: func(unit *battle.CombatUnit, inst *battle.StatusEffectInstance) []events.Payload {
				if inst.Magnitude != 0 {
					unit.Modifiers.DefenseModifier /= inst.Magnitude
				}
				return nil
			},
		},
	}
}

func damageOverTime(unit *battle.CombatUnit, inst *battle.StatusEffectInstance) []events.Payload {
	amount := int(math.Floor(inst.Magnitude))
	if amount < 1 {
		amount = 1
	}
	before := unit.CurrentHP
	unit.TakeDamage(amount)
	return []events.Payload{events.StatusDamage{
		UnitName: unit.Name,
		Effect:   string(inst.Type),
		Damage:   before - unit.CurrentHP,
	}}
}
