package effects

import (
	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/events"
)

// Engine runs effect hooks against units.
type Engine struct {
	defs Table
}

// NewEngine returns an engine over defs, or over DefaultTable when defs is
// nil.
func NewEngine(defs Table) *Engine {
	if defs == nil {
		defs = DefaultTable()
	}
	return &Engine{defs: defs}
}

// Definition looks up the definition of t.
func (e *Engine) Definition(t battle.EffectType) (*Definition, bool) {
	def, ok := e.defs[t]
	return def, ok
}

func run(hook Hook, unit *battle.CombatUnit, inst *battle.StatusEffectInstance) []events.Payload {
	if hook == nil {
		return nil
	}
	return hook(unit, inst)
}

// Apply attaches spec to target, or refreshes the remaining duration when
// the same type is already attached. Unknown types and fainted targets are
// ignored.
func (e *Engine) Apply(spec battle.EffectSpec, target *battle.CombatUnit) []events.Payload {
	if target == nil || target.IsFainted {
		return nil
	}
	def, ok := e.defs[spec.Type]
	if !ok {
		return nil
	}
	duration := spec.Duration
	if duration <= 0 {
		duration = def.DefaultDuration
	}
	if duration <= 0 {
		duration = 1
	}
	magnitude := spec.Value
	if magnitude == 0 {
		magnitude = def.DefaultMagnitude
	}

	for i := range target.StatusEffects {
		if target.StatusEffects[i].Type == spec.Type {
			target.StatusEffects[i].Remaining = duration
			return nil
		}
	}

	target.StatusEffects = append(target.StatusEffects, battle.StatusEffectInstance{
		Type:      spec.Type,
		Category:  def.Category,
		Remaining: duration,
		Magnitude: magnitude,
	})
	inst := &target.StatusEffects[len(target.StatusEffects)-1]
	out := []events.Payload{events.StatusApplied{
		UnitName: target.Name,
		Effect:   string(spec.Type),
		Duration: duration,
	}}
	out = append(out, run(def.OnApply, target, inst)...)
	refreshCanAct(target)
	return out
}

// EndOfTurn ticks every effect on unit in attachment order, then counts
// down durations and removes expired effects. A tick that drops the unit to
// zero HP faints it and stops further ticks.
func (e *Engine) EndOfTurn(ownerID string, unit *battle.CombatUnit) []events.Payload {
	if unit == nil || unit.IsFainted {
		return nil
	}
	var out []events.Payload
	for i := 0; i < len(unit.StatusEffects); {
		inst := &unit.StatusEffects[i]
		def, known := e.defs[inst.Type]
		if known {
			out = append(out, run(def.OnTurnEnd, unit, inst)...)
		}
		if unit.CurrentHP == 0 {
			unit.Faint()
			out = append(out, events.CoffeemonFainted{PlayerID: ownerID, UnitName: unit.Name})
			return out
		}
		inst.Remaining--
		if inst.Remaining > 0 {
			i++
			continue
		}
		removed := *inst
		unit.StatusEffects = append(unit.StatusEffects[:i], unit.StatusEffects[i+1:]...)
		if known {
			out = append(out, run(def.OnRemove, unit, &removed)...)
		}
		out = append(out, events.StatusRemoved{UnitName: unit.Name, Effect: string(removed.Type)})
	}
	refreshCanAct(unit)
	return out
}

// Cure removes effects of type t from unit, or every effect when t is
// empty.
func (e *Engine) Cure(unit *battle.CombatUnit, t battle.EffectType) []events.Payload {
	if unit == nil {
		return nil
	}
	var out []events.Payload
	kept := unit.StatusEffects[:0]
	var removed []battle.StatusEffectInstance
	for _, inst := range unit.StatusEffects {
		if t == "" || inst.Type == t {
			removed = append(removed, inst)
			continue
		}
		kept = append(kept, inst)
	}
	unit.StatusEffects = kept
	for i := range removed {
		if def, ok := e.defs[removed[i].Type]; ok {
			out = append(out, run(def.OnRemove, unit, &removed[i])...)
		}
		out = append(out, events.StatusRemoved{UnitName: unit.Name, Effect: string(removed[i].Type)})
	}
	refreshCanAct(unit)
	return out
}

// Blocking returns the first blocking effect on unit.
func (e *Engine) Blocking(unit *battle.CombatUnit) (battle.EffectType, bool) {
	if unit == nil {
		return "", false
	}
	for _, inst := range unit.StatusEffects {
		if inst.Category == battle.CategoryBlocking {
			return inst.Type, true
		}
	}
	return "", false
}

func refreshCanAct(unit *battle.CombatUnit) {
	if unit.IsFainted {
		unit.CanAct = false
		return
	}
	for _, inst := range unit.StatusEffects {
		if inst.Category == battle.CategoryBlocking {
			unit.CanAct = false
			return
		}
	}
	unit.CanAct = true
}
