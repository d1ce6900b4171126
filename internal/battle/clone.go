package battle

import "coffeemon-arena/server/internal/events"

// Clone returns a deep copy that shares no mutable memory with s.
func (s *BattleState) Clone() *BattleState {
	if s == nil {
		return nil
	}
	cloned := *s
	cloned.Player1 = s.Player1.Clone()
	cloned.Player2 = s.Player2.Clone()
	if s.PendingActions != nil {
		cloned.PendingActions = make(map[string]PendingAction, len(s.PendingActions))
		for k, v := range s.PendingActions {
			cloned.PendingActions[k] = v
		}
	}
	if s.Events != nil {
		cloned.Events = append([]events.Event(nil), s.Events...)
	}
	return &cloned
}

func (p PlayerBattleState) Clone() PlayerBattleState {
	cloned := p
	if p.ActiveUnitIndex != nil {
		idx := *p.ActiveUnitIndex
		cloned.ActiveUnitIndex = &idx
	}
	if p.Units != nil {
		cloned.Units = make([]CombatUnit, len(p.Units))
		for i := range p.Units {
			cloned.Units[i] = p.Units[i].Clone()
		}
	}
	if p.Inventory != nil {
		cloned.Inventory = make(map[string]int, len(p.Inventory))
		for k, v := range p.Inventory {
			cloned.Inventory[k] = v
		}
	}
	return cloned
}

func (u CombatUnit) Clone() CombatUnit {
	cloned := u
	if u.Moves != nil {
		cloned.Moves = make([]Move, len(u.Moves))
		for i, m := range u.Moves {
			cloned.Moves[i] = m
			if m.Effects != nil {
				cloned.Moves[i].Effects = append([]EffectSpec(nil), m.Effects...)
			}
		}
	}
	if u.StatusEffects != nil {
		cloned.StatusEffects = append([]StatusEffectInstance(nil), u.StatusEffects...)
	}
	return cloned
}
