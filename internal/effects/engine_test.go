package effects

import (
	"testing"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/battle/battletest"
	"coffeemon-arena/server/internal/events"
)

func kinds(list []events.Payload) []events.Kind {
	out := make([]events.Kind, len(list))
	for i, p := range list {
		out[i] = p.Kind()
	}
	return out
}

func TestApplyEmitsAndRefreshes(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	unit := battletest.Unit(1, "Espressaur", 50, 10, 10)

	got := engine.Apply(battle.EffectSpec{Type: battle.EffectBurn, Chance: 1, Target: battle.TargetEnemy}, &unit)
	if len(got) != 1 || got[0].Kind() != events.KindStatusApplied {
		t.Fatalf("expected STATUS_APPLIED, got %v", kinds(got))
	}
	if unit.StatusEffects[0].Remaining != burnDuration || unit.StatusEffects[0].Magnitude != burnDamage {
		t.Fatalf("expected default burn duration and magnitude, got %+v", unit.StatusEffects[0])
	}

	unit.StatusEffects[0].Remaining = 1
	again := engine.Apply(battle.EffectSpec{Type: battle.EffectBurn, Duration: 4}, &unit)
	if len(again) != 0 {
		t.Fatalf("refresh should be silent, got %v", kinds(again))
	}
	if len(unit.StatusEffects) != 1 || unit.StatusEffects[0].Remaining != 4 {
		t.Fatalf("expected refreshed single instance, got %+v", unit.StatusEffects)
	}

	if out := engine.Apply(battle.EffectSpec{Type: "glitter"}, &unit); out != nil {
		t.Fatalf("unknown effect should be ignored")
	}
}

func TestBlockingEffectDisablesActing(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	unit := battletest.Unit(1, "Espressaur", 50, 10, 10)
	engine.Apply(battle.EffectSpec{Type: battle.EffectSleep, Duration: 1}, &unit)

	if unit.CanAct {
		t.Fatalf("sleeping unit must not act")
	}
	if effect, ok := engine.Blocking(&unit); !ok || effect != battle.EffectSleep {
		t.Fatalf("expected sleep to block, got %q %v", effect, ok)
	}

	out := engine.EndOfTurn("p1", &unit)
	if len(out) != 1 || out[0].Kind() != events.KindStatusRemoved {
		t.Fatalf("expected sleep to expire, got %v", kinds(out))
	}
	if !unit.CanAct {
		t.Fatalf("unit should act again once sleep expires")
	}
}

func TestDamageOverTimeTicksThenExpires(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	unit := battletest.Unit(1, "Espressaur", 50, 10, 10)
	engine.Apply(battle.EffectSpec{Type: battle.EffectPoison, Duration: 2, Value: 7}, &unit)

	first := engine.EndOfTurn("p1", &unit)
	if len(first) != 1 || first[0] != (events.StatusDamage{UnitName: "Espressaur", Effect: "poison", Damage: 7}) {
		t.Fatalf("unexpected first tick %#v", first)
	}
	second := engine.EndOfTurn("p1", &unit)
	want := []events.Kind{events.KindStatusDamage, events.KindStatusRemoved}
	if got := kinds(second); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected damage then removal, got %v", got)
	}
	if unit.CurrentHP != 36 {
		t.Fatalf("expected 36 hp, got %d", unit.CurrentHP)
	}
	if len(unit.StatusEffects) != 0 {
		t.Fatalf("expected poison to be removed")
	}
	if out := engine.EndOfTurn("p1", &unit); len(out) != 0 {
		t.Fatalf("no effects should mean no notifications, got %v", kinds(out))
	}
}

func TestDamageOverTimeCanFaint(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	unit := battletest.Unit(1, "Espressaur", 4, 10, 10)
	engine.Apply(battle.EffectSpec{Type: battle.EffectBurn}, &unit)
	engine.Apply(battle.EffectSpec{Type: battle.EffectPoison}, &unit)

	out := engine.EndOfTurn("p1", &unit)
	got := kinds(out)
	if len(got) != 2 || got[0] != events.KindStatusDamage || got[1] != events.KindCoffeemonFainted {
		t.Fatalf("expected damage then faint, got %v", got)
	}
	if out[0].(events.StatusDamage).Damage != 4 {
		t.Fatalf("reported damage should be the hp actually lost")
	}
	if !unit.IsFainted || unit.CanAct || unit.CurrentHP != 0 {
		t.Fatalf("unit should be fainted: %+v", unit)
	}
	if again := engine.EndOfTurn("p1", &unit); again != nil {
		t.Fatalf("fainted units do not tick")
	}
}

func TestModifierAppliesAndReverts(t *testing.T) {
	t.Parallel()

	engine := NewEngine(nil)
	unit := battletest.Unit(1, "Espressaur", 50, 10, 10)
	engine.Apply(battle.EffectSpec{Type: battle.EffectAttackUp, Duration: 1}, &unit)
	if unit.Modifiers.AttackModifier != 1.5 {
		t.Fatalf("expected attack modifier 1.5, got %v", unit.Modifiers.AttackModifier)
	}
	engine.EndOfTurn("p1", &unit)
	if unit.Modifiers.AttackModifier != 1 {
		t.Fatalf("expected attack modifier restored, got %v", unit.Modifiers.AttackModifier)
	}

	engine.Apply(battle.EffectSpec{Type: battle.EffectDefenseUp, Value: 2}, &unit)
	out := engine.Cure(&unit, "")
	if len(out) != 1 || out[0].Kind() != events.KindStatusRemoved {
		t.Fatalf("expected one removal, got %v", kinds(out))
	}
	if unit.Modifiers.DefenseModifier != 1 {
		t.Fatalf("cure should run the remove hook, got %v", unit.Modifiers.DefenseModifier)
	}
}

func TestCustomTableOnlyNeedsUsedHooks(t *testing.T) {
	t.Parallel()

	calls := 0
	engine := NewEngine(Table{
		"regen": {
			Type:            "regen",
			Category:        battle.CategoryOverTime,
			DefaultDuration: 2,
			OnTurnEnd: func(unit *battle.CombatUnit, inst *battle.StatusEffectInstance) []events.Payload {
				calls++
				healed := unit.Heal(5)
				return []events.Payload{events.StatusHeal{UnitName: unit.Name, Effect: string(inst.Type), Amount: healed}}
			},
		},
	})
	unit := battletest.Unit(1, "Espressaur", 50, 10, 10)
	unit.CurrentHP = 40
	engine.Apply(battle.EffectSpec{Type: "regen"}, &unit)
	engine.EndOfTurn("p1", &unit)
	engine.EndOfTurn("p1", &unit)
	if calls != 2 || unit.CurrentHP != 50 {
		t.Fatalf("expected two regen ticks to reach 50 hp, calls=%d hp=%d", calls, unit.CurrentHP)
	}
}
