// Package battletest builds small battles for tests.
package battletest

import "coffeemon-arena/server/internal/battle"

// Unit returns a unit with neutral modifiers: never dodges, always hits,
// never crits or blocks.
func Unit(id int, name string, hp, attack, defense int, moves ...battle.Move) battle.CombatUnit {
	return battle.CombatUnit{
		ID:        id,
		Name:      name,
		Level:     5,
		CurrentHP: hp,
		MaxHP:     hp,
		CanAct:    true,
		Attack:    attack,
		Defense:   defense,
		Speed:     10,
		Moves:     moves,
		Modifiers: battle.Modifiers{
			AttackModifier:  1,
			DefenseModifier: 1,
			HitChance:       1,
		},
	}
}

// Strike is a plain attack move.
func Strike(id, power int) battle.Move {
	return battle.Move{ID: id, Name: "Strike", Power: power, Category: battle.MoveAttack}
}

// Party returns three units whose moves are Strike(1, 20).
func Party(prefix string) []battle.CombatUnit {
	return []battle.CombatUnit{
		Unit(1, prefix+"-A", 100, 50, 10, Strike(1, 20)),
		Unit(2, prefix+"-B", 100, 40, 10, Strike(1, 20)),
		Unit(3, prefix+"-C", 100, 30, 10, Strike(1, 20)),
	}
}

// Started returns a battle in SUBMISSION with unit 0 active on both sides.
func Started(p1, p2 string, party1, party2 []battle.CombatUnit) *battle.BattleState {
	state := battle.NewBattleState("battle-test", p1, p2, party1, party2)
	state.Player1.SetActive(0)
	state.Player1.HasSelectedUnit = true
	state.Player2.SetActive(0)
	state.Player2.HasSelectedUnit = true
	state.Phase = battle.PhaseSubmission
	return state
}
