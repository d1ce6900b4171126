// Package resolver validates and executes one submitted battle action.
package resolver

import (
	"math"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/effects"
	"coffeemon-arena/server/internal/events"
)

const (
	critMultiplier   = 1.5
	blockDivisor     = 2.0
	defaultLifesteal = 0.5
	defaultRevive    = 0.5
)

// Result is the outcome of resolving one action.
type Result struct {
	AdvanceTurn   bool
	Notifications []events.Payload
}

func (r *Result) add(payloads ...events.Payload) {
	r.Notifications = append(r.Notifications, payloads...)
}

// Resolver executes actions against a battle state.
type Resolver struct {
	effects *effects.Engine
	items   map[string]battle.Item
}

// New returns a resolver delegating status effects to engine and resolving
// items from catalog.
func New(engine *effects.Engine, catalog []battle.Item) *Resolver {
	if engine == nil {
		engine = effects.NewEngine(nil)
	}
	items := make(map[string]battle.Item, len(catalog))
	for _, item := range catalog {
		items[item.ID] = item
	}
	return &Resolver{effects: engine, items: items}
}

// Effects exposes the status effect engine used by the resolver.
func (r *Resolver) Effects() *effects.Engine {
	return r.effects
}

// Item looks up an item definition.
func (r *Resolver) Item(id string) (battle.Item, bool) {
	item, ok := r.items[id]
	return item, ok
}

// Validate checks action against state without mutating it. It returns a
// *battle.ValidationError describing the first problem, or nil.
func (r *Resolver) Validate(state *battle.BattleState, action battle.PendingAction) error {
	if notice := r.check(state, action); notice != nil {
		return battle.Reject(action.PlayerID, notice)
	}
	return nil
}

func (r *Resolver) check(state *battle.BattleState, action battle.PendingAction) events.Payload {
	player := state.Player(action.PlayerID)
	if player == nil {
		return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonUnknownAction}
	}
	active := player.Active()
	switch action.Type {
	case battle.ActionAttack, battle.ActionSupport:
		if active == nil {
			return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonNoActiveUnit}
		}
		if active.IsFainted {
			return events.KnockoutBlock{PlayerID: action.PlayerID, UnitName: active.Name}
		}
		move, ok := active.FindMove(action.MoveID)
		if !ok {
			return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonUnknownMove}
		}
		if action.Type == battle.ActionAttack && move.Category != battle.MoveAttack {
			return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonMoveNotAttack}
		}
		if action.Type == battle.ActionSupport && move.Category == battle.MoveAttack {
			return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonMoveNotSupport}
		}
		return nil
	case battle.ActionSwitch:
		return checkSwitch(player, action)
	case battle.ActionUseItem:
		return r.checkItem(player, action)
	case battle.ActionBlocked, battle.ActionSkip:
		return nil
	default:
		return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonUnknownAction}
	}
}

func checkSwitch(player *battle.PlayerBattleState, action battle.PendingAction) events.Payload {
	idx := action.NewIndex
	if idx < 0 || idx >= len(player.Units) {
		return events.SwitchFailedInvalidIndex{PlayerID: action.PlayerID, Index: idx}
	}
	target := &player.Units[idx]
	if player.ActiveUnitIndex != nil && *player.ActiveUnitIndex == idx {
		return events.SwitchFailedSameUnit{PlayerID: action.PlayerID, UnitName: target.Name}
	}
	if target.IsFainted {
		return events.SwitchFailedFaintedUnit{PlayerID: action.PlayerID, UnitName: target.Name}
	}
	return nil
}

func (r *Resolver) checkItem(player *battle.PlayerBattleState, action battle.PendingAction) events.Payload {
	item, ok := r.items[action.ItemID]
	if !ok {
		return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonUnknownItem}
	}
	if player.Inventory[item.ID] <= 0 {
		return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonItemUnavailable}
	}
	idx := action.TargetIndex
	if idx < 0 || idx >= len(player.Units) {
		return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonInvalidTarget}
	}
	target := &player.Units[idx]
	if (item.Kind == battle.ItemRevive) != target.IsFainted {
		return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonInvalidTarget}
	}
	if item.Kind == battle.ItemHeal && target.CurrentHP >= target.MaxHP {
		return events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonInvalidTarget}
	}
	return nil
}

// Resolve executes action. Validation happens before any mutation, so a
// rejected action leaves state untouched and reports AdvanceTurn false.
func (r *Resolver) Resolve(state *battle.BattleState, action battle.PendingAction, rng battle.Random) Result {
	if notice := r.check(state, action); notice != nil {
		return Result{AdvanceTurn: false, Notifications: []events.Payload{notice}}
	}
	player := state.Player(action.PlayerID)
	switch action.Type {
	case battle.ActionAttack:
		return r.attack(state, action, rng)
	case battle.ActionSupport:
		return r.support(state, action, rng)
	case battle.ActionSwitch:
		idx := action.NewIndex
		player.SetActive(idx)
		return Result{AdvanceTurn: true, Notifications: []events.Payload{
			events.SwitchSuccess{PlayerID: action.PlayerID, UnitName: player.Units[idx].Name},
		}}
	case battle.ActionUseItem:
		return r.useItem(player, action)
	case battle.ActionBlocked:
		return Result{AdvanceTurn: true, Notifications: []events.Payload{r.statusBlock(action.PlayerID, player.Active())}}
	default:
		return Result{AdvanceTurn: true, Notifications: []events.Payload{events.TurnSkipped{PlayerID: action.PlayerID}}}
	}
}

func (r *Resolver) statusBlock(playerID string, unit *battle.CombatUnit) events.Payload {
	notice := events.StatusBlock{PlayerID: playerID}
	if unit != nil {
		notice.UnitName = unit.Name
		if effect, ok := r.effects.Blocking(unit); ok {
			notice.Effect = string(effect)
		}
	}
	return notice
}

func (r *Resolver) attack(state *battle.BattleState, action battle.PendingAction, rng battle.Random) Result {
	attacker := state.Player(action.PlayerID).Active()
	if !attacker.CanAct {
		return Result{AdvanceTurn: true, Notifications: []events.Payload{r.statusBlock(action.PlayerID, attacker)}}
	}
	move, _ := attacker.FindMove(action.MoveID)
	defender := state.Player(state.Opponent(action.PlayerID)).Active()
	if defender == nil || defender.IsFainted {
		return Result{AdvanceTurn: true, Notifications: []events.Payload{
			events.ActionError{PlayerID: action.PlayerID, Reason: events.ReasonInvalidTarget},
		}}
	}

	res := Result{AdvanceTurn: true}
	if rng.Float64() < defender.Modifiers.DodgeChance || attacker.Modifiers.HitChance < rng.Float64() {
		res.add(events.AttackMiss{
			PlayerID:     action.PlayerID,
			AttackerName: attacker.Name,
			TargetName:   defender.Name,
			MoveName:     move.Name,
		})
		return res
	}

	multiplier := 1.0
	crit := rng.Float64() < attacker.Modifiers.CritChance
	if crit {
		multiplier = critMultiplier
	}
	raw := (float64(move.Power) +
		float64(attacker.Attack)*attacker.Modifiers.AttackModifier -
		float64(defender.Defense)*defender.Modifiers.DefenseModifier) * multiplier

	if rng.Float64() < defender.Modifiers.BlockChance {
		raw /= blockDivisor
		res.add(events.AttackBlocked{TargetName: defender.Name})
	}

	damage := int(math.Floor(raw))
	if damage < 1 {
		damage = 1
	}
	fainted := defender.TakeDamage(damage)
	if crit {
		res.add(events.AttackCrit{PlayerID: action.PlayerID, AttackerName: attacker.Name, TargetName: defender.Name, MoveName: move.Name, Damage: damage})
	} else {
		res.add(events.AttackHit{PlayerID: action.PlayerID, AttackerName: attacker.Name, TargetName: defender.Name, MoveName: move.Name, Damage: damage})
	}
	if fainted {
		defender.Faint()
		res.add(events.CoffeemonFainted{PlayerID: state.Opponent(action.PlayerID), UnitName: defender.Name})
	}

	for _, spec := range move.Effects {
		if !(rng.Float64() <= spec.Chance) {
			continue
		}
		if spec.Type == battle.EffectLifesteal {
			ratio := spec.Value
			if ratio == 0 {
				ratio = defaultLifesteal
			}
			if healed := attacker.Heal(int(math.Floor(float64(damage) * ratio))); healed > 0 {
				res.add(events.StatusHeal{UnitName: attacker.Name, Effect: string(battle.EffectLifesteal), Amount: healed})
			}
			continue
		}
		res.add(r.effects.Apply(spec, effectTarget(spec.Target, attacker, defender))...)
	}
	return res
}

func (r *Resolver) support(state *battle.BattleState, action battle.PendingAction, rng battle.Random) Result {
	user := state.Player(action.PlayerID).Active()
	if !user.CanAct {
		return Result{AdvanceTurn: true, Notifications: []events.Payload{r.statusBlock(action.PlayerID, user)}}
	}
	move, _ := user.FindMove(action.MoveID)
	enemy := state.Player(state.Opponent(action.PlayerID)).Active()

	res := Result{AdvanceTurn: true}
	res.add(events.SupportUsed{PlayerID: action.PlayerID, UnitName: user.Name, MoveName: move.Name})
	for _, spec := range move.Effects {
		if !(rng.Float64() <= spec.Chance) {
			continue
		}
		if spec.Type == battle.EffectLifesteal {
			continue
		}
		res.add(r.effects.Apply(spec, effectTarget(spec.Target, user, enemy))...)
	}
	return res
}

func effectTarget(target battle.EffectTarget, self, enemy *battle.CombatUnit) *battle.CombatUnit {
	switch target {
	case battle.TargetSelf, battle.TargetAlly:
		return self
	default:
		return enemy
	}
}

func (r *Resolver) useItem(player *battle.PlayerBattleState, action battle.PendingAction) Result {
	item := r.items[action.ItemID]
	target := &player.Units[action.TargetIndex]
	player.Inventory[item.ID]--

	res := Result{AdvanceTurn: true}
	res.add(events.ItemUsed{PlayerID: action.PlayerID, ItemName: item.Name, UnitName: target.Name})
	switch item.Kind {
	case battle.ItemHeal:
		healed := target.Heal(int(math.Floor(item.Value)))
		res.add(events.StatusHeal{UnitName: target.Name, Effect: item.Name, Amount: healed})
	case battle.ItemRevive:
		ratio := item.Value
		if ratio <= 0 {
			ratio = defaultRevive
		}
		r.effects.Cure(target, "")
		hp := int(math.Floor(float64(target.MaxHP) * ratio))
		if hp < 1 {
			hp = 1
		}
		target.IsFainted = false
		target.CanAct = true
		target.CurrentHP = hp
		res.add(events.StatusHeal{UnitName: target.Name, Effect: item.Name, Amount: hp})
	case battle.ItemCure:
		res.add(r.effects.Cure(target, item.Effect)...)
	}
	return res
}
