// Package bot drives the computer-controlled side of PvE battles.
package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/telemetry"
)

// IDPrefix marks generated bot player ids.
const IDPrefix = "bot-"

// NewID returns a fresh bot player id.
func NewID() string {
	return IDPrefix + uuid.NewString()
}

// Decision is what the bot wants to do next. Exactly one of Select or
// Action is set, or neither when it has nothing to do.
type Decision struct {
	Select *int
	Action *battle.PendingAction
}

// Strategy picks a decision from the bot's own view.
type Strategy interface {
	Decide(view battle.PlayerView) Decision
}

// RandomStrategy picks uniformly among legal attacks and switches.
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomStrategy(seed int64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomStrategy) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *RandomStrategy) Decide(view battle.PlayerView) Decision {
	self := view.Player1
	if view.ViewerID == view.Player2ID {
		self = view.Player2
	}
	switch view.Phase {
	case battle.PhaseSelection:
		if self.HasSelectedUnit {
			return Decision{}
		}
		if idx := s.pickAlive(self, -1); idx >= 0 {
			return Decision{Select: &idx}
		}
	case battle.PhaseSubmission:
		if view.PendingActionStatus[view.ViewerID] {
			return Decision{}
		}
		if view.CurrentPlayerID != "" {
			if view.CurrentPlayerID != view.ViewerID {
				return Decision{}
			}
			if idx := s.pickAlive(self, activeIndex(self)); idx >= 0 {
				return Decision{Action: &battle.PendingAction{Type: battle.ActionSwitch, PlayerID: view.ViewerID, NewIndex: idx}}
			}
			return Decision{}
		}
		active := self.Active()
		if active == nil {
			return Decision{}
		}
		var attacks []battle.Move
		for _, m := range active.Moves {
			if m.Category == battle.MoveAttack {
				attacks = append(attacks, m)
			}
		}
		if len(attacks) > 0 {
			move := attacks[s.intn(len(attacks))]
			return Decision{Action: &battle.PendingAction{Type: battle.ActionAttack, PlayerID: view.ViewerID, MoveID: move.ID}}
		}
		if len(active.Moves) > 0 {
			move := active.Moves[s.intn(len(active.Moves))]
			return Decision{Action: &battle.PendingAction{Type: battle.ActionSupport, PlayerID: view.ViewerID, MoveID: move.ID}}
		}
	}
	return Decision{}
}

func activeIndex(p battle.PlayerBattleState) int {
	if p.ActiveUnitIndex == nil {
		return -1
	}
	return *p.ActiveUnitIndex
}

// pickAlive returns a random non-fainted index other than skip, or -1.
func (s *RandomStrategy) pickAlive(p battle.PlayerBattleState, skip int) int {
	var candidates []int
	for i, u := range p.Units {
		if !u.IsFainted && i != skip {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[s.intn(len(candidates))]
}

// Target is the part of a battle session the bot acts on.
type Target interface {
	SelectInitialUnit(ctx context.Context, playerID string, index int) error
	Submit(ctx context.Context, action battle.PendingAction) error
}

// Driver reacts to battle updates on behalf of one bot player. Observe
// never blocks the caller; snapshots arriving while the bot is acting are
// coalesced and the latest one is decided on afterwards.
type Driver struct {
	PlayerID string
	Target   Target
	Strategy Strategy
	Delay    time.Duration
	Logger   telemetry.Logger

	mu     sync.Mutex
	busy   bool
	latest *battle.BattleState
}

// Observe inspects a snapshot and acts in the background when the bot
// has something to do.
func (d *Driver) Observe(ctx context.Context, snapshot *battle.BattleState) {
	if snapshot == nil {
		return
	}
	d.mu.Lock()
	if d.busy {
		d.latest = snapshot
		d.mu.Unlock()
		return
	}
	d.busy = true
	d.mu.Unlock()

	go d.loop(ctx, snapshot)
}

func (d *Driver) loop(ctx context.Context, snapshot *battle.BattleState) {
	for snapshot != nil {
		d.act(ctx, snapshot)

		d.mu.Lock()
		snapshot, d.latest = d.latest, nil
		if snapshot == nil {
			d.busy = false
		}
		d.mu.Unlock()
	}
}

func (d *Driver) act(ctx context.Context, snapshot *battle.BattleState) {
	if snapshot.Finished() {
		return
	}
	decision := d.Strategy.Decide(snapshot.ViewFor(d.PlayerID))
	if decision.Select == nil && decision.Action == nil {
		return
	}
	if d.Delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.Delay):
		}
	}
	var err error
	if decision.Select != nil {
		err = d.Target.SelectInitialUnit(ctx, d.PlayerID, *decision.Select)
	} else {
		err = d.Target.Submit(ctx, *decision.Action)
	}
	if err != nil && d.Logger != nil {
		d.Logger.Printf("[bot] %s action rejected: %v", d.PlayerID, err)
	}
}
