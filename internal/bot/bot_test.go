package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/battle/battletest"
)

func TestRandomStrategySelectsLivingUnit(t *testing.T) {
	t.Parallel()

	party := battletest.Party("bot")
	party[0].Faint()
	party[2].Faint()
	state := battle.NewBattleState("b1", "p1", "bot-1", battletest.Party("p"), party)
	s := NewRandomStrategy(1)

	d := s.Decide(state.ViewFor("bot-1"))
	if d.Select == nil || *d.Select != 1 {
		t.Fatalf("expected selection of the only living unit, got %+v", d)
	}
}

func TestRandomStrategySubmitsAttack(t *testing.T) {
	t.Parallel()

	state := battletest.Started("p1", "bot-1", battletest.Party("p"), battletest.Party("bot"))
	s := NewRandomStrategy(2)

	d := s.Decide(state.ViewFor("bot-1"))
	if d.Action == nil || d.Action.Type != battle.ActionAttack || d.Action.MoveID != 1 || d.Action.PlayerID != "bot-1" {
		t.Fatalf("expected attack, got %+v", d)
	}

	state.PendingActions["bot-1"] = *d.Action
	if d := s.Decide(state.ViewFor("bot-1")); d.Action != nil || d.Select != nil {
		t.Fatalf("bot must not resubmit, got %+v", d)
	}
}

func TestRandomStrategyForcedReplacement(t *testing.T) {
	t.Parallel()

	state := battletest.Started("p1", "bot-1", battletest.Party("p"), battletest.Party("bot"))
	state.Player2.Units[0].Faint()
	state.CurrentPlayerID = "bot-1"
	s := NewRandomStrategy(3)

	d := s.Decide(state.ViewFor("bot-1"))
	if d.Action == nil || d.Action.Type != battle.ActionSwitch || d.Action.NewIndex == 0 {
		t.Fatalf("expected switch away from fainted unit, got %+v", d)
	}

	state.CurrentPlayerID = "p1"
	if d := s.Decide(state.ViewFor("bot-1")); d.Action != nil {
		t.Fatalf("bot must wait for the other player's replacement")
	}
}

type fakeTarget struct {
	mu       sync.Mutex
	selected []int
	actions  []battle.PendingAction
	done     chan struct{}
}

func (f *fakeTarget) SelectInitialUnit(_ context.Context, _ string, index int) error {
	f.mu.Lock()
	f.selected = append(f.selected, index)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeTarget) Submit(_ context.Context, action battle.PendingAction) error {
	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func TestDriverActsInBackground(t *testing.T) {
	t.Parallel()

	target := &fakeTarget{done: make(chan struct{}, 4)}
	driver := &Driver{PlayerID: "bot-1", Target: target, Strategy: NewRandomStrategy(4)}
	state := battle.NewBattleState("b1", "p1", "bot-1", battletest.Party("p"), battletest.Party("bot"))

	driver.Observe(context.Background(), state)
	select {
	case <-target.done:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the bot to select")
	}
	target.mu.Lock()
	defer target.mu.Unlock()
	if len(target.selected) != 1 {
		t.Fatalf("expected one selection, got %v", target.selected)
	}
}

func TestNewIDHasPrefix(t *testing.T) {
	t.Parallel()

	if id := NewID(); !strings.HasPrefix(id, IDPrefix) || len(id) <= len(IDPrefix) {
		t.Fatalf("unexpected bot id %q", id)
	}
}

func TestDriverCoalescesSnapshotsWhileBusy(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	target := &blockingTarget{release: release, calls: make(chan battle.PendingAction, 4)}
	driver := &Driver{PlayerID: "bot-1", Target: target, Strategy: NewRandomStrategy(5)}

	selecting := battle.NewBattleState("b1", "p1", "bot-1", battletest.Party("p"), battletest.Party("bot"))
	driver.Observe(context.Background(), selecting)

	submitting := battletest.Started("p1", "bot-1", battletest.Party("p"), battletest.Party("bot"))
	driver.Observe(context.Background(), submitting)
	close(release)

	select {
	case action := <-target.calls:
		if action.Type != battle.ActionAttack {
			t.Fatalf("expected the coalesced snapshot to produce an attack, got %+v", action)
		}
	case <-time.After(time.Second):
		t.Fatalf("bot never acted on the snapshot that arrived while it was busy")
	}
}

type blockingTarget struct {
	release chan struct{}
	calls   chan battle.PendingAction
}

func (b *blockingTarget) SelectInitialUnit(context.Context, string, int) error {
	<-b.release
	return nil
}

func (b *blockingTarget) Submit(_ context.Context, action battle.PendingAction) error {
	b.calls <- action
	return nil
}
