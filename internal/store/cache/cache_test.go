package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/battle/battletest"
	"coffeemon-arena/server/internal/events"
)

func newStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, Options{Prefix: "test", TTL: time.Minute}), s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	ctx := context.Background()
	state := battletest.Started("p1", "p2", battletest.Party("a"), battletest.Party("b"))
	state.Events = append(state.Events, events.NewNotifier(nil).Render(events.AttackHit{PlayerID: "p1", AttackerName: "a-A", TargetName: "b-A", MoveName: "Strike", Damage: 60}))

	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx, state.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Phase != battle.PhaseSubmission || loaded.Player1ID != "p1" || len(loaded.Player2.Units) != 3 {
		t.Fatalf("unexpected loaded state %+v", loaded)
	}
	if len(loaded.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(loaded.Events))
	}
	hit, ok := loaded.Events[0].Payload.(events.AttackHit)
	if !ok || hit.Damage != 60 {
		t.Fatalf("unexpected event payload %#v", loaded.Events[0].Payload)
	}
}

func TestActiveTracksFinish(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	ctx := context.Background()
	state := battletest.Started("p1", "p2", battletest.Party("a"), battletest.Party("b"))
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	ids, _ := store.Active(ctx)
	if len(ids) != 1 || ids[0] != state.ID {
		t.Fatalf("expected active battle, got %v", ids)
	}

	state.Phase = battle.PhaseFinished
	state.WinnerID = "p1"
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save finished: %v", err)
	}
	ids, _ = store.Active(ctx)
	if len(ids) != 0 {
		t.Fatalf("finished battle should leave the active set, got %v", ids)
	}
	if _, err := store.Load(ctx, state.ID); err != nil {
		t.Fatalf("finished snapshot should stay readable: %v", err)
	}
}

func TestDeleteAndExpiry(t *testing.T) {
	t.Parallel()

	store, mr := newStore(t)
	ctx := context.Background()
	state := battletest.Started("p1", "p2", battletest.Party("a"), battletest.Party("b"))
	store.Save(ctx, state)

	mr.FastForward(2 * time.Minute)
	if _, err := store.Load(ctx, state.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

	store.Save(ctx, state)
	if err := store.Delete(ctx, state.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, state.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	ids, _ := store.Active(ctx)
	if len(ids) != 0 {
		t.Fatalf("delete should clear active set, got %v", ids)
	}
}

func TestSaveRejectsMissingID(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	if err := store.Save(context.Background(), &battle.BattleState{}); err == nil {
		t.Fatalf("expected error")
	}
}
