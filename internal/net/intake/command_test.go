package intake

import (
	"context"
	"errors"
	"testing"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/net/proto"
)

type recordingHub struct {
	calls  []string
	action battle.PendingAction
	index  int
	err    error
}

func (r *recordingHub) FindMatch(context.Context, string) (int, error) {
	r.calls = append(r.calls, "findMatch")
	return 1, r.err
}

func (r *recordingHub) FindBotMatch(context.Context, string) (string, error) {
	r.calls = append(r.calls, "findBotMatch")
	return "b1", r.err
}

func (r *recordingHub) LeaveQueue(context.Context, string) bool {
	r.calls = append(r.calls, "leaveQueue")
	return true
}

func (r *recordingHub) JoinBattle(_ context.Context, _, battleID string) error {
	r.calls = append(r.calls, "join:"+battleID)
	return r.err
}

func (r *recordingHub) SelectInitialUnit(_ context.Context, _, battleID string, index int) error {
	r.calls = append(r.calls, "select:"+battleID)
	r.index = index
	return r.err
}

func (r *recordingHub) SubmitAction(_ context.Context, _, battleID string, action battle.PendingAction) error {
	r.calls = append(r.calls, "action:"+battleID)
	r.action = action
	return r.err
}

func (r *recordingHub) LeaveBattle(_ context.Context, _, battleID string) error {
	r.calls = append(r.calls, "leave:"+battleID)
	return r.err
}

func TestDispatchRoutesEveryClientType(t *testing.T) {
	t.Parallel()

	hub := &recordingHub{}
	ctx := context.Background()
	messages := []proto.ClientMessage{
		{Type: proto.TypeFindMatch},
		{Type: proto.TypeFindBotMatch},
		{Type: proto.TypeLeaveQueue},
		{Type: proto.TypeJoinBattle, BattleID: "b1"},
		{Type: proto.TypeSelectInitial, BattleID: "b1", UnitIndex: 2},
		{Type: proto.TypeBattleAction, BattleID: "b1", ActionType: "useItem", Payload: proto.ActionPayload{ItemID: "potion", TargetIndex: 1}},
		{Type: proto.TypeLeaveBattle, BattleID: "b1"},
	}
	for _, msg := range messages {
		if err := Dispatch(ctx, hub, "p1", msg); err != nil {
			t.Fatalf("dispatch %s: %v", msg.Type, err)
		}
	}

	want := []string{"findMatch", "findBotMatch", "leaveQueue", "join:b1", "select:b1", "action:b1", "leave:b1"}
	if len(hub.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, hub.calls)
	}
	for i := range want {
		if hub.calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, hub.calls)
		}
	}
	if hub.index != 2 {
		t.Fatalf("expected unit index 2, got %d", hub.index)
	}
	if hub.action.Type != battle.ActionUseItem || hub.action.ItemID != "potion" || hub.action.TargetIndex != 1 || hub.action.PlayerID != "p1" {
		t.Fatalf("unexpected action %+v", hub.action)
	}
}

func TestDispatchUnknownTypeAndErrors(t *testing.T) {
	t.Parallel()

	hub := &recordingHub{}
	if err := Dispatch(context.Background(), hub, "p1", proto.ClientMessage{Type: "dance"}); !errors.Is(err, proto.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}

	hub.err = battle.ErrWrongPhase
	if err := Dispatch(context.Background(), hub, "p1", proto.ClientMessage{Type: proto.TypeJoinBattle, BattleID: "b1"}); !errors.Is(err, battle.ErrWrongPhase) {
		t.Fatalf("expected hub error to pass through, got %v", err)
	}
}
