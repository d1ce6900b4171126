// Package intake routes decoded client messages to the hub operation they
// name.
package intake

import (
	"context"
	"fmt"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/net/proto"
)

// Hub is the set of operations a client message can trigger.
type Hub interface {
	FindMatch(ctx context.Context, playerID string) (int, error)
	FindBotMatch(ctx context.Context, playerID string) (string, error)
	LeaveQueue(ctx context.Context, playerID string) bool
	JoinBattle(ctx context.Context, playerID, battleID string) error
	SelectInitialUnit(ctx context.Context, playerID, battleID string, index int) error
	SubmitAction(ctx context.Context, playerID, battleID string, action battle.PendingAction) error
	LeaveBattle(ctx context.Context, playerID, battleID string) error
}

// Dispatch runs msg on behalf of playerID.
func Dispatch(ctx context.Context, hub Hub, playerID string, msg proto.ClientMessage) error {
	switch msg.Type {
	case proto.TypeFindMatch:
		_, err := hub.FindMatch(ctx, playerID)
		return err
	case proto.TypeFindBotMatch:
		_, err := hub.FindBotMatch(ctx, playerID)
		return err
	case proto.TypeLeaveQueue:
		hub.LeaveQueue(ctx, playerID)
		return nil
	case proto.TypeJoinBattle:
		return hub.JoinBattle(ctx, playerID, msg.BattleID)
	case proto.TypeSelectInitial:
		return hub.SelectInitialUnit(ctx, playerID, msg.BattleID, msg.UnitIndex)
	case proto.TypeBattleAction:
		return hub.SubmitAction(ctx, playerID, msg.BattleID, msg.Action(playerID))
	case proto.TypeLeaveBattle:
		return hub.LeaveBattle(ctx, playerID, msg.BattleID)
	default:
		return fmt.Errorf("%w: %q", proto.ErrUnknownType, msg.Type)
	}
}
