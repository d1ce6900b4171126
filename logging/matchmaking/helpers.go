package matchmaking

import (
	"context"

	"coffeemon-arena/server/logging"
)

const (
	// EventEnqueued is emitted when a player joins the queue.
	EventEnqueued logging.EventType = "matchmaking.enqueued"
	// EventLeft is emitted when a player leaves the queue.
	EventLeft logging.EventType = "matchmaking.left"
	// EventPaired is emitted when two tickets become a battle.
	EventPaired logging.EventType = "matchmaking.paired"
)

// TicketPayload describes a queue ticket.
type TicketPayload struct {
	Ticket   string `json:"ticket"`
	Position int    `json:"position"`
}

// PairedPayload describes a pairing.
type PairedPayload struct {
	WaitMillis int64 `json:"waitMillis"`
}

// Enqueued publishes a queue join.
func Enqueued(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload TicketPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEnqueued,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatchmaking,
		Payload:  payload,
		Extra:    extra,
	})
}

// Left publishes a queue departure.
func Left(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLeft,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatchmaking,
		Extra:    extra,
	})
}

// Paired publishes a pairing of two players.
func Paired(ctx context.Context, pub logging.Publisher, first, second logging.EntityRef, payload PairedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPaired,
		Actor:    first,
		Targets:  []logging.EntityRef{second},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatchmaking,
		Payload:  payload,
		Extra:    extra,
	})
}
