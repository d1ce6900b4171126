package lifecycle

import (
	"context"

	"coffeemon-arena/server/logging"
)

const (
	// EventPlayerConnected is emitted when a player opens a connection.
	EventPlayerConnected logging.EventType = "lifecycle.player_connected"
	// EventPlayerDisconnected is emitted when a player's connection drops.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
	// EventPlayerReconnected is emitted when a player returns within the grace period.
	EventPlayerReconnected logging.EventType = "lifecycle.player_reconnected"
	// EventPlayerForfeited is emitted when a player loses by leaving.
	EventPlayerForfeited logging.EventType = "lifecycle.player_forfeited"
)

// ConnectionPayload captures connection metadata.
type ConnectionPayload struct {
	Language string `json:"language,omitempty"`
	BattleID string `json:"battleId,omitempty"`
}

// ForfeitPayload captures why a player forfeited.
type ForfeitPayload struct {
	BattleID string `json:"battleId"`
	Reason   string `json:"reason"`
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// PlayerConnected publishes a new connection.
func PlayerConnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ConnectionPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerConnected, actor, payload, extra)
}

// PlayerDisconnected publishes a dropped connection.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ConnectionPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerDisconnected, actor, payload, extra)
}

// PlayerReconnected publishes a reconnection inside the grace period.
func PlayerReconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ConnectionPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerReconnected, actor, payload, extra)
}

// PlayerForfeited publishes a forfeit.
func PlayerForfeited(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ForfeitPayload, extra map[string]any) {
	publish(ctx, pub, EventPlayerForfeited, actor, payload, extra)
}
