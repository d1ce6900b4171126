package network

import (
	"context"

	"coffeemon-arena/server/logging"
)

const (
	// EventMalformedMessage is emitted when a client frame cannot be decoded.
	EventMalformedMessage logging.EventType = "network.malformed_message"
	// EventWriteFailed is emitted when a frame cannot be delivered.
	EventWriteFailed logging.EventType = "network.write_failed"
)

// MessagePayload captures what went wrong with a frame.
type MessagePayload struct {
	MessageType string `json:"messageType,omitempty"`
	Error       string `json:"error"`
}

// MalformedMessage publishes a debug event for a bad client frame.
func MalformedMessage(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload MessagePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMalformedMessage,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}

// WriteFailed publishes a warning when a send fails.
func WriteFailed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload MessagePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWriteFailed,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
