package server

import (
	"sync/atomic"

	"coffeemon-arena/server/internal/telemetry"
)

type telemetryCounters struct {
	bytesSent          atomic.Uint64
	messagesSent       atomic.Uint64
	lastBroadcastBytes atomic.Uint64
	debug              bool
	logger             telemetry.Logger
}

type telemetrySnapshot struct {
	BytesSent          uint64 `json:"bytesSent"`
	MessagesSent       uint64 `json:"messagesSent"`
	LastBroadcastBytes uint64 `json:"lastBroadcastBytes"`
}

func newTelemetryCounters(debug bool, logger telemetry.Logger) *telemetryCounters {
	return &telemetryCounters{debug: debug, logger: logger}
}

func (t *telemetryCounters) RecordBroadcast(bytes int) {
	if bytes < 0 {
		bytes = 0
	}
	total := t.bytesSent.Add(uint64(bytes))
	messages := t.messagesSent.Add(1)
	t.lastBroadcastBytes.Store(uint64(bytes))
	if t.debug && t.logger != nil {
		t.logger.Printf("[telemetry] bytes=%d totalBytes=%d messages=%d", bytes, total, messages)
	}
}

func (t *telemetryCounters) Snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		BytesSent:          t.bytesSent.Load(),
		MessagesSent:       t.messagesSent.Load(),
		LastBroadcastBytes: t.lastBroadcastBytes.Load(),
	}
}
