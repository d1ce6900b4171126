package server

import (
	"strings"
	"sync"
	"testing"

	"coffeemon-arena/server/internal/telemetry"
)

func TestTelemetryCountersAccumulate(t *testing.T) {
	t.Parallel()

	counters := newTelemetryCounters(false, nil)
	counters.RecordBroadcast(120)
	counters.RecordBroadcast(80)
	counters.RecordBroadcast(-5)

	snapshot := counters.Snapshot()
	if snapshot.BytesSent != 200 {
		t.Fatalf("expected 200 bytes sent, got %d", snapshot.BytesSent)
	}
	if snapshot.MessagesSent != 3 {
		t.Fatalf("expected 3 messages, got %d", snapshot.MessagesSent)
	}
	if snapshot.LastBroadcastBytes != 0 {
		t.Fatalf("negative sizes should clamp to zero, got %d", snapshot.LastBroadcastBytes)
	}
}

func TestTelemetryDebugLogging(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		lines []string
	)
	logger := telemetry.LoggerFunc(func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, format)
	})

	newTelemetryCounters(false, logger).RecordBroadcast(10)
	if len(lines) != 0 {
		t.Fatalf("expected no debug output when disabled, got %v", lines)
	}

	newTelemetryCounters(true, logger).RecordBroadcast(10)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "[telemetry]") {
		t.Fatalf("expected one telemetry line, got %v", lines)
	}
}
