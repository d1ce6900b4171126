package logging_test

import (
	"context"
	"testing"
	"time"

	"coffeemon-arena/server/logging"
	"coffeemon-arena/server/logging/sinks"
)

func waitForEvents(t *testing.T, sink *sinks.MemorySink, n int) []logging.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := sink.Events(); len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %d", n, len(sink.Events()))
	return nil
}

func TestRouterFiltersSeverityAndStampsFields(t *testing.T) {
	t.Parallel()

	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo
	cfg.Fields = map[string]any{"service": "arena"}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	router, err := logging.NewRouter(logging.ClockFunc(func() time.Time { return fixed }), cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	t.Cleanup(func() { router.Close(context.Background()) })

	router.Publish(context.Background(), logging.Event{Type: "test.debug", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "test.info", Severity: logging.SeverityInfo, Extra: map[string]any{"service": "override"}})

	events := waitForEvents(t, memory, 1)
	if len(events) != 1 || events[0].Type != "test.info" {
		t.Fatalf("expected only the info event, got %+v", events)
	}
	if !events[0].Time.Equal(fixed) {
		t.Fatalf("expected clock time, got %v", events[0].Time)
	}
	if events[0].Extra["service"] != "override" {
		t.Fatalf("router field overwrote event extra: %v", events[0].Extra)
	}
	if router.Sink("memory") != memory {
		t.Fatalf("expected sink lookup by name")
	}
	if stats := router.Stats(); stats.Sinks != 1 {
		t.Fatalf("expected one sink, got %+v", stats)
	}
}

func TestRouterIgnoresUntypedAndClosed(t *testing.T) {
	t.Parallel()

	memory := sinks.NewMemorySink()
	router, _ := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: memory}})
	router.Publish(context.Background(), logging.Event{})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	if got := len(memory.Events()); got != 0 {
		t.Fatalf("expected no events, got %d", got)
	}
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestWithFieldsDoesNotMutateCaller(t *testing.T) {
	t.Parallel()

	var got logging.Event
	pub := logging.WithFields(logging.PublisherFunc(func(_ context.Context, e logging.Event) { got = e }), map[string]any{"battle": "b1"})
	original := logging.Event{Type: "x", Extra: map[string]any{"k": 1}}
	pub.Publish(context.Background(), original)
	if got.Extra["battle"] != "b1" || got.Extra["k"] != 1 {
		t.Fatalf("unexpected extra %v", got.Extra)
	}
	if _, leaked := original.Extra["battle"]; leaked {
		t.Fatalf("caller extra mutated")
	}
}

func TestMetricsAccumulate(t *testing.T) {
	t.Parallel()

	var m logging.Metrics
	m.TelemetryAdd("battles", 2)
	m.TelemetryStore("queue", 7)
	m.TelemetryAdd("battles", 1)
	snap := m.Snapshot()
	if snap["battles"] != 3 || snap["queue"] != 7 {
		t.Fatalf("unexpected snapshot %v", snap)
	}
	if keys := m.Keys(); len(keys) != 2 || keys[0] != "battles" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	cases := map[string]logging.Severity{"debug": logging.SeverityDebug, "warn": logging.SeverityWarn, "error": logging.SeverityError, "": logging.SeverityInfo}
	for in, want := range cases {
		if got := logging.ParseSeverity(in); got != want {
			t.Fatalf("ParseSeverity(%q) = %v, want %v", in, got, want)
		}
	}
}
