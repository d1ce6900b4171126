package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"coffeemon-arena/server/internal/config"
	"coffeemon-arena/server/internal/telemetry"
	"coffeemon-arena/server/logging"
	loggingSinks "coffeemon-arena/server/logging/sinks"
)

func testSettings(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		SubmissionTimeout: time.Minute,
		SelectionTimeout:  time.Minute,
		DisconnectGrace:   time.Second,
		TimeoutPolicy:     "skip",
		Language:          "pt-BR",
		DBPath:            filepath.Join(t.TempDir(), "records.db"),
		LogSinks:          []string{"memory"},
		LogLevel:          "info",
		BotEnabled:        true,
		RosterSize:        3,
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	logger, _ := telemetry.Nop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Settings: testSettings(t), Logger: logger, Listener: listener})
	}()

	url := "http://" + listener.Addr().String() + "/health"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(body) != "ok" {
				t.Fatalf("unexpected health body %q", body)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("run did not stop after cancellation")
	}
}

func TestNewRouterHonoursSinkSelection(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.LogSinks = []string{"memory", "json"}
	settings.LogJSONPath = filepath.Join(t.TempDir(), "events.jsonl")

	router, err := newRouter(settings)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	t.Cleanup(func() { router.Close(context.Background()) })

	if router.Stats().Sinks != 2 {
		t.Fatalf("expected two sinks, got %d", router.Stats().Sinks)
	}
	memory, ok := router.Sink("memory").(*loggingSinks.MemorySink)
	if !ok {
		t.Fatalf("memory sink not registered")
	}
	router.Publish(context.Background(), logging.Event{Type: "test.event", Severity: logging.SeverityInfo})

	deadline := time.Now().Add(2 * time.Second)
	for len(memory.OfType("test.event")) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("event never reached the memory sink")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
