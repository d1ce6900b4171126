package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"coffeemon-arena/server/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "battle.damage",
		Tick:     3,
		Time:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Actor:    logging.PlayerRef("p1"),
		Targets:  []logging.EntityRef{logging.UnitRef("Lattelope")},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBattle,
		Payload:  map[string]int{"amount": 12},
		Extra:    map[string]any{"battleId": "b1"},
	}
}

func TestConsoleSinkFormatsLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"[battle.damage]", "turn=3", "actor=player:p1", "severity=info", "targets=unit:Lattelope", `payload={"amount":12}`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONSinkWritesOneObjectPerLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	sink.Write(sampleEvent())
	sink.Write(sampleEvent())
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != "battle.damage" || decoded["severity"] != "info" || decoded["turn"] != float64(3) {
		t.Fatalf("unexpected line %v", decoded)
	}
}

func TestZerologSinkEmitsStructuredRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewZerolog(&buf)
	event := sampleEvent()
	event.Severity = logging.SeverityWarn
	if err := sink.Write(event); err != nil {
		t.Fatalf("write: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if decoded["level"] != "warn" || decoded["type"] != "battle.damage" || decoded["battleId"] != "b1" {
		t.Fatalf("unexpected record %v", decoded)
	}
}

func TestMemorySinkCopiesEvents(t *testing.T) {
	t.Parallel()

	sink := NewMemorySink()
	event := sampleEvent()
	sink.Publish(context.Background(), event)
	event.Extra["battleId"] = "changed"
	got := sink.OfType("battle.damage")
	if len(got) != 1 || got[0].Extra["battleId"] != "b1" {
		t.Fatalf("expected isolated copy, got %+v", got)
	}
	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset sink to be empty")
	}
}
