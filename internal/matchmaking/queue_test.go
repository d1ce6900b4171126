package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	loggingmatchmaking "coffeemon-arena/server/logging/matchmaking"
	"coffeemon-arena/server/logging/sinks"
)

func TestEnqueueRejectsInvalidPlayers(t *testing.T) {
	t.Parallel()

	q := NewQueue(Config{InBattle: func(id string) bool { return id == "busy" }})
	ctx := context.Background()
	if _, err := q.Enqueue(ctx, ""); !errors.Is(err, ErrEmptyPlayer) {
		t.Fatalf("expected empty player error, got %v", err)
	}
	if _, err := q.Enqueue(ctx, "busy"); !errors.Is(err, ErrInBattle) {
		t.Fatalf("expected in battle error, got %v", err)
	}
	ticket, err := q.Enqueue(ctx, "p1")
	if err != nil || ticket.ID == "" || ticket.PlayerID != "p1" {
		t.Fatalf("unexpected ticket %+v err=%v", ticket, err)
	}
	if _, err := q.Enqueue(ctx, "p1"); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("expected already queued, got %v", err)
	}
}

func TestPairingIsFIFO(t *testing.T) {
	t.Parallel()

	memory := sinks.NewMemorySink()
	q := NewQueue(Config{Publisher: memory})
	ctx := context.Background()
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, err := q.Enqueue(ctx, id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	if q.Position("p3") != 3 || q.Position("nobody") != 0 {
		t.Fatalf("unexpected positions")
	}

	pairing, ok := q.TryPair()
	if !ok || pairing.Player1.PlayerID != "p1" || pairing.Player2.PlayerID != "p2" {
		t.Fatalf("unexpected pairing %+v", pairing)
	}
	if _, ok := q.TryPair(); ok {
		t.Fatalf("one ticket must not pair")
	}
	if q.Len() != 1 || q.Position("p3") != 1 {
		t.Fatalf("expected p3 to move to the front")
	}
	if len(memory.OfType(loggingmatchmaking.EventEnqueued)) != 3 {
		t.Fatalf("expected enqueue log events")
	}
}

func TestLeaveRemovesTicket(t *testing.T) {
	t.Parallel()

	q := NewQueue(Config{})
	ctx := context.Background()
	q.Enqueue(ctx, "p1")
	q.Enqueue(ctx, "p2")
	if !q.Leave(ctx, "p1") {
		t.Fatalf("expected leave to find the ticket")
	}
	if q.Leave(ctx, "p1") {
		t.Fatalf("second leave must report false")
	}
	if _, ok := q.TryPair(); ok {
		t.Fatalf("a single remaining ticket must not pair")
	}
	if _, err := q.Enqueue(ctx, "p1"); err != nil {
		t.Fatalf("re-enqueue after leave: %v", err)
	}
}

func TestConcurrentPairingNeverDuplicates(t *testing.T) {
	t.Parallel()

	q := NewQueue(Config{})
	ctx := context.Background()
	const players = 200
	for i := 0; i < players; i++ {
		q.Enqueue(ctx, fmt.Sprintf("p%d", i))
	}

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				pairing, ok := q.TryPair()
				if !ok {
					return
				}
				mu.Lock()
				for _, id := range []string{pairing.Player1.PlayerID, pairing.Player2.PlayerID} {
					if seen[id] {
						t.Errorf("player %s paired twice", id)
					}
					seen[id] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != players || q.Len() != 0 {
		t.Fatalf("expected every player paired once, got %d (left %d)", len(seen), q.Len())
	}
}

func TestRunInvokesOnMatch(t *testing.T) {
	t.Parallel()

	matches := make(chan Pairing, 1)
	q := NewQueue(Config{OnMatch: func(p Pairing) { matches <- p }})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go q.Run(ctx)

	q.Enqueue(ctx, "p1")
	q.Enqueue(ctx, "p2")
	select {
	case p := <-matches:
		if p.Player1.PlayerID != "p1" || p.Player2.PlayerID != "p2" {
			t.Fatalf("unexpected pairing %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for match")
	}
}

func TestRequeuePutsTicketAtFront(t *testing.T) {
	t.Parallel()

	busy := map[string]bool{}
	q := NewQueue(Config{InBattle: func(id string) bool { return busy[id] }})
	ctx := context.Background()
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, err := q.Enqueue(ctx, id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	pairing, ok := q.TryPair()
	if !ok {
		t.Fatalf("expected a pairing")
	}

	position, err := q.Requeue(ctx, pairing.Player2)
	if err != nil || position != 1 {
		t.Fatalf("requeue: position=%d err=%v", position, err)
	}
	if q.Position("p2") != 1 || q.Position("p3") != 2 {
		t.Fatalf("expected p2 ahead of p3, got %d and %d", q.Position("p2"), q.Position("p3"))
	}
	if _, err := q.Requeue(ctx, pairing.Player2); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("expected already queued, got %v", err)
	}

	busy["p1"] = true
	if _, err := q.Requeue(ctx, pairing.Player1); !errors.Is(err, ErrInBattle) {
		t.Fatalf("expected in battle, got %v", err)
	}

	again, ok := q.TryPair()
	if !ok || again.Player1.PlayerID != "p2" || again.Player2.PlayerID != "p3" {
		t.Fatalf("unexpected pairing after requeue %+v", again)
	}
	if !again.Player1.JoinedAt.Equal(pairing.Player2.JoinedAt) {
		t.Fatalf("requeued ticket must keep its join time")
	}
}
