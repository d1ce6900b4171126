// Package matchmaking pairs waiting players into battles.
package matchmaking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"coffeemon-arena/server/internal/telemetry"
	"coffeemon-arena/server/logging"
	loggingmatchmaking "coffeemon-arena/server/logging/matchmaking"
)

var (
	ErrEmptyPlayer   = errors.New("player id is required")
	ErrAlreadyQueued = errors.New("player is already queued")
	ErrInBattle      = errors.New("player is already in a battle")
)

// Ticket is one waiting player.
type Ticket struct {
	ID       string
	PlayerID string
	JoinedAt time.Time
}

// Pairing is two tickets popped together. Player1 joined first.
type Pairing struct {
	Player1 Ticket
	Player2 Ticket
}

// Config wires the queue's collaborators. All fields are optional.
type Config struct {
	InBattle  func(playerID string) bool
	OnMatch   func(Pairing)
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Now       func() time.Time
}

// Queue is a FIFO of waiting tickets.
type Queue struct {
	mu      sync.Mutex
	waiting []Ticket
	cfg     Config
	wake    chan struct{}
}

func NewQueue(cfg Config) *Queue {
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Metrics == nil {
		_, cfg.Metrics = telemetry.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Queue{cfg: cfg, wake: make(chan struct{}, 1)}
}

// Enqueue adds a ticket for playerID.
func (q *Queue) Enqueue(ctx context.Context, playerID string) (Ticket, error) {
	if playerID == "" {
		return Ticket{}, ErrEmptyPlayer
	}
	if q.cfg.InBattle != nil && q.cfg.InBattle(playerID) {
		return Ticket{}, ErrInBattle
	}

	q.mu.Lock()
	if q.indexLocked(playerID) >= 0 {
		q.mu.Unlock()
		return Ticket{}, ErrAlreadyQueued
	}
	ticket := Ticket{ID: uuid.NewString(), PlayerID: playerID, JoinedAt: q.cfg.Now()}
	q.waiting = append(q.waiting, ticket)
	position := len(q.waiting)
	q.mu.Unlock()

	q.cfg.Metrics.Store(telemetry.MetricQueueLength, uint64(position))
	loggingmatchmaking.Enqueued(ctx, q.cfg.Publisher, logging.PlayerRef(playerID), loggingmatchmaking.TicketPayload{Ticket: ticket.ID, Position: position}, nil)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return ticket, nil
}

// Requeue puts a popped ticket back at the front of the line, keeping its
// original join time, and returns its new position.
func (q *Queue) Requeue(ctx context.Context, ticket Ticket) (int, error) {
	if ticket.PlayerID == "" {
		return 0, ErrEmptyPlayer
	}
	if q.cfg.InBattle != nil && q.cfg.InBattle(ticket.PlayerID) {
		return 0, ErrInBattle
	}

	q.mu.Lock()
	if q.indexLocked(ticket.PlayerID) >= 0 {
		q.mu.Unlock()
		return 0, ErrAlreadyQueued
	}
	q.waiting = append([]Ticket{ticket}, q.waiting...)
	remaining := len(q.waiting)
	q.mu.Unlock()

	q.cfg.Metrics.Store(telemetry.MetricQueueLength, uint64(remaining))
	loggingmatchmaking.Enqueued(ctx, q.cfg.Publisher, logging.PlayerRef(ticket.PlayerID), loggingmatchmaking.TicketPayload{Ticket: ticket.ID, Position: 1}, nil)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return 1, nil
}

// Leave removes playerID's ticket and reports whether one existed.
func (q *Queue) Leave(ctx context.Context, playerID string) bool {
	q.mu.Lock()
	idx := q.indexLocked(playerID)
	if idx >= 0 {
		q.waiting = append(q.waiting[:idx], q.waiting[idx+1:]...)
	}
	remaining := len(q.waiting)
	q.mu.Unlock()

	if idx < 0 {
		return false
	}
	q.cfg.Metrics.Store(telemetry.MetricQueueLength, uint64(remaining))
	loggingmatchmaking.Left(ctx, q.cfg.Publisher, logging.PlayerRef(playerID), nil)
	return true
}

// TryPair pops the two longest-waiting tickets.
func (q *Queue) TryPair() (Pairing, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiting) < 2 {
		return Pairing{}, false
	}
	pairing := Pairing{Player1: q.waiting[0], Player2: q.waiting[1]}
	q.waiting = append(q.waiting[:0], q.waiting[2:]...)
	q.cfg.Metrics.Store(telemetry.MetricQueueLength, uint64(len(q.waiting)))
	return pairing, true
}

// Run pairs tickets whenever the queue grows until ctx is done. OnMatch is
// called outside the queue lock.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
		for {
			pairing, ok := q.TryPair()
			if !ok {
				break
			}
			q.cfg.Metrics.Add(telemetry.MetricPairings, 1)
			wait := q.cfg.Now().Sub(pairing.Player1.JoinedAt)
			loggingmatchmaking.Paired(ctx, q.cfg.Publisher, logging.PlayerRef(pairing.Player1.PlayerID), logging.PlayerRef(pairing.Player2.PlayerID), loggingmatchmaking.PairedPayload{WaitMillis: wait.Milliseconds()}, nil)
			if q.cfg.OnMatch != nil {
				q.cfg.OnMatch(pairing)
			}
		}
	}
}

// Len reports how many tickets are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// Position returns playerID's 1-based place in line, or 0.
func (q *Queue) Position(playerID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexLocked(playerID) + 1
}

func (q *Queue) indexLocked(playerID string) int {
	for i, t := range q.waiting {
		if t.PlayerID == playerID {
			return i
		}
	}
	return -1
}
