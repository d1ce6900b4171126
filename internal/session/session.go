package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/events"
	"coffeemon-arena/server/internal/telemetry"
	"coffeemon-arena/server/logging"
	loggingbattle "coffeemon-arena/server/logging/battle"
)

// ErrSessionClosed is returned to callers once the session goroutine has
// exited.
var ErrSessionClosed = errors.New("battle session closed")

// ErrSessionFatal is returned when a step panicked and the battle was
// cancelled.
var ErrSessionFatal = errors.New("battle session failed")

// Listener receives snapshots from the session goroutine. Implementations
// must not call back into the same session synchronously.
type Listener interface {
	StateChanged(snapshot *battle.BattleState)
	Finished(snapshot *battle.BattleState)
	Cancelled(snapshot *battle.BattleState, reason string)
}

// Config tunes a Session. Zero timeouts disable the bounded waits.
type Config struct {
	SelectionTimeout  time.Duration
	SubmissionTimeout time.Duration
	Publisher         logging.Publisher
	Logger            telemetry.Logger
	Metrics           telemetry.Metrics
}

type command struct {
	name   string
	player string
	apply  func(m *Machine) (Outcome, error)
	reply  chan error
}

// Session serializes every operation on one battle through a single
// goroutine.
type Session struct {
	id       string
	machine  *Machine
	listener Listener
	cfg      Config
	tracer   trace.Tracer

	cmds chan command
	done chan struct{}

	timer       *time.Timer
	deadlineKey string
}

// New wraps machine. Call Start to run the session goroutine.
func New(machine *Machine, listener Listener, cfg Config) *Session {
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Logger == nil || cfg.Metrics == nil {
		logger, metrics := telemetry.Nop()
		if cfg.Logger == nil {
			cfg.Logger = logger
		}
		if cfg.Metrics == nil {
			cfg.Metrics = metrics
		}
	}
	id := machine.State().ID
	return &Session{
		id:       id,
		machine:  machine,
		listener: listener,
		cfg:      cfg,
		tracer:   otel.Tracer("coffeemon-arena/server/internal/session"),
		cmds:     make(chan command),
		done:     make(chan struct{}),
	}
}

// ID returns the battle id.
func (s *Session) ID() string {
	return s.id
}

// Done is closed once the session goroutine exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start launches the session goroutine and broadcasts the initial state.
// Cancelling ctx cancels the battle with reason shutdown.
func (s *Session) Start(ctx context.Context) {
	go s.run(ctx)
}

// SelectInitialUnit records playerID's first active unit.
func (s *Session) SelectInitialUnit(ctx context.Context, playerID string, index int) error {
	return s.do(ctx, "select", playerID, func(m *Machine) (Outcome, error) {
		return m.SelectInitialUnit(playerID, index)
	})
}

// Submit queues or resolves an action.
func (s *Session) Submit(ctx context.Context, action battle.PendingAction) error {
	return s.do(ctx, "submit", action.PlayerID, func(m *Machine) (Outcome, error) {
		return m.Submit(action)
	})
}

// Forfeit ends the battle in favour of playerID's opponent.
func (s *Session) Forfeit(ctx context.Context, playerID, reason string) error {
	return s.do(ctx, "forfeit", playerID, func(m *Machine) (Outcome, error) {
		if !m.State().Participant(playerID) {
			return Outcome{}, battle.ErrNotParticipant
		}
		return m.Forfeit(playerID, reason), nil
	})
}

// Cancel tears the battle down without a winner.
func (s *Session) Cancel(ctx context.Context, reason string) error {
	return s.do(ctx, "cancel", "", func(m *Machine) (Outcome, error) {
		return m.Cancel(reason), nil
	})
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot(ctx context.Context) (*battle.BattleState, error) {
	var snapshot *battle.BattleState
	err := s.do(ctx, "snapshot", "", func(m *Machine) (Outcome, error) {
		snapshot = m.State().Clone()
		return Outcome{}, nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *Session) do(ctx context.Context, name, player string, apply func(m *Machine) (Outcome, error)) error {
	cmd := command{name: name, player: player, apply: apply, reply: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return ErrSessionClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.stopTimer()

	s.listener.StateChanged(s.machine.State().Clone())
	s.machine.ClearEvents()
	s.armTimer()

	for {
		var timeout <-chan time.Time
		if s.timer != nil {
			timeout = s.timer.C
		}
		select {
		case <-ctx.Done():
			s.handle(context.Background(), "shutdown", "", func(m *Machine) (Outcome, error) {
				return m.Cancel(battle.ReasonShutdown), nil
			})
			return
		case cmd := <-s.cmds:
			terminal, err := s.handle(ctx, cmd.name, cmd.player, cmd.apply)
			cmd.reply <- err
			if terminal {
				return
			}
		case <-timeout:
			s.timer = nil
			s.deadlineKey = ""
			s.cfg.Metrics.Add(telemetry.MetricTimeouts, 1)
			if terminal, _ := s.handle(ctx, "timeout", "", func(m *Machine) (Outcome, error) {
				return m.Timeout(), nil
			}); terminal {
				return
			}
		}
	}
}

// handle runs one machine operation inside a span, delivers its outcome,
// then resolves while both actions are queued. It reports whether the
// session reached a terminal state.
func (s *Session) handle(ctx context.Context, name, player string, apply func(m *Machine) (Outcome, error)) (bool, error) {
	state := s.machine.State()
	ctx, span := s.tracer.Start(ctx, "session."+name, trace.WithAttributes(
		attribute.String("battle.id", s.id),
		attribute.Int("battle.turn", state.Turn),
		attribute.String("battle.phase", string(state.Phase)),
	))
	defer span.End()

	out, err := s.guard(span, name, apply)
	if err != nil && !errors.Is(err, ErrSessionFatal) {
		s.cfg.Metrics.Add(telemetry.MetricRejections, 1)
		loggingbattle.Rejected(ctx, s.cfg.Publisher, uint64(state.Turn), logging.PlayerRef(player), loggingbattle.RejectedPayload{Code: name, Detail: err.Error()}, map[string]any{"battleId": s.id})
	}
	if s.emit(ctx, out) {
		return true, err
	}
	for s.machine.Ready() {
		if s.resolve(ctx) {
			return true, err
		}
	}
	s.armTimer()
	return false, err
}

// resolve runs one resolution step inside its own span.
func (s *Session) resolve(ctx context.Context) bool {
	state := s.machine.State()
	ctx, span := s.tracer.Start(ctx, "session.resolve", trace.WithAttributes(
		attribute.String("battle.id", s.id),
		attribute.Int("battle.turn", state.Turn),
	))
	defer span.End()

	out, _ := s.guard(span, "resolve", func(m *Machine) (Outcome, error) {
		return m.Resolve(), nil
	})
	span.SetAttributes(attribute.Int("battle.events", len(s.machine.State().Events)))
	return s.emit(ctx, out)
}

// guard converts a panic inside apply into a cancellation.
func (s *Session) guard(span trace.Span, name string, apply func(m *Machine) (Outcome, error)) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.cfg.Logger.Printf("[session] battle %s panicked during %s: %v", s.id, name, r)
			span.RecordError(fmt.Errorf("panic: %v", r))
			span.SetStatus(codes.Error, "panic")
			out = s.machine.Cancel(battle.ReasonFatal)
			err = ErrSessionFatal
		}
	}()
	return apply(s.machine)
}

func (s *Session) emit(ctx context.Context, out Outcome) bool {
	if !out.Changed {
		return false
	}
	state := s.machine.State()
	turn := uint64(state.Turn)
	battleRef := logging.BattleRef(s.id)

	if out.Resolved {
		s.cfg.Metrics.Add(telemetry.MetricResolutions, 1)
		s.publishEvents(ctx, state)
	}

	switch {
	case out.Cancelled:
		s.cfg.Metrics.Add(telemetry.MetricBattlesCancelled, 1)
		loggingbattle.Cancelled(ctx, s.cfg.Publisher, turn, battleRef, loggingbattle.EndPayload{Reason: out.Reason, Turns: state.Turn}, nil)
		s.listener.Cancelled(state.Clone(), out.Reason)
		return true
	case out.Finished:
		s.cfg.Metrics.Add(telemetry.MetricBattlesFinished, 1)
		loggingbattle.Finished(ctx, s.cfg.Publisher, turn, battleRef, loggingbattle.EndPayload{Winner: state.WinnerID, Reason: state.EndReason, Turns: state.Turn}, nil)
		snapshot := state.Clone()
		s.listener.StateChanged(snapshot)
		s.listener.Finished(snapshot)
		s.machine.ClearEvents()
		return true
	default:
		s.listener.StateChanged(state.Clone())
		s.machine.ClearEvents()
		return false
	}
}

func (s *Session) publishEvents(ctx context.Context, state *battle.BattleState) {
	turn := uint64(state.Turn)
	kinds := make([]string, 0, len(state.Events))
	extra := map[string]any{"battleId": s.id}
	for _, evt := range state.Events {
		kinds = append(kinds, string(evt.Type))
		switch p := evt.Payload.(type) {
		case events.AttackHit:
			loggingbattle.Damage(ctx, s.cfg.Publisher, turn, logging.PlayerRef(p.PlayerID), logging.UnitRef(p.TargetName), loggingbattle.DamagePayload{Move: p.MoveName, Amount: p.Damage}, extra)
		case events.AttackCrit:
			loggingbattle.Damage(ctx, s.cfg.Publisher, turn, logging.PlayerRef(p.PlayerID), logging.UnitRef(p.TargetName), loggingbattle.DamagePayload{Move: p.MoveName, Amount: p.Damage, Critical: true}, extra)
		case events.StatusDamage:
			loggingbattle.Damage(ctx, s.cfg.Publisher, turn, logging.UnitRef(p.UnitName), logging.UnitRef(p.UnitName), loggingbattle.DamagePayload{StatusEffect: p.Effect, Amount: p.Damage}, extra)
		case events.CoffeemonFainted:
			loggingbattle.Defeat(ctx, s.cfg.Publisher, turn, logging.PlayerRef(p.PlayerID), loggingbattle.DefeatPayload{Unit: p.UnitName}, extra)
		case events.StatusApplied:
			loggingbattle.StatusApplied(ctx, s.cfg.Publisher, turn, logging.UnitRef(p.UnitName), loggingbattle.StatusAppliedPayload{Effect: p.Effect, Duration: p.Duration}, extra)
		}
	}
	loggingbattle.TurnResolved(ctx, s.cfg.Publisher, turn, logging.BattleRef(s.id), loggingbattle.TurnResolvedPayload{Events: kinds, Phase: string(state.Phase)}, nil)
}

// armTimer starts the bounded wait for the current phase whenever the
// phase, turn or forced player changed since the last arm.
func (s *Session) armTimer() {
	state := s.machine.State()
	key := fmt.Sprintf("%s/%d/%s", state.Phase, state.Turn, state.CurrentPlayerID)
	if key == s.deadlineKey && s.timer != nil {
		return
	}
	s.stopTimer()
	s.deadlineKey = key

	var wait time.Duration
	switch state.Phase {
	case battle.PhaseSelection:
		wait = s.cfg.SelectionTimeout
	case battle.PhaseSubmission:
		wait = s.cfg.SubmissionTimeout
	}
	if wait > 0 {
		s.timer = time.NewTimer(wait)
	}
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
