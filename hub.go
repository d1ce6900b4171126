package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/text/language"

	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/bot"
	"coffeemon-arena/server/internal/events"
	"coffeemon-arena/server/internal/matchmaking"
	"coffeemon-arena/server/internal/net/proto"
	"coffeemon-arena/server/internal/resolver"
	"coffeemon-arena/server/internal/roster"
	"coffeemon-arena/server/internal/session"
	"coffeemon-arena/server/internal/store/cache"
	"coffeemon-arena/server/internal/store/records"
	"coffeemon-arena/server/internal/telemetry"
	"coffeemon-arena/server/logging"
	"coffeemon-arena/server/logging/lifecycle"
	"coffeemon-arena/server/logging/network"
)

var (
	ErrUnknownBattle = errors.New("unknown battle")
	ErrBotDisabled   = errors.New("bot battles are disabled")
	ErrHubClosed     = errors.New("hub is closed")
)

const writeWait = 10 * time.Second

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// HubConfig wires the hub's collaborators and timeouts.
type HubConfig struct {
	SelectionTimeout  time.Duration
	SubmissionTimeout time.Duration
	DisconnectGrace   time.Duration
	TimeoutPolicy     session.TimeoutPolicy
	// Seed makes every battle's RNG deterministic when set.
	Seed           string
	Language       language.Tag
	BotEnabled     bool
	BotDelay       time.Duration
	DebugTelemetry bool

	Roster    roster.Source
	Records   records.Store
	Cache     cache.Store
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

// DefaultHubConfig returns the production timeouts with nop collaborators.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SelectionTimeout:  60 * time.Second,
		SubmissionTimeout: 60 * time.Second,
		DisconnectGrace:   30 * time.Second,
		TimeoutPolicy:     session.PolicySkip,
		Language:          events.BaseLanguage,
		BotEnabled:        true,
		BotDelay:          500 * time.Millisecond,
	}
}

// Hub owns connected players, the matchmaking queue and every live battle.
type Hub struct {
	cfg      HubConfig
	queue    *matchmaking.Queue
	ctx      context.Context
	cancel   context.CancelFunc
	counters *telemetryCounters

	mu           sync.Mutex
	closed       bool
	subscribers  map[string]*subscriber
	battles      map[string]*liveBattle
	playerBattle map[string]string
	grace        map[string]*graceEntry
}

type subscriber struct {
	conn Conn
	lang language.Tag
	mu   sync.Mutex
}

type liveBattle struct {
	id        string
	session   *session.Session
	players   [2]string
	bot       *bot.Driver
	startedAt time.Time
}

func (b *liveBattle) opponent(playerID string) string {
	if b.players[0] == playerID {
		return b.players[1]
	}
	return b.players[0]
}

type graceEntry struct {
	battleID string
	timer    *time.Timer
}

// NewHub builds a hub. Call Run to start pairing and Close to shut down.
func NewHub(cfg HubConfig) *Hub {
	if cfg.Logger == nil || cfg.Metrics == nil {
		logger, metrics := telemetry.Nop()
		if cfg.Logger == nil {
			cfg.Logger = logger
		}
		if cfg.Metrics == nil {
			cfg.Metrics = metrics
		}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Records == nil {
		cfg.Records = records.Nop{}
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.Nop{}
	}
	if cfg.Language == (language.Tag{}) {
		cfg.Language = events.BaseLanguage
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:          cfg,
		ctx:          ctx,
		cancel:       cancel,
		counters:     newTelemetryCounters(cfg.DebugTelemetry, cfg.Logger),
		subscribers:  make(map[string]*subscriber),
		battles:      make(map[string]*liveBattle),
		playerBattle: make(map[string]string),
		grace:        make(map[string]*graceEntry),
	}
	h.queue = matchmaking.NewQueue(matchmaking.Config{
		InBattle:  h.inBattle,
		OnMatch:   h.onMatch,
		Publisher: cfg.Publisher,
		Metrics:   cfg.Metrics,
	})
	return h
}

// Run pairs queued players until ctx is done or the hub closes.
func (h *Hub) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	h.queue.Run(ctx)
}

func (h *Hub) inBattle(playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.playerBattle[playerID]
	return ok
}

// Connect registers conn for playerID, replacing any older connection. A
// player returning inside the grace period gets the full battle snapshot
// and the opponent is told.
func (h *Hub) Connect(ctx context.Context, playerID string, conn Conn, lang language.Tag) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	previous := h.subscribers[playerID]
	h.subscribers[playerID] = &subscriber{conn: conn, lang: events.MatchLanguage(lang)}
	connected := len(h.subscribers)
	reconnected := false
	if entry, ok := h.grace[playerID]; ok {
		entry.timer.Stop()
		delete(h.grace, playerID)
		reconnected = true
	}
	live := h.battleForLocked(playerID)
	h.mu.Unlock()

	if previous != nil && previous.conn != conn {
		previous.conn.Close()
	}
	h.cfg.Metrics.Store(telemetry.MetricConnections, uint64(connected))

	battleID := ""
	if live != nil {
		battleID = live.id
	}
	lifecycle.PlayerConnected(ctx, h.cfg.Publisher, logging.PlayerRef(playerID), lifecycle.ConnectionPayload{Language: lang.String(), BattleID: battleID}, nil)

	if live == nil {
		return nil
	}
	if err := h.sendSnapshot(ctx, live, playerID); err != nil {
		h.cfg.Logger.Printf("[hub] snapshot for reconnecting %s failed: %v", playerID, err)
	}
	if reconnected {
		lifecycle.PlayerReconnected(ctx, h.cfg.Publisher, logging.PlayerRef(playerID), lifecycle.ConnectionPayload{BattleID: live.id}, nil)
		h.send(ctx, live.opponent(playerID), proto.NewPlayerStatus(proto.TypePlayerReconnected, live.id, playerID))
	}
	return nil
}

// Disconnect drops conn for playerID. A nil conn matches any connection.
// Players in a live battle get DisconnectGrace to come back before they
// forfeit.
func (h *Hub) Disconnect(ctx context.Context, playerID string, conn Conn) {
	h.mu.Lock()
	sub, ok := h.subscribers[playerID]
	if !ok || (conn != nil && sub.conn != conn) {
		h.mu.Unlock()
		return
	}
	delete(h.subscribers, playerID)
	connected := len(h.subscribers)
	live := h.battleForLocked(playerID)
	if live != nil && !h.closed {
		if existing, ok := h.grace[playerID]; ok {
			existing.timer.Stop()
		}
		entry := &graceEntry{battleID: live.id}
		entry.timer = time.AfterFunc(h.cfg.DisconnectGrace, func() {
			h.expireGrace(playerID, entry)
		})
		h.grace[playerID] = entry
	}
	h.mu.Unlock()

	sub.conn.Close()
	h.cfg.Metrics.Store(telemetry.MetricConnections, uint64(connected))
	h.queue.Leave(ctx, playerID)

	payload := lifecycle.ConnectionPayload{Language: sub.lang.String()}
	if live != nil {
		payload.BattleID = live.id
	}
	lifecycle.PlayerDisconnected(ctx, h.cfg.Publisher, logging.PlayerRef(playerID), payload, nil)
	if live != nil {
		h.send(ctx, live.opponent(playerID), proto.NewPlayerStatus(proto.TypeOpponentDisconnected, live.id, playerID))
	}
}

func (h *Hub) expireGrace(playerID string, entry *graceEntry) {
	h.mu.Lock()
	if h.grace[playerID] != entry {
		h.mu.Unlock()
		return
	}
	delete(h.grace, playerID)
	live := h.battles[entry.battleID]
	h.mu.Unlock()

	if live == nil {
		return
	}
	if err := live.session.Forfeit(h.ctx, playerID, battle.ReasonDisconnect); err != nil {
		h.cfg.Logger.Printf("[hub] disconnect forfeit for %s in %s failed: %v", playerID, live.id, err)
		return
	}
	lifecycle.PlayerForfeited(h.ctx, h.cfg.Publisher, logging.PlayerRef(playerID), lifecycle.ForfeitPayload{BattleID: live.id, Reason: battle.ReasonDisconnect}, nil)
}

// FindMatch queues playerID and returns its position.
func (h *Hub) FindMatch(ctx context.Context, playerID string) (int, error) {
	if h.isClosed() {
		return 0, ErrHubClosed
	}
	if _, err := h.queue.Enqueue(ctx, playerID); err != nil {
		return 0, err
	}
	position := h.queue.Position(playerID)
	if position > 0 {
		h.send(ctx, playerID, proto.NewQueueStatus(proto.TypeQueueJoined, position))
	}
	return position, nil
}

// LeaveQueue removes playerID's ticket.
func (h *Hub) LeaveQueue(ctx context.Context, playerID string) bool {
	if !h.queue.Leave(ctx, playerID) {
		return false
	}
	h.send(ctx, playerID, proto.NewQueueStatus(proto.TypeQueueLeft, 0))
	return true
}

// FindBotMatch starts a battle against the built-in bot.
func (h *Hub) FindBotMatch(ctx context.Context, playerID string) (string, error) {
	if !h.cfg.BotEnabled {
		return "", ErrBotDisabled
	}
	if h.inBattle(playerID) {
		return "", matchmaking.ErrInBattle
	}
	h.queue.Leave(ctx, playerID)
	return h.startBattle(ctx, playerID, bot.NewID(), true)
}

// playerError ties a battle start failure to the player that caused it.
type playerError struct {
	playerID string
	err      error
}

func (e *playerError) Error() string { return e.playerID + ": " + e.err.Error() }

func (e *playerError) Unwrap() error { return e.err }

// onMatch starts a battle for a pairing. When one player cannot start, the
// partner goes back to the front of the queue.
func (h *Hub) onMatch(pairing matchmaking.Pairing) {
	p1, p2 := pairing.Player1.PlayerID, pairing.Player2.PlayerID
	_, err := h.startBattle(h.ctx, p1, p2, false)
	if err == nil {
		return
	}
	h.cfg.Logger.Printf("[hub] failed to start battle for %s vs %s: %v", p1, p2, err)

	var failed *playerError
	if !errors.As(err, &failed) {
		for _, id := range []string{p1, p2} {
			h.send(h.ctx, id, h.errorMessage(id, "", err))
		}
		return
	}
	partner := pairing.Player1
	if failed.playerID == p1 {
		partner = pairing.Player2
	}
	h.send(h.ctx, failed.playerID, h.errorMessage(failed.playerID, "", failed.err))
	h.requeue(partner)
}

// requeue returns a blameless ticket to the front of the queue while its
// player is still connected.
func (h *Hub) requeue(ticket matchmaking.Ticket) {
	h.mu.Lock()
	_, connected := h.subscribers[ticket.PlayerID]
	h.mu.Unlock()
	if !connected || h.isClosed() {
		return
	}
	position, err := h.queue.Requeue(h.ctx, ticket)
	if err != nil {
		h.cfg.Logger.Printf("[hub] requeue %s failed: %v", ticket.PlayerID, err)
		if !errors.Is(err, matchmaking.ErrInBattle) {
			h.send(h.ctx, ticket.PlayerID, proto.NewQueueStatus(proto.TypeQueueLeft, 0))
		}
		return
	}
	h.send(h.ctx, ticket.PlayerID, proto.NewQueueStatus(proto.TypeQueueJoined, position))
}

func (h *Hub) startBattle(ctx context.Context, p1, p2 string, isBot bool) (string, error) {
	if h.cfg.Roster == nil {
		return "", errors.New("no roster configured")
	}
	party1, err := h.cfg.Roster.Party(ctx, p1)
	if err != nil {
		return "", &playerError{playerID: p1, err: err}
	}
	party2, err := h.cfg.Roster.Party(ctx, p2)
	if err != nil {
		return "", &playerError{playerID: p2, err: err}
	}

	id := uuid.NewString()
	state := battle.NewBattleState(id, p1, p2, party1.Units, party2.Units)
	state.Player1.Inventory = party1.Inventory
	state.Player2.Inventory = party2.Inventory
	state.IsBotBattle = isBot

	rng, err := battle.NewSessionRNG(h.cfg.Seed, id)
	if err != nil {
		return "", err
	}
	machine := session.NewMachine(state, resolver.New(nil, h.cfg.Roster.Items()), rng, events.NewFormatter(h.cfg.Language), h.cfg.TimeoutPolicy)
	live := &liveBattle{id: id, players: [2]string{p1, p2}, startedAt: time.Now()}
	live.session = session.New(machine, &battleListener{hub: h, battle: live}, session.Config{
		SelectionTimeout:  h.cfg.SelectionTimeout,
		SubmissionTimeout: h.cfg.SubmissionTimeout,
		Publisher:         h.cfg.Publisher,
		Logger:            h.cfg.Logger,
		Metrics:           h.cfg.Metrics,
	})
	if isBot {
		live.bot = &bot.Driver{
			PlayerID: p2,
			Target:   live.session,
			Strategy: bot.NewRandomStrategy(battle.DeterministicSeedValue(h.cfg.Seed, "bot/"+id)),
			Delay:    h.cfg.BotDelay,
			Logger:   h.cfg.Logger,
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return "", ErrHubClosed
	}
	for _, pid := range live.players {
		if _, busy := h.playerBattle[pid]; busy {
			h.mu.Unlock()
			return "", &playerError{playerID: pid, err: matchmaking.ErrInBattle}
		}
	}
	h.battles[id] = live
	h.playerBattle[p1] = id
	h.playerBattle[p2] = id
	h.mu.Unlock()

	if err := h.cfg.Records.Create(ctx, records.Record{BattleID: id, Player1ID: p1, Player2ID: p2, IsBot: isBot, StartedAt: live.startedAt}); err != nil {
		h.cfg.Logger.Printf("[hub] record create for %s failed: %v", id, err)
	}
	h.cfg.Metrics.Add(telemetry.MetricBattlesStarted, 1)

	h.send(ctx, p1, proto.NewMatchFound(id, p2, isBot))
	h.send(ctx, p2, proto.NewMatchFound(id, p1, isBot))
	live.session.Start(h.ctx)
	return id, nil
}

// JoinBattle sends playerID the full snapshot of a battle it takes part in.
func (h *Hub) JoinBattle(ctx context.Context, playerID, battleID string) error {
	live, err := h.participantBattle(playerID, battleID)
	if err != nil {
		return err
	}
	return h.sendSnapshot(ctx, live, playerID)
}

// SelectInitialUnit forwards a SELECTION pick.
func (h *Hub) SelectInitialUnit(ctx context.Context, playerID, battleID string, index int) error {
	live, err := h.participantBattle(playerID, battleID)
	if err != nil {
		return err
	}
	return live.session.SelectInitialUnit(ctx, playerID, index)
}

// SubmitAction forwards a SUBMISSION action. The action's player is
// always the caller.
func (h *Hub) SubmitAction(ctx context.Context, playerID, battleID string, action battle.PendingAction) error {
	live, err := h.participantBattle(playerID, battleID)
	if err != nil {
		return err
	}
	action.PlayerID = playerID
	return live.session.Submit(ctx, action)
}

// LeaveBattle forfeits playerID's battle.
func (h *Hub) LeaveBattle(ctx context.Context, playerID, battleID string) error {
	live, err := h.participantBattle(playerID, battleID)
	if err != nil {
		return err
	}
	if err := live.session.Forfeit(ctx, playerID, battle.ReasonLeft); err != nil {
		return err
	}
	lifecycle.PlayerForfeited(ctx, h.cfg.Publisher, logging.PlayerRef(playerID), lifecycle.ForfeitPayload{BattleID: battleID, Reason: battle.ReasonLeft}, nil)
	return nil
}

// CancelBattle tears a battle down without a winner.
func (h *Hub) CancelBattle(ctx context.Context, battleID, reason string) error {
	h.mu.Lock()
	live := h.battles[battleID]
	h.mu.Unlock()
	if live == nil {
		return ErrUnknownBattle
	}
	return live.session.Cancel(ctx, reason)
}

// Snapshot returns the live state of a battle, falling back to the cache
// for battles this hub no longer runs.
func (h *Hub) Snapshot(ctx context.Context, battleID string) (*battle.BattleState, error) {
	h.mu.Lock()
	live := h.battles[battleID]
	h.mu.Unlock()
	if live != nil {
		if state, err := live.session.Snapshot(ctx); err == nil {
			return state, nil
		}
	}
	state, err := h.cfg.Cache.Load(ctx, battleID)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrUnknownBattle
	}
	return state, err
}

// Close cancels every live battle and waits for their sessions to exit.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for id, entry := range h.grace {
		entry.timer.Stop()
		delete(h.grace, id)
	}
	sessions := make([]*session.Session, 0, len(h.battles))
	for _, live := range h.battles {
		sessions = append(sessions, live.session)
	}
	h.mu.Unlock()

	h.cancel()
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		sub.conn.Close()
	}
	return nil
}

func (h *Hub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Hub) battleForLocked(playerID string) *liveBattle {
	id, ok := h.playerBattle[playerID]
	if !ok {
		return nil
	}
	return h.battles[id]
}

func (h *Hub) participantBattle(playerID, battleID string) (*liveBattle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := h.battles[battleID]
	if live == nil {
		return nil, ErrUnknownBattle
	}
	if live.players[0] != playerID && live.players[1] != playerID {
		return nil, battle.ErrNotParticipant
	}
	return live, nil
}

func (h *Hub) sendSnapshot(ctx context.Context, live *liveBattle, playerID string) error {
	state, err := live.session.Snapshot(ctx)
	if err != nil {
		return err
	}
	h.sendView(ctx, playerID, state)
	return nil
}

// sendView delivers playerID's projection of state with event messages in
// the player's language.
func (h *Hub) sendView(ctx context.Context, playerID string, state *battle.BattleState) {
	lang, ok := h.language(playerID)
	if !ok {
		return
	}
	view := state.ViewFor(playerID)
	view.Events = events.Localize(view.Events, lang)
	h.send(ctx, playerID, proto.NewBattleUpdate(view))
}

func (h *Hub) language(playerID string) (language.Tag, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subscribers[playerID]
	if !ok {
		return language.Tag{}, false
	}
	return sub.lang, true
}

// SendError reports err to playerID as a battleError.
func (h *Hub) SendError(ctx context.Context, playerID, battleID string, err error) {
	h.send(ctx, playerID, h.errorMessage(playerID, battleID, err))
}

// send writes msg to playerID if connected. A failed write closes the
// connection; the reader then reports the disconnect.
func (h *Hub) send(ctx context.Context, playerID string, msg any) bool {
	h.mu.Lock()
	sub, ok := h.subscribers[playerID]
	h.mu.Unlock()
	if !ok {
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.cfg.Logger.Printf("[hub] failed to marshal message for %s: %v", playerID, err)
		return false
	}

	sub.mu.Lock()
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = sub.conn.WriteMessage(websocket.TextMessage, data)
	sub.mu.Unlock()
	if err != nil {
		network.WriteFailed(ctx, h.cfg.Publisher, logging.PlayerRef(playerID), network.MessagePayload{Error: err.Error()}, nil)
		sub.conn.Close()
		return false
	}
	h.counters.RecordBroadcast(len(data))
	h.cfg.Metrics.Add(telemetry.MetricBroadcastBytes, uint64(len(data)))
	h.cfg.Metrics.Add(telemetry.MetricBroadcastMessages, 1)
	return true
}

func (h *Hub) teardown(live *liveBattle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.battles[live.id] != live {
		return
	}
	delete(h.battles, live.id)
	for _, pid := range live.players {
		if h.playerBattle[pid] == live.id {
			delete(h.playerBattle, pid)
		}
		if entry, ok := h.grace[pid]; ok && entry.battleID == live.id {
			entry.timer.Stop()
			delete(h.grace, pid)
		}
	}
}

// battleListener receives one battle's snapshots on its session goroutine.
type battleListener struct {
	hub    *Hub
	battle *liveBattle
}

func (l *battleListener) StateChanged(snapshot *battle.BattleState) {
	h := l.hub
	for _, pid := range l.battle.players {
		h.sendView(h.ctx, pid, snapshot)
	}
	if err := h.cfg.Cache.Save(h.ctx, snapshot); err != nil {
		h.cfg.Logger.Printf("[hub] cache save for %s failed: %v", l.battle.id, err)
	}
	if l.battle.bot != nil {
		l.battle.bot.Observe(h.ctx, snapshot)
	}
}

func (l *battleListener) Finished(snapshot *battle.BattleState) {
	h := l.hub
	l.finish(snapshot.WinnerID, snapshot.EndReason, snapshot.Turn)
	msg := proto.NewBattleEnd(l.battle.id, snapshot.WinnerID, snapshot.EndReason)
	for _, pid := range l.battle.players {
		h.send(h.ctx, pid, msg)
	}
}

func (l *battleListener) Cancelled(snapshot *battle.BattleState, reason string) {
	h := l.hub
	l.finish("", reason, snapshot.Turn)
	if err := h.cfg.Cache.Delete(context.Background(), l.battle.id); err != nil {
		h.cfg.Logger.Printf("[hub] cache delete for %s failed: %v", l.battle.id, err)
	}
	msg := proto.NewBattleCancelled(l.battle.id, reason)
	for _, pid := range l.battle.players {
		h.send(context.Background(), pid, msg)
	}
}

// finish persists the result and releases both players. It runs with a
// background context so shutdown still records cancelled battles.
func (l *battleListener) finish(winnerID, reason string, turns int) {
	h := l.hub
	h.teardown(l.battle)
	if err := h.cfg.Records.Finish(context.Background(), l.battle.id, winnerID, reason, turns, time.Now()); err != nil {
		h.cfg.Logger.Printf("[hub] record finish for %s failed: %v", l.battle.id, err)
	}
}
