package net

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"coffeemon-arena/server"
	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/battle/battletest"
	"coffeemon-arena/server/internal/store/cache"
	"coffeemon-arena/server/internal/store/records"
	"coffeemon-arena/server/logging"
)

func newHandler(t *testing.T) (http.Handler, *cache.Redis, *records.SQLite) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	snapshots := cache.NewRedis(client, cache.Options{})

	store, err := records.Open(context.Background(), filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open records: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := server.DefaultHubConfig()
	cfg.Cache = snapshots
	cfg.Records = store
	hub := server.NewHub(cfg)
	t.Cleanup(func() { hub.Close(context.Background()) })

	handler := NewHTTPHandler(hub, HTTPHandlerConfig{
		Records:     store,
		RouterStats: func() logging.RouterStats { return logging.RouterStats{EventsTotal: 7, Sinks: 1} },
		Metrics:     func() map[string]uint64 { return map[string]uint64{"battles_started_total": 3} },
	})
	return handler, snapshots, store
}

func TestHealth(t *testing.T) {
	t.Parallel()

	handler, _, _ := newHandler(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()

	handler, _, _ := newHandler(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var payload struct {
		Status  string              `json:"status"`
		Hub     server.Diagnostics  `json:"hub"`
		Metrics map[string]uint64   `json:"metrics"`
		Logging logging.RouterStats `json:"logging"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != "ok" || payload.Metrics["battles_started_total"] != 3 || payload.Logging.EventsTotal != 7 {
		t.Fatalf("unexpected diagnostics %s", resp.Body.String())
	}
}

func TestBattleSnapshotFromCache(t *testing.T) {
	t.Parallel()

	handler, snapshots, _ := newHandler(t)
	state := battletest.Started("p1", "p2", battletest.Party("a"), battletest.Party("b"))
	if err := snapshots.Save(context.Background(), state); err != nil {
		t.Fatalf("save: %v", err)
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/battles/"+state.ID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Battle battle.PlayerView `json:"battle"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Battle.BattleID != state.ID || payload.Battle.Phase != battle.PhaseSubmission {
		t.Fatalf("unexpected battle %+v", payload.Battle)
	}

	missing := httptest.NewRecorder()
	handler.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/battles/unknown", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func TestRecentBattles(t *testing.T) {
	t.Parallel()

	handler, _, store := newHandler(t)
	ctx := context.Background()
	store.Create(ctx, records.Record{BattleID: "b1", Player1ID: "p1", Player2ID: "p2", StartedAt: time.Now()})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/battles?limit=5", nil))
	var payload struct {
		Battles []records.Record `json:"battles"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Battles) != 1 || payload.Battles[0].BattleID != "b1" {
		t.Fatalf("unexpected battles %s", resp.Body.String())
	}

	bad := httptest.NewRecorder()
	handler.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, "/battles?limit=zero", nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.Code)
	}
}
