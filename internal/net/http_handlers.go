package net

import (
	"encoding/json"
	"errors"
	"log"
	nethttp "net/http"
	"strconv"
	"time"

	"coffeemon-arena/server"
	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/identity"
	"coffeemon-arena/server/internal/net/ws"
	"coffeemon-arena/server/internal/store/records"
	"coffeemon-arena/server/internal/telemetry"
	"coffeemon-arena/server/logging"
)

type HTTPHandlerConfig struct {
	Logger    telemetry.Logger
	Identity  identity.Resolver
	Publisher logging.Publisher
	Records   records.Store
	// RouterStats and Metrics feed the diagnostics payload when set.
	RouterStats func() logging.RouterStats
	Metrics     func() map[string]uint64
}

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	store := cfg.Records
	if store == nil {
		store = records.Nop{}
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string               `json:"status"`
			ServerTime int64                `json:"serverTime"`
			Hub        server.Diagnostics   `json:"hub"`
			Metrics    map[string]uint64    `json:"metrics,omitempty"`
			Logging    *logging.RouterStats `json:"logging,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Hub:        hub.DiagnosticsSnapshot(),
		}
		if cfg.Metrics != nil {
			payload.Metrics = cfg.Metrics()
		}
		if cfg.RouterStats != nil {
			stats := cfg.RouterStats()
			payload.Logging = &stats
		}
		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("GET /battles", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value <= 0 {
				httpError(w, "invalid limit", nethttp.StatusBadRequest)
				return
			}
			limit = value
		}
		recent, err := store.Recent(r.Context(), limit)
		if err != nil {
			logger.Printf("failed to list battle records: %v", err)
			httpError(w, "failed to list battles", nethttp.StatusInternalServerError)
			return
		}
		if recent == nil {
			recent = []records.Record{}
		}
		writeJSON(w, logger, struct {
			Battles []records.Record `json:"battles"`
		}{Battles: recent})
	})

	mux.HandleFunc("GET /battles/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		battleID := r.PathValue("id")
		state, err := hub.Snapshot(r.Context(), battleID)
		if errors.Is(err, server.ErrUnknownBattle) {
			httpError(w, "battle not found", nethttp.StatusNotFound)
			return
		}
		if err != nil {
			logger.Printf("failed to load battle %s: %v", battleID, err)
			httpError(w, "failed to load battle", nethttp.StatusInternalServerError)
			return
		}
		// Spectators see neither side's hidden first pick nor private events.
		writeJSON(w, logger, struct {
			Battle battle.PlayerView `json:"battle"`
		}{Battle: state.ViewFor("")})
	})

	handler := ws.NewHandler(hub, ws.HandlerConfig{
		Logger:    logger,
		Identity:  cfg.Identity,
		Publisher: cfg.Publisher,
	})
	mux.HandleFunc("/ws", handler.Handle)

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	nethttp.Error(w, message, status)
}
