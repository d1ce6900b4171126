// Package ws adapts websocket connections onto the hub.
package ws

import (
	"log"
	nethttp "net/http"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/text/language"

	"coffeemon-arena/server"
	"coffeemon-arena/server/internal/events"
	"coffeemon-arena/server/internal/identity"
	"coffeemon-arena/server/internal/telemetry"
	"coffeemon-arena/server/logging"
)

type HandlerConfig struct {
	Logger    telemetry.Logger
	Identity  identity.Resolver
	Publisher logging.Publisher
}

type Handler struct {
	hub       *server.Hub
	logger    telemetry.Logger
	identity  identity.Resolver
	publisher logging.Publisher
	upgrader  websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	resolver := cfg.Identity
	if resolver == nil {
		resolver = identity.RequestResolver{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:       hub,
		logger:    logger,
		identity:  resolver,
		publisher: publisher,
		upgrader:  upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID, err := h.identity.Resolve(r)
	if err != nil {
		nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
		return
	}
	lang := requestLanguage(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}

	h.Serve(r.Context(), playerID, conn, lang)
}

// requestLanguage prefers the lang query parameter, then Accept-Language.
func requestLanguage(r *nethttp.Request) language.Tag {
	if value := strings.TrimSpace(r.URL.Query().Get("lang")); value != "" {
		return events.ParseLanguage(value)
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return events.BaseLanguage
	}
	return events.MatchLanguage(tags[0])
}
