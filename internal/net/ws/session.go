package ws

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"golang.org/x/text/language"

	"coffeemon-arena/server/internal/net/intake"
	"coffeemon-arena/server/internal/net/proto"
	"coffeemon-arena/server/logging"
	"coffeemon-arena/server/logging/network"
)

// Serve runs the read loop for one player connection until it fails. Every
// rejected request is answered with a battleError.
func (h *Handler) Serve(ctx context.Context, playerID string, conn *websocket.Conn, lang language.Tag) {
	if h == nil || h.hub == nil || conn == nil {
		return
	}

	if err := h.hub.Connect(ctx, playerID, conn, lang); err != nil {
		message := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	defer h.hub.Disconnect(context.WithoutCancel(ctx), playerID, conn)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			network.MalformedMessage(ctx, h.publisher, logging.PlayerRef(playerID), network.MessagePayload{MessageType: msg.Type, Error: err.Error()}, nil)
			h.hub.SendError(ctx, playerID, msg.BattleID, err)
			continue
		}

		if err := intake.Dispatch(ctx, h.hub, playerID, msg); err != nil {
			if errors.Is(err, proto.ErrUnknownType) {
				h.logger.Printf("unknown message type %q from %s", msg.Type, playerID)
			}
			h.hub.SendError(ctx, playerID, msg.BattleID, err)
		}
	}
}
