package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"coffeemon-arena/server"
	"coffeemon-arena/server/internal/battle"
	"coffeemon-arena/server/internal/net/proto"
	"coffeemon-arena/server/internal/roster"
)

type frame struct {
	Type        string            `json:"type"`
	BattleID    string            `json:"battleId"`
	Code        string            `json:"code"`
	WinnerID    string            `json:"winnerId"`
	Reason      string            `json:"reason"`
	BattleState battle.PlayerView `json:"battleState"`
}

func newServer(t *testing.T) (*server.Hub, *httptest.Server) {
	t.Helper()
	catalog, err := roster.Default(3)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	cfg := server.DefaultHubConfig()
	cfg.Roster = catalog
	cfg.Seed = "ws-test"
	cfg.SelectionTimeout = 0
	cfg.SubmissionTimeout = 0
	cfg.DisconnectGrace = 20 * time.Millisecond
	hub := server.NewHub(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(func() {
		cancel()
		closeCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		hub.Close(closeCtx)
		srv.Close()
	})
	return hub, srv
}

func websocketURL(t *testing.T, base, playerID string) string {
	t.Helper()
	u, err := url.Parse(base)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	u.Scheme = "ws"
	q := u.Query()
	q.Set("id", playerID)
	q.Set("lang", "pt-BR")
	u.RawQuery = q.Encode()
	return u.String()
}

func dial(t *testing.T, srv *httptest.Server, playerID string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, playerID), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func expect(t *testing.T, conn *websocket.Conn, msgType string) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		var f frame
		if err := json.Unmarshal(payload, &f); err != nil {
			t.Fatalf("decode %s: %v", payload, err)
		}
		if f.Type == msgType {
			return f
		}
	}
}

func TestWebsocketMatchAndSelection(t *testing.T) {
	t.Parallel()

	_, srv := newServer(t)
	c1, c2 := dial(t, srv, "alice"), dial(t, srv, "bob")

	send(t, c1, proto.ClientMessage{Ver: proto.Version, Type: proto.TypeFindMatch})
	expect(t, c1, proto.TypeQueueJoined)
	send(t, c2, proto.ClientMessage{Ver: proto.Version, Type: proto.TypeFindMatch})

	found := expect(t, c1, proto.TypeMatchFound)
	expect(t, c2, proto.TypeMatchFound)
	update := expect(t, c1, proto.TypeBattleUpdate)
	if update.BattleState.Phase != battle.PhaseSelection || update.BattleState.BattleID != found.BattleID {
		t.Fatalf("unexpected first update %+v", update.BattleState)
	}

	send(t, c1, proto.ClientMessage{Type: proto.TypeSelectInitial, BattleID: found.BattleID, UnitIndex: 1})
	send(t, c2, proto.ClientMessage{Type: proto.TypeSelectInitial, BattleID: found.BattleID, UnitIndex: 0})
	for {
		update = expect(t, c1, proto.TypeBattleUpdate)
		if update.BattleState.Phase == battle.PhaseSubmission {
			break
		}
	}
	if idx := update.BattleState.Player1.ActiveUnitIndex; idx == nil || *idx != 1 {
		t.Fatalf("expected alice's unit 1 active, got %v", idx)
	}
}

func TestWebsocketReportsBadRequests(t *testing.T) {
	t.Parallel()

	_, srv := newServer(t)
	conn := dial(t, srv, "carol")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := expect(t, conn, proto.TypeBattleError); got.Code != proto.CodeMalformedMessage {
		t.Fatalf("expected malformed code, got %+v", got)
	}

	send(t, conn, proto.ClientMessage{Type: "dance"})
	if got := expect(t, conn, proto.TypeBattleError); got.Code != proto.CodeUnknownMessage {
		t.Fatalf("expected unknown message code, got %+v", got)
	}

	send(t, conn, proto.ClientMessage{Type: proto.TypeJoinBattle, BattleID: "nope"})
	if got := expect(t, conn, proto.TypeBattleError); got.Code != proto.CodeUnknownBattle || got.BattleID != "nope" {
		t.Fatalf("expected unknown battle code, got %+v", got)
	}
}

func TestWebsocketDisconnectForfeitsAfterGrace(t *testing.T) {
	t.Parallel()

	_, srv := newServer(t)
	c1 := dial(t, srv, "dave")
	c2, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, "erin"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	send(t, c1, proto.ClientMessage{Type: proto.TypeFindMatch})
	send(t, c2, proto.ClientMessage{Type: proto.TypeFindMatch})
	found := expect(t, c1, proto.TypeMatchFound)
	expect(t, c2, proto.TypeMatchFound)

	c2.Close()
	expect(t, c1, proto.TypeOpponentDisconnected)
	end := expect(t, c1, proto.TypeBattleEnd)
	if end.BattleID != found.BattleID || end.WinnerID != "dave" || end.Reason != battle.ReasonDisconnect {
		t.Fatalf("unexpected battleEnd %+v", end)
	}
}

func TestHandleRejectsMissingIdentity(t *testing.T) {
	t.Parallel()

	_, srv := newServer(t)
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
