package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

// fakeConn is a hub-only connection; no websocket behind it.
func fakeConn(h *Hub, buf int) *Conn {
	return &Conn{hub: h, send: make(chan []byte, buf)}
}

func join(h *Hub, c *Conn, conversationID uint) {
	h.register <- c
	h.subscribe <- subscription{conn: c, conversationID: conversationID}
}

func recvEnvelope(t *testing.T, c *Conn) Envelope {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	panic("unreachable")
}

func assertQuiet(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected delivery: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishMessageReachesRoomOnly(t *testing.T) {
	h := startHub(t)
	inRoom := fakeConn(h, 8)
	alsoInRoom := fakeConn(h, 8)
	elsewhere := fakeConn(h, 8)
	join(h, inRoom, 1)
	join(h, alsoInRoom, 1)
	join(h, elsewhere, 2)

	h.PublishMessage(1, &models.Message{ID: 10, ConversationID: 1, MessageText: "hello"})

	for _, c := range []*Conn{inRoom, alsoInRoom} {
		env := recvEnvelope(t, c)
		if env.Event != EventNewMessage {
			t.Fatalf("expected %s, got %s", EventNewMessage, env.Event)
		}
		var msg models.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if msg.ID != 10 || msg.MessageText != "hello" {
			t.Fatalf("unexpected payload: %+v", msg)
		}
	}
	assertQuiet(t, elsewhere)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := startHub(t)
	c := fakeConn(h, 8)
	join(h, c, 1)

	h.unsubscribe <- subscription{conn: c, conversationID: 1}
	h.PublishMessage(1, &models.Message{ID: 1, ConversationID: 1, MessageText: "gone"})

	assertQuiet(t, c)
}

func TestPublishOrderPreserved(t *testing.T) {
	h := startHub(t)
	c := fakeConn(h, 16)
	join(h, c, 1)

	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		h.PublishMessage(1, &models.Message{ID: uint(i + 1), ConversationID: 1, MessageText: text})
	}
	for _, want := range texts {
		env := recvEnvelope(t, c)
		var msg models.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.MessageText != want {
			t.Fatalf("expected %q, got %q", want, msg.MessageText)
		}
	}
}

func TestStatusBroadcastReachesEveryConnection(t *testing.T) {
	h := startHub(t)
	a := fakeConn(h, 8)
	b := fakeConn(h, 8)
	join(h, a, 1)
	join(h, b, 2)

	h.broadcastStatus(7, models.RoleCustomer, true)

	for _, c := range []*Conn{a, b} {
		env := recvEnvelope(t, c)
		if env.Event != EventUserStatus {
			t.Fatalf("expected %s, got %s", EventUserStatus, env.Event)
		}
		var p UserStatusPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.UserID != 7 || p.UserType != "customer" || !p.IsOnline {
			t.Fatalf("unexpected payload: %+v", p)
		}
	}
}

func TestTypingRelayExcludesSender(t *testing.T) {
	h := startHub(t)
	typer := fakeConn(h, 8)
	peer := fakeConn(h, 8)
	join(h, typer, 1)
	join(h, peer, 1)

	h.relayTyping(typer, EventTypingStart, TypingPayload{ConversationID: 1, UserName: "Dr. Meera Rao"})

	env := recvEnvelope(t, peer)
	if env.Event != EventTypingStart {
		t.Fatalf("expected %s, got %s", EventTypingStart, env.Event)
	}
	var p TypingPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.UserName != "Dr. Meera Rao" {
		t.Fatalf("unexpected name %q", p.UserName)
	}
	if p.ConversationID != 0 {
		t.Fatalf("room id must not leak to peers, got %d", p.ConversationID)
	}
	assertQuiet(t, typer)

	h.relayTyping(typer, EventTypingStop, TypingPayload{ConversationID: 1})
	env = recvEnvelope(t, peer)
	if env.Event != EventTypingStop {
		t.Fatalf("expected %s, got %s", EventTypingStop, env.Event)
	}
}

func TestSlowConsumerIsDropped(t *testing.T) {
	h := startHub(t)
	slow := fakeConn(h, 1)
	join(h, slow, 1)

	h.PublishMessage(1, &models.Message{ID: 1, ConversationID: 1, MessageText: "fills the buffer"})
	h.PublishMessage(1, &models.Message{ID: 2, ConversationID: 1, MessageText: "overflows"})

	// First frame was buffered; the overflow drops the connection, which
	// closes its send channel.
	recvEnvelope(t, slow)
	select {
	case _, ok := <-slow.send:
		if ok {
			t.Fatal("expected channel closed, got a frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for drop")
	}
}

func TestServeWSJoinBroadcastsStatus(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	joinData, _ := json.Marshal(UserJoinPayload{UserID: 7, UserType: "customer"})
	if err := ws.WriteJSON(Envelope{Event: EventUserJoin, Data: joinData}); err != nil {
		t.Fatalf("write join: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Event != EventUserStatus {
		t.Fatalf("expected %s, got %s", EventUserStatus, env.Event)
	}
	var p UserStatusPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.UserID != 7 || !p.IsOnline {
		t.Fatalf("unexpected status: %+v", p)
	}
}
