package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is already open cross-origin; the socket follows suit.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Conn is one client's websocket connection. The read pump is the only
// writer of the identity fields; they are read elsewhere only after the
// pump has exited.
type Conn struct {
	id   string
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte

	userID uint
	role   models.Role
	joined bool
}

// ServeWS upgrades an HTTP request and runs the connection until it drops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade: %v", err)
		return
	}
	c := &Conn{
		id:   uuid.NewString(),
		hub:  h,
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
	h.register <- c

	go c.writePump()
	c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.ws.Close()
		if c.joined {
			c.setPresence(false)
		}
	}()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: read: %v", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		c.handle(env)
	}
}

func (c *Conn) handle(env Envelope) {
	switch env.Event {
	case EventUserJoin:
		var p UserJoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		role, ok := models.ParseRole(p.UserType)
		if !ok || p.UserID == 0 {
			return
		}
		c.userID = p.UserID
		c.role = role
		c.joined = true
		c.setPresence(true)

	case EventConversationJoin:
		var p ConversationPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == 0 {
			return
		}
		c.hub.subscribe <- subscription{conn: c, conversationID: p.ConversationID}

	case EventConversationLeave:
		var p ConversationPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == 0 {
			return
		}
		c.hub.unsubscribe <- subscription{conn: c, conversationID: p.ConversationID}

	case EventTypingStart, EventTypingStop:
		var p TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.ConversationID == 0 {
			return
		}
		c.hub.relayTyping(c, env.Event, p)
	}
}

func (c *Conn) setPresence(online bool) {
	if c.hub.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var err error
		if online {
			err = c.hub.presence.SetOnline(ctx, c.userID, c.role, c.id)
		} else {
			err = c.hub.presence.SetOffline(ctx, c.userID, c.role)
		}
		if err != nil {
			log.Printf("realtime: presence update: %v", err)
		}
	}
	c.hub.broadcastStatus(c.userID, c.role, online)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
