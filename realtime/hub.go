package realtime

import (
	"context"
	"log"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/services"
)

type subscription struct {
	conn           *Conn
	conversationID uint
}

// outbound is a payload headed for one conversation room, or for every
// connection when conversationID is zero.
type outbound struct {
	conversationID uint
	exclude        *Conn
	payload        []byte
}

// Hub owns all websocket connections and the per-conversation rooms. A
// single goroutine runs the loop; every mutation of the connection and room
// maps goes through its channels, so no locks are needed.
//
// Delivery is at-most-once: a subscriber whose send buffer is full is
// dropped rather than awaited, and clients recover missed messages by
// re-fetching over HTTP.
type Hub struct {
	presence *services.PresenceService

	register    chan *Conn
	unregister  chan *Conn
	subscribe   chan subscription
	unsubscribe chan subscription
	events      chan outbound

	conns map[*Conn]struct{}
	rooms map[uint]map[*Conn]struct{}
}

// NewHub builds a hub. presence may be nil, in which case join/leave skips
// the online-status bookkeeping.
func NewHub(presence *services.PresenceService) *Hub {
	return &Hub{
		presence:    presence,
		register:    make(chan *Conn),
		unregister:  make(chan *Conn),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		events:      make(chan outbound, 256),
		conns:       make(map[*Conn]struct{}),
		rooms:       make(map[uint]map[*Conn]struct{}),
	}
}

// Run owns the hub state until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.conns[c] = struct{}{}

		case c := <-h.unregister:
			h.drop(c)

		case sub := <-h.subscribe:
			room := h.rooms[sub.conversationID]
			if room == nil {
				room = make(map[*Conn]struct{})
				h.rooms[sub.conversationID] = room
			}
			room[sub.conn] = struct{}{}

		case sub := <-h.unsubscribe:
			if room, ok := h.rooms[sub.conversationID]; ok {
				delete(room, sub.conn)
				if len(room) == 0 {
					delete(h.rooms, sub.conversationID)
				}
			}

		case ev := <-h.events:
			h.deliver(ev)

		case <-ctx.Done():
			for c := range h.conns {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *Conn) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	for id, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
	close(c.send)
}

func (h *Hub) deliver(ev outbound) {
	targets := h.conns
	if ev.conversationID != 0 {
		targets = h.rooms[ev.conversationID]
	}
	for c := range targets {
		if c == ev.exclude {
			continue
		}
		select {
		case c.send <- ev.payload:
		default:
			// Slow consumer; cut it loose rather than stall the room.
			h.drop(c)
		}
	}
}

// PublishMessage pushes a persisted message to the conversation's room.
// Never blocks the caller; under backpressure the event is dropped and
// clients catch up over HTTP.
func (h *Hub) PublishMessage(conversationID uint, msg *models.Message) {
	payload, err := newEnvelope(EventNewMessage, msg)
	if err != nil {
		log.Printf("realtime: encode new_message: %v", err)
		return
	}
	h.enqueue(outbound{conversationID: conversationID, payload: payload})
}

func (h *Hub) broadcastStatus(userID uint, role models.Role, online bool) {
	payload, err := newEnvelope(EventUserStatus, UserStatusPayload{
		UserID:   userID,
		UserType: string(role),
		IsOnline: online,
	})
	if err != nil {
		return
	}
	h.enqueue(outbound{payload: payload})
}

func (h *Hub) relayTyping(from *Conn, event string, p TypingPayload) {
	var payload []byte
	var err error
	if event == EventTypingStart {
		payload, err = newEnvelope(EventTypingStart, TypingPayload{UserName: p.UserName})
	} else {
		payload, err = newEnvelope(EventTypingStop, nil)
	}
	if err != nil {
		return
	}
	h.enqueue(outbound{conversationID: p.ConversationID, exclude: from, payload: payload})
}

func (h *Hub) enqueue(ev outbound) {
	select {
	case h.events <- ev:
	default:
	}
}
