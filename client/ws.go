package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/realtime"
	"github.com/gorilla/websocket"
)

// Notifier is the client side of the realtime channel. Writes are
// serialized; reads happen on the Listen goroutine.
type Notifier struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// DialNotifier connects to the server's /ws endpoint. url uses the ws
// scheme, e.g. ws://host:3000/ws.
func DialNotifier(ctx context.Context, url string) (*Notifier, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Notifier{ws: ws}, nil
}

func (n *Notifier) emit(event string, payload interface{}) error {
	env := realtime.Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Data = data
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ws.WriteJSON(env)
}

func (n *Notifier) JoinUser(userID uint, role models.Role) error {
	return n.emit(realtime.EventUserJoin, realtime.UserJoinPayload{UserID: userID, UserType: string(role)})
}

func (n *Notifier) JoinConversation(conversationID uint) error {
	return n.emit(realtime.EventConversationJoin, realtime.ConversationPayload{ConversationID: conversationID})
}

func (n *Notifier) LeaveConversation(conversationID uint) error {
	return n.emit(realtime.EventConversationLeave, realtime.ConversationPayload{ConversationID: conversationID})
}

func (n *Notifier) TypingStart(conversationID uint, userName string) error {
	return n.emit(realtime.EventTypingStart, realtime.TypingPayload{ConversationID: conversationID, UserName: userName})
}

func (n *Notifier) TypingStop(conversationID uint) error {
	return n.emit(realtime.EventTypingStop, realtime.TypingPayload{ConversationID: conversationID})
}

// Listen reads events until the connection closes or ctx is canceled,
// invoking handler for each. Missed events are recovered over HTTP, so a
// read error simply ends the loop.
func (n *Notifier) Listen(ctx context.Context, handler func(realtime.Envelope)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			n.ws.Close()
		case <-done:
		}
	}()

	for {
		var env realtime.Envelope
		if err := n.ws.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		handler(env)
	}
}

func (n *Notifier) Close() error {
	return n.ws.Close()
}
