package realtime

import "encoding/json"

// Wire events. Client to server: user:join, conversation:join,
// conversation:leave, typing:start, typing:stop. Server to client:
// new_message, user:status, typing:start, typing:stop.
const (
	EventUserJoin          = "user:join"
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventNewMessage        = "new_message"
	EventUserStatus        = "user:status"
)

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func newEnvelope(event string, payload interface{}) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

type UserJoinPayload struct {
	UserID   uint   `json:"userId"`
	UserType string `json:"userType"`
}

type ConversationPayload struct {
	ConversationID uint `json:"conversationId"`
}

// TypingPayload carries the room on the way in; only the display name is
// relayed out to peers.
type TypingPayload struct {
	ConversationID uint   `json:"conversationId,omitempty"`
	UserName       string `json:"userName,omitempty"`
}

type UserStatusPayload struct {
	UserID   uint   `json:"userId"`
	UserType string `json:"userType"`
	IsOnline bool   `json:"isOnline"`
}
