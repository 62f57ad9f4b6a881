package client

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/realtime"
	"github.com/VarunDhamode/SciEquip-Website/services"
	"golang.org/x/exp/slices"
)

// typingIdle is how long after the last keystroke the session announces
// typing has stopped.
const typingIdle = time.Second

type State int

const (
	StateIdle State = iota
	StateConversationsLoading
	StateConversationsLoaded
	StateMessagesLoading
	StateMessagesLoaded
)

// Selection is the open thread: either a persisted conversation or a
// client-only pending placeholder that exists until the first message is
// accepted by the server. Reconciliation replaces the value wholesale; a
// pending selection is never patched into a real one.
type Selection interface{ isSelection() }

// RealConversation wraps a server-persisted conversation row.
type RealConversation struct {
	Conversation services.ConversationSummary
}

// PendingConversation carries the context needed to create the thread on
// first send. It has no id usable server-side.
type PendingConversation struct {
	RFQID           uint
	CustomerID      uint
	VendorID        uint
	RFQTitle        string
	CounterpartName string
}

func (RealConversation) isSelection()    {}
func (PendingConversation) isSelection() {}

// notifier is the subset of the realtime client the session drives.
type notifier interface {
	JoinUser(userID uint, role models.Role) error
	JoinConversation(conversationID uint) error
	LeaveConversation(conversationID uint) error
	TypingStart(conversationID uint, userName string) error
	TypingStop(conversationID uint) error
	Close() error
}

// ChatSession is the chat surface's state machine. All methods are safe for
// concurrent use; realtime events arrive via HandleEvent from the Listen
// goroutine while the UI calls the rest.
type ChatSession struct {
	mu sync.Mutex

	api      *APIClient
	notifier notifier
	userID   uint
	userName string
	role     models.Role

	state         State
	conversations []services.ConversationSummary
	selection     Selection
	messages      []models.Message
	compose       string
	typingPeer    string
	online        map[string]bool
	typingTimer   *time.Timer
}

func NewChatSession(api *APIClient, n notifier, userID uint, userName string, role models.Role) *ChatSession {
	return &ChatSession{
		api:      api,
		notifier: n,
		userID:   userID,
		userName: userName,
		role:     role,
		state:    StateIdle,
		online:   make(map[string]bool),
	}
}

// Open announces the user on the realtime channel and loads the
// conversation list. A load failure leaves an empty list rather than a
// broken surface.
func (s *ChatSession) Open(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateConversationsLoading
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.JoinUser(s.userID, s.role)
	}

	conversations, err := s.api.Conversations(ctx, s.userID, s.role)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = conversations
	s.state = StateConversationsLoaded
	return err
}

// OpenThread opens the thread for a specific RFQ/vendor context, e.g. from
// a bid card. When no persisted conversation exists the selection becomes
// pending; for a vendor that is a terminal waiting state.
func (s *ChatSession) OpenThread(ctx context.Context, rfqID, customerID, vendorID uint, rfqTitle, counterpartName string) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.conversations, func(c services.ConversationSummary) bool {
		return c.RFQID == rfqID && c.CustomerID == customerID && c.VendorID == vendorID
	})
	if idx >= 0 {
		conv := s.conversations[idx]
		s.mu.Unlock()
		return s.selectReal(ctx, conv)
	}

	s.leaveCurrentLocked()
	s.selection = PendingConversation{
		RFQID:           rfqID,
		CustomerID:      customerID,
		VendorID:        vendorID,
		RFQTitle:        rfqTitle,
		CounterpartName: counterpartName,
	}
	s.messages = nil
	s.state = StateMessagesLoaded
	s.mu.Unlock()
	return nil
}

// Select opens one of the loaded conversations by id.
func (s *ChatSession) Select(ctx context.Context, conversationID uint) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.conversations, func(c services.ConversationSummary) bool {
		return c.ID == conversationID
	})
	if idx < 0 {
		s.mu.Unlock()
		return &APIError{StatusCode: 404, Title: "Not Found", Message: "conversation is not in the loaded list"}
	}
	conv := s.conversations[idx]
	s.mu.Unlock()
	return s.selectReal(ctx, conv)
}

func (s *ChatSession) selectReal(ctx context.Context, conv services.ConversationSummary) error {
	s.mu.Lock()
	s.leaveCurrentLocked()
	s.selection = RealConversation{Conversation: conv}
	s.messages = nil
	s.state = StateMessagesLoading
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.JoinConversation(conv.ID)
	}

	msgs, err := s.api.Messages(ctx, conv.ID)
	if err == nil {
		// Viewing the thread counts as reading it.
		s.api.MarkConversationRead(ctx, conv.ID, s.role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = msgs
	s.state = StateMessagesLoaded
	return err
}

// CanSend reports whether the current user may send in the current
// selection. Vendors cannot originate: a pending selection is read-only
// for them.
func (s *ChatSession) CanSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.selection.(type) {
	case RealConversation:
		return true
	case PendingConversation:
		return s.role == models.RoleCustomer
	default:
		return false
	}
}

// SetCompose updates the draft text and drives the typing indicator: start
// on keystroke, stop after one idle second.
func (s *ChatSession) SetCompose(text string) {
	s.mu.Lock()
	s.compose = text
	real, isReal := s.selection.(RealConversation)
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	s.mu.Unlock()

	if !isReal || s.notifier == nil {
		return
	}
	convID := real.Conversation.ID
	s.notifier.TypingStart(convID, s.userName)

	s.mu.Lock()
	s.typingTimer = time.AfterFunc(typingIdle, func() {
		s.notifier.TypingStop(convID)
	})
	s.mu.Unlock()
}

// Send posts the composed text. A pending selection sends the triple and
// reconciles against the refreshed conversation list; on any failure the
// draft stays put so the user can retry.
func (s *ChatSession) Send(ctx context.Context) error {
	s.mu.Lock()
	text := strings.TrimSpace(s.compose)
	selection := s.selection
	s.mu.Unlock()

	if text == "" {
		return nil
	}

	switch sel := selection.(type) {
	case RealConversation:
		msg, err := s.api.SendMessage(ctx, SendMessageRequest{
			ConversationID: sel.Conversation.ID,
			SenderID:       s.userID,
			SenderType:     string(s.role),
			MessageText:    text,
		})
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.appendLocked(*msg)
		s.compose = ""
		s.mu.Unlock()
		if s.notifier != nil {
			s.notifier.TypingStop(sel.Conversation.ID)
		}
		return nil

	case PendingConversation:
		if s.role != models.RoleCustomer {
			return &APIError{StatusCode: 400, Title: "Validation error", Message: "vendors cannot start a conversation"}
		}
		msg, err := s.api.SendMessage(ctx, SendMessageRequest{
			SenderID:    s.userID,
			SenderType:  string(s.role),
			MessageText: text,
			RFQID:       sel.RFQID,
			CustomerID:  sel.CustomerID,
			VendorID:    sel.VendorID,
		})
		if err != nil {
			return err
		}
		return s.reconcilePending(ctx, sel, *msg)

	default:
		return &APIError{StatusCode: 400, Title: "Validation error", Message: "no conversation selected"}
	}
}

// reconcilePending swaps the pending placeholder for the server-created row:
// reload the list, find the row by triple, replace the selection.
func (s *ChatSession) reconcilePending(ctx context.Context, pending PendingConversation, sent models.Message) error {
	conversations, err := s.api.Conversations(ctx, s.userID, s.role)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(conversations, func(c services.ConversationSummary) bool {
		return c.RFQID == pending.RFQID && c.CustomerID == pending.CustomerID && c.VendorID == pending.VendorID
	})
	if idx < 0 {
		return &APIError{StatusCode: 404, Title: "Not Found", Message: "created conversation missing from refreshed list"}
	}
	conv := conversations[idx]

	s.mu.Lock()
	s.conversations = conversations
	s.selection = RealConversation{Conversation: conv}
	s.messages = []models.Message{sent}
	s.compose = ""
	s.state = StateMessagesLoaded
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.JoinConversation(conv.ID)
	}
	return nil
}

// HandleEvent applies one realtime event to the session. Meant to be the
// handler passed to Notifier.Listen.
func (s *ChatSession) HandleEvent(ctx context.Context, env realtime.Envelope) {
	switch env.Event {
	case realtime.EventNewMessage:
		var msg models.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return
		}
		s.mu.Lock()
		real, isReal := s.selection.(RealConversation)
		viewing := isReal && real.Conversation.ID == msg.ConversationID
		if viewing {
			s.appendLocked(msg)
		}
		s.mu.Unlock()
		if viewing && msg.SenderType != s.role {
			// Actively viewing the thread; acknowledge immediately.
			s.api.MarkConversationRead(ctx, msg.ConversationID, s.role)
		}

	case realtime.EventTypingStart:
		var p realtime.TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.mu.Lock()
		s.typingPeer = p.UserName
		s.mu.Unlock()

	case realtime.EventTypingStop:
		s.mu.Lock()
		s.typingPeer = ""
		s.mu.Unlock()

	case realtime.EventUserStatus:
		var p realtime.UserStatusPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.mu.Lock()
		s.online[presenceTag(p.UserType, p.UserID)] = p.IsOnline
		s.mu.Unlock()
	}
}

// Close leaves the open room, drops the realtime connection and discards
// all in-memory state.
func (s *ChatSession) Close() {
	s.mu.Lock()
	s.leaveCurrentLocked()
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	s.conversations = nil
	s.messages = nil
	s.selection = nil
	s.compose = ""
	s.typingPeer = ""
	s.online = make(map[string]bool)
	s.state = StateIdle
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.Close()
	}
}

func (s *ChatSession) leaveCurrentLocked() {
	if real, ok := s.selection.(RealConversation); ok && s.notifier != nil {
		s.notifier.LeaveConversation(real.Conversation.ID)
	}
}

func (s *ChatSession) appendLocked(msg models.Message) {
	for _, existing := range s.messages {
		if existing.ID == msg.ID {
			return
		}
	}
	s.messages = append(s.messages, msg)
}

func presenceTag(userType string, userID uint) string {
	return userType + ":" + strconv.FormatUint(uint64(userID), 10)
}

// Accessors for the rendering layer.

func (s *ChatSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ChatSession) Conversations() []services.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.conversations)
}

func (s *ChatSession) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

func (s *ChatSession) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

func (s *ChatSession) Compose() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compose
}

func (s *ChatSession) TypingPeer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typingPeer
}

func (s *ChatSession) IsOnline(role models.Role, userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[presenceTag(string(role), userID)]
}
