package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/VarunDhamode/SciEquip-Website/realtime"
	"github.com/VarunDhamode/SciEquip-Website/services"
)

// fakeServer is an in-memory stand-in for the messaging API.
type fakeServer struct {
	mu            sync.Mutex
	conversations []services.ConversationSummary
	messages      map[uint][]models.Message
	nextConvID    uint
	nextMsgID     uint
	readCalls     []uint
	sendCalls     int
}

func newFakeServer() *fakeServer {
	return &fakeServer{messages: make(map[uint][]models.Message), nextConvID: 1, nextMsgID: 1}
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/conversations/{userId}/{userType}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.conversations)
	})

	mux.HandleFunc("GET /api/messages/{conversationId}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("conversationId"))
		f.mu.Lock()
		defer f.mu.Unlock()
		msgs := f.messages[uint(id)]
		if msgs == nil {
			msgs = []models.Message{}
		}
		json.NewEncoder(w).Encode(msgs)
	})

	mux.HandleFunc("POST /api/messages", func(w http.ResponseWriter, r *http.Request) {
		var req SendMessageRequest
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()
		f.sendCalls++

		convID := req.ConversationID
		if convID == 0 {
			convID = f.nextConvID
			f.nextConvID++
			f.conversations = append(f.conversations, services.ConversationSummary{
				ID: convID, RFQID: req.RFQID, CustomerID: req.CustomerID, VendorID: req.VendorID,
			})
		}
		msg := models.Message{
			ID:             f.nextMsgID,
			ConversationID: convID,
			SenderID:       req.SenderID,
			SenderType:     models.Role(req.SenderType),
			MessageText:    req.MessageText,
		}
		f.nextMsgID++
		f.messages[convID] = append(f.messages[convID], msg)
		json.NewEncoder(w).Encode(msg)
	})

	mux.HandleFunc("PUT /api/conversations/{conversationId}/read", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("conversationId"))
		f.mu.Lock()
		f.readCalls = append(f.readCalls, uint(id))
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	mux.HandleFunc("PUT /api/messages/{messageId}/read", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	return mux
}

func (f *fakeServer) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.readCalls)
}

func (f *fakeServer) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

// fakeNotifier records the realtime commands the session issues.
type fakeNotifier struct {
	mu          sync.Mutex
	joinedUser  bool
	joinedRooms []uint
	leftRooms   []uint
	typingStart int
	typingStop  int
	closed      bool
}

func (n *fakeNotifier) JoinUser(userID uint, role models.Role) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.joinedUser = true
	return nil
}

func (n *fakeNotifier) JoinConversation(id uint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.joinedRooms = append(n.joinedRooms, id)
	return nil
}

func (n *fakeNotifier) LeaveConversation(id uint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leftRooms = append(n.leftRooms, id)
	return nil
}

func (n *fakeNotifier) TypingStart(id uint, userName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.typingStart++
	return nil
}

func (n *fakeNotifier) TypingStop(id uint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.typingStop++
	return nil
}

func (n *fakeNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

func newTestSession(t *testing.T, srv *fakeServer, userID uint, userName string, role models.Role) (*ChatSession, *fakeNotifier) {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)
	n := &fakeNotifier{}
	return NewChatSession(NewAPIClient(ts.URL), n, userID, userName, role), n
}

func TestOpenLoadsConversations(t *testing.T) {
	srv := newFakeServer()
	srv.conversations = []services.ConversationSummary{
		{ID: 1, RFQID: 42, CustomerID: 7, VendorID: 3, CounterpartName: "LabTech Instruments"},
	}
	session, n := newTestSession(t, srv, 7, "Dr. Meera Rao", models.RoleCustomer)

	if err := session.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if session.State() != StateConversationsLoaded {
		t.Fatalf("expected conversations loaded, got %v", session.State())
	}
	if got := session.Conversations(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected list: %+v", got)
	}
	if !n.joinedUser {
		t.Fatal("expected user:join on open")
	}
}

func TestSelectLoadsMessagesAndMarksRead(t *testing.T) {
	srv := newFakeServer()
	srv.conversations = []services.ConversationSummary{{ID: 1, RFQID: 42, CustomerID: 7, VendorID: 3}}
	srv.messages[1] = []models.Message{
		{ID: 1, ConversationID: 1, SenderID: 3, SenderType: models.RoleVendor, MessageText: "We can supply that"},
	}
	session, n := newTestSession(t, srv, 7, "Dr. Meera Rao", models.RoleCustomer)
	ctx := context.Background()

	if err := session.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := session.Select(ctx, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	if session.State() != StateMessagesLoaded {
		t.Fatalf("expected messages loaded, got %v", session.State())
	}
	if got := session.Messages(); len(got) != 1 || got[0].MessageText != "We can supply that" {
		t.Fatalf("unexpected messages: %+v", got)
	}
	if len(n.joinedRooms) != 1 || n.joinedRooms[0] != 1 {
		t.Fatalf("expected room join for conversation 1, got %v", n.joinedRooms)
	}
	if srv.readCount() != 1 {
		t.Fatalf("expected one read acknowledgement, got %d", srv.readCount())
	}
}

func TestSelectUnknownConversation(t *testing.T) {
	srv := newFakeServer()
	session, _ := newTestSession(t, srv, 7, "Dr. Meera Rao", models.RoleCustomer)
	ctx := context.Background()

	if err := session.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := session.Select(ctx, 99); err == nil {
		t.Fatal("expected error for conversation not in the list")
	}
}

func TestPendingThreadReconciliation(t *testing.T) {
	srv := newFakeServer()
	session, n := newTestSession(t, srv, 7, "Dr. Meera Rao", models.RoleCustomer)
	ctx := context.Background()

	if err := session.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := session.OpenThread(ctx, 42, 7, 3, "Benchtop centrifuge", "LabTech Instruments"); err != nil {
		t.Fatalf("open thread: %v", err)
	}

	pending, ok := session.Selection().(PendingConversation)
	if !ok {
		t.Fatalf("expected pending selection, got %T", session.Selection())
	}
	if pending.RFQID != 42 || pending.VendorID != 3 {
		t.Fatalf("unexpected pending context: %+v", pending)
	}
	if !session.CanSend() {
		t.Fatal("customer must be able to send on a pending thread")
	}

	session.SetCompose("Interested in a quote")
	if err := session.Send(ctx); err != nil {
		t.Fatalf("send: %v", err)
	}

	real, ok := session.Selection().(RealConversation)
	if !ok {
		t.Fatalf("expected real selection after reconciliation, got %T", session.Selection())
	}
	if real.Conversation.RFQID != 42 || real.Conversation.CustomerID != 7 || real.Conversation.VendorID != 3 {
		t.Fatalf("reconciled to wrong conversation: %+v", real.Conversation)
	}
	if got := session.Messages(); len(got) != 1 || got[0].MessageText != "Interested in a quote" {
		t.Fatalf("expected the sent message as history, got %+v", got)
	}
	if session.Compose() != "" {
		t.Fatalf("expected draft cleared, got %q", session.Compose())
	}
	if len(n.joinedRooms) == 0 || n.joinedRooms[len(n.joinedRooms)-1] != real.Conversation.ID {
		t.Fatalf("expected room join for the created conversation, got %v", n.joinedRooms)
	}
	if got := session.Conversations(); len(got) != 1 {
		t.Fatalf("expected refreshed list with the new row, got %+v", got)
	}
}

func TestVendorPendingIsTerminal(t *testing.T) {
	srv := newFakeServer()
	session, _ := newTestSession(t, srv, 3, "LabTech Instruments", models.RoleVendor)
	ctx := context.Background()

	if err := session.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := session.OpenThread(ctx, 42, 7, 3, "Benchtop centrifuge", "Dr. Meera Rao"); err != nil {
		t.Fatalf("open thread: %v", err)
	}

	if session.CanSend() {
		t.Fatal("vendor must not send into a pending thread")
	}
	session.SetCompose("Hello")
	if err := session.Send(ctx); err == nil {
		t.Fatal("expected send rejection for vendor on pending thread")
	}
	if srv.sends() != 0 {
		t.Fatalf("rejection must happen client-side, server saw %d sends", srv.sends())
	}
}

func TestSendInRealConversation(t *testing.T) {
	srv := newFakeServer()
	srv.conversations = []services.ConversationSummary{{ID: 1, RFQID: 42, CustomerID: 7, VendorID: 3}}
	session, n := newTestSession(t, srv, 7, "Dr. Meera Rao", models.RoleCustomer)
	ctx := context.Background()

	if err := session.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := session.Select(ctx, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	session.SetCompose("What is the lead time?")
	if err := session.Send(ctx); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := session.Messages(); len(got) != 1 || got[0].MessageText != "What is the lead time?" {
		t.Fatalf("expected the sent message appended, got %+v", got)
	}
	if session.Compose() != "" {
		t.Fatal("expected draft cleared after send")
	}

	n.mu.Lock()
	stops := n.typingStop
	n.mu.Unlock()
	if stops == 0 {
		t.Fatal("expected typing:stop after send")
	}

	// Whitespace drafts never reach the server.
	session.SetCompose("   ")
	if err := session.Send(ctx); err != nil {
		t.Fatalf("blank send: %v", err)
	}
	if srv.sends() != 1 {
		t.Fatalf("expected blank draft suppressed, server saw %d sends", srv.sends())
	}
}

func TestHandleEventNewMessage(t *testing.T) {
	srv := newFakeServer()
	srv.conversations = []services.ConversationSummary{{ID: 1, RFQID: 42, CustomerID: 7, VendorID: 3}}
	session, _ := newTestSession(t, srv, 7, "Dr. Meera Rao", models.RoleCustomer)
	ctx := context.Background()

	if err := session.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := session.Select(ctx, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	readsBefore := srv.readCount()

	incoming := models.Message{ID: 9, ConversationID: 1, SenderID: 3, SenderType: models.RoleVendor, MessageText: "In stock"}
	data, _ := json.Marshal(incoming)
	session.HandleEvent(ctx, realtime.Envelope{Event: realtime.EventNewMessage, Data: data})

	if got := session.Messages(); len(got) != 1 || got[0].ID != 9 {
		t.Fatalf("expected incoming message appended, got %+v", got)
	}
	if srv.readCount() != readsBefore+1 {
		t.Fatal("viewing the thread must acknowledge the incoming message")
	}

	// Duplicate delivery is a no-op.
	session.HandleEvent(ctx, realtime.Envelope{Event: realtime.EventNewMessage, Data: data})
	if got := session.Messages(); len(got) != 1 {
		t.Fatalf("expected dedup by id, got %d messages", len(got))
	}

	// A message for another conversation is ignored.
	other := models.Message{ID: 10, ConversationID: 2, SenderID: 4, SenderType: models.RoleVendor, MessageText: "elsewhere"}
	data, _ = json.Marshal(other)
	session.HandleEvent(ctx, realtime.Envelope{Event: realtime.EventNewMessage, Data: data})
	if got := session.Messages(); len(got) != 1 {
		t.Fatalf("expected foreign message ignored, got %+v", got)
	}
}

func TestHandleEventTypingAndStatus(t *testing.T) {
	srv := newFakeServer()
	session, _ := newTestSession(t, srv, 7, "Dr. Meera Rao", models.RoleCustomer)
	ctx := context.Background()

	data, _ := json.Marshal(realtime.TypingPayload{UserName: "LabTech Instruments"})
	session.HandleEvent(ctx, realtime.Envelope{Event: realtime.EventTypingStart, Data: data})
	if session.TypingPeer() != "LabTech Instruments" {
		t.Fatalf("expected typing peer set, got %q", session.TypingPeer())
	}
	session.HandleEvent(ctx, realtime.Envelope{Event: realtime.EventTypingStop})
	if session.TypingPeer() != "" {
		t.Fatalf("expected typing peer cleared, got %q", session.TypingPeer())
	}

	data, _ = json.Marshal(realtime.UserStatusPayload{UserID: 3, UserType: "vendor", IsOnline: true})
	session.HandleEvent(ctx, realtime.Envelope{Event: realtime.EventUserStatus, Data: data})
	if !session.IsOnline(models.RoleVendor, 3) {
		t.Fatal("expected vendor 3 online")
	}
	data, _ = json.Marshal(realtime.UserStatusPayload{UserID: 3, UserType: "vendor", IsOnline: false})
	session.HandleEvent(ctx, realtime.Envelope{Event: realtime.EventUserStatus, Data: data})
	if session.IsOnline(models.RoleVendor, 3) {
		t.Fatal("expected vendor 3 offline")
	}
}

func TestCloseResetsSession(t *testing.T) {
	srv := newFakeServer()
	srv.conversations = []services.ConversationSummary{{ID: 1, RFQID: 42, CustomerID: 7, VendorID: 3}}
	session, n := newTestSession(t, srv, 7, "Dr. Meera Rao", models.RoleCustomer)
	ctx := context.Background()

	if err := session.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := session.Select(ctx, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	session.Close()

	if session.State() != StateIdle {
		t.Fatalf("expected idle state, got %v", session.State())
	}
	if session.Selection() != nil || len(session.Conversations()) != 0 || len(session.Messages()) != 0 {
		t.Fatal("expected all state discarded")
	}
	n.mu.Lock()
	closed := n.closed
	left := len(n.leftRooms)
	n.mu.Unlock()
	if !closed || left == 0 {
		t.Fatal("expected room leave and notifier close")
	}

	// Give the typing timer goroutine (if any) a moment; Close stopped it.
	time.Sleep(10 * time.Millisecond)
}
