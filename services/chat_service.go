package services

import (
	"context"
	"strings"
	"time"

	"github.com/VarunDhamode/SciEquip-Website/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MessagePublisher pushes a freshly persisted message to realtime
// subscribers of its conversation. Delivery is best-effort; implementations
// must not block the caller.
type MessagePublisher interface {
	PublishMessage(conversationID uint, msg *models.Message)
}

// ChatService owns conversation resolution, the message log, and unread
// bookkeeping.
type ChatService struct {
	db  *gorm.DB
	pub MessagePublisher
}

func NewChatService(db *gorm.DB, pub MessagePublisher) *ChatService {
	return &ChatService{db: db, pub: pub}
}

// ConversationSummary is a conversation row denormalized for listing:
// counterpart identity, RFQ title and a best-effort presence flag.
type ConversationSummary struct {
	ID                  uint      `json:"id"`
	RFQID               uint      `json:"rfq_id" gorm:"column:rfq_id"`
	CustomerID          uint      `json:"customer_id"`
	VendorID            uint      `json:"vendor_id"`
	LastMessageAt       time.Time `json:"last_message_at"`
	CustomerUnreadCount int       `json:"customer_unread_count"`
	VendorUnreadCount   int       `json:"vendor_unread_count"`
	CreatedAt           time.Time `json:"created_at"`
	CounterpartName     string    `json:"counterpart_name"`
	CounterpartEmail    string    `json:"counterpart_email"`
	RFQTitle            string    `json:"rfq_title"`
	CounterpartOnline   bool      `json:"counterpart_online"`
}

// UnreadFor returns the unread count belonging to the given reader role.
func (c ConversationSummary) UnreadFor(role models.Role) int {
	if role == models.RoleCustomer {
		return c.CustomerUnreadCount
	}
	return c.VendorUnreadCount
}

// ResolveOrCreate maps an (rfq, customer, vendor) triple to its conversation
// id, creating the row on first use. Two concurrent calls for the same triple
// may both miss the lookup; the unique constraint on the triple then rejects
// one insert and the loser re-queries the winner's row, so both callers get
// the same id and the conflict never escapes.
func (s *ChatService) ResolveOrCreate(ctx context.Context, rfqID, customerID, vendorID uint) (uint, error) {
	if rfqID == 0 || customerID == 0 || vendorID == 0 {
		return 0, validationf("rfqId, customerId and vendorId are all required to start a conversation")
	}

	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Where("rfq_id = ? AND customer_id = ? AND vendor_id = ?", rfqID, customerID, vendorID).
		First(&conv).Error
	if err == nil {
		return conv.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, &StorageError{Err: errors.Wrap(err, "lookup conversation")}
	}

	conv = models.Conversation{
		RFQID:         rfqID,
		CustomerID:    customerID,
		VendorID:      vendorID,
		LastMessageAt: time.Now(),
	}
	err = s.db.WithContext(ctx).Create(&conv).Error
	if err == nil {
		return conv.ID, nil
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// Lost the race; the constraint already picked a winner.
		var winner models.Conversation
		if err := s.db.WithContext(ctx).
			Where("rfq_id = ? AND customer_id = ? AND vendor_id = ?", rfqID, customerID, vendorID).
			First(&winner).Error; err != nil {
			return 0, &StorageError{Err: errors.Wrap(err, "re-query conversation after conflict")}
		}
		return winner.ID, nil
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return 0, &ReferentialError{Reason: "rfq, customer or vendor does not exist"}
	default:
		return 0, &StorageError{Err: errors.Wrap(err, "create conversation")}
	}
}

// ListConversations returns one side's conversations, newest activity first.
func (s *ChatService) ListConversations(ctx context.Context, userID uint, role models.Role) ([]ConversationSummary, error) {
	if !role.Valid() {
		return nil, validationf("unknown user type %q", string(role))
	}

	q := s.db.WithContext(ctx).
		Table("conversations AS c").
		Joins("JOIN rfqs r ON r.id = c.rfq_id")

	if role == models.RoleCustomer {
		q = q.Select(`c.id, c.rfq_id, c.customer_id, c.vendor_id, c.last_message_at,
				c.customer_unread_count, c.vendor_unread_count, c.created_at,
				v.name AS counterpart_name, v.email AS counterpart_email,
				r.title AS rfq_title, COALESCE(os.is_online, FALSE) AS counterpart_online`).
			Joins("JOIN vendors v ON v.id = c.vendor_id").
			Joins("LEFT JOIN online_statuses os ON os.user_id = c.vendor_id AND os.user_type = 'vendor'").
			Where("c.customer_id = ?", userID)
	} else {
		q = q.Select(`c.id, c.rfq_id, c.customer_id, c.vendor_id, c.last_message_at,
				c.customer_unread_count, c.vendor_unread_count, c.created_at,
				cu.name AS counterpart_name, cu.email AS counterpart_email,
				r.title AS rfq_title, COALESCE(os.is_online, FALSE) AS counterpart_online`).
			Joins("JOIN customers cu ON cu.id = c.customer_id").
			Joins("LEFT JOIN online_statuses os ON os.user_id = c.customer_id AND os.user_type = 'customer'").
			Where("c.vendor_id = ?", userID)
	}

	var out []ConversationSummary
	if err := q.Order("c.last_message_at DESC").Scan(&out).Error; err != nil {
		return nil, &StorageError{Err: errors.Wrap(err, "list conversations")}
	}
	return out, nil
}

// ListMessages returns a conversation's full history, oldest first, with the
// sender's display name joined from the owning party's table.
func (s *ChatService) ListMessages(ctx context.Context, conversationID uint) ([]models.Message, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "conversation", ID: conversationID}
		}
		return nil, &StorageError{Err: errors.Wrap(err, "load conversation")}
	}

	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Table("messages AS m").
		Select(`m.*, CASE WHEN m.sender_type = 'customer' THEN cu.name ELSE v.name END AS sender_name`).
		Joins("LEFT JOIN customers cu ON cu.id = m.sender_id AND m.sender_type = 'customer'").
		Joins("LEFT JOIN vendors v ON v.id = m.sender_id AND m.sender_type = 'vendor'").
		Where("m.conversation_id = ?", conversationID).
		Order("m.created_at ASC, m.id ASC").
		Scan(&msgs).Error
	if err != nil {
		return nil, &StorageError{Err: errors.Wrap(err, "list messages")}
	}
	return msgs, nil
}

// PostMessageInput carries either an existing conversation id or the triple
// needed to resolve one.
type PostMessageInput struct {
	ConversationID uint
	SenderID       uint
	SenderType     models.Role
	MessageText    string

	RFQID      uint
	CustomerID uint
	VendorID   uint
}

// PostMessage appends a message, bumps the conversation's activity timestamp,
// and increments the counterpart's unread counter, all in one transaction.
// The realtime publish happens only after commit and cannot undo it.
func (s *ChatService) PostMessage(ctx context.Context, in PostMessageInput) (*models.Message, error) {
	text := strings.TrimSpace(in.MessageText)
	if text == "" {
		return nil, validationf("message text must not be empty")
	}
	if !in.SenderType.Valid() {
		return nil, validationf("unknown sender type %q", string(in.SenderType))
	}
	if in.SenderID == 0 {
		return nil, validationf("senderId is required")
	}

	convID := in.ConversationID
	if convID == 0 {
		// Conversation origination is one-directional: only the customer may
		// open a thread with a vendor.
		if in.SenderType != models.RoleCustomer {
			return nil, validationf("vendors cannot start a conversation; wait for the customer to initiate")
		}
		var err error
		convID, err = s.ResolveOrCreate(ctx, in.RFQID, in.CustomerID, in.VendorID)
		if err != nil {
			return nil, err
		}
	}

	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "conversation", ID: convID}
		}
		return nil, &StorageError{Err: errors.Wrap(err, "load conversation")}
	}
	if in.SenderType == models.RoleCustomer && conv.CustomerID != in.SenderID {
		return nil, validationf("sender is not the customer on this conversation")
	}
	if in.SenderType == models.RoleVendor && conv.VendorID != in.SenderID {
		return nil, validationf("sender is not the vendor on this conversation")
	}

	msg := models.Message{
		ConversationID: convID,
		SenderType:     in.SenderType,
		SenderID:       in.SenderID,
		MessageText:    text,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		counter := in.SenderType.Counterpart().UnreadColumn()
		return tx.Model(&models.Conversation{}).
			Where("id = ?", convID).
			Updates(map[string]interface{}{
				"last_message_at": time.Now(),
				counter:           gorm.Expr(counter + " + 1"),
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, &ReferentialError{Reason: "conversation does not exist"}
		}
		return nil, &StorageError{Err: errors.Wrap(err, "persist message")}
	}

	// Durably persisted; push to whoever is watching the room.
	if s.pub != nil {
		s.pub.PublishMessage(convID, &msg)
	}
	return &msg, nil
}

// MarkConversationRead flips every unread counterpart message in the
// conversation to read and resets the reader's unread counter. Calling it
// again is a no-op.
func (s *ChatService) MarkConversationRead(ctx context.Context, conversationID uint, reader models.Role) error {
	if !reader.Valid() {
		return validationf("unknown user type %q", string(reader))
	}
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "conversation", ID: conversationID}
		}
		return &StorageError{Err: errors.Wrap(err, "load conversation")}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_type <> ? AND is_read = ?", conversationID, reader, false).
			Update("is_read", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update(reader.UnreadColumn(), 0).Error
	})
	if err != nil {
		return &StorageError{Err: errors.Wrap(err, "mark conversation read")}
	}
	return nil
}

// MarkMessageRead flips one message's read flag. Idempotent.
func (s *ChatService) MarkMessageRead(ctx context.Context, messageID uint) error {
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "message", ID: messageID}
		}
		return &StorageError{Err: errors.Wrap(err, "load message")}
	}
	if msg.IsRead {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", messageID).
		Update("is_read", true).Error; err != nil {
		return &StorageError{Err: errors.Wrap(err, "mark message read")}
	}
	return nil
}
