package models

import "time"

// Message is one entry in a conversation's append-only log. Immutable after
// insert except for IsRead, which only ever transitions false to true.
// Rows are cascade-deleted with their conversation.
type Message struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	ConversationID uint         `json:"conversation_id" gorm:"not null;index"`
	Conversation   Conversation `json:"-" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	SenderType     Role         `json:"sender_type" gorm:"size:20;not null;check:sender_type IN ('customer','vendor')"`
	SenderID       uint         `json:"sender_id" gorm:"not null"`
	MessageText    string       `json:"message_text" gorm:"type:text;not null"`
	IsRead         bool         `json:"is_read" gorm:"not null;default:false"`
	CreatedAt      time.Time    `json:"created_at"`

	// Display name of the sender, joined in by list queries.
	SenderName string `json:"sender_name,omitempty" gorm:"->;-:migration"`
}

func (Message) TableName() string { return "messages" }
