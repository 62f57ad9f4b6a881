package models

import "time"

// Conversation is the unique messaging thread between one customer and one
// vendor about one RFQ. Created lazily on the first message send for its
// triple and never deleted.
//
// The unique index on (rfq_id, customer_id, vendor_id) is the concurrency
// control for conversation creation: concurrent first sends race on the
// insert and the constraint decides the winner.
type Conversation struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	RFQID               uint      `json:"rfq_id" gorm:"column:rfq_id;not null;uniqueIndex:uq_conversation_triple"`
	CustomerID          uint      `json:"customer_id" gorm:"not null;uniqueIndex:uq_conversation_triple"`
	VendorID            uint      `json:"vendor_id" gorm:"not null;uniqueIndex:uq_conversation_triple"`
	LastMessageAt       time.Time `json:"last_message_at" gorm:"not null;autoCreateTime"`
	CustomerUnreadCount int       `json:"customer_unread_count" gorm:"not null;default:0"`
	VendorUnreadCount   int       `json:"vendor_unread_count" gorm:"not null;default:0"`
	CreatedAt           time.Time `json:"created_at"`

	RFQ      RFQ      `json:"-" gorm:"foreignKey:RFQID"`
	Customer Customer `json:"-" gorm:"foreignKey:CustomerID"`
	Vendor   Vendor   `json:"-" gorm:"foreignKey:VendorID"`
}

func (Conversation) TableName() string { return "conversations" }
