package models

import "time"

// Bid is a vendor's offer against an RFQ. Vendors may re-bid; listings only
// surface the latest bid per vendor per RFQ.
type Bid struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RFQID       uint      `json:"rfq_id" gorm:"column:rfq_id;not null;index"`
	RFQ         RFQ       `json:"-" gorm:"foreignKey:RFQID"`
	VendorName  string    `json:"vendor_name" gorm:"size:255"`
	VendorEmail string    `json:"vendor_email" gorm:"size:255;index"`
	Price       float64   `json:"price" gorm:"type:decimal(18,2)"`
	Proposal    string    `json:"proposal" gorm:"type:text"`
	Timestamp   time.Time `json:"timestamp" gorm:"autoCreateTime"`
}
