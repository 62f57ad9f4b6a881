package models

import (
	"time"

	"gorm.io/datatypes"
)

// RFQ is a customer-posted request for quote. Bids and conversations are
// anchored to it.
type RFQ struct {
	ID          uint     `json:"id" gorm:"primaryKey"`
	CustomerID  uint     `json:"customer_id" gorm:"not null;index"`
	Customer    Customer `json:"-" gorm:"foreignKey:CustomerID"`
	Title       string   `json:"title" gorm:"size:255;not null"`
	Category    string   `json:"category" gorm:"size:100"`
	Description string   `json:"description" gorm:"type:text"`
	Budget      float64  `json:"budget" gorm:"type:decimal(18,2)"`
	Status      string   `json:"status" gorm:"size:50;default:'Open'"`
	VendorBids  int      `json:"vendor_bids" gorm:"not null;default:0"`
	// Structured equipment parameters (wattage, capacity, calibration class...)
	// captured by the RFQ form.
	EquipmentSpecs datatypes.JSON `json:"equipment_specs"`
	CreatedAt      time.Time      `json:"created_at"`
}

func (RFQ) TableName() string { return "rfqs" }
