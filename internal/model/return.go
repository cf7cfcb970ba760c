package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Return records goods brought back against a Purchase. Returns are never
// modified after creation.
type Return struct {
	ID          uint            `gorm:"primaryKey"`
	Number      string          `gorm:"type:varchar(60);uniqueIndex;not null"`
	PurchaseID  uint            `gorm:"not null;index"`
	StaffID     *uuid.UUID      `gorm:"type:uuid"`
	TotalRefund decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ReasonNotes *string
	CreatedAt   time.Time

	Lines []ReturnLine `gorm:"foreignKey:ReturnID"`
}

// ReturnLine refunds part of one PurchaseLine at the price it was sold at.
type ReturnLine struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReturnID         uint            `gorm:"not null;index"`
	Position         int             `gorm:"not null;default:0"`
	PurchaseLineID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	QuantityReturned decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	RefundAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Note             *string

	Product *Product `gorm:"foreignKey:ProductID"`
}
