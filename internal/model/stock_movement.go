package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock movement types.
const (
	MovementSale       = "sale"
	MovementRestock    = "restock"
	MovementInitial    = "initial"
	MovementAdjustment = "adjustment"
	MovementReturn     = "return"
)

// StockMovement records every change to a product's stock.
// Created in the same transaction as the change it describes.
type StockMovement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID       *uuid.UUID      `gorm:"type:uuid"`
	Type        string          `gorm:"type:varchar(20);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,3);not null"` // positive = in, negative = out
	StockBefore decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	StockAfter  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Reason      string
	ReferenceID *string `gorm:"type:varchar(40)"` // purchase or return number
	CreatedAt   time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
