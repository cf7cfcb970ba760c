package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus only moves forward: VALID → PARTIALLY_RETURNED → FULLY_RETURNED.
type PurchaseStatus string

const (
	PurchaseValid             PurchaseStatus = "VALID"
	PurchasePartiallyReturned PurchaseStatus = "PARTIALLY_RETURNED"
	PurchaseFullyReturned     PurchaseStatus = "FULLY_RETURNED"
)

func (s PurchaseStatus) rank() int {
	switch s {
	case PurchasePartiallyReturned:
		return 1
	case PurchaseFullyReturned:
		return 2
	default:
		return 0
	}
}

// Purchase is a sale to a client. The line set is fixed at creation; only
// ReturnedQuantity, Status, AmountPaid and TotalRefunded change afterwards.
type Purchase struct {
	ID             uint            `gorm:"primaryKey"`
	Number         string          `gorm:"type:varchar(60);uniqueIndex;not null"`
	ClientID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	StaffID        *uuid.UUID      `gorm:"type:uuid"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	GlobalDiscount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	NetTotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalRefunded  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status         PurchaseStatus  `gorm:"type:varchar(20);not null;default:'VALID'"`
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Client *Client        `gorm:"foreignKey:ClientID"`
	Lines  []PurchaseLine `gorm:"foreignKey:PurchaseID"`
}

// OutstandingBalance is what the client still owes once refunds are netted out.
func (p *Purchase) OutstandingBalance() decimal.Decimal {
	return p.NetTotal.Sub(p.TotalRefunded).Sub(p.AmountPaid)
}

// DeriveStatus computes the status implied by the lines' returned quantities.
// It never regresses below the current status.
func (p *Purchase) DeriveStatus() PurchaseStatus {
	derived := PurchaseValid
	if len(p.Lines) > 0 {
		all, some := true, false
		for _, l := range p.Lines {
			if l.ReturnedQuantity.IsPositive() {
				some = true
			}
			if l.ReturnedQuantity.LessThan(l.QuantitySold) {
				all = false
			}
		}
		switch {
		case all:
			derived = PurchaseFullyReturned
		case some:
			derived = PurchasePartiallyReturned
		}
	}
	if derived.rank() < p.Status.rank() {
		return p.Status
	}
	return derived
}

// PurchaseLine is one product sold within a Purchase.
// WithdrawnQuantity is the physical stock taken, which differs from
// QuantitySold for weighted products sold by measure.
type PurchaseLine struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PurchaseID        uint            `gorm:"not null;index"`
	Position          int             `gorm:"not null;default:0"` // 1-based order within the ticket
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantitySold      decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	SellAsWhole       bool            `gorm:"not null;default:false"`
	WithdrawnQuantity decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitPriceUsed     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineDiscount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ReturnedQuantity  decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

// Returnable is the quantity that can still be returned on this line.
func (l *PurchaseLine) Returnable() decimal.Decimal {
	return l.QuantitySold.Sub(l.ReturnedQuantity)
}
