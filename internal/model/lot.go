package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot sources.
const (
	LotSourceRestock = "restock"
	LotSourceInitial = "initial"
	LotSourceReturn  = "return"
)

// Lot is a batch of received stock for one product.
// QuantityRemaining never exceeds QuantityReceived; a lot that reaches zero
// is deleted by the withdrawal that empties it.
type Lot struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantityReceived  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	QuantityRemaining decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	ExpirationDate    *time.Time
	Source            string `gorm:"type:varchar(20);not null;default:'restock'"`
	CreatedAt         time.Time
}

// AvailableAt reports whether the lot may be drawn from at instant now:
// lots without expiration never expire, dated lots must expire strictly later.
func (l *Lot) AvailableAt(now time.Time) bool {
	return l.ExpirationDate == nil || l.ExpirationDate.After(now)
}
