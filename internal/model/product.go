package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleMode says how a product may be sold: whole units, measured units, or both.
type SaleMode string

const (
	SaleModeTotal   SaleMode = "TOTAL"
	SaleModePartial SaleMode = "PARTIAL"
	SaleModeBoth    SaleMode = "BOTH"
)

func (m SaleMode) Valid() bool {
	return m == SaleModeTotal || m == SaleModePartial || m == SaleModeBoth
}

// Product is a sellable item.
// AggregateStock is authoritative for non-perishable products and a cached
// sum of non-expired lots for perishable ones (see StockReconciler).
type Product struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Reference      string           `gorm:"uniqueIndex;not null"`
	Name           string           `gorm:"index;not null"`
	SaleMode       SaleMode         `gorm:"type:varchar(10);not null"`
	TotalPrice     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	PartialPrice   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	UnitOfMeasure  *string          `gorm:"type:varchar(20)"`
	WeightPerPiece *decimal.Decimal `gorm:"type:decimal(14,3)"`
	Perishable     bool             `gorm:"not null;default:false"`
	AlertThreshold decimal.Decimal  `gorm:"type:decimal(14,3);not null;default:0"`
	AggregateStock decimal.Decimal  `gorm:"type:decimal(14,3);not null;default:0"`
	Active         bool             `gorm:"not null;default:true"`
	Deleted        bool             `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Lots []Lot `gorm:"foreignKey:ProductID"`
}

// Sellable reports whether the product may be sold or restocked.
func (p *Product) Sellable() bool { return p.Active && !p.Deleted }
