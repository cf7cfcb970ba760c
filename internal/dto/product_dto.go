package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Reference      string           `json:"reference"       validate:"required,min=1,max=60"`
	Name           string           `json:"name"            validate:"required,min=2,max=120"`
	SaleMode       string           `json:"sale_mode"       validate:"required,oneof=TOTAL PARTIAL BOTH"`
	TotalPrice     *decimal.Decimal `json:"total_price"`
	PartialPrice   *decimal.Decimal `json:"partial_price"`
	UnitOfMeasure  *string          `json:"unit_of_measure" validate:"omitempty,max=20"`
	WeightPerPiece *decimal.Decimal `json:"weight_per_piece"`
	Perishable     bool             `json:"perishable"`
	AlertThreshold decimal.Decimal  `json:"alert_threshold" validate:"min=0"`
	InitialStock   decimal.Decimal  `json:"initial_stock"   validate:"min=0"`
	// InitialExpiration is required for perishable products created with stock.
	InitialExpiration *time.Time `json:"initial_expiration"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	Name   string `form:"name"`
	Active string `form:"active"` // "true" (default) | "false" | "all"
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LotResponse struct {
	ID                string          `json:"id"`
	QuantityReceived  decimal.Decimal `json:"quantity_received"`
	QuantityRemaining decimal.Decimal `json:"quantity_remaining"`
	ExpirationDate    *string         `json:"expiration_date"`
	Expired           bool            `json:"expired"`
	Source            string          `json:"source"`
	CreatedAt         string          `json:"created_at"`
}

type ProductResponse struct {
	ID             string           `json:"id"`
	Reference      string           `json:"reference"`
	Name           string           `json:"name"`
	SaleMode       string           `json:"sale_mode"`
	TotalPrice     *decimal.Decimal `json:"total_price"`
	PartialPrice   *decimal.Decimal `json:"partial_price"`
	UnitOfMeasure  *string          `json:"unit_of_measure"`
	WeightPerPiece *decimal.Decimal `json:"weight_per_piece"`
	Perishable     bool             `json:"perishable"`
	AlertThreshold decimal.Decimal  `json:"alert_threshold"`
	AggregateStock decimal.Decimal  `json:"aggregate_stock"`
	Active         bool             `json:"active"`
	Lots           []LotResponse    `json:"lots,omitempty"`
}

type ProductListResponse struct {
	Data       []ProductResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}
