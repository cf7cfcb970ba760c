package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RestockRequest is the body of POST /v1/products/:id/stock.
type RestockRequest struct {
	Quantity       decimal.Decimal `json:"quantity"        validate:"required,gt=0"`
	ExpirationDate *time.Time      `json:"expiration_date"`
}

// WithdrawRequest is the body of POST /v1/products/:id/withdraw (non-sale adjustments).
type WithdrawRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required,gt=0"`
	Reason   string          `json:"reason"   validate:"max=200"`
}

type LotWithdrawalResponse struct {
	LotID     string          `json:"lot_id"`
	Taken     decimal.Decimal `json:"taken"`
	Remaining decimal.Decimal `json:"remaining"`
	Deleted   bool            `json:"deleted"`
}

type WithdrawalResponse struct {
	ProductID      string                  `json:"product_id"`
	Requested      decimal.Decimal         `json:"requested"`
	Withdrawn      decimal.Decimal         `json:"withdrawn"`
	Lots           []LotWithdrawalResponse `json:"lots"`
	AggregateStock decimal.Decimal         `json:"aggregate_stock"`
}

type StockAlertResponse struct {
	ProductID      string          `json:"product_id"`
	Reference      string          `json:"reference"`
	Name           string          `json:"name"`
	AggregateStock decimal.Decimal `json:"aggregate_stock"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
}

// MovementFilter is bound from the query string of GET /v1/inventory/movements.
type MovementFilter struct {
	ProductID string `form:"product_id" validate:"omitempty,uuid"`
	Type      string `form:"type"`
	Page      int    `form:"page,default=1"    validate:"min=1"`
	Limit     int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type MovementResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	LotID       *string         `json:"lot_id"`
	Type        string          `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	StockBefore decimal.Decimal `json:"stock_before"`
	StockAfter  decimal.Decimal `json:"stock_after"`
	Reason      string          `json:"reason"`
	ReferenceID *string         `json:"reference_id"`
	CreatedAt   string          `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
