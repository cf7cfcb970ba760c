package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type PurchaseLineRequest struct {
	ProductID   string          `json:"product_id"    validate:"required,uuid"`
	Quantity    decimal.Decimal `json:"quantity"      validate:"required,gt=0"`
	SellAsWhole bool            `json:"sell_as_whole"`
	Discount    decimal.Decimal `json:"discount"      validate:"min=0"`
}

type CreatePurchaseRequest struct {
	ClientID       string                `json:"client_id"       validate:"required,uuid"`
	Lines          []PurchaseLineRequest `json:"lines"           validate:"required,min=1,dive"`
	GlobalDiscount decimal.Decimal       `json:"global_discount" validate:"min=0"`
	Notes          *string               `json:"notes"           validate:"omitempty,max=500"`
	AmountPaid     decimal.Decimal       `json:"amount_paid"     validate:"min=0"`
}

type AddPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// PurchaseFilter is bound from the query string of GET /v1/purchases.
type PurchaseFilter struct {
	ClientID string `form:"client_id" validate:"omitempty,uuid"`
	Status   string `form:"status"    validate:"omitempty,oneof=VALID PARTIALLY_RETURNED FULLY_RETURNED"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PurchaseLineResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	Product           string          `json:"product"`
	QuantitySold      decimal.Decimal `json:"quantity_sold"`
	SellAsWhole       bool            `json:"sell_as_whole"`
	WithdrawnQuantity decimal.Decimal `json:"withdrawn_quantity"`
	UnitPriceUsed     decimal.Decimal `json:"unit_price_used"`
	LineDiscount      decimal.Decimal `json:"line_discount"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ReturnedQuantity  decimal.Decimal `json:"returned_quantity"`
}

type PurchaseResponse struct {
	ID                 uint                   `json:"id"`
	Number             string                 `json:"number"`
	ClientID           string                 `json:"client_id"`
	Client             string                 `json:"client"`
	StaffID            *string                `json:"staff_id"`
	Lines              []PurchaseLineResponse `json:"lines"`
	Subtotal           decimal.Decimal        `json:"subtotal"`
	GlobalDiscount     decimal.Decimal        `json:"global_discount"`
	NetTotal           decimal.Decimal        `json:"net_total"`
	AmountPaid         decimal.Decimal        `json:"amount_paid"`
	TotalRefunded      decimal.Decimal        `json:"total_refunded"`
	OutstandingBalance decimal.Decimal        `json:"outstanding_balance"`
	Status             string                 `json:"status"`
	Notes              *string                `json:"notes"`
	CreatedAt          string                 `json:"created_at"`
}

type PurchaseListResponse struct {
	Data  []PurchaseResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
