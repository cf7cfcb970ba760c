package dto

import "github.com/shopspring/decimal"

type ReturnLineRequest struct {
	PurchaseLineID   string          `json:"purchase_line_id"  validate:"required,uuid"`
	ProductID        string          `json:"product_id"        validate:"required,uuid"`
	QuantityReturned decimal.Decimal `json:"quantity_returned" validate:"required,gt=0"`
	Note             *string         `json:"note"              validate:"omitempty,max=200"`
}

type CreateReturnRequest struct {
	PurchaseID  uint                `json:"purchase_id"  validate:"required"`
	Lines       []ReturnLineRequest `json:"lines"        validate:"required,min=1,dive"`
	ReasonNotes *string             `json:"reason_notes" validate:"omitempty,max=500"`
}

type ReturnLineResponse struct {
	ID               string          `json:"id"`
	PurchaseLineID   string          `json:"purchase_line_id"`
	ProductID        string          `json:"product_id"`
	Product          string          `json:"product"`
	QuantityReturned decimal.Decimal `json:"quantity_returned"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	Note             *string         `json:"note"`
}

type ReturnResponse struct {
	ID             uint                 `json:"id"`
	Number         string               `json:"number"`
	PurchaseID     uint                 `json:"purchase_id"`
	PurchaseNumber string               `json:"purchase_number"`
	PurchaseStatus string               `json:"purchase_status"`
	Lines          []ReturnLineResponse `json:"lines"`
	TotalRefund    decimal.Decimal      `json:"total_refund"`
	ReasonNotes    *string              `json:"reason_notes"`
	CreatedAt      string               `json:"created_at"`
}
