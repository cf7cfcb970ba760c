package service

import (
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

func productToResponse(p *model.Product, lots []model.Lot, now time.Time) *dto.ProductResponse {
	resp := &dto.ProductResponse{
		ID:             p.ID.String(),
		Reference:      p.Reference,
		Name:           p.Name,
		SaleMode:       string(p.SaleMode),
		TotalPrice:     p.TotalPrice,
		PartialPrice:   p.PartialPrice,
		UnitOfMeasure:  p.UnitOfMeasure,
		WeightPerPiece: p.WeightPerPiece,
		Perishable:     p.Perishable,
		AlertThreshold: p.AlertThreshold,
		AggregateStock: p.AggregateStock,
		Active:         p.Active,
	}
	for i := range lots {
		resp.Lots = append(resp.Lots, lotToResponse(&lots[i], now))
	}
	return resp
}

func lotToResponse(l *model.Lot, now time.Time) dto.LotResponse {
	var exp *string
	if l.ExpirationDate != nil {
		s := l.ExpirationDate.Format(timeLayout)
		exp = &s
	}
	return dto.LotResponse{
		ID:                l.ID.String(),
		QuantityReceived:  l.QuantityReceived,
		QuantityRemaining: l.QuantityRemaining,
		ExpirationDate:    exp,
		Expired:           !l.AvailableAt(now),
		Source:            l.Source,
		CreatedAt:         l.CreatedAt.Format(timeLayout),
	}
}

func withdrawalToResponse(r *WithdrawalResult) *dto.WithdrawalResponse {
	lots := make([]dto.LotWithdrawalResponse, 0, len(r.Lots))
	for _, lw := range r.Lots {
		lots = append(lots, dto.LotWithdrawalResponse{
			LotID:     lw.LotID.String(),
			Taken:     lw.Taken,
			Remaining: lw.Remaining,
			Deleted:   lw.Deleted,
		})
	}
	return &dto.WithdrawalResponse{
		ProductID:      r.ProductID.String(),
		Requested:      r.Requested,
		Withdrawn:      r.Withdrawn,
		Lots:           lots,
		AggregateStock: r.AggregateStock,
	}
}

func movementToResponse(m *model.StockMovement) dto.MovementResponse {
	var lotID *string
	if m.LotID != nil {
		s := m.LotID.String()
		lotID = &s
	}
	return dto.MovementResponse{
		ID:          m.ID.String(),
		ProductID:   m.ProductID.String(),
		LotID:       lotID,
		Type:        m.Type,
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		ReferenceID: m.ReferenceID,
		CreatedAt:   m.CreatedAt.Format(timeLayout),
	}
}

func purchaseToResponse(p *model.Purchase) *dto.PurchaseResponse {
	lines := make([]dto.PurchaseLineResponse, 0, len(p.Lines))
	for _, l := range p.Lines {
		name := ""
		if l.Product != nil {
			name = l.Product.Name
		}
		lines = append(lines, dto.PurchaseLineResponse{
			ID:                l.ID.String(),
			ProductID:         l.ProductID.String(),
			Product:           name,
			QuantitySold:      l.QuantitySold,
			SellAsWhole:       l.SellAsWhole,
			WithdrawnQuantity: l.WithdrawnQuantity,
			UnitPriceUsed:     l.UnitPriceUsed,
			LineDiscount:      l.LineDiscount,
			Subtotal:          l.Subtotal,
			ReturnedQuantity:  l.ReturnedQuantity,
		})
	}
	client := ""
	if p.Client != nil {
		client = p.Client.Name
	}
	var staff *string
	if p.StaffID != nil {
		s := p.StaffID.String()
		staff = &s
	}
	return &dto.PurchaseResponse{
		ID:                 p.ID,
		Number:             p.Number,
		ClientID:           p.ClientID.String(),
		Client:             client,
		StaffID:            staff,
		Lines:              lines,
		Subtotal:           p.Subtotal,
		GlobalDiscount:     p.GlobalDiscount,
		NetTotal:           p.NetTotal,
		AmountPaid:         p.AmountPaid,
		TotalRefunded:      p.TotalRefunded,
		OutstandingBalance: p.OutstandingBalance(),
		Status:             string(p.Status),
		Notes:              p.Notes,
		CreatedAt:          p.CreatedAt.Format(timeLayout),
	}
}

func returnToResponse(r *model.Return, purchase *model.Purchase) *dto.ReturnResponse {
	lines := make([]dto.ReturnLineResponse, 0, len(r.Lines))
	for _, l := range r.Lines {
		name := ""
		if l.Product != nil {
			name = l.Product.Name
		}
		lines = append(lines, dto.ReturnLineResponse{
			ID:               l.ID.String(),
			PurchaseLineID:   l.PurchaseLineID.String(),
			ProductID:        l.ProductID.String(),
			Product:          name,
			QuantityReturned: l.QuantityReturned,
			RefundAmount:     l.RefundAmount,
			Note:             l.Note,
		})
	}
	resp := &dto.ReturnResponse{
		ID:          r.ID,
		Number:      r.Number,
		PurchaseID:  r.PurchaseID,
		Lines:       lines,
		TotalRefund: r.TotalRefund,
		ReasonNotes: r.ReasonNotes,
		CreatedAt:   r.CreatedAt.Format(timeLayout),
	}
	if purchase != nil {
		resp.PurchaseNumber = purchase.Number
		resp.PurchaseStatus = string(purchase.Status)
	}
	return resp
}
