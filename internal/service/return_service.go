package service

import (
	"context"
	"fmt"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/infra"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReturnService interface {
	Create(ctx context.Context, staffID *uuid.UUID, req dto.CreateReturnRequest) (*dto.ReturnResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.ReturnResponse, error)
	ListByPurchase(ctx context.Context, purchaseID uint) ([]dto.ReturnResponse, error)
}

type returnService struct {
	tx        repository.Transactor
	returns   repository.ReturnRepository
	purchases repository.PurchaseRepository
	products  repository.ProductRepository
	ledger    LotLedger
	cache     ProductCache
	metrics   *infra.Metrics
	now       Clock
}

func NewReturnService(
	tx repository.Transactor,
	returns repository.ReturnRepository,
	purchases repository.PurchaseRepository,
	products repository.ProductRepository,
	ledger LotLedger,
	cache ProductCache,
	metrics *infra.Metrics,
	now Clock,
) ReturnService {
	if now == nil {
		now = time.Now
	}
	return &returnService{
		tx:        tx,
		returns:   returns,
		purchases: purchases,
		products:  products,
		ledger:    ledger,
		cache:     cacheOrNoop(cache),
		metrics:   metrics,
		now:       now,
	}
}

// ReturnNumber formats a return number: RET- followed by the purchase-style number.
func ReturnNumber(createdAt time.Time, id uint) string {
	return fmt.Sprintf("RET-%s-%06d", createdAt.Format("20060102"), id)
}

// restoredQuantity converts a returned sale quantity into the physical
// quantity to put back, in the same ratio the sale withdrew it.
func restoredQuantity(line *model.PurchaseLine, returned decimal.Decimal) decimal.Decimal {
	if line.QuantitySold.IsZero() || line.WithdrawnQuantity.Equal(line.QuantitySold) {
		return returned
	}
	return returned.Mul(line.WithdrawnQuantity).DivRound(line.QuantitySold, 3)
}

// ── Create ────────────────────────────────────────────────────────────────────
// Everything below the pre-checks happens under the purchase row lock:
// line ownership and returnable quantities are checked, the return is
// inserted and numbered, stock is restored, and the purchase status and
// refunded total move forward.

func (s *returnService) Create(ctx context.Context, staffID *uuid.UUID, req dto.CreateReturnRequest) (*dto.ReturnResponse, error) {
	if len(req.Lines) == 0 {
		return nil, apierror.E(apierror.KindValidation, "a return needs at least one line")
	}
	type requestedLine struct {
		lineID    uuid.UUID
		productID uuid.UUID
		qty       decimal.Decimal
		note      *string
	}
	requested := make([]requestedLine, 0, len(req.Lines))
	for i, l := range req.Lines {
		lineID, err := uuid.Parse(l.PurchaseLineID)
		if err != nil {
			return nil, apierror.E(apierror.KindValidation, "line %d: purchase_line_id is invalid", i+1)
		}
		productID, err := uuid.Parse(l.ProductID)
		if err != nil {
			return nil, apierror.E(apierror.KindValidation, "line %d: product_id is invalid", i+1)
		}
		if !l.QuantityReturned.IsPositive() {
			return nil, apierror.E(apierror.KindValidation, "line %d: quantity_returned must be greater than zero", i+1)
		}
		if err := checkQuantityPlaces(l.QuantityReturned, fmt.Sprintf("line %d: quantity_returned", i+1)); err != nil {
			return nil, err
		}
		requested = append(requested, requestedLine{lineID: lineID, productID: productID, qty: l.QuantityReturned, note: l.Note})
	}

	if _, err := s.purchases.FindByID(ctx, req.PurchaseID); err != nil {
		return nil, err
	}

	var (
		returnID   uint
		productIDs []uuid.UUID
	)
	txErr := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		purchase, err := s.purchases.FindByIDForUpdateTx(ctx, tx, req.PurchaseID)
		if err != nil {
			return err
		}
		lines := make(map[uuid.UUID]*model.PurchaseLine, len(purchase.Lines))
		for i := range purchase.Lines {
			lines[purchase.Lines[i].ID] = &purchase.Lines[i]
		}

		totals := make(map[uuid.UUID]decimal.Decimal)
		var order []uuid.UUID
		for _, r := range requested {
			line, ok := lines[r.lineID]
			if !ok {
				return apierror.E(apierror.KindNotFound, "purchase line %s does not belong to purchase %s", r.lineID, purchase.Number)
			}
			if line.ProductID != r.productID {
				return apierror.E(apierror.KindValidation, "purchase line %s was not sold as product %s", r.lineID, r.productID)
			}
			if _, seen := totals[r.lineID]; !seen {
				order = append(order, r.lineID)
			}
			totals[r.lineID] = totals[r.lineID].Add(r.qty)
		}
		for _, id := range order {
			line := lines[id]
			if totals[id].GreaterThan(line.Returnable()) {
				return apierror.E(apierror.KindExceedsReturnable,
					"cannot return %s on line %s: only %s left to return", totals[id], id, line.Returnable())
			}
		}

		ret := model.Return{
			Number:      pendingNumber(),
			PurchaseID:  purchase.ID,
			StaffID:     staffID,
			ReasonNotes: req.ReasonNotes,
			CreatedAt:   s.now(),
		}
		for i, r := range requested {
			line := lines[r.lineID]
			refund := r.qty.Mul(line.UnitPriceUsed).Round(2)
			ret.TotalRefund = ret.TotalRefund.Add(refund)
			ret.Lines = append(ret.Lines, model.ReturnLine{
				ID:               uuid.New(),
				Position:         i + 1,
				PurchaseLineID:   line.ID,
				ProductID:        line.ProductID,
				QuantityReturned: r.qty,
				RefundAmount:     refund,
				Note:             r.note,
			})
		}
		if err := s.returns.CreateTx(ctx, tx, &ret); err != nil {
			return err
		}
		number := ReturnNumber(ret.CreatedAt, ret.ID)
		if err := s.returns.UpdateNumberTx(ctx, tx, ret.ID, number); err != nil {
			return err
		}

		for _, id := range order {
			productIDs = append(productIDs, lines[id].ProductID)
		}
		if err := s.products.LockTx(ctx, tx, productIDs); err != nil {
			return err
		}

		ref := MovementRef{Type: model.MovementReturn, Reason: "return " + number, ReferenceID: &number}
		for _, id := range order {
			line := lines[id]
			qty := totals[id]
			if _, err := s.ledger.Restore(ctx, tx, line.ProductID, restoredQuantity(line, qty), ref); err != nil {
				return err
			}
			line.ReturnedQuantity = line.ReturnedQuantity.Add(qty)
			if err := s.purchases.UpdateLineReturnedTx(ctx, tx, line.ID, line.ReturnedQuantity); err != nil {
				return err
			}
		}

		status := purchase.DeriveStatus()
		refunded := purchase.TotalRefunded.Add(ret.TotalRefund)
		if err := s.purchases.UpdateReturnStateTx(ctx, tx, purchase.ID, status, refunded); err != nil {
			return err
		}

		returnID = ret.ID
		return nil
	})
	if txErr != nil {
		s.metrics.RecordFailure("return", string(apierror.KindOf(txErr)))
		return nil, txErr
	}

	s.cache.Invalidate(ctx, productIDs...)

	resp, err := s.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReturn(resp.TotalRefund.InexactFloat64())
	for range productIDs {
		s.metrics.RecordRestock(model.MovementReturn)
	}
	log.Info().
		Uint("return_id", resp.ID).
		Str("number", resp.Number).
		Str("purchase", resp.PurchaseNumber).
		Str("refund", resp.TotalRefund.StringFixed(2)).
		Msg("return recorded")
	return resp, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *returnService) GetByID(ctx context.Context, id uint) (*dto.ReturnResponse, error) {
	ret, err := s.returns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	purchase, err := s.purchases.FindByID(ctx, ret.PurchaseID)
	if err != nil {
		return nil, err
	}
	return returnToResponse(ret, purchase), nil
}

func (s *returnService) ListByPurchase(ctx context.Context, purchaseID uint) ([]dto.ReturnResponse, error) {
	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	rets, err := s.returns.ListByPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReturnResponse, 0, len(rets))
	for i := range rets {
		out = append(out, *returnToResponse(&rets[i], purchase))
	}
	return out, nil
}
