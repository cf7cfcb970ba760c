package service

import (
	"context"
	"sort"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementRef describes why stock moved; it is copied onto every
// StockMovement row the operation writes.
type MovementRef struct {
	Type        string
	Reason      string
	ReferenceID *string
}

type LotWithdrawal struct {
	LotID     uuid.UUID
	Taken     decimal.Decimal
	Remaining decimal.Decimal
	Deleted   bool
}

type WithdrawalResult struct {
	ProductID      uuid.UUID
	Requested      decimal.Decimal
	Withdrawn      decimal.Decimal
	Lots           []LotWithdrawal
	AggregateStock decimal.Decimal
}

type RestockResult struct {
	Lot            *model.Lot // nil for non-perishable products
	AggregateStock decimal.Decimal
}

// LotLedger owns the lots of every product. All mutating methods run inside
// the caller's transaction and leave AggregateStock reconciled.
type LotLedger interface {
	Withdraw(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity decimal.Decimal, ref MovementRef) (*WithdrawalResult, error)
	Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity decimal.Decimal, expiration *time.Time, ref MovementRef) (*RestockResult, error)
	// Restore puts returned goods back into stock: a lot without expiration
	// for perishable products, the counter otherwise. The product may be
	// inactive; a sale that already happened can always be reversed.
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity decimal.Decimal, ref MovementRef) (decimal.Decimal, error)
	ListLots(ctx context.Context, productID uuid.UUID, includeExpired bool) ([]model.Lot, error)
}

type lotLedger struct {
	products   repository.ProductRepository
	lots       repository.LotRepository
	movements  repository.StockMovementRepository
	reconciler StockReconciler
	now        Clock
}

func NewLotLedger(
	products repository.ProductRepository,
	lots repository.LotRepository,
	movements repository.StockMovementRepository,
	reconciler StockReconciler,
	now Clock,
) LotLedger {
	if now == nil {
		now = time.Now
	}
	return &lotLedger{
		products:   products,
		lots:       lots,
		movements:  movements,
		reconciler: reconciler,
		now:        now,
	}
}

// sortFEFO orders lots first-expired-first-out: earliest expiration first,
// lots without expiration last, ties broken by creation time then id.
func sortFEFO(lots []model.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.ExpirationDate == nil && b.ExpirationDate != nil:
			return false
		case a.ExpirationDate != nil && b.ExpirationDate == nil:
			return true
		case a.ExpirationDate != nil && !a.ExpirationDate.Equal(*b.ExpirationDate):
			return a.ExpirationDate.Before(*b.ExpirationDate)
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.ID.String() < b.ID.String()
		}
	})
}

// ── Withdraw ──────────────────────────────────────────────────────────────────

func (l *lotLedger) Withdraw(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity decimal.Decimal, ref MovementRef) (*WithdrawalResult, error) {
	if !quantity.IsPositive() {
		return nil, apierror.E(apierror.KindInvalidQuantity, "withdrawal quantity must be greater than zero")
	}
	if err := checkQuantityPlaces(quantity, "withdrawal quantity"); err != nil {
		return nil, err
	}

	p, err := l.products.FindByIDForUpdateTx(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, apierror.E(apierror.KindNotFound, "product not found")
	}

	if !p.Perishable {
		return l.withdrawCounter(ctx, tx, p, quantity, ref)
	}

	lots, err := l.lots.ListByProductForUpdateTx(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	now := l.now()
	available := make([]model.Lot, 0, len(lots))
	total := decimal.Zero
	for _, lot := range lots {
		if lot.AvailableAt(now) && lot.QuantityRemaining.IsPositive() {
			available = append(available, lot)
			total = total.Add(lot.QuantityRemaining)
		}
	}
	if total.LessThan(quantity) {
		return nil, apierror.E(apierror.KindInsufficientStock,
			"insufficient stock for %s: available %s, requested %s", p.Name, total, quantity)
	}
	sortFEFO(available)

	result := &WithdrawalResult{ProductID: productID, Requested: quantity}
	running := total
	outstanding := quantity
	for i := range available {
		if !outstanding.IsPositive() {
			break
		}
		lot := &available[i]
		take := decimal.Min(lot.QuantityRemaining, outstanding)
		remaining := lot.QuantityRemaining.Sub(take)

		deleted := remaining.IsZero()
		if deleted {
			err = l.lots.DeleteTx(ctx, tx, lot.ID)
		} else {
			err = l.lots.UpdateRemainingTx(ctx, tx, lot.ID, remaining)
		}
		if err != nil {
			return nil, err
		}

		lotID := lot.ID
		if err := l.writeMovement(ctx, tx, productID, &lotID, take.Neg(), running, running.Sub(take), ref); err != nil {
			return nil, err
		}

		running = running.Sub(take)
		outstanding = outstanding.Sub(take)
		result.Withdrawn = result.Withdrawn.Add(take)
		result.Lots = append(result.Lots, LotWithdrawal{
			LotID:     lot.ID,
			Taken:     take,
			Remaining: remaining,
			Deleted:   deleted,
		})
	}

	stock, err := l.reconciler.Recompute(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	result.AggregateStock = stock
	return result, nil
}

func (l *lotLedger) withdrawCounter(ctx context.Context, tx *gorm.DB, p *model.Product, quantity decimal.Decimal, ref MovementRef) (*WithdrawalResult, error) {
	if p.AggregateStock.LessThan(quantity) {
		return nil, apierror.E(apierror.KindInsufficientStock,
			"insufficient stock for %s: available %s, requested %s", p.Name, p.AggregateStock, quantity)
	}
	if err := l.products.AdjustStockTx(ctx, tx, p.ID, quantity.Neg()); err != nil {
		return nil, err
	}
	after := p.AggregateStock.Sub(quantity)
	if err := l.writeMovement(ctx, tx, p.ID, nil, quantity.Neg(), p.AggregateStock, after, ref); err != nil {
		return nil, err
	}
	return &WithdrawalResult{
		ProductID:      p.ID,
		Requested:      quantity,
		Withdrawn:      quantity,
		AggregateStock: after,
	}, nil
}

// ── Restock ───────────────────────────────────────────────────────────────────

func (l *lotLedger) Restock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity decimal.Decimal, expiration *time.Time, ref MovementRef) (*RestockResult, error) {
	if !quantity.IsPositive() {
		return nil, apierror.E(apierror.KindInvalidQuantity, "restock quantity must be greater than zero")
	}
	if err := checkQuantityPlaces(quantity, "restock quantity"); err != nil {
		return nil, err
	}

	p, err := l.products.FindByIDForUpdateTx(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, apierror.E(apierror.KindDeletedProduct, "product %s is deleted", p.Name)
	}
	if !p.Active {
		return nil, apierror.E(apierror.KindInactiveProduct, "product %s is inactive", p.Name)
	}

	if !p.Perishable {
		stock, err := l.increment(ctx, tx, p, quantity, ref)
		if err != nil {
			return nil, err
		}
		return &RestockResult{AggregateStock: stock}, nil
	}

	now := l.now()
	if expiration == nil || !expiration.After(now) {
		return nil, apierror.E(apierror.KindInvalidExpiration, "perishable products need an expiration date in the future")
	}
	source := model.LotSourceRestock
	if ref.Type == model.MovementInitial {
		source = model.LotSourceInitial
	}
	lot, stock, err := l.addLot(ctx, tx, p, quantity, expiration, source, ref)
	if err != nil {
		return nil, err
	}
	return &RestockResult{Lot: lot, AggregateStock: stock}, nil
}

// ── Restore ───────────────────────────────────────────────────────────────────

func (l *lotLedger) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity decimal.Decimal, ref MovementRef) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, apierror.E(apierror.KindInvalidQuantity, "restored quantity must be greater than zero")
	}
	if err := checkQuantityPlaces(quantity, "restored quantity"); err != nil {
		return decimal.Zero, err
	}
	p, err := l.products.FindByIDForUpdateTx(ctx, tx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if !p.Perishable {
		return l.increment(ctx, tx, p, quantity, ref)
	}
	_, stock, err := l.addLot(ctx, tx, p, quantity, nil, model.LotSourceReturn, ref)
	return stock, err
}

func (l *lotLedger) increment(ctx context.Context, tx *gorm.DB, p *model.Product, quantity decimal.Decimal, ref MovementRef) (decimal.Decimal, error) {
	if err := l.products.AdjustStockTx(ctx, tx, p.ID, quantity); err != nil {
		return decimal.Zero, err
	}
	after := p.AggregateStock.Add(quantity)
	if err := l.writeMovement(ctx, tx, p.ID, nil, quantity, p.AggregateStock, after, ref); err != nil {
		return decimal.Zero, err
	}
	return after, nil
}

func (l *lotLedger) addLot(ctx context.Context, tx *gorm.DB, p *model.Product, quantity decimal.Decimal, expiration *time.Time, source string, ref MovementRef) (*model.Lot, decimal.Decimal, error) {
	lot := &model.Lot{
		ID:                uuid.New(),
		ProductID:         p.ID,
		QuantityReceived:  quantity,
		QuantityRemaining: quantity,
		ExpirationDate:    expiration,
		Source:            source,
		CreatedAt:         l.now(),
	}
	if err := l.lots.CreateTx(ctx, tx, lot); err != nil {
		return nil, decimal.Zero, err
	}
	stock, err := l.reconciler.Recompute(ctx, tx, p.ID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	// The cached aggregate may still count lots that expired since the last
	// recompute, so the movement's before is derived from the fresh total.
	lotID := lot.ID
	if err := l.writeMovement(ctx, tx, p.ID, &lotID, quantity, stock.Sub(quantity), stock, ref); err != nil {
		return nil, decimal.Zero, err
	}
	return lot, stock, nil
}

func (l *lotLedger) writeMovement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, lotID *uuid.UUID, qty, before, after decimal.Decimal, ref MovementRef) error {
	return l.movements.CreateTx(ctx, tx, &model.StockMovement{
		ID:          uuid.New(),
		ProductID:   productID,
		LotID:       lotID,
		Type:        ref.Type,
		Quantity:    qty,
		StockBefore: before,
		StockAfter:  after,
		Reason:      ref.Reason,
		ReferenceID: ref.ReferenceID,
		CreatedAt:   l.now(),
	})
}

// ── ListLots ──────────────────────────────────────────────────────────────────

func (l *lotLedger) ListLots(ctx context.Context, productID uuid.UUID, includeExpired bool) ([]model.Lot, error) {
	lots, err := l.lots.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !includeExpired {
		now := l.now()
		kept := lots[:0]
		for _, lot := range lots {
			if lot.AvailableAt(now) {
				kept = append(kept, lot)
			}
		}
		lots = kept
	}
	sortFEFO(lots)
	return lots, nil
}
