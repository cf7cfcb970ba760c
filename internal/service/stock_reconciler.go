package service

import (
	"context"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Clock returns the current instant; injected so expiry can be tested.
type Clock func() time.Time

// StockReconciler keeps Product.AggregateStock consistent with its lots.
type StockReconciler interface {
	// Recompute writes the sum of non-expired lots into a perishable product's
	// aggregate stock and returns it. For non-perishable products the counter
	// is authoritative and returned unchanged. Safe to call repeatedly.
	Recompute(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (decimal.Decimal, error)
}

type stockReconciler struct {
	products repository.ProductRepository
	lots     repository.LotRepository
	now      Clock
}

func NewStockReconciler(products repository.ProductRepository, lots repository.LotRepository, now Clock) StockReconciler {
	if now == nil {
		now = time.Now
	}
	return &stockReconciler{products: products, lots: lots, now: now}
}

func (r *stockReconciler) Recompute(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (decimal.Decimal, error) {
	p, err := r.products.FindByIDForUpdateTx(ctx, tx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if !p.Perishable {
		return p.AggregateStock, nil
	}

	sum, err := r.lots.SumAvailableTx(ctx, tx, productID, r.now())
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Equal(p.AggregateStock) {
		if err := r.products.SetStockTx(ctx, tx, productID, sum); err != nil {
			return decimal.Zero, err
		}
	}
	return sum, nil
}
