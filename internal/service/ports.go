package service

import (
	"context"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"

	"github.com/google/uuid"
)

// JobDispatcher enqueues post-commit background work. Implemented by
// worker.Dispatcher; failures never affect the committed transaction.
type JobDispatcher interface {
	EnqueueReceipt(ctx context.Context, purchaseID uint) error
	EnqueueStockAlert(ctx context.Context, productID uuid.UUID) error
}

// ProductCache is the read-through cache for product responses.
// Implemented by infra.ProductCache.
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, bool)
	Set(ctx context.Context, resp *dto.ProductResponse)
	Invalidate(ctx context.Context, ids ...uuid.UUID)
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID) (*dto.ProductResponse, bool) { return nil, false }
func (noopCache) Set(context.Context, *dto.ProductResponse)                   {}
func (noopCache) Invalidate(context.Context, ...uuid.UUID)                    {}

func cacheOrNoop(c ProductCache) ProductCache {
	if c == nil {
		return noopCache{}
	}
	return c
}
