package service

import (
	"context"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/infra"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InventoryService is the boundary for manual stock operations: restocks,
// non-sale withdrawals, low-stock alerts and the movement history.
type InventoryService interface {
	Restock(ctx context.Context, productID uuid.UUID, req dto.RestockRequest) (*dto.ProductResponse, error)
	Withdraw(ctx context.Context, productID uuid.UUID, req dto.WithdrawRequest) (*dto.WithdrawalResponse, error)
	ListLots(ctx context.Context, productID uuid.UUID, includeExpired bool) ([]dto.LotResponse, error)
	Alerts(ctx context.Context) ([]dto.StockAlertResponse, error)
	Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type inventoryService struct {
	tx         repository.Transactor
	products   repository.ProductRepository
	movements  repository.StockMovementRepository
	ledger     LotLedger
	dispatcher JobDispatcher
	cache      ProductCache
	metrics    *infra.Metrics
	now        Clock
}

func NewInventoryService(
	tx repository.Transactor,
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	ledger LotLedger,
	dispatcher JobDispatcher,
	cache ProductCache,
	metrics *infra.Metrics,
	now Clock,
) InventoryService {
	if now == nil {
		now = time.Now
	}
	return &inventoryService{
		tx:         tx,
		products:   products,
		movements:  movements,
		ledger:     ledger,
		dispatcher: dispatcher,
		cache:      cacheOrNoop(cache),
		metrics:    metrics,
		now:        now,
	}
}

func (s *inventoryService) Restock(ctx context.Context, productID uuid.UUID, req dto.RestockRequest) (*dto.ProductResponse, error) {
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		_, err := s.ledger.Restock(ctx, tx, productID, req.Quantity, req.ExpirationDate,
			MovementRef{Type: model.MovementRestock, Reason: "restock"})
		return err
	})
	if err != nil {
		s.metrics.RecordFailure("restock", string(apierror.KindOf(err)))
		return nil, err
	}
	s.cache.Invalidate(ctx, productID)
	s.metrics.RecordRestock(model.MovementRestock)

	log.Info().Str("product_id", productID.String()).Str("quantity", req.Quantity.String()).Msg("product restocked")
	return loadProduct(ctx, s.products, s.ledger, productID, s.now())
}

func (s *inventoryService) Withdraw(ctx context.Context, productID uuid.UUID, req dto.WithdrawRequest) (*dto.WithdrawalResponse, error) {
	reason := req.Reason
	if reason == "" {
		reason = "manual adjustment"
	}
	var (
		res *WithdrawalResult
		low bool
	)
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = s.ledger.Withdraw(ctx, tx, productID, req.Quantity,
			MovementRef{Type: model.MovementAdjustment, Reason: reason})
		if err != nil {
			return err
		}
		p, err := s.products.FindByIDForUpdateTx(ctx, tx, productID)
		if err != nil {
			return err
		}
		low = p.Active && res.AggregateStock.LessThanOrEqual(p.AlertThreshold)
		return nil
	})
	if err != nil {
		s.metrics.RecordFailure("withdraw", string(apierror.KindOf(err)))
		return nil, err
	}
	s.cache.Invalidate(ctx, productID)
	s.metrics.RecordWithdrawal(model.MovementAdjustment)
	if low && s.dispatcher != nil {
		if err := s.dispatcher.EnqueueStockAlert(ctx, productID); err != nil {
			log.Warn().Err(err).Str("product_id", productID.String()).Msg("could not enqueue stock alert")
		}
	}
	return withdrawalToResponse(res), nil
}

func (s *inventoryService) ListLots(ctx context.Context, productID uuid.UUID, includeExpired bool) ([]dto.LotResponse, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	lots, err := s.ledger.ListLots(ctx, productID, includeExpired)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]dto.LotResponse, 0, len(lots))
	for i := range lots {
		out = append(out, lotToResponse(&lots[i], now))
	}
	return out, nil
}

func (s *inventoryService) Alerts(ctx context.Context) ([]dto.StockAlertResponse, error) {
	products, err := s.products.ListBelowThreshold(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockAlertResponse, 0, len(products))
	for _, p := range products {
		out = append(out, dto.StockAlertResponse{
			ProductID:      p.ID.String(),
			Reference:      p.Reference,
			Name:           p.Name,
			AggregateStock: p.AggregateStock,
			AlertThreshold: p.AlertThreshold,
		})
	}
	return out, nil
}

func (s *inventoryService) Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	movements, total, err := s.movements.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovementResponse, 0, len(movements))
	for i := range movements {
		data = append(data, movementToResponse(&movements[i]))
	}
	return &dto.MovementListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// loadProduct reads a product with its available lots in FEFO order.
func loadProduct(ctx context.Context, products repository.ProductRepository, ledger LotLedger, id uuid.UUID, now time.Time) (*dto.ProductResponse, error) {
	p, err := products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var lots []model.Lot
	if p.Perishable {
		if lots, err = ledger.ListLots(ctx, id, false); err != nil {
			return nil, err
		}
	}
	return productToResponse(p, lots, now), nil
}
