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

type PurchaseService interface {
	Create(ctx context.Context, staffID *uuid.UUID, req dto.CreatePurchaseRequest) (*dto.PurchaseResponse, error)
	AddPayment(ctx context.Context, id uint, req dto.AddPaymentRequest) (*dto.PurchaseResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.PurchaseResponse, error)
	List(ctx context.Context, filter dto.PurchaseFilter) (*dto.PurchaseListResponse, error)
}

type purchaseService struct {
	tx         repository.Transactor
	purchases  repository.PurchaseRepository
	products   repository.ProductRepository
	clients    repository.ClientRepository
	ledger     LotLedger
	pricing    *PricingEngine
	dispatcher JobDispatcher
	cache      ProductCache
	metrics    *infra.Metrics
	now        Clock
}

func NewPurchaseService(
	tx repository.Transactor,
	purchases repository.PurchaseRepository,
	products repository.ProductRepository,
	clients repository.ClientRepository,
	ledger LotLedger,
	pricing *PricingEngine,
	dispatcher JobDispatcher,
	cache ProductCache,
	metrics *infra.Metrics,
	now Clock,
) PurchaseService {
	if now == nil {
		now = time.Now
	}
	return &purchaseService{
		tx:         tx,
		purchases:  purchases,
		products:   products,
		clients:    clients,
		ledger:     ledger,
		pricing:    pricing,
		dispatcher: dispatcher,
		cache:      cacheOrNoop(cache),
		metrics:    metrics,
		now:        now,
	}
}

// PurchaseNumber formats the human-readable purchase number: creation date
// plus the zero-padded row id.
func PurchaseNumber(createdAt time.Time, id uint) string {
	return fmt.Sprintf("%s-%06d", createdAt.Format("20060102"), id)
}

// pendingNumber is a unique placeholder that holds the number column until
// the row id is known.
func pendingNumber() string { return "PENDING-" + uuid.NewString() }

// ── Create ────────────────────────────────────────────────────────────────────
// Steps, all inside one transaction after the pre-flight checks:
//   1. lock every product row in ascending id order
//   2. price each line and check its discount
//   3. check the global discount and the amount paid against the totals
//   4. insert purchase + lines, then stamp the number derived from the id
//   5. withdraw stock per line (FEFO for perishable products)
// Receipt and low-stock jobs are enqueued after commit.

type pricedLine struct {
	product *model.Product
	req     dto.PurchaseLineRequest
	quote   PriceQuote
	lineSub decimal.Decimal
}

func (s *purchaseService) Create(ctx context.Context, staffID *uuid.UUID, req dto.CreatePurchaseRequest) (*dto.PurchaseResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, apierror.E(apierror.KindValidation, "client_id is missing or invalid")
	}
	if len(req.Lines) == 0 {
		return nil, apierror.E(apierror.KindValidation, "a purchase needs at least one line")
	}
	if req.GlobalDiscount.IsNegative() {
		return nil, apierror.E(apierror.KindValidation, "global_discount cannot be negative")
	}
	if req.AmountPaid.IsNegative() {
		return nil, apierror.E(apierror.KindValidation, "amount_paid cannot be negative")
	}
	if err := checkMoneyPlaces(req.GlobalDiscount, "global_discount"); err != nil {
		return nil, err
	}
	if err := checkMoneyPlaces(req.AmountPaid, "amount_paid"); err != nil {
		return nil, err
	}
	productIDs := make([]uuid.UUID, len(req.Lines))
	for i, line := range req.Lines {
		pid, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, apierror.E(apierror.KindValidation, "line %d: product_id is invalid", i+1)
		}
		if line.Discount.IsNegative() {
			return nil, apierror.E(apierror.KindValidation, "line %d: discount cannot be negative", i+1)
		}
		if err := checkMoneyPlaces(line.Discount, fmt.Sprintf("line %d: discount", i+1)); err != nil {
			return nil, err
		}
		if err := checkQuantityPlaces(line.Quantity, fmt.Sprintf("line %d: quantity", i+1)); err != nil {
			return nil, err
		}
		productIDs[i] = pid
	}

	if _, err := s.clients.FindByID(ctx, clientID); err != nil {
		return nil, err
	}

	var (
		purchaseID uint
		lowStock   []uuid.UUID
	)
	txErr := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := s.products.LockTx(ctx, tx, productIDs); err != nil {
			return err
		}

		priced := make([]pricedLine, 0, len(req.Lines))
		subtotal := decimal.Zero
		for i, line := range req.Lines {
			p, err := s.products.FindByIDForUpdateTx(ctx, tx, productIDs[i])
			if err != nil {
				return err
			}
			if p.Deleted {
				return apierror.E(apierror.KindNotFound, "product %s not found", line.ProductID)
			}
			if !p.Active {
				return apierror.E(apierror.KindInactiveProduct, "product %s is inactive and cannot be sold", p.Name)
			}
			quote, err := s.pricing.Price(PriceInputFor(p, line.Quantity, line.SellAsWhole))
			if err != nil {
				return err
			}
			if line.Discount.GreaterThan(quote.Amount) {
				return apierror.E(apierror.KindDiscountExceedsLine,
					"discount %s on %s exceeds the line amount %s", line.Discount, p.Name, quote.Amount)
			}
			lineSub := quote.Amount.Sub(line.Discount)
			subtotal = subtotal.Add(lineSub)
			priced = append(priced, pricedLine{product: p, req: line, quote: quote, lineSub: lineSub})
		}

		if req.GlobalDiscount.GreaterThan(subtotal) {
			return apierror.E(apierror.KindDiscountExceedsSum,
				"global discount %s exceeds the subtotal %s", req.GlobalDiscount, subtotal)
		}
		netTotal := subtotal.Sub(req.GlobalDiscount)
		if req.AmountPaid.GreaterThan(netTotal) {
			return apierror.E(apierror.KindPaymentExceeds,
				"amount paid %s exceeds the net total %s", req.AmountPaid, netTotal)
		}

		purchase := model.Purchase{
			Number:         pendingNumber(),
			ClientID:       clientID,
			StaffID:        staffID,
			Subtotal:       subtotal,
			GlobalDiscount: req.GlobalDiscount,
			NetTotal:       netTotal,
			AmountPaid:     req.AmountPaid,
			TotalRefunded:  decimal.Zero,
			Status:         model.PurchaseValid,
			Notes:          req.Notes,
			CreatedAt:      s.now(),
		}
		for i, pl := range priced {
			purchase.Lines = append(purchase.Lines, model.PurchaseLine{
				ID:                uuid.New(),
				Position:          i + 1,
				ProductID:         pl.product.ID,
				QuantitySold:      pl.req.Quantity,
				SellAsWhole:       pl.req.SellAsWhole,
				WithdrawnQuantity: pl.quote.WithdrawalQuantity,
				UnitPriceUsed:     pl.quote.UnitPriceApplied,
				LineDiscount:      pl.req.Discount,
				Subtotal:          pl.lineSub,
				ReturnedQuantity:  decimal.Zero,
			})
		}
		if err := s.purchases.CreateTx(ctx, tx, &purchase); err != nil {
			return err
		}
		number := PurchaseNumber(purchase.CreatedAt, purchase.ID)
		if err := s.purchases.UpdateNumberTx(ctx, tx, purchase.ID, number); err != nil {
			return err
		}

		ref := MovementRef{Type: model.MovementSale, Reason: "purchase " + number, ReferenceID: &number}
		seen := make(map[uuid.UUID]bool)
		for _, pl := range priced {
			res, err := s.ledger.Withdraw(ctx, tx, pl.product.ID, pl.quote.WithdrawalQuantity, ref)
			if err != nil {
				return err
			}
			if res.AggregateStock.LessThanOrEqual(pl.product.AlertThreshold) && !seen[pl.product.ID] {
				seen[pl.product.ID] = true
				lowStock = append(lowStock, pl.product.ID)
			}
		}

		purchaseID = purchase.ID
		return nil
	})
	if txErr != nil {
		s.metrics.RecordFailure("purchase", string(apierror.KindOf(txErr)))
		return nil, txErr
	}

	s.cache.Invalidate(ctx, productIDs...)
	s.dispatchPostCommit(ctx, purchaseID, lowStock)

	created, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPurchase(created.NetTotal.InexactFloat64())
	for range created.Lines {
		s.metrics.RecordWithdrawal(model.MovementSale)
	}
	log.Info().
		Uint("purchase_id", created.ID).
		Str("number", created.Number).
		Str("net_total", created.NetTotal.StringFixed(2)).
		Msg("purchase created")
	return purchaseToResponse(created), nil
}

func (s *purchaseService) dispatchPostCommit(ctx context.Context, purchaseID uint, lowStock []uuid.UUID) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.EnqueueReceipt(ctx, purchaseID); err != nil {
		log.Warn().Err(err).Uint("purchase_id", purchaseID).Msg("could not enqueue receipt job")
	}
	for _, pid := range lowStock {
		if err := s.dispatcher.EnqueueStockAlert(ctx, pid); err != nil {
			log.Warn().Err(err).Str("product_id", pid.String()).Msg("could not enqueue stock alert")
		}
	}
}

// ── AddPayment ────────────────────────────────────────────────────────────────

func (s *purchaseService) AddPayment(ctx context.Context, id uint, req dto.AddPaymentRequest) (*dto.PurchaseResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apierror.E(apierror.KindInvalidQuantity, "payment amount must be greater than zero")
	}
	if err := checkMoneyPlaces(req.Amount, "payment amount"); err != nil {
		return nil, err
	}
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		p, err := s.purchases.FindByIDForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		outstanding := p.OutstandingBalance()
		if req.Amount.GreaterThan(outstanding) {
			return apierror.E(apierror.KindPaymentExceeds,
				"payment %s exceeds the outstanding balance %s", req.Amount, outstanding)
		}
		return s.purchases.UpdateAmountPaidTx(ctx, tx, id, p.AmountPaid.Add(req.Amount))
	})
	if err != nil {
		s.metrics.RecordFailure("payment", string(apierror.KindOf(err)))
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *purchaseService) GetByID(ctx context.Context, id uint) (*dto.PurchaseResponse, error) {
	p, err := s.purchases.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return purchaseToResponse(p), nil
}

func (s *purchaseService) List(ctx context.Context, filter dto.PurchaseFilter) (*dto.PurchaseListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	purchases, total, err := s.purchases.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.PurchaseResponse, 0, len(purchases))
	for i := range purchases {
		data = append(data, *purchaseToResponse(&purchases[i]))
	}
	return &dto.PurchaseListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
