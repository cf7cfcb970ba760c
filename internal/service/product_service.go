package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	tx       repository.Transactor
	products repository.ProductRepository
	ledger   LotLedger
	cache    ProductCache
	now      Clock
}

func NewProductService(
	tx repository.Transactor,
	products repository.ProductRepository,
	ledger LotLedger,
	cache ProductCache,
	now Clock,
) ProductService {
	if now == nil {
		now = time.Now
	}
	return &productService{tx: tx, products: products, ledger: ledger, cache: cacheOrNoop(cache), now: now}
}

// validatePricing checks that the prices a sale mode needs are configured.
func validatePricing(req dto.CreateProductRequest, mode model.SaleMode) error {
	for _, price := range []*decimal.Decimal{req.TotalPrice, req.PartialPrice} {
		if price != nil && price.IsNegative() {
			return apierror.E(apierror.KindValidation, "prices cannot be negative")
		}
		if price != nil {
			if err := checkMoneyPlaces(*price, "price"); err != nil {
				return err
			}
		}
	}
	if mode != model.SaleModePartial && req.TotalPrice == nil {
		return apierror.E(apierror.KindMissingPricing, "sale mode %s needs total_price", mode)
	}
	if mode != model.SaleModeTotal {
		if req.PartialPrice == nil || req.UnitOfMeasure == nil || *req.UnitOfMeasure == "" {
			return apierror.E(apierror.KindMissingPricing, "sale mode %s needs partial_price and unit_of_measure", mode)
		}
	}
	if req.WeightPerPiece != nil && !req.WeightPerPiece.IsPositive() {
		return apierror.E(apierror.KindValidation, "weight_per_piece must be greater than zero")
	}
	if req.WeightPerPiece != nil {
		if err := checkQuantityPlaces(*req.WeightPerPiece, "weight_per_piece"); err != nil {
			return err
		}
	}
	return nil
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	mode := model.SaleMode(req.SaleMode)
	if !mode.Valid() {
		return nil, apierror.E(apierror.KindValidation, "unknown sale mode %q", req.SaleMode)
	}
	if err := validatePricing(req, mode); err != nil {
		return nil, err
	}
	if req.InitialStock.IsNegative() {
		return nil, apierror.E(apierror.KindInvalidQuantity, "initial_stock cannot be negative")
	}
	if req.AlertThreshold.IsNegative() {
		return nil, apierror.E(apierror.KindValidation, "alert_threshold cannot be negative")
	}
	if err := checkQuantityPlaces(req.InitialStock, "initial_stock"); err != nil {
		return nil, err
	}
	if err := checkQuantityPlaces(req.AlertThreshold, "alert_threshold"); err != nil {
		return nil, err
	}

	if _, err := s.products.FindByReference(ctx, req.Reference); err == nil {
		return nil, apierror.E(apierror.KindConflict, "a product with reference %s already exists", req.Reference)
	} else if !apierror.Is(err, apierror.KindNotFound) {
		return nil, err
	}

	now := s.now()
	p := &model.Product{
		ID:             uuid.New(),
		Reference:      req.Reference,
		Name:           req.Name,
		SaleMode:       mode,
		TotalPrice:     req.TotalPrice,
		PartialPrice:   req.PartialPrice,
		UnitOfMeasure:  req.UnitOfMeasure,
		WeightPerPiece: req.WeightPerPiece,
		Perishable:     req.Perishable,
		AlertThreshold: req.AlertThreshold,
		AggregateStock: decimal.Zero,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := s.products.CreateTx(ctx, tx, p); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierror.E(apierror.KindConflict, "a product with reference %s already exists", req.Reference)
			}
			return err
		}
		if !req.InitialStock.IsPositive() {
			return nil
		}
		_, err := s.ledger.Restock(ctx, tx, p.ID, req.InitialStock, req.InitialExpiration,
			MovementRef{Type: model.MovementInitial, Reason: "initial stock"})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("product_id", p.ID.String()).Str("reference", p.Reference).Msg("product created")
	return loadProduct(ctx, s.products, s.ledger, p.ID, s.now())
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		return cached, nil
	}
	resp, err := loadProduct(ctx, s.products, s.ledger, id, s.now())
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, resp)
	return resp, nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, *productToResponse(&products[i], nil, now))
	}
	return &dto.ProductListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *productService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.products.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.products.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}
