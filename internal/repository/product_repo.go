package repository

import (
	"context"
	"sort"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via in-memory stubs.
type ProductRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByReference(ctx context.Context, reference string) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error)
	ListBelowThreshold(ctx context.Context) ([]model.Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// Used inside transactions; callers must pass the tx instance.
	FindByIDForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	// LockTx takes row locks on every product in ids, in ascending id order.
	LockTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	AdjustStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) error
	SetStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty decimal.Decimal) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) CreateTx(ctx context.Context, tx *gorm.DB, p *model.Product) error {
	return tx.WithContext(ctx).Omit("Lots").Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ? AND deleted = false", id).First(&p).Error
	if err != nil {
		return nil, notFound(err, "product")
	}
	return &p, nil
}

func (r *productRepo) FindByReference(ctx context.Context, reference string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error
	if err != nil {
		return nil, notFound(err, "product")
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("deleted = false")

	switch filter.Active {
	case "false":
		q = q.Where("active = false")
	case "all":
	default:
		q = q.Where("active = true")
	}
	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("name ASC").Limit(filter.Limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *productRepo) ListBelowThreshold(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("active = true AND deleted = false AND aggregate_stock <= alert_threshold").
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND deleted = false", id).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "product")
	}
	return nil
}

func (r *productRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND deleted = false", id).
		Updates(map[string]interface{}{"deleted": true, "active": false})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "product")
	}
	return nil
}

func (r *productRepo) FindByIDForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, notFound(err, "product")
	}
	return &p, nil
}

func (r *productRepo) LockTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	sorted := make([]string, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id.String())
		}
	}
	sort.Strings(sorted)

	var locked []uuid.UUID
	return tx.WithContext(ctx).Model(&model.Product{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id ASC").
		Pluck("id", &locked).Error
}

func (r *productRepo) AdjustStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).
		Update("aggregate_stock", gorm.Expr("aggregate_stock + ?", delta)).Error
}

func (r *productRepo) SetStockTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).
		Update("aggregate_stock", qty).Error
}
