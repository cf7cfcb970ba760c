package repository

import (
	"context"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/dto"
	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Purchase, error)
	List(ctx context.Context, filter dto.PurchaseFilter) ([]model.Purchase, int64, error)

	// CreateTx inserts the purchase and its lines; p.ID is set afterwards.
	CreateTx(ctx context.Context, tx *gorm.DB, p *model.Purchase) error
	UpdateNumberTx(ctx context.Context, tx *gorm.DB, id uint, number string) error
	// FindByIDForUpdateTx locks the purchase row and loads its lines.
	FindByIDForUpdateTx(ctx context.Context, tx *gorm.DB, id uint) (*model.Purchase, error)
	UpdateAmountPaidTx(ctx context.Context, tx *gorm.DB, id uint, amountPaid decimal.Decimal) error
	UpdateLineReturnedTx(ctx context.Context, tx *gorm.DB, lineID uuid.UUID, returned decimal.Decimal) error
	UpdateReturnStateTx(ctx context.Context, tx *gorm.DB, id uint, status model.PurchaseStatus, totalRefunded decimal.Decimal) error
}

type purchaseRepo struct{ db *gorm.DB }

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository { return &purchaseRepo{db: db} }

func (r *purchaseRepo) FindByID(ctx context.Context, id uint) (*model.Purchase, error) {
	var p model.Purchase
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Lines", orderLines).
		Preload("Lines.Product").
		First(&p, id).Error
	if err != nil {
		return nil, notFound(err, "purchase")
	}
	return &p, nil
}

func (r *purchaseRepo) List(ctx context.Context, filter dto.PurchaseFilter) ([]model.Purchase, int64, error) {
	var purchases []model.Purchase
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Purchase{})
	if filter.ClientID != "" {
		q = q.Where("client_id = ?", filter.ClientID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Client").Preload("Lines", orderLines).Preload("Lines.Product").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&purchases).Error
	return purchases, total, err
}

func (r *purchaseRepo) CreateTx(ctx context.Context, tx *gorm.DB, p *model.Purchase) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *purchaseRepo) UpdateNumberTx(ctx context.Context, tx *gorm.DB, id uint, number string) error {
	return tx.WithContext(ctx).Model(&model.Purchase{}).Where("id = ?", id).Update("number", number).Error
}

func (r *purchaseRepo) FindByIDForUpdateTx(ctx context.Context, tx *gorm.DB, id uint) (*model.Purchase, error) {
	var p model.Purchase
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	if err != nil {
		return nil, notFound(err, "purchase")
	}
	if err := tx.WithContext(ctx).Where("purchase_id = ?", id).Order("position ASC").Find(&p.Lines).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *purchaseRepo) UpdateAmountPaidTx(ctx context.Context, tx *gorm.DB, id uint, amountPaid decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&model.Purchase{}).Where("id = ?", id).Update("amount_paid", amountPaid).Error
}

func (r *purchaseRepo) UpdateLineReturnedTx(ctx context.Context, tx *gorm.DB, lineID uuid.UUID, returned decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&model.PurchaseLine{}).Where("id = ?", lineID).
		Update("returned_quantity", returned).Error
}

func (r *purchaseRepo) UpdateReturnStateTx(ctx context.Context, tx *gorm.DB, id uint, status model.PurchaseStatus, totalRefunded decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&model.Purchase{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":         status,
		"total_refunded": totalRefunded,
	}).Error
}

// orderLines keeps ticket lines in the order they were entered.
func orderLines(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }
