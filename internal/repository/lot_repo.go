package repository

import (
	"context"
	"time"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LotRepository interface {
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Lot, error)

	CreateTx(ctx context.Context, tx *gorm.DB, lot *model.Lot) error
	// ListByProductForUpdateTx locks the product's lots in ascending id order.
	ListByProductForUpdateTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]model.Lot, error)
	UpdateRemainingTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, remaining decimal.Decimal) error
	DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	// SumAvailableTx sums quantity_remaining over lots that are not expired at now.
	SumAvailableTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, now time.Time) (decimal.Decimal, error)
}

type lotRepo struct{ db *gorm.DB }

func NewLotRepository(db *gorm.DB) LotRepository { return &lotRepo{db: db} }

func (r *lotRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Lot, error) {
	var lots []model.Lot
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("expiration_date ASC NULLS LAST, created_at ASC").
		Find(&lots).Error
	return lots, err
}

func (r *lotRepo) CreateTx(ctx context.Context, tx *gorm.DB, lot *model.Lot) error {
	return tx.WithContext(ctx).Create(lot).Error
}

func (r *lotRepo) ListByProductForUpdateTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]model.Lot, error) {
	var lots []model.Lot
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&lots).Error
	return lots, err
}

func (r *lotRepo) UpdateRemainingTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, remaining decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&model.Lot{}).Where("id = ?", id).
		Update("quantity_remaining", remaining).Error
}

func (r *lotRepo) DeleteTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return tx.WithContext(ctx).Where("id = ?", id).Delete(&model.Lot{}).Error
}

func (r *lotRepo) SumAvailableTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, now time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := tx.WithContext(ctx).Model(&model.Lot{}).
		Select("COALESCE(SUM(quantity_remaining), 0)").
		Where("product_id = ? AND (expiration_date IS NULL OR expiration_date > ?)", productID, now).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
