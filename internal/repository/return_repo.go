package repository

import (
	"context"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"

	"gorm.io/gorm"
)

type ReturnRepository interface {
	FindByID(ctx context.Context, id uint) (*model.Return, error)
	ListByPurchase(ctx context.Context, purchaseID uint) ([]model.Return, error)

	CreateTx(ctx context.Context, tx *gorm.DB, ret *model.Return) error
	UpdateNumberTx(ctx context.Context, tx *gorm.DB, id uint, number string) error
}

type returnRepo struct{ db *gorm.DB }

func NewReturnRepository(db *gorm.DB) ReturnRepository { return &returnRepo{db: db} }

func (r *returnRepo) FindByID(ctx context.Context, id uint) (*model.Return, error) {
	var ret model.Return
	err := r.db.WithContext(ctx).Preload("Lines", orderLines).Preload("Lines.Product").First(&ret, id).Error
	if err != nil {
		return nil, notFound(err, "return")
	}
	return &ret, nil
}

func (r *returnRepo) ListByPurchase(ctx context.Context, purchaseID uint) ([]model.Return, error) {
	var rets []model.Return
	err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Preload("Lines", orderLines).
		Preload("Lines.Product").
		Order("created_at ASC").
		Find(&rets).Error
	return rets, err
}

func (r *returnRepo) CreateTx(ctx context.Context, tx *gorm.DB, ret *model.Return) error {
	return tx.WithContext(ctx).Create(ret).Error
}

func (r *returnRepo) UpdateNumberTx(ctx context.Context, tx *gorm.DB, id uint, number string) error {
	return tx.WithContext(ctx).Model(&model.Return{}).Where("id = ?", id).Update("number", number).Error
}
