package repository

import (
	"context"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientRepository is read-only: client CRUD lives outside this service.
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error)
}

type clientRepo struct{ db *gorm.DB }

func NewClientRepository(db *gorm.DB) ClientRepository { return &clientRepo{db: db} }

func (r *clientRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var c model.Client
	err := r.db.WithContext(ctx).Where("id = ? AND deleted = false", id).First(&c).Error
	if err != nil {
		return nil, notFound(err, "client")
	}
	return &c, nil
}
