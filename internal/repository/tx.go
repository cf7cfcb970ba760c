package repository

import (
	"context"
	"errors"

	"github.com/djaliloff/Palazzo-D-arte-sub000/internal/apierror"

	"gorm.io/gorm"
)

// Transactor opens the unit of work every stock mutation runs in.
// fn receives the transaction handle that repositories' *Tx methods expect;
// returning an error from fn rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTransactor struct{ db *gorm.DB }

func NewTransactor(db *gorm.DB) Transactor { return &gormTransactor{db: db} }

func (t *gormTransactor) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

// notFound converts gorm's missing-row error into a classified NotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.E(apierror.KindNotFound, "%s not found", what)
	}
	return err
}
