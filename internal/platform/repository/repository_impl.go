package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/platform/domain"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *repository) Find(ctx context.Context, tx *gorm.DB) (*domain.State, error) {
	var state domain.State
	err := r.handle(tx).WithContext(ctx).
		Where("id = ?", domain.SingletonID).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *repository) Create(ctx context.Context, tx *gorm.DB, state *domain.State) error {
	return r.handle(tx).WithContext(ctx).Create(state).Error
}

func (r *repository) Save(ctx context.Context, tx *gorm.DB, state *domain.State) error {
	return r.handle(tx).WithContext(ctx).Save(state).Error
}

func (r *repository) UpdateColumns(ctx context.Context, tx *gorm.DB, values map[string]any) error {
	return r.handle(tx).WithContext(ctx).
		Model(&domain.State{}).
		Where("id = ?", domain.SingletonID).
		Updates(values).Error
}
