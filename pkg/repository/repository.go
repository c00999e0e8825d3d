// Package repository provides a minimal generic store for entities keyed by a
// snowflake primary key. Domain repositories embed it and add their own
// queries.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository[T any] interface {
	// WithTrx rebinds the store onto an open transaction.
	WithTrx(tx *gorm.DB) Repository[T]

	Create(ctx context.Context, entity *T) error
	FindByID(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, id string, values any) error
	Delete(ctx context.Context, id string) error
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) Create(ctx context.Context, entity *T) error {
	return s.db.WithContext(ctx).Create(entity).Error
}

// FindByID returns nil without error when the row does not exist.
func (s *store[T]) FindByID(ctx context.Context, id string) (*T, error) {
	var entity T
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

func (s *store[T]) Update(ctx context.Context, id string, values any) error {
	var entity T
	return s.db.WithContext(ctx).Model(&entity).Where("id = ?", id).Updates(values).Error
}

func (s *store[T]) Delete(ctx context.Context, id string) error {
	var entity T
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&entity).Error
}
