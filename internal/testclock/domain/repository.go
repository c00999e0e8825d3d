package domain

import (
	"context"

	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/pkg/repository"
)

type Repository interface {
	repository.Repository[TestClock]
	ListAll(ctx context.Context) ([]TestClock, error)
}

type repo struct {
	repository.Repository[TestClock]
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repo{
		Repository: repository.ProvideStore[TestClock](db),
		db:         db,
	}
}

func (r *repo) ListAll(ctx context.Context) ([]TestClock, error) {
	var clocks []TestClock
	err := r.db.WithContext(ctx).Order("id").Find(&clocks).Error
	return clocks, err
}
