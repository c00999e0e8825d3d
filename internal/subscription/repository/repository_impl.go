package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/subscription/domain"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
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

func (r *repository) Find(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.handle(tx).WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Create(ctx context.Context, tx *gorm.DB, sub *domain.Subscription) error {
	return r.handle(tx).WithContext(ctx).Create(sub).Error
}

func (r *repository) Save(ctx context.Context, tx *gorm.DB, sub *domain.Subscription) error {
	return r.handle(tx).WithContext(ctx).Save(sub).Error
}

func (r *repository) Delete(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	return r.handle(tx).WithContext(ctx).Delete(&domain.Subscription{}, "id = ?", id).Error
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter, page pagination.Params) ([]domain.Subscription, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Subscription{})
	if filter.PayerAccount != "" {
		query = query.Where("payer_account = ?", filter.PayerAccount)
	}
	if filter.MerchantID != 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []domain.Subscription
	if err := page.Apply(query).Order("id").Find(&subs).Error; err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *repository) ListDue(ctx context.Context, now time.Time, testClockID *snowflake.ID, limit int) ([]domain.Subscription, error) {
	query := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("is_paused = ?", false).
		Where("next_payment <= ?", now)
	if testClockID != nil {
		query = query.Where("test_clock_id = ?", *testClockID)
	} else {
		query = query.Where("test_clock_id IS NULL")
	}

	var subs []domain.Subscription
	err := query.Order("next_payment").Limit(limit).Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
