package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/merchant/domain"
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

func (r *repository) FindMerchant(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Merchant, error) {
	var m domain.Merchant
	err := r.handle(tx).WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) FindMerchantByOwner(ctx context.Context, tx *gorm.DB, owner string) (*domain.Merchant, error) {
	var m domain.Merchant
	err := r.handle(tx).WithContext(ctx).Where("owner_account = ?", owner).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) CreateMerchant(ctx context.Context, tx *gorm.DB, m *domain.Merchant) error {
	return r.handle(tx).WithContext(ctx).Create(m).Error
}

func (r *repository) SaveMerchant(ctx context.Context, tx *gorm.DB, m *domain.Merchant) error {
	return r.handle(tx).WithContext(ctx).Save(m).Error
}

func (r *repository) ListMerchants(ctx context.Context, filter domain.ListFilter, page pagination.Params) ([]domain.Merchant, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Merchant{})
	if filter.Tier != "" {
		query = query.Where("verification_tier = ?", filter.Tier)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var merchants []domain.Merchant
	err := page.Apply(query).
		Order("premium_badge_active DESC").
		Order("community_score DESC").
		Order("id").
		Find(&merchants).Error
	if err != nil {
		return nil, 0, err
	}
	return merchants, total, nil
}

func (r *repository) SlugTaken(ctx context.Context, tx *gorm.DB, slug string) (bool, error) {
	var count int64
	err := r.handle(tx).WithContext(ctx).
		Model(&domain.Merchant{}).
		Where("slug = ?", slug).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindRegistry(ctx context.Context, tx *gorm.DB) (*domain.RegistryState, error) {
	var state domain.RegistryState
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

func (r *repository) CreateRegistry(ctx context.Context, tx *gorm.DB, state *domain.RegistryState) error {
	return r.handle(tx).WithContext(ctx).Create(state).Error
}

func (r *repository) SaveRegistry(ctx context.Context, tx *gorm.DB, state *domain.RegistryState) error {
	return r.handle(tx).WithContext(ctx).Save(state).Error
}

func (r *repository) CreateReview(ctx context.Context, tx *gorm.DB, review *domain.Review) error {
	return r.handle(tx).WithContext(ctx).Create(review).Error
}

func (r *repository) ListReviews(ctx context.Context, merchantID snowflake.ID, page pagination.Params) ([]domain.Review, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("merchant_id = ?", merchantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []domain.Review
	if err := page.Apply(query).Order("id DESC").Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}
