package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type Repository interface {
	FindMerchant(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Merchant, error)
	FindMerchantByOwner(ctx context.Context, tx *gorm.DB, owner string) (*Merchant, error)
	CreateMerchant(ctx context.Context, tx *gorm.DB, m *Merchant) error
	SaveMerchant(ctx context.Context, tx *gorm.DB, m *Merchant) error
	ListMerchants(ctx context.Context, filter ListFilter, page pagination.Params) ([]Merchant, int64, error)
	SlugTaken(ctx context.Context, tx *gorm.DB, slug string) (bool, error)

	FindRegistry(ctx context.Context, tx *gorm.DB) (*RegistryState, error)
	CreateRegistry(ctx context.Context, tx *gorm.DB, state *RegistryState) error
	SaveRegistry(ctx context.Context, tx *gorm.DB, state *RegistryState) error

	CreateReview(ctx context.Context, tx *gorm.DB, review *Review) error
	ListReviews(ctx context.Context, merchantID snowflake.ID, page pagination.Params) ([]Review, int64, error)
}
