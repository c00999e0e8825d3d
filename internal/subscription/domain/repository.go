package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type Repository interface {
	Find(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Subscription, error)
	Create(ctx context.Context, tx *gorm.DB, sub *Subscription) error
	Save(ctx context.Context, tx *gorm.DB, sub *Subscription) error
	Delete(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]Subscription, int64, error)
	ListDue(ctx context.Context, now time.Time, testClockID *snowflake.ID, limit int) ([]Subscription, error)
}
