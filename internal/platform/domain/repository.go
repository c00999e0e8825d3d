package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, tx *gorm.DB) (*State, error)
	Create(ctx context.Context, tx *gorm.DB, state *State) error
	Save(ctx context.Context, tx *gorm.DB, state *State) error
	UpdateColumns(ctx context.Context, tx *gorm.DB, values map[string]any) error
}
