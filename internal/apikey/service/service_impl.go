package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/apikey/domain"
	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) (*domain.IssueResult, error) {
	if req.Name == "" || len(req.Name) > domain.MaxKeyNameLen {
		return nil, domain.ErrInvalidKeyName
	}
	if !req.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if req.Identity == "" {
		return nil, domain.ErrInvalidIdentity
	}

	raw, err := domain.NewRawKey()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	key := &domain.APIKey{
		ID:        s.genID.Generate(),
		Name:      req.Name,
		KeyHash:   domain.HashAPIKey(raw),
		Role:      req.Role,
		Identity:  req.Identity,
		IsActive:  true,
		ExpiresAt: req.Expires,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return nil, err
	}

	s.log.Info("api key issued",
		zap.Int64("api_key_id", key.ID.Int64()),
		zap.String("name", key.Name),
		zap.String("role", string(key.Role)))
	return &domain.IssueResult{Key: key, RawKey: raw}, nil
}

func (s *Service) List(ctx context.Context, page pagination.Params) ([]domain.APIKey, int64, error) {
	page = page.Normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.APIKey{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var keys []domain.APIKey
	err := s.db.WithContext(ctx).
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&keys).Error
	if err != nil {
		return nil, 0, err
	}
	return keys, total, nil
}

func (s *Service) Disable(ctx context.Context, id snowflake.ID) (*domain.APIKey, error) {
	var key domain.APIKey
	err := s.db.WithContext(ctx).First(&key, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAPIKeyNotFound
		}
		return nil, err
	}
	if !key.IsActive {
		return nil, domain.ErrAlreadyDisabled
	}

	key.IsActive = false
	key.UpdatedAt = s.clock.Now(ctx)
	if err := s.db.WithContext(ctx).Save(&key).Error; err != nil {
		return nil, err
	}

	s.log.Info("api key disabled", zap.Int64("api_key_id", key.ID.Int64()))
	return &key, nil
}
