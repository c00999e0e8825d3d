package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/audit/domain"
	"github.com/pullpaylabs/pullpay/internal/clock"
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
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry domain.NewEntry) error {
	row := &domain.AuditLog{
		ID:         s.genID.Generate(),
		Actor:      entry.Actor,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		TargetID:   entry.TargetID,
		IPAddress:  entry.IPAddress,
		CreatedAt:  s.clock.Now(ctx),
	}
	if entry.Metadata != nil {
		row.Metadata = datatypes.JSONMap(entry.Metadata)
	}
	if err := s.handle(tx).WithContext(ctx).Create(row).Error; err != nil {
		return err
	}

	s.log.Info("audit entry recorded",
		zap.String("actor", entry.Actor),
		zap.String("action", entry.Action),
		zap.String("target_type", entry.TargetType),
		zap.String("target_id", entry.TargetID))
	return nil
}
