package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/internal/event/domain"
	"github.com/pullpaylabs/pullpay/internal/observability"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *observability.Metrics
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	metrics *observability.Metrics

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("event.service"),
		clock:   p.Clock,
		metrics: p.Metrics,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *Service) nextID(now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, evt domain.NewEvent) error {
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now(ctx)
	id, err := s.nextID(now)
	if err != nil {
		return err
	}

	var payload datatypes.JSON
	if evt.Payload != nil {
		raw, err := json.Marshal(evt.Payload)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(raw)
	}

	record := &domain.Event{
		ID:         id,
		Type:       evt.Type,
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Payload:    payload,
		CreatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(record).Error; err != nil {
		return err
	}

	s.metrics.EventsRecorded.WithLabelValues(evt.Type).Inc()
	s.log.Debug("event recorded",
		zap.String("event_id", id),
		zap.String("type", evt.Type),
		zap.String("entity_type", evt.EntityType),
		zap.String("entity_id", evt.EntityID),
	)
	return nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter, page pagination.Params) ([]domain.Event, int64, error) {
	q := s.db.WithContext(ctx).Model(&domain.Event{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id = ?", filter.EntityID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []domain.Event
	if err := page.Apply(q).Order("id DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *Service) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&domain.Event{}, "created_at < ?", cutoff)
	return res.RowsAffected, res.Error
}
