package domain

import (
	"context"
	"time"

	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is one emitted state transition. The stream is an observability
// sink, append-only and never consulted for control decisions.
type Event struct {
	ID         string         `gorm:"primaryKey;size:26" json:"id"`
	Type       string         `gorm:"not null;index" json:"type"`
	EntityType string         `gorm:"not null;index:idx_events_entity" json:"entity_type"`
	EntityID   string         `gorm:"not null;index:idx_events_entity" json:"entity_id"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Event) TableName() string {
	return "events"
}

// NewEvent is the write-side shape services hand to the recorder.
type NewEvent struct {
	Type       string
	EntityType string
	EntityID   string
	Payload    map[string]any
}

// Recorder appends events inside the emitting operation's transaction so an
// aborted transition leaves no trace.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, evt NewEvent) error
}

type ListFilter struct {
	Type       string
	EntityType string
	EntityID   string
}

type Service interface {
	Recorder
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]Event, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
