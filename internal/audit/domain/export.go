package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrInvalidFormat = errors.New("invalid_export_format")
	ErrInvalidRange  = errors.New("invalid_export_range")
)

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

type ExportRequest struct {
	StartDate time.Time
	EndDate   time.Time
	Format    ExportFormat
	// Actions narrows the export to specific action types when set.
	Actions []string
	// Compress snappy-encodes the payload. The checksum always covers the
	// uncompressed bytes.
	Compress bool
}

type ExportResult struct {
	Data       []byte
	Checksum   string
	Format     ExportFormat
	Count      int
	Compressed bool
}

// Service records admin mutations and exports the trail for offline review.
type Service interface {
	// Record appends within the mutating transaction when one is given.
	Record(ctx context.Context, tx *gorm.DB, entry NewEntry) error
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)
}
