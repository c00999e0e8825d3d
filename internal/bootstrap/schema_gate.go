// Package bootstrap decides whether a process may serve against the
// connected database. Postgres deployments must have run the embedded
// migrations; the gate compares the recorded schema state against what
// this binary expects and refuses to start on drift.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/config"
	"github.com/pullpaylabs/pullpay/internal/migration"
)

var (
	ErrSchemaStateNotFound    = errors.New("schema_state_not_found")
	ErrSchemaStateInactive    = errors.New("schema_state_inactive")
	ErrSchemaVersionMismatch  = errors.New("schema_version_mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema_checksum_mismatch")
)

const (
	StatusInitializing = "initializing"
	StatusActive       = "active"
)

type SchemaGate interface {
	MustBeActive(ctx context.Context) error
}

type schemaGate struct {
	db               *gorm.DB
	devMode          bool
	expectedVersion  string
	expectedChecksum string
}

// NewSchemaGate binds the gate to this binary's embedded migrations.
// With AutoMigrate enabled the schema has no versioned state to check
// and the gate always passes.
func NewSchemaGate(db *gorm.DB, cfg config.Config) (SchemaGate, error) {
	version, checksum, err := migration.ExpectedSchema()
	if err != nil {
		return nil, err
	}
	return &schemaGate{
		db:               db,
		devMode:          cfg.DB.AutoMigrate,
		expectedVersion:  version,
		expectedChecksum: checksum,
	}, nil
}

func (g *schemaGate) MustBeActive(ctx context.Context) error {
	if g.devMode {
		return nil
	}

	state, err := loadSchemaState(ctx, g.db)
	if err != nil {
		return err
	}

	if state.Status != StatusActive {
		return fmt.Errorf("%w: status=%s", ErrSchemaStateInactive, state.Status)
	}
	if state.SchemaVersion != g.expectedVersion {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaVersionMismatch, state.SchemaVersion, g.expectedVersion)
	}
	if state.Checksum != nil && *state.Checksum != "" && *state.Checksum != g.expectedChecksum {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaChecksumMismatch, *state.Checksum, g.expectedChecksum)
	}
	return nil
}

func loadSchemaState(ctx context.Context, db *gorm.DB) (*SchemaState, error) {
	var state SchemaState
	result := db.WithContext(ctx).Table(schemaStateTable).
		Where("id = ?", true).
		Limit(1).
		Scan(&state)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrSchemaStateNotFound
	}

	state.Status = strings.ToLower(strings.TrimSpace(state.Status))
	state.SchemaVersion = strings.TrimSpace(state.SchemaVersion)
	if state.Checksum != nil {
		trimmed := strings.TrimSpace(*state.Checksum)
		state.Checksum = &trimmed
	}
	return &state, nil
}
