package domain

import (
	"context"

	"gorm.io/gorm"
)

// Service exposes the admin surface of the platform singleton.
type Service interface {
	Initialize(ctx context.Context, req InitializeRequest) (*State, error)
	UpdateConfig(ctx context.Context, actor string, req UpdateConfigRequest) (*State, error)
	SetEmergencyPause(ctx context.Context, actor string, paused bool) (*State, error)
	Get(ctx context.Context) (*State, error)
}

// Gate is the billing-path view of the platform state. All methods take the
// caller's transaction so counter updates commit or roll back with the
// payment that caused them.
type Gate interface {
	// BillingState loads the singleton, rejects when the emergency pause is
	// set, and applies the rolling-window reset in memory when the window
	// has elapsed. The reset is persisted by CommitPayment.
	BillingState(ctx context.Context, tx *gorm.DB) (*State, error)

	// CommitPayment enforces the daily volume limit against the state
	// returned by BillingState and persists the new window volume and
	// transaction counter.
	CommitPayment(ctx context.Context, tx *gorm.DB, state *State, amount int64) error

	AddSubscription(ctx context.Context, tx *gorm.DB) error
	RemoveSubscription(ctx context.Context, tx *gorm.DB) error
	RecordFailedTransaction(ctx context.Context, tx *gorm.DB) error
}
