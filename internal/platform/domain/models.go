package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotInitialized     = errors.New("platform_not_initialized")
	ErrAlreadyInitialized = errors.New("platform_already_initialized")
	ErrFeeTooLow          = errors.New("fee_basis_points_too_low")
	ErrFeeTooHigh         = errors.New("fee_basis_points_too_high")
	ErrInvalidFeeRange    = errors.New("invalid_fee_range")
	ErrInvalidVolumeLimit = errors.New("invalid_volume_limit")
	ErrNoUpdateProvided   = errors.New("no_update_provided")
	ErrUnauthorizedAdmin  = errors.New("unauthorized_admin")
	ErrSystemPaused       = errors.New("system_paused")
	ErrVelocityExceeded   = errors.New("velocity_exceeded")
)

// VolumeWindow is the rolling window behind the daily velocity limit.
const VolumeWindow = 24 * time.Hour

// State is the platform singleton: fee parameters, the rolling volume
// window, the emergency kill switch and the global counters. Exactly one row
// exists (SingletonID).
type State struct {
	ID               int64        `gorm:"primaryKey" json:"-"`
	AdminAccount     string       `gorm:"not null" json:"admin_account"`
	FeeAccountID     snowflake.ID `gorm:"not null" json:"fee_account_id"`
	FeeBasisPoints   int          `gorm:"not null" json:"fee_basis_points"`
	MinFee           int64        `gorm:"not null" json:"min_fee"`
	MaxFee           int64        `gorm:"not null" json:"max_fee"`
	DailyVolumeLimit int64        `gorm:"not null" json:"daily_volume_limit"`
	TotalVolume24h   int64        `gorm:"not null;default:0" json:"total_volume_24h"`
	LastVolumeReset  time.Time    `gorm:"not null" json:"last_volume_reset"`
	EmergencyPause   bool         `gorm:"not null;default:false" json:"emergency_pause"`

	TotalSubscriptions int64 `gorm:"not null;default:0" json:"total_subscriptions"`
	TotalTransactions  int64 `gorm:"not null;default:0" json:"total_transactions"`
	FailedTxCount      int64 `gorm:"not null;default:0" json:"failed_tx_count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (State) TableName() string {
	return "platform_state"
}

const SingletonID int64 = 1

type InitializeRequest struct {
	AdminAccount     string       `json:"admin_account"`
	FeeAccountID     snowflake.ID `json:"fee_account_id"`
	FeeBasisPoints   int          `json:"fee_basis_points"`
	MinFee           int64        `json:"min_fee"`
	MaxFee           int64        `json:"max_fee"`
	DailyVolumeLimit int64        `json:"daily_volume_limit"`
}

// UpdateConfigRequest carries optional parameter changes; nil fields stay
// untouched and an all-nil request is rejected.
type UpdateConfigRequest struct {
	FeeBasisPoints   *int    `json:"fee_basis_points"`
	MinFee           *int64  `json:"min_fee"`
	MaxFee           *int64  `json:"max_fee"`
	DailyVolumeLimit *int64  `json:"daily_volume_limit"`
	NewAdminAccount  *string `json:"new_admin_account"`
}

func (r UpdateConfigRequest) Empty() bool {
	return r.FeeBasisPoints == nil &&
		r.MinFee == nil &&
		r.MaxFee == nil &&
		r.DailyVolumeLimit == nil &&
		r.NewAdminAccount == nil
}
