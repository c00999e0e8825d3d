package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrSubscriptionNotFound     = errors.New("subscription_not_found")
	ErrUnauthorizedSubscription = errors.New("unauthorized_subscription")
	ErrFrequencyTooShort        = errors.New("frequency_too_short")
	ErrFrequencyTooLong         = errors.New("frequency_too_long")
	ErrInvalidMerchantName      = errors.New("invalid_merchant_name")
	ErrAmountTooLow             = errors.New("amount_too_low")
	ErrExceedsTransactionCap    = errors.New("exceeds_transaction_cap")
	ErrExceedsLifetimeCap       = errors.New("exceeds_lifetime_cap")
	ErrSubscriptionInactive     = errors.New("subscription_inactive")
	ErrSubscriptionPaused       = errors.New("subscription_paused")
	ErrAlreadyPaused            = errors.New("already_paused")
	ErrNotPaused                = errors.New("not_paused")
	ErrPaymentNotDue            = errors.New("payment_not_due")
	ErrPriceVarianceExceeded    = errors.New("price_variance_exceeded")
	ErrInsufficientAmount       = errors.New("insufficient_amount")
	ErrSubscriptionStillActive  = errors.New("subscription_still_active")
	ErrNoUpdateProvided         = errors.New("no_update_provided")
)

const (
	// Billing frequency bounds, in seconds: one hour to one year.
	MinFrequencySeconds int64 = 3_600
	MaxFrequencySeconds int64 = 31_536_000

	MaxMerchantNameLen = 32

	// PriceVarianceDivisor bounds amount drift to a tenth of the price the
	// payer originally agreed to.
	PriceVarianceDivisor int64 = 10
)

// Spender is the per-subscription delegate identity the engine draws
// payments under. Creating authorizes it, cancelling revokes it; the payer's
// own transfers never use it.
func Spender(id snowflake.ID) string {
	return "billing-engine:" + id.String()
}

// Subscription is one payer->merchant billing agreement. Rows are mutable
// while active; Cancel makes them terminal and Close deletes them.
type Subscription struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	PayerAccount     string       `gorm:"not null;index" json:"payer_account"`
	PayerLedgerID    snowflake.ID `gorm:"not null" json:"payer_ledger_id"`
	MerchantID       snowflake.ID `gorm:"not null;index" json:"merchant_id"`
	MerchantLedgerID snowflake.ID `gorm:"not null" json:"merchant_ledger_id"`
	MerchantName     string       `gorm:"not null;size:32" json:"merchant_name"`

	Amount           int64 `gorm:"not null" json:"amount"`
	OriginalAmount   int64 `gorm:"not null" json:"original_amount"`
	FrequencySeconds int64 `gorm:"not null" json:"frequency_seconds"`

	LastPayment  *time.Time `json:"last_payment,omitempty"`
	NextPayment  time.Time  `gorm:"not null;index" json:"next_payment"`
	TotalPaid    int64      `gorm:"not null;default:0" json:"total_paid"`
	PaymentCount int64      `gorm:"not null;default:0" json:"payment_count"`

	IsActive bool `gorm:"not null;default:true;index" json:"is_active"`
	IsPaused bool `gorm:"not null;default:false" json:"is_paused"`

	MaxPerTransaction int64 `gorm:"not null" json:"max_per_transaction"`
	LifetimeCap       int64 `gorm:"not null" json:"lifetime_cap"`

	TestClockID *snowflake.ID `gorm:"index" json:"test_clock_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) Frequency() time.Duration {
	return time.Duration(s.FrequencySeconds) * time.Second
}
