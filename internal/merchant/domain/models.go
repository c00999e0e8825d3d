package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrMerchantNotFound           = errors.New("merchant_not_found")
	ErrMerchantExists             = errors.New("merchant_already_exists")
	ErrInvalidBusinessName        = errors.New("invalid_business_name")
	ErrInvalidCategory            = errors.New("invalid_category")
	ErrInvalidWebhookURL          = errors.New("invalid_webhook_url")
	ErrInvalidTier                = errors.New("invalid_verification_tier")
	ErrCannotSetCommunityTier     = errors.New("cannot_set_community_tier")
	ErrInvalidSuspensionReason    = errors.New("invalid_suspension_reason")
	ErrMustBeVerified             = errors.New("must_be_verified")
	ErrNoUpdateProvided           = errors.New("no_update_provided")
	ErrUnauthorizedMerchant       = errors.New("unauthorized_merchant")
	ErrUnauthorizedReport         = errors.New("unauthorized_report")
	ErrRegistryNotInitialized     = errors.New("registry_not_initialized")
	ErrRegistryAlreadyInitialized = errors.New("registry_already_initialized")
	ErrInvalidBadgePrice          = errors.New("invalid_badge_price")

	ErrInvalidRating              = errors.New("invalid_rating")
	ErrInvalidComment             = errors.New("invalid_comment")
	ErrNoActiveSubscription       = errors.New("no_active_subscription")
	ErrInsufficientPaymentHistory = errors.New("insufficient_payment_history")
	ErrInsufficientTotalPaid      = errors.New("insufficient_total_paid")
	ErrSubscriptionTooNew         = errors.New("subscription_too_new")
	ErrDuplicateReview            = errors.New("duplicate_review")
)

type Tier string

const (
	TierUnverified Tier = "unverified"
	TierVerified   Tier = "verified"
	TierCommunity  Tier = "community"
	TierSuspended  Tier = "suspended"
)

func (t Tier) Valid() bool {
	switch t {
	case TierUnverified, TierVerified, TierCommunity, TierSuspended:
		return true
	}
	return false
}

// Reputation thresholds. Community tier is earned, never assigned: the
// promotion rule is the only path in, and a score below the suspension floor
// takes any tier out.
const (
	ScoreSuccessDelta        int64 = 10
	ScoreFailureDelta        int64 = 25
	CommunityMinTransactions int64 = 100
	CommunityMinScore        int64 = 1000
	CommunityMaxFailed       int64 = 5
	SuspensionFloor          int64 = -100

	BadgeDuration = 30 * 24 * time.Hour
)

// ReviewScoreDelta maps a star rating to its reputation delta.
func ReviewScoreDelta(rating int) int64 {
	switch rating {
	case 5:
		return 20
	case 4:
		return 10
	case 2:
		return -15
	case 1:
		return -30
	default:
		return 0
	}
}

// Review-gate minimums: the reviewer's subscription with the merchant must
// clear all of these before a review is accepted.
const (
	ReviewMinPayments  int64 = 3
	ReviewMinTotalPaid int64 = 1_000_000
	ReviewMinAge             = 7 * 24 * time.Hour
)

type Merchant struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerAccount string       `gorm:"not null;uniqueIndex" json:"owner_account"`
	BusinessName string       `gorm:"not null;size:64" json:"business_name"`
	Slug         string       `gorm:"not null;uniqueIndex;size:96" json:"slug"`
	Category     string       `gorm:"size:32" json:"category"`
	// WebhookURL is stored encrypted; the service decrypts it on reads.
	WebhookURL string `gorm:"size:512" json:"webhook_url,omitempty"`

	VerificationTier   Tier  `gorm:"not null;default:unverified;index" json:"verification_tier"`
	CommunityScore     int64 `gorm:"not null;default:0" json:"community_score"`
	TotalTransactions  int64 `gorm:"not null;default:0" json:"total_transactions"`
	TotalVolume        int64 `gorm:"not null;default:0" json:"total_volume"`
	FailedTransactions int64 `gorm:"not null;default:0" json:"failed_transactions"`

	PremiumBadgeActive  bool       `gorm:"not null;default:false" json:"premium_badge_active"`
	PremiumBadgeExpires *time.Time `json:"premium_badge_expires,omitempty"`
	SuspensionReason    *string    `gorm:"size:256" json:"suspension_reason,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Merchant) TableName() string {
	return "merchants"
}

/// RegistryState is the registry singleton: treasury routing, badge pricing
// and the merchant counters. Exactly one row exists (SingletonID).
type RegistryState struct {
	ID                int64        `gorm:"primaryKey" json:"-"`
	TreasuryAccountID snowflake.ID `gorm:"not null" json:"treasury_account_id"`
	PremiumBadgePrice int64        `gorm:"not null" json:"premium_badge_price"`
	TotalMerchants    int64        `gorm:"not null;default:0" json:"total_merchants"`
	VerifiedMerchants int64        `gorm:"not null;default:0" json:"verified_merchants"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

func (RegistryState) TableName() string {
	return "registry_state"
}

const SingletonID int64 = 1

// Review rows are immutable; the unique index makes the one-review-per-payer
// rule a database guarantee rather than a read-then-write race.
type Review struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID      snowflake.ID `gorm:"not null;uniqueIndex:idx_reviews_merchant_reviewer" json:"merchant_id"`
	ReviewerAccount string       `gorm:"not null;uniqueIndex:idx_reviews_merchant_reviewer" json:"reviewer_account"`
	Rating          int          `gorm:"not null" json:"rating"`
	Comment         string       `gorm:"not null;size:256" json:"comment"`
	SubscriptionID  snowflake.ID `gorm:"not null" json:"subscription_id"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
