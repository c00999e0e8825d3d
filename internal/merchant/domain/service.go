package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type ApplyRequest struct {
	BusinessName string `json:"business_name"`
	Category     string `json:"category"`
	WebhookURL   string `json:"webhook_url"`
}

type UpdateInfoRequest struct {
	BusinessName *string `json:"business_name"`
	Category     *string `json:"category"`
	WebhookURL   *string `json:"webhook_url"`
}

func (r UpdateInfoRequest) Empty() bool {
	return r.BusinessName == nil && r.Category == nil && r.WebhookURL == nil
}

type SubmitReviewRequest struct {
	MerchantID     snowflake.ID `json:"merchant_id"`
	SubscriptionID snowflake.ID `json:"subscription_id"`
	Rating         int          `json:"rating"`
	Comment        string       `json:"comment"`
}

type InitializeRegistryRequest struct {
	TreasuryAccountID snowflake.ID `json:"treasury_account_id"`
	PremiumBadgePrice int64        `json:"premium_badge_price"`
}

type ListFilter struct {
	Tier Tier
}

type Service interface {
	InitializeRegistry(ctx context.Context, req InitializeRegistryRequest) (*RegistryState, error)
	GetRegistry(ctx context.Context) (*RegistryState, error)

	Apply(ctx context.Context, owner string, req ApplyRequest) (*Merchant, error)
	Approve(ctx context.Context, merchantID snowflake.ID, tier Tier) (*Merchant, error)
	Suspend(ctx context.Context, merchantID snowflake.ID, reason string) (*Merchant, error)
	SubscribePremiumBadge(ctx context.Context, owner string, merchantID snowflake.ID) (*Merchant, error)
	UpdateInfo(ctx context.Context, owner string, merchantID snowflake.ID, req UpdateInfoRequest) (*Merchant, error)
	Get(ctx context.Context, merchantID snowflake.ID) (*Merchant, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]Merchant, int64, error)

	SubmitReview(ctx context.Context, reviewer string, req SubmitReviewRequest) (*Review, error)
	ListReviews(ctx context.Context, merchantID snowflake.ID, page pagination.Params) ([]Review, int64, error)
}

// TransactionReport is the billing engine's per-payment outcome feed.
type TransactionReport struct {
	SubscriptionID snowflake.ID
	MerchantID     snowflake.ID
	Amount         int64
	Success        bool
}

// TransactionReporter mutates merchant reputation from payment outcomes. It
// is deliberately not part of Service: the only caller is the billing engine,
// wired directly through fx, so reputation writes cannot be reached from the
// HTTP surface.
type TransactionReporter interface {
	Record(ctx context.Context, tx *gorm.DB, report TransactionReport) error
}

// Evidence is the subscription-derived proof backing a review.
type Evidence struct {
	SubscriptionID snowflake.ID
	Active         bool
	PaymentCount   int64
	TotalPaid      int64
	CreatedAt      time.Time
}

// EvidenceSource resolves the reviewer's subscription with a merchant. It is
// implemented by the billing engine; a nil result means no such subscription
// exists for that reviewer and merchant.
type EvidenceSource interface {
	Evidence(ctx context.Context, subscriptionID snowflake.ID, reviewer string, merchantID snowflake.ID) (*Evidence, error)
}
