package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type CreateRequest struct {
	MerchantID        snowflake.ID `json:"merchant_id"`
	MerchantName      string       `json:"merchant_name"`
	Amount            int64        `json:"amount"`
	FrequencySeconds  int64        `json:"frequency_seconds"`
	MaxPerTransaction int64        `json:"max_per_transaction"`
	LifetimeCap       int64        `json:"lifetime_cap"`
}

type UpdateLimitsRequest struct {
	MaxPerTransaction *int64 `json:"max_per_transaction"`
	LifetimeCap       *int64 `json:"lifetime_cap"`
}

func (r UpdateLimitsRequest) Empty() bool {
	return r.MaxPerTransaction == nil && r.LifetimeCap == nil
}

// PaymentResult is one executed billing cycle: the post-payment subscription
// plus the fee split applied to the charged amount.
type PaymentResult struct {
	Subscription   *Subscription `json:"subscription"`
	Amount         int64         `json:"amount"`
	Fee            int64         `json:"fee"`
	MerchantAmount int64         `json:"merchant_amount"`
}

type ListFilter struct {
	PayerAccount string
	MerchantID   snowflake.ID
	ActiveOnly   bool
}

type Service interface {
	Create(ctx context.Context, payer string, req CreateRequest) (*Subscription, error)
	Get(ctx context.Context, id snowflake.ID) (*Subscription, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]Subscription, int64, error)

	// ExecutePayment is deliberately permissionless: any authenticated
	// caller (or the scheduler) may trigger a due payment, the layered
	// preconditions decide whether it happens.
	ExecutePayment(ctx context.Context, id snowflake.ID) (*PaymentResult, error)

	Pause(ctx context.Context, payer string, id snowflake.ID) (*Subscription, error)
	Resume(ctx context.Context, payer string, id snowflake.ID) (*Subscription, error)
	Cancel(ctx context.Context, payer string, id snowflake.ID) (*Subscription, error)
	Close(ctx context.Context, payer string, id snowflake.ID) error
	UpdateLimits(ctx context.Context, payer string, id snowflake.ID, req UpdateLimitsRequest) (*Subscription, error)

	// ListDue feeds the scheduler's billing sweep. Production scope only:
	// subscriptions pinned to a test clock are advanced by that clock.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Subscription, error)

	// ListDueForClock scopes the due scan to one test clock's subscriptions.
	ListDueForClock(ctx context.Context, clockID snowflake.ID, now time.Time, limit int) ([]Subscription, error)
}
