package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Name string `json:"name"`
	// InitialTime defaults to the current time when zero.
	InitialTime time.Time `json:"initial_time"`
}

// AdvanceResult reports one completed advance: the clock at its new frozen
// time plus how many pinned payments were settled on the way.
type AdvanceResult struct {
	Clock            *TestClock `json:"clock"`
	PaymentsExecuted int        `json:"payments_executed"`
	PaymentsFailed   int        `json:"payments_failed"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*TestClock, error)

	// Advance moves the frozen time forward and settles every pinned
	// subscription that became due, all at the target time. A subscription
	// billed by the advance lands one full period past the target, so
	// walking a multi-cycle span takes one advance per cycle.
	Advance(ctx context.Context, id snowflake.ID, d time.Duration) (*AdvanceResult, error)

	Get(ctx context.Context, id snowflake.ID) (*TestClock, error)
	List(ctx context.Context) ([]TestClock, error)
	Delete(ctx context.Context, id snowflake.ID) error
}
