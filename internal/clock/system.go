package clock

import (
	"context"
	"time"

	testclockctx "github.com/pullpaylabs/pullpay/internal/testclock/context"
)

// SystemClock returns real UTC time unless the context carries a test clock.
type SystemClock struct{}

func (SystemClock) Now(ctx context.Context) time.Time {
	if _, t, ok := testclockctx.FromContext(ctx); ok {
		return t
	}
	return time.Now().UTC()
}
