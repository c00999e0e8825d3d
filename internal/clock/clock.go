package clock

import (
	"context"
	"time"
)

// Clock supplies the engine's notion of now. Due checks, the velocity window
// and badge expiry all read time through it so simulated time can be injected
// by tests and test clocks.
type Clock interface {
	Now(ctx context.Context) time.Time
}
