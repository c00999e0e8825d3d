package subscription

import (
	"go.uber.org/fx"

	"github.com/pullpaylabs/pullpay/internal/subscription/repository"
	"github.com/pullpaylabs/pullpay/internal/subscription/service"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	// The merchant review gate reads billing evidence through this narrow
	// view instead of the full service, which would cycle back into it.
	fx.Provide(service.NewEvidenceSource),
)
