package testclock

import (
	"go.uber.org/fx"

	"github.com/pullpaylabs/pullpay/internal/testclock/domain"
	"github.com/pullpaylabs/pullpay/internal/testclock/service"
)

var Module = fx.Module("testclock.service",
	fx.Provide(
		domain.NewRepository,
		service.New,
	),
)
