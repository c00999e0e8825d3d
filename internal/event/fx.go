package event

import (
	"github.com/pullpaylabs/pullpay/internal/event/domain"
	"github.com/pullpaylabs/pullpay/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event.service",
	fx.Provide(service.NewService),
	fx.Provide(func(s domain.Service) domain.Recorder { return s }),
)
