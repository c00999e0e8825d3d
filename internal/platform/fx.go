package platform

import (
	"go.uber.org/fx"

	"github.com/pullpaylabs/pullpay/internal/platform/domain"
	"github.com/pullpaylabs/pullpay/internal/platform/repository"
	"github.com/pullpaylabs/pullpay/internal/platform/service"
)

var Module = fx.Module("platform.service",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
		func(s *service.Service) domain.Service { return s },
		func(s *service.Service) domain.Gate { return s },
	),
)
