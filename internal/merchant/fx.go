package merchant

import (
	"go.uber.org/fx"

	"github.com/pullpaylabs/pullpay/internal/merchant/domain"
	"github.com/pullpaylabs/pullpay/internal/merchant/repository"
	"github.com/pullpaylabs/pullpay/internal/merchant/service"
)

var Module = fx.Module("merchant.service",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
		func(s *service.Service) domain.Service { return s },
		// The reporter stays off the public Service interface; only the
		// billing engine receives it.
		func(s *service.Service) domain.TransactionReporter { return s },
	),
)
