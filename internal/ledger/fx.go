package ledger

import (
	"github.com/pullpaylabs/pullpay/internal/ledger/domain"
	"github.com/pullpaylabs/pullpay/internal/ledger/repository"
	"github.com/pullpaylabs/pullpay/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
	fx.Provide(func(s *service.Service) domain.Adapter { return s }),
)
