package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pullpaylabs/pullpay/internal/bootstrap"
	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/internal/config"
	"github.com/pullpaylabs/pullpay/internal/event"
	"github.com/pullpaylabs/pullpay/internal/ledger"
	"github.com/pullpaylabs/pullpay/internal/merchant"
	"github.com/pullpaylabs/pullpay/internal/observability"
	"github.com/pullpaylabs/pullpay/internal/platform"
	"github.com/pullpaylabs/pullpay/internal/scheduler"
	"github.com/pullpaylabs/pullpay/internal/security/vault"
	"github.com/pullpaylabs/pullpay/internal/subscription"
	"github.com/pullpaylabs/pullpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),

		// Domain services required by the payment sweep
		scheduler.Module,
		platform.Module,
		subscription.Module,
		ledger.Module,
		event.Module,

		// Transitive dependencies (subscription needs merchant, merchant needs vault)
		merchant.Module,
		vault.Module,

		// No server module!
		fx.Invoke(StartScheduler),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func StartScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.RunForever(context.Background())
			return nil
		},
	})
}
