package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pullpaylabs/pullpay/internal/apikey"
	"github.com/pullpaylabs/pullpay/internal/audit"
	"github.com/pullpaylabs/pullpay/internal/authorization"
	"github.com/pullpaylabs/pullpay/internal/bootstrap"
	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/internal/config"
	"github.com/pullpaylabs/pullpay/internal/event"
	"github.com/pullpaylabs/pullpay/internal/ledger"
	"github.com/pullpaylabs/pullpay/internal/merchant"
	"github.com/pullpaylabs/pullpay/internal/migration"
	"github.com/pullpaylabs/pullpay/internal/observability"
	"github.com/pullpaylabs/pullpay/internal/platform"
	"github.com/pullpaylabs/pullpay/internal/ratelimit"
	"github.com/pullpaylabs/pullpay/internal/receipt"
	"github.com/pullpaylabs/pullpay/internal/redis"
	"github.com/pullpaylabs/pullpay/internal/scheduler"
	"github.com/pullpaylabs/pullpay/internal/security/vault"
	"github.com/pullpaylabs/pullpay/internal/seed"
	"github.com/pullpaylabs/pullpay/internal/server"
	"github.com/pullpaylabs/pullpay/internal/subscription"
	"github.com/pullpaylabs/pullpay/internal/testclock"
	"github.com/pullpaylabs/pullpay/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "pullpay",
		Short:   "Pullpay CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSchedulerCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the billing API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the background payment scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(serveOptions())
	app.Run()
}

func runScheduler() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		vault.Module,
		platform.Module,
		merchant.Module,
		ledger.Module,
		subscription.Module,
		event.Module,
		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runMonolith() {
	app := fx.New(
		serveOptions(),
		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

// serveOptions is the full API-server graph. The monolith entrypoint adds
// the scheduler on top.
func serveOptions() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		fx.Invoke(migration.EnsureDevSchema),
		vault.Module,
		platform.Module,
		merchant.Module,
		ledger.Module,
		subscription.Module,
		event.Module,
		audit.Module,
		apikey.Module,
		testclock.Module,
		authorization.Module,
		ratelimit.Module,
		receipt.Module,
		seed.Module,
		server.Module,
	)
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(context.Background())
			return nil
		},
	})
}
