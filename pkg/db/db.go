// Package db opens the shared gorm handle. Driver selection, pooling,
// tracing and metrics plugins all hang off the process config.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	glebarez "github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pullpaylabs/pullpay/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormprom "gorm.io/plugin/prometheus"
)

var ErrUnsupportedDriver = errors.New("unsupported_db_driver")

// Open builds the gorm handle for the configured driver. sqlite uses the
// pure-Go driver; sqlite3 keeps the cgo driver for deployments that already
// link it.
func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	log = log.Named("db")

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.DB.Driver) {
	case "postgres":
		dialector = postgres.Open(cfg.DB.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DB.DSN)
	case "sqlite":
		dialector = glebarez.Open(cfg.DB.DSN)
	case "sqlite3":
		dialector = gormsqlite.Open(cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.DB.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.TracesEnabled {
		if err := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.App.Name))); err != nil {
			return nil, err
		}
	}
	if cfg.Telemetry.MetricsEnabled {
		if err := db.Use(gormprom.New(gormprom.Config{
			DBName:          cfg.App.Name,
			RefreshInterval: 15,
		})); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	maxOpen := cfg.DB.MaxOpenConns
	if isSQLite(cfg.DB.Driver) {
		// Single writer keeps sqlite happy under the scheduler + API mix.
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, err
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return sqlDB.Close()
		},
	})

	return db, nil
}

func isSQLite(driver string) bool {
	d := strings.ToLower(driver)
	return d == "sqlite" || d == "sqlite3"
}

// IsDuplicate reports whether err is a unique-constraint violation. Covers
// gorm's translated error plus raw postgres errors from Exec paths that skip
// translation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

var Module = fx.Module("db",
	fx.Provide(Open),
)
