package migration

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
	auditdomain "github.com/pullpaylabs/pullpay/internal/audit/domain"
	"github.com/pullpaylabs/pullpay/internal/config"
	eventdomain "github.com/pullpaylabs/pullpay/internal/event/domain"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
	"github.com/pullpaylabs/pullpay/internal/scheduler"
	subscriptiondomain "github.com/pullpaylabs/pullpay/internal/subscription/domain"
	testclockdomain "github.com/pullpaylabs/pullpay/internal/testclock/domain"
)

// models is every gorm-managed table. The embedded SQL migrations stay
// the source of truth for postgres; this list only serves AutoMigrate.
func models() []any {
	return []any{
		&platformdomain.State{},
		&merchantdomain.Merchant{},
		&merchantdomain.RegistryState{},
		&merchantdomain.Review{},
		&ledgerdomain.Account{},
		&ledgerdomain.Authorization{},
		&ledgerdomain.Entry{},
		&subscriptiondomain.Subscription{},
		&eventdomain.Event{},
		&testclockdomain.TestClock{},
		&scheduler.JobRun{},
		&apikeydomain.APIKey{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate builds the full schema through gorm. Development-only:
// postgres deployments run the embedded migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models()...)
}

// EnsureDevSchema applies AutoMigrate when the config asks for it.
// Wired into serve so a fresh sqlite database works without a migrate
// step.
func EnsureDevSchema(cfg config.Config, db *gorm.DB, log *zap.Logger) error {
	if !cfg.DB.AutoMigrate {
		return nil
	}
	if err := AutoMigrate(db); err != nil {
		return err
	}
	log.Named("migration").Info("schema auto-migrated", zap.String("driver", cfg.DB.Driver))
	return nil
}
