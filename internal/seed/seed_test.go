package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
	"github.com/pullpaylabs/pullpay/internal/authorization"
	"github.com/pullpaylabs/pullpay/internal/config"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	"github.com/pullpaylabs/pullpay/internal/migration"
	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
)

type frozenClock struct {
	now time.Time
}

func (c *frozenClock) Now(context.Context) time.Time { return c.now }

func seedConfig() config.Config {
	return config.Config{
		Platform: config.PlatformConfig{
			AdminAccount:     "platform-admin",
			Asset:            "USDC",
			FeeBasisPoints:   250,
			MinFee:           10_000,
			MaxFee:           500_000,
			DailyVolumeLimit: 1_000_000_000,
			BadgePrice:       50_000_000,
		},
	}
}

func newSeedEnv(t *testing.T, cfg config.Config) (Params, *gorm.DB, *casbin.Enforcer) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(gdb))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	enforcer, err := authorization.NewEnforcer(gdb, zap.NewNop())
	require.NoError(t, err)

	p := Params{
		DB:       gdb,
		Log:      zap.NewNop(),
		Config:   cfg,
		GenID:    node,
		Clock:    &frozenClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		Enforcer: enforcer,
	}
	return p, gdb, enforcer
}

func TestRunProvisionsCoreState(t *testing.T) {
	cfg := seedConfig()
	cfg.Seed.AdminAPIKey = "pp_fixedbootstrapkeyfromenv000000000000000000000000"
	p, gdb, enforcer := newSeedEnv(t, cfg)

	require.NoError(t, Run(p))

	var fee ledgerdomain.Account
	require.NoError(t, gdb.Where("owner_account = ?", feeAccountOwner).First(&fee).Error)
	var treasury ledgerdomain.Account
	require.NoError(t, gdb.Where("owner_account = ?", treasuryAccountOwner).First(&treasury).Error)

	var state platformdomain.State
	require.NoError(t, gdb.First(&state, "id = ?", platformdomain.SingletonID).Error)
	assert.Equal(t, "platform-admin", state.AdminAccount)
	assert.Equal(t, fee.ID, state.FeeAccountID)
	assert.Equal(t, 250, state.FeeBasisPoints)
	assert.Equal(t, int64(1_000_000_000), state.DailyVolumeLimit)

	var registry merchantdomain.RegistryState
	require.NoError(t, gdb.First(&registry, "id = ?", merchantdomain.SingletonID).Error)
	assert.Equal(t, treasury.ID, registry.TreasuryAccountID)
	assert.Equal(t, int64(50_000_000), registry.PremiumBadgePrice)

	var key apikeydomain.APIKey
	require.NoError(t, gdb.Where("name = ?", adminKeyName).First(&key).Error)
	assert.Equal(t, apikeydomain.HashAPIKey(cfg.Seed.AdminAPIKey), key.KeyHash)
	assert.Equal(t, apikeydomain.RoleAdmin, key.Role)
	assert.True(t, key.IsActive)

	ok, err := enforcer.Enforce("admin", "/v1/admin/platform/pause", "POST")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunIsIdempotent(t *testing.T) {
	p, gdb, _ := newSeedEnv(t, seedConfig())

	require.NoError(t, Run(p))

	var key apikeydomain.APIKey
	require.NoError(t, gdb.Where("name = ?", adminKeyName).First(&key).Error)
	firstHash := key.KeyHash

	require.NoError(t, Run(p))

	var accounts int64
	require.NoError(t, gdb.Model(&ledgerdomain.Account{}).Count(&accounts).Error)
	assert.Equal(t, int64(2), accounts)

	var keys int64
	require.NoError(t, gdb.Model(&apikeydomain.APIKey{}).Count(&keys).Error)
	assert.Equal(t, int64(1), keys)

	// The stored hash survives a rerun; a regenerated key would lock
	// the operator out.
	require.NoError(t, gdb.Where("name = ?", adminKeyName).First(&key).Error)
	assert.Equal(t, firstHash, key.KeyHash)
}

func TestRunSeedsDemoData(t *testing.T) {
	cfg := seedConfig()
	cfg.Seed.Demo = true
	p, gdb, _ := newSeedEnv(t, cfg)

	require.NoError(t, Run(p))

	var payer ledgerdomain.Account
	require.NoError(t, gdb.Where("owner_account = ?", demoPayerOwner).First(&payer).Error)
	assert.Equal(t, demoPayerBalance, payer.Balance)

	var entry ledgerdomain.Entry
	require.NoError(t, gdb.Where("to_account_id = ?", payer.ID).First(&entry).Error)
	assert.Equal(t, ledgerdomain.EntryKindCredit, entry.Kind)

	var merchant merchantdomain.Merchant
	require.NoError(t, gdb.Where("owner_account = ?", demoMerchantOwner).First(&merchant).Error)
	assert.Equal(t, merchantdomain.TierVerified, merchant.VerificationTier)
	assert.Equal(t, "demo-coffee", merchant.Slug)

	var registry merchantdomain.RegistryState
	require.NoError(t, gdb.First(&registry, "id = ?", merchantdomain.SingletonID).Error)
	assert.Equal(t, int64(1), registry.TotalMerchants)
	assert.Equal(t, int64(1), registry.VerifiedMerchants)

	// Second run leaves the funded balance and counters alone.
	require.NoError(t, Run(p))
	require.NoError(t, gdb.Where("owner_account = ?", demoPayerOwner).First(&payer).Error)
	assert.Equal(t, demoPayerBalance, payer.Balance)
	require.NoError(t, gdb.First(&registry, "id = ?", merchantdomain.SingletonID).Error)
	assert.Equal(t, int64(1), registry.TotalMerchants)
}

func TestRunGeneratesKeyWhenUnset(t *testing.T) {
	p, gdb, _ := newSeedEnv(t, seedConfig())

	require.NoError(t, Run(p))

	var key apikeydomain.APIKey
	require.NoError(t, gdb.Where("name = ?", adminKeyName).First(&key).Error)
	assert.Len(t, key.KeyHash, 64)
}
