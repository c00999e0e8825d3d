package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/internal/config"
	eventdomain "github.com/pullpaylabs/pullpay/internal/event/domain"
	eventservice "github.com/pullpaylabs/pullpay/internal/event/service"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	ledgerrepo "github.com/pullpaylabs/pullpay/internal/ledger/repository"
	ledgerservice "github.com/pullpaylabs/pullpay/internal/ledger/service"
	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	merchantrepo "github.com/pullpaylabs/pullpay/internal/merchant/repository"
	merchantservice "github.com/pullpaylabs/pullpay/internal/merchant/service"
	"github.com/pullpaylabs/pullpay/internal/observability"
	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
	platformrepo "github.com/pullpaylabs/pullpay/internal/platform/repository"
	platformservice "github.com/pullpaylabs/pullpay/internal/platform/service"
	"github.com/pullpaylabs/pullpay/internal/security/vault"
	subscriptiondomain "github.com/pullpaylabs/pullpay/internal/subscription/domain"
	subscriptionrepo "github.com/pullpaylabs/pullpay/internal/subscription/repository"
	subscriptionservice "github.com/pullpaylabs/pullpay/internal/subscription/service"
	"github.com/pullpaylabs/pullpay/internal/testclock/domain"
	testclockctx "github.com/pullpaylabs/pullpay/internal/testclock/context"
)

type testEnv struct {
	db            *gorm.DB
	node          *snowflake.Node
	ledger        *ledgerservice.Service
	subscriptions subscriptiondomain.Service

	payer           string
	payerAccount    *ledgerdomain.Account
	merchant        *merchantdomain.Merchant
	merchantAccount *ledgerdomain.Account
}

// newTestService wires the clock service against the real billing stack with
// the production SystemClock, so an armed context is what moves time.
func newTestService(t *testing.T) (domain.Service, *testEnv) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(
		&domain.TestClock{},
		&subscriptiondomain.Subscription{},
		&platformdomain.State{},
		&merchantdomain.Merchant{}, &merchantdomain.RegistryState{}, &merchantdomain.Review{},
		&eventdomain.Event{},
		&ledgerdomain.Account{}, &ledgerdomain.Authorization{}, &ledgerdomain.Entry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.SystemClock{}
	metrics := observability.NewMetrics()

	events := eventservice.NewService(eventservice.ServiceParam{
		DB:      gdb,
		Log:     zap.NewNop(),
		Clock:   clk,
		Metrics: metrics,
	})
	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  ledgerrepo.NewRepository(gdb),
	})
	platformSvc := platformservice.NewService(platformservice.ServiceParam{
		DB:     gdb,
		Log:    zap.NewNop(),
		Clock:  clk,
		Repo:   platformrepo.NewRepository(gdb),
		Events: events,
	})
	sealer, err := vault.NewFactory(vault.Config{Provider: "aes", Key: "testclock-test-key"})
	require.NoError(t, err)

	subRepo := subscriptionrepo.NewRepository(gdb)
	merchRepo := merchantrepo.NewRepository(gdb)
	merchantSvc := merchantservice.NewService(merchantservice.ServiceParam{
		Config: config.Config{
			Platform: config.PlatformConfig{Asset: "USDC"},
			Redis:    config.RedisConfig{CacheTTL: time.Minute},
		},
		DB:       gdb,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     merchRepo,
		Events:   events,
		Ledger:   ledgerSvc,
		Accounts: ledgerSvc,
		Vault:    sealer,
		Evidence: subscriptionservice.NewEvidenceSource(subRepo),
		Metrics:  metrics,
	})
	subSvc := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		Config:    config.Config{Platform: config.PlatformConfig{Asset: "USDC"}},
		DB:        gdb,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Tracer:    otel.Tracer("test"),
		Repo:      subRepo,
		Merchants: merchRepo,
		Ledger:    ledgerSvc,
		Accounts:  ledgerSvc,
		Gate:      platformSvc,
		Reporter:  merchantSvc,
		Events:    events,
		Metrics:   metrics,
	})

	svc := New(Params{
		DB:            gdb,
		Log:           zap.NewNop(),
		Clock:         clk,
		GenID:         node,
		Repo:          domain.NewRepository(gdb),
		Subscriptions: subSvc,
	})

	env := &testEnv{db: gdb, node: node, ledger: ledgerSvc, subscriptions: subSvc}

	ctx := context.Background()
	feeAccount, err := ledgerSvc.CreateAccount(ctx, ledgerdomain.CreateAccountRequest{
		OwnerAccount: "platform-treasury", Asset: "USDC",
	})
	require.NoError(t, err)
	_, err = platformSvc.Initialize(ctx, platformdomain.InitializeRequest{
		AdminAccount:     "platform-admin",
		FeeAccountID:     feeAccount.ID,
		FeeBasisPoints:   250,
		MinFee:           10_000,
		MaxFee:           500_000,
		DailyVolumeLimit: 100_000_000,
	})
	require.NoError(t, err)
	_, err = merchantSvc.InitializeRegistry(ctx, merchantdomain.InitializeRegistryRequest{
		TreasuryAccountID: feeAccount.ID,
		PremiumBadgePrice: 50_000_000,
	})
	require.NoError(t, err)

	env.merchantAccount, err = ledgerSvc.CreateAccount(ctx, ledgerdomain.CreateAccountRequest{
		OwnerAccount: "acme-owner", Asset: "USDC",
	})
	require.NoError(t, err)
	merch, err := merchantSvc.Apply(ctx, "acme-owner", merchantdomain.ApplyRequest{
		BusinessName: "Acme Streaming",
		Category:     "media",
	})
	require.NoError(t, err)
	env.merchant, err = merchantSvc.Approve(ctx, merch.ID, merchantdomain.TierVerified)
	require.NoError(t, err)

	env.payer = "payer-1"
	env.payerAccount, err = ledgerSvc.CreateAccount(ctx, ledgerdomain.CreateAccountRequest{
		OwnerAccount: env.payer, Asset: "USDC",
	})
	require.NoError(t, err)
	_, err = env.ledger.Credit(ctx, env.payerAccount.ID.String(), 100_000_000, "test funding")
	require.NoError(t, err)

	return svc, env
}

// createPinnedSubscription opens a daily subscription under the clock's
// simulated time.
func createPinnedSubscription(t *testing.T, env *testEnv, tc *domain.TestClock) *subscriptiondomain.Subscription {
	t.Helper()
	armed := testclockctx.WithTestClock(context.Background(), tc.ID, tc.FrozenTime)
	sub, err := env.subscriptions.Create(armed, env.payer, subscriptiondomain.CreateRequest{
		MerchantID:        env.merchant.ID,
		MerchantName:      "Acme Streaming",
		Amount:            10_000_000,
		FrequencySeconds:  86_400,
		MaxPerTransaction: 10_000_000,
		LifetimeCap:       100_000_000,
	})
	require.NoError(t, err)
	require.NotNil(t, sub.TestClockID)
	return sub
}

func TestCreateClock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidClockName)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: strings.Repeat("x", 65)})
	assert.ErrorIs(t, err, domain.ErrInvalidClockName)

	tc, err := svc.Create(ctx, domain.CreateRequest{Name: "renewal sim"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, tc.Status)
	assert.WithinDuration(t, time.Now().UTC(), tc.FrozenTime, 5*time.Second)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tc, err = svc.Create(ctx, domain.CreateRequest{Name: "fixed start", InitialTime: start})
	require.NoError(t, err)
	assert.True(t, tc.FrozenTime.Equal(start))

	clocks, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, clocks, 2)
}

func TestAdvanceValidation(t *testing.T) {
	svc, env := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, domain.CreateRequest{Name: "sim"})
	require.NoError(t, err)

	_, err = svc.Advance(ctx, tc.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAdvance)
	_, err = svc.Advance(ctx, tc.ID, -time.Hour)
	assert.ErrorIs(t, err, domain.ErrInvalidAdvance)
	_, err = svc.Advance(ctx, env.node.Generate(), time.Hour)
	assert.ErrorIs(t, err, domain.ErrTestClockNotFound)
}

func TestAdvanceSettlesPinnedSubscriptions(t *testing.T) {
	svc, env := newTestService(t)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tc, err := svc.Create(ctx, domain.CreateRequest{Name: "sim", InitialTime: start})
	require.NoError(t, err)
	sub := createPinnedSubscription(t, env, tc)

	// A production subscription stays out of the simulation.
	unpinned, err := env.subscriptions.Create(ctx, env.payer, subscriptiondomain.CreateRequest{
		MerchantID:        env.merchant.ID,
		MerchantName:      "Acme Streaming",
		Amount:            10_000_000,
		FrequencySeconds:  86_400,
		MaxPerTransaction: 10_000_000,
		LifetimeCap:       100_000_000,
	})
	require.NoError(t, err)

	// One hour short of the first cycle: nothing settles.
	result, err := svc.Advance(ctx, tc.ID, 23*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PaymentsExecuted)

	result, err = svc.Advance(ctx, tc.ID, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PaymentsExecuted)
	assert.Equal(t, 0, result.PaymentsFailed)

	target := start.Add(25 * time.Hour)
	assert.True(t, result.Clock.FrozenTime.Equal(target))
	assert.Equal(t, domain.StatusReady, result.Clock.Status)

	var stored subscriptiondomain.Subscription
	require.NoError(t, env.db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, int64(1), stored.PaymentCount)
	require.NotNil(t, stored.LastPayment)
	assert.WithinDuration(t, target, *stored.LastPayment, time.Second)
	assert.WithinDuration(t, target.Add(24*time.Hour), stored.NextPayment, time.Second)

	require.NoError(t, env.db.First(&stored, "id = ?", unpinned.ID).Error)
	assert.Equal(t, int64(0), stored.PaymentCount)
}

func TestAdvanceBillsOneCyclePerAdvance(t *testing.T) {
	svc, env := newTestService(t)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tc, err := svc.Create(ctx, domain.CreateRequest{Name: "sim", InitialTime: start})
	require.NoError(t, err)
	sub := createPinnedSubscription(t, env, tc)

	// The whole span settles at the target time, so a three day jump still
	// bills a daily subscription once and leaves it a full period out.
	result, err := svc.Advance(ctx, tc.ID, 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PaymentsExecuted)

	var stored subscriptiondomain.Subscription
	require.NoError(t, env.db.First(&stored, "id = ?", sub.ID).Error)
	assert.Equal(t, int64(1), stored.PaymentCount)
	assert.WithinDuration(t, start.Add(96*time.Hour), stored.NextPayment, time.Second)

	result, err = svc.Advance(ctx, tc.ID, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PaymentsExecuted)
}

func TestAdvanceCountsFailures(t *testing.T) {
	svc, env := newTestService(t)
	ctx := context.Background()

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tc, err := svc.Create(ctx, domain.CreateRequest{Name: "sim", InitialTime: start})
	require.NoError(t, err)
	createPinnedSubscription(t, env, tc)

	require.NoError(t, env.db.Model(&ledgerdomain.Account{}).
		Where("id = ?", env.payerAccount.ID).
		Update("balance", 1_000).Error)

	result, err := svc.Advance(ctx, tc.ID, 25*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, result.PaymentsExecuted)
	assert.Equal(t, 1, result.PaymentsFailed)
	assert.Equal(t, domain.StatusReady, result.Clock.Status)

	// The refusal flowed through the reporter like a production failure.
	var merch merchantdomain.Merchant
	require.NoError(t, env.db.First(&merch, "id = ?", env.merchant.ID).Error)
	assert.Equal(t, int64(1), merch.FailedTransactions)
}

func TestAdvanceReentrancy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, domain.CreateRequest{Name: "sim"})
	require.NoError(t, err)

	impl := svc.(*Service)
	require.NoError(t, impl.db.Model(&domain.TestClock{}).
		Where("id = ?", tc.ID).
		Update("status", domain.StatusAdvancing).Error)

	_, err = svc.Advance(ctx, tc.ID, time.Hour)
	assert.ErrorIs(t, err, domain.ErrAdvanceInProgress)
}

func TestDeleteClock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, domain.CreateRequest{Name: "sim"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, tc.ID))

	_, err = svc.Get(ctx, tc.ID)
	assert.ErrorIs(t, err, domain.ErrTestClockNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, tc.ID), domain.ErrTestClockNotFound)
}
