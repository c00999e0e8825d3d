package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gorm.io/gorm"

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
	testclockctx "github.com/pullpaylabs/pullpay/internal/testclock/context"
)

type frozenClock struct {
	now time.Time
}

func (c *frozenClock) Now(context.Context) time.Time { return c.now }

func (c *frozenClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	db            *gorm.DB
	clock         *frozenClock
	node          *snowflake.Node
	ledger        *ledgerservice.Service
	platform      *platformservice.Service
	subscriptions subscriptiondomain.Service

	merchant *merchantdomain.Merchant
}

func newTestScheduler(t *testing.T, schedCfg config.SchedulerConfig) (*Scheduler, *testEnv) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(
		&JobRun{},
		&subscriptiondomain.Subscription{},
		&platformdomain.State{},
		&merchantdomain.Merchant{}, &merchantdomain.RegistryState{}, &merchantdomain.Review{},
		&eventdomain.Event{},
		&ledgerdomain.Account{}, &ledgerdomain.Authorization{}, &ledgerdomain.Entry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := &frozenClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
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
	sealer, err := vault.NewFactory(vault.Config{Provider: "aes", Key: "scheduler-test-key"})
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

	sched := New(Params{
		Config:        config.Config{Scheduler: schedCfg},
		DB:            gdb,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         clk,
		Metrics:       metrics,
		Subscriptions: subSvc,
		Platform:      platformSvc,
		Events:        events,
	})

	env := &testEnv{
		db:            gdb,
		clock:         clk,
		node:          node,
		ledger:        ledgerSvc,
		platform:      platformSvc,
		subscriptions: subSvc,
	}

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
		DailyVolumeLimit: 1_000_000_000,
	})
	require.NoError(t, err)
	_, err = merchantSvc.InitializeRegistry(ctx, merchantdomain.InitializeRegistryRequest{
		TreasuryAccountID: feeAccount.ID,
		PremiumBadgePrice: 50_000_000,
	})
	require.NoError(t, err)

	_, err = ledgerSvc.CreateAccount(ctx, ledgerdomain.CreateAccountRequest{
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

	return sched, env
}

func fundPayer(t *testing.T, env *testEnv, owner string, amount int64) {
	t.Helper()
	account, err := env.ledger.CreateAccount(context.Background(), ledgerdomain.CreateAccountRequest{
		OwnerAccount: owner, Asset: "USDC",
	})
	require.NoError(t, err)
	if amount > 0 {
		_, err = env.ledger.Credit(context.Background(), account.ID.String(), amount, "test funding")
		require.NoError(t, err)
	}
}

func openSubscription(t *testing.T, env *testEnv, ctx context.Context, payer string) *subscriptiondomain.Subscription {
	t.Helper()
	sub, err := env.subscriptions.Create(ctx, payer, subscriptiondomain.CreateRequest{
		MerchantID:        env.merchant.ID,
		MerchantName:      "Acme Streaming",
		Amount:            10_000_000,
		FrequencySeconds:  86_400,
		MaxPerTransaction: 10_000_000,
		LifetimeCap:       100_000_000,
	})
	require.NoError(t, err)
	return sub
}

func lastJobRun(t *testing.T, env *testEnv, name string) *JobRun {
	t.Helper()
	var run JobRun
	require.NoError(t, env.db.Where("job_name = ?", name).Order("id DESC").First(&run).Error)
	return &run
}

func paymentCount(t *testing.T, env *testEnv, id snowflake.ID) int64 {
	t.Helper()
	var sub subscriptiondomain.Subscription
	require.NoError(t, env.db.First(&sub, "id = ?", id).Error)
	return sub.PaymentCount
}

func TestExecuteDuePaymentsJob(t *testing.T) {
	sched, env := newTestScheduler(t, config.SchedulerConfig{BatchSize: 100})
	ctx := context.Background()

	fundPayer(t, env, "payer-1", 100_000_000)
	fundPayer(t, env, "payer-2", 100_000_000)
	first := openSubscription(t, env, ctx, "payer-1")
	second := openSubscription(t, env, ctx, "payer-2")

	// Nothing due yet.
	require.NoError(t, sched.ExecuteDuePaymentsJob(ctx))
	run := lastJobRun(t, env, "execute_due_payments")
	assert.Equal(t, 0, run.Processed)
	require.NotNil(t, run.FinishedAt)

	env.clock.advance(24*time.Hour + time.Minute)
	require.NoError(t, sched.ExecuteDuePaymentsJob(ctx))

	run = lastJobRun(t, env, "execute_due_payments")
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 0, run.Failed)
	assert.Nil(t, run.LastError)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, int64(1), paymentCount(t, env, first.ID))
	assert.Equal(t, int64(1), paymentCount(t, env, second.ID))

	// The swept subscriptions are a full period out again.
	require.NoError(t, sched.ExecuteDuePaymentsJob(ctx))
	run = lastJobRun(t, env, "execute_due_payments")
	assert.Equal(t, 0, run.Processed)
}

func TestSweepSkipsWhileEmergencyPaused(t *testing.T) {
	sched, env := newTestScheduler(t, config.SchedulerConfig{BatchSize: 100})
	ctx := context.Background()

	fundPayer(t, env, "payer-1", 100_000_000)
	sub := openSubscription(t, env, ctx, "payer-1")
	env.clock.advance(25 * time.Hour)

	_, err := env.platform.SetEmergencyPause(ctx, "platform-admin", true)
	require.NoError(t, err)

	require.NoError(t, sched.ExecuteDuePaymentsJob(ctx))
	assert.Equal(t, int64(0), paymentCount(t, env, sub.ID))

	_, err = env.platform.SetEmergencyPause(ctx, "platform-admin", false)
	require.NoError(t, err)
	require.NoError(t, sched.ExecuteDuePaymentsJob(ctx))
	assert.Equal(t, int64(1), paymentCount(t, env, sub.ID))
}

func TestSweepCountsFailuresAndContinues(t *testing.T) {
	sched, env := newTestScheduler(t, config.SchedulerConfig{BatchSize: 100})
	ctx := context.Background()

	fundPayer(t, env, "broke-payer", 1_000)
	fundPayer(t, env, "payer-2", 100_000_000)
	broke := openSubscription(t, env, ctx, "broke-payer")
	funded := openSubscription(t, env, ctx, "payer-2")

	env.clock.advance(25 * time.Hour)
	require.NoError(t, sched.ExecuteDuePaymentsJob(ctx))

	run := lastJobRun(t, env, "execute_due_payments")
	assert.Equal(t, 1, run.Processed)
	assert.Equal(t, 1, run.Failed)
	// A failed payment does not fail the job.
	assert.Nil(t, run.LastError)
	assert.Equal(t, int64(0), paymentCount(t, env, broke.ID))
	assert.Equal(t, int64(1), paymentCount(t, env, funded.ID))
}

func TestSweepIgnoresPinnedSubscriptions(t *testing.T) {
	sched, env := newTestScheduler(t, config.SchedulerConfig{BatchSize: 100})
	ctx := context.Background()

	fundPayer(t, env, "payer-1", 100_000_000)
	pinnedCtx := testclockctx.WithTestClock(ctx, env.node.Generate(), env.clock.now)
	pinned := openSubscription(t, env, pinnedCtx, "payer-1")

	env.clock.advance(25 * time.Hour)
	require.NoError(t, sched.ExecuteDuePaymentsJob(ctx))
	assert.Equal(t, int64(0), paymentCount(t, env, pinned.ID))
}

func TestEventRetentionJob(t *testing.T) {
	sched, env := newTestScheduler(t, config.SchedulerConfig{BatchSize: 100, EventRetentionDays: 30})
	ctx := context.Background()

	seedEvent := func(age time.Duration) {
		evt := &eventdomain.Event{
			ID:         ulid.Make().String(),
			Type:       "platform.initialized",
			EntityType: "platform",
			EntityID:   "1",
			CreatedAt:  env.clock.now.Add(-age),
		}
		require.NoError(t, env.db.Create(evt).Error)
	}
	seedEvent(60 * 24 * time.Hour)
	seedEvent(45 * 24 * time.Hour)
	seedEvent(5 * 24 * time.Hour)

	require.NoError(t, sched.EventRetentionJob(ctx))

	var remaining int64
	require.NoError(t, env.db.Model(&eventdomain.Event{}).Count(&remaining).Error)
	// The two aged rows are gone, the fresh one and the bootstrap events stay.
	var fresh int64
	require.NoError(t, env.db.Model(&eventdomain.Event{}).
		Where("created_at < ?", env.clock.now.AddDate(0, 0, -30)).
		Count(&fresh).Error)
	assert.Equal(t, int64(0), fresh)
	assert.Greater(t, remaining, int64(0))

	run := lastJobRun(t, env, "event_retention")
	assert.Equal(t, 2, run.Processed)
	require.NotNil(t, run.FinishedAt)
}

func TestEventRetentionDisabled(t *testing.T) {
	sched, env := newTestScheduler(t, config.SchedulerConfig{BatchSize: 100})
	ctx := context.Background()

	var before int64
	require.NoError(t, env.db.Model(&eventdomain.Event{}).Count(&before).Error)
	require.NoError(t, sched.EventRetentionJob(ctx))

	var after int64
	require.NoError(t, env.db.Model(&eventdomain.Event{}).Count(&after).Error)
	assert.Equal(t, before, after)
}
