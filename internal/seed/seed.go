// Package seed provisions the rows a fresh deployment needs before the
// first request: core ledger accounts, the platform and registry
// singletons, the bootstrap admin key and the baseline access policies.
// Every step is find-or-create, so running it on every boot is safe.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
	"github.com/pullpaylabs/pullpay/internal/authorization"
	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/internal/config"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	platformdomain "github.com/pullpaylabs/pullpay/internal/platform/domain"
)

const (
	feeAccountOwner      = "platform-fees"
	treasuryAccountOwner = "registry-treasury"
	adminKeyName         = "bootstrap-admin"

	demoPayerOwner          = "demo-payer"
	demoMerchantOwner       = "demo-merchant"
	demoMerchantName        = "Demo Coffee"
	demoPayerBalance  int64 = 1_000_000_000
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Enforcer *casbin.Enforcer
}

// Run executes the bootstrap. Serve entrypoints invoke it after the
// schema gate has admitted the database.
func Run(p Params) error {
	log := p.Log.Named("seed")
	ctx := context.Background()

	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := p.Clock.Now(ctx)
		asset := p.Config.Platform.Asset

		feeAccount, err := ensureAccount(ctx, tx, p.GenID, feeAccountOwner, asset, now)
		if err != nil {
			return err
		}
		treasury, err := ensureAccount(ctx, tx, p.GenID, treasuryAccountOwner, asset, now)
		if err != nil {
			return err
		}
		if err := ensurePlatformState(ctx, tx, p.Config.Platform, feeAccount.ID, now); err != nil {
			return err
		}
		if err := ensureRegistryState(ctx, tx, p.Config.Platform, treasury.ID, now); err != nil {
			return err
		}
		return ensureAdminKey(ctx, tx, p, now, log)
	})
	if err != nil {
		return err
	}

	if err := authorization.EnsureDefaultPolicies(p.Enforcer); err != nil {
		return err
	}

	if p.Config.Seed.Demo {
		return ensureDemoData(ctx, p, log)
	}
	return nil
}

func ensureAccount(ctx context.Context, tx *gorm.DB, node *snowflake.Node, owner, asset string, now time.Time) (*ledgerdomain.Account, error) {
	var account ledgerdomain.Account
	err := tx.WithContext(ctx).
		Where("owner_account = ? AND asset = ?", owner, asset).
		First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	account = ledgerdomain.Account{
		ID:           node.Generate(),
		OwnerAccount: owner,
		Asset:        asset,
		Balance:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func ensurePlatformState(ctx context.Context, tx *gorm.DB, cfg config.PlatformConfig, feeAccountID snowflake.ID, now time.Time) error {
	var state platformdomain.State
	err := tx.WithContext(ctx).First(&state, "id = ?", platformdomain.SingletonID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	state = platformdomain.State{
		ID:               platformdomain.SingletonID,
		AdminAccount:     cfg.AdminAccount,
		FeeAccountID:     feeAccountID,
		FeeBasisPoints:   cfg.FeeBasisPoints,
		MinFee:           cfg.MinFee,
		MaxFee:           cfg.MaxFee,
		DailyVolumeLimit: cfg.DailyVolumeLimit,
		LastVolumeReset:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return tx.WithContext(ctx).Create(&state).Error
}

func ensureRegistryState(ctx context.Context, tx *gorm.DB, cfg config.PlatformConfig, treasuryID snowflake.ID, now time.Time) error {
	var state merchantdomain.RegistryState
	err := tx.WithContext(ctx).First(&state, "id = ?", merchantdomain.SingletonID).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	state = merchantdomain.RegistryState{
		ID:                merchantdomain.SingletonID,
		TreasuryAccountID: treasuryID,
		PremiumBadgePrice: cfg.BadgePrice,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return tx.WithContext(ctx).Create(&state).Error
}

func ensureAdminKey(ctx context.Context, tx *gorm.DB, p Params, now time.Time, log *zap.Logger) error {
	var existing apikeydomain.APIKey
	err := tx.WithContext(ctx).Where("name = ?", adminKeyName).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	raw := strings.TrimSpace(p.Config.Seed.AdminAPIKey)
	generated := false
	if raw == "" {
		raw, err = apikeydomain.NewRawKey()
		if err != nil {
			return err
		}
		generated = true
	}

	key := apikeydomain.APIKey{
		ID:        p.GenID.Generate(),
		Name:      adminKeyName,
		KeyHash:   apikeydomain.HashAPIKey(raw),
		Role:      apikeydomain.RoleAdmin,
		Identity:  p.Config.Platform.AdminAccount,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&key).Error; err != nil {
		return err
	}

	if generated {
		// Shown exactly once; only the hash is stored.
		log.Warn("generated bootstrap admin api key", zap.String("api_key", raw))
	} else {
		log.Info("bootstrap admin api key installed from config")
	}
	return nil
}

// ensureDemoData gives a fresh development install something to poke at:
// a funded payer wallet and a verified merchant.
func ensureDemoData(ctx context.Context, p Params, log *zap.Logger) error {
	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := p.Clock.Now(ctx)
		asset := p.Config.Platform.Asset

		payer, err := ensureAccount(ctx, tx, p.GenID, demoPayerOwner, asset, now)
		if err != nil {
			return err
		}
		if payer.Balance == 0 {
			if err := tx.WithContext(ctx).Model(&ledgerdomain.Account{}).
				Where("id = ?", payer.ID).
				Updates(map[string]any{"balance": demoPayerBalance, "updated_at": now}).Error; err != nil {
				return err
			}
			entry := ledgerdomain.Entry{
				ID:          p.GenID.Generate(),
				ToAccountID: payer.ID,
				Amount:      demoPayerBalance,
				Kind:        ledgerdomain.EntryKindCredit,
				Memo:        "demo bootstrap",
				CreatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
				return err
			}
		}

		if _, err := ensureAccount(ctx, tx, p.GenID, demoMerchantOwner, asset, now); err != nil {
			return err
		}
		if err := ensureDemoMerchant(ctx, tx, p.GenID, now); err != nil {
			return err
		}

		log.Info("demo data ready",
			zap.String("payer", demoPayerOwner),
			zap.String("merchant", demoMerchantOwner))
		return nil
	})
}

func ensureDemoMerchant(ctx context.Context, tx *gorm.DB, node *snowflake.Node, now time.Time) error {
	var merchant merchantdomain.Merchant
	err := tx.WithContext(ctx).
		Where("owner_account = ?", demoMerchantOwner).
		First(&merchant).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	merchant = merchantdomain.Merchant{
		ID:               node.Generate(),
		OwnerAccount:     demoMerchantOwner,
		BusinessName:     demoMerchantName,
		Slug:             slug.Make(demoMerchantName),
		Category:         "food",
		VerificationTier: merchantdomain.TierVerified,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.WithContext(ctx).Create(&merchant).Error; err != nil {
		return err
	}

	// Keep the registry counters honest about the direct insert.
	return tx.WithContext(ctx).Model(&merchantdomain.RegistryState{}).
		Where("id = ?", merchantdomain.SingletonID).
		Updates(map[string]any{
			"total_merchants":    gorm.Expr("total_merchants + 1"),
			"verified_merchants": gorm.Expr("verified_merchants + 1"),
			"updated_at":         now,
		}).Error
}
