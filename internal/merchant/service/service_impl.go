package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/internal/config"
	eventdomain "github.com/pullpaylabs/pullpay/internal/event/domain"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	"github.com/pullpaylabs/pullpay/internal/merchant/domain"
	"github.com/pullpaylabs/pullpay/internal/observability"
	"github.com/pullpaylabs/pullpay/internal/security/vault"
	"github.com/pullpaylabs/pullpay/pkg/db"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
	"github.com/pullpaylabs/pullpay/pkg/safemath"
)

type ServiceParam struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Events   eventdomain.Recorder
	Ledger   ledgerdomain.Adapter
	Accounts ledgerdomain.Service
	Vault    vault.Provider
	Evidence domain.EvidenceSource
	Redis    *redis.Client `optional:"true"`
	Metrics  *observability.Metrics
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	events   eventdomain.Recorder
	ledger   ledgerdomain.Adapter
	accounts ledgerdomain.Service
	vault    vault.Provider
	evidence domain.EvidenceSource
	redis    *redis.Client
	metrics  *observability.Metrics
	asset    string
	cacheTTL time.Duration
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("merchant.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		events:   p.Events,
		ledger:   p.Ledger,
		accounts: p.Accounts,
		vault:    p.Vault,
		evidence: p.Evidence,
		redis:    p.Redis,
		metrics:  p.Metrics,
		asset:    p.Config.Platform.Asset,
		cacheTTL: p.Config.Redis.CacheTTL,
	}
}

var (
	_ domain.Service             = (*Service)(nil)
	_ domain.TransactionReporter = (*Service)(nil)
)

func validateBusinessName(name string) error {
	if len(name) < 1 || len(name) > 64 {
		return domain.ErrInvalidBusinessName
	}
	return nil
}

func validateCategory(category string) error {
	if len(category) > 32 {
		return domain.ErrInvalidCategory
	}
	return nil
}

func validateWebhookURL(url string) error {
	if len(url) > 128 {
		return domain.ErrInvalidWebhookURL
	}
	return nil
}

func (s *Service) InitializeRegistry(ctx context.Context, req domain.InitializeRegistryRequest) (*domain.RegistryState, error) {
	if req.PremiumBadgePrice <= 0 {
		return nil, domain.ErrInvalidBadgePrice
	}

	now := s.clock.Now(ctx)
	state := &domain.RegistryState{
		ID:                domain.SingletonID,
		TreasuryAccountID: req.TreasuryAccountID,
		PremiumBadgePrice: req.PremiumBadgePrice,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindRegistry(ctx, tx)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrRegistryAlreadyInitialized
		}
		if err := s.repo.CreateRegistry(ctx, tx, state); err != nil {
			if db.IsDuplicate(err) {
				return domain.ErrRegistryAlreadyInitialized
			}
			return err
		}
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "registry.initialized",
			EntityType: "registry",
			EntityID:   "1",
			Payload: map[string]any{
				"treasury_account_id": state.TreasuryAccountID.String(),
				"premium_badge_price": state.PremiumBadgePrice,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("registry initialized", zap.Int64("premium_badge_price", state.PremiumBadgePrice))
	return state, nil
}

func (s *Service) GetRegistry(ctx context.Context) (*domain.RegistryState, error) {
	state, err := s.repo.FindRegistry(ctx, nil)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, domain.ErrRegistryNotInitialized
	}
	return state, nil
}

func (s *Service) Apply(ctx context.Context, owner string, req domain.ApplyRequest) (*domain.Merchant, error) {
	if err := validateBusinessName(req.BusinessName); err != nil {
		return nil, err
	}
	if err := validateCategory(req.Category); err != nil {
		return nil, err
	}
	if err := validateWebhookURL(req.WebhookURL); err != nil {
		return nil, err
	}

	webhook := ""
	if req.WebhookURL != "" {
		sealed, err := s.vault.Encrypt([]byte(req.WebhookURL))
		if err != nil {
			return nil, err
		}
		webhook = string(sealed)
	}

	var merchant *domain.Merchant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		registry, err := s.repo.FindRegistry(ctx, tx)
		if err != nil {
			return err
		}
		if registry == nil {
			return domain.ErrRegistryNotInitialized
		}
		existing, err := s.repo.FindMerchantByOwner(ctx, tx, owner)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrMerchantExists
		}

		now := s.clock.Now(ctx)
		id := s.genID.Generate()
		merchantSlug, err := s.uniqueSlug(ctx, tx, req.BusinessName, id)
		if err != nil {
			return err
		}

		merchant = &domain.Merchant{
			ID:               id,
			OwnerAccount:     owner,
			BusinessName:     req.BusinessName,
			Slug:             merchantSlug,
			Category:         req.Category,
			WebhookURL:       webhook,
			VerificationTier: domain.TierUnverified,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.repo.CreateMerchant(ctx, tx, merchant); err != nil {
			if db.IsDuplicate(err) {
				return domain.ErrMerchantExists
			}
			return err
		}

		registry.TotalMerchants, err = safemath.CheckedAdd(registry.TotalMerchants, 1)
		if err != nil {
			return err
		}
		registry.UpdatedAt = now
		if err := s.repo.SaveRegistry(ctx, tx, registry); err != nil {
			return err
		}

		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "merchant.applied",
			EntityType: "merchant",
			EntityID:   merchant.ID.String(),
			Payload: map[string]any{
				"owner_account": owner,
				"business_name": merchant.BusinessName,
				"slug":          merchant.Slug,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("merchant applied",
		zap.Int64("merchant_id", merchant.ID.Int64()),
		zap.String("slug", merchant.Slug))
	merchant.WebhookURL = req.WebhookURL
	return merchant, nil
}

// uniqueSlug derives the URL slug from the business name and disambiguates
// with the merchant id when the name is already taken.
func (s *Service) uniqueSlug(ctx context.Context, tx *gorm.DB, name string, id snowflake.ID) (string, error) {
	base := slug.Make(name)
	taken, err := s.repo.SlugTaken(ctx, tx, base)
	if err != nil {
		return "", err
	}
	if taken {
		return fmt.Sprintf("%s-%s", base, id.String()), nil
	}
	return base, nil
}

func (s *Service) Approve(ctx context.Context, merchantID snowflake.ID, tier domain.Tier) (*domain.Merchant, error) {
	if !tier.Valid() {
		return nil, domain.ErrInvalidTier
	}
	if tier == domain.TierCommunity {
		return nil, domain.ErrCannotSetCommunityTier
	}

	var merchant *domain.Merchant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		merchant, err = s.mustFindMerchant(ctx, tx, merchantID)
		if err != nil {
			return err
		}

		now := s.clock.Now(ctx)
		// Only a first approval grows the verified count; re-approving a
		// suspended or community merchant does not count twice.
		if tier == domain.TierVerified && merchant.VerificationTier == domain.TierUnverified {
			registry, err := s.repo.FindRegistry(ctx, tx)
			if err != nil {
				return err
			}
			if registry == nil {
				return domain.ErrRegistryNotInitialized
			}
			registry.VerifiedMerchants, err = safemath.CheckedAdd(registry.VerifiedMerchants, 1)
			if err != nil {
				return err
			}
			registry.UpdatedAt = now
			if err := s.repo.SaveRegistry(ctx, tx, registry); err != nil {
				return err
			}
		}

		if tier == domain.TierSuspended {
			merchant.PremiumBadgeActive = false
		} else {
			merchant.SuspensionReason = nil
		}
		merchant.VerificationTier = tier
		merchant.UpdatedAt = now
		if err := s.repo.SaveMerchant(ctx, tx, merchant); err != nil {
			return err
		}

		s.metrics.TierTransitions.WithLabelValues(string(tier)).Inc()
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "merchant.approved",
			EntityType: "merchant",
			EntityID:   merchant.ID.String(),
			Payload:    map[string]any{"tier": string(tier)},
		})
	})
	if err != nil {
		return nil, err
	}

	s.cacheInvalidate(ctx, merchantID)
	s.log.Info("merchant tier set",
		zap.Int64("merchant_id", merchantID.Int64()),
		zap.String("tier", string(tier)))
	return merchant, nil
}

func (s *Service) Suspend(ctx context.Context, merchantID snowflake.ID, reason string) (*domain.Merchant, error) {
	if len(reason) < 1 || len(reason) > 256 {
		return nil, domain.ErrInvalidSuspensionReason
	}

	var merchant *domain.Merchant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		merchant, err = s.mustFindMerchant(ctx, tx, merchantID)
		if err != nil {
			return err
		}

		merchant.VerificationTier = domain.TierSuspended
		merchant.SuspensionReason = &reason
		merchant.PremiumBadgeActive = false
		merchant.UpdatedAt = s.clock.Now(ctx)
		if err := s.repo.SaveMerchant(ctx, tx, merchant); err != nil {
			return err
		}

		s.metrics.TierTransitions.WithLabelValues(string(domain.TierSuspended)).Inc()
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "merchant.suspended",
			EntityType: "merchant",
			EntityID:   merchant.ID.String(),
			Payload:    map[string]any{"reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	s.cacheInvalidate(ctx, merchantID)
	s.log.Warn("merchant suspended",
		zap.Int64("merchant_id", merchantID.Int64()),
		zap.String("reason", reason))
	return merchant, nil
}

func (s *Service) SubscribePremiumBadge(ctx context.Context, owner string, merchantID snowflake.ID) (*domain.Merchant, error) {
	account, err := s.accounts.GetAccountByOwner(ctx, owner, s.asset)
	if err != nil {
		return nil, err
	}

	var merchant *domain.Merchant
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		merchant, err = s.mustFindMerchant(ctx, tx, merchantID)
		if err != nil {
			return err
		}
		if merchant.OwnerAccount != owner {
			return domain.ErrUnauthorizedMerchant
		}
		if merchant.VerificationTier != domain.TierVerified && merchant.VerificationTier != domain.TierCommunity {
			return domain.ErrMustBeVerified
		}

		registry, err := s.repo.FindRegistry(ctx, tx)
		if err != nil {
			return err
		}
		if registry == nil {
			return domain.ErrRegistryNotInitialized
		}

		if _, err := s.ledger.Transfer(ctx, tx, ledgerdomain.TransferRequest{
			FromAccountID: account.ID,
			ToAccountID:   registry.TreasuryAccountID,
			Amount:        registry.PremiumBadgePrice,
			Kind:          ledgerdomain.EntryKindBadge,
			Memo:          "premium badge subscription",
		}); err != nil {
			return err
		}

		now := s.clock.Now(ctx)
		expires := now.Add(domain.BadgeDuration)
		merchant.PremiumBadgeActive = true
		merchant.PremiumBadgeExpires = &expires
		merchant.UpdatedAt = now
		if err := s.repo.SaveMerchant(ctx, tx, merchant); err != nil {
			return err
		}

		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "merchant.badge_subscribed",
			EntityType: "merchant",
			EntityID:   merchant.ID.String(),
			Payload: map[string]any{
				"price":   registry.PremiumBadgePrice,
				"expires": expires,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.cacheInvalidate(ctx, merchantID)
	s.log.Info("premium badge subscribed", zap.Int64("merchant_id", merchantID.Int64()))
	return merchant, nil
}

func (s *Service) UpdateInfo(ctx context.Context, owner string, merchantID snowflake.ID, req domain.UpdateInfoRequest) (*domain.Merchant, error) {
	if req.Empty() {
		return nil, domain.ErrNoUpdateProvided
	}
	if req.BusinessName != nil {
		if err := validateBusinessName(*req.BusinessName); err != nil {
			return nil, err
		}
	}
	if req.Category != nil {
		if err := validateCategory(*req.Category); err != nil {
			return nil, err
		}
	}
	if req.WebhookURL != nil {
		if err := validateWebhookURL(*req.WebhookURL); err != nil {
			return nil, err
		}
	}

	var merchant *domain.Merchant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		merchant, err = s.mustFindMerchant(ctx, tx, merchantID)
		if err != nil {
			return err
		}
		if merchant.OwnerAccount != owner {
			return domain.ErrUnauthorizedMerchant
		}

		if req.BusinessName != nil {
			// The slug is a published identifier; renaming keeps it stable.
			merchant.BusinessName = *req.BusinessName
		}
		if req.Category != nil {
			merchant.Category = *req.Category
		}
		if req.WebhookURL != nil {
			if *req.WebhookURL == "" {
				merchant.WebhookURL = ""
			} else {
				sealed, err := s.vault.Encrypt([]byte(*req.WebhookURL))
				if err != nil {
					return err
				}
				merchant.WebhookURL = string(sealed)
			}
		}

		merchant.UpdatedAt = s.clock.Now(ctx)
		if err := s.repo.SaveMerchant(ctx, tx, merchant); err != nil {
			return err
		}

		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "merchant.updated",
			EntityType: "merchant",
			EntityID:   merchant.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.cacheInvalidate(ctx, merchantID)
	return s.withDecryptedWebhook(merchant)
}

func (s *Service) Get(ctx context.Context, merchantID snowflake.ID) (*domain.Merchant, error) {
	if cached := s.cacheGet(ctx, merchantID); cached != nil {
		return s.withDecryptedWebhook(cached)
	}

	merchant, err := s.mustFindMerchant(ctx, nil, merchantID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, merchant)
	return s.withDecryptedWebhook(merchant)
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter, page pagination.Params) ([]domain.Merchant, int64, error) {
	merchants, total, err := s.repo.ListMerchants(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	// Webhook URLs are owner data; listings never carry them.
	for i := range merchants {
		merchants[i].WebhookURL = ""
	}
	return merchants, total, nil
}

func (s *Service) SubmitReview(ctx context.Context, reviewer string, req domain.SubmitReviewRequest) (*domain.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, domain.ErrInvalidRating
	}
	if len(req.Comment) < 1 || len(req.Comment) > 256 {
		return nil, domain.ErrInvalidComment
	}

	var review *domain.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		merchant, err := s.mustFindMerchant(ctx, tx, req.MerchantID)
		if err != nil {
			return err
		}

		evidence, err := s.evidence.Evidence(ctx, req.SubscriptionID, reviewer, req.MerchantID)
		if err != nil {
			return err
		}
		now := s.clock.Now(ctx)
		if err := checkReviewGate(evidence, now); err != nil {
			return err
		}

		review = &domain.Review{
			ID:              s.genID.Generate(),
			MerchantID:      merchant.ID,
			ReviewerAccount: reviewer,
			Rating:          req.Rating,
			Comment:         req.Comment,
			SubscriptionID:  evidence.SubscriptionID,
			CreatedAt:       now,
		}
		if err := s.repo.CreateReview(ctx, tx, review); err != nil {
			if db.IsDuplicate(err) {
				return domain.ErrDuplicateReview
			}
			return err
		}

		if err := applyScoreDelta(merchant, domain.ReviewScoreDelta(req.Rating)); err != nil {
			return err
		}
		if err := s.applyTierRules(ctx, tx, merchant); err != nil {
			return err
		}
		merchant.UpdatedAt = now
		if err := s.repo.SaveMerchant(ctx, tx, merchant); err != nil {
			return err
		}

		s.metrics.ReviewsAccepted.Inc()
		return s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "review.submitted",
			EntityType: "merchant",
			EntityID:   merchant.ID.String(),
			Payload: map[string]any{
				"review_id": review.ID.String(),
				"rating":    req.Rating,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.cacheInvalidate(ctx, req.MerchantID)
	s.log.Info("review submitted",
		zap.Int64("merchant_id", req.MerchantID.Int64()),
		zap.Int("rating", req.Rating))
	return review, nil
}

// checkReviewGate runs the sybil-resistance checks in order, most
// fundamental first, so a caller failing several gets the earliest error.
func checkReviewGate(evidence *domain.Evidence, now time.Time) error {
	if evidence == nil || !evidence.Active {
		return domain.ErrNoActiveSubscription
	}
	if evidence.PaymentCount < domain.ReviewMinPayments {
		return domain.ErrInsufficientPaymentHistory
	}
	if evidence.TotalPaid < domain.ReviewMinTotalPaid {
		return domain.ErrInsufficientTotalPaid
	}
	if evidence.CreatedAt.After(now.Add(-domain.ReviewMinAge)) {
		return domain.ErrSubscriptionTooNew
	}
	return nil
}

func (s *Service) ListReviews(ctx context.Context, merchantID snowflake.ID, page pagination.Params) ([]domain.Review, int64, error) {
	if _, err := s.mustFindMerchant(ctx, nil, merchantID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListReviews(ctx, merchantID, page)
}

// Record implements domain.TransactionReporter. It runs inside the billing
// engine's transaction and fails closed unless the cited subscription exists
// and belongs to the reported merchant.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, report domain.TransactionReport) error {
	var cited int64
	err := tx.WithContext(ctx).Table("subscriptions").
		Where("id = ? AND merchant_id = ?", report.SubscriptionID, report.MerchantID).
		Count(&cited).Error
	if err != nil {
		return err
	}
	if cited == 0 {
		return domain.ErrUnauthorizedReport
	}

	merchant, err := s.mustFindMerchant(ctx, tx, report.MerchantID)
	if err != nil {
		return err
	}

	now := s.clock.Now(ctx)
	if err := s.expireBadgeIfDue(ctx, tx, merchant, now); err != nil {
		return err
	}

	if report.Success {
		if err := applyScoreDelta(merchant, domain.ScoreSuccessDelta); err != nil {
			return err
		}
		if merchant.TotalTransactions, err = safemath.CheckedAdd(merchant.TotalTransactions, 1); err != nil {
			return err
		}
		if merchant.TotalVolume, err = safemath.CheckedAdd(merchant.TotalVolume, report.Amount); err != nil {
			return err
		}
	} else {
		merchant.CommunityScore = safemath.SaturatingSub(merchant.CommunityScore, domain.ScoreFailureDelta)
		if merchant.FailedTransactions, err = safemath.CheckedAdd(merchant.FailedTransactions, 1); err != nil {
			return err
		}
	}

	if err := s.applyTierRules(ctx, tx, merchant); err != nil {
		return err
	}
	merchant.UpdatedAt = now
	if err := s.repo.SaveMerchant(ctx, tx, merchant); err != nil {
		return err
	}

	s.cacheInvalidate(ctx, merchant.ID)
	return nil
}

func applyScoreDelta(m *domain.Merchant, delta int64) error {
	if delta >= 0 {
		score, err := safemath.CheckedAdd(m.CommunityScore, delta)
		if err != nil {
			return err
		}
		m.CommunityScore = score
		return nil
	}
	m.CommunityScore = safemath.SaturatingSub(m.CommunityScore, -delta)
	return nil
}

// applyTierRules runs after every score mutation: the promotion check first,
// then the suspension check, so a merchant crossing both ends up suspended.
func (s *Service) applyTierRules(ctx context.Context, tx *gorm.DB, m *domain.Merchant) error {
	if m.VerificationTier == domain.TierVerified &&
		m.TotalTransactions >= domain.CommunityMinTransactions &&
		m.CommunityScore >= domain.CommunityMinScore &&
		m.FailedTransactions < domain.CommunityMaxFailed {
		m.VerificationTier = domain.TierCommunity
		s.metrics.TierTransitions.WithLabelValues(string(domain.TierCommunity)).Inc()
		s.log.Info("merchant promoted to community tier", zap.Int64("merchant_id", m.ID.Int64()))
		if err := s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "merchant.promoted",
			EntityType: "merchant",
			EntityID:   m.ID.String(),
			Payload:    map[string]any{"tier": string(domain.TierCommunity)},
		}); err != nil {
			return err
		}
	}

	if m.CommunityScore < domain.SuspensionFloor && m.VerificationTier != domain.TierSuspended {
		reason := "community score below suspension floor"
		m.VerificationTier = domain.TierSuspended
		m.SuspensionReason = &reason
		m.PremiumBadgeActive = false
		s.metrics.TierTransitions.WithLabelValues(string(domain.TierSuspended)).Inc()
		s.log.Warn("merchant auto-suspended",
			zap.Int64("merchant_id", m.ID.Int64()),
			zap.Int64("community_score", m.CommunityScore))
		if err := s.events.Record(ctx, tx, eventdomain.NewEvent{
			Type:       "merchant.auto_suspended",
			EntityType: "merchant",
			EntityID:   m.ID.String(),
			Payload:    map[string]any{"community_score": m.CommunityScore},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) expireBadgeIfDue(ctx context.Context, tx *gorm.DB, m *domain.Merchant, now time.Time) error {
	if !m.PremiumBadgeActive || m.PremiumBadgeExpires == nil || !now.After(*m.PremiumBadgeExpires) {
		return nil
	}
	m.PremiumBadgeActive = false
	return s.events.Record(ctx, tx, eventdomain.NewEvent{
		Type:       "merchant.badge_expired",
		EntityType: "merchant",
		EntityID:   m.ID.String(),
	})
}

func (s *Service) mustFindMerchant(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Merchant, error) {
	merchant, err := s.repo.FindMerchant(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if merchant == nil {
		return nil, domain.ErrMerchantNotFound
	}
	return merchant, nil
}

func (s *Service) withDecryptedWebhook(m *domain.Merchant) (*domain.Merchant, error) {
	if m.WebhookURL == "" {
		return m, nil
	}
	plain, err := s.vault.Decrypt([]byte(m.WebhookURL))
	if err != nil {
		return nil, err
	}
	out := *m
	out.WebhookURL = string(plain)
	return &out, nil
}

func cacheKey(id snowflake.ID) string {
	return fmt.Sprintf("pullpay:merchant:%s", id.String())
}

// The cache is a read accelerator only: every redis failure degrades to the
// database.
func (s *Service) cacheGet(ctx context.Context, id snowflake.ID) *domain.Merchant {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Debug("merchant cache read failed", zap.Error(err))
		}
		return nil
	}
	var m domain.Merchant
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return &m
}

func (s *Service) cacheSet(ctx context.Context, m *domain.Merchant) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(m.ID), raw, s.cacheTTL).Err(); err != nil {
		s.log.Debug("merchant cache write failed", zap.Error(err))
	}
}

func (s *Service) cacheInvalidate(ctx context.Context, id snowflake.ID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(id)).Err(); err != nil {
		s.log.Debug("merchant cache invalidate failed", zap.Error(err))
	}
}
