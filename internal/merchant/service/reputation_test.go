package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	eventdomain "github.com/pullpaylabs/pullpay/internal/event/domain"
	"github.com/pullpaylabs/pullpay/internal/merchant/domain"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

func seedSubscriptionRow(t *testing.T, env *testEnv, subID, merchantID snowflake.ID) {
	t.Helper()
	require.NoError(t, env.db.Exec(
		"INSERT INTO subscriptions (id, merchant_id) VALUES (?, ?)",
		subID.Int64(), merchantID.Int64()).Error)
}

func report(svc *Service, env *testEnv, rep domain.TransactionReport) error {
	return env.db.Transaction(func(tx *gorm.DB) error {
		return svc.Record(context.Background(), tx, rep)
	})
}

func countEvents(t *testing.T, env *testEnv, eventType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&eventdomain.Event{}).
		Where("type = ?", eventType).Count(&n).Error)
	return n
}

func TestReporterRejectsUncitedSubscription(t *testing.T) {
	svc, env := newTestService(t, false)
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	other := applyMerchant(t, svc, "bob", "Other")
	seedSubscriptionRow(t, env, 1000, other.ID)

	err := report(svc, env, domain.TransactionReport{
		SubscriptionID: 999, MerchantID: m.ID, Amount: 1, Success: true,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedReport)

	// A real subscription row citing a different merchant is just as invalid.
	err = report(svc, env, domain.TransactionReport{
		SubscriptionID: 1000, MerchantID: m.ID, Amount: 1, Success: true,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedReport)

	got, err := svc.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CommunityScore)
	assert.Equal(t, int64(0), got.TotalTransactions)
}

func TestReporterDeltas(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	seedSubscriptionRow(t, env, 1000, m.ID)

	require.NoError(t, report(svc, env, domain.TransactionReport{
		SubscriptionID: 1000, MerchantID: m.ID, Amount: 2_500_000, Success: true,
	}))
	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.CommunityScore)
	assert.Equal(t, int64(1), got.TotalTransactions)
	assert.Equal(t, int64(2_500_000), got.TotalVolume)
	assert.Equal(t, int64(0), got.FailedTransactions)

	require.NoError(t, report(svc, env, domain.TransactionReport{
		SubscriptionID: 1000, MerchantID: m.ID, Amount: 2_500_000, Success: false,
	}))
	got, err = svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-15), got.CommunityScore)
	assert.Equal(t, int64(1), got.TotalTransactions)
	assert.Equal(t, int64(2_500_000), got.TotalVolume)
	assert.Equal(t, int64(1), got.FailedTransactions)
}

func TestCommunityPromotionOnHundredthTransaction(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	seedSubscriptionRow(t, env, 1000, m.ID)
	_, err := svc.Approve(ctx, m.ID, domain.TierVerified)
	require.NoError(t, err)

	for i := 0; i < 99; i++ {
		require.NoError(t, report(svc, env, domain.TransactionReport{
			SubscriptionID: 1000, MerchantID: m.ID, Amount: 1_000_000, Success: true,
		}))
	}
	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(990), got.CommunityScore)
	assert.Equal(t, int64(99), got.TotalTransactions)
	assert.Equal(t, domain.TierVerified, got.VerificationTier)

	require.NoError(t, report(svc, env, domain.TransactionReport{
		SubscriptionID: 1000, MerchantID: m.ID, Amount: 1_000_000, Success: true,
	}))
	got, err = svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.CommunityScore)
	assert.Equal(t, int64(100), got.TotalTransactions)
	assert.Equal(t, domain.TierCommunity, got.VerificationTier)
	assert.Equal(t, int64(1), countEvents(t, env, "merchant.promoted"))
}

func TestPromotionBlockedByFailures(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	seedSubscriptionRow(t, env, 1000, m.ID)
	_, err := svc.Approve(ctx, m.ID, domain.TierVerified)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&domain.Merchant{}).Where("id = ?", m.ID).
		Updates(map[string]any{
			"total_transactions":  200,
			"community_score":     2000,
			"failed_transactions": 5,
		}).Error)

	require.NoError(t, report(svc, env, domain.TransactionReport{
		SubscriptionID: 1000, MerchantID: m.ID, Amount: 1, Success: true,
	}))
	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierVerified, got.VerificationTier)
}

func TestAutoSuspensionBelowFloor(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	seedSubscriptionRow(t, env, 1000, m.ID)
	_, err := svc.Approve(ctx, m.ID, domain.TierVerified)
	require.NoError(t, err)

	badgeExpiry := env.clock.now.Add(20 * 24 * time.Hour)
	require.NoError(t, env.db.Model(&domain.Merchant{}).Where("id = ?", m.ID).
		Updates(map[string]any{
			"premium_badge_active":  true,
			"premium_badge_expires": badgeExpiry,
		}).Error)

	for i := 0; i < 4; i++ {
		require.NoError(t, report(svc, env, domain.TransactionReport{
			SubscriptionID: 1000, MerchantID: m.ID, Amount: 1_000_000, Success: false,
		}))
	}

	// At exactly the floor the merchant survives; the rule is strictly below.
	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), got.CommunityScore)
	assert.Equal(t, domain.TierVerified, got.VerificationTier)
	assert.True(t, got.PremiumBadgeActive)

	require.NoError(t, report(svc, env, domain.TransactionReport{
		SubscriptionID: 1000, MerchantID: m.ID, Amount: 1_000_000, Success: false,
	}))
	got, err = svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-125), got.CommunityScore)
	assert.Equal(t, domain.TierSuspended, got.VerificationTier)
	assert.False(t, got.PremiumBadgeActive)
	require.NotNil(t, got.SuspensionReason)
	assert.Equal(t, int64(1), countEvents(t, env, "merchant.auto_suspended"))
}

func TestBadgeExpiresLazilyDuringReport(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	seedSubscriptionRow(t, env, 1000, m.ID)

	badgeExpiry := env.clock.now.Add(30 * 24 * time.Hour)
	require.NoError(t, env.db.Model(&domain.Merchant{}).Where("id = ?", m.ID).
		Updates(map[string]any{
			"premium_badge_active":  true,
			"premium_badge_expires": badgeExpiry,
		}).Error)

	// Still inside the window: the badge stays.
	require.NoError(t, report(svc, env, domain.TransactionReport{
		SubscriptionID: 1000, MerchantID: m.ID, Amount: 1, Success: true,
	}))
	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.PremiumBadgeActive)

	env.clock.now = badgeExpiry.Add(time.Hour)
	require.NoError(t, report(svc, env, domain.TransactionReport{
		SubscriptionID: 1000, MerchantID: m.ID, Amount: 1, Success: true,
	}))
	got, err = svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.PremiumBadgeActive)
	assert.Equal(t, int64(20), got.CommunityScore)
	assert.Equal(t, int64(1), countEvents(t, env, "merchant.badge_expired"))
}

func passingEvidence(env *testEnv, subID snowflake.ID) *domain.Evidence {
	return &domain.Evidence{
		SubscriptionID: subID,
		Active:         true,
		PaymentCount:   5,
		TotalPaid:      2_000_000,
		CreatedAt:      env.clock.now.Add(-8 * 24 * time.Hour),
	}
}

func TestSubmitReviewValidation(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	env.evidence.result = passingEvidence(env, 1000)

	_, err := svc.SubmitReview(ctx, "payer", domain.SubmitReviewRequest{
		MerchantID: m.ID, Rating: 0, Comment: "fine",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, err = svc.SubmitReview(ctx, "payer", domain.SubmitReviewRequest{
		MerchantID: m.ID, Rating: 6, Comment: "fine",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, err = svc.SubmitReview(ctx, "payer", domain.SubmitReviewRequest{
		MerchantID: m.ID, Rating: 5, Comment: "",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidComment)
}

func TestReviewGateOrder(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")

	req := domain.SubmitReviewRequest{MerchantID: m.ID, SubscriptionID: 1000, Rating: 5, Comment: "great"}

	env.evidence.result = nil
	_, err := svc.SubmitReview(ctx, "payer", req)
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)

	cancelled := passingEvidence(env, 1000)
	cancelled.Active = false
	env.evidence.result = cancelled
	_, err = svc.SubmitReview(ctx, "payer", req)
	assert.ErrorIs(t, err, domain.ErrNoActiveSubscription)

	young := passingEvidence(env, 1000)
	young.PaymentCount = 2
	env.evidence.result = young
	_, err = svc.SubmitReview(ctx, "payer", req)
	assert.ErrorIs(t, err, domain.ErrInsufficientPaymentHistory)

	lowSpend := passingEvidence(env, 1000)
	lowSpend.TotalPaid = 999_999
	env.evidence.result = lowSpend
	_, err = svc.SubmitReview(ctx, "payer", req)
	assert.ErrorIs(t, err, domain.ErrInsufficientTotalPaid)

	fresh := passingEvidence(env, 1000)
	fresh.CreatedAt = env.clock.now.Add(-6 * 24 * time.Hour)
	env.evidence.result = fresh
	_, err = svc.SubmitReview(ctx, "payer", req)
	assert.ErrorIs(t, err, domain.ErrSubscriptionTooNew)

	env.evidence.result = passingEvidence(env, 1000)
	review, err := svc.SubmitReview(ctx, "payer", req)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1000), review.SubscriptionID)

	_, err = svc.SubmitReview(ctx, "payer", req)
	assert.ErrorIs(t, err, domain.ErrDuplicateReview)
}

func TestReviewScoreDeltas(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	env.evidence.result = passingEvidence(env, 1000)

	cases := []struct {
		reviewer string
		rating   int
		want     int64
	}{
		{"r5", 5, 20},
		{"r4", 4, 30},
		{"r3", 3, 30},
		{"r2", 2, 15},
		{"r1", 1, -15},
	}
	for _, tc := range cases {
		_, err := svc.SubmitReview(ctx, tc.reviewer, domain.SubmitReviewRequest{
			MerchantID: m.ID, SubscriptionID: 1000, Rating: tc.rating, Comment: "review",
		})
		require.NoError(t, err)
		got, err := svc.Get(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.CommunityScore, "after %s", tc.reviewer)
	}
}

func TestReviewTriggersPromotion(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	_, err := svc.Approve(ctx, m.ID, domain.TierVerified)
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&domain.Merchant{}).Where("id = ?", m.ID).
		Updates(map[string]any{
			"total_transactions": 150,
			"community_score":    990,
		}).Error)

	env.evidence.result = passingEvidence(env, 1000)
	_, err = svc.SubmitReview(ctx, "payer", domain.SubmitReviewRequest{
		MerchantID: m.ID, SubscriptionID: 1000, Rating: 5, Comment: "excellent",
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1010), got.CommunityScore)
	assert.Equal(t, domain.TierCommunity, got.VerificationTier)
}

func TestListReviews(t *testing.T) {
	svc, env := newTestService(t, false)
	ctx := context.Background()
	initRegistry(t, svc, 77)
	m := applyMerchant(t, svc, "alice", "Acme")
	env.evidence.result = passingEvidence(env, 1000)

	for _, reviewer := range []string{"r1", "r2", "r3"} {
		_, err := svc.SubmitReview(ctx, reviewer, domain.SubmitReviewRequest{
			MerchantID: m.ID, SubscriptionID: 1000, Rating: 4, Comment: "solid",
		})
		require.NoError(t, err)
	}

	_, _, err := svc.ListReviews(ctx, 404, pagination.Params{})
	assert.ErrorIs(t, err, domain.ErrMerchantNotFound)

	page, total, err := svc.ListReviews(ctx, m.ID, pagination.Params{Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "r3", page[0].ReviewerAccount)
	assert.Equal(t, "r2", page[1].ReviewerAccount)
}
