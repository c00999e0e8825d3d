package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
	merchantdomain "github.com/pullpaylabs/pullpay/internal/merchant/domain"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type mockMerchantService struct {
	mock.Mock
}

func (m *mockMerchantService) InitializeRegistry(ctx context.Context, req merchantdomain.InitializeRegistryRequest) (*merchantdomain.RegistryState, error) {
	args := m.Called(ctx, req)
	state, _ := args.Get(0).(*merchantdomain.RegistryState)
	return state, args.Error(1)
}

func (m *mockMerchantService) GetRegistry(ctx context.Context) (*merchantdomain.RegistryState, error) {
	args := m.Called(ctx)
	state, _ := args.Get(0).(*merchantdomain.RegistryState)
	return state, args.Error(1)
}

func (m *mockMerchantService) Apply(ctx context.Context, owner string, req merchantdomain.ApplyRequest) (*merchantdomain.Merchant, error) {
	args := m.Called(ctx, owner, req)
	merchant, _ := args.Get(0).(*merchantdomain.Merchant)
	return merchant, args.Error(1)
}

func (m *mockMerchantService) Approve(ctx context.Context, merchantID snowflake.ID, tier merchantdomain.Tier) (*merchantdomain.Merchant, error) {
	args := m.Called(ctx, merchantID, tier)
	merchant, _ := args.Get(0).(*merchantdomain.Merchant)
	return merchant, args.Error(1)
}

func (m *mockMerchantService) Suspend(ctx context.Context, merchantID snowflake.ID, reason string) (*merchantdomain.Merchant, error) {
	args := m.Called(ctx, merchantID, reason)
	merchant, _ := args.Get(0).(*merchantdomain.Merchant)
	return merchant, args.Error(1)
}

func (m *mockMerchantService) SubscribePremiumBadge(ctx context.Context, owner string, merchantID snowflake.ID) (*merchantdomain.Merchant, error) {
	args := m.Called(ctx, owner, merchantID)
	merchant, _ := args.Get(0).(*merchantdomain.Merchant)
	return merchant, args.Error(1)
}

func (m *mockMerchantService) UpdateInfo(ctx context.Context, owner string, merchantID snowflake.ID, req merchantdomain.UpdateInfoRequest) (*merchantdomain.Merchant, error) {
	args := m.Called(ctx, owner, merchantID, req)
	merchant, _ := args.Get(0).(*merchantdomain.Merchant)
	return merchant, args.Error(1)
}

func (m *mockMerchantService) Get(ctx context.Context, merchantID snowflake.ID) (*merchantdomain.Merchant, error) {
	args := m.Called(ctx, merchantID)
	merchant, _ := args.Get(0).(*merchantdomain.Merchant)
	return merchant, args.Error(1)
}

func (m *mockMerchantService) List(ctx context.Context, filter merchantdomain.ListFilter, page pagination.Params) ([]merchantdomain.Merchant, int64, error) {
	args := m.Called(ctx, filter, page)
	merchants, _ := args.Get(0).([]merchantdomain.Merchant)
	return merchants, int64(args.Int(1)), args.Error(2)
}

func (m *mockMerchantService) SubmitReview(ctx context.Context, reviewer string, req merchantdomain.SubmitReviewRequest) (*merchantdomain.Review, error) {
	args := m.Called(ctx, reviewer, req)
	review, _ := args.Get(0).(*merchantdomain.Review)
	return review, args.Error(1)
}

func (m *mockMerchantService) ListReviews(ctx context.Context, merchantID snowflake.ID, page pagination.Params) ([]merchantdomain.Review, int64, error) {
	args := m.Called(ctx, merchantID, page)
	reviews, _ := args.Get(0).([]merchantdomain.Review)
	return reviews, int64(args.Int(1)), args.Error(2)
}

func newMerchantRouter(svc merchantdomain.Service, role apikeydomain.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)

	srv := &Server{log: zap.NewNop(), merchantSvc: svc}

	router := gin.New()
	router.Use(injectIdentity(role))
	router.POST("/v1/merchants", srv.ApplyMerchant)
	router.GET("/v1/merchants/:id", srv.GetMerchant)
	router.POST("/v1/admin/merchants/:id/approve", srv.ApproveMerchant)
	router.POST("/v1/reviews", srv.SubmitReview)
	return router
}

func TestApplyMerchantTrimsInput(t *testing.T) {
	svc := &mockMerchantService{}
	svc.On("Apply", mock.Anything, "actor", merchantdomain.ApplyRequest{
		BusinessName: "Coffee Cart",
		Category:     "food",
		WebhookURL:   "https://hooks.example.com/pay",
	}).Return(&merchantdomain.Merchant{
		ID:               snowflake.ID(42),
		OwnerAccount:     "actor",
		BusinessName:     "Coffee Cart",
		VerificationTier: merchantdomain.TierUnverified,
	}, nil)

	body := []byte(`{"business_name":" Coffee Cart ","category":" food ","webhook_url":" https://hooks.example.com/pay "}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/merchants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	newMerchantRouter(svc, apikeydomain.RoleMerchant).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"verification_tier":"unverified"`)
	svc.AssertExpectations(t)
}

func TestGetMerchantWebhookVisibility(t *testing.T) {
	newMerchant := func(owner string) *merchantdomain.Merchant {
		return &merchantdomain.Merchant{
			ID:               snowflake.ID(42),
			OwnerAccount:     owner,
			BusinessName:     "Coffee Cart",
			VerificationTier: merchantdomain.TierVerified,
			WebhookURL:       "https://hooks.example.com/pay",
		}
	}

	t.Run("owner sees the webhook", func(t *testing.T) {
		svc := &mockMerchantService{}
		svc.On("Get", mock.Anything, snowflake.ID(42)).Return(newMerchant("actor"), nil)

		resp := httptest.NewRecorder()
		newMerchantRouter(svc, apikeydomain.RoleMerchant).
			ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/merchants/42", nil))

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "hooks.example.com")
	})

	t.Run("other callers do not", func(t *testing.T) {
		svc := &mockMerchantService{}
		svc.On("Get", mock.Anything, snowflake.ID(42)).Return(newMerchant("someone-else"), nil)

		resp := httptest.NewRecorder()
		newMerchantRouter(svc, apikeydomain.RolePayer).
			ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/merchants/42", nil))

		require.Equal(t, http.StatusOK, resp.Code)
		assert.NotContains(t, resp.Body.String(), "webhook_url")
	})

	t.Run("admins always do", func(t *testing.T) {
		svc := &mockMerchantService{}
		svc.On("Get", mock.Anything, snowflake.ID(42)).Return(newMerchant("someone-else"), nil)

		resp := httptest.NewRecorder()
		newMerchantRouter(svc, apikeydomain.RoleAdmin).
			ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/merchants/42", nil))

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "hooks.example.com")
	})
}

func TestApproveMerchantRejectsCommunityTier(t *testing.T) {
	svc := &mockMerchantService{}
	svc.On("Approve", mock.Anything, snowflake.ID(42), merchantdomain.TierCommunity).
		Return(nil, merchantdomain.ErrCannotSetCommunityTier)

	body := []byte(`{"tier":"community"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/merchants/42/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	newMerchantRouter(svc, apikeydomain.RoleAdmin).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "cannot_set_community_tier")
}

func TestSubmitReviewParsesIdentifiers(t *testing.T) {
	svc := &mockMerchantService{}
	svc.On("SubmitReview", mock.Anything, "actor", merchantdomain.SubmitReviewRequest{
		MerchantID:     snowflake.ID(42),
		SubscriptionID: snowflake.ID(9000),
		Rating:         5,
		Comment:        "prompt delivery",
	}).Return(&merchantdomain.Review{
		ID:         snowflake.ID(1),
		MerchantID: snowflake.ID(42),
		Rating:     5,
	}, nil)

	body, _ := json.Marshal(map[string]any{
		"merchant_id":     "42",
		"subscription_id": "9000",
		"rating":          5,
		"comment":         " prompt delivery ",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	newMerchantRouter(svc, apikeydomain.RolePayer).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"rating":5`)
	svc.AssertExpectations(t)
}

func TestSubmitReviewRequiresQualifyingHistory(t *testing.T) {
	svc := &mockMerchantService{}
	svc.On("SubmitReview", mock.Anything, "actor", mock.Anything).
		Return(nil, merchantdomain.ErrInsufficientPaymentHistory)

	body := []byte(`{"merchant_id":"42","subscription_id":"9000","rating":4,"comment":"fine"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	newMerchantRouter(svc, apikeydomain.RolePayer).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "insufficient_payment_history")
}
