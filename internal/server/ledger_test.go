package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bwmarrin/snowflake"

	apikeydomain "github.com/pullpaylabs/pullpay/internal/apikey/domain"
	"github.com/pullpaylabs/pullpay/internal/config"
	ledgerdomain "github.com/pullpaylabs/pullpay/internal/ledger/domain"
	"github.com/pullpaylabs/pullpay/internal/receipt"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
)

type mockLedgerService struct {
	mock.Mock
}

func (m *mockLedgerService) CreateAccount(ctx context.Context, req ledgerdomain.CreateAccountRequest) (*ledgerdomain.Account, error) {
	args := m.Called(ctx, req)
	account, _ := args.Get(0).(*ledgerdomain.Account)
	return account, args.Error(1)
}

func (m *mockLedgerService) Credit(ctx context.Context, accountID string, amount int64, memo string) (*ledgerdomain.Entry, error) {
	args := m.Called(ctx, accountID, amount, memo)
	entry, _ := args.Get(0).(*ledgerdomain.Entry)
	return entry, args.Error(1)
}

func (m *mockLedgerService) GetAccount(ctx context.Context, id string) (*ledgerdomain.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*ledgerdomain.Account)
	return account, args.Error(1)
}

func (m *mockLedgerService) GetAccountByOwner(ctx context.Context, owner, asset string) (*ledgerdomain.Account, error) {
	args := m.Called(ctx, owner, asset)
	account, _ := args.Get(0).(*ledgerdomain.Account)
	return account, args.Error(1)
}

func (m *mockLedgerService) ListEntries(ctx context.Context, accountID string, page pagination.Params) ([]ledgerdomain.Entry, int64, error) {
	args := m.Called(ctx, accountID, page)
	entries, _ := args.Get(0).([]ledgerdomain.Entry)
	return entries, int64(args.Int(1)), args.Error(2)
}

func (m *mockLedgerService) GetEntry(ctx context.Context, id string) (*ledgerdomain.Entry, error) {
	args := m.Called(ctx, id)
	entry, _ := args.Get(0).(*ledgerdomain.Entry)
	return entry, args.Error(1)
}

func newLedgerRouter(svc ledgerdomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	receipts := receipt.NewGenerator(receipt.Params{
		Log: zap.NewNop(),
		Config: config.Config{
			Platform: config.PlatformConfig{Asset: "USDC"},
		},
	})

	srv := &Server{log: zap.NewNop(), ledgerSvc: svc, receipts: receipts}

	router := gin.New()
	router.Use(injectIdentity(apikeydomain.RoleAdmin))
	router.POST("/v1/admin/ledger/accounts", srv.CreateLedgerAccount)
	router.POST("/v1/admin/ledger/accounts/:id/credit", srv.CreditLedgerAccount)
	router.GET("/v1/ledger/accounts/:id", srv.GetLedgerAccount)
	router.GET("/v1/ledger/accounts/:id/entries", srv.ListLedgerEntries)
	router.GET("/v1/ledger/entries/:id/receipt", srv.GetEntryReceipt)
	return router
}

func TestCreateLedgerAccount(t *testing.T) {
	svc := &mockLedgerService{}
	svc.On("CreateAccount", mock.Anything, ledgerdomain.CreateAccountRequest{
		OwnerAccount: "alice",
		Asset:        "USDC",
	}).Return(&ledgerdomain.Account{ID: snowflake.ID(10), OwnerAccount: "alice", Asset: "USDC"}, nil)

	body := []byte(`{"owner_account":" alice ","asset":" USDC "}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/ledger/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	newLedgerRouter(svc).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"owner_account":"alice"`)
	svc.AssertExpectations(t)
}

func TestCreditLedgerAccountDuplicateOwnerConflict(t *testing.T) {
	svc := &mockLedgerService{}
	svc.On("CreateAccount", mock.Anything, mock.Anything).
		Return(nil, ledgerdomain.ErrAccountExists)

	body := []byte(`{"owner_account":"alice","asset":"USDC"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/ledger/accounts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	newLedgerRouter(svc).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "ledger_account_exists")
}

func TestGetEntryReceiptRendersPDF(t *testing.T) {
	now := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)
	entry := &ledgerdomain.Entry{
		ID:            snowflake.ID(900),
		FromAccountID: snowflake.ID(11),
		ToAccountID:   snowflake.ID(22),
		Amount:        125_000,
		Kind:          ledgerdomain.EntryKindPayment,
		Spender:       "billing-engine:1",
		Memo:          "subscription payment",
		CreatedAt:     now,
	}

	svc := &mockLedgerService{}
	svc.On("GetEntry", mock.Anything, "900").Return(entry, nil)
	svc.On("GetAccount", mock.Anything, "11").
		Return(&ledgerdomain.Account{ID: 11, OwnerAccount: "alice", Asset: "USDC"}, nil)
	svc.On("GetAccount", mock.Anything, "22").
		Return(&ledgerdomain.Account{ID: 22, OwnerAccount: "coffee-shop", Asset: "USDC"}, nil)

	resp := httptest.NewRecorder()
	newLedgerRouter(svc).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/ledger/entries/900/receipt", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "receipt-900.pdf")
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")))
	svc.AssertExpectations(t)
}

func TestGetEntryReceiptExternalCreditSkipsSourceLookup(t *testing.T) {
	entry := &ledgerdomain.Entry{
		ID:          snowflake.ID(901),
		ToAccountID: snowflake.ID(22),
		Amount:      50_000,
		Kind:        ledgerdomain.EntryKindCredit,
		CreatedAt:   time.Now().UTC(),
	}

	svc := &mockLedgerService{}
	svc.On("GetEntry", mock.Anything, "901").Return(entry, nil)
	svc.On("GetAccount", mock.Anything, "22").
		Return(&ledgerdomain.Account{ID: 22, OwnerAccount: "alice", Asset: "USDC"}, nil)

	resp := httptest.NewRecorder()
	newLedgerRouter(svc).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/v1/ledger/entries/901/receipt", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")))
	// Only the destination account was resolved.
	svc.AssertNumberOfCalls(t, "GetAccount", 1)
}
