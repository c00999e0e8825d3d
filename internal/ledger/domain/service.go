package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
	"gorm.io/gorm"
)

// Adapter is the value-transfer capability the billing engine consumes:
// grant/revoke a capped spending authorization and move funds under it.
// Methods run inside the caller's transaction so a failed payment rolls the
// whole movement back.
type Adapter interface {
	Authorize(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, spender string, maxAmount int64) error
	Transfer(ctx context.Context, tx *gorm.DB, req TransferRequest) (*Entry, error)
	Revoke(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, spender string) error
}

type TransferRequest struct {
	FromAccountID snowflake.ID
	ToAccountID   snowflake.ID
	Amount        int64
	// Spender draws the transfer against a delegated authorization. Empty
	// means the owner moves their own funds.
	Spender string
	Kind    EntryKind
	Memo    string
}

// Service is the operational account surface (admin provisioning plus
// party-scoped reads).
type Service interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error)
	Credit(ctx context.Context, accountID string, amount int64, memo string) (*Entry, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByOwner(ctx context.Context, owner, asset string) (*Account, error)
	ListEntries(ctx context.Context, accountID string, page pagination.Params) ([]Entry, int64, error)
	GetEntry(ctx context.Context, id string) (*Entry, error)
}

type CreateAccountRequest struct {
	OwnerAccount string `json:"owner_account"`
	Asset        string `json:"asset"`
}
