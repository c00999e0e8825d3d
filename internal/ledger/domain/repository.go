package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
	"gorm.io/gorm"
)

// Repository is the persistence surface for accounts, authorizations and
// entries. Methods taking a db handle participate in the caller's
// transaction.
type Repository interface {
	CreateAccount(ctx context.Context, db *gorm.DB, account *Account) error
	FindAccountByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)
	FindAccountByOwner(ctx context.Context, db *gorm.DB, owner, asset string) (*Account, error)
	// AddBalance credits delta unconditionally.
	AddBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64) error
	// DebitBalance subtracts amount only when the balance covers it and
	// reports whether the debit happened.
	DebitBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) (bool, error)

	UpsertAuthorization(ctx context.Context, db *gorm.DB, auth *Authorization) error
	FindAuthorization(ctx context.Context, db *gorm.DB, accountID snowflake.ID, spender string) (*Authorization, error)
	// DrawAuthorization decrements remaining capacity only when it covers
	// amount and reports whether the draw happened.
	DrawAuthorization(ctx context.Context, db *gorm.DB, accountID snowflake.ID, spender string, amount int64) (bool, error)
	DeleteAuthorization(ctx context.Context, db *gorm.DB, accountID snowflake.ID, spender string) error

	CreateEntry(ctx context.Context, db *gorm.DB, entry *Entry) error
	FindEntryByID(ctx context.Context, id snowflake.ID) (*Entry, error)
	ListEntriesForAccount(ctx context.Context, accountID snowflake.ID, page pagination.Params) ([]Entry, int64, error)
}
