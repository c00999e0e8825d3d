package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrAccountNotFound           = errors.New("ledger_account_not_found")
	ErrAccountExists             = errors.New("ledger_account_exists")
	ErrEntryNotFound             = errors.New("ledger_entry_not_found")
	ErrInvalidOwner              = errors.New("invalid_owner_account")
	ErrInvalidAmount             = errors.New("invalid_amount")
	ErrInvalidTransfer           = errors.New("invalid_transfer")
	ErrAssetMismatch             = errors.New("asset_mismatch")
	ErrInsufficientBalance       = errors.New("insufficient_balance")
	ErrInsufficientAuthorization = errors.New("insufficient_authorization")
)

// Account holds a party's balance in one asset.
type Account struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerAccount string       `gorm:"not null;uniqueIndex:idx_ledger_accounts_owner_asset" json:"owner_account"`
	Asset        string       `gorm:"not null;uniqueIndex:idx_ledger_accounts_owner_asset" json:"asset"`
	Balance      int64        `gorm:"not null;default:0" json:"balance"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (Account) TableName() string {
	return "ledger_accounts"
}

// Authorization is a capped, revocable spending grant from an account owner
// to a spender. Authorize replaces the remaining capacity outright; every
// transfer drawn under the spender decrements it.
type Authorization struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;uniqueIndex:idx_ledger_auths_account_spender" json:"account_id"`
	Spender   string       `gorm:"not null;uniqueIndex:idx_ledger_auths_account_spender" json:"spender"`
	Remaining int64        `gorm:"not null" json:"remaining"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Authorization) TableName() string {
	return "ledger_authorizations"
}

type EntryKind string

const (
	EntryKindPayment EntryKind = "payment"
	EntryKindFee     EntryKind = "fee"
	EntryKindBadge   EntryKind = "badge"
	EntryKindCredit  EntryKind = "credit"
)

// Entry is one committed value movement. Credits from outside the ledger
// carry a zero FromAccountID.
type Entry struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	FromAccountID snowflake.ID `gorm:"index" json:"from_account_id"`
	ToAccountID   snowflake.ID `gorm:"not null;index" json:"to_account_id"`
	Amount        int64        `gorm:"not null" json:"amount"`
	Kind          EntryKind    `gorm:"not null" json:"kind"`
	Spender       string       `json:"spender,omitempty"`
	Memo          string       `json:"memo,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

func (Entry) TableName() string {
	return "ledger_entries"
}
