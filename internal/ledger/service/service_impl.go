package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pullpaylabs/pullpay/internal/clock"
	"github.com/pullpaylabs/pullpay/internal/ledger/domain"
	pkgdb "github.com/pullpaylabs/pullpay/pkg/db"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

// Service implements both the operational account surface and the Adapter
// capability the billing engine draws on.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

var (
	_ domain.Service = (*Service)(nil)
	_ domain.Adapter = (*Service)(nil)
)

// Authorize replaces the spender's remaining capacity with maxAmount.
func (s *Service) Authorize(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, spender string, maxAmount int64) error {
	if maxAmount <= 0 || spender == "" {
		return domain.ErrInvalidAmount
	}

	account, err := s.repo.FindAccountByID(ctx, tx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return domain.ErrAccountNotFound
	}

	now := s.clock.Now(ctx)
	return s.repo.UpsertAuthorization(ctx, tx, &domain.Authorization{
		ID:        s.genID.Generate(),
		AccountID: accountID,
		Spender:   spender,
		Remaining: maxAmount,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *Service) Transfer(ctx context.Context, tx *gorm.DB, req domain.TransferRequest) (*domain.Entry, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, domain.ErrInvalidTransfer
	}

	from, err := s.repo.FindAccountByID(ctx, tx, req.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.repo.FindAccountByID(ctx, tx, req.ToAccountID)
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, domain.ErrAccountNotFound
	}
	if from.Asset != to.Asset {
		return nil, domain.ErrAssetMismatch
	}

	if req.Spender != "" {
		drawn, err := s.repo.DrawAuthorization(ctx, tx, req.FromAccountID, req.Spender, req.Amount)
		if err != nil {
			return nil, err
		}
		if !drawn {
			return nil, domain.ErrInsufficientAuthorization
		}
	}

	debited, err := s.repo.DebitBalance(ctx, tx, req.FromAccountID, req.Amount)
	if err != nil {
		return nil, err
	}
	if !debited {
		return nil, domain.ErrInsufficientBalance
	}
	if err := s.repo.AddBalance(ctx, tx, req.ToAccountID, req.Amount); err != nil {
		return nil, err
	}

	entry := &domain.Entry{
		ID:            s.genID.Generate(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Kind:          req.Kind,
		Spender:       req.Spender,
		Memo:          req.Memo,
		CreatedAt:     s.clock.Now(ctx),
	}
	if err := s.repo.CreateEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Revoke drops the spender's grant. Revoking an absent grant is a no-op.
func (s *Service) Revoke(ctx context.Context, tx *gorm.DB, accountID snowflake.ID, spender string) error {
	return s.repo.DeleteAuthorization(ctx, tx, accountID, spender)
}

func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	if req.OwnerAccount == "" {
		return nil, domain.ErrInvalidOwner
	}
	if req.Asset == "" {
		return nil, domain.ErrAssetMismatch
	}

	now := s.clock.Now(ctx)
	account := &domain.Account{
		ID:           s.genID.Generate(),
		OwnerAccount: req.OwnerAccount,
		Asset:        req.Asset,
		Balance:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateAccount(ctx, nil, account); err != nil {
		if pkgdb.IsDuplicate(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, err
	}
	return account, nil
}

// Credit funds an account from outside the ledger (zero source account).
func (s *Service) Credit(ctx context.Context, accountID string, amount int64, memo string) (*domain.Entry, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	id, err := snowflake.ParseString(accountID)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	var entry *domain.Entry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.repo.FindAccountByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}
		if err := s.repo.AddBalance(ctx, tx, id, amount); err != nil {
			return err
		}
		entry = &domain.Entry{
			ID:          s.genID.Generate(),
			ToAccountID: id,
			Amount:      amount,
			Kind:        domain.EntryKindCredit,
			Memo:        memo,
			CreatedAt:   s.clock.Now(ctx),
		}
		return s.repo.CreateEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account credited",
		zap.String("account_id", accountID),
		zap.Int64("amount", amount),
	)
	return entry, nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	accountID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	account, err := s.repo.FindAccountByID(ctx, nil, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) GetAccountByOwner(ctx context.Context, owner, asset string) (*domain.Account, error) {
	account, err := s.repo.FindAccountByOwner(ctx, nil, owner, asset)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) ListEntries(ctx context.Context, accountID string, page pagination.Params) ([]domain.Entry, int64, error) {
	id, err := snowflake.ParseString(accountID)
	if err != nil {
		return nil, 0, domain.ErrAccountNotFound
	}
	return s.repo.ListEntriesForAccount(ctx, id, page)
}

func (s *Service) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	entryID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrEntryNotFound
	}
	entry, err := s.repo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrEntryNotFound
	}
	return entry, nil
}
