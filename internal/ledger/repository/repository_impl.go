package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/pullpaylabs/pullpay/internal/ledger/domain"
	"github.com/pullpaylabs/pullpay/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) handle(db *gorm.DB) *gorm.DB {
	if db != nil {
		return db
	}
	return r.db
}

func (r *repository) CreateAccount(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return r.handle(db).WithContext(ctx).Create(account).Error
}

func (r *repository) FindAccountByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := r.handle(db).WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByOwner(ctx context.Context, db *gorm.DB, owner, asset string) (*domain.Account, error) {
	var account domain.Account
	err := r.handle(db).WithContext(ctx).
		Where("owner_account = ? AND asset = ?", owner, asset).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) AddBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64) error {
	return r.handle(db).WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

func (r *repository) DebitBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) (bool, error) {
	res := r.handle(db).WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpsertAuthorization(ctx context.Context, db *gorm.DB, auth *domain.Authorization) error {
	return r.handle(db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "spender"}},
			DoUpdates: clause.AssignmentColumns([]string{"remaining", "updated_at"}),
		}).
		Create(auth).Error
}

func (r *repository) FindAuthorization(ctx context.Context, db *gorm.DB, accountID snowflake.ID, spender string) (*domain.Authorization, error) {
	var auth domain.Authorization
	err := r.handle(db).WithContext(ctx).
		Where("account_id = ? AND spender = ?", accountID, spender).
		First(&auth).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &auth, nil
}

func (r *repository) DrawAuthorization(ctx context.Context, db *gorm.DB, accountID snowflake.ID, spender string, amount int64) (bool, error) {
	res := r.handle(db).WithContext(ctx).
		Model(&domain.Authorization{}).
		Where("account_id = ? AND spender = ? AND remaining >= ?", accountID, spender, amount).
		Update("remaining", gorm.Expr("remaining - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DeleteAuthorization(ctx context.Context, db *gorm.DB, accountID snowflake.ID, spender string) error {
	return r.handle(db).WithContext(ctx).
		Where("account_id = ? AND spender = ?", accountID, spender).
		Delete(&domain.Authorization{}).Error
}

func (r *repository) CreateEntry(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return r.handle(db).WithContext(ctx).Create(entry).Error
}

func (r *repository) FindEntryByID(ctx context.Context, id snowflake.ID) (*domain.Entry, error) {
	var entry domain.Entry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntriesForAccount(ctx context.Context, accountID snowflake.ID, page pagination.Params) ([]domain.Entry, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("from_account_id = ? OR to_account_id = ?", accountID, accountID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []domain.Entry
	if err := page.Apply(q).Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
