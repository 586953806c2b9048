package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBankAccountRepository implements settlement.BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// FindByID finds a bank account by ID within a tenant
func (r *GormBankAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*settlement.BankAccount, error) {
	var model models.BankAccountModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate locks the requested accounts in id order so two
// settlements touching the same accounts cannot deadlock. Unknown ids are
// absent from the result.
func (r *GormBankAccountRepository) FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*settlement.BankAccount, error) {
	result := make(map[uuid.UUID]*settlement.BankAccount, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].ToDomain()
	}
	return result, nil
}

// FindAll lists a tenant's accounts by name
func (r *GormBankAccountRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]settlement.BankAccount, error) {
	var rows []models.BankAccountModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]settlement.BankAccount, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// ExistsByLedgerCode checks whether a ledger account code is already bound to an account
func (r *GormBankAccountRepository) ExistsByLedgerCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BankAccountModel{}).
		Where("tenant_id = ? AND ledger_account_code = ?", tenantID, code).
		Count(&count).Error
	return count > 0, err
}

// Create inserts a new bank account
func (r *GormBankAccountRepository) Create(ctx context.Context, account *settlement.BankAccount) error {
	return r.db.WithContext(ctx).Create(models.BankAccountModelFromDomain(account)).Error
}

// SaveWithLock writes the account's balance under optimistic locking
func (r *GormBankAccountRepository) SaveWithLock(ctx context.Context, account *settlement.BankAccount) error {
	model := models.BankAccountModelFromDomain(account)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit("id", "tenant_id", "created_by", "created_at").
		Where("tenant_id = ? AND id = ? AND version = ?", account.TenantID, account.ID, account.Version-1).
		Updates(model)
	return lockResult(result)
}

var _ settlement.BankAccountRepository = (*GormBankAccountRepository)(nil)
