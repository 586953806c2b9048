package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormJournalRepository implements settlement.JournalRepository using GORM
type GormJournalRepository struct {
	db *gorm.DB
}

// NewGormJournalRepository creates a new GormJournalRepository
func NewGormJournalRepository(db *gorm.DB) *GormJournalRepository {
	return &GormJournalRepository{db: db}
}

// Create inserts entries together with their lines
func (r *GormJournalRepository) Create(ctx context.Context, entries ...*settlement.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.JournalEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.JournalEntryModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByID loads an entry and its lines
func (r *GormJournalRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*settlement.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.withLines(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPayment lists the entry and any reversals posted for a payment
func (r *GormJournalRepository) FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) ([]*settlement.JournalEntry, error) {
	var rows []models.JournalEntryModel
	if err := r.withLines(ctx).
		Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
		Order("posted_at ASC, entry_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return entriesToDomain(rows), nil
}

type ledgerSums struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// SumByAccount totals the lines posted to one account code
func (r *GormJournalRepository) SumByAccount(ctx context.Context, tenantID uuid.UUID, accountCode string) (settlement.LedgerTotals, error) {
	var sums ledgerSums
	err := r.db.WithContext(ctx).Model(&models.JournalLineModel{}).
		Select("COALESCE(SUM(debit), 0) AS debit, COALESCE(SUM(credit), 0) AS credit").
		Where("tenant_id = ? AND account_code = ?", tenantID, accountCode).
		Scan(&sums).Error
	if err != nil {
		return settlement.LedgerTotals{}, err
	}
	return settlement.LedgerTotals{Debit: sums.Debit, Credit: sums.Credit}, nil
}

// FindUnexported lists entries posted before the cutoff that are not yet exported
func (r *GormJournalRepository) FindUnexported(ctx context.Context, tenantID uuid.UUID, postedBefore time.Time, limit int) ([]*settlement.JournalEntry, error) {
	var rows []models.JournalEntryModel
	if err := r.withLines(ctx).
		Where("tenant_id = ? AND exported_at IS NULL AND posted_at < ?", tenantID, postedBefore).
		Order("posted_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return entriesToDomain(rows), nil
}

// MarkExported stamps the export time once the external ledger has the entry
func (r *GormJournalRepository) MarkExported(ctx context.Context, tenantID, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("exported_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormJournalRepository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no ASC")
	})
}

func entriesToDomain(rows []models.JournalEntryModel) []*settlement.JournalEntry {
	entries := make([]*settlement.JournalEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries
}

var _ settlement.JournalRepository = (*GormJournalRepository)(nil)
