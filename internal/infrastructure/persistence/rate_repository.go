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

// GormExchangeRateRepository implements settlement.ExchangeRateRepository using GORM
type GormExchangeRateRepository struct {
	db *gorm.DB
}

// NewGormExchangeRateRepository creates a new GormExchangeRateRepository
func NewGormExchangeRateRepository(db *gorm.DB) *GormExchangeRateRepository {
	return &GormExchangeRateRepository{db: db}
}

// FindAll returns the tenant's current snapshot ordered by currency
func (r *GormExchangeRateRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]settlement.ExchangeRate, error) {
	var rows []models.ExchangeRateModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("currency ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	rates := make([]settlement.ExchangeRate, len(rows))
	for i := range rows {
		rates[i] = rows[i].ToDomain()
	}
	return rates, nil
}

// ReplaceAll deletes the tenant's snapshot and inserts the new one.
// Readers in other transactions see either the old or the new table.
func (r *GormExchangeRateRepository) ReplaceAll(ctx context.Context, tenantID uuid.UUID, rates []*settlement.ExchangeRate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.ExchangeRateModel{}).Error; err != nil {
			return err
		}
		if len(rates) == 0 {
			return nil
		}
		rows := make([]*models.ExchangeRateModel, len(rates))
		for i, rate := range rates {
			rows[i] = models.ExchangeRateModelFromDomain(rate)
		}
		return tx.Create(&rows).Error
	})
}

// GormChargeRateRepository implements settlement.ChargeRateRepository using GORM
type GormChargeRateRepository struct {
	db *gorm.DB
}

// NewGormChargeRateRepository creates a new GormChargeRateRepository
func NewGormChargeRateRepository(db *gorm.DB) *GormChargeRateRepository {
	return &GormChargeRateRepository{db: db}
}

// Find returns the tariff for a region and category
func (r *GormChargeRateRepository) Find(ctx context.Context, tenantID uuid.UUID, region, category string) (*settlement.ChargeRate, error) {
	var model models.ChargeRateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND region = ? AND category = ?", tenantID, region, category).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	rate := model.ToDomain()
	return &rate, nil
}

// FindAll lists every tariff of a tenant
func (r *GormChargeRateRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]settlement.ChargeRate, error) {
	var rows []models.ChargeRateModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("region ASC, category ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	rates := make([]settlement.ChargeRate, len(rows))
	for i := range rows {
		rates[i] = rows[i].ToDomain()
	}
	return rates, nil
}

// Upsert inserts the tariff or overwrites the existing one for the same region and category
func (r *GormChargeRateRepository) Upsert(ctx context.Context, rate *settlement.ChargeRate) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "region"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"currency", "rate_per_kg", "duty_percentage", "handling_fee_percentage", "markup_percentage", "updated_at",
		}),
	}).Create(models.ChargeRateModelFromDomain(rate)).Error
}

var (
	_ settlement.ExchangeRateRepository = (*GormExchangeRateRepository)(nil)
	_ settlement.ChargeRateRepository   = (*GormChargeRateRepository)(nil)
)
