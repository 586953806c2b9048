package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/settlement"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/domain/shared"
	"github.com/smashburgertza/astralinelogistics-sub006/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements settlement.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID within a tenant
func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*settlement.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice lists every payment leg applied to an invoice, oldest first
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]settlement.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// FindWithoutJournal lists non-rejected payments that never got a journal entry
func (r *GormPaymentRepository) FindWithoutJournal(ctx context.Context, tenantID uuid.UUID) ([]settlement.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND journal_entry_id IS NULL AND status <> ?", tenantID, settlement.PaymentStatusRejected).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// Create inserts payment legs in one statement
func (r *GormPaymentRepository) Create(ctx context.Context, payments ...*settlement.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	rows := make([]*models.PaymentModel, len(payments))
	for i, p := range payments {
		rows[i] = models.PaymentModelFromDomain(p)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// SaveWithLock writes a payment's status change under optimistic locking
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *settlement.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit("id", "tenant_id", "created_by", "created_at").
		Where("tenant_id = ? AND id = ? AND version = ?", payment.TenantID, payment.ID, payment.Version-1).
		Updates(model)
	return lockResult(result)
}

func paymentsToDomain(rows []models.PaymentModel) []settlement.Payment {
	payments := make([]settlement.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments
}

var _ settlement.PaymentRepository = (*GormPaymentRepository)(nil)
