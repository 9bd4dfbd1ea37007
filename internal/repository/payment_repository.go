package repository

import (
	"context"

	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/database"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository is a GORM implementation of PaymentRepository
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: tx}
}

// Create inserts a payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(payment).Error, "Payment")
}

// FindByID finds a payment whose invoice is in scope
func (r *GormPaymentRepository) FindByID(ctx context.Context, scope authz.Scope, id uint64) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Scopes(paymentsInScope(scope)).
		Preload("Invoice").
		Where("payments.id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, translate(err, "Payment")
	}
	return &payment, nil
}

// List retrieves payments newest first
func (r *GormPaymentRepository) List(ctx context.Context, scope authz.Scope, filter PaymentFilter) ([]models.Payment, int64, error) {
	var payments []models.Payment

	query := r.db.WithContext(ctx).Model(&models.Payment{}).
		Scopes(
			paymentsInScope(scope),
			database.Between("payments.payment_date", filter.From, filter.To),
		)
	if filter.InvoiceID != nil {
		query = query.Where("payments.invoice_id = ?", *filter.InvoiceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "Payment")
	}

	err := query.
		Order("payments.payment_date DESC").
		Order("payments.id DESC").
		Scopes(database.Paginate(filter.Pagination)).
		Find(&payments).Error
	if err != nil {
		return nil, 0, translate(err, "Payment")
	}

	return payments, total, nil
}
