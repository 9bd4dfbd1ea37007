package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/database"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository is a GORM implementation of InvoiceRepository
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

func (r *GormInvoiceRepository) WithTx(tx *gorm.DB) InvoiceRepository {
	return &GormInvoiceRepository{db: tx}
}

// CreateNumbered assigns prefix + zero padded sequence and inserts the invoice.
// The sequence follows the highest number already issued under prefix, so
// deleted invoices leave gaps instead of being reused. A unique index on
// invoice_number rejects concurrent duplicates; the caller retries with a
// higher attempt.
func (r *GormInvoiceRepository) CreateNumbered(ctx context.Context, invoice *models.Invoice, prefix string, attempt int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		last, err := lastSequence(tx, prefix)
		if err != nil {
			return err
		}

		invoice.InvoiceNumber = fmt.Sprintf("%s%03d", prefix, last+1+int64(attempt))
		return tx.Omit(clause.Associations).Create(invoice).Error
	})
	return translate(err, "Invoice")
}

// lastSequence returns the highest sequence issued under prefix, 0 if none.
// Longer numbers sort first so 1000 ranks above 999.
func lastSequence(tx *gorm.DB, prefix string) (int64, error) {
	var numbers []string
	err := tx.Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Order("LENGTH(invoice_number) DESC").
		Order("invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &numbers).Error
	if err != nil || len(numbers) == 0 {
		return 0, err
	}

	seq, err := strconv.ParseInt(strings.TrimPrefix(numbers[0], prefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed invoice number %q: %w", numbers[0], err)
	}
	return seq, nil
}

func (r *GormInvoiceRepository) find(ctx context.Context, scope authz.Scope, id uint64, lock bool) (*models.Invoice, error) {
	var invoice models.Invoice
	query := r.db.WithContext(ctx).Scopes(invoicesInScope(scope))
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	} else {
		query = query.Preload("Client")
	}
	if err := query.Where("invoices.id = ?", id).First(&invoice).Error; err != nil {
		return nil, translate(err, "Invoice")
	}
	return &invoice, nil
}

// FindByID finds an invoice inside scope
func (r *GormInvoiceRepository) FindByID(ctx context.Context, scope authz.Scope, id uint64) (*models.Invoice, error) {
	return r.find(ctx, scope, id, false)
}

// FindByIDForUpdate locks the invoice row until the surrounding transaction ends
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, scope authz.Scope, id uint64) (*models.Invoice, error) {
	return r.find(ctx, scope, id, true)
}

// List retrieves invoices with filtering and pagination
func (r *GormInvoiceRepository) List(ctx context.Context, scope authz.Scope, filter InvoiceFilter) ([]models.Invoice, int64, error) {
	var invoices []models.Invoice

	query := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Scopes(
			invoicesInScope(scope),
			database.Between("invoices.due_date", filter.DueFrom, filter.DueTo),
			database.Between("invoices.created_at", filter.CreatedFrom, filter.CreatedTo),
		)

	if filter.ClientID != "" {
		query = query.Where("invoices.client_id = ?", filter.ClientID)
	}
	if filter.Status != nil {
		asOf := filter.AsOf
		if asOf.IsZero() {
			asOf = time.Now()
		}
		query = query.Scopes(invoicesDisplayedAs(*filter.Status, asOf.UTC()))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "Invoice")
	}

	err := query.
		Order("invoices.created_at DESC").
		Order("invoices.id DESC").
		Scopes(database.Paginate(filter.Pagination)).
		Preload("Client").
		Find(&invoices).Error
	if err != nil {
		return nil, 0, translate(err, "Invoice")
	}

	return invoices, total, nil
}

// Update saves an invoice
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *models.Invoice) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error, "Invoice")
}

// Delete removes an invoice
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&models.Invoice{}, id)
	if result.Error != nil {
		return translate(result.Error, "Invoice")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "Invoice")
	}
	return nil
}

// CountPayments counts payments recorded against an invoice
func (r *GormInvoiceRepository) CountPayments(ctx context.Context, invoiceID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Where("invoice_id = ?", invoiceID).Count(&count).Error
	return count, translate(err, "Payment")
}
