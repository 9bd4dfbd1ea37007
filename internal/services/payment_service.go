package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/lifecycle"
	"github.com/yukikurage/taxoffice-api/internal/metrics"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"gorm.io/gorm"
)

// PaymentService records payments and settles invoices
type PaymentService struct {
	db          *gorm.DB
	paymentRepo repository.PaymentRepository
	invoiceRepo repository.InvoiceRepository
	policy      *authz.Policy
	audit       *AuditService
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(db *gorm.DB, paymentRepo repository.PaymentRepository, invoiceRepo repository.InvoiceRepository, policy *authz.Policy, audit *AuditService, m *metrics.Metrics) *PaymentService {
	return &PaymentService{
		db:          db,
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		policy:      policy,
		audit:       audit,
		metrics:     m,
		now:         time.Now,
	}
}

// RecordPaymentInput represents input for recording a payment
type RecordPaymentInput struct {
	InvoiceID       uint64
	PaymentMethod   models.PaymentMethod
	Amount          decimal.Decimal
	PaymentDate     *time.Time
	ReferenceNumber string
	Notes           string
}

// RecordPaymentResult is the stored payment and the invoice after settlement
type RecordPaymentResult struct {
	Payment *models.Payment
	Invoice *models.Invoice
	// Settled is true when this payment moved the invoice to paid
	Settled bool
}

// ListPayments returns payments visible to identity
func (s *PaymentService) ListPayments(ctx context.Context, identity *auth.Identity, filter repository.PaymentFilter) ([]models.Payment, int64, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourcePayment, authz.ActionRead)
	if err != nil {
		return nil, 0, err
	}
	return s.paymentRepo.List(ctx, decision.Scope, filter)
}

// GetPayment returns a single payment in scope
func (s *PaymentService) GetPayment(ctx context.Context, identity *auth.Identity, id uint64) (*models.Payment, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourcePayment, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.paymentRepo.FindByID(ctx, decision.Scope, id)
}

// RecordPayment stores a payment and, when it covers the invoice amount,
// marks the invoice paid in the same transaction. Partial payments leave the
// invoice status unchanged.
func (s *PaymentService) RecordPayment(ctx context.Context, identity *auth.Identity, input RecordPaymentInput) (*RecordPaymentResult, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourcePayment, authz.ActionCreate)
	if err != nil {
		return nil, err
	}

	var missing []string
	if input.InvoiceID == 0 {
		missing = append(missing, "invoice_id")
	}
	if input.Amount.IsZero() {
		missing = append(missing, "amount")
	}
	if input.PaymentDate == nil {
		missing = append(missing, "payment_date")
	}
	if input.PaymentMethod == "" {
		missing = append(missing, "payment_method")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}
	if !input.PaymentMethod.Valid() {
		return nil, apperrors.Validation("Invalid payment method", "payment_method")
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		InvoiceID:       input.InvoiceID,
		PaymentMethod:   input.PaymentMethod,
		Amount:          input.Amount,
		PaymentDate:     *input.PaymentDate,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		RecordedBy:      identity.ID,
	}

	var invoice *models.Invoice
	var before models.Invoice
	settled := false

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoices := s.invoiceRepo.WithTx(tx)

		var err error
		invoice, err = invoices.FindByIDForUpdate(ctx, decision.Scope, input.InvoiceID)
		if err != nil {
			if isNotFound(err) {
				return apperrors.Validation("Invoice does not exist", "invoice_id")
			}
			return err
		}
		before = invoiceSnapshot(*invoice)

		if err := s.paymentRepo.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}

		if payment.Amount.LessThan(invoice.Amount) {
			return nil
		}
		if invoice.Status == models.InvoiceStatusPaid || invoice.Status == models.InvoiceStatusDone {
			return nil
		}

		if settled, err = lifecycle.Transition(invoice, models.InvoiceStatusPaid, identity.Role, s.now()); err != nil {
			return err
		}
		return invoices.Update(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionCreate, auditTablePayments, recordID(payment.ID), nil, *payment)
	if settled {
		s.metrics.ObserveTransition(string(before.Status), string(invoice.Status))
		s.audit.Record(ctx, identity.ID, models.AuditActionUpdate, auditTableInvoices, recordID(invoice.ID), before, invoiceSnapshot(*invoice))
	}

	return &RecordPaymentResult{Payment: payment, Invoice: invoice, Settled: settled}, nil
}
