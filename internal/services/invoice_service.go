package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/constants"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/lifecycle"
	"github.com/yukikurage/taxoffice-api/internal/metrics"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
)

// InvoiceService handles invoice business logic
type InvoiceService struct {
	invoiceRepo repository.InvoiceRepository
	clientRepo  repository.ClientRepository
	policy      *authz.Policy
	audit       *AuditService
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoiceRepo repository.InvoiceRepository, clientRepo repository.ClientRepository, policy *authz.Policy, audit *AuditService, m *metrics.Metrics) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		policy:      policy,
		audit:       audit,
		metrics:     m,
		now:         time.Now,
	}
}

// CreateInvoiceInput represents input for creating an invoice
type CreateInvoiceInput struct {
	ClientID      string
	Period        string
	Amount        decimal.Decimal
	DueDate       *time.Time
	BankAccountID *uint64
	Notes         string
}

// UpdateInvoiceInput represents input for updating an invoice. A status
// change goes through the lifecycle rules.
type UpdateInvoiceInput struct {
	ClientID      *string
	Period        *string
	Amount        *decimal.Decimal
	DueDate       *time.Time
	BankAccountID *uint64
	Notes         *string
	Status        *models.InvoiceStatus
}

// Now returns the service clock
func (s *InvoiceService) Now() time.Time {
	return s.now()
}

// CanTransition reports whether role may change invoice statuses at all.
func (s *InvoiceService) CanTransition(role models.Role) bool {
	return s.policy.Can(role, authz.ResourceInvoice, authz.ActionTransition)
}

// ListInvoices returns invoices visible to identity
func (s *InvoiceService) ListInvoices(ctx context.Context, identity *auth.Identity, filter repository.InvoiceFilter) ([]models.Invoice, int64, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceInvoice, authz.ActionRead)
	if err != nil {
		return nil, 0, err
	}
	filter.AsOf = s.now()
	return s.invoiceRepo.List(ctx, decision.Scope, filter)
}

// GetInvoice returns a single invoice in scope
func (s *InvoiceService) GetInvoice(ctx context.Context, identity *auth.Identity, id uint64) (*models.Invoice, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceInvoice, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.invoiceRepo.FindByID(ctx, decision.Scope, id)
}

// CreateInvoice validates input, allocates the next invoice number for the
// current year and creates a draft invoice.
func (s *InvoiceService) CreateInvoice(ctx context.Context, identity *auth.Identity, input CreateInvoiceInput) (*models.Invoice, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceInvoice, authz.ActionCreate)
	if err != nil {
		return nil, err
	}

	clientID := strings.TrimSpace(input.ClientID)
	var missing []string
	if clientID == "" {
		missing = append(missing, "client_id")
	}
	if input.Amount.IsZero() {
		missing = append(missing, "amount")
	}
	if input.DueDate == nil {
		missing = append(missing, "due_date")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := s.ensureClient(ctx, identity, clientID); err != nil {
		return nil, err
	}

	now := s.now()
	prefix := fmt.Sprintf("%s-%d-", constants.InvoiceNumberPrefix, now.Year())

	var invoice *models.Invoice
	for attempt := 0; attempt < constants.MaxInvoiceNumberAttempts; attempt++ {
		invoice = &models.Invoice{
			ClientID:      clientID,
			Period:        strings.TrimSpace(input.Period),
			Amount:        input.Amount,
			DueDate:       *input.DueDate,
			Status:        models.InvoiceStatusDraft,
			BankAccountID: input.BankAccountID,
			Notes:         input.Notes,
			CreatedBy:     identity.ID,
		}
		err = s.invoiceRepo.CreateNumbered(ctx, invoice, prefix, attempt)
		if err == nil || !errors.Is(err, apperrors.ErrConflict) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict("Could not allocate an invoice number, please retry")
		}
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionCreate, auditTableInvoices, recordID(invoice.ID), nil, invoiceSnapshot(*invoice))

	return s.invoiceRepo.FindByID(ctx, decision.Scope, invoice.ID)
}

// UpdateInvoice applies a partial update. Closed invoices cannot be edited and
// a patch that changes nothing writes nothing.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, identity *auth.Identity, id uint64, input UpdateInvoiceInput) (*models.Invoice, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceInvoice, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, decision.Scope, id)
	if err != nil {
		return nil, err
	}
	before := invoiceSnapshot(*invoice)

	if invoice.Status == models.InvoiceStatusDone && hasFieldChanges(input) {
		return nil, apperrors.Validation("Closed invoices cannot be edited", "status")
	}

	changed := false
	if input.ClientID != nil {
		clientID := strings.TrimSpace(*input.ClientID)
		if clientID != invoice.ClientID {
			if err := s.ensureClient(ctx, identity, clientID); err != nil {
				return nil, err
			}
			invoice.ClientID = clientID
			changed = true
		}
	}
	if input.Period != nil {
		if period := strings.TrimSpace(*input.Period); period != invoice.Period {
			invoice.Period = period
			changed = true
		}
	}
	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, err
		}
		if !input.Amount.Equal(invoice.Amount) {
			invoice.Amount = *input.Amount
			changed = true
		}
	}
	if input.DueDate != nil && !input.DueDate.Equal(invoice.DueDate) {
		invoice.DueDate = *input.DueDate
		changed = true
	}
	if input.BankAccountID != nil && (invoice.BankAccountID == nil || *invoice.BankAccountID != *input.BankAccountID) {
		invoice.BankAccountID = input.BankAccountID
		changed = true
	}
	if input.Notes != nil && *input.Notes != invoice.Notes {
		invoice.Notes = *input.Notes
		changed = true
	}

	from := invoice.Status
	transitioned := false
	if input.Status != nil {
		if _, err := s.policy.Authorize(identity, authz.ResourceInvoice, authz.ActionTransition); err != nil {
			return nil, err
		}
		if transitioned, err = lifecycle.Transition(invoice, *input.Status, identity.Role, s.now()); err != nil {
			return nil, err
		}
	}
	if !changed && !transitioned {
		return invoice, nil
	}

	invoice.Client = nil
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	if transitioned {
		s.metrics.ObserveTransition(string(from), string(invoice.Status))
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionUpdate, auditTableInvoices, recordID(invoice.ID), before, invoiceSnapshot(*invoice))

	return s.invoiceRepo.FindByID(ctx, decision.Scope, invoice.ID)
}

// TransitionInvoice moves an invoice to target. Moving to the current status
// succeeds without writing anything.
func (s *InvoiceService) TransitionInvoice(ctx context.Context, identity *auth.Identity, id uint64, target models.InvoiceStatus) (*models.Invoice, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceInvoice, authz.ActionTransition)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, decision.Scope, id)
	if err != nil {
		return nil, err
	}
	before := invoiceSnapshot(*invoice)
	from := invoice.Status

	changed, err := lifecycle.Transition(invoice, target, identity.Role, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return invoice, nil
	}

	client := invoice.Client
	invoice.Client = nil
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	invoice.Client = client

	s.metrics.ObserveTransition(string(from), string(invoice.Status))
	s.audit.Record(ctx, identity.ID, models.AuditActionUpdate, auditTableInvoices, recordID(invoice.ID), before, invoiceSnapshot(*invoice))

	return invoice, nil
}

// DeleteInvoice removes an invoice that has no payments
func (s *InvoiceService) DeleteInvoice(ctx context.Context, identity *auth.Identity, id uint64) error {
	decision, err := s.policy.Authorize(identity, authz.ResourceInvoice, authz.ActionDelete)
	if err != nil {
		return err
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, decision.Scope, id)
	if err != nil {
		return err
	}

	count, err := s.invoiceRepo.CountPayments(ctx, invoice.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Validation("Invoice has payments and cannot be deleted")
	}

	if err := s.invoiceRepo.Delete(ctx, invoice.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionDelete, auditTableInvoices, recordID(invoice.ID), invoiceSnapshot(*invoice), nil)
	return nil
}

// ensureClient checks that clientID names a client the caller can see.
func (s *InvoiceService) ensureClient(ctx context.Context, identity *auth.Identity, clientID string) error {
	if clientID == "" {
		return apperrors.MissingFields("client_id")
	}
	scope := authz.ScopeFor(identity.Role, authz.ResourceClient, identity.ID)
	if _, err := s.clientRepo.FindByID(ctx, scope, clientID); err != nil {
		if isNotFound(err) {
			return apperrors.Validation("Client does not exist", "client_id")
		}
		return err
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.Validation("Amount must be greater than zero", "amount")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return apperrors.Validation("Amount supports at most two decimal places", "amount")
	}
	return nil
}

func hasFieldChanges(input UpdateInvoiceInput) bool {
	return input.ClientID != nil || input.Period != nil || input.Amount != nil ||
		input.DueDate != nil || input.BankAccountID != nil || input.Notes != nil
}

func invoiceSnapshot(inv models.Invoice) models.Invoice {
	inv.Client = nil
	return inv
}
