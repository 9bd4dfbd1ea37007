package services

import (
	"context"
	"strings"
	"time"

	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/idgen"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
)

// ClientService handles client business logic
type ClientService struct {
	clientRepo repository.ClientRepository
	userRepo   repository.UserRepository
	policy     *authz.Policy
	audit      *AuditService
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo repository.ClientRepository, userRepo repository.UserRepository, policy *authz.Policy, audit *AuditService) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		userRepo:   userRepo,
		policy:     policy,
		audit:      audit,
	}
}

// CreateClientInput represents input for creating a client
type CreateClientInput struct {
	Name             string
	PICName          string
	PICPhone         string
	Address          string
	TaxID            string
	Category         string
	AssignedTo       *uint64
	Status           models.ClientStatus
	RecurringDueDate *time.Time
	Notes            string
	Tags             []string
}

// UpdateClientInput represents input for updating a client. Nil fields are left unchanged.
type UpdateClientInput struct {
	Name                  *string
	PICName               *string
	PICPhone              *string
	Address               *string
	TaxID                 *string
	Category              *string
	AssignedTo            *uint64
	Status                *models.ClientStatus
	RecurringDueDate      *time.Time
	ClearRecurringDueDate bool
	Notes                 *string
	Tags                  []string
}

// ListClients returns the clients visible to identity
func (s *ClientService) ListClients(ctx context.Context, identity *auth.Identity, filter repository.ClientFilter) ([]models.Client, int64, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceClient, authz.ActionRead)
	if err != nil {
		return nil, 0, err
	}
	return s.clientRepo.List(ctx, decision.Scope, filter)
}

// GetClient returns a single client in scope
func (s *ClientService) GetClient(ctx context.Context, identity *auth.Identity, id string) (*models.Client, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceClient, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.clientRepo.FindByID(ctx, decision.Scope, id)
}

// CreateClient validates input and creates a client. Callers without
// unrestricted scope own the client unless they assign it to their team.
func (s *ClientService) CreateClient(ctx context.Context, identity *auth.Identity, input CreateClientInput) (*models.Client, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceClient, authz.ActionCreate)
	if err != nil {
		return nil, err
	}

	client := &models.Client{
		ID:               idgen.ClientID(),
		Name:             strings.TrimSpace(input.Name),
		PICName:          strings.TrimSpace(input.PICName),
		PICPhone:         strings.TrimSpace(input.PICPhone),
		Address:          input.Address,
		TaxID:            strings.TrimSpace(input.TaxID),
		Category:         strings.TrimSpace(input.Category),
		AssignedTo:       input.AssignedTo,
		Status:           input.Status,
		RecurringDueDate: input.RecurringDueDate,
		Notes:            input.Notes,
		Tags:             input.Tags,
		CreatedBy:        identity.ID,
	}
	if client.Status == "" {
		client.Status = models.ClientStatusActive
	}
	if client.AssignedTo == nil && !decision.Scope.IsAll() {
		client.AssignedTo = &identity.ID
	}

	if err := validateClient(client); err != nil {
		return nil, err
	}
	if client.AssignedTo != nil {
		if _, err := resolveAssignee(ctx, s.userRepo, decision.Scope, *client.AssignedTo, "assigned_to"); err != nil {
			return nil, err
		}
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionCreate, auditTableClients, client.ID, nil, clientSnapshot(*client))

	return s.clientRepo.FindByID(ctx, decision.Scope, client.ID)
}

// UpdateClient applies a partial update to a client in scope
func (s *ClientService) UpdateClient(ctx context.Context, identity *auth.Identity, id string, input UpdateClientInput) (*models.Client, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceClient, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	client, err := s.clientRepo.FindByID(ctx, decision.Scope, id)
	if err != nil {
		return nil, err
	}
	before := clientSnapshot(*client)

	if input.Name != nil {
		client.Name = strings.TrimSpace(*input.Name)
	}
	if input.PICName != nil {
		client.PICName = strings.TrimSpace(*input.PICName)
	}
	if input.PICPhone != nil {
		client.PICPhone = strings.TrimSpace(*input.PICPhone)
	}
	if input.Address != nil {
		client.Address = *input.Address
	}
	if input.TaxID != nil {
		client.TaxID = strings.TrimSpace(*input.TaxID)
	}
	if input.Category != nil {
		client.Category = strings.TrimSpace(*input.Category)
	}
	if input.Status != nil {
		client.Status = *input.Status
	}
	if input.ClearRecurringDueDate {
		client.RecurringDueDate = nil
	} else if input.RecurringDueDate != nil {
		client.RecurringDueDate = input.RecurringDueDate
	}
	if input.Notes != nil {
		client.Notes = *input.Notes
	}
	if input.Tags != nil {
		client.Tags = input.Tags
	}
	if input.AssignedTo != nil && (client.AssignedTo == nil || *client.AssignedTo != *input.AssignedTo) {
		if _, err := resolveAssignee(ctx, s.userRepo, decision.Scope, *input.AssignedTo, "assigned_to"); err != nil {
			return nil, err
		}
		client.AssignedTo = input.AssignedTo
	}

	if err := validateClient(client); err != nil {
		return nil, err
	}

	client.Assignee = nil
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionUpdate, auditTableClients, client.ID, before, clientSnapshot(*client))

	return s.clientRepo.FindByID(ctx, decision.Scope, client.ID)
}

// DeleteClient removes a client that has no invoices
func (s *ClientService) DeleteClient(ctx context.Context, identity *auth.Identity, id string) error {
	decision, err := s.policy.Authorize(identity, authz.ResourceClient, authz.ActionDelete)
	if err != nil {
		return err
	}

	client, err := s.clientRepo.FindByID(ctx, decision.Scope, id)
	if err != nil {
		return err
	}

	count, err := s.clientRepo.CountInvoices(ctx, client.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Validation("Client has invoices and cannot be deleted")
	}

	if err := s.clientRepo.Delete(ctx, client.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionDelete, auditTableClients, client.ID, clientSnapshot(*client), nil)
	return nil
}

func validateClient(client *models.Client) error {
	var missing []string
	if client.Name == "" {
		missing = append(missing, "name")
	}
	if client.PICName == "" {
		missing = append(missing, "pic_name")
	}
	if client.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return apperrors.MissingFields(missing...)
	}
	if !client.Status.Valid() {
		return apperrors.Validation("Invalid client status", "status")
	}
	return nil
}

func clientSnapshot(c models.Client) models.Client {
	c.Assignee = nil
	return c
}
