package repository

import (
	"context"
	"strings"

	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/database"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClientRepository is a GORM implementation of ClientRepository
type GormClientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &GormClientRepository{db: db}
}

// Create inserts a client
func (r *GormClientRepository) Create(ctx context.Context, client *models.Client) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(client).Error, "Client")
}

// FindByID finds a client inside scope
func (r *GormClientRepository) FindByID(ctx context.Context, scope authz.Scope, id string) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Scopes(ownedBy(scope, "clients.assigned_to")).
		Preload("Assignee").
		Where("clients.id = ?", id).
		First(&client).Error
	if err != nil {
		return nil, translate(err, "Client")
	}
	return &client, nil
}

// List retrieves clients with filtering and pagination
func (r *GormClientRepository) List(ctx context.Context, scope authz.Scope, filter ClientFilter) ([]models.Client, int64, error) {
	var clients []models.Client

	query := r.db.WithContext(ctx).Model(&models.Client{}).Scopes(ownedBy(scope, "clients.assigned_to"))

	// Apply filters
	if filter.Status != nil {
		query = query.Where("clients.status = ?", *filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("clients.category = ?", filter.Category)
	}
	if filter.AssignedTo != nil {
		query = query.Where("clients.assigned_to = ?", *filter.AssignedTo)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(clients.name) LIKE ? OR LOWER(clients.pic_name) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "Client")
	}

	err := query.
		Order("clients.name ASC").
		Scopes(database.Paginate(filter.Pagination)).
		Preload("Assignee").
		Find(&clients).Error
	if err != nil {
		return nil, 0, translate(err, "Client")
	}

	return clients, total, nil
}

// Update saves a client
func (r *GormClientRepository) Update(ctx context.Context, client *models.Client) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(client).Error, "Client")
}

// Delete removes a client
func (r *GormClientRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Client{})
	if result.Error != nil {
		return translate(result.Error, "Client")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "Client")
	}
	return nil
}

// CountInvoices counts invoices billed to a client
func (r *GormClientRepository) CountInvoices(ctx context.Context, clientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, translate(err, "Invoice")
}
