package repository

import (
	"context"

	"github.com/yukikurage/taxoffice-api/internal/database"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"gorm.io/gorm"
)

// GormAuditRepository is a GORM implementation of AuditRepository
type GormAuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &GormAuditRepository{db: db}
}

// Insert appends an entry
func (r *GormAuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error, "Audit log")
}

// List retrieves entries newest first
func (r *GormAuditRepository) List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, int64, error) {
	var entries []models.AuditLog

	query := r.db.WithContext(ctx).Model(&models.AuditLog{}).
		Scopes(database.Between("audit_logs.created_at", filter.From, filter.To))
	if filter.Table != "" {
		query = query.Where("audit_logs.table_name = ?", filter.Table)
	}
	if filter.RecordID != "" {
		query = query.Where("audit_logs.record_id = ?", filter.RecordID)
	}
	if filter.UserID != nil {
		query = query.Where("audit_logs.user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		query = query.Where("audit_logs.action = ?", *filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "Audit log")
	}

	err := query.
		Order("audit_logs.created_at DESC").
		Order("audit_logs.id DESC").
		Scopes(database.Paginate(filter.Pagination)).
		Find(&entries).Error
	if err != nil {
		return nil, 0, translate(err, "Audit log")
	}

	return entries, total, nil
}
