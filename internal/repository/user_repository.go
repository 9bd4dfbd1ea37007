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

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error, "User")
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "User")
	}
	return &user, nil
}

// FindScoped finds a user visible in scope. Self scope sees only the caller;
// team scope adds the caller's direct reports.
func (r *GormUserRepository) FindScoped(ctx context.Context, scope authz.Scope, id uint64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Scopes(ownedBy(scope, "users.id")).
		Where("users.id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, translate(err, "User")
	}
	return &user, nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, translate(err, "User")
	}
	return &user, nil
}

// List retrieves users with filtering and pagination
func (r *GormUserRepository) List(ctx context.Context, scope authz.Scope, filter UserFilter) ([]models.User, int64, error) {
	var users []models.User

	query := r.db.WithContext(ctx).Model(&models.User{}).Scopes(ownedBy(scope, "users.id"))
	if filter.Role != nil {
		query = query.Where("users.role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("users.status = ?", *filter.Status)
	}
	if filter.TeamLeaderID != nil {
		query = query.Where("users.team_leader_id = ?", *filter.TeamLeaderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "User")
	}

	err := query.
		Order("users.name ASC").
		Order("users.id ASC").
		Scopes(database.Paginate(filter.Pagination)).
		Find(&users).Error
	if err != nil {
		return nil, 0, translate(err, "User")
	}

	return users, total, nil
}

// Update saves a user
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error, "User")
}

// CountActiveMembers counts active users whose team leader is leaderID
func (r *GormUserRepository) CountActiveMembers(ctx context.Context, leaderID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("team_leader_id = ? AND status = ?", leaderID, models.UserStatusActive).
		Count(&count).Error
	return count, translate(err, "User")
}
