package services

import (
	"context"
	"strings"

	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
)

// UserService manages staff accounts
type UserService struct {
	userRepo repository.UserRepository
	policy   *authz.Policy
	audit    *AuditService
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, policy *authz.Policy, audit *AuditService) *UserService {
	return &UserService{
		userRepo: userRepo,
		policy:   policy,
		audit:    audit,
	}
}

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	Name         string
	Email        string
	Password     string
	Role         models.Role
	TeamLeaderID *uint64
}

// UpdateUserInput represents input for updating a user
type UpdateUserInput struct {
	Name            *string
	Email           *string
	Password        *string
	Role            *models.Role
	Status          *models.UserStatus
	TeamLeaderID    *uint64
	ClearTeamLeader bool
}

// ListUsers returns users visible to identity
func (s *UserService) ListUsers(ctx context.Context, identity *auth.Identity, filter repository.UserFilter) ([]models.User, int64, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceUser, authz.ActionRead)
	if err != nil {
		return nil, 0, err
	}
	return s.userRepo.List(ctx, decision.Scope, filter)
}

// GetUser returns a single user in scope
func (s *UserService) GetUser(ctx context.Context, identity *auth.Identity, id uint64) (*models.User, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceUser, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.userRepo.FindScoped(ctx, decision.Scope, id)
}

// CreateUser creates an active user
func (s *UserService) CreateUser(ctx context.Context, identity *auth.Identity, input CreateUserInput) (*models.User, error) {
	if _, err := s.policy.Authorize(identity, authz.ResourceUser, authz.ActionCreate); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		Role:         input.Role,
		Status:       models.UserStatusActive,
		TeamLeaderID: input.TeamLeaderID,
	}

	var missing []string
	if user.Name == "" {
		missing = append(missing, "name")
	}
	if user.Email == "" {
		missing = append(missing, "email")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if user.Role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return nil, apperrors.MissingFields(missing...)
	}
	if err := s.validateUser(ctx, user); err != nil {
		return nil, err
	}
	if err := s.ensureEmailAvailable(ctx, user.Email, 0); err != nil {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionCreate, auditTableUsers, recordID(user.ID), nil, *user)
	return user, nil
}

// UpdateUser applies a partial update. A team leader with active members
// cannot be deactivated or moved to another role.
func (s *UserService) UpdateUser(ctx context.Context, identity *auth.Identity, id uint64, input UpdateUserInput) (*models.User, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceUser, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindScoped(ctx, decision.Scope, id)
	if err != nil {
		return nil, err
	}
	before := *user
	before.TeamLeader = nil

	if input.Name != nil {
		user.Name = strings.TrimSpace(*input.Name)
		if user.Name == "" {
			return nil, apperrors.Validation("Name cannot be empty", "name")
		}
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != user.Email {
			if err := s.ensureEmailAvailable(ctx, email, user.ID); err != nil {
				return nil, err
			}
		}
		user.Email = email
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Status != nil {
		user.Status = *input.Status
	}
	if input.ClearTeamLeader {
		user.TeamLeaderID = nil
	} else if input.TeamLeaderID != nil {
		user.TeamLeaderID = input.TeamLeaderID
	}

	if err := s.validateUser(ctx, user); err != nil {
		return nil, err
	}
	if before.Role == models.RoleTeamLeader && before.IsActive() && (user.Role != models.RoleTeamLeader || !user.IsActive()) {
		if err := s.ensureNoActiveMembers(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	if user.ID == identity.ID && !user.IsActive() {
		return nil, apperrors.Validation("You cannot deactivate your own account", "status")
	}

	if input.Password != nil {
		hash, err := HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.TeamLeader = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionUpdate, auditTableUsers, recordID(user.ID), before, *user)
	return user, nil
}

// DeactivateUser marks a user inactive. Users are never hard-deleted.
func (s *UserService) DeactivateUser(ctx context.Context, identity *auth.Identity, id uint64) (*models.User, error) {
	decision, err := s.policy.Authorize(identity, authz.ResourceUser, authz.ActionDelete)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindScoped(ctx, decision.Scope, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return user, nil
	}
	if user.ID == identity.ID {
		return nil, apperrors.Validation("You cannot deactivate your own account", "status")
	}
	if user.Role == models.RoleTeamLeader {
		if err := s.ensureNoActiveMembers(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	before := *user
	user.Status = models.UserStatusInactive
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, models.AuditActionUpdate, auditTableUsers, recordID(user.ID), before, *user)
	return user, nil
}

func (s *UserService) validateUser(ctx context.Context, user *models.User) error {
	if !strings.Contains(user.Email, "@") {
		return apperrors.Validation("Invalid email address", "email")
	}
	if !user.Role.Valid() {
		return apperrors.Validation("Invalid role", "role")
	}
	if user.Status != models.UserStatusActive && user.Status != models.UserStatusInactive {
		return apperrors.Validation("Invalid status", "status")
	}
	if user.TeamLeaderID == nil {
		return nil
	}
	if user.ID != 0 && *user.TeamLeaderID == user.ID {
		return apperrors.Validation("A user cannot lead themselves", "team_leader_id")
	}

	leader, err := s.userRepo.FindByID(ctx, *user.TeamLeaderID)
	if err != nil {
		if isNotFound(err) {
			return apperrors.Validation("Team leader does not exist", "team_leader_id")
		}
		return err
	}
	if leader.Role != models.RoleTeamLeader || !leader.IsActive() {
		return apperrors.Validation("Team leader must be an active team leader", "team_leader_id")
	}
	return nil
}

func (s *UserService) ensureEmailAvailable(ctx context.Context, email string, selfID uint64) error {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing.ID != selfID {
		return apperrors.Conflict("Email is already registered")
	}
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *UserService) ensureNoActiveMembers(ctx context.Context, leaderID uint64) error {
	count, err := s.userRepo.CountActiveMembers(ctx, leaderID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Validation("Team leader still has active team members; reassign them first", "status")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

