package services

import (
	"context"
	"errors"

	"github.com/yukikurage/taxoffice-api/internal/authz"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
)

// resolveAssignee loads the user that work is being assigned to and checks
// that the user lies inside scope.
func resolveAssignee(ctx context.Context, users repository.UserRepository, scope authz.Scope, userID uint64, field string) (*models.User, error) {
	user, err := users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.Validation("Assignee does not exist", field)
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, apperrors.Validation("Assignee is inactive", field)
	}
	if !scope.Allows(&user.ID, user.TeamLeaderID) {
		return nil, apperrors.Forbidden("Cannot assign work outside your team")
	}
	return user, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
