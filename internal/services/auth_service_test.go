package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/testutil"
)

func newAuthService(t *testing.T) (*AuthService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	return NewAuthService(repository.NewUserRepository(env.db), tokens), env
}

func TestAuthService_Login(t *testing.T) {
	svc, env := newAuthService(t)
	user := testutil.CreateUser(t, env.db, "finance@example.com", models.RoleFinance)

	result, err := svc.Login(env.ctx, LoginInput{Email: " Finance@Example.com ", Password: testutil.Password})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	me, err := svc.Me(env.ctx, &auth.Identity{ID: user.ID, Role: user.Role})
	require.NoError(t, err)
	assert.Equal(t, "finance@example.com", me.Email)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, env := newAuthService(t)
	testutil.CreateUser(t, env.db, "member@example.com", models.RoleTeamMember)
	inactive := testutil.CreateUser(t, env.db, "gone@example.com", models.RoleTeamMember, testutil.Inactive())

	_, err := svc.Login(env.ctx, LoginInput{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Login(env.ctx, LoginInput{Email: "member@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = svc.Login(env.ctx, LoginInput{Email: "nobody@example.com", Password: testutil.Password})
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = svc.Login(env.ctx, LoginInput{Email: "gone@example.com", Password: testutil.Password})
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = svc.Me(env.ctx, testutil.IdentityOf(inactive))
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = svc.Me(env.ctx, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}
