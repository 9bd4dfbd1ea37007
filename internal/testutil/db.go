// Package testutil opens throwaway databases and seeds fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/database"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain text password of every seeded user.
const Password = "password123"

// NewDB opens a migrated in-memory SQLite database private to t. Connections
// share one cache so transactions and plain queries see the same data.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zap.NewNop()))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// UserOption tweaks a seeded user.
type UserOption func(*models.User)

// WithLeader places the user in leaderID's team.
func WithLeader(leaderID uint64) UserOption {
	return func(u *models.User) { u.TeamLeaderID = &leaderID }
}

// Inactive seeds the user as deactivated.
func Inactive() UserOption {
	return func(u *models.User) { u.Status = models.UserStatusInactive }
}

// CreateUser inserts a user whose password is Password.
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.Role, opts ...UserOption) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Name:         strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       models.UserStatusActive,
	}
	for _, opt := range opts {
		opt(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// IdentityOf returns the request identity of user.
func IdentityOf(user *models.User) *auth.Identity {
	return &auth.Identity{ID: user.ID, Email: user.Email, Role: user.Role}
}

// CreateClient inserts an active client assigned to assignee.
func CreateClient(t *testing.T, db *gorm.DB, name string, assignee uint64) *models.Client {
	t.Helper()

	client := &models.Client{
		ID:         uuid.NewString(),
		Name:       name,
		PICName:    "PIC " + name,
		Category:   "corporate",
		AssignedTo: &assignee,
		Status:     models.ClientStatusActive,
		CreatedBy:  assignee,
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

// Money parses a decimal literal.
func Money(amount string) decimal.Decimal {
	return decimal.RequireFromString(amount)
}

// CreateInvoice inserts an invoice for clientID with the given number and status.
func CreateInvoice(t *testing.T, db *gorm.DB, clientID, number string, amount string, status models.InvoiceStatus, dueDate time.Time) *models.Invoice {
	t.Helper()

	invoice := &models.Invoice{
		InvoiceNumber: number,
		ClientID:      clientID,
		Amount:        Money(amount),
		DueDate:       dueDate,
		Status:        status,
		CreatedBy:     1,
	}
	require.NoError(t, db.Omit("Client").Create(invoice).Error)
	return invoice
}

// CreateTask inserts a pending task assigned to assignee.
func CreateTask(t *testing.T, db *gorm.DB, title string, assignee uint64) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:        title,
		Status:       models.TaskStatusPending,
		Priority:     models.TaskPriorityMedium,
		AssignedTo:   assignee,
		AssignedBy:   assignee,
		TaskCategory: models.TaskCategoryCase,
	}
	require.NoError(t, db.Omit("Assignee", "Subtasks").Create(task).Error)
	return task
}

// CountRows counts the rows of model matching the optional condition.
func CountRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()

	var count int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&count).Error)
	return count
}
