package repository

import (
	"context"
	"time"

	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/utils"
	"gorm.io/gorm"
)

// ClientRepository defines the interface for client data access
type ClientRepository interface {
	// Create inserts a client whose ID is already assigned
	Create(ctx context.Context, client *models.Client) error

	// FindByID finds a client inside scope; rows outside scope are not found
	FindByID(ctx context.Context, scope authz.Scope, id string) (*models.Client, error)

	// List retrieves clients inside scope with filtering and pagination
	List(ctx context.Context, scope authz.Scope, filter ClientFilter) ([]models.Client, int64, error)

	// Update saves every column of client
	Update(ctx context.Context, client *models.Client) error

	// Delete removes a client
	Delete(ctx context.Context, id string) error

	// CountInvoices counts invoices billed to a client
	CountInvoices(ctx context.Context, clientID string) (int64, error)
}

// ClientFilter holds filtering options for listing clients
type ClientFilter struct {
	Status     *models.ClientStatus
	Category   string
	AssignedTo *uint64
	Search     string
	Pagination utils.PaginationParams
}

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	WithTx(tx *gorm.DB) InvoiceRepository

	// CreateNumbered finds the highest number issued with prefix, assigns the
	// next one (offset by attempt) and inserts the invoice in one transaction
	CreateNumbered(ctx context.Context, invoice *models.Invoice, prefix string, attempt int) error

	// FindByID finds an invoice inside scope, preloading its client
	FindByID(ctx context.Context, scope authz.Scope, id uint64) (*models.Invoice, error)

	// FindByIDForUpdate loads and row-locks an invoice inside scope
	FindByIDForUpdate(ctx context.Context, scope authz.Scope, id uint64) (*models.Invoice, error)

	// List retrieves invoices inside scope with filtering and pagination
	List(ctx context.Context, scope authz.Scope, filter InvoiceFilter) ([]models.Invoice, int64, error)

	// Update saves every column of invoice
	Update(ctx context.Context, invoice *models.Invoice) error

	// Delete removes an invoice
	Delete(ctx context.Context, id uint64) error

	// CountPayments counts payments recorded against an invoice
	CountPayments(ctx context.Context, invoiceID uint64) (int64, error)
}

// InvoiceFilter holds filtering options for listing invoices
type InvoiceFilter struct {
	ClientID string
	// Status matches the displayed status: past-due draft and sent invoices
	// count as overdue as of AsOf.
	Status      *models.InvoiceStatus
	AsOf        time.Time
	DueFrom     *time.Time
	DueTo       *time.Time
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Pagination  utils.PaginationParams
}

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository

	// Create inserts a payment
	Create(ctx context.Context, payment *models.Payment) error

	// FindByID finds a payment whose invoice is inside scope
	FindByID(ctx context.Context, scope authz.Scope, id uint64) (*models.Payment, error)

	// List retrieves payments inside scope
	List(ctx context.Context, scope authz.Scope, filter PaymentFilter) ([]models.Payment, int64, error)
}

// PaymentFilter holds filtering options for listing payments
type PaymentFilter struct {
	InvoiceID  *uint64
	From       *time.Time
	To         *time.Time
	Pagination utils.PaginationParams
}

// TaskRepository defines the interface for task and subtask data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task inside scope with optional preloading
	FindByID(ctx context.Context, scope authz.Scope, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks inside scope with filtering and pagination
	List(ctx context.Context, scope authz.Scope, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error

	// Delete deletes a task and its subtasks
	Delete(ctx context.Context, id uint64) error

	// SubtaskCounts returns total and completed subtask counts per task
	SubtaskCounts(ctx context.Context, taskIDs []uint64) (map[uint64]SubtaskCount, error)

	// CreateSubtask creates a subtask
	CreateSubtask(ctx context.Context, subtask *models.Subtask) error

	// FindSubtask finds a subtask whose parent task is inside scope
	FindSubtask(ctx context.Context, scope authz.Scope, id uint64) (*models.Subtask, error)

	// ListSubtasks lists subtasks whose parent task is inside scope
	ListSubtasks(ctx context.Context, scope authz.Scope, taskID *uint64) ([]models.Subtask, error)

	// UpdateSubtask updates a subtask
	UpdateSubtask(ctx context.Context, subtask *models.Subtask) error

	// DeleteSubtask deletes a subtask
	DeleteSubtask(ctx context.Context, id uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	Category      *models.TaskCategory
	AssignedTo    *uint64
	ClientID      string
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	SortByDueDate bool
	Pagination    utils.PaginationParams
}

// SubtaskCount aggregates the subtasks of one task
type SubtaskCount struct {
	Total     int64
	Completed int64
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID regardless of scope
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindScoped finds a user inside scope
	FindScoped(ctx context.Context, scope authz.Scope, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users inside scope
	List(ctx context.Context, scope authz.Scope, filter UserFilter) ([]models.User, int64, error)

	// Update saves every column of user
	Update(ctx context.Context, user *models.User) error

	// CountActiveMembers counts active users reporting to a team leader
	CountActiveMembers(ctx context.Context, leaderID uint64) (int64, error)
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Role         *models.Role
	Status       *models.UserStatus
	TeamLeaderID *uint64
	Pagination   utils.PaginationParams
}

// AuditRepository defines the interface for the append-only audit log
type AuditRepository interface {
	// Insert appends an entry
	Insert(ctx context.Context, entry *models.AuditLog) error

	// List retrieves entries newest first
	List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, int64, error)
}

// AuditFilter holds filtering options for listing audit entries
type AuditFilter struct {
	Table      string
	RecordID   string
	UserID     *uint64
	Action     *models.AuditAction
	From       *time.Time
	To         *time.Time
	Pagination utils.PaginationParams
}
