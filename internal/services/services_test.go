package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/idgen"
	"github.com/yukikurage/taxoffice-api/internal/metrics"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

// testEnv wires every service against one in-memory database and a fixed clock.
type testEnv struct {
	ctx     context.Context
	db      *gorm.DB
	metrics *metrics.Metrics

	audit    *AuditService
	clients  *ClientService
	invoices *InvoiceService
	payments *PaymentService
	tasks    *TaskService
	users    *UserService
	reports  *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithAudit(t, nil)
}

// newTestEnvWithAudit lets a test swap the audit store.
func newTestEnvWithAudit(t *testing.T, auditRepo repository.AuditRepository) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	policy := authz.MustNewPolicy()
	m := metrics.New()
	node, err := idgen.NewNode(1)
	require.NoError(t, err)

	if auditRepo == nil {
		auditRepo = repository.NewAuditRepository(db)
	}
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	clock := func() time.Time { return fixedNow }

	audit := NewAuditService(auditRepo, policy, node, m, zap.NewNop())
	audit.now = clock
	invoices := NewInvoiceService(invoiceRepo, clientRepo, policy, audit, m)
	invoices.now = clock
	payments := NewPaymentService(db, paymentRepo, invoiceRepo, policy, audit, m)
	payments.now = clock
	tasks := NewTaskService(taskRepo, userRepo, clientRepo, policy, audit, nil)
	tasks.now = clock
	reports := NewReportService(clientRepo, invoiceRepo, paymentRepo, taskRepo, userRepo, policy)
	reports.now = clock

	return &testEnv{
		ctx:      context.Background(),
		db:       db,
		metrics:  m,
		audit:    audit,
		clients:  NewClientService(clientRepo, userRepo, policy, audit),
		invoices: invoices,
		payments: payments,
		tasks:    tasks,
		users:    NewUserService(userRepo, policy, audit),
		reports:  reports,
	}
}

// auditEntries returns the audit rows for table, oldest first.
func (e *testEnv) auditEntries(t *testing.T, table string) []models.AuditLog {
	t.Helper()

	var entries []models.AuditLog
	require.NoError(t, e.db.Where("table_name = ?", table).Order("id ASC").Find(&entries).Error)
	return entries
}

// decodeSnapshot unmarshals an audit snapshot into a generic map.
func decodeSnapshot(t *testing.T, raw []byte) map[string]any {
	t.Helper()

	if len(raw) == 0 {
		return nil
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// failingAuditRepo rejects every write.
type failingAuditRepo struct{}

func (failingAuditRepo) Insert(context.Context, *models.AuditLog) error {
	return errors.New("audit store unavailable")
}

func (failingAuditRepo) List(context.Context, repository.AuditFilter) ([]models.AuditLog, int64, error) {
	return nil, 0, nil
}

func ptr[T any](v T) *T {
	return &v
}
