package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/metrics"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Audit table names
const (
	auditTableClients  = "clients"
	auditTableInvoices = "invoices"
	auditTablePayments = "payments"
	auditTableTasks    = "tasks"
	auditTableSubtasks = "subtasks"
	auditTableUsers    = "users"
)

// AuditService appends audit log entries after a mutation has committed.
// Write failures are logged and counted, never returned to the caller.
type AuditService struct {
	auditRepo repository.AuditRepository
	policy    *authz.Policy
	node      *snowflake.Node
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewAuditService creates a new AuditService. auditRepo must be bound to the
// root store handle, not to a transaction.
func NewAuditService(auditRepo repository.AuditRepository, policy *authz.Policy, node *snowflake.Node, m *metrics.Metrics, log *zap.Logger) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		policy:    policy,
		node:      node,
		metrics:   m,
		log:       log.Named("audit.recorder"),
		now:       time.Now,
	}
}

// deletion is the after-snapshot of a removed row.
type deletion struct {
	Deleted   bool      `json:"deleted"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Record appends one entry. before is nil for creates. A delete recorded with a
// nil after gets a deletion marker so new_values is never empty.
func (s *AuditService) Record(ctx context.Context, actorID uint64, action models.AuditAction, table, rowID string, before, after any) {
	entry := &models.AuditLog{
		ID:        s.node.Generate().Int64(),
		UserID:    actorID,
		Action:    action,
		Table:     table,
		RecordID:  rowID,
		CreatedAt: s.now(),
	}
	if action == models.AuditActionDelete && after == nil {
		after = deletion{Deleted: true, DeletedAt: entry.CreatedAt}
	}

	var err error
	if entry.OldValues, err = snapshot(before); err == nil {
		entry.NewValues, err = snapshot(after)
	}
	if err == nil {
		// The primary write has committed; a cancelled request must not drop the entry.
		err = s.auditRepo.Insert(context.WithoutCancel(ctx), entry)
	}

	if err != nil {
		s.metrics.AuditWriteFailed()
		s.log.Error("failed to write audit log",
			zap.Uint64("user_id", actorID),
			zap.String("action", string(action)),
			zap.String("table", table),
			zap.String("record_id", rowID),
			zap.Error(err),
		)
	}
}

// List returns audit entries newest first.
func (s *AuditService) List(ctx context.Context, identity *auth.Identity, filter repository.AuditFilter) ([]models.AuditLog, int64, error) {
	if _, err := s.policy.Authorize(identity, authz.ResourceAuditLog, authz.ActionRead); err != nil {
		return nil, 0, err
	}
	return s.auditRepo.List(ctx, filter)
}

func snapshot(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func recordID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
