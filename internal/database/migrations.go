package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes used by scoped listings and reports.
// Single column indexes are declared on the models.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Scoped listings filter by owner first, then status
		{"clients", "idx_clients_assignee_status", "assigned_to, status"},
		{"invoices", "idx_invoices_client_status", "client_id, status"},
		{"tasks", "idx_tasks_assignee_status", "assigned_to, status"},
		{"subtasks", "idx_subtasks_task_status", "task_id, status"},

		// Team scope subquery
		{"users", "idx_users_leader_status", "team_leader_id, status"},

		// Revenue reports
		{"payments", "idx_payments_invoice_date", "invoice_id, payment_date"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Debug("index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}
