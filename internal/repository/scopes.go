package repository

import (
	"time"

	"github.com/yukikurage/taxoffice-api/internal/authz"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"gorm.io/gorm"
)

// ownedBy restricts rows by ownerColumn. Team scope matches the caller and
// every user whose team leader is the caller.
func ownedBy(scope authz.Scope, ownerColumn string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch scope.Kind {
		case authz.ScopeAll:
			return db
		case authz.ScopeTeam:
			team := db.Session(&gorm.Session{NewDB: true}).
				Model(&models.User{}).
				Select("id").
				Where("team_leader_id = ?", scope.UserID)
			return db.Where("("+ownerColumn+" = ? OR "+ownerColumn+" IN (?))", scope.UserID, team)
		default:
			return db.Where(ownerColumn+" = ?", scope.UserID)
		}
	}
}

// scopedClientIDs selects the IDs of clients visible in scope.
func scopedClientIDs(db *gorm.DB, scope authz.Scope) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Client{}).
		Select("clients.id").
		Scopes(ownedBy(scope, "clients.assigned_to"))
}

// invoicesInScope restricts invoices to those billed to a client in scope.
func invoicesInScope(scope authz.Scope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.IsAll() {
			return db
		}
		return db.Where("invoices.client_id IN (?)", scopedClientIDs(db, scope))
	}
}

// paymentsInScope restricts payments to those against an invoice in scope.
func paymentsInScope(scope authz.Scope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.IsAll() {
			return db
		}
		invoices := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Invoice{}).
			Select("invoices.id").
			Where("invoices.client_id IN (?)", scopedClientIDs(db, scope))
		return db.Where("payments.invoice_id IN (?)", invoices)
	}
}

// subtasksInScope restricts subtasks to those whose parent task is in scope.
func subtasksInScope(scope authz.Scope) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.IsAll() {
			return db
		}
		tasks := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Task{}).
			Select("tasks.id").
			Scopes(ownedBy(scope, "tasks.assigned_to"))
		return db.Where("subtasks.task_id IN (?)", tasks)
	}
}

// invoicesDisplayedAs matches invoices whose displayed status is status at
// asOf. Open invoices past their due date display as overdue.
func invoicesDisplayedAs(status models.InvoiceStatus, asOf time.Time) func(*gorm.DB) *gorm.DB {
	open := []models.InvoiceStatus{models.InvoiceStatusDraft, models.InvoiceStatusSent}
	return func(db *gorm.DB) *gorm.DB {
		switch status {
		case models.InvoiceStatusOverdue:
			return db.Where("(invoices.status = ? OR (invoices.status IN ? AND invoices.due_date < ?))", status, open, asOf)
		case models.InvoiceStatusDraft, models.InvoiceStatusSent:
			return db.Where("invoices.status = ? AND invoices.due_date >= ?", status, asOf)
		default:
			return db.Where("invoices.status = ?", status)
		}
	}
}
