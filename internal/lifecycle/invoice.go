package lifecycle

import (
	"fmt"
	"time"

	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
)

// closers may move an invoice into done.
var closers = map[models.Role]bool{
	models.RoleAdmin:    true,
	models.RoleDirector: true,
	models.RoleFinance:  true,
}

// Transition moves inv to target on behalf of role, stamping sent_at and
// paid_at the first time those states are entered. It reports whether the
// invoice changed; moving to the current status is a no-op.
func Transition(inv *models.Invoice, target models.InvoiceStatus, role models.Role, now time.Time) (bool, error) {
	if !target.Valid() {
		return false, apperrors.Validation(fmt.Sprintf("Unknown invoice status %q", target), "status")
	}

	current := inv.Status
	if current == target {
		return false, nil
	}
	if current == models.InvoiceStatusDone {
		return false, illegal(current, target)
	}

	switch target {
	case models.InvoiceStatusDraft:
		return false, illegal(current, target)

	case models.InvoiceStatusSent:
		if current != models.InvoiceStatusDraft {
			return false, illegal(current, target)
		}
		if inv.SentAt == nil {
			inv.SentAt = &now
		}

	case models.InvoiceStatusPaid:
		if inv.PaidAt == nil {
			inv.PaidAt = &now
		}

	case models.InvoiceStatusOverdue:
		if current != models.InvoiceStatusDraft && current != models.InvoiceStatusSent {
			return false, illegal(current, target)
		}
		if !inv.DueDate.Before(now) {
			return false, apperrors.Validation("Invoice is not past its due date", "status")
		}

	case models.InvoiceStatusDone:
		if !closers[role] {
			return false, apperrors.Forbidden("Only finance, admin or director may close an invoice")
		}
	}

	inv.Status = target
	return true, nil
}

// EffectiveStatus is the status shown on reads: an unpaid, open invoice past
// its due date displays as overdue. Nothing is written.
func EffectiveStatus(inv *models.Invoice, now time.Time) models.InvoiceStatus {
	switch inv.Status {
	case models.InvoiceStatusPaid, models.InvoiceStatusDone:
		return inv.Status
	}
	if inv.DueDate.Before(now) {
		return models.InvoiceStatusOverdue
	}
	return inv.Status
}

// CanTransition reports whether Transition would accept the move without
// changing inv.
func CanTransition(inv models.Invoice, target models.InvoiceStatus, role models.Role, now time.Time) bool {
	_, err := Transition(&inv, target, role, now)
	return err == nil
}

func illegal(from, to models.InvoiceStatus) error {
	return apperrors.Validation(fmt.Sprintf("Cannot move invoice from %s to %s", from, to), "status")
}
