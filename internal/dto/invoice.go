package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yukikurage/taxoffice-api/internal/lifecycle"
	"github.com/yukikurage/taxoffice-api/internal/models"
)

// InvoiceClientDTO is the client summary embedded in an invoice
type InvoiceClientDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InvoiceDTO represents an invoice in API responses. Status is the stored
// status; DisplayStatus shows overdue for unpaid invoices past their due date.
type InvoiceDTO struct {
	ID                 uint64                 `json:"id"`
	InvoiceNumber      string                 `json:"invoice_number"`
	ClientID           string                 `json:"client_id"`
	Client             *InvoiceClientDTO      `json:"client,omitempty"`
	Period             string                 `json:"period"`
	Amount             decimal.Decimal        `json:"amount"`
	DueDate            time.Time              `json:"due_date"`
	Status             models.InvoiceStatus   `json:"status"`
	DisplayStatus      models.InvoiceStatus   `json:"display_status"`
	AllowedTransitions []models.InvoiceStatus `json:"allowed_transitions"`
	BankAccountID      *uint64                `json:"bank_account_id"`
	Notes              string                 `json:"notes"`
	CreatedBy          uint64                 `json:"created_by"`
	SentAt             *time.Time             `json:"sent_at"`
	PaidAt             *time.Time             `json:"paid_at"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// ToInvoiceDTO converts an Invoice model to InvoiceDTO for a caller with role.
// AllowedTransitions stays empty when the caller may not transition invoices.
func ToInvoiceDTO(invoice models.Invoice, role models.Role, canTransition bool, now time.Time) InvoiceDTO {
	out := InvoiceDTO{
		ID:                 invoice.ID,
		InvoiceNumber:      invoice.InvoiceNumber,
		ClientID:           invoice.ClientID,
		Period:             invoice.Period,
		Amount:             invoice.Amount,
		DueDate:            invoice.DueDate,
		Status:             invoice.Status,
		DisplayStatus:      lifecycle.EffectiveStatus(&invoice, now),
		AllowedTransitions: []models.InvoiceStatus{},
		BankAccountID:      invoice.BankAccountID,
		Notes:              invoice.Notes,
		CreatedBy:          invoice.CreatedBy,
		SentAt:             invoice.SentAt,
		PaidAt:             invoice.PaidAt,
		CreatedAt:          invoice.CreatedAt,
		UpdatedAt:          invoice.UpdatedAt,
	}

	if invoice.Client != nil && invoice.Client.ID != "" {
		out.Client = &InvoiceClientDTO{ID: invoice.Client.ID, Name: invoice.Client.Name}
	}

	if !canTransition {
		return out
	}
	for _, target := range models.InvoiceStatuses {
		if target != invoice.Status && lifecycle.CanTransition(invoice, target, role, now) {
			out.AllowedTransitions = append(out.AllowedTransitions, target)
		}
	}

	return out
}

func ToInvoiceDTOs(invoices []models.Invoice, role models.Role, canTransition bool, now time.Time) []InvoiceDTO {
	out := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		out[i] = ToInvoiceDTO(inv, role, canTransition, now)
	}
	return out
}
