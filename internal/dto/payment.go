package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yukikurage/taxoffice-api/internal/models"
)

// PaymentDTO represents a payment in API responses
type PaymentDTO struct {
	ID              uint64               `json:"id"`
	InvoiceID       uint64               `json:"invoice_id"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	Amount          decimal.Decimal      `json:"amount"`
	PaymentDate     time.Time            `json:"payment_date"`
	ReferenceNumber string               `json:"reference_number"`
	Notes           string               `json:"notes"`
	RecordedBy      uint64               `json:"recorded_by"`
	CreatedAt       time.Time            `json:"created_at"`
}

// RecordPaymentResponse is returned after recording a payment
type RecordPaymentResponse struct {
	Payment PaymentDTO `json:"payment"`
	Invoice InvoiceDTO `json:"invoice"`
	Settled bool       `json:"settled"`
}

// ToPaymentDTO converts a Payment model to PaymentDTO
func ToPaymentDTO(payment models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:              payment.ID,
		InvoiceID:       payment.InvoiceID,
		PaymentMethod:   payment.PaymentMethod,
		Amount:          payment.Amount,
		PaymentDate:     payment.PaymentDate,
		ReferenceNumber: payment.ReferenceNumber,
		Notes:           payment.Notes,
		RecordedBy:      payment.RecordedBy,
		CreatedAt:       payment.CreatedAt,
	}
}

func ToPaymentDTOs(payments []models.Payment) []PaymentDTO {
	out := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		out[i] = ToPaymentDTO(p)
	}
	return out
}
