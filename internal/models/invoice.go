package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusDone    InvoiceStatus = "done"
)

// InvoiceStatuses lists every status in lifecycle order.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusDone,
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusDone:
		return true
	}
	return false
}

type Invoice struct {
	ID            uint64          `gorm:"primarykey" json:"id"`
	InvoiceNumber string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"invoice_number"`
	ClientID      string          `gorm:"type:varchar(36);not null;index" json:"client_id"`
	Period        string          `gorm:"type:varchar(50)" json:"period"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	DueDate       time.Time       `gorm:"not null;index" json:"due_date"`
	Status        InvoiceStatus   `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	BankAccountID *uint64         `json:"bank_account_id"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     uint64          `gorm:"not null" json:"created_by"`
	SentAt        *time.Time      `json:"sent_at"`
	PaidAt        *time.Time      `json:"paid_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Relations
	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}
