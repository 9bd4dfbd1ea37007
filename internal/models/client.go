package models

import "time"

type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

func (s ClientStatus) Valid() bool {
	return s == ClientStatusActive || s == ClientStatusInactive
}

// Client is a customer of the firm. The ID is assigned by the service before
// the row is written so it is known ahead of the commit.
type Client struct {
	ID               string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name             string       `gorm:"type:varchar(255);not null" json:"name"`
	PICName          string       `gorm:"column:pic_name;type:varchar(255);not null" json:"pic_name"`
	PICPhone         string       `gorm:"column:pic_phone;type:varchar(50)" json:"pic_phone"`
	Address          string       `gorm:"type:text" json:"address"`
	TaxID            string       `gorm:"column:tax_id;type:varchar(50)" json:"tax_id"`
	Category         string       `gorm:"type:varchar(100);not null" json:"category"`
	AssignedTo       *uint64      `gorm:"index" json:"assigned_to"`
	Status           ClientStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	RecurringDueDate *time.Time   `json:"recurring_due_date"`
	Notes            string       `gorm:"type:text" json:"notes"`
	Tags             []string     `gorm:"type:text;serializer:json" json:"tags"`
	CreatedBy        uint64       `gorm:"not null" json:"created_by"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	// Relations
	Assignee *User `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
}
