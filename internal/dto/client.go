package dto

import (
	"time"

	"github.com/yukikurage/taxoffice-api/internal/models"
)

// ClientDTO represents a client in API responses
type ClientDTO struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	PICName          string              `json:"pic_name"`
	PICPhone         string              `json:"pic_phone"`
	Address          string              `json:"address"`
	TaxID            string              `json:"tax_id"`
	Category         string              `json:"category"`
	AssignedTo       *uint64             `json:"assigned_to"`
	Assignee         *UserSummaryDTO     `json:"assignee,omitempty"`
	Status           models.ClientStatus `json:"status"`
	RecurringDueDate *time.Time          `json:"recurring_due_date"`
	Notes            string              `json:"notes"`
	Tags             []string            `json:"tags"`
	CreatedBy        uint64              `json:"created_by"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// ToClientDTO converts a Client model to ClientDTO
func ToClientDTO(client models.Client) ClientDTO {
	tags := client.Tags
	if tags == nil {
		tags = []string{}
	}
	return ClientDTO{
		ID:               client.ID,
		Name:             client.Name,
		PICName:          client.PICName,
		PICPhone:         client.PICPhone,
		Address:          client.Address,
		TaxID:            client.TaxID,
		Category:         client.Category,
		AssignedTo:       client.AssignedTo,
		Assignee:         ToUserSummaryDTO(client.Assignee),
		Status:           client.Status,
		RecurringDueDate: client.RecurringDueDate,
		Notes:            client.Notes,
		Tags:             tags,
		CreatedBy:        client.CreatedBy,
		CreatedAt:        client.CreatedAt,
		UpdatedAt:        client.UpdatedAt,
	}
}

func ToClientDTOs(clients []models.Client) []ClientDTO {
	out := make([]ClientDTO, len(clients))
	for i, c := range clients {
		out[i] = ToClientDTO(c)
	}
	return out
}
