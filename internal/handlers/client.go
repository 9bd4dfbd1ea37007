package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/dto"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"github.com/yukikurage/taxoffice-api/internal/utils"
	"go.uber.org/zap"
)

type ClientHandler struct {
	clientService *services.ClientService
	log           *zap.Logger
}

func NewClientHandler(clientService *services.ClientService, log *zap.Logger) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		log:           log,
	}
}

// ListClients returns the clients visible to the caller
func (h *ClientHandler) ListClients(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	status, err := queryEnum(c, "status", models.ClientStatus.Valid)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}
	assignedTo, err := queryUint(c, "assigned_to")
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	params := utils.GetPaginationParams(c)
	clients, total, err := h.clientService.ListClients(c.Request.Context(), identity, repository.ClientFilter{
		Status:     status,
		Category:   c.Query("category"),
		AssignedTo: assignedTo,
		Search:     c.Query("search"),
		Pagination: params,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToClientDTOs(clients), params, total))
}

// GetClient returns a client by ID
func (h *ClientHandler) GetClient(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	client, err := h.clientService.GetClient(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToClientDTO(*client))
}

// CreateClient creates a new client
func (h *ClientHandler) CreateClient(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type CreateClientRequest struct {
		Name             string              `json:"name"`
		PICName          string              `json:"pic_name"`
		PICPhone         string              `json:"pic_phone"`
		Address          string              `json:"address"`
		TaxID            string              `json:"tax_id"`
		Category         string              `json:"category"`
		AssignedTo       *uint64             `json:"assigned_to"`
		Status           models.ClientStatus `json:"status"`
		RecurringDueDate *string             `json:"recurring_due_date"`
		Notes            string              `json:"notes"`
		Tags             []string            `json:"tags"`
	}

	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	recurringDueDate, err := parseOptionalTime("recurring_due_date", req.RecurringDueDate)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), identity, services.CreateClientInput{
		Name:             req.Name,
		PICName:          req.PICName,
		PICPhone:         req.PICPhone,
		Address:          req.Address,
		TaxID:            req.TaxID,
		Category:         req.Category,
		AssignedTo:       req.AssignedTo,
		Status:           req.Status,
		RecurringDueDate: recurringDueDate,
		Notes:            req.Notes,
		Tags:             req.Tags,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToClientDTO(*client))
}

// UpdateClient applies a partial update to a client
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type UpdateClientRequest struct {
		Name             *string              `json:"name"`
		PICName          *string              `json:"pic_name"`
		PICPhone         *string              `json:"pic_phone"`
		Address          *string              `json:"address"`
		TaxID            *string              `json:"tax_id"`
		Category         *string              `json:"category"`
		AssignedTo       *uint64              `json:"assigned_to"`
		Status           *models.ClientStatus `json:"status"`
		RecurringDueDate *string              `json:"recurring_due_date"`
		Notes            *string              `json:"notes"`
		Tags             []string             `json:"tags"`
	}

	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateClientInput{
		Name:       req.Name,
		PICName:    req.PICName,
		PICPhone:   req.PICPhone,
		Address:    req.Address,
		TaxID:      req.TaxID,
		Category:   req.Category,
		AssignedTo: req.AssignedTo,
		Status:     req.Status,
		Notes:      req.Notes,
		Tags:       req.Tags,
	}
	if req.RecurringDueDate != nil {
		if *req.RecurringDueDate == "" {
			input.ClearRecurringDueDate = true
		} else {
			due, err := parseTime("recurring_due_date", *req.RecurringDueDate)
			if err != nil {
				apperrors.Respond(c, h.log, err)
				return
			}
			input.RecurringDueDate = due
		}
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), identity, c.Param("id"), input)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToClientDTO(*client))
}

// DeleteClient deletes a client without invoices
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.clientService.DeleteClient(c.Request.Context(), identity, c.Param("id")); err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Client deleted successfully"})
}
