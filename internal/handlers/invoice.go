package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	"github.com/yukikurage/taxoffice-api/internal/dto"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/middleware"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"github.com/yukikurage/taxoffice-api/internal/utils"
	"go.uber.org/zap"
)

type InvoiceHandler struct {
	invoiceService *services.InvoiceService
	log            *zap.Logger
}

func NewInvoiceHandler(invoiceService *services.InvoiceService, log *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		log:            log,
	}
}

// ListInvoices returns invoices visible to the caller
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	status, err := queryEnum(c, "status", models.InvoiceStatus.Valid)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}
	dueFrom, err := queryTime(c, "due_from")
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}
	dueTo, err := queryTime(c, "due_to")
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	params := utils.GetPaginationParams(c)
	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), identity, repository.InvoiceFilter{
		ClientID:   c.Query("client_id"),
		Status:     status,
		DueFrom:    dueFrom,
		DueTo:      endOfRange(dueTo),
		Pagination: params,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	items := dto.ToInvoiceDTOs(invoices, identity.Role, h.invoiceService.CanTransition(identity.Role), h.invoiceService.Now())
	c.JSON(http.StatusOK, dto.NewListResponse(items, params, total))
}

// GetInvoice returns an invoice by ID
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), identity, middleware.GetNumericID(c))
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, invoiceView(h.invoiceService, identity, *invoice))
}

// CreateInvoice creates a draft invoice with the next invoice number
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type CreateInvoiceRequest struct {
		ClientID      string          `json:"client_id"`
		Period        string          `json:"period"`
		Amount        decimal.Decimal `json:"amount"`
		DueDate       string          `json:"due_date"`
		BankAccountID *uint64         `json:"bank_account_id"`
		Notes         string          `json:"notes"`
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	dueDate, err := parseTime("due_date", req.DueDate)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), identity, services.CreateInvoiceInput{
		ClientID:      req.ClientID,
		Period:        req.Period,
		Amount:        req.Amount,
		DueDate:       dueDate,
		BankAccountID: req.BankAccountID,
		Notes:         req.Notes,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, invoiceView(h.invoiceService, identity, *invoice))
}

// UpdateInvoice applies a partial update to an invoice
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type UpdateInvoiceRequest struct {
		ClientID      *string               `json:"client_id"`
		Period        *string               `json:"period"`
		Amount        *decimal.Decimal      `json:"amount"`
		DueDate       *string               `json:"due_date"`
		BankAccountID *uint64               `json:"bank_account_id"`
		Notes         *string               `json:"notes"`
		Status        *models.InvoiceStatus `json:"status"`
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	dueDate, err := parseOptionalTime("due_date", req.DueDate)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), identity, middleware.GetNumericID(c), services.UpdateInvoiceInput{
		ClientID:      req.ClientID,
		Period:        req.Period,
		Amount:        req.Amount,
		DueDate:       dueDate,
		BankAccountID: req.BankAccountID,
		Notes:         req.Notes,
		Status:        req.Status,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, invoiceView(h.invoiceService, identity, *invoice))
}

// UpdateInvoiceStatus moves an invoice through its lifecycle
func (h *InvoiceHandler) UpdateInvoiceStatus(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Status models.InvoiceStatus `json:"status"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}
	if req.Status == "" {
		apperrors.Respond(c, h.log, apperrors.MissingFields("status"))
		return
	}

	invoice, err := h.invoiceService.TransitionInvoice(c.Request.Context(), identity, middleware.GetNumericID(c), req.Status)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, invoiceView(h.invoiceService, identity, *invoice))
}

// DeleteInvoice deletes an invoice without payments
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), identity, middleware.GetNumericID(c)); err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
}

// invoiceView renders invoice for identity with its displayed status and the
// transitions the caller may request.
func invoiceView(svc *services.InvoiceService, identity *auth.Identity, invoice models.Invoice) dto.InvoiceDTO {
	return dto.ToInvoiceDTO(invoice, identity.Role, svc.CanTransition(identity.Role), svc.Now())
}
