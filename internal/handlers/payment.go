package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yukikurage/taxoffice-api/internal/dto"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/middleware"
	"github.com/yukikurage/taxoffice-api/internal/models"
	"github.com/yukikurage/taxoffice-api/internal/repository"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"github.com/yukikurage/taxoffice-api/internal/utils"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	invoiceService *services.InvoiceService
	log            *zap.Logger
}

func NewPaymentHandler(paymentService *services.PaymentService, invoiceService *services.InvoiceService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		invoiceService: invoiceService,
		log:            log,
	}
}

// ListPayments returns payments visible to the caller
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	invoiceID, err := queryUint(c, "invoice_id")
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}
	from, err := queryTime(c, "from")
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	params := utils.GetPaginationParams(c)
	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), identity, repository.PaymentFilter{
		InvoiceID:  invoiceID,
		From:       from,
		To:         endOfRange(to),
		Pagination: params,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToPaymentDTOs(payments), params, total))
}

// GetPayment returns a payment by ID
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), identity, middleware.GetNumericID(c))
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentDTO(*payment))
}

// RecordPayment records a payment and settles the invoice when fully paid
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	type RecordPaymentRequest struct {
		InvoiceID       uint64               `json:"invoice_id"`
		PaymentMethod   models.PaymentMethod `json:"payment_method"`
		Amount          decimal.Decimal      `json:"amount"`
		PaymentDate     string               `json:"payment_date"`
		ReferenceNumber string               `json:"reference_number"`
		Notes           string               `json:"notes"`
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	paymentDate, err := parseTime("payment_date", req.PaymentDate)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), identity, services.RecordPaymentInput{
		InvoiceID:       req.InvoiceID,
		PaymentMethod:   req.PaymentMethod,
		Amount:          req.Amount,
		PaymentDate:     paymentDate,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.RecordPaymentResponse{
		Payment: dto.ToPaymentDTO(*result.Payment),
		Invoice: invoiceView(h.invoiceService, identity, *result.Invoice),
		Settled: result.Settled,
	})
}
