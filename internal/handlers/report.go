package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/services"
	"go.uber.org/zap"
)

type ReportHandler struct {
	reportService *services.ReportService
	log           *zap.Logger
}

func NewReportHandler(reportService *services.ReportService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		log:           log,
	}
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	stats, err := h.reportService.Dashboard(c.Request.Context(), identity)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Analytics returns monthly invoiced and collected totals for ?year
func (h *ReportHandler) Analytics(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var year int
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			apperrors.Respond(c, h.log, apperrors.Validation("Invalid year", "year"))
			return
		}
		year = parsed
	}

	analytics, err := h.reportService.Analytics(c.Request.Context(), identity, year)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

func (h *ReportHandler) TeamPerformance(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
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

	performance, err := h.reportService.TeamPerformance(c.Request.Context(), identity, from, endOfRange(to))
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": performance})
}

func (h *ReportHandler) TeamOverview(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	overview, err := h.reportService.TeamOverview(c.Request.Context(), identity)
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// TaskReport returns daily task counts over ?from and ?to
func (h *ReportHandler) TaskReport(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
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

	report, err := h.reportService.TaskReport(c.Request.Context(), identity, from, endOfRange(to))
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
