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

type AuditHandler struct {
	auditService *services.AuditService
	log          *zap.Logger
}

func NewAuditHandler(auditService *services.AuditService, log *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		log:          log,
	}
}

// ListAuditLogs returns audit entries, newest first
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	userID, err := queryUint(c, "user_id")
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}
	action, err := queryEnum(c, "action", models.AuditAction.Valid)
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
	entries, total, err := h.auditService.List(c.Request.Context(), identity, repository.AuditFilter{
		Table:      c.Query("table_name"),
		RecordID:   c.Query("record_id"),
		UserID:     userID,
		Action:     action,
		From:       from,
		To:         endOfRange(to),
		Pagination: params,
	})
	if err != nil {
		apperrors.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToAuditLogDTOs(entries), params, total))
}
