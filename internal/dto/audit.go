package dto

import (
	"strconv"
	"time"

	"github.com/yukikurage/taxoffice-api/internal/models"
	"gorm.io/datatypes"
)

// AuditLogDTO represents an audit entry in API responses. The ID is a
// string because snowflake IDs exceed the JSON safe integer range.
type AuditLogDTO struct {
	ID        string             `json:"id"`
	UserID    uint64             `json:"user_id"`
	Action    models.AuditAction `json:"action"`
	TableName string             `json:"table_name"`
	RecordID  string             `json:"record_id"`
	OldValues datatypes.JSON     `json:"old_values"`
	NewValues datatypes.JSON     `json:"new_values"`
	CreatedAt time.Time          `json:"created_at"`
}

func ToAuditLogDTOs(entries []models.AuditLog) []AuditLogDTO {
	out := make([]AuditLogDTO, len(entries))
	for i, e := range entries {
		out[i] = AuditLogDTO{
			ID:        strconv.FormatInt(e.ID, 10),
			UserID:    e.UserID,
			Action:    e.Action,
			TableName: e.Table,
			RecordID:  e.RecordID,
			OldValues: e.OldValues,
			NewValues: e.NewValues,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
