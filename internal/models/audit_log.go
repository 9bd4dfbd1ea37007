package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete:
		return true
	}
	return false
}

// AuditLog is append-only; rows are never updated or deleted.
type AuditLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	UserID    uint64         `gorm:"not null;index" json:"user_id"`
	Action    AuditAction    `gorm:"type:varchar(10);not null" json:"action"`
	Table     string         `gorm:"column:table_name;type:varchar(50);not null;index:idx_audit_logs_record" json:"table_name"`
	RecordID  string         `gorm:"type:varchar(64);not null;index:idx_audit_logs_record" json:"record_id"`
	OldValues datatypes.JSON `json:"old_values"`
	NewValues datatypes.JSON `json:"new_values"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
