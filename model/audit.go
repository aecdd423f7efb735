package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records every mutating inventory operation, accepted or rejected.
type AuditLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID     string         `gorm:"index:idx_audit_trace;size:36" json:"trace_id"`
	Action      string         `gorm:"size:64;not null" json:"action"`
	Operator    string         `gorm:"size:64;index:idx_audit_operator" json:"operator"`
	ItemID      *int64         `gorm:"index:idx_audit_item" json:"item_id"`
	CharacterID *int64         `gorm:"index:idx_audit_char" json:"character_id"`
	Request     datatypes.JSON `json:"request"`
	Response    datatypes.JSON `json:"response"`
	Error       string         `gorm:"type:text" json:"error"`
	IP          string         `gorm:"size:45" json:"ip"`
	DurationMs  int            `json:"duration_ms"`
	CreatedAt   time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
