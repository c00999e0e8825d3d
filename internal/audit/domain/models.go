package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog is one recorded admin mutation. Rows are append-only.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Actor      string            `gorm:"not null;index" json:"actor"`
	Action     string            `gorm:"not null;index" json:"action"`
	TargetType string            `gorm:"not null" json:"target_type"`
	TargetID   string            `json:"target_id,omitempty"`
	IPAddress  string            `json:"ip_address,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewEntry is the write-side shape handlers hand to the recorder.
type NewEntry struct {
	Actor      string
	Action     string
	TargetType string
	TargetID   string
	IPAddress  string
	Metadata   map[string]any
}
