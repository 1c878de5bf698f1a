// Package domain contains the audit log model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Audit actions recorded by the API surface.
const (
	ActionProjectCreate   = "project.create"
	ActionSequenceEdit    = "sequence.manual_edit"
	ActionSequenceReorder = "sequence.reorder"
	ActionPrototypeInsert = "sequence.prototype_insert"
	ActionImportExecute   = "import.execute"
	ActionSequenceRestore = "sequence.restore"
)

// AuditLog captures an immutable record of a dashboard write action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ActorID    *string           `gorm:"type:text"`
	ActorName  *string           `gorm:"type:text"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   *string           `gorm:"type:text"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	IPAddress  *string           `gorm:"type:text"`
	UserAgent  *string           `gorm:"type:text"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
