// Package domain contains the append-only build-sequence history records.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/project/domain"
	"gorm.io/datatypes"
)

// ChangeType tags why a snapshot was taken.
type ChangeType string

const (
	ChangeManualEdit      ChangeType = "manual_edit"
	ChangeImport          ChangeType = "import"
	ChangeReorder         ChangeType = "reorder"
	ChangePrototypeInsert ChangeType = "prototype_insert"
	ChangeRestore         ChangeType = "restore"
)

// Valid reports whether the change type is one of the fixed enumeration.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeManualEdit, ChangeImport, ChangeReorder, ChangePrototypeInsert, ChangeRestore:
		return true
	default:
		return false
	}
}

// Entry is the minimal per-module projection stored in a snapshot.
type Entry struct {
	ModuleID      snowflake.ID `json:"module_id"`
	SerialNumber  string       `json:"serial_number"`
	BuildSequence int          `json:"build_sequence"`
	BLMID         string       `json:"blm_id,omitempty"`
	IsPrototype   bool         `json:"is_prototype,omitempty"`
}

// Snapshot is one immutable history row. Restores append a new row tagged
// restore; existing rows are never rewritten.
type Snapshot struct {
	ID          snowflake.ID                  `gorm:"primaryKey" json:"id"`
	ProjectID   snowflake.ID                  `gorm:"not null;index:idx_build_sequence_history_project" json:"project_id"`
	Entries     datatypes.JSONType[[]Entry]   `gorm:"type:jsonb;not null" json:"entries"`
	ChangeType  ChangeType                    `gorm:"type:text;not null" json:"change_type"`
	Description string                        `gorm:"type:text;not null" json:"description"`
	ActorID     string                        `gorm:"type:text;not null;default:''" json:"actor_id"`
	ActorName   string                        `gorm:"type:text;not null;default:''" json:"actor_name"`
	CreatedAt   time.Time                     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Snapshot) TableName() string { return "build_sequence_history" }

// EntryList unwraps the JSON entries column.
func (s *Snapshot) EntryList() []Entry {
	if s == nil {
		return nil
	}
	return s.Entries.Data()
}

// ProjectEntries projects modules down to snapshot entries.
func ProjectEntries(modules []domain.Module) []Entry {
	entries := make([]Entry, 0, len(modules))
	for _, m := range modules {
		entries = append(entries, Entry{
			ModuleID:      m.ID,
			SerialNumber:  m.SerialNumber,
			BuildSequence: m.BuildSequence,
			BLMID:         m.BLMID,
			IsPrototype:   m.IsPrototype,
		})
	}
	return entries
}
