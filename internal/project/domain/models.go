// Package domain contains the project and module records the dashboard
// tracks through manufacturing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Module is a single manufactured unit inside a project.
type Module struct {
	ID            snowflake.ID `json:"id"`
	SerialNumber  string       `json:"serial_number"`
	BuildSequence int          `json:"build_sequence"`
	BLMID         string       `json:"blm_id,omitempty"`
	IsPrototype   bool         `json:"is_prototype,omitempty"`

	// Attrs carries descriptive metadata (unit type, room info, difficulty
	// flags) opaque to the sequence subsystem.
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Project owns the ordered module list, stored as a single JSON array
// column. Version implements optimistic locking on that column: every
// module write bumps it, and writers compare the version they read.
type Project struct {
	ID        snowflake.ID                       `gorm:"primaryKey" json:"id"`
	Code      string                             `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string                             `gorm:"type:text;not null" json:"name"`
	Modules   datatypes.JSONType[[]Module]       `gorm:"type:jsonb;not null" json:"modules"`
	Version   int64                              `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time                          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time                          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

// ModuleList unwraps the JSON modules column.
func (p *Project) ModuleList() []Module {
	if p == nil {
		return nil
	}
	return p.Modules.Data()
}

// SetModules replaces the JSON modules column.
func (p *Project) SetModules(modules []Module) {
	if modules == nil {
		modules = []Module{}
	}
	p.Modules = datatypes.NewJSONType(modules)
}
