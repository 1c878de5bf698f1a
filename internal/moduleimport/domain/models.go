// Package domain contains the import pipeline's row and result types.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
)

// Canonical field names the parser and reconciler share.
const (
	FieldSerialNumber = "serial_number"
	FieldSequence     = "build_sequence"
	FieldBLMID        = "blm_id"
)

// ImportRow is a parsed, not-yet-committed candidate module. Fields holds
// only the columns present in the source file.
type ImportRow struct {
	SerialNumber  string            `json:"serial_number"`
	BuildSequence int               `json:"build_sequence"`
	HasSequence   bool              `json:"-"`
	Fields        map[string]string `json:"fields,omitempty"`
	Line          int               `json:"line,omitempty"`
}

// RowError reports one unusable source line. Line is 1-based.
type RowError struct {
	Line  int    `json:"row"`
	Error string `json:"error"`
}

// ParseResult is what the CSV parser hands to the reconciler.
type ParseResult struct {
	Rows   []ImportRow `json:"modules"`
	Errors []RowError  `json:"errors"`
}

// Classification of one import row against the stored modules.
type Classification string

const (
	ClassNew       Classification = "new"
	ClassUnchanged Classification = "matched-unchanged"
	ClassChanged   Classification = "matched-changed"
)

// FieldChange records one differing field on a matched module.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// RowResult classifies a single import row.
type RowResult struct {
	SerialNumber   string         `json:"serial_number"`
	Line           int            `json:"line,omitempty"`
	Classification Classification `json:"classification"`
	ModuleID       snowflake.ID   `json:"module_id,omitempty"`
	Changes        []FieldChange  `json:"changes,omitempty"`
}

// ModuleRef names a stored module absent from the import. Informational
// only; the engine never deletes.
type ModuleRef struct {
	ModuleID      snowflake.ID `json:"module_id"`
	SerialNumber  string       `json:"serial_number"`
	BuildSequence int          `json:"build_sequence"`
}

// SequenceConflict reports two modules sharing a build sequence after an
// execute. Surfaced for manual resolution, never auto-resolved.
type SequenceConflict struct {
	BuildSequence int      `json:"build_sequence"`
	Serials       []string `json:"serials"`
}

// Result is the reconciliation output for both analyze and execute. It is
// ephemeral and never persisted.
type Result struct {
	Rows        []RowResult        `json:"rows"`
	NotInImport []ModuleRef        `json:"not_in_import"`
	Conflicts   []SequenceConflict `json:"conflicts,omitempty"`

	// SkippedSerials lists sequence-only rows that matched nothing. The
	// engine deliberately does not create modules for them.
	SkippedSerials []string `json:"skipped_serials,omitempty"`

	Created   int  `json:"created"`
	Updated   int  `json:"updated"`
	Unchanged int  `json:"unchanged"`
	Skipped   int  `json:"skipped"`
	Applied   bool `json:"applied"`
}

// Options control execute behavior.
type Options struct {
	// SequenceOnly updates only build_sequence on matched modules and
	// never creates modules.
	SequenceOnly bool `json:"sequence_only"`
	// ForceOverwrite applies matched-changed rows without confirmation.
	// Without it, execute returns the analyze classification unapplied.
	ForceOverwrite bool `json:"force_overwrite"`
}

type AnalyzeRequest struct {
	ProjectID string
	CSV       string
	Options   Options
}

type ExecuteRequest struct {
	ProjectID string
	CSV       string
	Options   Options
}

// ImportResponse pairs parser errors with the reconciliation outcome.
type ImportResponse struct {
	Result      Result     `json:"result"`
	ParseErrors []RowError `json:"parse_errors,omitempty"`
	RowCount    int        `json:"row_count"`
}

type Service interface {
	// Analyze is the dry run: it classifies every row without writing.
	Analyze(ctx context.Context, req AnalyzeRequest) (*ImportResponse, error)
	// Execute applies the import and records an import snapshot.
	Execute(ctx context.Context, req ExecuteRequest) (*ImportResponse, error)
}

var (
	ErrInvalidProject = errors.New("invalid_project")
	ErrEmptyImport    = errors.New("empty_import")
)

// ModulesBySerial indexes stored modules by their serial number.
func ModulesBySerial(modules []projectdomain.Module) map[string]*projectdomain.Module {
	index := make(map[string]*projectdomain.Module, len(modules))
	for i := range modules {
		index[modules[i].SerialNumber] = &modules[i]
	}
	return index
}
