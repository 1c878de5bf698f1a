// Package reconcile matches parsed import rows against a project's stored
// modules. Analyze and Apply are pure: callers own loading and persisting
// the module list.
package reconcile

import (
	"sort"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/moduleimport/domain"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
)

// Analyze classifies every import row against the stored modules, matched
// by serial number, and reports stored modules absent from the import.
// Running it twice over the same inputs yields identical results.
func Analyze(current []projectdomain.Module, rows []domain.ImportRow, opts domain.Options) domain.Result {
	bySerial := domain.ModulesBySerial(current)
	result := domain.Result{
		Rows:        make([]domain.RowResult, 0, len(rows)),
		NotInImport: make([]domain.ModuleRef, 0),
	}

	imported := make(map[string]bool, len(rows))
	for _, row := range rows {
		imported[row.SerialNumber] = true
		result.Rows = append(result.Rows, classifyRow(row, bySerial[row.SerialNumber], opts.SequenceOnly))
	}

	for _, module := range current {
		if imported[module.SerialNumber] {
			continue
		}
		result.NotInImport = append(result.NotInImport, domain.ModuleRef{
			ModuleID:      module.ID,
			SerialNumber:  module.SerialNumber,
			BuildSequence: module.BuildSequence,
		})
	}

	for _, rowResult := range result.Rows {
		switch rowResult.Classification {
		case domain.ClassNew:
			result.Created++
		case domain.ClassChanged:
			result.Updated++
		case domain.ClassUnchanged:
			result.Unchanged++
		}
	}
	if opts.SequenceOnly {
		// sequence-only never creates; new rows will be skipped.
		result.Skipped = result.Created
		result.Created = 0
	}
	return result
}

// Apply performs the import against an in-memory module list and returns
// the resulting list. Without ForceOverwrite, any matched-changed row
// leaves the input untouched and returns the analyze classification with
// Applied false.
func Apply(
	current []projectdomain.Module,
	rows []domain.ImportRow,
	opts domain.Options,
	genID func() snowflake.ID,
) ([]projectdomain.Module, domain.Result) {
	result := Analyze(current, rows, opts)

	if !opts.ForceOverwrite && result.Updated > 0 {
		return current, result
	}

	modules := make([]projectdomain.Module, len(current))
	copy(modules, current)
	// Attrs maps are shared after the shallow copy; clone them so field
	// updates cannot reach the caller's input.
	for i := range modules {
		if modules[i].Attrs == nil {
			continue
		}
		attrs := make(map[string]string, len(modules[i].Attrs))
		for key, value := range modules[i].Attrs {
			attrs[key] = value
		}
		modules[i].Attrs = attrs
	}
	bySerial := domain.ModulesBySerial(modules)

	// Created modules are collected separately so appends cannot move the
	// backing array out from under the bySerial pointers.
	var created []projectdomain.Module
	for _, row := range rows {
		module := bySerial[row.SerialNumber]
		if module == nil {
			if opts.SequenceOnly {
				// Deliberate no-op: a reordering import never creates
				// modules, it only reports what it skipped.
				result.SkippedSerials = append(result.SkippedSerials, row.SerialNumber)
				continue
			}
			created = append(created, newModule(row, genID()))
			continue
		}
		if opts.SequenceOnly {
			if row.HasSequence {
				module.BuildSequence = row.BuildSequence
			}
			continue
		}
		applyFields(module, row)
	}
	modules = append(modules, created...)

	result.Conflicts = sequenceConflicts(modules)
	result.Applied = true
	return modules, result
}

func classifyRow(row domain.ImportRow, module *projectdomain.Module, sequenceOnly bool) domain.RowResult {
	rowResult := domain.RowResult{
		SerialNumber: row.SerialNumber,
		Line:         row.Line,
	}
	if module == nil {
		rowResult.Classification = domain.ClassNew
		return rowResult
	}

	rowResult.ModuleID = module.ID
	changes := fieldChanges(row, module, sequenceOnly)
	if len(changes) == 0 {
		rowResult.Classification = domain.ClassUnchanged
		return rowResult
	}
	rowResult.Classification = domain.ClassChanged
	rowResult.Changes = changes
	return rowResult
}

// fieldChanges compares only the fields the source file provided.
func fieldChanges(row domain.ImportRow, module *projectdomain.Module, sequenceOnly bool) []domain.FieldChange {
	var changes []domain.FieldChange

	if row.HasSequence && row.BuildSequence != module.BuildSequence {
		changes = append(changes, domain.FieldChange{
			Field: domain.FieldSequence,
			Old:   strconv.Itoa(module.BuildSequence),
			New:   strconv.Itoa(row.BuildSequence),
		})
	}
	if sequenceOnly {
		return changes
	}

	keys := make([]string, 0, len(row.Fields))
	for key := range row.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		incoming := row.Fields[key]
		stored := module.Attrs[key]
		if key == domain.FieldBLMID {
			stored = module.BLMID
		}
		if incoming != stored {
			changes = append(changes, domain.FieldChange{Field: key, Old: stored, New: incoming})
		}
	}
	return changes
}

func applyFields(module *projectdomain.Module, row domain.ImportRow) {
	if row.HasSequence {
		module.BuildSequence = row.BuildSequence
	}
	for key, value := range row.Fields {
		if key == domain.FieldBLMID {
			module.BLMID = value
			continue
		}
		if module.Attrs == nil {
			module.Attrs = map[string]string{}
		}
		module.Attrs[key] = value
	}
}

func newModule(row domain.ImportRow, id snowflake.ID) projectdomain.Module {
	module := projectdomain.Module{
		ID:            id,
		SerialNumber:  row.SerialNumber,
		BuildSequence: row.BuildSequence,
	}
	for key, value := range row.Fields {
		if key == domain.FieldBLMID {
			module.BLMID = value
			continue
		}
		if module.Attrs == nil {
			module.Attrs = map[string]string{}
		}
		module.Attrs[key] = value
	}
	return module
}

// sequenceConflicts reports positive sequences shared by two or more
// modules. Zero means unsequenced and is never a conflict.
func sequenceConflicts(modules []projectdomain.Module) []domain.SequenceConflict {
	bySequence := make(map[int][]string)
	for _, module := range modules {
		if module.BuildSequence > 0 {
			bySequence[module.BuildSequence] = append(bySequence[module.BuildSequence], module.SerialNumber)
		}
	}

	sequences := make([]int, 0, len(bySequence))
	for sequence, serials := range bySequence {
		if len(serials) > 1 {
			sequences = append(sequences, sequence)
		}
	}
	sort.Ints(sequences)

	var conflicts []domain.SequenceConflict
	for _, sequence := range sequences {
		serials := bySequence[sequence]
		sort.Strings(serials)
		conflicts = append(conflicts, domain.SequenceConflict{
			BuildSequence: sequence,
			Serials:       serials,
		})
	}
	return conflicts
}
