package reconcile

import (
	"reflect"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/moduleimport/domain"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
)

func newGenID(t *testing.T) func() snowflake.ID {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node.Generate
}

func storedModules(t *testing.T) []projectdomain.Module {
	t.Helper()
	gen := newGenID(t)
	return []projectdomain.Module{
		{ID: gen(), SerialNumber: "26-0036", BuildSequence: 58, BLMID: "A-2-01"},
		{ID: gen(), SerialNumber: "26-0037", BuildSequence: 59, BLMID: "A-2-02"},
		{ID: gen(), SerialNumber: "26-0038", BuildSequence: 60, BLMID: "A-2-03"},
	}
}

func TestAnalyzeClassifiesRows(t *testing.T) {
	current := storedModules(t)
	rows := []domain.ImportRow{
		{SerialNumber: "26-0036", HasSequence: true, BuildSequence: 58, Line: 2},
		{SerialNumber: "26-0038", HasSequence: true, BuildSequence: 61, Line: 3},
		{SerialNumber: "26-0099", HasSequence: true, BuildSequence: 62, Line: 4},
	}

	result := Analyze(current, rows, domain.Options{})

	if result.Created != 1 || result.Updated != 1 || result.Unchanged != 1 {
		t.Fatalf("unexpected counts: created=%d updated=%d unchanged=%d",
			result.Created, result.Updated, result.Unchanged)
	}
	if len(result.NotInImport) != 1 || result.NotInImport[0].SerialNumber != "26-0037" {
		t.Fatalf("unexpected not-in-import: %+v", result.NotInImport)
	}

	changed := result.Rows[1]
	if changed.Classification != domain.ClassChanged {
		t.Fatalf("expected changed classification, got %s", changed.Classification)
	}
	want := []domain.FieldChange{{Field: domain.FieldSequence, Old: "60", New: "61"}}
	if !reflect.DeepEqual(changed.Changes, want) {
		t.Fatalf("unexpected changes: %+v", changed.Changes)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	current := storedModules(t)
	rows := []domain.ImportRow{
		{SerialNumber: "26-0038", HasSequence: true, BuildSequence: 61},
		{SerialNumber: "26-0099", HasSequence: true, BuildSequence: 62},
	}

	first := Analyze(current, rows, domain.Options{})
	second := Analyze(current, rows, domain.Options{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("analyze over identical inputs diverged:\n%+v\n%+v", first, second)
	}
}

func TestApplyWithheldWithoutForceOverwrite(t *testing.T) {
	current := storedModules(t)
	rows := []domain.ImportRow{
		{SerialNumber: "26-0038", HasSequence: true, BuildSequence: 61},
	}

	modules, result := Apply(current, rows, domain.Options{}, newGenID(t))

	if result.Applied {
		t.Fatalf("apply should be withheld when updates exist without force overwrite")
	}
	if !reflect.DeepEqual(modules, current) {
		t.Fatalf("withheld apply mutated the module list")
	}
}

func TestApplyForceOverwrite(t *testing.T) {
	current := storedModules(t)
	current[2].Attrs = map[string]string{"unit_type": "2BR"}
	rows := []domain.ImportRow{
		{SerialNumber: "26-0038", HasSequence: true, BuildSequence: 61, Fields: map[string]string{domain.FieldBLMID: "A-2-09", "unit_type": "3BR"}},
		{SerialNumber: "26-0099", HasSequence: true, BuildSequence: 62, Fields: map[string]string{"unit_type": "3BR"}},
	}

	modules, result := Apply(current, rows, domain.Options{ForceOverwrite: true}, newGenID(t))

	if !result.Applied {
		t.Fatalf("expected apply to proceed")
	}
	if len(modules) != 4 {
		t.Fatalf("expected 4 modules after create, got %d", len(modules))
	}

	bySerial := domain.ModulesBySerial(modules)
	updated := bySerial["26-0038"]
	if updated.BuildSequence != 61 || updated.BLMID != "A-2-09" {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.Attrs["unit_type"] != "3BR" {
		t.Fatalf("updated module attrs wrong: %+v", updated.Attrs)
	}
	created := bySerial["26-0099"]
	if created == nil || created.ID == 0 {
		t.Fatalf("created module missing or without id: %+v", created)
	}
	if created.Attrs["unit_type"] != "3BR" {
		t.Fatalf("created module attrs wrong: %+v", created.Attrs)
	}
	// Input list stays untouched; Apply works on a copy, Attrs maps
	// included.
	if current[2].BuildSequence != 60 {
		t.Fatalf("apply mutated its input: %+v", current[2])
	}
	if current[2].Attrs["unit_type"] != "2BR" {
		t.Fatalf("apply mutated its input through a shared attrs map: %+v", current[2].Attrs)
	}
}

func TestApplySequenceOnlyNeverCreates(t *testing.T) {
	current := storedModules(t)
	rows := []domain.ImportRow{
		{SerialNumber: "26-0036", HasSequence: true, BuildSequence: 70, Fields: map[string]string{domain.FieldBLMID: "CHANGED"}},
		{SerialNumber: "26-0099", HasSequence: true, BuildSequence: 71},
	}

	modules, result := Apply(current, rows, domain.Options{SequenceOnly: true, ForceOverwrite: true}, newGenID(t))

	if len(modules) != len(current) {
		t.Fatalf("sequence-only import created modules: %d -> %d", len(current), len(modules))
	}
	if result.Skipped != 1 || len(result.SkippedSerials) != 1 || result.SkippedSerials[0] != "26-0099" {
		t.Fatalf("unmatched serial not reported: skipped=%d serials=%v", result.Skipped, result.SkippedSerials)
	}

	bySerial := domain.ModulesBySerial(modules)
	moved := bySerial["26-0036"]
	if moved.BuildSequence != 70 {
		t.Fatalf("sequence not applied: %+v", moved)
	}
	if moved.BLMID != "A-2-01" {
		t.Fatalf("sequence-only import touched a non-sequence field: %+v", moved)
	}
}

func TestApplyReportsSequenceConflicts(t *testing.T) {
	current := storedModules(t)
	rows := []domain.ImportRow{
		{SerialNumber: "26-0099", HasSequence: true, BuildSequence: 59},
	}

	_, result := Apply(current, rows, domain.Options{ForceOverwrite: true}, newGenID(t))

	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", result.Conflicts)
	}
	conflict := result.Conflicts[0]
	if conflict.BuildSequence != 59 {
		t.Fatalf("unexpected conflict sequence: %d", conflict.BuildSequence)
	}
	want := []string{"26-0037", "26-0099"}
	if !reflect.DeepEqual(conflict.Serials, want) {
		t.Fatalf("unexpected conflict serials: %v", conflict.Serials)
	}
}

func TestApplyUnsequencedModulesNeverConflict(t *testing.T) {
	gen := newGenID(t)
	current := []projectdomain.Module{
		{ID: gen(), SerialNumber: "26-0001"},
		{ID: gen(), SerialNumber: "26-0002"},
	}
	rows := []domain.ImportRow{
		{SerialNumber: "26-0003"},
	}

	_, result := Apply(current, rows, domain.Options{ForceOverwrite: true}, gen)

	if len(result.Conflicts) != 0 {
		t.Fatalf("sequence 0 should never conflict: %+v", result.Conflicts)
	}
}
