package diff

import (
	"testing"

	"github.com/modabuild/fabline/internal/sequence/domain"
)

func TestCompareSnapshotsIdentical(t *testing.T) {
	entries := []domain.Entry{
		{ModuleID: 1, SerialNumber: "26-0001", BuildSequence: 1},
		{ModuleID: 2, SerialNumber: "26-0002", BuildSequence: 2},
	}

	changes := CompareSnapshots(entries, entries)
	if len(changes) != 0 {
		t.Fatalf("expected no changes, got %d", len(changes))
	}
}

func TestCompareSnapshotsDetectsNewModule(t *testing.T) {
	old := []domain.Entry{
		{ModuleID: 1, SerialNumber: "A", BuildSequence: 5},
	}
	updated := []domain.Entry{
		{ModuleID: 1, SerialNumber: "A", BuildSequence: 5},
		{ModuleID: 2, SerialNumber: "B", BuildSequence: 6},
	}

	changes := CompareSnapshots(old, updated)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	change := changes[0]
	if change.ModuleID != 2 || change.SerialNumber != "B" {
		t.Fatalf("unexpected change target: %+v", change)
	}
	if !change.IsNew {
		t.Fatalf("expected IsNew")
	}
	if change.OldSequence != nil {
		t.Fatalf("expected nil old sequence, got %v", *change.OldSequence)
	}
	if change.NewSequence == nil || *change.NewSequence != 6 {
		t.Fatalf("expected new sequence 6, got %v", change.NewSequence)
	}
}

func TestCompareSnapshotsOrdersRemovedLast(t *testing.T) {
	old := []domain.Entry{
		{ModuleID: 1, SerialNumber: "A", BuildSequence: 1},
		{ModuleID: 2, SerialNumber: "B", BuildSequence: 2},
		{ModuleID: 3, SerialNumber: "C", BuildSequence: 3},
	}
	updated := []domain.Entry{
		{ModuleID: 1, SerialNumber: "A", BuildSequence: 9},
		{ModuleID: 3, SerialNumber: "C", BuildSequence: 2},
	}

	changes := CompareSnapshots(old, updated)
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}
	if changes[0].ModuleID != 3 {
		t.Fatalf("expected module 3 first (new sequence 2), got %d", changes[0].ModuleID)
	}
	if changes[1].ModuleID != 1 {
		t.Fatalf("expected module 1 second (new sequence 9), got %d", changes[1].ModuleID)
	}
	last := changes[2]
	if last.ModuleID != 2 || !last.IsRemoved {
		t.Fatalf("expected removed module 2 last, got %+v", last)
	}
	if last.NewSequence != nil {
		t.Fatalf("expected nil new sequence for removed module")
	}
	if last.OldSequence == nil || *last.OldSequence != 2 {
		t.Fatalf("expected old sequence 2 for removed module")
	}
}

func TestCompareSnapshotsChangedSequence(t *testing.T) {
	old := []domain.Entry{
		{ModuleID: 7, SerialNumber: "26-0038", BuildSequence: 60},
	}
	updated := []domain.Entry{
		{ModuleID: 7, SerialNumber: "26-0038", BuildSequence: 61},
	}

	changes := CompareSnapshots(old, updated)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	change := changes[0]
	if change.IsNew || change.IsRemoved {
		t.Fatalf("expected plain sequence change, got %+v", change)
	}
	if *change.OldSequence != 60 || *change.NewSequence != 61 {
		t.Fatalf("expected 60 -> 61, got %v -> %v", *change.OldSequence, *change.NewSequence)
	}
}
