// Package diff computes per-module deltas between two sequence snapshots.
package diff

import (
	"math"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/sequence/domain"
)

// Change describes one module whose sequence differs between snapshots.
// OldSequence is nil for newly added modules, NewSequence for removed ones.
type Change struct {
	ModuleID     snowflake.ID `json:"module_id"`
	SerialNumber string       `json:"serial_number"`
	OldSequence  *int         `json:"old_sequence"`
	NewSequence  *int         `json:"new_sequence"`
	IsNew        bool         `json:"is_new,omitempty"`
	IsRemoved    bool         `json:"is_removed,omitempty"`
}

// CompareSnapshots classifies every module as changed, added or removed.
// The result is ordered by new sequence ascending; removed modules, which
// have no new sequence, sort last.
func CompareSnapshots(oldEntries, newEntries []domain.Entry) []Change {
	oldByID := make(map[snowflake.ID]domain.Entry, len(oldEntries))
	for _, entry := range oldEntries {
		oldByID[entry.ModuleID] = entry
	}
	newByID := make(map[snowflake.ID]domain.Entry, len(newEntries))
	for _, entry := range newEntries {
		newByID[entry.ModuleID] = entry
	}

	changes := make([]Change, 0)
	for _, entry := range newEntries {
		prev, ok := oldByID[entry.ModuleID]
		if !ok {
			seq := entry.BuildSequence
			changes = append(changes, Change{
				ModuleID:     entry.ModuleID,
				SerialNumber: entry.SerialNumber,
				NewSequence:  &seq,
				IsNew:        true,
			})
			continue
		}
		if prev.BuildSequence != entry.BuildSequence {
			oldSeq := prev.BuildSequence
			newSeq := entry.BuildSequence
			changes = append(changes, Change{
				ModuleID:     entry.ModuleID,
				SerialNumber: entry.SerialNumber,
				OldSequence:  &oldSeq,
				NewSequence:  &newSeq,
			})
		}
	}
	for _, entry := range oldEntries {
		if _, ok := newByID[entry.ModuleID]; ok {
			continue
		}
		seq := entry.BuildSequence
		changes = append(changes, Change{
			ModuleID:     entry.ModuleID,
			SerialNumber: entry.SerialNumber,
			OldSequence:  &seq,
			IsRemoved:    true,
		})
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return sortKey(changes[i]) < sortKey(changes[j])
	})
	return changes
}

func sortKey(change Change) int {
	if change.NewSequence == nil {
		return math.MaxInt
	}
	return *change.NewSequence
}
