package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/auditcontext"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
)

// DefaultHistoryLimit applies when the caller does not ask for a specific
// page size; MaxHistoryLimit caps what a caller may ask for.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type Service interface {
	// SaveSnapshot appends one immutable history row and returns its id.
	// Callers treat a failure as non-fatal: the module state they already
	// applied stands, only the audit trail entry is missing.
	SaveSnapshot(ctx context.Context, projectID snowflake.ID, modules []projectdomain.Module, changeType ChangeType, description string, actor auditcontext.Actor) (snowflake.ID, error)

	// GetHistory returns the most recent snapshots, newest first. An
	// unavailable store degrades to an empty list.
	GetHistory(ctx context.Context, projectID snowflake.ID, limit int) []Snapshot

	GetSnapshot(ctx context.Context, projectID, snapshotID snowflake.ID) (*Snapshot, error)

	// RestoreSnapshot overlays the snapshot's sequences onto the current
	// modules (modules absent from the snapshot keep their sequence) and
	// appends a restore-tagged snapshot. Returns false without mutating
	// anything when the snapshot cannot be fetched.
	RestoreSnapshot(ctx context.Context, projectID, snapshotID snowflake.ID, actor auditcontext.Actor) (bool, error)
}

var (
	ErrInvalidChangeType = errors.New("invalid_change_type")
	ErrSnapshotNotFound  = errors.New("snapshot_not_found")
	ErrProjectNotFound   = errors.New("project_not_found")
)
