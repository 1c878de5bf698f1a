package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ListRequest struct {
	Code string `form:"code"`
	Name string `form:"name"`
}

// Summary is the list-view projection: module payloads are collapsed to
// counts so the dashboard overview avoids shipping every module array.
type Summary struct {
	ID          snowflake.ID `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	ModuleCount int          `json:"module_count"`
	Prototypes  int          `json:"prototype_count"`
	Version     int64        `json:"version"`
}

// SequenceEdit assigns one module an explicit build sequence.
type SequenceEdit struct {
	ModuleID      snowflake.ID `json:"module_id"`
	BuildSequence int          `json:"build_sequence"`
}

type InsertPrototypeRequest struct {
	ProjectID     string            `json:"-"`
	SerialNumber  string            `json:"serial_number"`
	BuildSequence int               `json:"build_sequence"`
	BLMID         string            `json:"blm_id"`
	Attrs         map[string]string `json:"attrs"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, req ListRequest) ([]Summary, error)
	Modules(ctx context.Context, id string) ([]Module, error)

	// EditSequences applies manual sequence assignments and records a
	// manual_edit snapshot.
	EditSequences(ctx context.Context, id string, edits []SequenceEdit) ([]Module, error)

	// Reorder moves one module to a target sequence, shifting every module
	// between the old and new position, and records a reorder snapshot.
	Reorder(ctx context.Context, id string, moduleID string, buildSequence int) ([]Module, error)

	// InsertPrototype adds a prototype-flagged module at a sequence
	// position, shifting later modules up, and records a prototype_insert
	// snapshot.
	InsertPrototype(ctx context.Context, req InsertPrototypeRequest) (*Module, error)
}

func ParseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

var (
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidCode       = errors.New("invalid_code")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidSerial     = errors.New("invalid_serial_number")
	ErrInvalidSequence   = errors.New("invalid_build_sequence")
	ErrDuplicateCode     = errors.New("duplicate_code")
	ErrDuplicateSerial   = errors.New("duplicate_serial_number")
	ErrNotFound          = errors.New("not_found")
	ErrModuleNotFound    = errors.New("module_not_found")
	ErrConcurrentUpdate  = errors.New("concurrent_update")
)
