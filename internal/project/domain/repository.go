package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Project, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Project, error)

	// UpdateModules writes the module array with an optimistic version
	// check. It returns ErrConcurrentUpdate when fromVersion no longer
	// matches the stored row.
	UpdateModules(ctx context.Context, db *gorm.DB, id snowflake.ID, modules []Module, fromVersion int64) error
}
