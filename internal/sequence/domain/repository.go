package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, snapshot *Snapshot) error
	FindByID(ctx context.Context, db *gorm.DB, projectID, id snowflake.ID) (*Snapshot, error)
	ListRecent(ctx context.Context, db *gorm.DB, projectID snowflake.ID, limit int) ([]Snapshot, error)
}
