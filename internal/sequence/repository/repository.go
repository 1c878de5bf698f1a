// Package repository persists build-sequence history rows.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/sequence/domain"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide constructs the gorm-backed history repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) Insert(ctx context.Context, db *gorm.DB, snapshot *domain.Snapshot) error {
	return db.WithContext(ctx).Create(snapshot).Error
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, projectID, id snowflake.ID) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	err := db.WithContext(ctx).
		Where("id = ? AND project_id = ?", id, projectID).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r *gormRepository) ListRecent(ctx context.Context, db *gorm.DB, projectID snowflake.ID, limit int) ([]domain.Snapshot, error) {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	var snapshots []domain.Snapshot
	err := db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
