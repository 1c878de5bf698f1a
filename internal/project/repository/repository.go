// Package repository persists projects and their module arrays.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/project/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type gormRepository struct{}

// Provide constructs the gorm-backed project repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) Insert(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Create(project).Error
}

func (r *gormRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *gormRepository) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).Where("code = ?", strings.TrimSpace(code)).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *gormRepository) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Project, error) {
	query := db.WithContext(ctx).Model(&domain.Project{})
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("code = ?", code)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}

	var projects []domain.Project
	if err := query.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *gormRepository) UpdateModules(ctx context.Context, db *gorm.DB, id snowflake.ID, modules []domain.Module, fromVersion int64) error {
	if modules == nil {
		modules = []domain.Module{}
	}
	result := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ? AND version = ?", id, fromVersion).
		Updates(map[string]any{
			"modules":    datatypes.NewJSONType(modules),
			"version":    fromVersion + 1,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConcurrentUpdate
	}
	return nil
}
