// Package seed bootstraps demo data for development environments.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
	"gorm.io/gorm"
)

const (
	demoProjectCode = "DEMO-26"
	demoProjectName = "Demo Apartments Block A"
)

// EnsureDemoProject creates a small sequenced project if none exists.
func EnsureDemoProject(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&projectdomain.Project{}).
			Where("code = ?", demoProjectCode).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		modules := make([]projectdomain.Module, 0, 8)
		for i := 1; i <= 8; i++ {
			modules = append(modules, projectdomain.Module{
				ID:            node.Generate(),
				SerialNumber:  fmt.Sprintf("26-%04d", i),
				BuildSequence: i,
				BLMID:         fmt.Sprintf("A-%d-%02d", (i-1)/4+1, i),
				Attrs:         map[string]string{"unit_type": "2BR"},
			})
		}

		project := &projectdomain.Project{
			ID:   node.Generate(),
			Code: demoProjectCode,
			Name: demoProjectName,
		}
		project.SetModules(modules)
		return tx.Create(project).Error
	})
}
