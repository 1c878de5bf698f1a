package main

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/modabuild/fabline/internal/audit"
	auditdomain "github.com/modabuild/fabline/internal/audit/domain"
	"github.com/modabuild/fabline/internal/clock"
	"github.com/modabuild/fabline/internal/config"
	"github.com/modabuild/fabline/internal/logger"
	"github.com/modabuild/fabline/internal/migration"
	"github.com/modabuild/fabline/internal/moduleimport"
	"github.com/modabuild/fabline/internal/observability/metrics"
	"github.com/modabuild/fabline/internal/observability/tracing"
	"github.com/modabuild/fabline/internal/project"
	projectdomain "github.com/modabuild/fabline/internal/project/domain"
	"github.com/modabuild/fabline/internal/seed"
	"github.com/modabuild/fabline/internal/sequence"
	sequencedomain "github.com/modabuild/fabline/internal/sequence/domain"
	"github.com/modabuild/fabline/internal/server"
	"github.com/modabuild/fabline/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		clock.Module,
		tracing.Module,
		fx.Provide(func(cfg config.Config) *metrics.SequenceMetrics {
			return metrics.SequenceWithConfig(metrics.Config{
				ServiceName: "fabline",
				Environment: cfg.Environment,
			})
		}),
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			if cfg.MigrateOnUp {
				if strings.TrimSpace(cfg.DatabaseDSN) != "" {
					sqlDB, err := conn.DB()
					if err != nil {
						return err
					}
					if err := migration.RunMigrations(sqlDB); err != nil {
						return err
					}
				} else {
					// The sqlite development path has no migration history
					// to preserve.
					if err := conn.AutoMigrate(
						&projectdomain.Project{},
						&sequencedomain.Snapshot{},
						&auditdomain.AuditLog{},
					); err != nil {
						return err
					}
				}
			}
			if cfg.SeedDemoData {
				return seed.EnsureDemoProject(conn)
			}
			return nil
		}),
		audit.Module,
		project.Module,
		sequence.Module,
		moduleimport.Module,
		server.Module,
	)
	app.Run()
}
