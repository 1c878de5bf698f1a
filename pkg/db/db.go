// Package db opens the gorm database handle for the service.
package db

import (
	"context"
	"strings"

	"github.com/modabuild/fabline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Module("db",
	fx.Provide(Open),
	fx.Invoke(registerClose),
)

// Open connects to Postgres when a DSN is configured and falls back to a
// local sqlite file otherwise.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	dsn := strings.TrimSpace(cfg.DatabaseDSN)
	if dsn != "" {
		conn, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		log.Info("connected to postgres")
		return conn, nil
	}

	path := strings.TrimSpace(cfg.SQLitePath)
	if path == "" {
		path = "fabline.db"
	}
	conn, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, err
	}
	log.Info("connected to sqlite", zap.String("path", path))
	return conn, nil
}

func registerClose(lc fx.Lifecycle, conn *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
}
