// Package config loads service configuration from environment variables
// (prefix FABLINE_) with optional fabline.yaml overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"environment"`
	HTTPAddr    string `mapstructure:"http_addr"`

	// DatabaseDSN is a Postgres DSN. Empty selects an on-disk sqlite
	// database for local development.
	DatabaseDSN  string `mapstructure:"database_dsn"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	MigrateOnUp  bool   `mapstructure:"migrate_on_up"`
	SeedDemoData bool   `mapstructure:"seed_demo_data"`

	// APIToken guards the /api surface when set. Identity still arrives
	// per-request from the dashboard's auth layer via actor headers.
	APIToken string `mapstructure:"api_token"`

	ImportRateLimit  int           `mapstructure:"import_rate_limit"`
	ImportRateWindow time.Duration `mapstructure:"import_rate_window"`

	Tracing TracingConfig `mapstructure:"tracing"`
}

type TracingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	ExporterEndpoint string  `mapstructure:"exporter_endpoint"`
	ExporterProtocol string  `mapstructure:"exporter_protocol"`
	SamplingRatio    float64 `mapstructure:"sampling_ratio"`
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FABLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("database_dsn", "")
	v.SetDefault("sqlite_path", "fabline.db")
	v.SetDefault("migrate_on_up", true)
	v.SetDefault("seed_demo_data", false)
	v.SetDefault("api_token", "")
	v.SetDefault("import_rate_limit", 30)
	v.SetDefault("import_rate_window", time.Minute)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter_endpoint", "")
	v.SetDefault("tracing.exporter_protocol", "grpc")
	v.SetDefault("tracing.sampling_ratio", 0.1)

	v.SetConfigName("fabline")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
