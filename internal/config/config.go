package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cellarbook/enrich-cli/internal/enrich"
	"github.com/cellarbook/enrich-cli/internal/resolver"
	"github.com/cellarbook/enrich-cli/pkg/winesearch"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig       `yaml:"store" mapstructure:"store"`
	Search   winesearch.Config `yaml:"search" mapstructure:"search"`
	Engine   enrich.Config     `yaml:"engine" mapstructure:"engine"`
	Resolver resolver.Config   `yaml:"resolver" mapstructure:"resolver"`
	Batch    BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig      `yaml:"server" mapstructure:"server"`
	Log      LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentWines int `yaml:"max_concurrent_wines" mapstructure:"max_concurrent_wines"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "wine-cache.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_wines", 4)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("search.timeout_secs", 90)
	v.SetDefault("search.requests_per_min", 10)
	v.SetDefault("engine.store_min_confidence", enrich.StoreMinConfidence)
	v.SetDefault("engine.merge_min_confidence", enrich.MergeWorthyConfidence)
	v.SetDefault("engine.ttl.static_days", 365)
	v.SetDefault("engine.ttl.semi_static_days", 180)
	v.SetDefault("engine.ttl.dynamic_days", 30)
	v.SetDefault("resolver.accept_confidence", 0.72)
	v.SetDefault("resolver.producer_floor", 0.5)
	v.SetDefault("resolver.wine_floor", 0.7)
	v.SetDefault("resolver.popularity_floor", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
