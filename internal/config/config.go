package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Outscraper OutscraperConfig `yaml:"outscraper" mapstructure:"outscraper"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Poll       PollConfig       `yaml:"poll" mapstructure:"poll"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OutscraperConfig holds Outscraper API settings.
type OutscraperConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimitQPS float64 `yaml:"rate_limit_qps" mapstructure:"rate_limit_qps"`
}

// SearchConfig holds the fixed parameters sent with every vendor search.
type SearchConfig struct {
	Limit       int    `yaml:"limit" mapstructure:"limit"`
	Language    string `yaml:"language" mapstructure:"language"`
	Region      string `yaml:"region" mapstructure:"region"`
	Location    string `yaml:"location" mapstructure:"location"`
	Coordinates string `yaml:"coordinates" mapstructure:"coordinates"`
	Enrichment  string `yaml:"enrichment" mapstructure:"enrichment"`
}

// PollConfig configures the result polling loop.
type PollConfig struct {
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
	TimeoutSecs  int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("LEADFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys with no meaningful default still need one registered,
	// or AutomaticEnv never surfaces them to Unmarshal.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("outscraper.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("outscraper.base_url", "https://api.app.outscraper.com")
	v.SetDefault("outscraper.rate_limit_qps", 2.0)
	v.SetDefault("search.limit", 10)
	v.SetDefault("search.language", "en")
	v.SetDefault("search.region", "us")
	v.SetDefault("search.location", "Portland, Oregon, United States")
	v.SetDefault("search.coordinates", "45.5155,-122.6789")
	v.SetDefault("search.enrichment", "domain_service, emails_validator_service")
	v.SetDefault("poll.interval_secs", 10)
	v.SetDefault("poll.timeout_secs", 300)

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
