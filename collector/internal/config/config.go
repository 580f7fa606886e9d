package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Intake      IntakeConfig      `mapstructure:"intake"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	QualityGate QualityGateConfig `mapstructure:"quality_gate"`
	DLQ         DLQConfig         `mapstructure:"dlq"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Database       string `mapstructure:"database"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// ConnString builds the postgres connection URL.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type IntakeConfig struct {
	MaxBatchEvents    int           `mapstructure:"max_batch_events"`
	SigningSecret     string        `mapstructure:"signing_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	SiteCacheTTL      time.Duration `mapstructure:"site_cache_ttl"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type WorkerConfig struct {
	DefaultLimit  int `mapstructure:"default_limit"`
	DefaultRounds int `mapstructure:"default_rounds"`
}

type QualityGateConfig struct {
	MaxDropped       int     `mapstructure:"max_dropped"`
	MaxRetryRatioPct float64 `mapstructure:"max_retry_ratio_pct"`
}

type DLQConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	NatsURL string `mapstructure:"nats_url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8098)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bridge")
	v.SetDefault("database.password", "bridge")
	v.SetDefault("database.database", "bridge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_path", "collector/migrations")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("intake.max_batch_events", 100)
	v.SetDefault("intake.signing_secret", "")
	v.SetDefault("intake.token_ttl", "15m")
	v.SetDefault("intake.site_cache_ttl", "1h")
	v.SetDefault("intake.rate_limit_enabled", false)
	v.SetDefault("intake.rate_limit_requests", 600)
	v.SetDefault("intake.rate_limit_window", "1m")
	v.SetDefault("worker.default_limit", 250)
	v.SetDefault("worker.default_rounds", 1)
	v.SetDefault("quality_gate.max_dropped", 0)
	v.SetDefault("quality_gate.max_retry_ratio_pct", 0)
	v.SetDefault("dlq.enabled", false)
	v.SetDefault("dlq.nats_url", "nats://localhost:4222")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ghostlink/collector")
	}

	// Environment variables override: COLLECTOR_INTAKE_SIGNING_SECRET etc.
	v.SetEnvPrefix("COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Intake.SigningSecret == "" {
		return nil, fmt.Errorf("intake.signing_secret must be set")
	}

	return &cfg, nil
}
