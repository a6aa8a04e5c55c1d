package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Monitoring MonitoringConfig
	Alerting   AlertingConfig
	Tracking   TrackingConfig
	Media      MediaConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	TimescaleDB PostgresConfig `mapstructure:"timescaledb"`
	AppDB       PostgresConfig `mapstructure:"postgres_app"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MonitoringConfig struct {
	PrometheusPort     int    `mapstructure:"prometheus_port"`
	LogLevel           string `mapstructure:"log_level"`
	PrometheusEndpoint string `mapstructure:"prometheus_endpoint"`
	LokiEndpoint       string `mapstructure:"loki_endpoint"`
}

// AlertingConfig holds the session-lock rollup thresholds. A missed-wake
// alert fires when a device's deficit exceeds MissedWakeDeficit; a
// high-failure-rate alert fires when failed/expected exceeds
// FailureRateLimit; a low-battery alert fires when the last-known battery
// level is below BatteryCritical.
type AlertingConfig struct {
	MissedWakeDeficit int     `mapstructure:"missed_wake_deficit"`
	FailureRateLimit  float64 `mapstructure:"failure_rate_limit"`
	BatteryCritical   float64 `mapstructure:"battery_critical"`
}

type TrackingConfig struct {
	DistanceThreshold float64 `mapstructure:"distance_threshold"`
}

type MediaConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("BLT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.timescaledb.sslmode", "disable")
	viper.SetDefault("database.postgres_app.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.db", 0)

	// Monitoring defaults
	viper.SetDefault("monitoring.prometheus_port", 9090)
	viper.SetDefault("monitoring.log_level", "info")
	viper.SetDefault("monitoring.prometheus_endpoint", "http://localhost:9090")
	viper.SetDefault("monitoring.loki_endpoint", "http://localhost:3100")

	// Alerting defaults: missed-wake alerts fire on deficit > 2, failure
	// rate alerts on > 30% of expected wakes, battery alerts below 15%.
	viper.SetDefault("alerting.missed_wake_deficit", 2)
	viper.SetDefault("alerting.failure_rate_limit", 0.30)
	viper.SetDefault("alerting.battery_critical", 15.0)

	// Tracking defaults
	viper.SetDefault("tracking.distance_threshold", 40.0)

	// Media defaults
	viper.SetDefault("media.max_retries", 3)
}

func validateConfig(config *Config) error {
	if config.Database.TimescaleDB.Host == "" {
		return fmt.Errorf("timescaledb host is required")
	}
	if config.Database.AppDB.Host == "" {
		return fmt.Errorf("postgres app host is required")
	}
	if config.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}
	if config.Alerting.FailureRateLimit <= 0 || config.Alerting.FailureRateLimit >= 1 {
		return fmt.Errorf("alerting failure_rate_limit must be in (0, 1)")
	}
	if config.Tracking.DistanceThreshold <= 0 {
		return fmt.Errorf("tracking distance_threshold must be positive")
	}
	return nil
}
