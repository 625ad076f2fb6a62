// Package config loads the control plane's configuration from
// environment variables and an optional YAML file, the way
// packages/shared/config does across the rest of the fleet this
// service was split out of.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port                    int    `mapstructure:"port"`
	MetricsPort             int    `mapstructure:"metrics_port"`
	GracefulShutdownTimeout int    `mapstructure:"graceful_shutdown_timeout"`
	Environment             string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
}

// DSN renders the connection string pgxpool.New expects.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SchedulerConfig carries the tunables spec.md names as fixed
// defaults (breaker threshold/cooldown, the three named feature flags,
// the cross-cloud tier set) as overridable configuration instead.
type SchedulerConfig struct {
	BreakerFailureThreshold int           `mapstructure:"breaker_failure_threshold"`
	BreakerCooldown         time.Duration `mapstructure:"breaker_cooldown"`
	PreferCostOptimization  bool          `mapstructure:"prefer_cost_optimization"`
	CredentialValidation    bool          `mapstructure:"credential_validation_enabled"`
	SagasEnabled            bool          `mapstructure:"sagas_enabled"`
	CrossCloudTiers         []string      `mapstructure:"cross_cloud_tiers"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	LogPath string `mapstructure:"log_path"`
	Level   string `mapstructure:"level"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	ServiceName  string  `mapstructure:"service_name"`
}

// Load reads configuration for serviceName from defaults, an optional
// YAML file under $CONFIG_PATH, and environment variables prefixed
// with the upper-cased, underscore-joined service name.
func Load(serviceName string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.graceful_shutdown_timeout", 30)
	v.SetDefault("server.environment", "development")

	v.SetDefault("database.host", "postgres-rw.controlplane.svc.cluster.local")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "controlplane")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 50)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.host", "redis-master.controlplane.svc.cluster.local")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)

	v.SetDefault("scheduler.breaker_failure_threshold", 5)
	v.SetDefault("scheduler.breaker_cooldown", "60s")
	v.SetDefault("scheduler.prefer_cost_optimization", false)
	v.SetDefault("scheduler.credential_validation_enabled", true)
	v.SetDefault("scheduler.sagas_enabled", true)
	v.SetDefault("scheduler.cross_cloud_tiers", []string{"low", "business_critical"})

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.log_path", "/var/log/controlplane/audit")
	v.SetDefault("audit.level", "info")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampling_rate", 0.1)
	v.SetDefault("tracing.service_name", serviceName)

	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "/etc/controlplane"
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		cfg.Database.User = user
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.Redis.Host = redisHost
	}

	return &cfg, nil
}
