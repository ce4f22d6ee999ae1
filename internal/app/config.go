package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/evoplanner-backend/internal/clients/redis"
	"github.com/yungbote/evoplanner-backend/internal/data/db"
	"github.com/yungbote/evoplanner-backend/internal/observability"
	"github.com/yungbote/evoplanner-backend/internal/optimizer/problem"
	"github.com/yungbote/evoplanner-backend/internal/platform/envutil"
)

type Config struct {
	Env         string   `yaml:"env"`
	LogMode     string   `yaml:"log_mode"`
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`

	Postgres  db.PostgresConfig `yaml:"postgres"`
	Redis     redis.Config      `yaml:"redis"`
	Optimizer OptimizerConfig   `yaml:"optimizer"`
	Otel      OtelConfig        `yaml:"otel"`
	Metrics   MetricsConfig     `yaml:"metrics"`

	// RealtimeChannel is the Redis pub/sub channel that fans SSE messages out across replicas.
	// Empty keeps fan-out in process.
	RealtimeChannel string `yaml:"realtime_channel"`
}

type OptimizerConfig struct {
	CancelTTL               time.Duration `yaml:"cancel_ttl"`
	TriggerPollInterval     time.Duration `yaml:"trigger_poll_interval"`
	MaintenanceSchedule     string        `yaml:"maintenance_schedule"`
	OrphanJobMaxAge         time.Duration `yaml:"orphan_job_max_age"`
	ListenerReceiveTimeout  time.Duration `yaml:"listener_receive_timeout"`
	ListenerShutdownTimeout time.Duration `yaml:"listener_shutdown_timeout"`
	PaddingBefore           int           `yaml:"unavailability_padding_before"`
	PaddingAfter            int           `yaml:"unavailability_padding_after"`
}

func (c OptimizerConfig) Padding() problem.Padding {
	return problem.Padding{Before: c.PaddingBefore, After: c.PaddingAfter}
}

type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ScrapeInterval time.Duration `yaml:"scrape_interval"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Version     string  `yaml:"version"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

func (c Config) OtelSettings() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Env,
		Version:     c.Otel.Version,
		Endpoint:    c.Otel.Endpoint,
		Headers:     observability.ParseHeaders(c.Otel.Headers),
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
	}
}

func DefaultConfig() Config {
	return Config{
		Env:     "development",
		LogMode: "development",
		Port:    "8080",
		Postgres: db.PostgresConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Name:            "evoplanner",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: redis.Config{
			Addr:            "localhost:6379",
			KeyPrefix:       "optimizer:",
			JobQueue:        "jobs",
			ProgressChannel: "progress:updates",
			ConnectRetries:  5,
			RetryBackoff:    2 * time.Second,
		},
		Optimizer: OptimizerConfig{
			CancelTTL:               time.Hour,
			TriggerPollInterval:     time.Minute,
			MaintenanceSchedule:     "@every 5m",
			ListenerReceiveTimeout:  time.Second,
			ListenerShutdownTimeout: 10 * time.Second,
		},
		Otel: OtelConfig{
			ServiceName: "evoplanner-backend",
			SampleRatio: 1,
		},
		Metrics: MetricsConfig{
			ScrapeInterval: 15 * time.Second,
		},
		RealtimeChannel: "optimizer:realtime",
	}
}

// LoadConfig layers defaults, the optional YAML file named by CONFIG_FILE, and environment
// variables, in that order.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("APP_ENV", cfg.Env)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Port = envutil.String("PORT", cfg.Port)
	if raw := envutil.String("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}

	pg := &cfg.Postgres
	pg.Host = envutil.String("POSTGRES_HOST", pg.Host)
	pg.Port = envutil.String("POSTGRES_PORT", pg.Port)
	pg.User = envutil.String("POSTGRES_USER", pg.User)
	pg.Password = envutil.String("POSTGRES_PASSWORD", pg.Password)
	pg.Name = envutil.String("POSTGRES_NAME", pg.Name)
	pg.SSLMode = envutil.String("POSTGRES_SSLMODE", pg.SSLMode)

	rc := &cfg.Redis
	rc.Addr = envutil.String("REDIS_ADDR", rc.Addr)
	rc.Password = envutil.String("REDIS_PASSWORD", rc.Password)
	rc.DB = envutil.Int("REDIS_DB", rc.DB)
	rc.KeyPrefix = envutil.String("OPTIMIZER_KEY_PREFIX", rc.KeyPrefix)
	rc.JobQueue = envutil.String("OPTIMIZER_JOB_QUEUE", rc.JobQueue)
	rc.ProgressChannel = envutil.String("OPTIMIZER_PROGRESS_CHANNEL", rc.ProgressChannel)

	oc := &cfg.Optimizer
	oc.CancelTTL = envutil.Duration("OPTIMIZER_CANCEL_TTL", oc.CancelTTL)
	oc.TriggerPollInterval = envutil.Duration("TRIGGER_POLL_INTERVAL", oc.TriggerPollInterval)
	oc.MaintenanceSchedule = envutil.String("MAINTENANCE_SCHEDULE", oc.MaintenanceSchedule)
	oc.OrphanJobMaxAge = envutil.Duration("ORPHAN_JOB_MAX_AGE", oc.OrphanJobMaxAge)
	oc.ListenerReceiveTimeout = envutil.Duration("LISTENER_RECEIVE_TIMEOUT", oc.ListenerReceiveTimeout)
	oc.ListenerShutdownTimeout = envutil.Duration("LISTENER_SHUTDOWN_TIMEOUT", oc.ListenerShutdownTimeout)
	oc.PaddingBefore = envutil.Int("UNAVAILABILITY_PADDING_BEFORE", oc.PaddingBefore)
	oc.PaddingAfter = envutil.Int("UNAVAILABILITY_PADDING_AFTER", oc.PaddingAfter)

	cfg.RealtimeChannel = envutil.String("REALTIME_CHANNEL", cfg.RealtimeChannel)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ScrapeInterval = envutil.Duration("METRICS_SCRAPE_INTERVAL", cfg.Metrics.ScrapeInterval)

	ot := &cfg.Otel
	ot.Enabled = envutil.Bool("OTEL_ENABLED", ot.Enabled)
	ot.ServiceName = envutil.String("OTEL_SERVICE_NAME", ot.ServiceName)
	ot.Version = envutil.String("OTEL_SERVICE_VERSION", ot.Version)
	ot.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ot.Endpoint)
	ot.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ot.Headers)
	ot.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", ot.Insecure)
	ot.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", ot.SampleRatio)
}

func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Port) == "" {
		problems = append(problems, "port is required")
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		problems = append(problems, "redis addr is required")
	}
	if c.Optimizer.PaddingBefore < 0 || c.Optimizer.PaddingAfter < 0 {
		problems = append(problems, "unavailability padding must be >= 0")
	}
	if c.Optimizer.ListenerReceiveTimeout <= 0 {
		problems = append(problems, "listener receive timeout must be > 0")
	}
	if c.Optimizer.CancelTTL <= 0 {
		problems = append(problems, "cancel ttl must be > 0")
	}
	if c.Otel.SampleRatio < 0 || c.Otel.SampleRatio > 1 {
		problems = append(problems, "otel sample ratio must be within [0,1]")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
