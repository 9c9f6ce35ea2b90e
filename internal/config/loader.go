package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "handoff.yaml"

// DefaultEnvFile is the dotenv file loaded into the process environment.
const DefaultEnvFile = ".env"

// Load returns a Config using the hierarchy: defaults < YAML < .env < ENV.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile, DefaultEnvFile)
}

// LoadFrom returns a Config loaded from the given YAML and dotenv paths. Both
// files are optional. Variables already present in the environment win over
// the dotenv file.
func LoadFrom(yamlPath, envPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadDotEnv(envPath); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadDotEnv populates unset environment variables from path.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "HANDOFF_PORT")
	setString(&cfg.Server.CORSOrigin, "HANDOFF_CORS_ORIGIN")
	setDuration(&cfg.Server.ReadTimeout, "HANDOFF_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "HANDOFF_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "HANDOFF_SHUTDOWN_TIMEOUT")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "HANDOFF_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "HANDOFF_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "HANDOFF_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "HANDOFF_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "HANDOFF_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setString(&cfg.Redis.KeyPrefix, "HANDOFF_REDIS_KEY_PREFIX")

	setString(&cfg.AMQP.URL, "AMQP_URL")
	setString(&cfg.AMQP.Exchange, "HANDOFF_AMQP_EXCHANGE")

	setInt64(&cfg.Cache.L1MaxSizeMB, "HANDOFF_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.L1TTL, "HANDOFF_CACHE_L1_TTL")
	setString(&cfg.Cache.L2Backend, "HANDOFF_CACHE_L2_BACKEND")
	setString(&cfg.Cache.L2Bucket, "HANDOFF_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "HANDOFF_CACHE_L2_TTL")

	setString(&cfg.Logging.Level, "HANDOFF_LOG_LEVEL")
	setString(&cfg.Logging.Service, "HANDOFF_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "HANDOFF_LOG_ASYNC")
	setInt(&cfg.Logging.AsyncBuffer, "HANDOFF_LOG_ASYNC_BUFFER")

	setInt(&cfg.Breaker.MaxFailures, "HANDOFF_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "HANDOFF_BREAKER_TIMEOUT")

	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "OTEL_EXPORTER_OTLP_INSECURE")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setFloat64(&cfg.OTEL.SampleRate, "HANDOFF_OTEL_SAMPLE_RATE")

	setBool(&cfg.MCP.Enabled, "HANDOFF_MCP_ENABLED")
	setString(&cfg.MCP.Path, "HANDOFF_MCP_PATH")

	setDuration(&cfg.Idempotency.TTL, "HANDOFF_IDEMPOTENCY_TTL")

	setInt(&cfg.Handoff.Threshold, "HANDOFF_THRESHOLD")
	setInt(&cfg.Handoff.MaxRecommendations, "HANDOFF_MAX_RECOMMENDATIONS")
	setInt(&cfg.Handoff.MaxAlternatives, "HANDOFF_MAX_ALTERNATIVES")
	setFloat64(&cfg.Handoff.DefaultSuccessRate, "HANDOFF_DEFAULT_SUCCESS_RATE")
	setInt(&cfg.Handoff.MaxSessionHandoffs, "HANDOFF_MAX_SESSION_HANDOFFS")
	setInt(&cfg.Handoff.HistoryDefaultLimit, "HANDOFF_HISTORY_DEFAULT_LIMIT")
	setInt(&cfg.Handoff.HistoryMaxLimit, "HANDOFF_HISTORY_MAX_LIMIT")
	setInt(&cfg.Handoff.SuccessRateMinSamples, "HANDOFF_SUCCESS_RATE_MIN_SAMPLES")
	setDuration(&cfg.Handoff.SuccessRateTTL, "HANDOFF_SUCCESS_RATE_TTL")
	setString(&cfg.Handoff.AgentsFile, "HANDOFF_AGENTS_FILE")
	setString(&cfg.Handoff.ChainsFile, "HANDOFF_CHAINS_FILE")
	setString(&cfg.Handoff.TriggerBackend, "HANDOFF_TRIGGER_BACKEND")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}

	switch cfg.Handoff.TriggerBackend {
	case TriggerNATS:
		if cfg.NATS.URL == "" {
			return errors.New("nats.url is required for the nats trigger backend")
		}
	case TriggerAMQP:
		if cfg.AMQP.URL == "" {
			return errors.New("amqp.url is required for the amqp trigger backend")
		}
	case TriggerNone:
	default:
		return fmt.Errorf("handoff.trigger_backend %q must be nats, amqp or none", cfg.Handoff.TriggerBackend)
	}

	switch cfg.Cache.L2Backend {
	case L2NATSKV:
		if cfg.NATS.URL == "" {
			return errors.New("nats.url is required for the natskv cache backend")
		}
	case L2Redis:
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis cache backend")
		}
	case L2None:
	default:
		return fmt.Errorf("cache.l2_backend %q must be natskv, redis or none", cfg.Cache.L2Backend)
	}
	if cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}

	h := cfg.Handoff
	if h.Threshold < 0 || h.Threshold > 100 {
		return errors.New("handoff.threshold must be within [0,100]")
	}
	if h.MaxRecommendations < 1 {
		return errors.New("handoff.max_recommendations must be >= 1")
	}
	if h.MaxAlternatives < 0 || h.MaxAlternatives >= h.MaxRecommendations {
		return errors.New("handoff.max_alternatives must be >= 0 and below max_recommendations")
	}
	if h.DefaultSuccessRate < 0 || h.DefaultSuccessRate > 100 {
		return errors.New("handoff.default_success_rate must be within [0,100]")
	}
	if h.MaxSessionHandoffs < 1 {
		return errors.New("handoff.max_session_handoffs must be >= 1")
	}
	if h.HistoryDefaultLimit < 1 || h.HistoryDefaultLimit > h.HistoryMaxLimit {
		return errors.New("handoff.history_default_limit must be >= 1 and <= history_max_limit")
	}
	return nil
}

// Flags holds command-line overrides. Nil fields were not set.
type Flags struct {
	ConfigFile *string
	Port       *string
	LogLevel   *string
	DSN        *string
	NatsURL    *string
	Trigger    *string
}

// ParseFlags parses args. Only flags explicitly passed are non-nil.
func ParseFlags(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("handoffd", flag.ContinueOnError)
	configFile := fs.String("config", DefaultConfigFile, "path to YAML config file")
	port := fs.String("port", "", "HTTP listen port")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	dsn := fs.String("dsn", "", "PostgreSQL DSN")
	natsURL := fs.String("nats-url", "", "NATS server URL")
	trigger := fs.String("trigger", "", "workflow trigger backend (nats, amqp, none)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f := &Flags{}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "config":
			f.ConfigFile = configFile
		case "port":
			f.Port = port
		case "log-level":
			f.LogLevel = logLevel
		case "dsn":
			f.DSN = dsn
		case "nats-url":
			f.NatsURL = natsURL
		case "trigger":
			f.Trigger = trigger
		}
	})
	return f, nil
}

// Apply overlays set flags onto cfg and re-validates it.
func (f *Flags) Apply(cfg *Config) error {
	if f.Port != nil {
		cfg.Server.Port = *f.Port
	}
	if f.LogLevel != nil {
		cfg.Logging.Level = *f.LogLevel
	}
	if f.DSN != nil {
		cfg.Postgres.DSN = *f.DSN
	}
	if f.NatsURL != nil {
		cfg.NATS.URL = *f.NatsURL
	}
	if f.Trigger != nil {
		cfg.Handoff.TriggerBackend = *f.Trigger
	}
	return validate(cfg)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
