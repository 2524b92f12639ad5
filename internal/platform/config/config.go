package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environments recognised by Validate.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultAdminPassword is the development fallback; production refuses it.
const DefaultAdminPassword = "password"

// Store drivers selectable with STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Admin       AdminConfig    `mapstructure:"admin"`
	Store       StoreConfig    `mapstructure:"store"`
	Mongo       MongoConfig    `mapstructure:"mongo"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	SQLite      SQLiteConfig   `mapstructure:"sqlite"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
	Log         LogConfig      `mapstructure:"log"`
}

// ServerConfig captures HTTP server level configuration. TrustProxyHeaders
// lets X-Forwarded-For pick the client IP; enable it only behind a proxy
// that overwrites the header.
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	TrustProxyHeaders bool          `mapstructure:"trust_proxy_headers"`
}

// Addr is the listen address derived from Port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// AdminConfig holds the single back-office identity and its session policy.
type AdminConfig struct {
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	PasswordHash    string        `mapstructure:"password_hash"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SigningKey      string        `mapstructure:"signing_key"`
	LockoutAttempts int           `mapstructure:"lockout_attempts"`
	LockoutWindow   time.Duration `mapstructure:"lockout_window"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Collection string `mapstructure:"collection"`
}

type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig enables Redis-backed sessions and lockout when URL is set.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig enables the Kafka audit publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	AuditTopic string   `mapstructure:"audit_topic"`
}

type TracingConfig struct {
	Exporter     string  `mapstructure:"exporter"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	ServiceName  string  `mapstructure:"service_name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the environment variables operators set.
var envBindings = map[string]string{
	"environment":                "APP_ENV",
	"server.port":                "PORT",
	"server.request_timeout":     "SERVER_REQUEST_TIMEOUT",
	"server.allowed_origins":     "CORS_ALLOWED_ORIGINS",
	"server.trust_proxy_headers": "TRUST_PROXY_HEADERS",
	"admin.username":             "ADMIN_USERNAME",
	"admin.password":             "ADMIN_PASSWORD",
	"admin.password_hash":        "ADMIN_PASSWORD_HASH",
	"admin.session_ttl":          "ADMIN_SESSION_TTL",
	"admin.signing_key":          "ADMIN_TOKEN_SIGNING_KEY",
	"admin.lockout_attempts":     "ADMIN_LOCKOUT_ATTEMPTS",
	"admin.lockout_window":       "ADMIN_LOCKOUT_WINDOW",
	"store.driver":               "STORE_DRIVER",
	"mongo.uri":                  "MONGODB_URI",
	"mongo.collection":           "MONGODB_COLLECTION",
	"postgres.dsn":               "DATABASE_URL",
	"sqlite.path":                "SQLITE_PATH",
	"redis.url":                  "REDIS_URL",
	"kafka.brokers":              "KAFKA_BROKERS",
	"kafka.audit_topic":          "KAFKA_AUDIT_TOPIC",
	"tracing.exporter":           "TRACING_EXPORTER",
	"tracing.otlp_endpoint":      "OTEL_EXPORTER_OTLP_ENDPOINT",
	"log.level":                  "LOG_LEVEL",
	"log.format":                 "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.trust_proxy_headers", false)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", DefaultAdminPassword)
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.session_ttl", 12*time.Hour)
	v.SetDefault("admin.signing_key", "")
	v.SetDefault("admin.lockout_attempts", 5)
	v.SetDefault("admin.lockout_window", 15*time.Minute)

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017/muu_iptv")
	v.SetDefault("mongo.collection", "users")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "leads")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("sqlite.path", "leaddesk.db")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.audit_topic", "leaddesk.audit")

	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.service_name", "leaddesk")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load resolves configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. A missing signing key is
// replaced with a random per-process key after validation.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.AllowedOrigins = cleanList(cfg.Server.AllowedOrigins, false)
	cfg.Kafka.Brokers = cleanList(cfg.Kafka.Brokers, true)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Admin.SigningKey == "" {
		key, err := randomKey()
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		cfg.Admin.SigningKey = key
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot run, and in production the
// ones that are unsafe to run.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_REQUEST_TIMEOUT must be positive"))
	}
	if c.Admin.Username == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME is required"))
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required"))
	}
	if c.Admin.SessionTTL <= 0 {
		errs = append(errs, errors.New("ADMIN_SESSION_TTL must be positive"))
	}
	if c.Admin.LockoutAttempts <= 0 {
		errs = append(errs, errors.New("ADMIN_LOCKOUT_ATTEMPTS must be positive"))
	}
	if c.Admin.LockoutWindow <= 0 {
		errs = append(errs, errors.New("ADMIN_LOCKOUT_WINDOW must be positive"))
	}

	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	case StoreMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongo store"))
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver))
	}

	switch c.Tracing.Exporter {
	case "", "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("unknown TRACING_EXPORTER %q", c.Tracing.Exporter))
	}

	if c.IsProduction() {
		if c.Admin.PasswordHash == "" && c.Admin.Password == DefaultAdminPassword {
			errs = append(errs, errors.New("the default admin password is not allowed in production"))
		}
		if c.Store.Driver == StoreMemory {
			errs = append(errs, errors.New("the memory store is not allowed in production"))
		}
		if c.Redis.URL != "" && c.Admin.SigningKey == "" {
			errs = append(errs, errors.New("ADMIN_TOKEN_SIGNING_KEY is required when sessions are stored in Redis"))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func randomKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// cleanList trims entries, drops blanks and duplicates, and keeps order.
// Env values arrive as one comma-separated string, so those are split too.
func cleanList(values []string, lower bool) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, raw := range values {
		for _, v := range strings.Split(raw, ",") {
			v = strings.TrimSpace(v)
			if lower {
				v = strings.ToLower(v)
			}
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
