package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":5000", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Server.TrustProxyHeaders)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, DefaultAdminPassword, cfg.Admin.Password)
	assert.Equal(t, 12*time.Hour, cfg.Admin.SessionTTL)
	assert.Equal(t, 5, cfg.Admin.LockoutAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Admin.LockoutWindow)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "users", cfg.Mongo.Collection)
	assert.Equal(t, "leaddesk.audit", cfg.Kafka.AuditTopic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Len(t, cfg.Admin.SigningKey, 64, "random signing key is generated when unset")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("ADMIN_USERNAME", "ops")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("ADMIN_SESSION_TTL", "1h")
	t.Setenv("ADMIN_TOKEN_SIGNING_KEY", "fixed-key")
	t.Setenv("STORE_DRIVER", " SQLite ")
	t.Setenv("SQLITE_PATH", "/tmp/leads.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,https://a.example")
	t.Setenv("KAFKA_BROKERS", "Broker-1:9092,broker-1:9092")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Addr())
	assert.Equal(t, "ops", cfg.Admin.Username)
	assert.Equal(t, "s3cret", cfg.Admin.Password)
	assert.Equal(t, time.Hour, cfg.Admin.SessionTTL)
	assert.Equal(t, "fixed-key", cfg.Admin.SigningKey)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/leads.db", cfg.SQLite.Path)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []string{"broker-1:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Server.TrustProxyHeaders)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaddesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
admin:
  username: fromfile
log:
  level: debug
`), 0o600))
	t.Setenv("ADMIN_USERNAME", "fromenv")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "fromenv", cfg.Admin.Username)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func validConfig() Config {
	return Config{
		Environment: EnvDevelopment,
		Server:      ServerConfig{Port: 5000, RequestTimeout: time.Second},
		Admin: AdminConfig{
			Username:        "admin",
			Password:        DefaultAdminPassword,
			SessionTTL:      time.Hour,
			LockoutAttempts: 5,
			LockoutWindow:   time.Minute,
		},
		Store:   StoreConfig{Driver: StoreMemory},
		Tracing: TracingConfig{Exporter: "none"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "development defaults are fine", mutate: func(*Config) {}},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "PORT",
		},
		{
			name:    "unknown store driver",
			mutate:  func(c *Config) { c.Store.Driver = "cassandra" },
			wantErr: "STORE_DRIVER",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Store.Driver = StorePostgres },
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown tracing exporter",
			mutate:  func(c *Config) { c.Tracing.Exporter = "zipkin" },
			wantErr: "TRACING_EXPORTER",
		},
		{
			name: "production rejects default password",
			mutate: func(c *Config) {
				c.Environment = EnvProduction
				c.Store.Driver = StoreSQLite
			},
			wantErr: "default admin password",
		},
		{
			name: "production accepts default password when a hash is set",
			mutate: func(c *Config) {
				c.Environment = EnvProduction
				c.Store.Driver = StoreSQLite
				c.Admin.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
			},
		},
		{
			name: "production rejects memory store",
			mutate: func(c *Config) {
				c.Environment = EnvProduction
				c.Admin.Password = "long-and-unique"
			},
			wantErr: "memory store",
		},
		{
			name: "production redis sessions need a signing key",
			mutate: func(c *Config) {
				c.Environment = EnvProduction
				c.Admin.Password = "long-and-unique"
				c.Store.Driver = StoreSQLite
				c.Redis.URL = "redis://localhost:6379"
			},
			wantErr: "ADMIN_TOKEN_SIGNING_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
