package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	NewRelic  NewRelicConfig  `yaml:"newrelic"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Locks     LockConfig      `yaml:"locks"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver   string `yaml:"driver"` // postgres or memory
	SeedFile string `yaml:"seed_file"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `yaml:"app_name"`
	LicenseKey string `yaml:"license_key"`
	Enabled    bool   `yaml:"enabled"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// AuthConfig holds JWT verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// GatewayConfig selects and configures the payment gateway.
type GatewayConfig struct {
	Provider            string        `yaml:"provider"` // midtrans, stripe or mock
	MidtransServerKey   string        `yaml:"midtrans_server_key"`
	MidtransProduction  bool          `yaml:"midtrans_production"`
	MidtransSnapURL     string        `yaml:"midtrans_snap_url"`
	MidtransAPIURL      string        `yaml:"midtrans_api_url"`
	FinishURL           string        `yaml:"finish_url"`
	StripeSecretKey     string        `yaml:"stripe_secret_key"`
	StripeWebhookSecret string        `yaml:"stripe_webhook_secret"`
	Currency            string        `yaml:"currency"`
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
}

// ReconcileConfig bounds confirmation polling and the stale payment sweep.
type ReconcileConfig struct {
	Attempts    int           `yaml:"attempts"`
	Interval    time.Duration `yaml:"interval"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	SweepSpec   string        `yaml:"sweep_spec"`
	SweepMinAge time.Duration `yaml:"sweep_min_age"`
	SweepLimit  int           `yaml:"sweep_limit"`
}

// LockConfig holds distributed lock settings.
type LockConfig struct {
	TTL  time.Duration `yaml:"ttl"`
	Wait time.Duration `yaml:"wait"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Storage: StorageConfig{Driver: "postgres"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "vehicle_rental",
			SSLMode:  "disable",

			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			CacheTTL: 10 * time.Second,
		},
		NewRelic: NewRelicConfig{
			AppName: "vehicle-rental-service",
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Auth: AuthConfig{
			Issuer: "vehicle-rental",
		},
		Gateway: GatewayConfig{
			Provider:    "mock",
			Currency:    "idr",
			HTTPTimeout: 20 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Attempts:    5,
			Interval:    2 * time.Second,
			CallTimeout: 10 * time.Second,
			SweepSpec:   "0 */5 * * * *",
			SweepMinAge: 15 * time.Minute,
			SweepLimit:  50,
		},
		Locks: LockConfig{
			TTL:  30 * time.Second,
			Wait: 5 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order. An empty path falls back to
// CONFIG_FILE; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.AllowedOrigins = getListEnv("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.SeedFile = getEnv("SEED_FILE", c.Storage.SeedFile)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime = getDurationEnv("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getIntEnv("REDIS_DB", c.Redis.DB)
	c.Redis.CacheTTL = getDurationEnv("REDIS_CACHE_TTL", c.Redis.CacheTTL)

	c.NewRelic.AppName = getEnv("NEW_RELIC_APP_NAME", c.NewRelic.AppName)
	c.NewRelic.LicenseKey = getEnv("NEW_RELIC_LICENSE_KEY", c.NewRelic.LicenseKey)
	c.NewRelic.Enabled = getBoolEnv("NEW_RELIC_ENABLED", c.NewRelic.Enabled)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = getEnv("JWT_ISSUER", c.Auth.Issuer)

	c.Gateway.Provider = getEnv("PAYMENT_PROVIDER", c.Gateway.Provider)
	c.Gateway.MidtransServerKey = getEnv("MIDTRANS_SERVER_KEY", c.Gateway.MidtransServerKey)
	c.Gateway.MidtransProduction = getBoolEnv("MIDTRANS_PRODUCTION", c.Gateway.MidtransProduction)
	c.Gateway.MidtransSnapURL = getEnv("MIDTRANS_SNAP_URL", c.Gateway.MidtransSnapURL)
	c.Gateway.MidtransAPIURL = getEnv("MIDTRANS_API_URL", c.Gateway.MidtransAPIURL)
	c.Gateway.FinishURL = getEnv("PAYMENT_FINISH_URL", c.Gateway.FinishURL)
	c.Gateway.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", c.Gateway.StripeSecretKey)
	c.Gateway.StripeWebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", c.Gateway.StripeWebhookSecret)
	c.Gateway.Currency = getEnv("PAYMENT_CURRENCY", c.Gateway.Currency)
	c.Gateway.HTTPTimeout = getDurationEnv("PAYMENT_HTTP_TIMEOUT", c.Gateway.HTTPTimeout)

	c.Reconcile.Attempts = getIntEnv("RECONCILE_ATTEMPTS", c.Reconcile.Attempts)
	c.Reconcile.Interval = getDurationEnv("RECONCILE_INTERVAL", c.Reconcile.Interval)
	c.Reconcile.CallTimeout = getDurationEnv("RECONCILE_CALL_TIMEOUT", c.Reconcile.CallTimeout)
	c.Reconcile.SweepSpec = getEnv("RECONCILE_SWEEP_SPEC", c.Reconcile.SweepSpec)
	c.Reconcile.SweepMinAge = getDurationEnv("RECONCILE_SWEEP_MIN_AGE", c.Reconcile.SweepMinAge)
	c.Reconcile.SweepLimit = getIntEnv("RECONCILE_SWEEP_LIMIT", c.Reconcile.SweepLimit)

	c.Locks.TTL = getDurationEnv("LOCK_TTL", c.Locks.TTL)
	c.Locks.Wait = getDurationEnv("LOCK_WAIT", c.Locks.Wait)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}

	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch c.Gateway.Provider {
	case "mock":
	case "midtrans":
		if c.Gateway.MidtransServerKey == "" {
			errs = append(errs, errors.New("MIDTRANS_SERVER_KEY is required for the midtrans provider"))
		}
	case "stripe":
		if c.Gateway.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required for the stripe provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown payment provider %q", c.Gateway.Provider))
	}

	if c.Reconcile.Attempts <= 0 {
		errs = append(errs, errors.New("reconcile attempts must be positive"))
	}
	if c.Reconcile.Interval <= 0 {
		errs = append(errs, errors.New("reconcile interval must be positive"))
	}

	if c.NewRelic.Enabled && c.NewRelic.LicenseKey == "" {
		errs = append(errs, errors.New("NEW_RELIC_LICENSE_KEY is required when New Relic is enabled"))
	}

	return errors.Join(errs...)
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
