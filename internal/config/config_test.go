package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mock", cfg.Gateway.Provider)
	assert.Equal(t, 5, cfg.Reconcile.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Reconcile.Interval)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "9000"
storage:
  driver: memory
auth:
  jwt_secret: from-file
reconcile:
  attempts: 3
  interval: 500ms
gateway:
  provider: midtrans
  midtrans_server_key: SB-key
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port, "env overrides file")
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 3, cfg.Reconcile.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconcile.Interval)
	assert.Equal(t, "SB-key", cfg.Gateway.MidtransServerKey)
	assert.Equal(t, 15*time.Minute, cfg.Reconcile.SweepMinAge, "untouched values keep defaults")
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Gateway.Provider = "paypal" },
			wantErr: "unknown payment provider",
		},
		{
			name:    "midtrans without key",
			mutate:  func(c *Config) { c.Gateway.Provider = "midtrans" },
			wantErr: "MIDTRANS_SERVER_KEY",
		},
		{
			name:    "stripe without key",
			mutate:  func(c *Config) { c.Gateway.Provider = "stripe" },
			wantErr: "STRIPE_SECRET_KEY",
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Storage.Driver = "sqlite" },
			wantErr: "unknown storage driver",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Reconcile.Attempts = 0 },
			wantErr: "attempts",
		},
		{
			name: "new relic without license",
			mutate: func(c *Config) {
				c.NewRelic.Enabled = true
				c.NewRelic.LicenseKey = ""
			},
			wantErr: "NEW_RELIC_LICENSE_KEY",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			cfg.Auth.JWTSecret = "secret"
			tt.mutate(cfg)

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

func TestGetListEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getListEnv("CORS_ALLOWED_ORIGINS", nil))
}
