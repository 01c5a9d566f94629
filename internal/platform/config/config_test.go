package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/perfeval",
		JWTSecret:          "dev-secret",
		Environment:        "development",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 60,
		OperationTimeout:   time.Second,
		DirectoryTimeout:   time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = " " }, wantErr: true},
		{name: "short production secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimitPerMinute = 0 }, wantErr: true},
		{name: "zero operation timeout", mutate: func(c *Config) { c.OperationTimeout = 0 }, wantErr: true},
		{name: "redis without lock ttl", mutate: func(c *Config) { c.RedisAddr = "localhost:6379"; c.ReviewLockTTL = 0 }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("IDENTITY_ADMIN_FALLBACK", "false")
	t.Setenv("OPERATION_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://portal.example.com, https://admin.example.com")

	cfg := Load()
	require.Equal(t, ":9090", cfg.Addr)
	require.False(t, cfg.IdentityAdminFallback)
	require.Equal(t, 3*time.Second, cfg.OperationTimeout)
	require.Equal(t, []string{"https://portal.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}
