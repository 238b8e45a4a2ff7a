package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("VISION_PROVIDER", "MOCK")
	t.Setenv("BLOCKCHAIN_CHAIN_ID", "137")
	t.Setenv("BLOCKCHAIN_RECEIPT_POLL", "500ms")
	t.Setenv("WORKFLOW_ALLOW_SIMULATED_MINT", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://apex.example, ,https://admin.apex.example")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, VisionProviderMock, cfg.Vision.Provider)
	assert.Equal(t, "0x89", cfg.Blockchain.ChainIDHex())
	assert.Equal(t, 500*time.Millisecond, cfg.Blockchain.ReceiptPoll)
	assert.False(t, cfg.Workflow.AllowSimulatedMint)
	assert.Equal(t, []string{"https://apex.example", "https://admin.apex.example"}, cfg.Frontend.AllowedOrigins)
	assert.Equal(t, 15, cfg.Server.ReadTimeout)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: "development",
			Database:    DatabaseConfig{Driver: "postgres"},
			JWT:         JWTConfig{SecretKey: "your-secret-key-change-in-production"},
			Vision:      VisionConfig{Provider: VisionProviderMock},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"development defaults", func(*Config) {}, false},
		{"production default secret", func(c *Config) { c.Environment = "production" }, true},
		{"production without db password", func(c *Config) {
			c.Environment = "production"
			c.JWT.SecretKey = "rotated"
		}, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"google without key", func(c *Config) { c.Vision.Provider = VisionProviderGoogle }, true},
		{"google with key", func(c *Config) {
			c.Vision.Provider = VisionProviderGoogle
			c.Vision.APIKey = "key"
		}, false},
		{"unknown vision provider", func(c *Config) { c.Vision.Provider = "aws" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
