package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Target:       "postgres://localhost/bench",
		Prefix:       "pgbench",
		Scale:        100,
		Processes:    2,
		Jobs:         4,
		Transactions: 100,
		Mode:         ModePooled,
	}.WithDefaults()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero transactions allowed", func(c *Config) { c.Transactions = 0 }, ""},
		{"single session mode", func(c *Config) { c.Mode = ModeSingleSession }, ""},
		{"missing target", func(c *Config) { c.Target = "" }, "target connection string"},
		{"empty prefix", func(c *Config) { c.Prefix = "" }, "invalid table prefix"},
		{"prefix with dash", func(c *Config) { c.Prefix = "my-bench" }, "invalid table prefix"},
		{"prefix with semicolon", func(c *Config) { c.Prefix = "x; DROP TABLE y" }, "invalid table prefix"},
		{"zero scale", func(c *Config) { c.Scale = 0 }, "scale must be >= 1"},
		{"zero processes", func(c *Config) { c.Processes = 0 }, "processes must be >= 1"},
		{"zero jobs", func(c *Config) { c.Jobs = 0 }, "jobs must be >= 1"},
		{"negative transactions", func(c *Config) { c.Transactions = -1 }, "transactions must be >= 0"},
		{"unknown mode", func(c *Config) { c.Mode = "turbo" }, "unknown execution mode"},
		{"script without path", func(c *Config) { c.Scripts = []ScriptSpec{{Weight: 1}} }, "script path"},
		{"script with zero weight", func(c *Config) { c.Scripts = []ScriptSpec{{Path: "a.sql"}} }, "weight must be positive"},
		{"negative grace", func(c *Config) { c.Grace = -time.Second }, "grace period"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestExpectedTransactions(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 800, cfg.ExpectedTransactions())
	assert.Equal(t, 400, cfg.PerProcessTransactions())

	cfg.Transactions = 0
	assert.Zero(t, cfg.ExpectedTransactions())
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.Equal(t, DefaultGrace, cfg.Grace)
	assert.Equal(t, DefaultTxTimeout, cfg.TxTimeout)
	assert.Equal(t, ModePooled, cfg.Mode)

	custom := Config{Grace: time.Second, TxTimeout: time.Minute, Mode: ModeSingleSession}.WithDefaults()
	assert.Equal(t, time.Second, custom.Grace)
	assert.Equal(t, time.Minute, custom.TxTimeout)
	assert.Equal(t, ModeSingleSession, custom.Mode)
}
