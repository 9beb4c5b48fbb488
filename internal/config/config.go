package config

import (
	"fmt"
	"regexp"
	"time"
)

// Mode selects how a job acquires connections for its transactions.
type Mode string

const (
	// ModePooled acquires a connection from the pool for every transaction,
	// letting the pool handle reuse and transient retry.
	ModePooled Mode = "pooled"
	// ModeSingleSession acquires one connection per job and reuses it for
	// every transaction. A fatal connection error ends the job.
	ModeSingleSession Mode = "single-session"
)

// ScriptSpec references an external SQL file with a selection weight,
// parsed from "file.sql@weight" on the command line.
type ScriptSpec struct {
	Path   string  `json:"path"`
	Weight float64 `json:"weight"`
}

// Config is the immutable description of one benchmark run. It is assembled
// in cmd/, validated once before any worker spawns, and shared read-only by
// every tier after that.
type Config struct {
	// Target is a libpq-style connection string or postgres:// URL.
	Target string `json:"target"`

	// Prefix names the table family (<prefix>_accounts etc.).
	Prefix string `json:"prefix"`

	// Scale is the number of branches the schema was seeded with.
	Scale int `json:"scale"`

	Processes    int  `json:"processes"`
	Jobs         int  `json:"jobs"`
	Transactions int  `json:"transactions"`
	Mode         Mode `json:"mode"`

	Scripts []ScriptSpec `json:"scripts,omitempty"`

	// Grace bounds how long the orchestrator waits for worker batches after
	// cancellation before counting them as missing.
	Grace time.Duration `json:"grace"`

	// TxTimeout bounds a single transaction execution.
	TxTimeout time.Duration `json:"tx_timeout"`
}

const (
	DefaultGrace     = 10 * time.Second
	DefaultTxTimeout = 30 * time.Second
)

var prefixPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Validate rejects configurations before any worker spawns. A validation
// failure aborts the run with no partial report.
func (c Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target connection string is required")
	}
	if !prefixPattern.MatchString(c.Prefix) {
		return fmt.Errorf("invalid table prefix %q: only alphanumeric characters and underscores are allowed", c.Prefix)
	}
	if c.Scale < 1 {
		return fmt.Errorf("scale must be >= 1, got %d", c.Scale)
	}
	if c.Processes < 1 {
		return fmt.Errorf("processes must be >= 1, got %d", c.Processes)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be >= 1, got %d", c.Jobs)
	}
	if c.Transactions < 0 {
		return fmt.Errorf("transactions must be >= 0, got %d", c.Transactions)
	}
	if c.Mode != ModePooled && c.Mode != ModeSingleSession {
		return fmt.Errorf("unknown execution mode %q", c.Mode)
	}
	for _, s := range c.Scripts {
		if s.Path == "" {
			return fmt.Errorf("script path must not be empty")
		}
		if s.Weight <= 0 {
			return fmt.Errorf("script %s: weight must be positive, got %v", s.Path, s.Weight)
		}
	}
	if c.Grace <= 0 {
		return fmt.Errorf("grace period must be positive, got %v", c.Grace)
	}
	return nil
}

// ExpectedTransactions is the record count a fully successful run produces.
func (c Config) ExpectedTransactions() int {
	return c.Processes * c.Jobs * c.Transactions
}

// PerProcessTransactions is the expected contribution of one worker.
func (c Config) PerProcessTransactions() int {
	return c.Jobs * c.Transactions
}

// WithDefaults fills zero-valued optional fields.
func (c Config) WithDefaults() Config {
	if c.Grace == 0 {
		c.Grace = DefaultGrace
	}
	if c.TxTimeout == 0 {
		c.TxTimeout = DefaultTxTimeout
	}
	if c.Mode == "" {
		c.Mode = ModePooled
	}
	return c
}
