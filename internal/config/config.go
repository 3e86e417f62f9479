// Package config holds runtime configuration for the hivemind claim engine.
//
// Configuration is a small set of scalars with environment overrides — there
// is deliberately no config file format. Everything the engine needs at
// startup fits in DefaultConfig() plus a handful of HIVEMIND_* variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Env variable names recognized by Load.
const (
	EnvDataDir        = "HIVEMIND_DATA_DIR"
	EnvSpoolPath      = "HIVEMIND_SPOOL"
	EnvAgents         = "HIVEMIND_AGENTS"
	EnvForceInProcess = "HIVEMIND_FORCE_IN_PROCESS"
)

// Config holds claim-engine configuration.
type Config struct {
	// DataDir is where the claim database and spool live.
	DataDir string
	// DBFile is the database filename inside DataDir.
	DBFile string
	// SpoolPath is the append-only event spool. Defaults to
	// DataDir/pattern-spool.ndjson when empty.
	SpoolPath string
	// ActiveAgents is the roster whose unanimous support confirms a claim.
	// Entries are normalized through the role alias table.
	ActiveAgents []string
	// MaxQueryResults caps query-claims result sets (hard cap 5000).
	MaxQueryResults int
	// MaxBeliefs caps the size of a belief snapshot.
	MaxBeliefs int
	// MineInterval is the cadence of the pattern-mining sweep.
	MineInterval time.Duration
	// ExpireInterval is the cadence of the claim TTL sweep.
	ExpireInterval time.Duration
	// IntegrityInterval is the cadence of the database quick_check sweep.
	IntegrityInterval time.Duration
}

// DefaultConfig returns the default configuration for the claim engine.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:           filepath.Join(home, ".hivemind"),
		DBFile:            "claims.db",
		ActiveAgents:      []string{"architect", "devops", "analyst"},
		MaxQueryResults:   100,
		MaxBeliefs:        200,
		MineInterval:      5 * time.Minute,
		ExpireInterval:    15 * time.Minute,
		IntegrityInterval: time.Hour,
	}
}

// Load returns DefaultConfig with environment overrides applied.
func Load() Config {
	cfg := DefaultConfig()
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvSpoolPath); v != "" {
		cfg.SpoolPath = v
	}
	if v := os.Getenv(EnvAgents); v != "" {
		var agents []string
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				agents = append(agents, a)
			}
		}
		if len(agents) > 0 {
			cfg.ActiveAgents = agents
		}
	}
	return cfg
}

// ResolvedSpoolPath returns SpoolPath, defaulting to the spool file
// inside DataDir.
func (c Config) ResolvedSpoolPath() string {
	if c.SpoolPath != "" {
		return c.SpoolPath
	}
	return filepath.Join(c.DataDir, "pattern-spool.ndjson")
}

// ForceInProcess reports whether the environment forces in-process
// execution (used by tests to bypass worker dispatch).
func ForceInProcess() bool {
	switch strings.ToLower(os.Getenv(EnvForceInProcess)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
