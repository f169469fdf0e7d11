package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CurrentConfigSchemaVersion is the schema version MigrateConfig upgrades to.
const CurrentConfigSchemaVersion = "1.0.0"

// Migrator upgrades legacy configs to the current schema, backing up the
// pre-migration config first.
type Migrator struct {
	BackupDir string
}

// NewMigrator creates a Migrator that writes backups under backupDir.
func NewMigrator(backupDir string) *Migrator {
	return &Migrator{BackupDir: backupDir}
}

// IsLegacy reports whether cfg's schema version is absent or older than
// CurrentConfigSchemaVersion.
func (m *Migrator) IsLegacy(cfg *Config) bool {
	if cfg.SchemaVersion == "" {
		return true
	}
	return semverLess(cfg.SchemaVersion, CurrentConfigSchemaVersion)
}

// MigrateConfig backs up cfg, applies idempotent version steps filling in
// defaults for newly required fields, stamps the current schema version,
// and persists the result via persist (if non-nil). Backup failures are
// logged and do not abort the migration.
func (m *Migrator) MigrateConfig(cfg *Config, persist func(*Config) error) (*Config, error) {
	if err := m.backup(cfg); err != nil {
		log.Printf("Warning: failed to back up config before migration: %v", err)
	}

	applyVersionSteps(cfg)
	cfg.SchemaVersion = CurrentConfigSchemaVersion

	if persist != nil {
		if err := persist(cfg); err != nil {
			return nil, fmt.Errorf("failed to persist migrated config: %w", err)
		}
	}

	return cfg, nil
}

func (m *Migrator) backup(cfg *Config) error {
	if m.BackupDir == "" {
		return nil
	}
	if err := os.MkdirAll(m.BackupDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config for backup: %w", err)
	}

	name := fmt.Sprintf("config-%s.backup.json", time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(m.BackupDir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write config backup: %w", err)
	}

	return nil
}

// applyVersionSteps fills in defaults for fields introduced after a config
// was first written. Each step is idempotent: applying it to an
// already-current config is a no-op.
func applyVersionSteps(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Graph.PoolSize == 0 {
		cfg.Graph.PoolSize = defaults.Graph.PoolSize
	}
	if cfg.Graph.MaxRetries == 0 {
		cfg.Graph.MaxRetries = defaults.Graph.MaxRetries
	}
	if cfg.Graph.QueryTimeoutMs == 0 {
		cfg.Graph.QueryTimeoutMs = defaults.Graph.QueryTimeoutMs
	}
	if cfg.Graph.CircuitBreakerThreshold == 0 {
		cfg.Graph.CircuitBreakerThreshold = defaults.Graph.CircuitBreakerThreshold
	}
	if cfg.Graph.HealthCheckIntervalMs == 0 {
		cfg.Graph.HealthCheckIntervalMs = defaults.Graph.HealthCheckIntervalMs
	}
	if cfg.Graph.BlastRadiusCacheSize == 0 {
		cfg.Graph.BlastRadiusCacheSize = defaults.Graph.BlastRadiusCacheSize
	}
	if cfg.Graph.BlastRadiusCacheTTLMs == 0 {
		cfg.Graph.BlastRadiusCacheTTLMs = defaults.Graph.BlastRadiusCacheTTLMs
	}
	// A legacy config predates the circuit breaker entirely; default it on.
	if cfg.SchemaVersion == "" {
		cfg.Graph.CircuitBreakerEnabled = true
	}
}

// semverLess reports whether a < b for dotted major.minor.patch version
// strings. Missing or non-numeric components compare as 0.
func semverLess(a, b string) bool {
	aParts := splitVersion(a)
	bParts := splitVersion(b)
	for i := 0; i < 3; i++ {
		if aParts[i] != bParts[i] {
			return aParts[i] < bParts[i]
		}
	}
	return false
}

func splitVersion(v string) [3]int {
	var parts [3]int
	fields := strings.SplitN(v, ".", 3)
	for i := 0; i < len(fields) && i < 3; i++ {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			continue
		}
		parts[i] = n
	}
	return parts
}
