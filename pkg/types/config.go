package types

import (
	"errors"
	"strings"
	"time"
)

// Config holds backend selection and parameters for Workbook.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// WorkbookFile is the .xlsx file used by the xlsx backend. Defaults to
	// sheetform.xlsx inside DataDir.
	WorkbookFile string `json:"workbook_file,omitempty" yaml:"workbook_file,omitempty"`

	// SyncStrategy controls when writes reach the backing files.
	SyncStrategy  string        `json:"sync_strategy,omitempty" yaml:"sync_strategy,omitempty"`
	BatchSize     int           `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	BatchInterval time.Duration `json:"batch_interval,omitempty" yaml:"batch_interval,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendXLSX   = "xlsx"
	BackendMemory = "memory"
)

// Sync strategies.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
	SyncBatch     = "batch"
)

// Defaults applied by GetBatchSize and backends.
const (
	DefaultBatchSize     = 10
	DefaultBatchInterval = 5 * time.Second
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendXLSX:   true,
	BackendMemory: true,
}

var knownSyncStrategies = map[string]bool{
	"":            true,
	SyncImmediate: true,
	SyncOnClose:   true,
	SyncBatch:     true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownSyncStrategies[c.SyncStrategy] {
		return ErrSyncStrategyUnknown
	}
	if c.SyncStrategy == SyncBatch && c.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}
	return nil
}

// GetSyncStrategy returns the effective strategy, defaulting to immediate.
func (c Config) GetSyncStrategy() string {
	if c.SyncStrategy == "" {
		return SyncImmediate
	}
	return c.SyncStrategy
}

// GetBatchSize returns the effective batch size.
func (c Config) GetBatchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

// GetBatchInterval returns the effective batch interval.
func (c Config) GetBatchInterval() time.Duration {
	if c.BatchInterval <= 0 {
		return DefaultBatchInterval
	}
	return c.BatchInterval
}

// ParseFlag interprets a feature flag string. Accepted true values are
// 1, true, yes and on, case-insensitively. Blank returns def.
func ParseFlag(v string, def bool) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// IsConfigError reports whether err is one of the Config validation errors.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrBackendEmpty) ||
		errors.Is(err, ErrBackendUnknown) ||
		errors.Is(err, ErrSyncStrategyUnknown) ||
		errors.Is(err, ErrBatchSizeInvalid)
}

// SaveResult is the outcome of an upsert.
type SaveResult struct {
	OK      bool   `json:"ok"`
	Row     int    `json:"row"`
	ID      any    `json:"id"`
	Message string `json:"message"`
}
