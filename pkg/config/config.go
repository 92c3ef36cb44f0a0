// Package config loads mxgraph configuration.
//
// Settings come from three layers, each overriding the one before:
//
//  1. built-in defaults (Default)
//  2. a YAML file (LoadFile)
//  3. MXGRAPH_* environment variables (ApplyEnv)
//
// Command-line flags are applied by the caller on top of the result.
//
// Example Usage:
//
//	cfg, err := config.Load("mxgraph.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
// Environment Variables:
//   - MXGRAPH_STORE="memory" or "badger"
//   - MXGRAPH_DATA_DIR="./data"
//   - MXGRAPH_SYNC_WRITES=true
//   - MXGRAPH_MISSING="warn", "ignore" or "fail"
//   - MXGRAPH_STRICT_DENOTES=true
//   - MXGRAPH_REASONER_CACHE_SIZE=1000
//   - MXGRAPH_REASONER_CACHE_TTL=5m
//   - MXGRAPH_IMPORT_PATHS="ontologies/*.json,extra/**/*.json"
//   - MXGRAPH_LOG_LEVEL="info"
//   - MXGRAPH_LOG_FORMAT="text" or "json"
//   - MXGRAPH_METRICS_FILE="/var/lib/node_exporter/mxgraph.prom"
//   - MXGRAPH_MEMORY_LIMIT="2GB"
//   - MXGRAPH_GC_PERCENT=100
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hymao/mxgraph/pkg/specimen"
)

// Storage engine names.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// Config holds all mxgraph settings.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Index     IndexConfig     `yaml:"index"`
	Propagate PropagateConfig `yaml:"propagate"`
	Reasoner  ReasonerConfig  `yaml:"reasoner"`
	Imports   ImportsConfig   `yaml:"imports"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
}

// StoreConfig selects the graph storage engine.
type StoreConfig struct {
	// Engine is "memory" or "badger".
	Engine string `yaml:"engine"`
	// DataDir is the badger directory. Unused by the memory engine.
	DataDir string `yaml:"data_dir"`
	// SyncWrites makes badger fsync every write.
	SyncWrites bool `yaml:"sync_writes"`
}

// IndexConfig holds taxon-specimen index settings.
type IndexConfig struct {
	// Missing is the policy for broken determination chains.
	Missing string `yaml:"missing"`
}

// PropagateConfig holds propagator settings.
type PropagateConfig struct {
	StrictDenotesProperty bool `yaml:"strict_denotes_property"`
}

// ReasonerConfig holds reasoner result cache settings.
type ReasonerConfig struct {
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheSize    int           `yaml:"cache_size"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// ImportEntry maps an ontology IRI to a local document.
type ImportEntry struct {
	IRI  string `yaml:"iri"`
	Path string `yaml:"path"`
}

// ImportsConfig lists the documents available to owl:imports. Catalog
// entries name their IRI explicitly; documents matched by Paths are keyed
// by the IRI they declare.
type ImportsConfig struct {
	Catalog []ImportEntry `yaml:"catalog,omitempty"`
	Paths   []string      `yaml:"paths,omitempty"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// File receives Prometheus text format metrics at the end of a run.
	// Empty disables export.
	File string `yaml:"file"`
}

// RuntimeConfig tunes the Go runtime.
type RuntimeConfig struct {
	// MemoryLimit is a soft limit such as "2GB". "0" or "unlimited"
	// leaves the runtime default.
	MemoryLimit string `yaml:"memory_limit"`
	GCPercent   int    `yaml:"gc_percent"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Engine:  StoreMemory,
			DataDir: "./data",
		},
		Index: IndexConfig{Missing: "warn"},
		Reasoner: ReasonerConfig{
			CacheEnabled: true,
			CacheSize:    1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Runtime: RuntimeConfig{
			MemoryLimit: "0",
			GCPercent:   100,
		},
	}
}

// Load returns the defaults overlaid with the file at path (if path is not
// empty) and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c. Unknown keys are an
// error.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays MXGRAPH_* environment variables onto c.
//
// Thread Safety:
//
//	ApplyEnv reads environment variables which are process-global and
//	should not be modified after startup.
func (c *Config) ApplyEnv() {
	c.Store.Engine = getEnv("MXGRAPH_STORE", c.Store.Engine)
	c.Store.DataDir = getEnv("MXGRAPH_DATA_DIR", c.Store.DataDir)
	c.Store.SyncWrites = getEnvBool("MXGRAPH_SYNC_WRITES", c.Store.SyncWrites)

	c.Index.Missing = getEnv("MXGRAPH_MISSING", c.Index.Missing)
	c.Propagate.StrictDenotesProperty = getEnvBool("MXGRAPH_STRICT_DENOTES", c.Propagate.StrictDenotesProperty)

	c.Reasoner.CacheEnabled = getEnvBool("MXGRAPH_REASONER_CACHE_ENABLED", c.Reasoner.CacheEnabled)
	c.Reasoner.CacheSize = getEnvInt("MXGRAPH_REASONER_CACHE_SIZE", c.Reasoner.CacheSize)
	c.Reasoner.CacheTTL = getEnvDuration("MXGRAPH_REASONER_CACHE_TTL", c.Reasoner.CacheTTL)

	c.Imports.Paths = getEnvStringSlice("MXGRAPH_IMPORT_PATHS", c.Imports.Paths)

	c.Logging.Level = getEnv("MXGRAPH_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("MXGRAPH_LOG_FORMAT", c.Logging.Format)

	c.Metrics.File = getEnv("MXGRAPH_METRICS_FILE", c.Metrics.File)

	c.Runtime.MemoryLimit = getEnv("MXGRAPH_MEMORY_LIMIT", c.Runtime.MemoryLimit)
	c.Runtime.GCPercent = getEnvInt("MXGRAPH_GC_PERCENT", c.Runtime.GCPercent)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Store.Engine {
	case StoreMemory:
	case StoreBadger:
		if c.Store.DataDir == "" {
			return fmt.Errorf("badger store needs a data directory")
		}
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store.Engine, StoreMemory, StoreBadger)
	}

	if _, err := c.MissingPolicy(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		return fmt.Errorf("unknown log format %q (want text or json)", c.Logging.Format)
	}

	if c.Reasoner.CacheEnabled && c.Reasoner.CacheSize <= 0 {
		return fmt.Errorf("invalid reasoner cache size: %d", c.Reasoner.CacheSize)
	}
	if c.Reasoner.CacheTTL < 0 {
		return fmt.Errorf("invalid reasoner cache ttl: %s", c.Reasoner.CacheTTL)
	}

	for i, e := range c.Imports.Catalog {
		if e.IRI == "" || e.Path == "" {
			return fmt.Errorf("import catalog entry %d needs both iri and path", i)
		}
	}

	if parseMemorySize(c.Runtime.MemoryLimit) < 0 {
		return fmt.Errorf("invalid memory limit: %s", c.Runtime.MemoryLimit)
	}
	return nil
}

// MissingPolicy returns the parsed index missing-value policy.
func (c *Config) MissingPolicy() (specimen.MissingPolicy, error) {
	return specimen.ParseMissingPolicy(c.Index.Missing)
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Logging.Level, err)
	}
	return level, nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Store: %s, DataDir: %s, Missing: %s, Imports: %d+%d, Cache: %v/%d, Log: %s/%s}",
		c.Store.Engine, c.Store.DataDir, c.Index.Missing,
		len(c.Imports.Catalog), len(c.Imports.Paths),
		c.Reasoner.CacheEnabled, c.Reasoner.CacheSize,
		c.Logging.Level, c.Logging.Format,
	)
}

// ApplyRuntimeMemory applies the runtime memory settings to the Go runtime.
// Should be called early in main() before heavy allocations.
func (c *RuntimeConfig) ApplyRuntimeMemory() {
	if limit := parseMemorySize(c.MemoryLimit); limit > 0 {
		debug.SetMemoryLimit(limit)
	}
	if c.GCPercent != 100 && c.GCPercent != 0 {
		debug.SetGCPercent(c.GCPercent)
	}
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultVal
}

// parseMemorySize parses a human-readable memory size string.
// Supports: "1024", "1KB", "1MB", "1GB", "1TB", "0", "unlimited"
func parseMemorySize(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "0" || s == "UNLIMITED" {
		return 0
	}

	s = strings.TrimSuffix(s, "B")

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "T"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "T")
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return val * multiplier
}
