// Package config loads echosearch configuration from YAML with environment
// overrides. Absent configuration means the corresponding feature is
// disabled, never silently enabled.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete echosearch configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store"`
	Model       ModelConfig       `yaml:"model"`
	Rerank      RerankConfig      `yaml:"rerank"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// StoreConfig configures persistence and the lexical index backend.
type StoreConfig struct {
	// DataDir holds the database and index files (default ~/.echosearch).
	DataDir string `yaml:"data_dir"`

	// LexicalBackend selects the index adapter: "sqlite" (default) or
	// "bleve".
	LexicalBackend string `yaml:"lexical_backend"`
}

// ModelConfig points at the external NLP executable used for decomposition
// and reranking. An empty binary disables both model-backed stages.
type ModelConfig struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
}

// RerankConfig holds the recognized reranking options.
type RerankConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Threshold      int     `yaml:"threshold"`
	MaxCandidates  int     `yaml:"max_candidates"`
	TimeoutSeconds float64 `yaml:"timeout"`
}

// MaintenanceConfig configures periodic pruning and the reindex watcher.
type MaintenanceConfig struct {
	// Schedule is a cron expression for the pruning job
	// (default "17 3 * * *": daily at 03:17).
	Schedule string `yaml:"schedule"`

	// WatchPath, when set, is a JSONL entries file watched for changes;
	// a change triggers a reindex.
	WatchPath string `yaml:"watch_path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// Timeout converts the configured seconds to a duration, defaulting to 4s.
func (r RerankConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 4 * time.Second
	}
	return time.Duration(r.TimeoutSeconds * float64(time.Second))
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			DataDir:        defaultDataDir(),
			LexicalBackend: "sqlite",
		},
		Rerank: RerankConfig{
			Enabled:        false,
			Threshold:      25,
			MaxCandidates:  40,
			TimeoutSeconds: 4,
		},
		Maintenance: MaintenanceConfig{
			Schedule: "17 3 * * *",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, layered over defaults, then applies
// environment overrides. An empty path skips the file and returns defaults
// plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.normalize()
	return cfg, nil
}

// applyEnvOverrides maps ECHOSEARCH_* variables over the loaded values.
// Environment has the highest priority.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ECHOSEARCH_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("ECHOSEARCH_LEXICAL_BACKEND"); v != "" {
		cfg.Store.LexicalBackend = v
	}
	if v := os.Getenv("ECHOSEARCH_MODEL_BINARY"); v != "" {
		cfg.Model.Binary = v
	}
	if v := os.Getenv("ECHOSEARCH_RERANK_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Rerank.Enabled = b
		}
	}
	if v := os.Getenv("ECHOSEARCH_RERANK_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Rerank.Threshold = n
		}
	}
	if v := os.Getenv("ECHOSEARCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// normalize applies defaults for zero values and the hard candidate cap.
func (c *Config) normalize() {
	if c.Store.DataDir == "" {
		c.Store.DataDir = defaultDataDir()
	}
	if c.Store.LexicalBackend == "" {
		c.Store.LexicalBackend = "sqlite"
	}
	if c.Rerank.Threshold <= 0 {
		c.Rerank.Threshold = 25
	}
	if c.Rerank.MaxCandidates <= 0 {
		c.Rerank.MaxCandidates = 40
	}
	if c.Rerank.MaxCandidates > 100 {
		c.Rerank.MaxCandidates = 100
	}
	if c.Maintenance.Schedule == "" {
		c.Maintenance.Schedule = "17 3 * * *"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// StorePath is the SQLite database location under the data dir.
func (c *Config) StorePath() string {
	return filepath.Join(c.Store.DataDir, "echo.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".echosearch")
	}
	return filepath.Join(home, ".echosearch")
}
