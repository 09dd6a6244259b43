package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Ingest      IngestConfig     `toml:"ingest"`
	Extraction  ExtractionConfig `toml:"extraction"`
	Query       QueryConfig      `toml:"query"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
	Badger BadgerConfig `toml:"badger"`
}

// SQLiteConfig configures the signal store database
type SQLiteConfig struct {
	Path          string `toml:"path" validate:"required"`
	CacheSizeMB   int    `toml:"cache_size_mb" validate:"gte=1"`
	WALMode       bool   `toml:"wal_mode"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms" validate:"gte=0"`
}

// BadgerConfig configures the local semantic index store
type BadgerConfig struct {
	Path     string `toml:"path" validate:"required"`
	InMemory bool   `toml:"in_memory"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output"` // "stdout", "file"
	TimeFormat string   `toml:"time_format"`
}

// IngestConfig controls the document ingestion pipeline
type IngestConfig struct {
	DropDir             string  `toml:"drop_dir"`                                           // Directory of pending document JSON files
	Schedule            string  `toml:"schedule"`                                           // Cron expression for watch mode
	MinEntityConfidence float64 `toml:"min_entity_confidence" validate:"gte=0,lte=1"`       // Graph node threshold
	AttachmentEdgeScore float64 `toml:"attachment_edge_confidence" validate:"gte=0,lte=1"`  // Fixed ATTACHES confidence
}

// ExtractionConfig controls table metric extraction
type ExtractionConfig struct {
	MinRowConfidence float64 `toml:"min_row_confidence" validate:"gte=0,lte=1"` // Rows below this are dropped
	ColumnSampleSize int     `toml:"column_sample_size" validate:"gte=1"`       // Cells sampled for column-role detection
}

// QueryConfig controls query dispatch behaviour
type QueryConfig struct {
	CacheTTL        string `toml:"cache_ttl"`                    // e.g. "5m"
	SemanticLimit   int    `toml:"semantic_limit" validate:"gte=1"`
	HistoryLimit    int    `toml:"history_limit" validate:"gte=1"`
}

// NewDefaultConfig returns configuration defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/signum.db",
				CacheSizeMB:   64,
				WALMode:       true,
				BusyTimeoutMS: 5000,
			},
			Badger: BadgerConfig{
				Path: "./data/semantic",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Ingest: IngestConfig{
			DropDir:             "./drop",
			Schedule:            "@every 15m",
			MinEntityConfidence: 0.5,
			AttachmentEdgeScore: 0.95,
		},
		Extraction: ExtractionConfig{
			MinRowConfidence: 0.5,
			ColumnSampleSize: 10,
		},
		Query: QueryConfig{
			CacheTTL:      "5m",
			SemanticLimit: 5,
			HistoryLimit:  10,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against struct constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SIGNUM_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if path := os.Getenv("SIGNUM_SQLITE_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}
	if path := os.Getenv("SIGNUM_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("SIGNUM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SIGNUM_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if dir := os.Getenv("SIGNUM_DROP_DIR"); dir != "" {
		config.Ingest.DropDir = dir
	}
	if schedule := os.Getenv("SIGNUM_INGEST_SCHEDULE"); schedule != "" {
		config.Ingest.Schedule = schedule
	}
	if threshold := os.Getenv("SIGNUM_MIN_ENTITY_CONFIDENCE"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Ingest.MinEntityConfidence = v
		}
	}
}
