// Package config holds runtime configuration for fsindex.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for an indexing run. Flags write
// into it directly; an optional override file (see ApplyFile) wins
// field-by-field afterwards.
type Config struct {
	// Traversal
	Root          string
	FilenameRegex string
	Workers       int
	BatchSize     int

	// Storage
	DBHost       string
	DBPort       int
	DBName       string
	DBNamespace  string
	DBUser       string
	DBPass       string
	Table        string
	DropExisting bool

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Default returns a config seeded from environment variables, with the
// same defaults the flags advertise.
func Default() Config {
	return Config{
		Workers:   runtime.NumCPU(),
		BatchSize: 1000,

		DBHost:      getEnv("FSINDEX_DB_HOST", "localhost"),
		DBPort:      getEnvInt("FSINDEX_DB_PORT", 8000),
		DBName:      getEnv("FSINDEX_DB_NAME", "filedb"),
		DBNamespace: getEnv("FSINDEX_DB_NAMESPACE", "fsindex"),
		DBUser:      getEnv("FSINDEX_DB_USER", "root"),
		DBPass:      getEnv("FSINDEX_DB_PASS", "root"),
		Table:       getEnv("FSINDEX_TABLE", "file_index"),

		LogFile:  getEnv("FSINDEX_LOG_FILE", "/tmp/fsindex.log"),
		LogLevel: parseLogLevel(getEnv("FSINDEX_LOG_LEVEL", "INFO")),
	}
}

// ApplyFile merges an override file into the config. The file is a YAML
// (or JSON, which YAML subsumes) mapping; recognized keys override the
// matching field, unrecognized keys are ignored, and a value of the wrong
// type is a fatal configuration error.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	for key, value := range raw {
		if err := c.apply(key, value); err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
	}
	return nil
}

// apply sets one recognized field from an override value. Unknown keys
// return nil so old configs keep working when fields go away.
func (c *Config) apply(key string, value any) error {
	switch key {
	case "root":
		return setString(&c.Root, key, value)
	case "filename_regex":
		return setString(&c.FilenameRegex, key, value)
	case "workers":
		return setInt(&c.Workers, key, value)
	case "batch_size":
		return setInt(&c.BatchSize, key, value)
	case "db_host":
		return setString(&c.DBHost, key, value)
	case "db_port":
		return setInt(&c.DBPort, key, value)
	case "db_name":
		return setString(&c.DBName, key, value)
	case "db_namespace":
		return setString(&c.DBNamespace, key, value)
	case "db_user":
		return setString(&c.DBUser, key, value)
	case "db_pass":
		return setString(&c.DBPass, key, value)
	case "table":
		return setString(&c.Table, key, value)
	case "drop_existing":
		return setBool(&c.DropExisting, key, value)
	case "log_file":
		return setString(&c.LogFile, key, value)
	case "log_level":
		var s string
		if err := setString(&s, key, value); err != nil {
			return err
		}
		c.LogLevel = parseLogLevel(s)
		return nil
	default:
		return nil
	}
}

// Validate rejects configs that cannot start a run.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root directory is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.Workers)
	}
	return nil
}

func setString(dst *string, key string, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("field %q must be a string, got %T", key, value)
	}
	*dst = s
	return nil
}

func setInt(dst *int, key string, value any) error {
	switch v := value.(type) {
	case int:
		*dst = v
	case float64:
		*dst = int(v)
	default:
		return fmt.Errorf("field %q must be an integer, got %T", key, value)
	}
	return nil
}

func setBool(dst *bool, key string, value any) error {
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("field %q must be a boolean, got %T", key, value)
	}
	*dst = b
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
