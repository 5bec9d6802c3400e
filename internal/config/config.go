// Package config loads settings from defaults, an optional TOML file, a
// .env file and SMARTFINANCE_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendGCS    = "gcs"
)

var validBackends = []string{BackendMemory, BackendFile, BackendSQLite, BackendGCS}

// Config holds application configuration.
type Config struct {
	Store  StoreConfig
	LLM    LLMConfig
	AI     AIConfig
	UI     UIConfig
	API    APIConfig
	Log    LogConfig
	Export ExportConfig
}

// StoreConfig selects where ledger state is kept.
type StoreConfig struct {
	Backend    string
	Dir        string
	SQLitePath string `mapstructure:"sqlite_path"`
	GCSBucket  string `mapstructure:"gcs_bucket"`
	GCSPrefix  string `mapstructure:"gcs_prefix"`
}

// LLMConfig holds Gemini settings.
type LLMConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string
}

// AIConfig tunes the prompts.
type AIConfig struct {
	MonthlyExpense int `mapstructure:"monthly_expense"`
	HourlyWage     int `mapstructure:"hourly_wage"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	LongPress time.Duration `mapstructure:"long_press"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Port int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// ExportConfig holds credentials for the optional exporters.
type ExportConfig struct {
	BigQueryProject  string `mapstructure:"bigquery_project"`
	BigQueryDataset  string `mapstructure:"bigquery_dataset"`
	NotionToken      string `mapstructure:"notion_token"`
	NotionDatabaseID string `mapstructure:"notion_database_id"`
}

func dataHome() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "smartfinance")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "smartfinance")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.dir", dataHome())
	v.SetDefault("store.sqlite_path", filepath.Join(dataHome(), "smartfinance.db"))
	v.SetDefault("store.gcs_bucket", "")
	v.SetDefault("store.gcs_prefix", "smartfinance")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-3-flash-preview")
	v.SetDefault("ai.monthly_expense", 25000)
	v.SetDefault("ai.hourly_wage", 200)
	v.SetDefault("ui.long_press", 500*time.Millisecond)
	v.SetDefault("api.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("export.bigquery_project", "")
	v.SetDefault("export.bigquery_dataset", "smartfinance")
	v.SetDefault("export.notion_token", "")
	v.SetDefault("export.notion_database_id", "")
}

// Load reads configuration. A missing config file or .env file is not an
// error; a malformed one is.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("SMARTFINANCE_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "smartfinance"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SMARTFINANCE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	}
	return c, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if !contains(validBackends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("invalid store backend '%s': must be one of %v", c.Store.Backend, validBackends))
	}
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("store directory cannot be empty when using file backend"))
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("SQLite database path cannot be empty when using sqlite backend"))
		}
	case BackendGCS:
		if c.Store.GCSBucket == "" {
			errs = append(errs, errors.New("GCS bucket cannot be empty when using gcs backend"))
		}
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", c.API.Port))
	}
	if c.AI.MonthlyExpense < 0 {
		errs = append(errs, fmt.Errorf("invalid monthly expense %d: must not be negative", c.AI.MonthlyExpense))
	}
	if c.AI.HourlyWage < 0 {
		errs = append(errs, fmt.Errorf("invalid hourly wage %d: must not be negative", c.AI.HourlyWage))
	}
	if c.UI.LongPress <= 0 {
		errs = append(errs, fmt.Errorf("invalid long press threshold %s: must be positive", c.UI.LongPress))
	}
	if f := c.Log.Format; f != "console" && f != "json" {
		errs = append(errs, fmt.Errorf("invalid log format '%s': must be console or json", f))
	}

	return errors.Join(errs...)
}

// HasLLM reports whether an API key is configured.
func (c Config) HasLLM() bool { return c.LLM.APIKey != "" }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
