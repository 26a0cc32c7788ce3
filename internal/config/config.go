// Package config loads payoff.yaml, the per-project configuration, with
// environment overrides from .env and PAYOFF_* variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a project.
const FileName = "payoff.yaml"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config represents the top-level payoff.yaml configuration.
type Config struct {
	Project    ProjectConfig    `yaml:"project"`
	Storage    StorageConfig    `yaml:"storage"`
	Billing    BillingConfig    `yaml:"billing"`
	AutoUpdate AutoUpdateConfig `yaml:"auto_update"`
	Logging    LoggingConfig    `yaml:"logging"`
	Git        GitConfig        `yaml:"git"`
	Import     ImportConfig     `yaml:"import"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// ProjectConfig names the household or owner of the tracked debts.
type ProjectConfig struct {
	Name string `yaml:"name"`
}

// StorageConfig selects where accounts and ledgers live.
type StorageConfig struct {
	Backend    string `yaml:"backend"`               // "file" or "sqlite"
	SQLitePath string `yaml:"sqlite_path,omitempty"` // relative to the project root
}

// BillingConfig defines the monthly billing cycle.
type BillingConfig struct {
	CycleDay int `yaml:"cycle_day"` // 1..28
}

// AutoUpdateConfig controls the scheduled auto-update run.
type AutoUpdateConfig struct {
	Schedule string `yaml:"schedule"` // standard 5-field cron expression
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// ImportConfig maps bank-export descriptions to debt accounts.
type ImportConfig struct {
	Rules []ImportRule `yaml:"rules,omitempty"`
}

// ImportRule assigns imported transactions whose description contains Match
// (case-insensitive) to an account.
type ImportRule struct {
	Match     string `yaml:"match"`
	AccountID string `yaml:"account_id"`
}

// HTTPConfig configures `payoff serve`.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads a payoff.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// LoadProject reads <root>/payoff.yaml, loads <root>/.env if present, and
// applies environment overrides.
func LoadProject(root string) (*Config, error) {
	cfg, err := Load(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}
	if err := LoadEnvFile(root); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(projectName string) *Config {
	return &Config{
		Project: ProjectConfig{Name: projectName},
		Storage: StorageConfig{
			Backend:    BackendFile,
			SQLitePath: "payoff.db",
		},
		Billing:    BillingConfig{CycleDay: 1},
		AutoUpdate: AutoUpdateConfig{Schedule: "0 6 * * *"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Payoff",
			AuthorEmail: "payoff@localhost",
		},
		HTTP: HTTPConfig{Addr: "127.0.0.1:8080"},
	}
}

// LoadEnvFile loads <root>/.env into the process environment. Variables that
// are already set win over the file. A missing file is not an error.
func LoadEnvFile(root string) error {
	err := godotenv.Load(filepath.Join(root, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from PAYOFF_* environment variables.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"PAYOFF_STORAGE_BACKEND":      &c.Storage.Backend,
		"PAYOFF_SQLITE_PATH":          &c.Storage.SQLitePath,
		"PAYOFF_AUTO_UPDATE_SCHEDULE": &c.AutoUpdate.Schedule,
		"PAYOFF_LOG_LEVEL":            &c.Logging.Level,
		"PAYOFF_LOG_FORMAT":           &c.Logging.Format,
		"PAYOFF_HTTP_ADDR":            &c.HTTP.Addr,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("PAYOFF_CYCLE_DAY"); ok {
		day, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAYOFF_CYCLE_DAY: %w", err)
		}
		c.Billing.CycleDay = day
	}
	if v, ok := os.LookupEnv("PAYOFF_GIT_AUTO_COMMIT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PAYOFF_GIT_AUTO_COMMIT: %w", err)
		}
		c.Git.AutoCommit = b
	}
	return nil
}

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Backend {
	case BackendFile:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "storage.sqlite_path is required for the sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q must be %q or %q", c.Storage.Backend, BackendFile, BackendSQLite))
	}

	if c.Billing.CycleDay < 1 || c.Billing.CycleDay > 28 {
		problems = append(problems, fmt.Sprintf("billing.cycle_day %d must be between 1 and 28", c.Billing.CycleDay))
	}

	if c.AutoUpdate.Schedule != "" {
		if _, err := cron.ParseStandard(c.AutoUpdate.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("auto_update.schedule: %v", err))
		}
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, fmt.Sprintf("logging.level: %v", err))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		problems = append(problems, fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format))
	}

	for i, r := range c.Import.Rules {
		if strings.TrimSpace(r.Match) == "" {
			problems = append(problems, fmt.Sprintf("import.rules[%d].match is empty", i))
		}
		if _, err := uuid.Parse(r.AccountID); err != nil {
			problems = append(problems, fmt.Sprintf("import.rules[%d].account_id: %v", i, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SQLitePath resolves the SQLite database path against the project root.
func (c *Config) SQLitePath(root string) string {
	if filepath.IsAbs(c.Storage.SQLitePath) {
		return c.Storage.SQLitePath
	}
	return filepath.Join(root, c.Storage.SQLitePath)
}
