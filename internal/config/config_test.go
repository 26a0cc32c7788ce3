package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Household")
	cfg.Storage.Backend = BackendSQLite
	cfg.Import.Rules = []ImportRule{
		{Match: "ROCKET MORTGAGE", AccountID: "6f1c1c3e-8a8e-4b4a-9f55-3f3f6f1de001"},
	}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Project.Name, got.Project.Name)
	assert.Equal(t, BackendSQLite, got.Storage.Backend)
	assert.Equal(t, "payoff.db", got.Storage.SQLitePath)
	assert.Equal(t, 1, got.Billing.CycleDay)
	assert.Equal(t, "0 6 * * *", got.AutoUpdate.Schedule)
	assert.Equal(t, cfg.Logging, got.Logging)
	assert.Equal(t, cfg.Git, got.Git)
	assert.Equal(t, "127.0.0.1:8080", got.HTTP.Addr)
	require.Len(t, got.Import.Rules, 1)
	assert.Equal(t, "ROCKET MORTGAGE", got.Import.Rules[0].Match)
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Default("Household")
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.True(t, cfg.Git.AutoCommit)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Test Household")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Household")
	assert.Contains(t, contents, "backend: file")
	assert.Contains(t, contents, "cycle_day: 1")
	assert.Contains(t, contents, "auto_commit: true")
}

func TestValidate_AggregatesProblems(t *testing.T) {
	cfg := Default("x")
	cfg.Storage.Backend = "postgres"
	cfg.Billing.CycleDay = 31
	cfg.AutoUpdate.Schedule = "every day"
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"
	cfg.Import.Rules = []ImportRule{{Match: " ", AccountID: "nope"}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"storage.backend",
		"billing.cycle_day",
		"auto_update.schedule",
		"logging.level",
		"logging.format",
		"import.rules[0].match",
		"import.rules[0].account_id",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	cfg := Default("x")
	cfg.Storage.Backend = BackendSQLite
	cfg.Storage.SQLitePath = ""
	assert.ErrorContains(t, cfg.Validate(), "sqlite_path")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PAYOFF_STORAGE_BACKEND", "sqlite")
	t.Setenv("PAYOFF_CYCLE_DAY", "15")
	t.Setenv("PAYOFF_GIT_AUTO_COMMIT", "false")
	t.Setenv("PAYOFF_LOG_FORMAT", "json")

	cfg := Default("x")
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 15, cfg.Billing.CycleDay)
	assert.False(t, cfg.Git.AutoCommit)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level, "unset variables leave fields alone")
}

func TestApplyEnv_BadNumber(t *testing.T) {
	t.Setenv("PAYOFF_CYCLE_DAY", "fifteenth")
	assert.ErrorContains(t, Default("x").ApplyEnv(), "PAYOFF_CYCLE_DAY")
}

func TestLoadProject_EnvFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(filepath.Join(root, FileName), Default("x")))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("PAYOFF_HTTP_ADDR=0.0.0.0:9999\n"), 0o644))
	// godotenv sets the variable process-wide; register it so t.Setenv
	// restores the original state after the test.
	t.Setenv("PAYOFF_HTTP_ADDR", "")
	require.NoError(t, os.Unsetenv("PAYOFF_HTTP_ADDR"))

	cfg, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.HTTP.Addr)
}

func TestLoadProject_NoEnvFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Save(filepath.Join(root, FileName), Default("x")))

	cfg, err := LoadProject(root)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Project.Name)
}

func TestSQLitePath(t *testing.T) {
	cfg := Default("x")
	assert.Equal(t, filepath.Join("/srv/debts", "payoff.db"), cfg.SQLitePath("/srv/debts"))

	cfg.Storage.SQLitePath = "/var/lib/payoff.db"
	assert.Equal(t, "/var/lib/payoff.db", cfg.SQLitePath("/srv/debts"))
}
