package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_HasSaneDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ".", cfg.Vault.ScopeFolder)
	assert.Contains(t, cfg.Vault.IgnorePatterns, ".obsidian")
	assert.False(t, cfg.Validation.FailOnWarnings)
	assert.False(t, cfg.Extraction.FullFiles)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ReadsConfigFileFromCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	content := "vault:\n  scope_folder: \"/tmp/vault\"\nvalidation:\n  fail_on_warnings: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".citelink.yaml"), []byte(content), 0o644))

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(oldDir)
	require.NoError(t, os.Chdir(dir))

	loader := &Loader{searchPaths: []string{"."}}
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.True(t, cfg.Validation.FailOnWarnings)
}

func TestLoad_MissingConfigFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	loader := &Loader{searchPaths: []string{dir}}
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Watch.DebounceMillis)
}

func TestLoad_EnvironmentVariableOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CITELINK_VALIDATION_FAIL_ON_WARNINGS", "true")
	loader := &Loader{searchPaths: []string{dir}}
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.True(t, cfg.Validation.FailOnWarnings)
}

func TestValidate_RejectsBadBackupRetention(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Safety.BackupRetention = "not-a-duration"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeMaxWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Performance.MaxWorkers = -1
	assert.Error(t, cfg.Validate())
}

func TestLoad_ConfigFileUsedEmptyWhenNoFileFound(t *testing.T) {
	dir := t.TempDir()
	loader := &Loader{searchPaths: []string{dir}}
	_, err := loader.Load()
	require.NoError(t, err)
	assert.Empty(t, loader.ConfigFileUsed())
}

func TestSetConfigFile_ReadsExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vault:\n  scope_folder: \"/tmp/vault\"\n"), 0o644))

	loader := NewLoader()
	loader.SetConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/vault", cfg.Vault.ScopeFolder)
	assert.NotEmpty(t, loader.ConfigFileUsed())
}
