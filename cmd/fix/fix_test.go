package fix

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	parent := &cobra.Command{Use: "root"}
	parent.PersistentFlags().String("scope", "", "")
	parent.PersistentFlags().String("config", "", "")
	parent.PersistentFlags().String("format", "cli", "")
	parent.PersistentFlags().Bool("dry-run", false, "")
	parent.PersistentFlags().Bool("quiet", false, "")

	sub := NewFixCommand()
	parent.AddCommand(sub)

	var buf bytes.Buffer
	sub.SetOut(&buf)
	return sub, &buf
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupScopeWithMisplacedLink(t *testing.T) (scope, source string) {
	t.Helper()
	scope = t.TempDir()
	writeFile(t, filepath.Join(scope, "sub", "a.md"), "[Heading](target.md#Heading)\n")
	writeFile(t, filepath.Join(scope, "other", "target.md"), "## Heading\n\nbody\n")
	return scope, filepath.Join(scope, "sub", "a.md")
}

func TestRunFix_RewritesMisplacedPath(t *testing.T) {
	scope, source := setupScopeWithMisplacedLink(t)

	sub, _ := newTestCommand(t)
	require.NoError(t, sub.Root().PersistentFlags().Set("scope", scope))
	require.NoError(t, sub.Flags().Set("backup-dir", filepath.Join(scope, ".citelink-backup")))

	err := runFix(sub, []string{source})
	require.NoError(t, err)

	content, readErr := os.ReadFile(source)
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "../other/target.md#Heading")

	backups, dirErr := os.ReadDir(filepath.Join(scope, ".citelink-backup"))
	require.NoError(t, dirErr)
	assert.NotEmpty(t, backups)
}

func TestRunFix_DryRunLeavesFileUntouched(t *testing.T) {
	scope, source := setupScopeWithMisplacedLink(t)
	originalContent, err := os.ReadFile(source)
	require.NoError(t, err)

	sub, buf := newTestCommand(t)
	require.NoError(t, sub.Root().PersistentFlags().Set("scope", scope))
	require.NoError(t, sub.Root().PersistentFlags().Set("dry-run", "true"))

	require.NoError(t, runFix(sub, []string{source}))

	after, readErr := os.ReadFile(source)
	require.NoError(t, readErr)
	assert.Equal(t, string(originalContent), string(after))
	assert.Contains(t, buf.String(), "target.md")
}

func TestRunFix_ConfigDisablesBackup(t *testing.T) {
	scope, source := setupScopeWithMisplacedLink(t)
	configPath := filepath.Join(scope, ".citelink.yaml")
	writeFile(t, configPath, "safety:\n  create_backup: false\n")

	sub, buf := newTestCommand(t)
	require.NoError(t, sub.Root().PersistentFlags().Set("scope", scope))
	require.NoError(t, sub.Root().PersistentFlags().Set("config", configPath))
	require.NoError(t, sub.Flags().Set("backup-dir", filepath.Join(scope, ".citelink-backup")))

	err := runFix(sub, []string{source})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(scope, ".citelink-backup"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Contains(t, buf.String(), "no backup: disabled by config")
}

func TestRunFix_NoConversionsIsANoOp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "[Intro](./b.md#Introduction)\n")
	writeFile(t, filepath.Join(dir, "b.md"), "## Introduction\n\nbody\n")

	sub, buf := newTestCommand(t)
	err := runFix(sub, []string{filepath.Join(dir, "a.md")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "nothing to fix")
}
