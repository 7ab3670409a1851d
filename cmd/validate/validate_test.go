package validate

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
	parent.PersistentFlags().Bool("quiet", false, "")

	sub := NewValidateCommand()
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

func TestRunValidate_CLIFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "[Intro](./b.md#Introduction)\n")
	writeFile(t, filepath.Join(dir, "b.md"), "## Introduction\n\nbody\n")

	sub, buf := newTestCommand(t)
	err := runValidate(sub, []string{filepath.Join(dir, "a.md")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 link(s), 1 valid, 0 warning(s), 0 error(s)")
}

func TestRunValidate_JSONFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "[Intro](./b.md#Introduction)\n")
	writeFile(t, filepath.Join(dir, "b.md"), "## Introduction\n\nbody\n")

	sub, buf := newTestCommand(t)
	require.NoError(t, sub.Root().PersistentFlags().Set("format", "json"))
	err := runValidate(sub, []string{filepath.Join(dir, "a.md")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"summary"`)
}

func TestRunValidate_ScopeFallsBackToConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "a.md"), "[X](b.md)\n")
	writeFile(t, filepath.Join(dir, "c", "b.md"), "# B\n")
	writeFile(t, filepath.Join(dir, ".citelink.yaml"), "vault:\n  scope_folder: "+dir+"\n")

	sub, buf := newTestCommand(t)
	require.NoError(t, sub.Root().PersistentFlags().Set("config", filepath.Join(dir, ".citelink.yaml")))

	err := runValidate(sub, []string{filepath.Join(dir, "a", "a.md")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 link(s), 0 valid, 1 warning(s), 0 error(s)")
}

func TestRunValidate_ReturnsErrorOnBrokenLink(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "[Missing](./nope.md)\n")

	sub, _ := newTestCommand(t)
	err := runValidate(sub, []string{filepath.Join(dir, "a.md")})
	assert.Error(t, err)
}
