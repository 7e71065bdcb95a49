package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFlags(t *testing.T, args ...string) *Config {
	t.Helper()
	cmd := newRenderCmd()
	require.NoError(t, cmd.Flags().Parse(args))
	cfg, err := LoadConfig("", cmd.Flags())
	require.NoError(t, err)
	return cfg
}

func TestLoadConfig_Flags(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := parseFlags(t,
		"--template", "in.xlsx",
		"-o", "out.xlsx",
		"-d", "a.json", "-d", "b.yaml",
		"--set", "x=1", "--set", "y=max(1, 2)",
	)

	assert.Equal(t, "in.xlsx", cfg.Template)
	assert.Equal(t, "out.xlsx", cfg.Output)
	assert.Equal(t, []string{"a.json", "b.yaml"}, cfg.Data)
	assert.Equal(t, []string{"x=1", "y=max(1, 2)"}, cfg.Set)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sheetfill.yaml"), []byte(`
template: file.xlsx
output: file_out.xlsx
data:
  - one.json
  - two.json
verbose: false
`), 0o600))
	t.Setenv("SHEETFILL_OUTPUT", "env_out.xlsx")

	cfg := parseFlags(t, "--verbose")

	assert.Equal(t, "file.xlsx", cfg.Template, "из файла")
	assert.Equal(t, "env_out.xlsx", cfg.Output, "окружение выше файла")
	assert.Equal(t, []string{"one.json", "two.json"}, cfg.Data)
	assert.True(t, cfg.Verbose, "флаг выше файла")

	cfg = parseFlags(t, "-o", "flag_out.xlsx")
	assert.Equal(t, "flag_out.xlsx", cfg.Output, "флаг выше окружения")
}

func TestLoadConfig_ExplicitFileAndEnvList(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("template: t.xlsx\noutput: o.xlsx\n"), 0o600))
	t.Setenv("SHEETFILL_DATA", "a.json, b.json")

	cfg, err := LoadConfig(path, nil)

	require.NoError(t, err)
	assert.Equal(t, "t.xlsx", cfg.Template)
	assert.Equal(t, []string{"a.json", "b.json"}, cfg.Data)
}

func TestLoadConfig_Required(t *testing.T) {
	t.Chdir(t.TempDir())
	cmd := newRenderCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"-t", "in.xlsx"}))

	_, err := LoadConfig("", cmd.Flags())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
	assert.NotContains(t, err.Error(), "--template")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := LoadConfig("nope.yaml", nil)

	assert.Error(t, err)
}
