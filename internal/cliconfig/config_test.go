package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blinter/internal/lint"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadParsesAllKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".blinter.ini")
	contents := "[lint]\nmax_line_length = 80\nmin_severity = warning\nenable = s001, s002\ndisable = w013\nfollow_calls = true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.MaxLineLength)
	assert.Equal(t, "WARNING", cfg.MinSeverity)
	assert.ElementsMatch(t, []string{"S001", "S002"}, cfg.Enable)
	assert.ElementsMatch(t, []string{"W013"}, cfg.Disable)
	assert.True(t, cfg.FollowCalls)
}

func TestToOptionsRejectsUnknownSeverity(t *testing.T) {
	cfg := Default()
	cfg.MinSeverity = "CATASTROPHIC"

	_, err := ToOptions(cfg)
	assert.Error(t, err)
}

func TestToOptionsTranslatesEnableDisable(t *testing.T) {
	cfg := Default()
	cfg.Enable = []string{"S001"}
	cfg.Disable = []string{"W013"}

	opts, err := ToOptions(cfg)
	require.NoError(t, err)
	assert.True(t, opts.EnabledRules["S001"])
	assert.True(t, opts.DisabledRules["W013"])
}

func TestToOptionsSetsMinSeverityPointer(t *testing.T) {
	cfg := Default()
	cfg.MinSeverity = "ERROR"

	opts, err := ToOptions(cfg)
	require.NoError(t, err)
	require.NotNil(t, opts.MinSeverity)
	assert.Equal(t, lint.SeverityError, *opts.MinSeverity)
}

func TestCreateRefusesToOverwriteExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".blinter.ini")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o644))

	err := Create(path)
	assert.Error(t, err)
}

func TestCreateWritesReadableDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".blinter.ini")

	require.NoError(t, Create(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxLineLength)
}
