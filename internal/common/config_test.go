package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "https://kind.krx.co.kr", cfg.KIND.BaseURL)
	assert.Equal(t, "잠정", cfg.KIND.TitleMarker)
	assert.Equal(t, 500, cfg.KIND.PageSize)
	assert.Equal(t, 10, cfg.KIND.MaxPages)
	assert.Equal(t, 4096, cfg.Telegram.MessageLimit)
	assert.Equal(t, 100, cfg.Naver.Display)
	assert.Equal(t, 5, cfg.Monitor.IntervalMinutes)
	assert.Equal(t, 8, cfg.Monitor.ActiveStartHour)
	assert.Equal(t, 18, cfg.Monitor.ActiveEndHour)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kindwatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment = "production"

[kind]
page_size = 200
title_marker = "잠정실적"

[output]
dir = "/tmp/kindwatch-out"
`), 0644))

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 200, cfg.KIND.PageSize)
	assert.Equal(t, "잠정실적", cfg.KIND.TitleMarker)
	// Untouched fields keep their defaults.
	assert.Equal(t, 10, cfg.KIND.MaxPages)
	// The ledger path derives from the output dir when unset.
	assert.Equal(t, "/tmp/kindwatch-out/sent_log.json", cfg.Output.LedgerFile)
}

func TestLoadFromFilesLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.toml")
	second := filepath.Join(dir, "second.toml")
	require.NoError(t, os.WriteFile(first, []byte("[kind]\npage_size = 100\nmax_pages = 5\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("[kind]\npage_size = 300\n"), 0644))

	cfg, err := LoadFromFiles(first, second)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.KIND.PageSize)
	assert.Equal(t, 5, cfg.KIND.MaxPages)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadFromFilesInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[kind]\npage_size = -1\n"), 0644))

	_, err := LoadFromFiles(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KINDWATCH_KIND_PAGE_SIZE", "42")
	t.Setenv("KINDWATCH_OUTPUT_DIR", "/tmp/env-out")
	t.Setenv("KINDWATCH_BOT_TOKEN", "env-token")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.KIND.PageSize)
	assert.Equal(t, "/tmp/env-out", cfg.Output.Dir)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("KINDWATCH_TEST_SECRET", "from-env")

	// Env wins over the file value; earlier names win over later ones.
	assert.Equal(t, "from-env", ResolveSecret("from-file", "KINDWATCH_TEST_SECRET", "TEST_SECRET"))
	assert.Equal(t, "from-file", ResolveSecret("from-file", "KINDWATCH_ABSENT_SECRET"))
	assert.Equal(t, "", ResolveSecret("", "KINDWATCH_ABSENT_SECRET"))
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.LedgerFile = cfg.Output.Dir + "/sent_log.json"

	ApplyFlagOverrides(cfg, "/tmp/flag-out", 10)
	assert.Equal(t, "/tmp/flag-out", cfg.Output.Dir)
	assert.Equal(t, "/tmp/flag-out/sent_log.json", cfg.Output.LedgerFile)
	assert.Equal(t, 10, cfg.Monitor.IntervalMinutes)

	// Zero values leave the config untouched.
	ApplyFlagOverrides(cfg, "", 0)
	assert.Equal(t, "/tmp/flag-out", cfg.Output.Dir)
	assert.Equal(t, 10, cfg.Monitor.IntervalMinutes)
}

func TestMonitorWindowValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Monitor.ActiveStartHour = 18
	cfg.Monitor.ActiveEndHour = 8
	assert.Error(t, cfg.Validate())
}

func TestRequestTimingDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.KIND.RequestTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.KIND.RequestDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.KIND.PageDelay)
}
