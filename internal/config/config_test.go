package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSourceURL, c.SourceURL)
	assert.Equal(t, 10*time.Minute, c.CacheTTL())
	assert.Equal(t, 45*time.Second, c.HTTPTimeout())
	assert.Equal(t, 3, c.RetryMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, c.RetryBaseDelay())
	assert.Equal(t, 4*time.Second, c.RetryMaxDelay())
	assert.Equal(t, "TOTAL", c.DefaultState)
	assert.Equal(t, "pt", c.MonthLocale)
	assert.False(t, c.DropInvalidDates)
	assert.False(t, c.KeepLastGood)
	assert.Equal(t, "127.0.0.1:8501", c.ListenAddr)
	assert.Equal(t, []string{"utf-8-sig", "utf-8", "windows-1252", "latin-1"}, c.Encodings)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	c.DefaultState = "SP"
	c.CacheTTLSec = 60
	c.RoleKeywords = map[string][]string{"state": {"PROVINCIA"}}
	require.NoError(t, Save(c, ""))

	path := filepath.Join(home, ".iw58", "config.yaml")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	t.Setenv("IW58_CACHE_TTL_SEC", "5")
	c2, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "SP", c2.DefaultState)
	assert.Equal(t, 5*time.Second, c2.CacheTTL())
	assert.Equal(t, []string{"PROVINCIA"}, c2.RoleKeywords["state"])
}

func TestLoadExplicitFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "iw58.yaml")
	require.NoError(t, os.WriteFile(p, []byte("source_url: ./base.csv\ndrop_invalid_dates: true\n"), 0o644))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "./base.csv", c.SourceURL)
	assert.True(t, c.DropInvalidDates)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
