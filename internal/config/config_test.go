package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"age-of-war/server/internal/world"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60, cfg.Server.FrameRate)
	assert.Equal(t, "", cfg.Server.DatagramAddr)
	assert.Equal(t, world.DefaultSettings(), cfg.Match)
	assert.Equal(t, "default", cfg.Sync.Profile)
	assert.Equal(t, 20.0, cfg.Intake.RatePerSecond)
	assert.Equal(t, 10, cfg.Intake.Burst)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"console"}, cfg.Logging.Sinks)
	assert.False(t, cfg.Influx.Enabled)
	assert.False(t, cfg.OTel.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Client.Fallback)
	assert.True(t, cfg.Client.Datagram)
}

func TestLoad_WithJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aow.json")
	body := `{
		"server": { "addr": ":9090", "datagramAddr": ":9091" },
		"match": { "mode": "TEAMS", "gameSpeed": 2, "baseHp": 1000 },
		"sync": { "profile": "peer" },
		"logging": { "sinks": ["console", "json"], "jsonPath": "events.ndjson" }
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, ":9091", cfg.Server.DatagramAddr)
	assert.Equal(t, world.ModeTeams, cfg.Match.Mode)
	assert.Equal(t, 2.0, cfg.Match.GameSpeed)
	assert.Equal(t, 1000, cfg.Match.BaseHP)
	assert.Equal(t, 1.0, cfg.Match.GoldMult)
	assert.Equal(t, "peer", cfg.Sync.Profile)
	assert.Equal(t, []string{"console", "json"}, cfg.Logging.Sinks)
}

func TestLoad_WithYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: none\nintake:\n  burst: 3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, 3, cfg.Intake.Burst)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AOW_SERVER_ADDR", ":7000")
	t.Setenv("AOW_SYNC_PROFILE", "relay")
	t.Setenv("AOW_MATCH_GAMESPEED", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "relay", cfg.Sync.Profile)
	assert.Equal(t, 3.0, cfg.Match.GameSpeed)
}

func TestLoad_InvalidMatchSettingsNormalized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aow.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"match": {"mode": "chaos", "goldMult": -1}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, world.ModeFFA, cfg.Match.Mode)
	assert.Equal(t, 1.0, cfg.Match.GoldMult)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/aow.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}
