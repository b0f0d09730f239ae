package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreatesFileWithoutSecrets(t *testing.T) {
	t.Setenv("RAWORC_API_KEY", "secret-key")
	t.Setenv("RAWORC_API_URL", "https://env.example/api")
	dir := t.TempDir()

	mgr, err := NewManager(WithConfigDir(dir))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-key")
	assert.NotContains(t, string(data), "env.example")
	assert.Contains(t, string(data), Defaults().RaworcAPIURL)

	assert.Equal(t, "secret-key", mgr.Get().RaworcAPIKey)
	assert.Equal(t, "https://env.example/api", mgr.Get().RaworcAPIURL)
}

func TestManagerEnvironmentWinsOverExistingFile(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("RAWORC_API_URL", "https://first.example/api")
	first, err := NewManager(WithConfigDir(dir))
	require.NoError(t, err)
	assert.Equal(t, "https://first.example/api", first.Get().RaworcAPIURL)

	t.Setenv("RAWORC_API_URL", "https://second.example/api")
	t.Setenv("REPORT_STREAM_MAX_TICKS", "7")
	second, err := NewManager(WithConfigDir(dir))
	require.NoError(t, err)

	cfg := second.Get()
	assert.Equal(t, "https://second.example/api", cfg.RaworcAPIURL)
	assert.Equal(t, 7, cfg.StreamMaxTicks)
}

func TestManagerFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stream_max_ticks": 20, "server_port": 9090}`), 0o644))

	mgr, err := NewManager(WithConfigDir(dir), WithOverlay(func(c *Config) error {
		c.ServerPort = 7070
		return nil
	}))
	require.NoError(t, err)

	cfg := mgr.Get()
	assert.Equal(t, 20, cfg.StreamMaxTicks)
	assert.Equal(t, 7070, cfg.ServerPort)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestManagerRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"poll_interval": 0}`), 0o644))
	_, err := NewManager(WithConfigDir(dir))
	assert.ErrorContains(t, err, "poll interval")

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = NewManager(WithConfigDir(dir))
	assert.ErrorContains(t, err, "parse")
}

func TestManagerWatchReloads(t *testing.T) {
	t.Setenv("RAWORC_API_KEY", "k")
	t.Setenv("RAWORC_API_URL", "https://env.example/api")
	mgr, err := NewManager(WithConfigDir(t.TempDir()), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	require.NoError(t, mgr.Watch(ctx, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}))

	edited := *Defaults()
	edited.StreamMaxTicks = 42
	edited.RaworcAPIURL = "https://file.example/api"
	require.NoError(t, writeConfigFile(mgr.Path(), edited))

	select {
	case got := <-reloaded:
		assert.Equal(t, 42, got.StreamMaxTicks)
		assert.Equal(t, "k", got.RaworcAPIKey)
		assert.Equal(t, "https://env.example/api", got.RaworcAPIURL)
		assert.Equal(t, got, mgr.Get())
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}
}

func TestManagerWatchKeepsConfigOnBadEdit(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	before := mgr.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan Config, 1)
	require.NoError(t, mgr.Watch(ctx, func(cfg Config) { calls <- cfg }))

	require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{"stream_poll_interval": -1}`), 0o644))

	select {
	case <-calls:
		t.Fatalf("invalid config must not be applied")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, before, mgr.Get())
}
