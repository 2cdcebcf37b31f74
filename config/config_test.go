package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestLoadFromDefaults
func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultTokens, cfg.Sampler.Tokens)
	assert.Equal(t, 30*time.Second, cfg.Sampler.Interval)
	assert.Equal(t, 24*time.Hour, cfg.Store.Retention)
	assert.Equal(t, "data/token_history.json", cfg.Store.Path)
	assert.Equal(t, 3.0, cfg.Sampler.AlertThreshold)
	assert.False(t, cfg.Postgres.Enabled)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
sampler:
  interval: 1m
  tokens: [SOL, JUP]
store:
  path: /tmp/history.json
  retention: 12h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("STORE_RETENTION", "6h")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"SOL", "JUP"}, cfg.Sampler.Tokens)
	assert.Equal(t, time.Minute, cfg.Sampler.Interval)
	assert.Equal(t, "/tmp/history.json", cfg.Store.Path)
	assert.Equal(t, 6*time.Hour, cfg.Store.Retention)
}

func TestLoadFromInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store:\n  retention: -1h\n"), 0o644))

	_, err := LoadFrom(dir)
	assert.ErrorContains(t, err, "store.retention")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))
	_, err = LoadFrom(dir)
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		DBName:   "tokenwatch",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=tokenwatch sslmode=disable TimeZone=UTC",
		cfg.DSN("dev"))
	assert.Contains(t, cfg.AdminDSN(), "dbname=postgres")
}
