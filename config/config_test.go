package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.Equal(t, runtime.GOOS, cfg.Platform)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.UploadTimeout)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, ":9000", cfg.Sandbox.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("COBIC_API_URL", "http://localhost:9000/")
	t.Setenv("COBIC_STORE", "memory")
	t.Setenv("COBIC_SANDBOX_ADDR", ":8080")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", cfg.APIURL)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, ":8080", cfg.Sandbox.Addr)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\nrequest_timeout: 5s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_UnknownStore(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("COBIC_STORE", "sqlite")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
