package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/regimport/internal/icpc"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, icpc.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, icpc.DefaultAuthEndpoint, cfg.AuthEndpoint)
	assert.Equal(t, icpc.DefaultAuthClientID, cfg.AuthClientID)
	assert.Equal(t, 2, cfg.PageSize)
	assert.Empty(t, cfg.Username)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "username: alice\npassword: secret\npage_size: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 4, cfg.PageSize)
	assert.Equal(t, icpc.DefaultBaseURL, cfg.BaseURL, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username: alice\npage_size: 4\n"), 0600))

	t.Setenv("REGIMPORT_USERNAME", "bob")
	t.Setenv("REGIMPORT_BASE_URL", "http://localhost:8080/api/")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Username)
	assert.Equal(t, "http://localhost:8080/api/", cfg.BaseURL)
	assert.Equal(t, 4, cfg.PageSize, "file keys without env override survive")
}

func TestLoadRejectsTinyPageSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 1\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_size")
}

func TestStoreCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, StoreCredentials(path, "alice", "secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
}

func TestStoreCredentialsMergesExistingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 4\n"), 0600))

	require.NoError(t, StoreCredentials(path, "alice", "secret"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, 4, cfg.PageSize, "unrelated keys survive the credential write")
}
