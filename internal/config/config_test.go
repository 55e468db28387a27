package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("missing")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.ExpiresIn)
	assert.Equal(t, time.Hour, cfg.Session.GrantDuration)
	assert.Equal(t, 5*time.Minute, cfg.Auth.ChallengeTTL)
	assert.Equal(t, "localhost:4000", cfg.Server.Addr)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WALLETCHAT_SESSION_GRANT_DURATION", "90m")
	t.Setenv("WALLETCHAT_STORAGE_BACKEND", "persistent")

	cfg, err := Load("missing")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.Session.GrantDuration)
	assert.Equal(t, BackendPersistent, cfg.Storage.Backend)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WALLETCHAT_STORAGE_BACKEND", "sqlite")

	_, err := Load("missing")
	assert.Error(t, err)
}
