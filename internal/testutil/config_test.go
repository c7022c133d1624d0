package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDBConfig_Defaults(t *testing.T) {
	for _, key := range []string{"HOST", "PORT", "USER", "PASSWORD", "NAME", "SSL_MODE", "SHARED"} {
		t.Setenv("TEST_DB_"+key, "") // restores the original on cleanup
		require.NoError(t, os.Unsetenv("TEST_DB_"+key))
	}

	cfg, err := LoadDBConfig()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 55432, cfg.Port)
	assert.Equal(t, "unevent", cfg.User)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.False(t, cfg.Shared)
}

func TestLoadDBConfig_CIOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "postgres")
	t.Setenv("TEST_DB_PORT", "5432")
	t.Setenv("TEST_DB_SHARED", "true")

	cfg, err := LoadDBConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.True(t, cfg.Shared)
}

func TestLoadDBConfig_BadPort(t *testing.T) {
	t.Setenv("TEST_DB_PORT", "not-a-port")
	_, err := LoadDBConfig()
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	cfg := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", Name: "unevent", SSLMode: "disable"}

	assert.Equal(t, "postgres://u:p%40ss@db:5432/unevent?sslmode=disable", cfg.DSN(""))
	assert.Equal(t,
		"postgres://u:p%40ss@db:5432/unevent?search_path=t_abc%2Cpublic&sslmode=disable",
		cfg.DSN("t_abc"),
	)
}

func TestNewSchemaName(t *testing.T) {
	a, b := newSchemaName(), newSchemaName()
	assert.Regexp(t, `^t_[0-9a-f]{12}$`, a)
	assert.NotEqual(t, a, b)
}
