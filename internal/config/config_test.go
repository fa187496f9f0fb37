package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sales.db", cfg.DBPath)
	assert.Equal(t, "admin", cfg.AdminAccount)
	assert.Equal(t, "vault", cfg.CustodyAccount)
	assert.Equal(t, 20, cfg.MaxBatch)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.True(t, cfg.EnableScenarios)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("ENABLE_SCENARIOS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.False(t, cfg.EnableScenarios)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsSharedAdminCustody(t *testing.T) {
	t.Setenv("ADMIN_ACCOUNT", "vault")

	_, err := Load()
	assert.Error(t, err)
}
