/*
config.go - Environment-driven configuration

PURPOSE:
  Loads server configuration from the process environment, with an
  optional .env file for local development. Command-line flags in
  cmd/server override these values.

VARIABLES:
  PORT              HTTP server port (default: 8080)
  DB_PATH           SQLite database path (default: sales.db)
  ADMIN_ACCOUNT     Account allowed to manage sales (default: admin)
  CUSTODY_ACCOUNT   Account holding inventory and escrow (default: vault)
  RECIPIENT_ACCOUNT Account receiving proceeds (default: treasury)
  MAX_BATCH         Max entries per purchase batch (default: 20)
  SWEEP_INTERVAL    Expiry sweep cadence (default: 1m)
  ENABLE_SCENARIOS  Expose demo scenario loading (default: true)

SEE ALSO:
  - cmd/server/main.go: Consumes this configuration
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	Port             int
	DBPath           string
	AdminAccount     string
	CustodyAccount   string
	RecipientAccount string
	MaxBatch         int
	SweepInterval    time.Duration
	EnableScenarios  bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Port:             8080,
		DBPath:           "sales.db",
		AdminAccount:     "admin",
		CustodyAccount:   "vault",
		RecipientAccount: "treasury",
		MaxBatch:         20,
		SweepInterval:    time.Minute,
		EnableScenarios:  true,
	}

	var err error
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	cfg.DBPath = envStr("DB_PATH", cfg.DBPath)
	cfg.AdminAccount = envStr("ADMIN_ACCOUNT", cfg.AdminAccount)
	cfg.CustodyAccount = envStr("CUSTODY_ACCOUNT", cfg.CustodyAccount)
	cfg.RecipientAccount = envStr("RECIPIENT_ACCOUNT", cfg.RecipientAccount)
	if cfg.MaxBatch, err = envInt("MAX_BATCH", cfg.MaxBatch); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = envDuration("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return nil, err
	}
	if cfg.EnableScenarios, err = envBool("ENABLE_SCENARIOS", cfg.EnableScenarios); err != nil {
		return nil, err
	}

	if cfg.AdminAccount == cfg.CustodyAccount {
		return nil, fmt.Errorf("ADMIN_ACCOUNT and CUSTODY_ACCOUNT must differ")
	}
	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
