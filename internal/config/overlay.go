package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDataDir = "JOBREVIEW_DATA_DIR"
	EnvConfig  = "JOBREVIEW_CONFIG"
	EnvPort    = "JOBREVIEW_PORT"

	EnvShutdownToken = "JOBREVIEW_SHUTDOWN_TOKEN"
)

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// DataDir is the data directory from the environment, or fallback.
func DataDir(fallback string) string {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		return v
	}
	return fallback
}

// OverlayEnv applies environment overrides to a loaded config.
func OverlayEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.App.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = p
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvShutdownToken)); v != "" {
		cfg.App.ShutdownToken = v
	}
}
