package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"jobreview-engine/internal/persist"
)

// EnsureUserConfig returns the path of config.yml in dataDir, writing the
// defaults there first if it does not exist.
func EnsureUserConfig(dataDir string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", errors.Wrap(err, "stat config")
	}

	cfg := Default()
	cfg.App.DataDir = dataDir
	if err := SaveAtomic(userPath, cfg); err != nil {
		return "", err
	}
	return userPath, nil
}

// SaveAtomic validates cfg and replaces path atomically.
func SaveAtomic(path string, cfg Config) error {
	cfg, v := NormalizeAndValidate(cfg)
	if !v.OK() {
		return errors.WithHint(errors.Newf("config validation failed: %v", v.Errors), "fix the listed keys and retry")
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return persist.WriteBytesAtomic(path, 0o644, b)
}
