package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	_, v := NormalizeAndValidate(Default())
	assert.True(t, v.OK(), v.Errors)
}

func TestEnsureUserConfigWritesDefaultsOnce(t *testing.T) {
	dir := t.TempDir()
	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), path)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.App.DataDir)
	assert.Equal(t, 5000, cfg.App.Port)

	require.NoError(t, os.WriteFile(path, []byte("app:\n  port: 6000\n"), 0o644))
	again, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.App.Port)
	// omitted keys fall back to defaults
	assert.Equal(t, "jobs.csv", cfg.Data.JobsFile)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("app: [\n"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestPathsResolveAgainstDataDir(t *testing.T) {
	cfg := Default()
	cfg.App.DataDir = "/srv/jobs"
	cfg.Data.JournalFile = "/var/lib/journal.db"
	assert.Equal(t, "/srv/jobs/jobs.csv", cfg.JobsPath())
	assert.Equal(t, "/srv/jobs/backups", cfg.BackupDir())
	assert.Equal(t, "/srv/jobs/.last_scrape.json", cfg.MarkerPath())
	assert.Equal(t, "/var/lib/journal.db", cfg.JournalPath())
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Default()
	cfg.Scrape.Titles = []string{" go developer ", "Go Developer", ""}
	cfg.AutoReject.TitleKeywords = []string{"senior", "Senior", "sr"}
	cfg.Sources.Email.Enabled = true
	cfg.Email.Username = ""
	cfg.App.Port = 0

	out, v := NormalizeAndValidate(cfg)
	assert.Equal(t, []string{"go developer"}, out.Scrape.Titles)
	assert.Equal(t, []string{"senior", "sr"}, out.AutoReject.TitleKeywords)
	assert.False(t, v.OK())
	assert.Contains(t, v.Errors, "app.port must be 1..65535")
	assert.Contains(t, v.Errors, "email.username is required when sources.email is enabled")
	assert.NotEmpty(t, v.Warnings)
}

func TestSaveAtomicRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := Default()
	cfg.App.Port = -1
	require.Error(t, SaveAtomic(path, cfg))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOverlayEnv(t *testing.T) {
	t.Setenv(EnvDataDir, "/tmp/jr")
	t.Setenv(EnvPort, "7001")
	t.Setenv(EnvShutdownToken, "s3")
	cfg := Default()
	OverlayEnv(&cfg)
	assert.Equal(t, "/tmp/jr", cfg.App.DataDir)
	assert.Equal(t, 7001, cfg.App.Port)
	assert.Equal(t, "s3", cfg.App.ShutdownToken)
	assert.Equal(t, "/tmp/jr", DataDir("data"))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("JOBREVIEW_TEST_VALUE=from-file\n"), 0o644))
	t.Setenv("JOBREVIEW_TEST_VALUE", "")
	os.Unsetenv("JOBREVIEW_TEST_VALUE")

	require.NoError(t, LoadDotEnv(env, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("JOBREVIEW_TEST_VALUE"))
}
