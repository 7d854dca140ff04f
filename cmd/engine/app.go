package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"jobreview-engine/internal/config"
	"jobreview-engine/internal/guard"
	"jobreview-engine/internal/ingest"
	"jobreview-engine/internal/journal"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/merge"
	"jobreview-engine/internal/persist"
	"jobreview-engine/internal/scrape"
	"jobreview-engine/internal/triage"
)

// app is the loaded configuration plus the paths derived from it.
type app struct {
	cfg     config.Config
	cfgPath string
}

// loadApp resolves the data dir and config file. Precedence: flags, then
// environment, then the config file, then defaults.
func loadApp() (*app, error) {
	log := logger.Component("config")

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = config.DataDir("data")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}

	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = strings.TrimSpace(os.Getenv(config.EnvConfig))
	}
	if cfgPath == "" {
		p, err := config.EnsureUserConfig(dataDir)
		if err != nil {
			return nil, errors.Wrap(err, "config bootstrap failed")
		}
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	config.OverlayEnv(&cfg)
	if flagDataDir != "" {
		cfg.App.DataDir = flagDataDir
	}

	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		log.Warnw("config", "warning", w)
	}
	if !v.OK() {
		return nil, errors.WithHint(
			errors.Newf("invalid config %s: %s", cfgPath, strings.Join(v.Errors, "; ")),
			"edit the file or PUT /api/config",
		)
	}
	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	log.Debugw("loaded", "path", cfgPath, "data_dir", cfg.App.DataDir)
	return &app{cfg: cfg, cfgPath: cfgPath}, nil
}

func (a *app) rotator() *persist.Rotator {
	return &persist.Rotator{Dir: a.cfg.BackupDir(), Log: logger.Component("backup")}
}

func (a *app) store() *persist.Canonical {
	return &persist.Canonical{
		Path:        a.cfg.JobsPath(),
		Backups:     a.rotator(),
		LockTimeout: a.cfg.LockTimeout(),
		Log:         logger.Component("persist"),
	}
}

// openJournal is best effort; ingestion still runs without a journal.
func (a *app) openJournal() *journal.Journal {
	j, err := journal.Open(a.cfg.JournalPath())
	if err != nil {
		logger.Component("journal").Warnw("journal unavailable", "path", a.cfg.JournalPath(), "err", err)
		return nil
	}
	return j
}

func (a *app) pipeline(ds ingest.Dataset, j *journal.Journal, notify func(string, any)) *ingest.Pipeline {
	return &ingest.Pipeline{
		Producers: scrape.FromConfig(a.cfg, logger.Component("scrape")),
		Dataset:   ds,
		Guard:     guard.Store{Path: a.cfg.MarkerPath()},
		Journal:   j,
		Engine: merge.Engine{
			Rules: triage.Rules{Keywords: a.cfg.AutoReject.TitleKeywords},
			Log:   logger.Component("merge"),
		},
		// separate from the dataset lock, which Commit takes itself
		LockPath:        filepath.Join(a.cfg.App.DataDir, "ingest"),
		ProducerTimeout: a.cfg.ProducerTimeout(),
		Log:             logger.Component("ingest"),
		Notify:          notify,
	}
}
