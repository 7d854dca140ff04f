// engine/internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type SourceToggle struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

type Config struct {
	App struct {
		Host    string `yaml:"host" json:"host"`
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
		// ShutdownToken guards POST /shutdown; empty disables the endpoint.
		ShutdownToken string `yaml:"shutdown_token" json:"-"`
	} `yaml:"app" json:"app"`

	Data struct {
		JobsFile           string `yaml:"jobs_file" json:"jobs_file"`
		BackupDir          string `yaml:"backup_dir" json:"backup_dir"`
		MarkerFile         string `yaml:"marker_file" json:"marker_file"`
		JournalFile        string `yaml:"journal_file" json:"journal_file"`
		LockTimeoutSeconds int    `yaml:"lock_timeout_seconds" json:"lock_timeout_seconds"`
	} `yaml:"data" json:"data"`

	Scrape struct {
		Titles                 []string `yaml:"titles" json:"titles"`
		City                   string   `yaml:"city" json:"city"`
		Country                string   `yaml:"country" json:"country"`
		PostalCode             string   `yaml:"postal_code" json:"postal_code"`
		Street                 string   `yaml:"street" json:"street"`
		NumJobs                int      `yaml:"num_jobs" json:"num_jobs"`
		KmRadius               int      `yaml:"km_radius" json:"km_radius"`
		RequestsPerSecond      float64  `yaml:"requests_per_second" json:"requests_per_second"`
		Burst                  int      `yaml:"burst" json:"burst"`
		ProducerTimeoutSeconds int      `yaml:"producer_timeout_seconds" json:"producer_timeout_seconds"`
	} `yaml:"scrape" json:"scrape"`

	Sources struct {
		LinkedIn SourceToggle `yaml:"linkedin" json:"linkedin"`
		Jobnet   SourceToggle `yaml:"jobnet" json:"jobnet"`
		Jobindex SourceToggle `yaml:"jobindex" json:"jobindex"`
		Email    SourceToggle `yaml:"email" json:"email"`
	} `yaml:"sources" json:"sources"`

	Email struct {
		IMAPHost         string   `yaml:"imap_host" json:"imap_host"`
		IMAPPort         int      `yaml:"imap_port" json:"imap_port"`
		Username         string   `yaml:"username" json:"username"`
		Mailbox          string   `yaml:"mailbox" json:"mailbox"`
		SearchSubjectAny []string `yaml:"search_subject_any" json:"search_subject_any"`
		MaxEmails        int      `yaml:"max_emails" json:"max_emails"`
		LookbackDays     int      `yaml:"lookback_days" json:"lookback_days"`
	} `yaml:"email" json:"email"`

	AutoReject struct {
		TitleKeywords []string `yaml:"title_keywords" json:"title_keywords"`
	} `yaml:"auto_reject" json:"auto_reject"`

	Schedule struct {
		Enabled      bool `yaml:"enabled" json:"enabled"`
		CheckMinutes int  `yaml:"check_minutes" json:"check_minutes"`
	} `yaml:"schedule" json:"schedule"`
}

// Default is the configuration written on first run.
func Default() Config {
	var c Config
	c.App.Host = "127.0.0.1"
	c.App.Port = 5000
	c.App.DataDir = "data"

	c.Data.JobsFile = "jobs.csv"
	c.Data.BackupDir = "backups"
	c.Data.MarkerFile = ".last_scrape.json"
	c.Data.JournalFile = "journal.db"
	c.Data.LockTimeoutSeconds = 10

	c.Scrape.Titles = []string{"software developer"}
	c.Scrape.City = "Copenhagen"
	c.Scrape.Country = "Denmark"
	c.Scrape.PostalCode = "2100"
	c.Scrape.NumJobs = 25
	c.Scrape.KmRadius = 25
	c.Scrape.RequestsPerSecond = 1
	c.Scrape.Burst = 2
	c.Scrape.ProducerTimeoutSeconds = 600

	c.Sources.LinkedIn.Enabled = true
	c.Sources.Jobnet.Enabled = true
	c.Sources.Jobindex.Enabled = true

	c.Email.IMAPHost = "imap.gmail.com"
	c.Email.IMAPPort = 993
	c.Email.Mailbox = "INBOX"
	c.Email.SearchSubjectAny = []string{"job alert", "jobagent"}
	c.Email.MaxEmails = 200
	c.Email.LookbackDays = 90

	c.Schedule.CheckMinutes = 60
	return c
}

// Load reads path on top of Default, so omitted keys keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// resolve anchors relative data paths in the data dir.
func (c Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.App.DataDir, p)
}

func (c Config) JobsPath() string    { return c.resolve(c.Data.JobsFile) }
func (c Config) BackupDir() string   { return c.resolve(c.Data.BackupDir) }
func (c Config) MarkerPath() string  { return c.resolve(c.Data.MarkerFile) }
func (c Config) JournalPath() string { return c.resolve(c.Data.JournalFile) }

func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.Data.LockTimeoutSeconds) * time.Second
}

func (c Config) ProducerTimeout() time.Duration {
	return time.Duration(c.Scrape.ProducerTimeoutSeconds) * time.Second
}

func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.Schedule.CheckMinutes) * time.Minute
}
