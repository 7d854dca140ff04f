package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong
// with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Scrape.Titles = trimList(out.Scrape.Titles)
	out.Email.SearchSubjectAny = trimList(out.Email.SearchSubjectAny)
	out.AutoReject.TitleKeywords = trimList(out.AutoReject.TitleKeywords)
	out.App.Host = strings.TrimSpace(out.App.Host)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if out.App.Host == "" {
		res.addErr("app.host is required")
	} else if out.App.Host != "127.0.0.1" && out.App.Host != "localhost" {
		res.addWarn("app.host is %q; the review API has no authentication.", out.App.Host)
	}
	if strings.TrimSpace(out.Data.JobsFile) == "" {
		res.addErr("data.jobs_file is required")
	}
	if strings.TrimSpace(out.Data.MarkerFile) == "" {
		res.addErr("data.marker_file is required")
	}
	if out.Data.LockTimeoutSeconds <= 0 {
		res.addErr("data.lock_timeout_seconds must be > 0")
	}

	anySource := out.Sources.LinkedIn.Enabled || out.Sources.Jobnet.Enabled ||
		out.Sources.Jobindex.Enabled || out.Sources.Email.Enabled
	if !anySource {
		res.addWarn("no sources enabled; ingestion will only record empty runs.")
	}
	webSource := out.Sources.LinkedIn.Enabled || out.Sources.Jobnet.Enabled || out.Sources.Jobindex.Enabled
	if webSource {
		if len(out.Scrape.Titles) == 0 {
			res.addErr("scrape.titles must have at least 1 entry when a web source is enabled")
		}
		if out.Scrape.NumJobs <= 0 {
			res.addErr("scrape.num_jobs must be > 0")
		}
		if out.Scrape.RequestsPerSecond <= 0 {
			res.addErr("scrape.requests_per_second must be > 0")
		} else if out.Scrape.RequestsPerSecond > 5 {
			res.addWarn("scrape.requests_per_second is high (%.1f) and may get blocked.", out.Scrape.RequestsPerSecond)
		}
	}
	if out.Sources.LinkedIn.Enabled && strings.TrimSpace(out.Scrape.City) == "" {
		res.addErr("scrape.city is required when sources.linkedin is enabled")
	}
	if (out.Sources.Jobnet.Enabled || out.Sources.Jobindex.Enabled) && strings.TrimSpace(out.Scrape.PostalCode) == "" {
		res.addErr("scrape.postal_code is required when jobnet or jobindex is enabled")
	}
	if out.Scrape.ProducerTimeoutSeconds <= 0 {
		res.addErr("scrape.producer_timeout_seconds must be > 0")
	}

	// password is not checked here; it lives in the keychain
	if out.Sources.Email.Enabled {
		if strings.TrimSpace(out.Email.IMAPHost) == "" {
			res.addErr("email.imap_host is required when sources.email is enabled")
		}
		if out.Email.IMAPPort == 0 {
			res.addErr("email.imap_port is required when sources.email is enabled")
		}
		if strings.TrimSpace(out.Email.Username) == "" {
			res.addErr("email.username is required when sources.email is enabled")
		}
		if len(out.Email.SearchSubjectAny) == 0 {
			res.addWarn("email.search_subject_any is empty; every LinkedIn alert will be read.")
		}
	}

	if out.Schedule.Enabled && out.Schedule.CheckMinutes <= 0 {
		res.addErr("schedule.check_minutes must be > 0 when schedule.enabled=true")
	}

	for _, kw := range out.AutoReject.TitleKeywords {
		if len([]rune(kw)) < 3 {
			res.addWarn("auto_reject keyword %q is very short and may reject too much.", kw)
		}
	}
	return out, res
}
