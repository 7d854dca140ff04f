package scrape

import (
	"time"

	"go.uber.org/zap"

	"jobreview-engine/internal/config"
	"jobreview-engine/internal/logger"
	email_scrape "jobreview-engine/internal/scrape/email"
	"jobreview-engine/internal/scrape/jobindex"
	"jobreview-engine/internal/scrape/jobnet"
	"jobreview-engine/internal/scrape/linkedin"
	"jobreview-engine/internal/scrape/types"
	"jobreview-engine/internal/scrape/util"
	"jobreview-engine/internal/secrets"
)

const linkedinMaxRate = 0.5

// FromConfig builds the enabled producers in a fixed order: linkedin,
// jobnet, jobindex, email. The web producers share one rate limiter.
func FromConfig(cfg config.Config, log *zap.SugaredLogger) []types.Producer {
	log = logger.Or(log, "scrape")
	sc := cfg.Scrape
	// the guest API starts answering 429 well before the other boards
	lim := util.NewHostLimiter(sc.RequestsPerSecond, sc.Burst).Slow("linkedin.com", linkedinMaxRate)
	client := util.NewClient(lim)

	var out []types.Producer
	if cfg.Sources.LinkedIn.Enabled {
		out = append(out, linkedin.New(linkedin.Options{
			Titles:  sc.Titles,
			City:    sc.City,
			Country: sc.Country,
			NumJobs: sc.NumJobs,
		}, client, log.Named("linkedin")))
	}
	if cfg.Sources.Jobnet.Enabled {
		out = append(out, jobnet.New(jobnet.Options{
			Titles:     sc.Titles,
			PostalCode: sc.PostalCode,
			KmRadius:   sc.KmRadius,
			NumJobs:    sc.NumJobs,
		}, client, log.Named("jobnet")))
	}
	if cfg.Sources.Jobindex.Enabled {
		out = append(out, jobindex.New(jobindex.Options{
			Titles:     sc.Titles,
			Street:     sc.Street,
			PostalCode: sc.PostalCode,
			City:       sc.City,
			KmRadius:   sc.KmRadius,
			NumJobs:    sc.NumJobs,
		}, client, log.Named("jobindex")))
	}
	if cfg.Sources.Email.Enabled {
		ec := cfg.Email
		account := secrets.IMAPKeyringAccount(cfg)
		out = append(out, email_scrape.New(email_scrape.Options{
			Host:       ec.IMAPHost,
			Port:       ec.IMAPPort,
			Username:   ec.Username,
			Mailbox:    ec.Mailbox,
			SubjectAny: ec.SearchSubjectAny,
			MaxEmails:  ec.MaxEmails,
			Lookback:   time.Duration(ec.LookbackDays) * 24 * time.Hour,
		}, func() (string, error) {
			return secrets.GetIMAPPassword(account)
		}, log.Named("email")))
	}
	return out
}
