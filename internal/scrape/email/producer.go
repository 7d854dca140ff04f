package email_scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/emersion/go-imap/v2"
	"go.uber.org/zap"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/scrape/types"
)

type Options struct {
	Host       string
	Port       int
	Username   string
	Mailbox    string
	SubjectAny []string
	MaxEmails  int
	// Lookback bounds the IMAP search window.
	Lookback time.Duration
}

func (o Options) addr() string {
	if strings.Contains(o.Host, ":") {
		return o.Host
	}
	port := o.Port
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", o.Host, port)
}

// Producer turns unseen LinkedIn job-alert emails into candidates. Emails
// are marked seen by the batch's Finalize, i.e. only after the merge has
// been persisted.
type Producer struct {
	opts     Options
	password func() (string, error)
	log      *zap.SugaredLogger
	now      func() time.Time
}

func New(opts Options, password func() (string, error), log *zap.SugaredLogger) *Producer {
	if opts.MaxEmails <= 0 {
		opts.MaxEmails = 200
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 90 * 24 * time.Hour
	}
	return &Producer{opts: opts, password: password, log: logger.Or(log, "email"), now: time.Now}
}

func (p *Producer) Name() string        { return "email" }
func (p *Producer) Board() domain.Board { return domain.BoardEmail }

func (p *Producer) Fetch(ctx context.Context, hint types.Hint) (types.Batch, error) {
	now := p.now()
	batch := types.Batch{Producer: p.Name(), Board: p.Board(), ScrapedAt: now}

	if p.opts.Host == "" || p.opts.Username == "" {
		return batch, errors.New("email source enabled but imap host/username missing")
	}
	pw, err := p.password()
	if err != nil {
		return batch, errors.Wrap(err, "imap password")
	}

	c, err := DialAndLoginIMAP(ctx, p.opts.addr(), p.opts.Username, pw, TLSConfig(hostOnly(p.opts.Host)))
	if err != nil {
		return batch, err
	}
	defer LogoutAndClose(c, p.log)

	if err := SelectMailbox(c, p.opts.Mailbox); err != nil {
		return batch, err
	}
	msgs, err := FetchUnseen(ctx, c, p.opts.MaxEmails, now.Add(-p.opts.Lookback))
	if err != nil {
		return batch, err
	}

	cands, processed := p.candidates(msgs, hint)
	batch.Candidates = cands
	p.log.Infow("alerts scanned", "unseen", len(msgs), "alerts", len(processed), "candidates", len(cands))

	if len(processed) > 0 {
		batch.Finalize = func(ctx context.Context) error {
			return p.markSeen(ctx, pw, processed)
		}
	}
	return batch, nil
}

// candidates filters alert emails and extracts postings. processed lists
// every alert that was read, including those yielding no new postings.
func (p *Producer) candidates(msgs []EmailMessage, hint types.Hint) ([]domain.Record, []imap.UID) {
	var out []domain.Record
	var processed []imap.UID
	seen := map[string]bool{}

	for _, m := range msgs {
		pm, err := parseMessage(m.RawMessage)
		if err != nil {
			p.log.Warnw("unreadable message", "uid", m.UID, "err", err)
			continue
		}
		subject := firstNonEmpty(pm.Subject, m.Subject)
		from := firstNonEmpty(pm.From, m.From)
		if len(p.opts.SubjectAny) > 0 && !containsAnyCI(subject, p.opts.SubjectAny) {
			continue
		}
		if !looksLikeLinkedInJobAlert(from, subject, pm.HTML+pm.Plain) {
			continue
		}
		processed = append(processed, m.UID)

		jobs, err := ParseLinkedInJobAlertHTML(pm.HTML)
		if err != nil {
			p.log.Warnw("alert parse failed", "uid", m.UID, "err", err)
			continue
		}

		received := m.Date
		if received.IsZero() {
			received = pm.Date
		}
		for _, j := range jobs {
			if seen[j.JobID] || hint.LinkedInIDs[j.JobID] {
				continue
			}
			seen[j.JobID] = true
			rec := domain.NewRecord(map[string]string{
				domain.ColTitle:    j.Title,
				domain.ColCompany:  j.Company,
				domain.ColLocation: j.Location,
				domain.ColURL:      j.URL,
				domain.ColJobBoard: string(domain.BoardEmail),
			})
			if !received.IsZero() {
				rec.Set(domain.ColTimePosted, received.UTC().Format("2006-01-02"))
			}
			out = append(out, rec)
		}
	}
	return out, processed
}

func (p *Producer) markSeen(ctx context.Context, pw string, uids []imap.UID) error {
	c, err := DialAndLoginIMAP(ctx, p.opts.addr(), p.opts.Username, pw, TLSConfig(hostOnly(p.opts.Host)))
	if err != nil {
		return err
	}
	defer LogoutAndClose(c, p.log)
	if err := SelectMailbox(c, p.opts.Mailbox); err != nil {
		return err
	}
	if err := MarkSeen(c, uids); err != nil {
		return err
	}
	p.log.Infow("alerts marked seen", "count", len(uids))
	return nil
}

func hostOnly(h string) string {
	if i := strings.LastIndex(h, ":"); i > 0 {
		return h[:i]
	}
	return h
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
