package jobindex

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"jobreview-engine/internal/dates"
	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/scrape/types"
	"jobreview-engine/internal/scrape/util"
)

const DefaultBaseURL = "https://www.jobindex.dk"

type Options struct {
	Titles     []string
	Street     string
	PostalCode string
	City       string
	KmRadius   int
	NumJobs    int
	MaxPages   int
	BaseURL    string
}

type result struct {
	TID      string `json:"tid"`
	URL      string `json:"url"`
	Headline string `json:"headline"`
	Company  struct {
		Name string `json:"name"`
	} `json:"company"`
	Addresses []struct {
		City string `json:"city"`
	} `json:"addresses"`
	FirstDate string `json:"firstdate"`
	IsLocal   bool   `json:"is_local"`
	HTML      string `json:"html"`
}

type searchResponse struct {
	Results []result `json:"results"`
}

// Scraper pages through Jobindex search v3 (newest first). Postings hosted
// on Jobindex itself get their full text from the ad page.
type Scraper struct {
	opts Options
	c    *util.Client
	log  *zap.SugaredLogger
	now  func() time.Time
}

func New(opts Options, c *util.Client, log *zap.SugaredLogger) *Scraper {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}
	return &Scraper{opts: opts, c: c, log: logger.Or(log, "jobindex"), now: time.Now}
}

func (s *Scraper) Name() string        { return "jobindex" }
func (s *Scraper) Board() domain.Board { return domain.BoardJobindex }

func (s *Scraper) searchURL(title string, page int) string {
	q := url.Values{}
	q.Set("address", s.opts.Street+", "+s.opts.PostalCode+" "+s.opts.City)
	q.Set("q", title)
	q.Set("radius", strconv.Itoa(s.opts.KmRadius))
	q.Set("sort", "date")
	q.Set("page", strconv.Itoa(page))
	q.Set("include_html", "1")
	return s.opts.BaseURL + "/api/jobsearch/v3/?" + q.Encode()
}

func (s *Scraper) Fetch(ctx context.Context, hint types.Hint) (types.Batch, error) {
	batch := types.Batch{Producer: s.Name(), Board: s.Board(), ScrapedAt: s.now()}

	var firstErr error
	failed := 0
	for _, title := range s.opts.Titles {
		got, reason, err := s.collect(ctx, title, hint)
		if ctx.Err() != nil {
			return batch, ctx.Err()
		}
		batch.Candidates = append(batch.Candidates, got...)
		if err != nil {
			s.log.Warnw("search failed", "title", title, "err", err)
			if len(got) == 0 {
				failed++
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		s.log.Infow("title done", "title", title, "new", len(got), "early_stop", reason)
	}
	if failed > 0 && failed == len(s.opts.Titles) {
		return batch, firstErr
	}
	return batch, nil
}

func (s *Scraper) collect(ctx context.Context, title string, hint types.Hint) ([]domain.Record, string, error) {
	var out []domain.Record
	for page := 1; page <= s.opts.MaxPages; page++ {
		var res searchResponse
		if err := s.c.GetJSON(ctx, s.searchURL(title, page), &res); err != nil {
			return out, "", err
		}
		if len(res.Results) == 0 {
			return out, "", nil
		}
		for _, r := range res.Results {
			rec := s.record(ctx, r)
			if hint.Known(rec.URL(), rec.Title(), rec.Company()) {
				return out, "known posting", nil
			}
			if posted, ok := dates.ParseInstant(r.FirstDate); ok && hint.OlderThanCutoff(posted) {
				return out, "older than cutoff", nil
			}
			out = append(out, rec)
			if len(out) >= s.opts.NumJobs {
				return out, "", nil
			}
		}
	}
	return out, "", nil
}

func (s *Scraper) record(ctx context.Context, r result) domain.Record {
	rec := domain.NewRecord(map[string]string{
		domain.ColTitle:      util.CleanText(r.Headline),
		domain.ColCompany:    util.CleanText(r.Company.Name),
		domain.ColTimePosted: r.FirstDate,
		domain.ColURL:        r.URL,
		domain.ColJobBoard:   string(domain.BoardJobindex),
	})
	if len(r.Addresses) > 0 {
		rec.Set(domain.ColLocation, util.NormalizeLocation(r.Addresses[0].City))
	}
	if r.IsLocal {
		rec.Set(domain.ColDescription, s.adText(ctx, r))
	}
	return rec
}

// adText prefers the ad page body and falls back to the search html.
func (s *Scraper) adText(ctx context.Context, r result) string {
	fallback := util.HTMLToText(r.HTML)
	if r.TID == "" || r.Headline == "" {
		return fallback
	}
	doc, err := s.c.GetDocument(ctx, s.opts.BaseURL+"/jobannonce/"+r.TID+"/"+url.PathEscape(util.Slug(r.Headline)))
	if err != nil {
		s.log.Debugw("ad page unavailable", "tid", r.TID, "err", err)
		return fallback
	}
	body := doc.Find("section.jobtext-jobad__body").First()
	if body.Length() == 0 {
		return fallback
	}
	return util.SelectionText(body)
}
