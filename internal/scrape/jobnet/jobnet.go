package jobnet

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

const DefaultBaseURL = "https://jobnet.dk"

type Options struct {
	Titles     []string
	PostalCode string
	KmRadius   int
	NumJobs    int
	BaseURL    string
}

type jobAd struct {
	JobAdID            string `json:"jobAdId"`
	JobAdURL           string `json:"jobAdUrl"`
	Title              string `json:"title"`
	HiringOrgName      string `json:"hiringOrgName"`
	PostalDistrictName string `json:"postalDistrictName"`
	PublicationDate    string `json:"publicationDate"`
	WorkHourPartTime   bool   `json:"workHourPartTime"`
	Description        string `json:"description"`
}

type searchResponse struct {
	JobAds []jobAd `json:"jobAds"`
}

// Scraper reads Jobnet's search API. Results are sorted newest first, so
// the first known posting or the first one older than the cutoff ends the
// title.
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
	return &Scraper{opts: opts, c: c, log: logger.Or(log, "jobnet"), now: time.Now}
}

func (s *Scraper) Name() string        { return "jobnet" }
func (s *Scraper) Board() domain.Board { return domain.BoardJobnet }

func (s *Scraper) searchURL(title string) string {
	q := url.Values{}
	q.Set("resultsPerPage", strconv.Itoa(s.opts.NumJobs))
	q.Set("pageNumber", "1")
	q.Set("orderType", "PublicationDate")
	q.Set("kmRadius", strconv.Itoa(s.opts.KmRadius))
	q.Set("searchString", title)
	q.Set("postalCode", s.opts.PostalCode)
	return s.opts.BaseURL + "/bff/FindJob/Search?" + q.Encode()
}

func (s *Scraper) Fetch(ctx context.Context, hint types.Hint) (types.Batch, error) {
	batch := types.Batch{Producer: s.Name(), Board: s.Board(), ScrapedAt: s.now()}

	var firstErr error
	failed := 0
	for _, title := range s.opts.Titles {
		var res searchResponse
		if err := s.c.GetJSON(ctx, s.searchURL(title), &res); err != nil {
			if ctx.Err() != nil {
				return batch, ctx.Err()
			}
			s.log.Warnw("search failed", "title", title, "err", err)
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		n, reason := 0, ""
		for _, ad := range res.JobAds {
			rec := s.record(ad)
			if hint.Known(rec.URL(), rec.Title(), rec.Company()) {
				reason = "known posting"
				break
			}
			if posted, ok := dates.ParseInstant(ad.PublicationDate); ok && hint.OlderThanCutoff(posted) {
				reason = "older than cutoff"
				break
			}
			batch.Candidates = append(batch.Candidates, rec)
			n++
		}
		s.log.Infow("title done", "title", title, "new", n, "early_stop", reason)
	}
	if failed > 0 && failed == len(s.opts.Titles) {
		return batch, firstErr
	}
	return batch, nil
}

func (s *Scraper) record(ad jobAd) domain.Record {
	link := ad.JobAdURL
	if link == "" {
		link = s.opts.BaseURL + "/find-job/" + ad.JobAdID
	}
	hours := "Full-time"
	if ad.WorkHourPartTime {
		hours = "Part-time"
	}
	return domain.NewRecord(map[string]string{
		domain.ColTitle:          util.CleanText(ad.Title),
		domain.ColCompany:        util.CleanText(ad.HiringOrgName),
		domain.ColLocation:       util.NormalizeLocation(ad.PostalDistrictName),
		domain.ColTimePosted:     ad.PublicationDate,
		domain.ColURL:            link,
		domain.ColFullOrPartTime: hours,
		domain.ColDescription:    util.HTMLToText(ad.Description),
		domain.ColJobBoard:       string(domain.BoardJobnet),
	})
}
