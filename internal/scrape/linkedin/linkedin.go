package linkedin

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/scrape/types"
	"jobreview-engine/internal/scrape/util"
)

const (
	DefaultBaseURL = "https://www.linkedin.com"
	pageSize       = 10
)

type Options struct {
	Titles  []string
	City    string
	Country string
	// NumJobs is the number of new postings to collect per title.
	NumJobs int
	// MaxPages bounds pagination per title when every listing is known.
	MaxPages int
	BaseURL  string
}

// Scraper reads the LinkedIn guest job search: listing pages give job ids,
// one detail request per new id gives the posting.
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
	if opts.Country == "" {
		opts.Country = "Denmark"
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 40
	}
	return &Scraper{opts: opts, c: c, log: logger.Or(log, "linkedin"), now: time.Now}
}

func (s *Scraper) Name() string        { return "linkedin" }
func (s *Scraper) Board() domain.Board { return domain.BoardLinkedIn }

func (s *Scraper) Fetch(ctx context.Context, hint types.Hint) (types.Batch, error) {
	batch := types.Batch{Producer: s.Name(), Board: s.Board(), ScrapedAt: s.now()}

	seen := map[string]bool{}
	var ids []string
	var firstErr error
	for _, title := range s.opts.Titles {
		got, err := s.collectIDs(ctx, title, hint, seen)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return batch, ctxErr
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		ids = append(ids, got...)
	}
	if len(ids) == 0 && firstErr != nil {
		return batch, firstErr
	}
	s.log.Infow("collected ids", "new", len(ids))

	for _, id := range ids {
		rec, err := s.detail(ctx, id)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return batch, ctxErr
		}
		if err != nil {
			s.log.Warnw("detail fetch failed", "job_id", id, "err", err)
		}
		batch.Candidates = append(batch.Candidates, rec)
	}
	return batch, nil
}

func (s *Scraper) searchURL(title string, start int) string {
	q := url.Values{}
	q.Set("keywords", title)
	q.Set("location", s.opts.City+", "+s.opts.Country)
	q.Set("start", strconv.Itoa(start))
	return s.opts.BaseURL + "/jobs-guest/jobs/api/seeMoreJobPostings/search?" + q.Encode()
}

// collectIDs pages through the listing until NumJobs unknown ids are found
// or the listing runs out. Known ids are skipped but paging continues.
func (s *Scraper) collectIDs(ctx context.Context, title string, hint types.Hint, seen map[string]bool) ([]string, error) {
	var ids []string
	offset := 0
	for page := 0; len(ids) < s.opts.NumJobs && page < s.opts.MaxPages; page++ {
		doc, err := s.c.GetDocument(ctx, s.searchURL(title, offset))
		if err != nil {
			s.log.Warnw("listing stopped", "title", title, "offset", offset, "err", err)
			return ids, err
		}
		cards := doc.Find("li")
		if cards.Length() == 0 {
			break
		}
		cards.EachWithBreak(func(_ int, li *goquery.Selection) bool {
			id := cardID(li)
			if id == "" || seen[id] || hint.LinkedInIDs[id] {
				return true
			}
			seen[id] = true
			ids = append(ids, id)
			return len(ids) < s.opts.NumJobs
		})
		offset += cards.Length()
	}
	return ids, nil
}

func cardID(li *goquery.Selection) string {
	urn, ok := li.Find("div.base-card").First().Attr("data-entity-urn")
	if !ok {
		return ""
	}
	id := urn[strings.LastIndex(urn, ":")+1:]
	if id == "" || id == "0" {
		return ""
	}
	return id
}

// JobURL is the public posting URL stored for a LinkedIn job id.
func JobURL(id string) string {
	return "https://www.linkedin.com/jobs/view/" + id
}

var criteriaColumns = map[string]string{
	"seniority_level": domain.ColSeniorityLevel,
	"employment_type": domain.ColEmploymentType,
	"job_function":    domain.ColJobFunction,
	"industries":      domain.ColIndustries,
}

// detail always returns a record carrying at least the url and board, so a
// failed detail fetch still surfaces in the merge as malformed.
func (s *Scraper) detail(ctx context.Context, id string) (domain.Record, error) {
	rec := domain.NewRecord(nil)
	rec.Set(domain.ColURL, JobURL(id))
	rec.Set(domain.ColJobBoard, string(domain.BoardLinkedIn))

	doc, err := s.c.GetDocument(ctx, s.opts.BaseURL+"/jobs-guest/jobs/api/jobPosting/"+id)
	if err != nil {
		return rec, errors.Wrapf(err, "linkedin job %s", id)
	}
	ParseDetail(doc, &rec)
	return rec, nil
}

// ParseDetail fills rec from a guest jobPosting page. Missing parts are
// left unset.
func ParseDetail(doc *goquery.Document, rec *domain.Record) {
	text := func(sel string) string {
		return util.CleanText(doc.Find(sel).First().Text())
	}
	setIf := func(col, v string) {
		if v != "" {
			rec.Set(col, v)
		}
	}

	setIf(domain.ColTitle, text("h2.top-card-layout__title"))
	setIf(domain.ColCompany, text("a.topcard__org-name-link"))
	setIf(domain.ColLocation, util.CleanText(doc.Find("span.topcard__flavor--bullet").
		Not(".num-applicants__caption").First().Text()))
	setIf(domain.ColDescription, util.SelectionText(doc.Find("div.show-more-less-html__markup").First()))
	setIf(domain.ColTimePosted, text("span.posted-time-ago__text"))
	if n, ok := util.LeadingInt(text(".num-applicants__caption")); ok {
		rec.Set(domain.ColNumApplicants, strconv.Itoa(n))
	}

	doc.Find("li.description__job-criteria-item").Each(func(_ int, li *goquery.Selection) {
		key := strings.ToLower(util.CleanText(li.Find("h3.description__job-criteria-subheader").Text()))
		key = strings.ReplaceAll(key, " ", "_")
		if col, ok := criteriaColumns[key]; ok {
			setIf(col, util.CleanText(li.Find("span.description__job-criteria-text").Text()))
		}
	})
}
