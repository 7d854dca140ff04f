// Package identity derives the keys used to decide whether two job records
// describe the same posting.
package identity

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"jobreview-engine/internal/domain"
)

// MatchTier says which key tier identified a duplicate.
type MatchTier int

const (
	MatchNone MatchTier = iota
	MatchURL
	MatchTitleCompany
)

func (t MatchTier) String() string {
	switch t {
	case MatchURL:
		return "url"
	case MatchTitleCompany:
		return "title_company"
	default:
		return "none"
	}
}

// Key is the two-tier dedup key of a record. Primary is empty when the record
// has no usable URL; Fallback is empty only when title and company both are.
type Key struct {
	Primary  string
	Fallback string
}

const fallbackSep = "\x1f"

// Resolve computes the dedup keys of r. It never fails.
func Resolve(r domain.Record) Key {
	return Key{
		Primary:  NormalizeURL(r.URL()),
		Fallback: FallbackKey(r.Title(), r.Company()),
	}
}

// NormalizeText trims, case-folds and collapses internal whitespace.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// FallbackKey joins normalized title and company.
func FallbackKey(title, company string) string {
	t, c := NormalizeText(title), NormalizeText(company)
	if t == "" && c == "" {
		return ""
	}
	return t + fallbackSep + c
}

var trackingParams = map[string]bool{
	"gclid":      true,
	"fbclid":     true,
	"msclkid":    true,
	"mc_cid":     true,
	"mc_eid":     true,
	"mkt_tok":    true,
	"trk":        true,
	"trackingid": true,
	"refid":      true,
}

var (
	linkedInViewRe    = regexp.MustCompile(`/jobs/view/(?:[^/]*-)?(\d+)`)
	linkedInPostingRe = regexp.MustCompile(`/jobposting/(\d+)`)
)

// LinkedInJobID extracts the numeric posting id from any LinkedIn job URL
// form, or returns "".
func LinkedInJobID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !strings.Contains(strings.ToLower(u.Host), "linkedin.com") {
		return ""
	}
	if v := u.Query().Get("currentJobId"); v != "" {
		return v
	}
	p := strings.ToLower(u.Path)
	if m := linkedInViewRe.FindStringSubmatch(p); m != nil {
		return m[1]
	}
	if m := linkedInPostingRe.FindStringSubmatch(p); m != nil {
		return m[1]
	}
	return ""
}

// NormalizeURL returns the primary dedup key for a URL: host and path
// lower-cased, tracking parameters and fragment dropped, query sorted. The
// scheme is not part of the key so http and https links collide. All
// LinkedIn job URL forms collapse to linkedin.com/jobs/view/<id>.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if id := LinkedInJobID(raw); id != "" {
		return "linkedin.com/jobs/view/" + id
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			q.Del(k)
		}
	}
	if strings.Contains(host, "linkedin.com") {
		q = url.Values{}
	}
	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}

	path := strings.TrimRight(strings.ToLower(u.EscapedPath()), "/")
	key := host + path
	if enc := q.Encode(); enc != "" {
		key += "?" + strings.ToLower(enc)
	}
	return key
}
