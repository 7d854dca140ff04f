package email_scrape

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobreview-engine/internal/identity"
	"jobreview-engine/internal/scrape/linkedin"
	"jobreview-engine/internal/scrape/util"
)

// AlertJob is one posting listed in a LinkedIn job-alert email.
type AlertJob struct {
	Title    string
	Company  string
	Location string
	URL      string
	JobID    string
}

// ParseLinkedInJobAlertHTML collects postings from an alert email. Several
// anchors usually point at the same job (logo, title, card body); they are
// merged by job id so the best title wins.
func ParseLinkedInJobAlertHTML(htmlBody string) ([]AlertJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	byKey := map[string]*AlertJob{}
	var order []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		jobURL := unwrapRedirect(strings.TrimSpace(href))
		id := identity.LinkedInJobID(jobURL)
		if id == "" {
			return
		}

		j, ok := byKey[id]
		if !ok {
			j = &AlertJob{URL: linkedin.JobURL(id), JobID: id}
			byKey[id] = j
			order = append(order, id)
		}

		if t := stripBadTitleSuffixes(util.CleanText(a.Text())); betterTitle(t, j.Title) {
			j.Title = t
		}

		card := a.Closest("table")
		if card.Length() == 0 {
			card = a.Closest("tr")
		}
		if card.Length() == 0 {
			card = a.Parent()
		}

		// "Company · Location" line
		card.Find("p").Each(func(_ int, p *goquery.Selection) {
			t := util.CleanText(p.Text())
			if t == "" {
				return
			}
			if j.Company == "" && strings.Contains(t, " · ") {
				parts := strings.SplitN(t, " · ", 2)
				j.Company = strings.TrimSpace(parts[0])
				j.Location = util.NormalizeLocation(parts[1])
				return
			}
			if t2 := stripBadTitleSuffixes(t); betterTitle(t2, j.Title) {
				j.Title = t2
			}
		})
	})

	out := make([]AlertJob, 0, len(order))
	for _, id := range order {
		if j := byKey[id]; j.Title != "" {
			out = append(out, *j)
		}
	}
	return out, nil
}

// unwrapRedirect follows ?url= and Google /url?q= wrappers.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if raw := u.Query().Get("url"); raw != "" {
		if uu, err := url.Parse(raw); err == nil && uu.Host != "" {
			return uu.String()
		}
	}
	if strings.Contains(strings.ToLower(u.Host), "google.") && strings.HasPrefix(u.Path, "/url") {
		if q := u.Query().Get("q"); q != "" {
			if uu, err := url.Parse(q); err == nil && uu.Host != "" {
				return uu.String()
			}
		}
	}
	return href
}

func looksLikeLinkedInJobAlert(from, subj, body string) bool {
	if strings.Contains(strings.ToLower(from), "jobalerts-noreply") {
		return true
	}
	s := strings.ToLower(subj)
	if strings.Contains(s, "job alert") || strings.Contains(s, "jobagent") || strings.Contains(s, "linkedin") {
		b := strings.ToLower(body)
		return strings.Contains(b, "linkedin.com/comm/jobs/view") ||
			strings.Contains(b, "linkedin.com/jobs/view")
	}
	return false
}

var badTitleBits = []string{"Actively recruiting", "Easy Apply", "Promoted", "Rekrutterer aktivt", "Promoveret"}

func stripBadTitleSuffixes(s string) string {
	for _, b := range badTitleBits {
		s = strings.ReplaceAll(s, b, "")
	}
	s = util.CleanText(s)
	low := strings.ToLower(s)
	for _, bad := range []string{"alumni", "connections", "applicants", "ansøgere", "school"} {
		if strings.Contains(low, bad) {
			return ""
		}
	}
	return s
}

func betterTitle(candidate, current string) bool {
	if candidate == "" {
		return false
	}
	cs := titleScore(candidate)
	if current == "" {
		return cs >= 5
	}
	ks := titleScore(current)
	if ks >= 8 && cs < ks {
		return false
	}
	return cs >= ks+3
}

var (
	reSalary   = regexp.MustCompile(`(?i)(\$|€|£|dkk|kr\.?)\s?\d`)
	titleWords = []string{
		"engineer", "developer", "software", "backend", "frontend", "full stack", "full-stack",
		"platform", "cloud", "devops", "sre", "security", "embedded", "firmware",
		"data", "ml", "ai", "scientist", "analyst", "architect", "consultant",
		"manager", "director", "lead", "principal", "staff", "intern", "technician",
		"udvikler", "ingeniør", "konsulent", "medarbejder", "specialist", "chef", "praktikant",
	}
	seniorityWords = []string{"sr", "senior", "jr", "junior", "i", "ii", "iii", "principal", "staff", "lead"}
	ctaWords       = []string{"apply", "view job", "see job", "see details", "learn more", "sign in", "se job", "søg"}
	placeWords     = []string{"remote", "hybrid", "on-site", "onsite", "denmark", "danmark"}
)

// titleScore rates how title-like a string is; higher is better.
func titleScore(s string) int {
	l := strings.ToLower(s)
	if strings.Contains(l, "unsubscribe") || strings.Contains(l, "afmeld") ||
		(strings.Contains(l, "manage") && strings.Contains(l, "alert")) {
		return -50
	}
	if strings.Contains(l, "http://") || strings.Contains(l, "https://") || strings.Contains(l, "www.") {
		return -30
	}

	score := 0
	if reSalary.MatchString(s) {
		score -= 8
	}
	for _, w := range ctaWords {
		if strings.Contains(l, w) {
			score -= 6
		}
	}
	for _, w := range placeWords {
		if strings.Contains(l, w) {
			score -= 3
		}
	}
	if strings.ContainsAny(s, "|•") {
		score -= 2
	}
	for _, w := range titleWords {
		if strings.Contains(l, w) {
			score += 4
			break
		}
	}
	words := strings.FieldsFunc(l, func(r rune) bool {
		return strings.ContainsRune(" \t-/\\()[],.:;|", r)
	})
	for _, w := range words {
		for _, sw := range seniorityWords {
			if w == sw {
				score += 2
			}
		}
	}

	switch n := len([]rune(s)); {
	case n >= 6 && n <= 80:
		score += 2
	case n < 4 || n > 140:
		score -= 6
	}
	if strings.HasSuffix(s, ".") || strings.Contains(l, "you will") || strings.Contains(l, "we are") {
		score -= 4
	}

	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits >= 6 {
		score -= 4
	}
	return score
}
