package util

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func CleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func NormalizeLocation(loc string) string {
	loc = CleanText(loc)
	if loc == "" {
		return ""
	}

	parts := strings.Split(loc, ",")
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CleanText(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}

// SelectionText renders the text nodes under sel one per line, trimmed,
// blank lines dropped.
func SelectionText(sel *goquery.Selection) string {
	var lines []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if t := CleanText(c.Text()); t != "" {
					lines = append(lines, t)
				}
				return
			}
			switch goquery.NodeName(c) {
			case "script", "style":
				return
			}
			walk(c)
		})
	}
	walk(sel)
	return strings.Join(lines, "\n")
}

// HTMLToText parses an HTML fragment and returns its text, one line per
// text node.
func HTMLToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CleanText(fragment)
	}
	return SelectionText(doc.Selection)
}

var leadingInt = regexp.MustCompile(`\d[\d.,]*`)

// LeadingInt extracts the first integer in s ("Over 200 applicants" -> 200).
func LeadingInt(s string) (int, bool) {
	m := leadingInt.FindString(s)
	if m == "" {
		return 0, false
	}
	m = strings.NewReplacer(",", "", ".", "").Replace(m)
	n, err := strconv.Atoi(m)
	return n, err == nil
}

// Slug lower-cases s and joins its words with '-'.
func Slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
