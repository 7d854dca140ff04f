// Package dates turns the free-text "time posted" values scraped from job
// boards into YYYY-MM-DD.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobreview-engine/internal/domain"
)

const layout = "2006-01-02"

// Normalizer resolves relative dates against Ref. Build one per batch so
// every row of the batch agrees on what "today" is.
type Normalizer struct {
	Ref time.Time
}

func New(ref time.Time) Normalizer {
	return Normalizer{Ref: ref}
}

// Normalize returns raw as YYYY-MM-DD when it can be understood and raw
// unchanged otherwise.
func (n Normalizer) Normalize(raw string, board domain.Board) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return raw
	}
	if d, ok := parseISO(s); ok {
		return d
	}
	if d, ok := parseNumeric(s, board); ok {
		return d
	}
	low := strings.ToLower(s)
	if d, ok := parseMonthName(low); ok {
		return d
	}
	if t, ok := n.parseRelative(low); ok {
		return t.Format(layout)
	}
	return raw
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	layout,
}

// parseISO returns the UTC calendar date; values without an offset are
// already UTC.
func parseISO(s string) (string, bool) {
	for _, l := range isoLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC().Format(layout), true
		}
	}
	return "", false
}

// ParseInstant parses an ISO-8601 timestamp or date. Values without an
// offset are taken as UTC.
func ParseInstant(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, l := range isoLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var numericRe = regexp.MustCompile(`^(\d{1,2})[-./](\d{1,2})[-./](\d{4})$`)

// Day first, except slash dates from LinkedIn which use the en-US order.
func parseNumeric(s string, board domain.Board) (string, bool) {
	m := numericRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	day, month := a, b
	if board == domain.BoardLinkedIn && strings.Contains(s, "/") {
		day, month = b, a
	}
	return dateOf(y, month, day)
}

func dateOf(y, m, d int) (string, bool) {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return "", false
	}
	return t.Format(layout), true
}

var months = map[string]int{
	"jan": 1, "january": 1, "januar": 1,
	"feb": 2, "february": 2, "februar": 2,
	"mar": 3, "march": 3, "marts": 3,
	"apr": 4, "april": 4,
	"may": 5, "maj": 5,
	"jun": 6, "june": 6, "juni": 6,
	"jul": 7, "july": 7, "juli": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10, "okt": 10, "oktober": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

var (
	dayMonthRe = regexp.MustCompile(`^(\d{1,2})\.?\s+([a-zæøå]+)\.?,?\s+(\d{4})$`)
	monthDayRe = regexp.MustCompile(`^([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})$`)
)

func parseMonthName(s string) (string, bool) {
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		mon, ok := months[m[2]]
		if !ok {
			return "", false
		}
		d, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[3])
		return dateOf(y, mon, d)
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		mon, ok := months[m[1]]
		if !ok {
			return "", false
		}
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		return dateOf(y, mon, d)
	}
	return "", false
}

var (
	agoRe   = regexp.MustCompile(`^(\d+|an?|one)\s+([a-z]+?)s?\s+ago$`)
	sidenRe = regexp.MustCompile(`^for\s+(\d+|en|et)\s+([a-zæøå]+)\s+siden$`)
)

var relativePrefixes = []string{"reposted ", "posted ", "opslået ", "genopslået "}

func (n Normalizer) parseRelative(s string) (time.Time, bool) {
	for _, p := range relativePrefixes {
		s = strings.TrimPrefix(s, p)
	}
	switch s {
	case "today", "just now", "i dag", "idag", "lige nu":
		return n.Ref, true
	case "yesterday", "i går", "igår":
		return n.Ref.AddDate(0, 0, -1), true
	}
	if m := agoRe.FindStringSubmatch(s); m != nil {
		return n.shift(m[1], englishUnit(m[2]))
	}
	if m := sidenRe.FindStringSubmatch(s); m != nil {
		return n.shift(m[1], danishUnit(m[2]))
	}
	return time.Time{}, false
}

type unit int

const (
	unitNone unit = iota
	unitSecond
	unitMinute
	unitHour
	unitDay
	unitWeek
	unitMonth
	unitYear
)

func englishUnit(s string) unit {
	switch s {
	case "second", "sec":
		return unitSecond
	case "minute", "min":
		return unitMinute
	case "hour", "hr":
		return unitHour
	case "day":
		return unitDay
	case "week":
		return unitWeek
	case "month":
		return unitMonth
	case "year":
		return unitYear
	}
	return unitNone
}

func danishUnit(s string) unit {
	switch s {
	case "sekund", "sekunder":
		return unitSecond
	case "minut", "minutter":
		return unitMinute
	case "time", "timer":
		return unitHour
	case "dag", "dage":
		return unitDay
	case "uge", "uger":
		return unitWeek
	case "måned", "måneder":
		return unitMonth
	case "år":
		return unitYear
	}
	return unitNone
}

func (n Normalizer) shift(count string, u unit) (time.Time, bool) {
	if u == unitNone {
		return time.Time{}, false
	}
	k := 1
	if v, err := strconv.Atoi(count); err == nil {
		k = v
	}
	switch u {
	case unitSecond:
		return n.Ref.Add(-time.Duration(k) * time.Second), true
	case unitMinute:
		return n.Ref.Add(-time.Duration(k) * time.Minute), true
	case unitHour:
		return n.Ref.Add(-time.Duration(k) * time.Hour), true
	case unitDay:
		return n.Ref.AddDate(0, 0, -k), true
	case unitWeek:
		return n.Ref.AddDate(0, 0, -7*k), true
	case unitMonth:
		return n.Ref.AddDate(0, -k, 0), true
	default:
		return n.Ref.AddDate(-k, 0, 0), true
	}
}
