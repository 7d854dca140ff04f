package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Known columns of the jobs dataset. The file may carry more; those are
// passed through untouched.
const (
	ColCompany        = "company"
	ColTitle          = "title"
	ColURL            = "url"
	ColLocation       = "location"
	ColDescription    = "description"
	ColTimePosted     = "time_posted"
	ColNumApplicants  = "num_applicants"
	ColSeniorityLevel = "seniority_level"
	ColJobFunction    = "job_function"
	ColIndustries     = "industries"
	ColEmploymentType = "employment_type"
	ColFullOrPartTime = "full_or_part_time"
	ColJobBoard       = "job_board"
	ColAppliedDate    = "applied_date"
	ColReply          = "reply"
	ColCoverLetter    = "cover_letter"
	ColDecision       = "decision"
	ColDecisionReason = "decision_reason"
	ColLastUpdated    = "last_updated"
	ColCV             = "cv"
)

// DefaultColumns is the header used when no dataset exists yet.
var DefaultColumns = []string{
	ColCompany, ColTitle, ColURL, ColLocation, ColDescription, ColTimePosted,
	ColNumApplicants, ColSeniorityLevel, ColJobFunction, ColIndustries,
	ColEmploymentType, ColFullOrPartTime, ColJobBoard, ColAppliedDate, ColReply,
	ColCoverLetter, ColDecision, ColDecisionReason, ColLastUpdated, ColCV,
}

// EditableFields are the short text fields a reviewer may change directly.
var EditableFields = []string{
	ColCompany, ColTitle, ColURL, ColLocation, ColTimePosted, ColNumApplicants,
	ColSeniorityLevel, ColJobFunction, ColIndustries, ColEmploymentType,
	ColFullOrPartTime, ColAppliedDate,
}

type Decision string

const (
	DecisionNone   Decision = ""
	DecisionApply  Decision = "apply"
	DecisionReject Decision = "reject"
	DecisionDelete Decision = "delete"
)

// ParseDecision accepts the stored spellings, case-insensitively. The
// legacy value "later" maps to delete.
func ParseDecision(s string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DecisionNone, true
	case "apply":
		return DecisionApply, true
	case "reject":
		return DecisionReject, true
	case "delete", "later":
		return DecisionDelete, true
	}
	return DecisionNone, false
}

type Board string

const (
	BoardLinkedIn Board = "linkedin"
	BoardJobnet   Board = "jobnet"
	BoardJobindex Board = "jobindex"
	BoardEmail    Board = "email"
)

// Record is one job row: an open set of string columns. Empty string is the
// null value. Record has reference semantics; use Clone for an independent
// copy.
type Record struct {
	values map[string]string
}

func NewRecord(values map[string]string) Record {
	r := Record{values: make(map[string]string, len(values))}
	for k, v := range values {
		r.values[k] = v
	}
	return r
}

func (r Record) Get(col string) string {
	if r.values == nil {
		return ""
	}
	return r.values[col]
}

func (r *Record) Set(col, v string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	r.values[col] = v
}

func (r Record) Has(col string) bool {
	_, ok := r.values[col]
	return ok
}

func (r Record) Clone() Record {
	return NewRecord(r.values)
}

// Columns returns the record's keys in sorted order.
func (r Record) Columns() []string {
	out := make([]string, 0, len(r.values))
	for k := range r.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the values.
func (r Record) Map() map[string]string {
	return NewRecord(r.values).values
}

func (r Record) Equal(o Record) bool {
	if len(r.values) != len(o.values) {
		return false
	}
	for k, v := range r.values {
		if ov, ok := o.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (r Record) Company() string     { return r.Get(ColCompany) }
func (r Record) Title() string       { return r.Get(ColTitle) }
func (r Record) URL() string         { return r.Get(ColURL) }
func (r Record) Description() string { return r.Get(ColDescription) }
func (r Record) AppliedDate() string { return r.Get(ColAppliedDate) }
func (r Record) Board() Board        { return Board(r.Get(ColJobBoard)) }

// Decision returns the parsed decision. Unknown stored values read as none.
func (r Record) Decision() Decision {
	d, _ := ParseDecision(r.Get(ColDecision))
	return d
}

// NumApplicants tolerates float spellings ("12.0") written by other tools.
func (r Record) NumApplicants() (int, bool) {
	s := strings.TrimSpace(r.Get(ColNumApplicants))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

// Table is an ordered header plus rows. Rows may hold keys missing from the
// header only transiently; EnsureColumns fixes that before writing.
type Table struct {
	Columns []string
	Rows    []Record
}

func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// EnsureColumns appends any missing columns to the header, keeping order.
func (t *Table) EnsureColumns(cols ...string) {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		seen[c] = true
	}
	for _, c := range cols {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		t.Columns = append(t.Columns, c)
	}
}

// Clone copies the header and row slice. Records are shared.
func (t *Table) Clone() *Table {
	return &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    append([]Record(nil), t.Rows...),
	}
}
