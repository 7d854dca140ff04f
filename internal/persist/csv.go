package persist

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"jobreview-engine/internal/domain"
)

const utf8BOM = "\ufeff"

// ReadTable parses a CSV file with a header row. Short rows are padded with
// empty values; cells beyond the header are dropped.
func ReadTable(r io.Reader) (*domain.Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.NewTable(nil), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	header = uniqueHeader(header)

	t := domain.NewTable(nil)
	t.EnsureColumns(header...)

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv row")
		}
		var rec domain.Record
		for i, col := range header {
			v := ""
			if i < len(fields) {
				v = fields[i]
			}
			rec.Set(col, v)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// uniqueHeader trims the header names and renames blank ones to
// "Unnamed: <i>" and repeats to "<name>.<n>", the names pandas gives them,
// so no column is lost on a read/write cycle.
func uniqueHeader(raw []string) []string {
	out := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))
	for i, h := range raw {
		out[i] = strings.TrimSpace(h)
		if out[i] == "" {
			out[i] = fmt.Sprintf("Unnamed: %d", i)
		}
		taken[out[i]] = true
	}
	seen := make(map[string]bool, len(raw))
	for i, h := range out {
		if !seen[h] {
			seen[h] = true
			continue
		}
		for n := 1; ; n++ {
			alt := fmt.Sprintf("%s.%d", h, n)
			if !taken[alt] {
				out[i] = alt
				taken[alt] = true
				seen[alt] = true
				break
			}
		}
	}
	return out
}

// WriteTable writes the header then every row in header order.
func WriteTable(w io.Writer, t *domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	fields := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			fields[i] = r.Get(c)
		}
		if err := cw.Write(fields); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// LoadTable reads path. A missing file yields an empty table with the
// default columns.
func LoadTable(path string) (*domain.Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewTable(domain.DefaultColumns), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return t, nil
}

// SaveTable atomically replaces path with t. Columns that appear on rows but
// not in the header are appended first so nothing is silently dropped.
func SaveTable(path string, t *domain.Table) error {
	for _, r := range t.Rows {
		t.EnsureColumns(r.Columns()...)
	}
	return WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return WriteTable(w, t)
	})
}

// EncodeTable renders t to bytes.
func EncodeTable(t *domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
