package persist

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobreview-engine/internal/domain"
)

func TestReadWriteRoundTripKeepsUnknownColumns(t *testing.T) {
	in := "company,title,my_notes,url\n" +
		"Acme,\"Dev, Backend\",\"line1\nline2\",https://a\n" +
		"Beta,Ops,,\n"

	tbl, err := ReadTable(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []string{"company", "title", "my_notes", "url"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "line1\nline2", tbl.Rows[0].Get("my_notes"))
	assert.Equal(t, "Dev, Backend", tbl.Rows[0].Title())

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, tbl))
	assert.Equal(t, in, buf.String())
}

func TestReadTableNamesBlankAndRepeatedHeaders(t *testing.T) {
	in := ",company,title,note,note,note.1\n0,Acme,Dev,x,y,z\n"

	tbl, err := ReadTable(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []string{"Unnamed: 0", "company", "title", "note", "note.2", "note.1"}, tbl.Columns)
	row := tbl.Rows[0]
	assert.Equal(t, "0", row.Get("Unnamed: 0"))
	assert.Equal(t, "x", row.Get("note"))
	assert.Equal(t, "y", row.Get("note.2"))
	assert.Equal(t, "z", row.Get("note.1"))

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, tbl))
	assert.Equal(t, "Unnamed: 0,company,title,note,note.2,note.1\n0,Acme,Dev,x,y,z\n", buf.String())
}

func TestReadTableBOMAndShortRows(t *testing.T) {
	in := "\ufeffcompany,title,url\nAcme,Dev\n"
	tbl, err := ReadTable(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "company", tbl.Columns[0])
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "", tbl.Rows[0].URL())
	assert.True(t, tbl.Rows[0].Has("url"))
}

func TestReadTableEmpty(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, tbl.Columns)
	assert.Empty(t, tbl.Rows)
}

func TestLoadTableMissingFile(t *testing.T) {
	tbl, err := LoadTable(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultColumns, tbl.Columns)
}

func TestSaveTableAddsStrayColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	tbl := domain.NewTable([]string{"title"})
	tbl.Rows = append(tbl.Rows, domain.NewRecord(map[string]string{"title": "Dev", "zzz": "1"}))

	require.NoError(t, SaveTable(path, tbl))

	back, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "zzz"}, back.Columns)
	assert.Equal(t, "1", back.Rows[0].Get("zzz"))
}
