package jobindex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobreview-engine/internal/scrape/types"
	"jobreview-engine/internal/scrape/util"
)

func res(tid, headline, company, date string, local bool) result {
	r := result{TID: tid, URL: "https://www.jobindex.dk/vis-job/" + tid, Headline: headline, FirstDate: date, IsLocal: local}
	r.Company.Name = company
	r.Addresses = []struct {
		City string `json:"city"`
	}{{City: "Aarhus"}}
	r.HTML = "<p>teaser</p>"
	return r
}

func newServer(t *testing.T, pages map[string][]result) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobsearch/v3/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "date", r.URL.Query().Get("sort"))
		assert.Equal(t, "Main St 1, 8000 Aarhus", r.URL.Query().Get("address"))
		_ = json.NewEncoder(w).Encode(searchResponse{Results: pages[r.URL.Query().Get("page")]})
	})
	mux.HandleFunc("/jobannonce/h1/go-developer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><section class="jobtext-jobad__body"><h2>About</h2><p>Write Go.</p></section></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func opts(base string) Options {
	return Options{Titles: []string{"go developer"}, Street: "Main St 1", PostalCode: "8000", City: "Aarhus",
		KmRadius: 25, NumJobs: 10, BaseURL: base}
}

func TestFetchPagesAndReadsLocalAds(t *testing.T) {
	srv := newServer(t, map[string][]result{
		"1": {res("h1", "Go Developer", "Gopher ApS", "2024-05-09", true), res("h2", "SRE", "Ops A/S", "2024-05-08", false)},
		"2": {res("h3", "Tester", "QA", "2024-05-07", true)},
	})
	s := New(opts(srv.URL), util.NewClient(nil), nil)

	batch, err := s.Fetch(context.Background(), types.Hint{})
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 3)
	assert.Equal(t, "About\nWrite Go.", batch.Candidates[0].Description())
	assert.Equal(t, "", batch.Candidates[1].Description())
	// ad page missing: search html is used
	assert.Equal(t, "teaser", batch.Candidates[2].Description())
	assert.Equal(t, "Aarhus", batch.Candidates[0].Get("location"))
}

func TestFetchEarlyStop(t *testing.T) {
	srv := newServer(t, map[string][]result{
		"1": {res("h2", "SRE", "Ops A/S", "2024-05-08", false), res("h4", "Old", "X", "2024-04-01", false)},
	})
	s := New(opts(srv.URL), util.NewClient(nil), nil)

	batch, err := s.Fetch(context.Background(), types.Hint{Cutoff: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 1)

	known := types.Hint{URLKeys: map[string]bool{"jobindex.dk/vis-job/h2": true}}
	batch, err = s.Fetch(context.Background(), known)
	require.NoError(t, err)
	assert.Empty(t, batch.Candidates)
}

func TestFetchRespectsNumJobs(t *testing.T) {
	srv := newServer(t, map[string][]result{
		"1": {res("h2", "SRE", "Ops A/S", "2024-05-08", false), res("h5", "Dev", "Y", "2024-05-08", false)},
	})
	o := opts(srv.URL)
	o.NumJobs = 1
	batch, err := New(o, util.NewClient(nil), nil).Fetch(context.Background(), types.Hint{})
	require.NoError(t, err)
	assert.Len(t, batch.Candidates, 1)
}
