package jobnet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/identity"
	"jobreview-engine/internal/scrape/types"
	"jobreview-engine/internal/scrape/util"
)

func serve(t *testing.T, ads []jobAd) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bff/FindJob/Search", r.URL.Path)
		assert.Equal(t, "PublicationDate", r.URL.Query().Get("orderType"))
		assert.Equal(t, "2100", r.URL.Query().Get("postalCode"))
		_ = json.NewEncoder(w).Encode(searchResponse{JobAds: ads})
	}))
	t.Cleanup(srv.Close)
	return srv
}

var ads = []jobAd{
	{JobAdID: "a1", Title: "Backend Developer", HiringOrgName: "Nordic Soft", PostalDistrictName: "København Ø",
		PublicationDate: "2024-05-09T08:00:00", Description: "<p>Hello <b>team</b></p><p>Go</p>"},
	{JobAdID: "a2", JobAdURL: "https://example.dk/job/2", Title: "Tester", HiringOrgName: "QA ApS",
		PublicationDate: "2024-05-08T08:00:00", WorkHourPartTime: true},
	{JobAdID: "a3", Title: "Old Job", HiringOrgName: "Past", PublicationDate: "2024-04-01T08:00:00"},
}

func TestFetchBuildsRecords(t *testing.T) {
	srv := serve(t, ads)
	s := New(Options{Titles: []string{"developer"}, PostalCode: "2100", NumJobs: 10, BaseURL: srv.URL}, util.NewClient(nil), nil)

	batch, err := s.Fetch(context.Background(), types.Hint{})
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 3)

	first := batch.Candidates[0]
	assert.Equal(t, srv.URL+"/find-job/a1", first.URL())
	assert.Equal(t, "Full-time", first.Get(domain.ColFullOrPartTime))
	assert.Equal(t, "Hello\nteam\nGo", first.Description())
	assert.Equal(t, "jobnet", first.Get(domain.ColJobBoard))

	second := batch.Candidates[1]
	assert.Equal(t, "https://example.dk/job/2", second.URL())
	assert.Equal(t, "Part-time", second.Get(domain.ColFullOrPartTime))
}

func TestFetchStopsAtKnownPosting(t *testing.T) {
	srv := serve(t, ads)
	s := New(Options{Titles: []string{"developer"}, PostalCode: "2100", NumJobs: 10, BaseURL: srv.URL}, util.NewClient(nil), nil)

	hint := types.Hint{FallbackKeys: map[string]bool{identity.FallbackKey("tester", "qa aps"): true}}
	batch, err := s.Fetch(context.Background(), hint)
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 1)
	assert.Equal(t, "Backend Developer", batch.Candidates[0].Title())
}

func TestFetchStopsAtCutoff(t *testing.T) {
	srv := serve(t, ads)
	s := New(Options{Titles: []string{"developer"}, PostalCode: "2100", NumJobs: 10, BaseURL: srv.URL}, util.NewClient(nil), nil)

	hint := types.Hint{Cutoff: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	batch, err := s.Fetch(context.Background(), hint)
	require.NoError(t, err)
	assert.Len(t, batch.Candidates, 2)
}

func TestFetchAllTitlesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	s := New(Options{Titles: []string{"a", "b"}, BaseURL: srv.URL}, util.NewClient(nil), nil)

	_, err := s.Fetch(context.Background(), types.Hint{})
	assert.ErrorIs(t, err, util.ErrStatus)
}
