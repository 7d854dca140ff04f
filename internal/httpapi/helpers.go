package httpapi

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"jobreview-engine/internal/review"
)

func writeJSON(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}

// rowIDParam reads the {id} URL parameter.
func rowIDParam(r *http.Request) (review.RowID, bool) {
	id, err := parseRowID(chi.URLParam(r, "id"))
	return id, err == nil && id != review.NoRow
}

func parseRowID(raw string) (review.RowID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return review.NoRow, errors.Newf("invalid row id %q", raw)
	}
	return review.RowID(id), nil
}

// decodeBody decodes an optional JSON body; an empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 4<<20))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrap(err, "invalid JSON")
	}
	return nil
}

func filterParam(r *http.Request, key string, def review.Filter) (review.Filter, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	return review.ParseFilter(raw)
}

func isLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
