package httpapi

import (
	"net/http"

	"jobreview-engine/internal/review"
)

type HealthHandler struct {
	Session *review.Session
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"ok": true}
	if h.Session != nil {
		out["rows"] = h.Session.Len()
		out["dirty"] = h.Session.Dirty()
	}
	writeJSON(w, out)
}
