package httpapi

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"jobreview-engine/internal/review"
)

type ShutdownHandler struct {
	Session *review.Session
	Token   string
	// Stop starts the graceful server stop.
	Stop func()
	Log  *zap.SugaredLogger
}

// Shutdown flushes pending edits and then asks the server to stop. Only
// loopback callers holding the token may use it. If the flush fails the
// server keeps running so nothing is lost.
func (h ShutdownHandler) Shutdown(w http.ResponseWriter, r *http.Request) {
	if h.Token == "" || h.Stop == nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "shutdown is disabled")
		return
	}
	if !isLoopback(r) {
		WriteError(w, r, http.StatusForbidden, "forbidden", "shutdown is only allowed from localhost")
		return
	}
	got := r.Header.Get("X-Shutdown-Token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) != 1 {
		WriteError(w, r, http.StatusUnauthorized, "unauthorized", "bad shutdown token")
		return
	}

	flushed := false
	if h.Session != nil && h.Session.Dirty() {
		if _, err := h.Session.Save(r.Context()); err != nil {
			writeErr(w, r, err)
			return
		}
		flushed = true
	}
	h.Log.Infow("shutdown requested", "request_id", RequestIDFrom(r.Context()), "flushed", flushed)
	writeJSON(w, map[string]any{"status": "shutting_down", "flushed": flushed})
	go h.Stop()
}
