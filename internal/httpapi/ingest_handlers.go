package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"jobreview-engine/internal/ingest"
	"jobreview-engine/internal/journal"
)

type IngestHandler struct {
	Pipeline *ingest.Pipeline
	Journal  *journal.Journal
	Log      *zap.SugaredLogger

	// Background is the parent of asynchronous runs; it outlives the request.
	Background context.Context
}

func (h IngestHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.Pipeline == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "ingest_disabled", "ingestion is not configured")
		return
	}
	writeJSON(w, h.Pipeline.Status())
}

// Run starts an ingestion in the background and returns 202. ?force=1
// bypasses the daily guard.
func (h IngestHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Pipeline == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "ingest_disabled", "ingestion is not configured")
		return
	}
	if h.Pipeline.Status().Running {
		writeErr(w, r, ingest.ErrAlreadyRunning)
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	parent := h.Background
	if parent == nil {
		parent = context.Background()
	}
	reqID := RequestIDFrom(r.Context())
	go func() {
		res, err := h.Pipeline.Run(parent, force)
		switch {
		case errors.Is(err, ingest.ErrAlreadyRunning):
			h.Log.Infow("ingest already running", "request_id", reqID)
		case err != nil:
			h.Log.Errorw("ingest failed", "request_id", reqID, "run_id", res.RunID, "err", err)
		default:
			h.Log.Infow("ingest done", "request_id", reqID, "run_id", res.RunID, "skipped", res.Skipped, "added", res.Stats.Added)
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true, "started": true, "force": force})
}

// History returns recent runs and dedup ambiguities from the journal.
func (h IngestHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "journal_disabled", "run journal is not open")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.Journal.LastRuns(r.Context(), limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	amb, err := h.Journal.Ambiguities(r.Context(), limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	if amb == nil {
		amb = []journal.Ambiguity{}
	}
	writeJSON(w, map[string]any{"runs": runs, "ambiguities": amb})
}
