package httpapi

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"jobreview-engine/internal/domain"
	"jobreview-engine/internal/review"
)

type ReviewHandler struct {
	Session *review.Session
}

// rowJSON renders every table column for a row, blanks included, plus its
// session id under "row_id".
func rowJSON(cols []string, row review.Row) map[string]any {
	out := make(map[string]any, len(cols)+1)
	out["row_id"] = row.ID
	for _, c := range cols {
		out[c] = row.Record.Get(c)
	}
	return out
}

func (h ReviewHandler) Filters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"filters": h.Session.Filters()})
}

func (h ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"stats": h.Session.Stats(),
		"dirty": h.Session.Dirty(),
		"path":  h.Session.Path(),
	})
}

func (h ReviewHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := rowIDParam(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid row id")
		return
	}
	row, err := h.Session.Row(id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := rowJSON(h.Session.Columns(), row)
	out["_editable_fields"] = domain.EditableFields
	writeJSON(w, out)
}

type updateJobReq struct {
	Updates map[string]string `json:"updates"`
	Save    bool              `json:"save"`
}

// UpdateJob applies field edits. A decision among the updates goes through
// SetDecision so decision_reason is set alongside it.
func (h ReviewHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := rowIDParam(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid row id")
		return
	}
	var req updateJobReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	updates := make(map[string]string, len(req.Updates))
	for k, v := range req.Updates {
		updates[k] = v
	}
	decision, hasDecision := updates[domain.ColDecision]
	reason, hasReason := updates[domain.ColDecisionReason]
	delete(updates, domain.ColDecision)
	if hasDecision {
		delete(updates, domain.ColDecisionReason)
		// validate before any field is touched
		if _, ok := domain.ParseDecision(decision); !ok {
			writeErr(w, r, errors.Wrapf(review.ErrInvalidDecision, "%q", decision))
			return
		}
	}

	ts := ""
	if len(updates) > 0 {
		var err error
		if ts, err = h.Session.UpdateRow(id, updates); err != nil {
			writeErr(w, r, err)
			return
		}
	}
	if hasDecision {
		var rp *string
		if hasReason {
			rp = &reason
		}
		var err error
		if ts, err = h.Session.SetDecision(id, decision, rp); err != nil {
			writeErr(w, r, err)
			return
		}
	}
	if ts == "" {
		// nothing to apply; still 404 on a bad id
		if _, err := h.Session.Row(id); err != nil {
			writeErr(w, r, err)
			return
		}
	}

	out := map[string]any{"status": "ok", "last_updated": ts}
	if req.Save {
		if _, err := h.Session.Save(r.Context()); err != nil {
			writeErr(w, r, err)
			return
		}
		out["persisted"] = true
	}
	writeJSON(w, out)
}

type decisionReq struct {
	Decision string  `json:"decision"`
	Reason   *string `json:"reason"`
}

func (h ReviewHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, ok := rowIDParam(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid row id")
		return
	}
	var req decisionReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	ts, err := h.Session.SetDecision(id, req.Decision, req.Reason)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "last_updated": ts})
}

// Nav answers GET /api/nav?current=&dir=&filter=&prev_filter=. id is 0
// when there is nothing to show.
func (h ReviewHandler) Nav(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, ok := filterParam(r, "filter", review.FilterPending)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_filter", "unknown filter "+q.Get("filter"))
		return
	}
	prev, ok := filterParam(r, "prev_filter", "")
	if !ok {
		prev = ""
	}
	cur := review.NoRow
	if raw := strings.TrimSpace(q.Get("current")); raw != "" {
		id, err := parseRowID(raw)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		cur = id
	}
	writeJSON(w, h.Session.Navigate(cur, filter, prev, review.ParseDirection(q.Get("dir"))))
}

func (h ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, ok := filterParam(r, "filter", review.FilterAll)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_filter", "unknown filter "+q.Get("filter"))
		return
	}
	sortCol, sortDir := q.Get("sort_col"), q.Get("sort_dir")

	cols := h.Session.Columns()
	rows := h.Session.List(filter, sortCol, sortDir)
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowJSON(cols, row))
	}
	writeJSON(w, map[string]any{
		"filter":   filter,
		"count":    len(out),
		"columns":  append([]string{"row_id"}, cols...),
		"rows":     out,
		"sort_col": sortCol,
		"sort_dir": sortDir,
	})
}

func (h ReviewHandler) Save(w http.ResponseWriter, r *http.Request) {
	res, err := h.Session.Save(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := map[string]any{"status": "saved", "rows": res.Rows, "backup": res.BackupPath}
	if res.BackupErr != nil {
		out["backup_error"] = res.BackupErr.Error()
	}
	writeJSON(w, out)
}

type deleteReq struct {
	Save bool `json:"save"`
}

func (h ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := rowIDParam(r)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid row id")
		return
	}
	filter, ok := filterParam(r, "filter", review.FilterAll)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "bad_filter", "unknown filter "+r.URL.Query().Get("filter"))
		return
	}
	var req deleteReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	next, err := h.Session.DeleteAndAdvance(id, filter)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := map[string]any{"status": "deleted", "next_id": next}
	if req.Save {
		if _, err := h.Session.Save(r.Context()); err != nil {
			writeErr(w, r, errors.Wrap(err, "deleted but not saved"))
			return
		}
		out["persisted"] = true
	}
	writeJSON(w, out)
}
