package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jobreview-engine/internal/logger"
)

// NewRouter wires every route onto a chi router. ctx bounds background
// ingestion runs started over HTTP.
func NewRouter(ctx context.Context, d Deps) http.Handler {
	log := logger.Or(d.Log, "http")

	r := chi.NewRouter()
	r.Use(RequestID, AccessLog(log), Recover(log), Cors)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/health", HealthHandler{Session: d.Session}.Health)

	eh := EventsHandler{Hub: d.Hub}
	r.Get("/events", eh.ServeSSE)

	sd := ShutdownHandler{Session: d.Session, Token: d.ShutdownToken, Stop: d.Shutdown, Log: log}
	r.Post("/shutdown", sd.Shutdown)

	r.Route("/api", func(r chi.Router) {
		rh := ReviewHandler{Session: d.Session}
		r.Get("/filters", rh.Filters)
		r.Get("/stats", rh.Stats)
		r.Get("/job/{id}", rh.GetJob)
		r.Post("/job/{id}", rh.UpdateJob)
		r.Post("/decision/{id}", rh.Decide)
		r.Get("/nav", rh.Nav)
		r.Get("/list", rh.List)
		r.Post("/save", rh.Save)
		r.Post("/delete/{id}", rh.Delete)

		ih := IngestHandler{Pipeline: d.Ingest, Journal: d.Journal, Log: log, Background: ctx}
		r.Get("/ingest/status", ih.Status)
		r.Post("/ingest/run", ih.Run)
		r.Get("/ingest/history", ih.History)

		ch := ConfigHandler{CfgVal: d.CfgVal, UserCfgPath: d.UserCfgPath, LoadCfg: d.LoadCfg}
		r.Get("/config", ch.Get)
		r.Put("/config", ch.Put)
		r.Get("/config/path", ch.Path)
		r.Get("/config/validate", ch.Validate)

		sh := SecretsHandler{CfgVal: d.CfgVal}
		r.Get("/secrets/imap", sh.IMAPStatus)
		r.Post("/secrets/imap", sh.SetIMAPPassword)
		r.Delete("/secrets/imap", sh.DeleteIMAPPassword)
	})

	return r
}
