package httpapi

import (
	"sync/atomic"

	"go.uber.org/zap"

	"jobreview-engine/internal/config"
	"jobreview-engine/internal/events"
	"jobreview-engine/internal/ingest"
	"jobreview-engine/internal/journal"
	"jobreview-engine/internal/review"
)

type Deps struct {
	Session *review.Session
	Hub     *events.Hub

	// Ingest and Journal are optional; their routes answer 503 without them.
	Ingest  *ingest.Pipeline
	Journal *journal.Journal

	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Shutdown starts a graceful stop. POST /shutdown is disabled when
	// ShutdownToken is empty.
	Shutdown      func()
	ShutdownToken string

	Log *zap.SugaredLogger
}
