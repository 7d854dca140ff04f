package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"jobreview-engine/internal/config"
	"jobreview-engine/internal/events"
	"jobreview-engine/internal/httpapi"
	"jobreview-engine/internal/ingest"
	"jobreview-engine/internal/logger"
	"jobreview-engine/internal/persist"
	"jobreview-engine/internal/review"
	"jobreview-engine/internal/scheduler"
)

const shutdownTokenFile = ".shutdown_token"

var serveNoSchedule bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review API",
	Long: `Open the dataset for review and serve the HTTP API. Pending edits are
flushed on SIGINT/SIGTERM or POST /shutdown. With schedule.enabled the daily
ingestion also runs in-process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoSchedule, "no-schedule", false, "Do not run the in-process daily ingestion")
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func runServe(parent context.Context) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	log := logger.Component("serve")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := a.store()
	if p, err := a.rotator().RotateFile(store.Path, persist.ClassSession); err != nil {
		log.Warnw("session backup failed", "err", err)
	} else if p != "" {
		log.Infow("session backup", "path", p)
	}

	hub := events.NewHub()
	sess, err := review.Open(review.Options{
		Store:  store,
		Log:    logger.Component("review"),
		Notify: hub.Notify,
	})
	if err != nil {
		return err
	}

	go func() {
		if err := sess.Watch(ctx); err != nil {
			log.Warnw("file watcher stopped", "err", err)
		}
	}()

	j := a.openJournal()
	defer j.Close()
	pipe := a.pipeline(sess, j, hub.Notify)

	if a.cfg.Schedule.Enabled && !serveNoSchedule {
		go scheduler.Every(ctx, a.cfg.CheckInterval(), "daily-ingest", func(ctx context.Context) error {
			_, err := pipe.Run(ctx, false)
			if errors.Is(err, ingest.ErrAlreadyRunning) {
				return nil
			}
			return err
		})
	}

	var cfgVal atomic.Value
	cfgVal.Store(a.cfg)

	token := a.cfg.App.ShutdownToken
	if token == "" {
		if token, err = randomToken(16); err != nil {
			return errors.Wrap(err, "shutdown token")
		}
	}
	tokenPath := filepath.Join(a.cfg.App.DataDir, shutdownTokenFile)
	if err := persist.WriteBytesAtomic(tokenPath, 0o600, []byte(token)); err != nil {
		log.Warnw("could not write shutdown token", "path", tokenPath, "err", err)
	}
	defer os.Remove(tokenPath)

	handler := httpapi.NewRouter(ctx, httpapi.Deps{
		Session:     sess,
		Hub:         hub,
		Ingest:      pipe,
		Journal:     j,
		CfgVal:      &cfgVal,
		UserCfgPath: a.cfgPath,
		LoadCfg: func() (config.Config, error) {
			c, err := config.Load(a.cfgPath)
			if err == nil {
				config.OverlayEnv(&c)
				c.App.ShutdownToken = token
			}
			return c, err
		},
		ShutdownToken: token,
		Shutdown:      stop,
		Log:           logger.Component("http"),
	})

	addr := net.JoinHostPort(a.cfg.App.Host, strconv.Itoa(a.cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// cancelling ctx ends open event streams
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	log.Infow("listening", "url", "http://"+addr, "dataset", store.Path, "rows", sess.Len())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("server failed", "err", err)
		}
	}
	stop()

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warnw("http shutdown", "err", err)
	}

	if err := sess.Close(context.Background()); err != nil {
		log.Errorw("flush on exit failed; edits are lost unless saved", "err", err)
		return err
	}
	log.Infow("stopped", "dirty", sess.Dirty())
	return nil
}
