package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"jobreview-engine/internal/ingest"
	"jobreview-engine/internal/logger"
)

var (
	ingestForce bool
	ingestJSON  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion now",
	Long: `Fetch postings from every enabled source, merge them into the dataset and
record the run. Without --force the run is skipped when today's UTC date is
already recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), ingestForce)
	},
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Guarded daily ingestion (for cron)",
	Long:  "Runs ingestion at most once per UTC day and prints whether it ran or skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), false)
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "Ignore the daily marker")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "Print the run result as JSON")
	dailyCmd.Flags().BoolVar(&ingestJSON, "json", false, "Print the run result as JSON")
}

func runIngest(parent context.Context, force bool) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	log := logger.Component("ingest")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	j := a.openJournal()
	defer j.Close()

	store := a.store()
	p := a.pipeline(ingest.FileDataset{Store: store, Log: log}, j, nil)
	if len(p.Producers) == 0 {
		log.Warnw("no sources enabled")
	}

	res, err := p.Run(ctx, force)
	if ingestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
	}
	if err != nil {
		if errors.Is(err, ingest.ErrAlreadyRunning) {
			fmt.Println("skip: another ingestion is running")
			return nil
		}
		return err
	}
	if ingestJSON {
		return nil
	}

	if res.Skipped {
		fmt.Printf("skip: already ran today (%s)\n", res.Marker.LastDate)
		return nil
	}
	s := res.Stats
	fmt.Printf("ran: %d added, %d known by url, %d known by title/company, %d duplicates in batch, %d malformed, %d auto-rejected\n",
		s.Added, s.SkippedURL, s.SkippedTitleCompany, s.BatchDuplicates, s.Malformed, s.AutoRejected)
	for _, src := range res.Sources {
		if src.Error != "" {
			fmt.Printf("  %-10s failed: %s\n", src.Producer, src.Error)
			continue
		}
		fmt.Printf("  %-10s %d candidates\n", src.Producer, src.Candidates)
	}
	return nil
}
