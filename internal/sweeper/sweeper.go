package sweeper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"

	"chatd/pkg/config"
	"chatd/pkg/logger"
	"chatd/pkg/state"
	"chatd/pkg/store"
)

// The sweeper is a cron-scheduled janitor. Each run resumes conversation
// deletes interrupted between their two phases and removes message and
// index records whose conversation is gone. Runs are idempotent.

// RunOnce executes a single sweep and records the result under the sweeper
// state directory.
func RunOnce() (store.SweepResult, error) {
	started := time.Now().UTC()
	res, err := store.SweepOrphans()
	if err != nil {
		logger.Error("sweep_failed", "error", err)
		return res, err
	}
	logger.Info("sweep_complete",
		"resumed_deletes", res.ResumedDeletes,
		"orphaned_messages", res.OrphanedMessages,
		"dangling_indexes", res.DanglingIndexes,
		"duration_ms", time.Since(started).Milliseconds())
	writeLastRun(started, res)
	return res, nil
}

// writeLastRun persists a small JSON record of the last sweep for operators.
func writeLastRun(started time.Time, res store.SweepResult) {
	if state.PathsVar.State == "" {
		return
	}
	dir := filepath.Join(state.PathsVar.State, "sweeper")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return
	}
	rec := struct {
		Time             string `json:"time"`
		ResumedDeletes   int    `json:"resumed_deletes"`
		OrphanedMessages int    `json:"orphaned_messages"`
		DanglingIndexes  int    `json:"dangling_indexes"`
	}{
		Time:             started.Format(time.RFC3339),
		ResumedDeletes:   res.ResumedDeletes,
		OrphanedMessages: res.OrphanedMessages,
		DanglingIndexes:  res.DanglingIndexes,
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, "last_run.json"), b, 0o600)
}

// Start starts the sweep scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	if !cfg.Sweeper.Enabled {
		logger.Info("sweeper_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Sweeper.Cron
	if cronExpr == "" {
		// daily at 03:00
		cronExpr = "0 3 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweeper_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid sweeper cron expression: %s", cronExpr)
	}

	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr)
	logger.Info("sweeper_started", "cron", cronExpr)
	return cancel, nil
}

// runScheduler computes the next tick with gronx and sleeps until then.
func runScheduler(ctx context.Context, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if _, err := RunOnce(); err != nil {
				logger.Error("sweep_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}
	}
}
