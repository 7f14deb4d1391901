package resummary

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/adntgv/gptree/pkg/lifecycle"
	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/models"
	"github.com/adntgv/gptree/pkg/store"
)

// Config carries the scheduler settings.
type Config struct {
	Cron string
}

// Start starts the resummary scheduler and returns a cancel func. Each
// tick sweeps all threads and re-enqueues summary generation for those
// whose summary is stale, meaning messages landed after the summary was
// last written.
func Start(ctx context.Context, cfg Config, st *store.Store, ctrl *lifecycle.Controller) (context.CancelFunc, error) {
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("resummary_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid resummary cron expression: %s", cfg.Cron)
	}

	logger.Info("resummary_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, st, ctrl)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured
// cron expression and sleeps until that time.
func runScheduler(ctx context.Context, cronExpr string, st *store.Store, ctrl *lifecycle.Controller) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("resummary_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("resummary_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("resummary_scheduler_stopping")
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			RunOnce(st, ctrl)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				logger.Info("resummary_scheduler_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			RunOnce(st, ctrl)
		case <-ctx.Done():
			logger.Info("resummary_scheduler_stopping")
			return
		}
	}
}

// RunOnce sweeps all threads and enqueues summary jobs for the stale
// ones. Exported so an admin trigger or test can run a sweep on demand.
func RunOnce(st *store.Store, ctrl *lifecycle.Controller) {
	threads, err := st.List()
	if err != nil {
		logger.Error("resummary_list_failed", "error", err)
		return
	}
	swept := 0
	for _, th := range threads {
		if !Stale(th) {
			continue
		}
		if _, err := ctrl.Summarize(th.ID); err != nil {
			logger.Warn("resummary_enqueue_failed", "thread", th.ID, "error", err)
			continue
		}
		swept++
	}
	logger.Info("resummary_sweep_done", "threads", len(threads), "enqueued", swept)
}

// Stale reports whether the thread has completed messages newer than its
// summary. Threads with no completed assistant or user content never
// qualify.
func Stale(th *models.Thread) bool {
	var latest int64
	for _, m := range th.Messages {
		if m.Author == models.AuthorSystem {
			continue
		}
		if m.Status != models.StatusCompleted {
			continue
		}
		if m.CreatedTS > latest {
			latest = m.CreatedTS
		}
	}
	if latest == 0 {
		return false
	}
	return latest > th.SummaryTS
}
