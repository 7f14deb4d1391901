package app

import (
	"context"
	"fmt"

	"github.com/adntgv/gptree/pkg/backend"
	"github.com/adntgv/gptree/pkg/backend/gemini"
	"github.com/adntgv/gptree/pkg/config"
	"github.com/adntgv/gptree/pkg/lifecycle"
	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/notify"
	"github.com/adntgv/gptree/pkg/queue"
	"github.com/adntgv/gptree/pkg/store"
	"github.com/adntgv/gptree/pkg/tree"

	"github.com/adntgv/gptree/internal/resummary"
)

// App encapsulates the server components and lifecycle. Components are
// constructed once in New and passed by reference; nothing here is a
// package global.
type App struct {
	cfg  *config.Config
	addr string

	version   string
	commit    string
	buildDate string

	store    *store.Store
	bus      *notify.Bus
	hub      *notify.Hub
	queue    *queue.Queue
	provider backend.Provider
	tree     *tree.Manager
	ctrl     *lifecycle.Controller
}

// New initializes every component that does not need a running context:
// the store, the queue, the bus and the managers layered on top. The
// generation backend is created here too; a missing API key fails fast.
func New(ctx context.Context, cfg *config.Config, addr, version, commit, buildDate string) (*App, error) {
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", cfg.Storage.DBPath, err)
	}

	if cfg.Backend.Provider != "gemini" {
		return nil, fmt.Errorf("unsupported backend provider %q", cfg.Backend.Provider)
	}
	if cfg.Backend.APIKey == "" {
		return nil, fmt.Errorf("backend API key not set; set GEMINI_API_KEY")
	}
	provider, err := gemini.New(ctx, cfg.Backend.APIKey, cfg.Backend.Model)
	if err != nil {
		return nil, err
	}

	bus := notify.NewBus(0)
	q := queue.New(cfg.Queue.MaxConcurrent)

	a := &App{
		cfg:       cfg,
		addr:      addr,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		store:     st,
		bus:       bus,
		hub:       notify.NewHub(),
		queue:     q,
		provider:  provider,
		tree:      tree.NewManager(st, bus),
		ctrl:      lifecycle.NewController(st, q, provider, bus),
	}
	return a, nil
}

// Run starts the websocket pump, the resummary scheduler and the HTTP
// server, then blocks until ctx is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx, a.bus)

	if a.cfg.Resummary.Enabled {
		cancel, err := resummary.Start(ctx, resummary.Config{
			Cron: a.cfg.Resummary.Cron,
		}, a.store, a.ctrl)
		if err != nil {
			return err
		}
		defer cancel()
	} else {
		logger.Info("resummary_disabled")
	}

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// shutdown drains the queue and closes the store. Running generation jobs
// finish recording their outcome before the store goes away.
func (a *App) shutdown() {
	a.queue.Stop()
	if err := a.store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
}
