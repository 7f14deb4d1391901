package app

import (
	"context"
	"net/http"
	"time"

	"github.com/adntgv/gptree/pkg/api"
	"github.com/adntgv/gptree/pkg/api/handlers"
	"github.com/adntgv/gptree/pkg/banner"
	"github.com/adntgv/gptree/pkg/logger"
)

// PrintBanner prints the startup banner and build info. Called by main
// once configuration is resolved, before Run.
func (a *App) PrintBanner(sources string) {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.addr, a.cfg.Storage.DBPath, a.cfg.Backend.Model, sources, verStr)
}

// startHTTP builds the handler, starts the HTTP server in a goroutine and
// returns a channel that will carry any server error.
func (a *App) startHTTP(ctx context.Context) <-chan error {
	h := api.Router(
		handlers.New(a.store, a.tree, a.ctrl, a.queue),
		a.hub,
		api.RateLimitConfig{
			RPS:   a.cfg.Security.RateLimit.RPS,
			Burst: a.cfg.Security.RateLimit.Burst,
		},
	)

	srv := &http.Server{Addr: a.addr, Handler: h}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listening", "addr", a.addr)
		cert := a.cfg.Server.TLS.CertFile
		key := a.cfg.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
	return errCh
}
