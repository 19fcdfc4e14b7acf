package web

import (
	"context"
	"errors"
	"net"
	"net/http"

	"cadastro/internal/config"
	"cadastro/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Run serves handler on cfg.Addr until ctx is cancelled, then shuts down
// gracefully within cfg's shutdown timeout.
func Run(ctx context.Context, handler http.Handler, cfg config.ServerConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, handler, cfg)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, cfg config.ServerConfig) error {
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Web("listening on http://%s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		logging.Web("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
