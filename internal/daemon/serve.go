package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tutu-network/gpusizer/internal/api"
	"github.com/tutu-network/gpusizer/internal/infra/catalog"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Serve listens on cfg.Server.Addr() and serves the calculator until ctx is
// cancelled.
func Serve(ctx context.Context, cfg Config, cat *catalog.Catalog, log logrus.FieldLogger) error {
	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr(), err)
	}
	return ServeListener(ctx, ln, cfg, cat, log)
}

// ServeListener serves on an existing listener. The listener is closed on return.
func ServeListener(ctx context.Context, ln net.Listener, cfg Config, cat *catalog.Catalog, log logrus.FieldLogger) error {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	srv := api.NewServer(cat, log)
	srv.SetWorkers(cfg.Sweep.Workers)
	srv.SetDefaultSelection(cfg.Defaults.Models, cfg.Defaults.GPUs)
	if cfg.Server.Metrics {
		srv.EnableMetrics()
	}

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	log.WithFields(logrus.Fields{
		"addr":    ln.Addr().String(),
		"metrics": cfg.Server.Metrics,
	}).Infof("serving on http://%s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
