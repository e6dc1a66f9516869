package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"pkt.systems/pslog"
)

const readHeaderTimeout = 10 * time.Second

// ListenAndServe serves the receiver on the configured address until ctx
// ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves the receiver on ln until ctx ends. Live streams close with
// ctx; posts still in flight get shutdownTimeout to be stored.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := pslog.Ctx(ctx)
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          pslog.LogLoggerWithLevel(log, pslog.ErrorLevel),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	log.Info("http listening", "addr", ln.Addr().String(), "base_path", s.basePath, "record_dir", s.cfg.RecordDir)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		<-errCh
		if err != nil {
			log.Warn("http shutdown incomplete", "err", err)
		}
		log.Info("http stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
