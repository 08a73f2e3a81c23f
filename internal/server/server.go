package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/namity/backend/internal/logger"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger
}

// Run starts http server and closes gracefully on context cancellation
// Returns http.ErrServerClosed when stopped by context
func (s *Server) Run(ctx context.Context) error {
	log := s.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			log.Error("HTTP server shutdown timeout exceeded, forcing shutdown")
		}
		log.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	log.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
