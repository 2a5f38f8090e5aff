package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacokyle01/live-analysis/service"
)

// Server exposes the evaluation service over HTTP.
type Server struct {
	svc *service.Service
	log zerolog.Logger
	mux *http.ServeMux
}

// NewServer creates a new evaluation server
func NewServer(svc *service.Service, log zerolog.Logger) *Server {
	s := &Server{
		svc: svc,
		log: log,
		mux: http.NewServeMux(),
	}

	s.mux.HandleFunc("/evaluation/start", s.handleStart)
	s.mux.HandleFunc("/evaluation", s.handleGetEvaluation)
	s.mux.HandleFunc("/evaluation/stop", s.handleStop)
	s.mux.HandleFunc("/engine/threads", s.handleThreads)
	s.mux.HandleFunc("/engine/multipv", s.handleMultiPV)
	s.mux.HandleFunc("/engine/respawn", s.handleRespawn)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
