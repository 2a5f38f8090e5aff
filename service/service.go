// Package service exposes one engine Supervisor to concurrent callers. All
// operations are serialized behind a single lock; callers queue on it.
package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jacokyle01/live-analysis/engine"
	"github.com/jacokyle01/live-analysis/models"
)

// Status is a snapshot of what the engine is doing.
type Status struct {
	State string `json:"state"`
	Cycle string `json:"cycle,omitempty"`
	FEN   string `json:"fen,omitempty"`
}

// Service is the host-facing contract over a Supervisor.
type Service struct {
	mu  sync.Mutex
	sup *engine.Supervisor
	log zerolog.Logger
}

func New(sup *engine.Supervisor, log zerolog.Logger) *Service {
	return &Service{sup: sup, log: log}
}

// StartEvaluation begins analysing fen, replacing any running analysis, and
// returns the new cycle id.
func (s *Service) StartEvaluation(ctx context.Context, fen string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sup.Start(ctx, fen)
}

// GetEvaluation returns the latest evaluation. ok is false when the engine
// has not reported anything for the current position yet.
func (s *Service) GetEvaluation(ctx context.Context) (ev models.Evaluation, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	got, err := s.sup.Poll(ctx)
	if err != nil || got == nil {
		return models.Evaluation{}, false, err
	}
	return *got, true, nil
}

func (s *Service) StopEvaluation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sup.Stop(ctx)
}

// SetThreads sets the engine's thread count; zero means one per CPU. It
// returns the count applied.
func (s *Service) SetThreads(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n == 0 {
		return s.sup.AutoSetThreads()
	}
	return n, s.sup.SetThreads(n)
}

func (s *Service) SetMultiPV(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sup.SetMultiPV(n)
}

func (s *Service) Respawn(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sup.Respawn(ctx)
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State: s.sup.State().String(),
		Cycle: s.sup.Cycle(),
		FEN:   s.sup.FEN(),
	}
}

func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info().Msg("shutting down engine")
	return s.sup.Close(ctx)
}
