package engine

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess/uci"
	"github.com/rs/zerolog"

	"github.com/jacokyle01/live-analysis/models"
)

// Transport is a line-oriented, non-blocking connection to an engine.
// *Bridge and *Process implement it.
type Transport interface {
	Send(line string)
	TryReceive() (string, bool)
	DrainAvailable() []string
	Received() <-chan struct{}
	Done() <-chan struct{}
	Err() error
	Close(ctx context.Context) error
}

// Launcher starts a fresh engine.
type Launcher func() (Transport, error)

// ProcessLauncher launches the binary described by cfg.
func ProcessLauncher(cfg ProcessConfig) Launcher {
	return func() (Transport, error) {
		return StartProcess(cfg)
	}
}

type State int

const (
	Idle State = iota
	Busy
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Busy:
		return "busy"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Limits bound a search. The zero value searches until stopped.
type Limits struct {
	Depth    int
	MoveTime time.Duration
}

// Config configures a Supervisor.
type Config struct {
	Logger  zerolog.Logger
	Threads int
	HashMB  int
	MultiPV int
	Limits  Limits

	// ReadyTimeout bounds every wait for an engine acknowledgment.
	// Zero waits as long as the caller's context allows.
	ReadyTimeout time.Duration
}

// Supervisor drives a single engine through analysis cycles. It is not safe
// for concurrent use; callers serialize access (see service.Service).
type Supervisor struct {
	log    zerolog.Logger
	cfg    Config
	launch Launcher
	conn   Transport

	busy     bool
	failure  error
	position *Position
	cycle    string
	acc      Accumulator
}

// NewSupervisor launches the engine and completes the UCI handshake.
func NewSupervisor(ctx context.Context, launch Launcher, cfg Config) (*Supervisor, error) {
	s := &Supervisor{
		log:    cfg.Logger,
		cfg:    cfg,
		launch: launch,
	}
	if err := s.connect(ctx); err != nil {
		if s.conn != nil {
			s.conn.Close(context.Background())
		}
		return nil, err
	}
	return s, nil
}

// Start begins analysing fen and returns the id of the new cycle. A search
// already in progress is stopped first.
func (s *Supervisor) Start(ctx context.Context, fen string) (string, error) {
	if err := s.healthy(); err != nil {
		return "", err
	}
	if s.busy {
		if err := s.Stop(ctx); err != nil {
			return "", err
		}
	}

	pos, err := ParsePosition(fen)
	if err != nil {
		return "", err
	}

	s.position = pos
	s.acc.Clear()
	s.cycle = uuid.NewString()

	s.conn.Send("position fen " + pos.FEN())
	s.send(uci.CmdGo{Depth: s.cfg.Limits.Depth, MoveTime: s.cfg.Limits.MoveTime})
	s.busy = true

	s.log.Info().Str("cycle", s.cycle).Str("fen", pos.FEN()).Msg("evaluation started")
	return s.cycle, nil
}

// Poll folds in all engine output received so far and returns the current
// evaluation. A nil evaluation with a nil error means nothing has arrived yet.
// If the position is already decided the search is stopped and only the
// outcome is reported.
func (s *Supervisor) Poll(ctx context.Context) (*models.Evaluation, error) {
	if err := s.healthy(); err != nil {
		return nil, err
	}
	if !s.busy {
		return nil, ErrNotEvaluating
	}

	s.acc.ProcessLines(s.conn.DrainAvailable())

	if outcome := s.position.Outcome(); outcome != nil {
		s.log.Info().Str("cycle", s.cycle).Stringer("outcome", *outcome).Msg("game is over")
		if err := s.Stop(ctx); err != nil {
			return nil, err
		}
		return models.Finished(*outcome), nil
	}

	ev, ok := s.acc.Derive(s.position.WhiteToMove(), nil)
	if !ok {
		return nil, nil
	}
	return ev, nil
}

// Stop halts the search and waits for the engine to acknowledge. It is safe
// to call when idle.
func (s *Supervisor) Stop(ctx context.Context) error {
	if err := s.healthy(); err != nil {
		return err
	}

	s.send(uci.CmdStop)
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	if s.busy {
		s.log.Info().Str("cycle", s.cycle).Msg("evaluation stopped")
	}
	s.reset()
	return nil
}

// SetThreads forwards a Threads option to the engine. It may be called
// during a search.
func (s *Supervisor) SetThreads(n int) error {
	if err := s.healthy(); err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("%w: %d threads", ErrInvalidInput, n)
	}
	s.cfg.Threads = n
	s.setOption("Threads", n)
	return nil
}

// AutoSetThreads uses one search thread per CPU and returns the count.
func (s *Supervisor) AutoSetThreads() (int, error) {
	n := runtime.NumCPU()
	return n, s.SetThreads(n)
}

// SetMultiPV sets how many ranked lines the engine reports. Changing it in
// the middle of a search would mix line counts, so it requires Idle.
func (s *Supervisor) SetMultiPV(n int) error {
	if err := s.healthy(); err != nil {
		return err
	}
	if s.busy {
		return ErrBusy
	}
	if n < 1 {
		return fmt.Errorf("%w: multipv %d", ErrInvalidInput, n)
	}
	s.cfg.MultiPV = n
	s.setOption("MultiPV", n)
	return nil
}

// Respawn replaces the engine process and returns to Idle. It is the way
// out of the Failed state.
func (s *Supervisor) Respawn(ctx context.Context) error {
	if s.conn != nil {
		if err := s.conn.Close(ctx); err != nil {
			s.log.Warn().Err(err).Msg("closing old engine")
		}
	}
	s.reset()
	s.log.Warn().Msg("respawning engine")
	return s.connect(ctx)
}

// Close shuts the engine down.
func (s *Supervisor) Close(ctx context.Context) error {
	s.reset()
	return s.conn.Close(ctx)
}

func (s *Supervisor) State() State {
	switch {
	case s.failure != nil, s.conn.Err() != nil:
		return Failed
	case s.busy:
		return Busy
	default:
		return Idle
	}
}

// Cycle returns the id of the running cycle, or "" when idle.
func (s *Supervisor) Cycle() string {
	return s.cycle
}

// FEN returns the position under analysis, or "" when idle.
func (s *Supervisor) FEN() string {
	if s.position == nil {
		return ""
	}
	return s.position.FEN()
}

func (s *Supervisor) connect(ctx context.Context) error {
	conn, err := s.launch()
	if err != nil {
		s.failure = err
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	s.conn = conn
	s.failure = nil

	s.send(uci.CmdUCI)
	if err := s.waitFor(ctx, "uciok"); err != nil {
		return err
	}
	if s.cfg.Threads > 0 {
		s.setOption("Threads", s.cfg.Threads)
	}
	if s.cfg.HashMB > 0 {
		s.setOption("Hash", s.cfg.HashMB)
	}
	if s.cfg.MultiPV > 0 {
		s.setOption("MultiPV", s.cfg.MultiPV)
	}
	s.send(uci.CmdUCINewGame)
	return s.waitReady(ctx)
}

func (s *Supervisor) send(cmd fmt.Stringer) {
	s.conn.Send(cmd.String())
}

func (s *Supervisor) setOption(name string, value int) {
	s.send(uci.CmdSetOption{Name: name, Value: strconv.Itoa(value)})
}

func (s *Supervisor) waitReady(ctx context.Context) error {
	s.send(uci.CmdIsReady)
	return s.waitFor(ctx, "readyok")
}

// waitFor discards engine output until a line equal to token arrives.
func (s *Supervisor) waitFor(ctx context.Context, token string) error {
	if s.cfg.ReadyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ReadyTimeout)
		defer cancel()
	}

	for {
		for {
			line, ok := s.conn.TryReceive()
			if !ok {
				break
			}
			if line == token {
				return nil
			}
		}

		select {
		case <-s.conn.Received():
		case <-s.conn.Done():
			return s.fail(s.conn.Err())
		case <-ctx.Done():
			return s.fail(fmt.Errorf("%w: no %s: %w", ErrTimeout, token, ctx.Err()))
		}
	}
}

func (s *Supervisor) healthy() error {
	if s.failure == nil {
		if err := s.conn.Err(); err != nil {
			return s.fail(err)
		}
		return nil
	}
	return fmt.Errorf("%w: %w", ErrEngineUnavailable, s.failure)
}

// fail puts the supervisor into the Failed state until Respawn.
func (s *Supervisor) fail(cause error) error {
	if s.failure == nil {
		s.log.Error().Err(cause).Str("cycle", s.cycle).Msg("engine unavailable")
	}
	s.failure = cause
	s.reset()
	return fmt.Errorf("%w: %w", ErrEngineUnavailable, cause)
}

func (s *Supervisor) reset() {
	s.busy = false
	s.position = nil
	s.cycle = ""
	s.acc.Clear()
}
