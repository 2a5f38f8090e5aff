package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/notnil/chess/uci"
	"github.com/rs/zerolog"
)

// ProcessConfig describes how to launch an engine binary.
type ProcessConfig struct {
	Path          string
	Args          []string
	Logger        zerolog.Logger
	WriteInterval time.Duration
}

// Process is a running engine binary and the bridge over its pipes.
type Process struct {
	*Bridge

	cmd    *exec.Cmd
	log    zerolog.Logger
	exited chan struct{}
}

// StartProcess launches the engine and starts bridging its pipes.
func StartProcess(cfg ProcessConfig) (*Process, error) {
	cmd := exec.Command(cfg.Path, cfg.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Path, err)
	}

	log := cfg.Logger.With().Str("engine", cfg.Path).Int("pid", cmd.Process.Pid).Logger()
	log.Info().Msg("engine started")

	p := &Process{
		Bridge: NewBridge(stdout, stdin, BridgeConfig{Logger: log, WriteInterval: cfg.WriteInterval}),
		cmd:    cmd,
		log:    log,
		exited: make(chan struct{}),
	}
	go p.reap()

	return p, nil
}

// reap waits for the bridge to stop before calling Wait, which closes the
// pipes the reader is still using.
func (p *Process) reap() {
	<-p.Bridge.Done()
	err := p.cmd.Wait()
	p.log.Info().Err(err).Msg("engine exited")
	close(p.exited)
}

// Close asks the engine to quit and kills it if it is still running when
// ctx expires.
func (p *Process) Close(ctx context.Context) error {
	p.Send(uci.CmdQuit.String())
	p.Bridge.Close(ctx)

	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
	}

	p.log.Warn().Msg("engine ignored quit, killing")
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill engine: %w", err)
	}
	<-p.exited
	return nil
}
