// Package enginetest provides a scripted in-process UCI engine for tests.
package enginetest

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacokyle01/live-analysis/engine"
)

// Engine speaks just enough UCI to drive a Supervisor. Each "go" emits the
// next scripted batch of lines.
type Engine struct {
	mu       sync.Mutex
	received []string
	searches [][]string
	goCount  int

	ignoreReady atomic.Bool

	in     *io.PipeReader
	out    *io.PipeWriter
	bridge *engine.Bridge
}

// New starts a fake engine. The pipes are closed when the test ends.
func New(t testing.TB, searches ...[]string) *Engine {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	f := &Engine{searches: searches, in: inR, out: outW}
	f.bridge = engine.NewBridge(outR, inW, engine.BridgeConfig{
		Logger:        zerolog.Nop(),
		WriteInterval: time.Millisecond,
	})
	go f.serve()

	t.Cleanup(func() {
		f.bridge.Close(context.Background())
		inR.Close()
		outW.Close()
	})
	return f
}

func (f *Engine) serve() {
	sc := bufio.NewScanner(f.in)
	for sc.Scan() {
		cmd := sc.Text()
		f.mu.Lock()
		f.received = append(f.received, cmd)
		f.mu.Unlock()

		switch {
		case cmd == "uci":
			f.Emit("id name Fake", "uciok")
		case cmd == "isready":
			if !f.ignoreReady.Load() {
				f.Emit("readyok")
			}
		case cmd == "go" || strings.HasPrefix(cmd, "go "):
			f.mu.Lock()
			var lines []string
			if f.goCount < len(f.searches) {
				lines = f.searches[f.goCount]
			}
			f.goCount++
			f.mu.Unlock()
			f.Emit(lines...)
		case cmd == "quit":
			f.out.Close()
			return
		}
	}
}

// Emit writes lines to the engine's output.
func (f *Engine) Emit(lines ...string) {
	for _, line := range lines {
		if _, err := io.WriteString(f.out, line+"\n"); err != nil {
			return
		}
	}
}

// Crash closes the engine's output as if the process died.
func (f *Engine) Crash() {
	f.out.Close()
}

// IgnoreReady makes the engine stop answering isready.
func (f *Engine) IgnoreReady(ignore bool) {
	f.ignoreReady.Store(ignore)
}

// Commands returns every command received so far.
func (f *Engine) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func (f *Engine) SawCommand(cmd string) bool {
	for _, c := range f.Commands() {
		if c == cmd {
			return true
		}
	}
	return false
}

func (f *Engine) Launcher() engine.Launcher {
	return func() (engine.Transport, error) {
		return f.bridge, nil
	}
}

// LaunchSequence hands out the given engines one launch at a time.
func LaunchSequence(engines ...*Engine) engine.Launcher {
	var n int
	return func() (engine.Transport, error) {
		f := engines[n]
		n++
		return f.bridge, nil
	}
}

// Supervisor returns a supervisor connected to f.
func Supervisor(t testing.TB, f *Engine, cfg engine.Config) *engine.Supervisor {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 2 * time.Second
	}
	sup, err := engine.NewSupervisor(context.Background(), f.Launcher(), cfg)
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	return sup
}
