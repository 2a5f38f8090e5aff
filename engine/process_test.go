package engine

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartProcess_MissingBinary(t *testing.T) {
	_, err := StartProcess(ProcessConfig{Path: "/nonexistent/stockfish", Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestProcess_EchoAndKill(t *testing.T) {
	cat, err := exec.LookPath("cat")
	if err != nil {
		t.Skip("cat not available")
	}

	p, err := StartProcess(ProcessConfig{Path: cat, Logger: zerolog.Nop()})
	require.NoError(t, err)

	p.Send("readyok")
	require.Eventually(t, func() bool {
		line, ok := p.TryReceive()
		return ok && line == "readyok"
	}, 2*time.Second, 5*time.Millisecond)

	// cat ignores quit, so Close has to kill it
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Close(ctx))

	select {
	case <-p.exited:
	default:
		t.Fatal("process was not reaped")
	}
	assert.Error(t, p.Err())
}
