package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacokyle01/live-analysis/engine"
	"github.com/jacokyle01/live-analysis/engine/enginetest"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func newTestService(t *testing.T, searches ...[]string) (*Service, *enginetest.Engine) {
	t.Helper()
	f := enginetest.New(t, searches...)
	return New(enginetest.Supervisor(t, f, engine.Config{}), zerolog.Nop()), f
}

func TestService_Contract(t *testing.T) {
	svc, _ := newTestService(t, []string{
		"info depth 9 multipv 1 score cp 25 nodes 4000 pv e2e4 e7e5",
	})
	ctx := context.Background()

	_, ok, err := svc.GetEvaluation(ctx)
	assert.ErrorIs(t, err, engine.ErrNotEvaluating)
	assert.False(t, ok)

	cycle, err := svc.StartEvaluation(ctx, startFEN)
	require.NoError(t, err)
	assert.Equal(t, Status{State: "busy", Cycle: cycle, FEN: startFEN}, svc.Status())

	require.Eventually(t, func() bool {
		ev, ok, err := svc.GetEvaluation(ctx)
		return err == nil && ok && ev.Depth == 9
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, svc.StopEvaluation(ctx))
	assert.Equal(t, Status{State: "idle"}, svc.Status())
}

func TestService_NothingYet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.StartEvaluation(ctx, startFEN)
	require.NoError(t, err)

	ev, ok, err := svc.GetEvaluation(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, ev.Depth)
}

func TestService_SetThreads(t *testing.T) {
	svc, f := newTestService(t)

	n, err := svc.SetThreads(3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.SetThreads(0)
	require.NoError(t, err)
	assert.Positive(t, n)

	require.NoError(t, svc.StopEvaluation(context.Background()))
	assert.True(t, f.SawCommand("setoption name Threads value 3"))
}

func TestService_SerializesCallers(t *testing.T) {
	svc, _ := newTestService(t, []string{"info depth 4 score cp 1 nodes 10 pv e2e4"})
	ctx := context.Background()

	_, err := svc.StartEvaluation(ctx, startFEN)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, _, err := svc.GetEvaluation(ctx)
				assert.NoError(t, err)
				_ = svc.Status()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "busy", svc.Status().State)
}
