package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacokyle01/live-analysis/engine"
	"github.com/jacokyle01/live-analysis/engine/enginetest"
	"github.com/jacokyle01/live-analysis/models"
	"github.com/jacokyle01/live-analysis/server"
	"github.com/jacokyle01/live-analysis/service"
)

const (
	startFEN     = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	foolsMateFEN = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
)

func newTestClient(t *testing.T, searches ...[]string) (*Client, *enginetest.Engine) {
	t.Helper()
	f := enginetest.New(t, searches...)
	svc := service.New(enginetest.Supervisor(t, f, engine.Config{}), zerolog.Nop())
	ts := httptest.NewServer(server.NewServer(svc, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/", zerolog.Nop()), f
}

func TestClient_StartAndPoll(t *testing.T) {
	c, _ := newTestClient(t, []string{
		"info depth 7 multipv 1 score cp -12 nodes 500 pv d2d4",
	})
	ctx := context.Background()

	ev, err := c.Evaluation(ctx)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.Code)
	assert.Nil(t, ev)

	cycle, err := c.StartEvaluation(ctx, startFEN)
	require.NoError(t, err)
	assert.NotEmpty(t, cycle)

	require.Eventually(t, func() bool {
		ev, err = c.Evaluation(ctx)
		return err == nil && ev != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 7, ev.Depth)
	best, ok := ev.BestMove()
	assert.True(t, ok)
	assert.Equal(t, "d2d4", best)

	require.NoError(t, c.StopEvaluation(ctx))
}

func TestClient_NothingYet(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.StartEvaluation(ctx, startFEN)
	require.NoError(t, err)

	ev, err := c.Evaluation(ctx)
	assert.NoError(t, err)
	assert.Nil(t, ev)
}

func TestClient_InvalidPosition(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.StartEvaluation(context.Background(), "8/8/8/8/8/8/8/8 w - - 0 1")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

func TestClient_WatchUntilDepth(t *testing.T) {
	c, f := newTestClient(t, []string{
		"info depth 5 multipv 1 score cp 20 nodes 100 pv e2e4",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		f.Emit("info depth 9 multipv 1 score cp 35 nodes 900 pv e2e4 e7e5")
	}()

	var depths []int
	err := c.Watch(ctx, startFEN, 5*time.Millisecond, func(ev *models.Evaluation) bool {
		depths = append(depths, ev.Depth)
		return ev.Depth < 9
	})
	require.NoError(t, err)
	require.NotEmpty(t, depths)
	assert.Equal(t, 9, depths[len(depths)-1])
	assert.IsNonDecreasing(t, depths)

	require.Eventually(t, func() bool {
		return f.SawCommand("stop")
	}, time.Second, 5*time.Millisecond)
}

func TestClient_WatchFinishedGame(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got *models.Evaluation
	err := c.Watch(ctx, foolsMateFEN, 5*time.Millisecond, func(ev *models.Evaluation) bool {
		got = ev
		return true
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, models.BlackWins, *got.Outcome)
	assert.Empty(t, got.Continuations)
}

func TestClient_WatchCancelled(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Watch(ctx, startFEN, 5*time.Millisecond, func(*models.Evaluation) bool { return true })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
