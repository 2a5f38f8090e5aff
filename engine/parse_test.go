package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacokyle01/live-analysis/models"
)

func TestParseInfo(t *testing.T) {
	rec, ok := ParseInfo("info depth 7 multipv 1 score cp 16 nodes 560 pv d2d4 g8f6 c2c4")
	require.True(t, ok)
	assert.Equal(t, models.InfoRecord{
		Depth:        7,
		Rank:         1,
		Score:        models.Centipawns(16),
		Nodes:        560,
		Continuation: []string{"d2d4", "g8f6", "c2c4"},
	}, rec)
}

func TestParseInfo_FullStockfishLine(t *testing.T) {
	line := "info depth 24 seldepth 33 multipv 3 score mate -4 upperbound nodes 1843201 nps 921600 hashfull 301 tbhits 0 time 2000 pv e7e5 g1f3"
	rec, ok := ParseInfo(line)
	require.True(t, ok)
	assert.Equal(t, 24, rec.Depth)
	assert.Equal(t, 3, rec.Rank)
	assert.Equal(t, models.MateIn(-4), rec.Score)
	assert.Equal(t, int64(1843201), rec.Nodes)
	assert.Equal(t, []string{"e7e5", "g1f3"}, rec.Continuation)
}

func TestParseInfo_TokenOrder(t *testing.T) {
	a, ok := ParseInfo("info score cp -35 nodes 10 multipv 2 depth 3 pv c7c5")
	require.True(t, ok)
	b, ok := ParseInfo("info depth 3 multipv 2 nodes 10 score cp -35 pv c7c5")
	require.True(t, ok)
	assert.Equal(t, a, b)
}

func TestParseInfo_Defaults(t *testing.T) {
	rec, ok := ParseInfo("info score cp 5")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Rank)
	assert.Zero(t, rec.Depth)
	assert.Empty(t, rec.Continuation)
}

func TestParseInfo_Rejects(t *testing.T) {
	for _, line := range []string{
		"",
		"readyok",
		"bestmove e2e4 ponder e7e5",
		"info depth 7 multipv 1 nodes 560 pv d2d4",
		"info depth seven score cp 16",
		"info depth -1 score cp 16",
		"info depth 7 multipv 0 score cp 16",
		"info depth 7 multipv 257 score cp 16 pv e2e4",
		"info depth 3 multipv 5000000 score cp 1 nodes 1 pv e2e4",
		"info depth 3 multipv 9223372036854775807 score cp 1 pv e2e4",
		"info depth 7 score cp",
		"info depth 7 score wdl 500 300 200",
		"info depth 7 score cp 1.5",
		"info depth 7 score cp 16 nodes many",
		"info depth 7 score cp 16 nodes -5",
		"info depth",
		"info string depth 3 score cp 20",
	} {
		_, ok := ParseInfo(line)
		assert.False(t, ok, line)
	}
}

func TestParseInfo_HighestRank(t *testing.T) {
	rec, ok := ParseInfo("info depth 4 multipv 256 score cp 3 pv a2a3")
	require.True(t, ok)
	assert.Equal(t, MaxRank, rec.Rank)
}
