package models

// InfoRecord is one parsed `info` line of engine output.
// Score is relative to the side to move.
type InfoRecord struct {
	Depth        int
	Rank         int // multipv, 1 = best line
	Score        Score
	Nodes        int64
	Continuation []string
}
