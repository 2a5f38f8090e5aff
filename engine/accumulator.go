package engine

import (
	"slices"

	"github.com/jacokyle01/live-analysis/models"
)

// Accumulator collects the info records of one search and reduces them to
// the ranked lines at the deepest depth reached.
type Accumulator struct {
	records []models.InfoRecord
}

// Add keeps rec. A missing rank counts as the best line.
func (a *Accumulator) Add(rec models.InfoRecord) {
	if rec.Rank < 1 {
		rec.Rank = 1
	}
	a.records = append(a.records, rec)
}

// ProcessLines parses and keeps every analysis line, returning how many
// were kept.
func (a *Accumulator) ProcessLines(lines []string) int {
	n := 0
	for _, line := range lines {
		if rec, ok := ParseInfo(line); ok {
			a.Add(rec)
			n++
		}
	}
	return n
}

func (a *Accumulator) Clear() {
	a.records = a.records[:0]
}

func (a *Accumulator) Len() int {
	return len(a.records)
}

// Derive builds an evaluation from the records at the deepest depth seen.
// Within that depth the latest record for a rank replaces earlier ones.
// Ranks the engine skipped leave no entry; the remaining lines stay in
// rank order. Scores are turned white-positive using whiteToMove.
func (a *Accumulator) Derive(whiteToMove bool, outcome *models.GameOutcome) (*models.Evaluation, bool) {
	if len(a.records) == 0 {
		return nil, false
	}

	depth := -1
	var nodes int64
	for _, rec := range a.records {
		if rec.Depth >= depth {
			depth = rec.Depth
			nodes = rec.Nodes
		}
	}

	byRank := map[int]models.Continuation{}
	for _, rec := range a.records {
		if rec.Depth != depth {
			continue
		}
		byRank[rec.Rank] = models.Continuation{
			Rank:  rec.Rank,
			Moves: append([]string{}, rec.Continuation...),
			Score: rec.Score.Absolute(whiteToMove),
		}
	}

	ranks := make([]int, 0, len(byRank))
	for r := range byRank {
		ranks = append(ranks, r)
	}
	slices.Sort(ranks)

	continuations := make([]models.Continuation, 0, len(ranks))
	for _, r := range ranks {
		continuations = append(continuations, byRank[r])
	}

	return &models.Evaluation{
		Depth:         depth,
		Nodes:         nodes,
		Continuations: continuations,
		Outcome:       outcome,
	}, true
}
