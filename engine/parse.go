package engine

import (
	"strconv"
	"strings"

	"github.com/jacokyle01/live-analysis/models"
)

// MaxRank is the highest multipv an info line may carry. UCI engines cap
// MultiPV well below it.
const MaxRank = 256

// ParseInfo parses one line of engine output of the form
//
//	info depth 7 seldepth 9 multipv 1 score cp 16 nodes 560 nps 186666 time 3 pv d2d4 g8f6 c2c4
//
// Tokens may come in any order and unknown tokens are skipped. The result is
// false for lines without a score and for lines whose values do not parse.
func ParseInfo(line string) (models.InfoRecord, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return models.InfoRecord{}, false
	}

	rec := models.InfoRecord{Rank: 1}
	scored := false

	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			v, ok := intField(fields, i+1, 0)
			if !ok {
				return models.InfoRecord{}, false
			}
			rec.Depth = v
			i++
		case "multipv":
			v, ok := intField(fields, i+1, 1)
			if !ok || v > MaxRank {
				return models.InfoRecord{}, false
			}
			rec.Rank = v
			i++
		case "nodes":
			if i+1 >= len(fields) {
				return models.InfoRecord{}, false
			}
			v, err := strconv.ParseInt(fields[i+1], 10, 64)
			if err != nil || v < 0 {
				return models.InfoRecord{}, false
			}
			rec.Nodes = v
			i++
		case "score":
			if i+2 >= len(fields) {
				return models.InfoRecord{}, false
			}
			v, err := strconv.Atoi(fields[i+2])
			if err != nil {
				return models.InfoRecord{}, false
			}
			switch fields[i+1] {
			case "cp":
				rec.Score = models.Centipawns(v)
			case "mate":
				rec.Score = models.MateIn(v)
			default:
				return models.InfoRecord{}, false
			}
			scored = true
			i += 2
		case "pv":
			rec.Continuation = append([]string{}, fields[i+1:]...)
			i = len(fields)
		case "string":
			// free text to end of line
			i = len(fields)
		}
	}

	if !scored {
		return models.InfoRecord{}, false
	}
	return rec, true
}

func intField(fields []string, i, min int) (int, bool) {
	if i >= len(fields) {
		return 0, false
	}
	v, err := strconv.Atoi(fields[i])
	if err != nil || v < min {
		return 0, false
	}
	return v, true
}
