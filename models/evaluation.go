package models

import (
	"fmt"
)

// GameOutcome is the result of a finished game.
type GameOutcome int

const (
	WhiteWins GameOutcome = iota + 1
	BlackWins
	Draw
)

func (o GameOutcome) String() string {
	switch o {
	case WhiteWins:
		return "white_wins"
	case BlackWins:
		return "black_wins"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

func (o GameOutcome) MarshalText() ([]byte, error) {
	switch o {
	case WhiteWins, BlackWins, Draw:
		return []byte(o.String()), nil
	}
	return nil, fmt.Errorf("invalid game outcome %d", int(o))
}

func (o *GameOutcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "white_wins":
		*o = WhiteWins
	case "black_wins":
		*o = BlackWins
	case "draw":
		*o = Draw
	default:
		return fmt.Errorf("invalid game outcome %q", text)
	}
	return nil
}

// Continuation is one ranked line of play. Score is white-positive.
type Continuation struct {
	Rank  int      `json:"rank"`
	Moves []string `json:"moves"`
	Score Score    `json:"score"`
}

// Evaluation is the current best analysis of a position.
// When Outcome is set the game is over and there is nothing else to report.
type Evaluation struct {
	Depth         int            `json:"depth"`
	Nodes         int64          `json:"nodes"`
	Continuations []Continuation `json:"continuations"`
	Outcome       *GameOutcome   `json:"outcome,omitempty"`
}

// Finished returns an evaluation carrying only a game outcome.
func Finished(outcome GameOutcome) *Evaluation {
	return &Evaluation{
		Continuations: []Continuation{},
		Outcome:       &outcome,
	}
}

// BestMove returns the first move of the best continuation, if any.
func (e *Evaluation) BestMove() (string, bool) {
	if len(e.Continuations) == 0 || len(e.Continuations[0].Moves) == 0 {
		return "", false
	}
	return e.Continuations[0].Moves[0], true
}
