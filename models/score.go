package models

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ScoreKind tells a material score apart from a forced mate.
type ScoreKind int

const (
	Material ScoreKind = iota
	ForcedMate
)

// MateMetric is the centipawn value a forced mate collapses to in Metric.
const MateMetric = 10000

// Score is an engine evaluation. Material scores are in centipawns, mate
// scores count moves to mate. The sign says which side is favored.
type Score struct {
	Kind  ScoreKind
	Value int
}

// Centipawns returns a material advantage score.
func Centipawns(n int) Score {
	return Score{Kind: Material, Value: n}
}

// MateIn returns a forced mate score.
func MateIn(n int) Score {
	return Score{Kind: ForcedMate, Value: n}
}

func (s Score) IsMate() bool     { return s.Kind == ForcedMate }
func (s Score) IsMaterial() bool { return s.Kind == Material }

// Metric flattens the score to centipawns, mapping mates to +/-MateMetric.
func (s Score) Metric() int {
	if s.IsMaterial() {
		return s.Value
	}
	if s.Value > 0 {
		return MateMetric
	}
	return -MateMetric
}

// Absolute converts a score reported relative to the side to move into
// the white-positive frame.
func (s Score) Absolute(whiteToMove bool) Score {
	if !whiteToMove {
		s.Value = -s.Value
	}
	return s
}

// String formats the score as "+0.16", "-1.05" or "#3", "#-2".
func (s Score) String() string {
	if s.IsMate() {
		return "#" + strconv.Itoa(s.Value)
	}
	cp := s.Value
	sign := "+"
	if cp < 0 {
		sign = "-"
		cp = -cp
	}
	frac := cp % 100
	if frac < 10 {
		return sign + strconv.Itoa(cp/100) + ".0" + strconv.Itoa(frac)
	}
	return sign + strconv.Itoa(cp/100) + "." + strconv.Itoa(frac)
}

type scoreJSON struct {
	CP   *int `json:"cp,omitempty"`
	Mate *int `json:"mate,omitempty"`
}

func (s Score) MarshalJSON() ([]byte, error) {
	v := s.Value
	if s.IsMate() {
		return json.Marshal(scoreJSON{Mate: &v})
	}
	return json.Marshal(scoreJSON{CP: &v})
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var raw scoreJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Mate != nil:
		*s = MateIn(*raw.Mate)
	case raw.CP != nil:
		*s = Centipawns(*raw.CP)
	default:
		return errors.New("score: neither cp nor mate set")
	}
	return nil
}
