// Package mood models the sentiment series shown next to a chat session or a
// journal: points in [0, 1] over time and the coarse label for the latest one.
package mood

import (
	"fmt"
	"math"
	"time"
)

const (
	// Baseline is the sentiment of an empty series.
	Baseline = 0.5

	// StartLabel marks the baseline point a session begins with.
	StartLabel = "Start"

	positiveThreshold = 0.7
	neutralThreshold  = 0.4
)

// Label buckets a sentiment score.
type Label string

const (
	LabelPositive Label = "Positive"
	LabelNeutral  Label = "Neutral"
	LabelLow      Label = "Low"
)

// LabelFor returns the label of score: Positive from 0.7, Neutral from 0.4,
// Low below.
func LabelFor(score float64) Label {
	switch {
	case score >= positiveThreshold:
		return LabelPositive
	case score >= neutralThreshold:
		return LabelNeutral
	default:
		return LabelLow
	}
}

// Point is a single sentiment sample.
type Point struct {
	// Label is the display tick, "Start" for a session baseline and a clock
	// time otherwise.
	Label     string    `json:"label"`
	Time      time.Time `json:"time"`
	Sentiment float64   `json:"sentiment"`
}

// NewPoint returns a point at t labelled with its clock time.
func NewPoint(t time.Time, sentiment float64) Point {
	return Point{
		Label:     t.Format("15:04"),
		Time:      t,
		Sentiment: sentiment,
	}
}

// BaselinePoint returns the neutral point a session starts from.
func BaselinePoint(t time.Time) Point {
	return Point{Label: StartLabel, Time: t, Sentiment: Baseline}
}

// Validate checks that a sentiment score lies in [0, 1].
func Validate(score float64) error {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return fmt.Errorf("sentiment %v out of range [0, 1]", score)
	}
	return nil
}

// Series is an ordered list of points, oldest first.
type Series []Point

// Latest returns the most recent sentiment, or Baseline for an empty series.
func (s Series) Latest() float64 {
	if len(s) == 0 {
		return Baseline
	}
	return s[len(s)-1].Sentiment
}

// Summary describes a series.
type Summary struct {
	Latest float64 `json:"latest"`
	Label  Label   `json:"label"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Points int     `json:"points"`
}

// Summary computes the summary of s. An empty series summarizes to the
// baseline.
func (s Series) Summary() Summary {
	latest := s.Latest()
	sum := Summary{
		Latest: latest,
		Label:  LabelFor(latest),
		Min:    Baseline,
		Max:    Baseline,
		Mean:   Baseline,
		Points: len(s),
	}
	if len(s) == 0 {
		return sum
	}

	sum.Min, sum.Max = s[0].Sentiment, s[0].Sentiment
	total := 0.0
	for _, p := range s {
		sum.Min = min(sum.Min, p.Sentiment)
		sum.Max = max(sum.Max, p.Sentiment)
		total += p.Sentiment
	}
	sum.Mean = total / float64(len(s))
	return sum
}
