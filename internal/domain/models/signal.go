package models

import (
	"fmt"
	"strings"
	"time"
)

// Signal is the directional class predicted over the horizon.
type Signal int

const (
	SignalDown   Signal = 0
	SignalStable Signal = 1
	SignalUp     Signal = 2
)

// NumClasses is the size of the classifier output.
const NumClasses = 3

func (s Signal) String() string {
	switch s {
	case SignalDown:
		return "down"
	case SignalStable:
		return "stable"
	case SignalUp:
		return "up"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Valid reports whether s is one of the three classes.
func (s Signal) Valid() bool {
	return s >= SignalDown && s <= SignalUp
}

// Prediction is the result of one inference run.
type Prediction struct {
	Symbol        string
	Interval      Interval
	Signal        Signal
	Probabilities [NumClasses]float64
	ArtifactID    string
	Volatility    float64 // realized volatility nowcast, annualised
	LastClose     float64
	Timestamp     time.Time // timestamp of the most recent observation used
	GeneratedAt   time.Time
}

// Token is one entry of the remote token catalog.
type Token struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Slug is the path segment the price API uses for the token.
func (t Token) Slug() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t.Name)), " ", "-")
}
