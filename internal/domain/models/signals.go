package models

import "time"

// AggregateSignals is the consolidated view of one asset across intervals.
// Note: no transport (json/http) concerns here.
type AggregateSignals struct {
	Symbol      string
	Timestamp   time.Time
	Predictions map[Interval]*Prediction
	Errors      map[Interval]string
}
