package models

import (
	"math"
	"time"
)

// Observation is one raw (timestamp, close, volume) sample of an asset.
type Observation struct {
	Timestamp time.Time
	Close     float64
	Volume    float64
}

// NumFeatures is the width of every feature matrix row.
const NumFeatures = 5

// FeatureNames lists matrix columns in their fixed order.
var FeatureNames = [NumFeatures]string{"close", "volume", "rsi", "ema", "macd"}

// FeatureRow is an Observation extended with technical indicators.
// Indicator fields are NaN until their warm-up window has elapsed.
type FeatureRow struct {
	Timestamp time.Time
	Close     float64
	Volume    float64
	RSI       float64
	EMA       float64
	MACD      float64
}

// Values returns the row in matrix column order.
func (r FeatureRow) Values() []float64 {
	return []float64{r.Close, r.Volume, r.RSI, r.EMA, r.MACD}
}

// Complete reports whether every field is defined.
func (r FeatureRow) Complete() bool {
	for _, v := range r.Values() {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// LabeledRow is a training row with its forward price change and class.
type LabeledRow struct {
	FeatureRow
	PriceChange float64
	Label       Signal
}

// Window is a fixed-length sequence of scaled feature vectors, oldest first.
type Window struct {
	Values [][]float64
}

// Rows and Cols report the window shape.
func (w Window) Rows() int { return len(w.Values) }

func (w Window) Cols() int {
	if len(w.Values) == 0 {
		return 0
	}
	return len(w.Values[0])
}
