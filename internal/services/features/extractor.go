package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"PriceSignal/internal/domain/models"
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(obs)-1, or nil if insufficient data.
func ComputeLogReturns(obs []models.Observation) []float64 {
	if len(obs) < 2 {
		return nil
	}
	out := make([]float64, 0, len(obs)-1)
	for i := 1; i < len(obs); i++ {
		prev := obs[i-1].Close
		cur := obs[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns using the provided number of bars per year.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	variance := stat.Variance(logReturns[len(logReturns)-window:], nil)
	if variance < 0 || math.IsNaN(variance) {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns the approximate number of bars per year for an interval.
func BarsPerYear(iv models.Interval) float64 {
	switch iv {
	case models.IntervalHour:
		return 365 * 24
	case models.IntervalDay:
		return 365
	case models.IntervalWeek:
		return 52
	case models.IntervalMonth:
		return 12
	case models.IntervalYear:
		return 1
	default:
		return 365
	}
}

// Nowcast is the realized volatility of the series over its last window bars.
func Nowcast(obs []models.Observation, window int, iv models.Interval) float64 {
	r := ComputeLogReturns(obs)
	if len(r) < window {
		window = len(r)
	}
	return RealizedVolatility(r, window, BarsPerYear(iv))
}
