package features

import (
	"math"

	"github.com/markcheno/go-talib"

	"PriceSignal/internal/domain/models"
)

const (
	RSIPeriod  = 14
	EMAPeriod  = 20
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// First index at which each indicator is reported. Earlier rows are NaN.
const (
	RSIWarmup  = RSIPeriod                 // 14
	EMAWarmup  = EMAPeriod - 1             // 19, SMA seeded
	MACDWarmup = MACDSlow + MACDSignal - 1 // 34

	// MACDLineWarmup is where the MACD main line exists on its own, before
	// the signal line is warmed up. Only the inference path reports it.
	MACDLineWarmup = MACDSlow - 1 // 25
)

// MinDefinedLength is the shortest series that yields a complete FeatureRow.
const MinDefinedLength = MACDWarmup + 1

// Compute derives RSI(14), EMA(20) and the MACD(12,26,9) main line for a
// chronologically sorted series. The output has the same length as obs.
func Compute(obs []models.Observation) []models.FeatureRow {
	n := len(obs)
	rows := make([]models.FeatureRow, n)
	if n == 0 {
		return rows
	}

	closes := make([]float64, n)
	for i, o := range obs {
		closes[i] = o.Close
		rows[i] = models.FeatureRow{
			Timestamp: o.Timestamp,
			Close:     o.Close,
			Volume:    o.Volume,
			RSI:       math.NaN(),
			EMA:       math.NaN(),
			MACD:      math.NaN(),
		}
	}

	// talib indexes past the end on short input, so each call is gated on length.
	if n > RSIWarmup {
		rsi := talib.Rsi(closes, RSIPeriod)
		for i := RSIWarmup; i < n; i++ {
			rows[i].RSI = rsi[i]
		}
	}
	if n > EMAWarmup {
		ema := talib.Ema(closes, EMAPeriod)
		for i := EMAWarmup; i < n; i++ {
			rows[i].EMA = ema[i]
		}
	}
	if n > MACDWarmup {
		macd, _, _ := talib.Macd(closes, MACDFast, MACDSlow, MACDSignal)
		for i := MACDWarmup; i < n; i++ {
			rows[i].MACD = macd[i]
		}
	}
	return rows
}

// ComputeInference is Compute with the MACD main line reported from the
// slow EMA warm-up onward instead of after the signal line warm-up. Short
// payloads then keep a usable MACD column for the fill step. Rows from
// MACDWarmup onward are identical to Compute.
func ComputeInference(obs []models.Observation) []models.FeatureRow {
	rows := Compute(obs)
	n := len(obs)
	if n <= MACDLineWarmup {
		return rows
	}
	closes := make([]float64, n)
	for i, o := range obs {
		closes[i] = o.Close
	}
	fast := talib.Ema(closes, MACDFast)
	slow := talib.Ema(closes, MACDSlow)
	for i := MACDLineWarmup; i < n && i < MACDWarmup; i++ {
		rows[i].MACD = fast[i] - slow[i]
	}
	return rows
}
