// Package scaler holds the min-max feature scaler fit on training data.
//
// A *MinMax only comes into existence through Fit; the nil value is the
// unfit state and every method on it reports models.ErrNotFitted.
package scaler

import (
	"encoding/json"
	"fmt"
	"math"

	"PriceSignal/internal/domain/models"
)

// MinMax maps each feature column to (x - min) / (max - min). It is
// immutable after Fit and safe for concurrent use.
type MinMax struct {
	min   []float64
	max   []float64
	scale []float64
}

// Fit computes per-column bounds over every row of matrix.
func Fit(matrix [][]float64) (*MinMax, error) {
	if len(matrix) == 0 {
		return nil, &models.InsufficientDataError{Stage: "scaler fit", Have: 0, Need: 1}
	}
	cols := len(matrix[0])
	if cols == 0 {
		return nil, &models.ShapeMismatchError{What: "scaler fit", WantRows: len(matrix), WantCols: models.NumFeatures, GotRows: len(matrix)}
	}
	lo := make([]float64, cols)
	hi := make([]float64, cols)
	for j := 0; j < cols; j++ {
		lo[j] = math.Inf(1)
		hi[j] = math.Inf(-1)
	}
	for i, row := range matrix {
		if len(row) != cols {
			return nil, &models.ShapeMismatchError{What: "scaler fit", WantRows: len(matrix), WantCols: cols, GotRows: i, GotCols: len(row)}
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &models.MalformedInputError{Field: "matrix", Index: i, Reason: "non-finite value"}
			}
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}
	return newMinMax(lo, hi)
}

func newMinMax(lo, hi []float64) (*MinMax, error) {
	if len(lo) != len(hi) || len(lo) == 0 {
		return nil, fmt.Errorf("scaler bounds: %d mins, %d maxs: %w", len(lo), len(hi), models.ErrMalformedInput)
	}
	scale := make([]float64, len(lo))
	for j := range lo {
		if hi[j] < lo[j] {
			return nil, fmt.Errorf("scaler bounds: column %d min > max: %w", j, models.ErrMalformedInput)
		}
		// constant columns map to x - min
		r := hi[j] - lo[j]
		if r == 0 {
			r = 1
		}
		scale[j] = r
	}
	return &MinMax{min: lo, max: hi, scale: scale}, nil
}

// Features returns the number of columns the scaler was fit on.
func (s *MinMax) Features() int {
	if s == nil {
		return 0
	}
	return len(s.min)
}

// Bounds returns copies of the per-column minimum and maximum.
func (s *MinMax) Bounds() (lo, hi []float64) {
	if s == nil {
		return nil, nil
	}
	return append([]float64(nil), s.min...), append([]float64(nil), s.max...)
}

// Transform scales rows into a new matrix. Values outside the fitted range
// are not clamped.
func (s *MinMax) Transform(rows [][]float64) ([][]float64, error) {
	return s.apply(rows, func(j int, v float64) float64 {
		return (v - s.min[j]) / s.scale[j]
	})
}

// InverseTransform maps scaled rows back to the original units.
func (s *MinMax) InverseTransform(rows [][]float64) ([][]float64, error) {
	return s.apply(rows, func(j int, v float64) float64 {
		return v*s.scale[j] + s.min[j]
	})
}

func (s *MinMax) apply(rows [][]float64, f func(j int, v float64) float64) ([][]float64, error) {
	if s == nil {
		return nil, &models.NotFittedError{Component: "scaler"}
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.min) {
			return nil, &models.ShapeMismatchError{What: "scaler", WantRows: len(rows), WantCols: len(s.min), GotRows: len(rows), GotCols: len(row)}
		}
		dst := make([]float64, len(row))
		for j, v := range row {
			dst[j] = f(j, v)
		}
		out[i] = dst
	}
	return out, nil
}

type snapshot struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

func (s *MinMax) MarshalJSON() ([]byte, error) {
	if s == nil {
		return nil, &models.NotFittedError{Component: "scaler"}
	}
	return json.Marshal(snapshot{Min: s.min, Max: s.max})
}

// Decode restores a scaler from its MarshalJSON form.
func Decode(b []byte) (*MinMax, error) {
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	return newMinMax(snap.Min, snap.Max)
}
