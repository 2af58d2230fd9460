// Package sequence turns feature rows into labeled training windows and
// inference windows of a fixed length.
package sequence

import (
	"math"

	"PriceSignal/internal/domain/models"
	"PriceSignal/internal/services/scaler"
)

// Config fixes window geometry and the label dead zone.
type Config struct {
	Length    int     // L, rows per window
	Horizon   int     // H, steps ahead the label looks
	Threshold float64 // dead zone half-width around zero price change
}

func DefaultConfig() Config {
	return Config{Length: 30, Horizon: 5, Threshold: 0.5}
}

// MinRows is the smallest cleaned series that yields one training window.
func (c Config) MinRows() int { return c.Length + c.Horizon }

// TrainingSet pairs each window with the class of its forward price change.
type TrainingSet struct {
	Windows []models.Window
	Labels  []models.Signal
	Rows    int // cleaned rows the set was built from
}

// Len returns the number of samples.
func (t *TrainingSet) Len() int { return len(t.Windows) }

// Clean drops rows with any undefined field, keeping order.
func Clean(rows []models.FeatureRow) []models.FeatureRow {
	out := make([]models.FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.Complete() {
			out = append(out, r)
		}
	}
	return out
}

// Label classifies a price change with strict comparisons against the
// threshold: exactly +/-threshold is Stable.
func Label(change, threshold float64) models.Signal {
	switch {
	case change > threshold:
		return models.SignalUp
	case change < -threshold:
		return models.SignalDown
	default:
		return models.SignalStable
	}
}

// LabelRows attaches close[t+h] - close[t] and its class to every row that
// has a row h steps ahead. The last h rows are not returned.
func LabelRows(rows []models.FeatureRow, horizon int, threshold float64) []models.LabeledRow {
	if horizon < 0 || len(rows) <= horizon {
		return nil
	}
	out := make([]models.LabeledRow, len(rows)-horizon)
	for i := range out {
		change := rows[i+horizon].Close - rows[i].Close
		out[i] = models.LabeledRow{
			FeatureRow:  rows[i],
			PriceChange: change,
			Label:       Label(change, threshold),
		}
	}
	return out
}

// Matrix lays rows out in the fixed feature column order.
func Matrix(rows []models.FeatureRow) [][]float64 {
	m := make([][]float64, len(rows))
	for i, r := range rows {
		m[i] = r.Values()
	}
	return m
}

// BuildTraining scales cleaned rows and slides a window of cfg.Length over
// them. The window starting at s covers rows s..s+L-1 and is labeled with
// the change from row s+L-1 to row s+L+H-1, so N rows give N-L-H+1 samples.
func BuildTraining(rows []models.FeatureRow, s *scaler.MinMax, cfg Config) (*TrainingSet, error) {
	n := len(rows)
	if n < cfg.MinRows() {
		return nil, &models.InsufficientDataError{Stage: "training windows", Have: n, Need: cfg.MinRows()}
	}
	for i, r := range rows {
		if !r.Complete() {
			return nil, &models.MalformedInputError{Field: "rows", Index: i, Reason: "undefined feature in cleaned row"}
		}
	}
	scaled, err := s.Transform(Matrix(rows))
	if err != nil {
		return nil, err
	}
	labeled := LabelRows(rows, cfg.Horizon, cfg.Threshold)

	count := n - cfg.Length - cfg.Horizon + 1
	set := &TrainingSet{
		Windows: make([]models.Window, 0, count),
		Labels:  make([]models.Signal, 0, count),
		Rows:    n,
	}
	for start := 0; start < count; start++ {
		last := start + cfg.Length - 1
		set.Windows = append(set.Windows, models.Window{Values: scaled[start : start+cfg.Length]})
		set.Labels = append(set.Labels, labeled[last].Label)
	}
	return set, nil
}

// BuildInference takes the most recent length rows of an uncleaned feature
// series, fills indicator gaps forward then backward, and scales the result.
func BuildInference(rows []models.FeatureRow, s *scaler.MinMax, length int) (models.Window, error) {
	if len(rows) < length {
		return models.Window{}, &models.InsufficientDataError{Stage: "inference window", Have: len(rows), Need: length}
	}
	m := Matrix(rows[len(rows)-length:])
	for j := 0; j < models.NumFeatures; j++ {
		if defined := countDefined(m, j); defined == 0 {
			return models.Window{}, &models.InsufficientDataError{
				Stage: "inference fill (" + models.FeatureNames[j] + ")",
				Have:  defined,
				Need:  1,
			}
		}
	}
	FillForward(m)
	FillBackward(m)
	scaled, err := s.Transform(m)
	if err != nil {
		return models.Window{}, err
	}
	return models.Window{Values: scaled}, nil
}

func countDefined(m [][]float64, col int) int {
	n := 0
	for _, row := range m {
		if !math.IsNaN(row[col]) {
			n++
		}
	}
	return n
}
