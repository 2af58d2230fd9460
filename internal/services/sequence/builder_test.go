package sequence

import (
	"errors"
	"math"
	"testing"
	"time"

	"PriceSignal/internal/domain/models"
	"PriceSignal/internal/services/scaler"
)

// completeRows builds n fully defined rows with closes start, start+step, ...
func completeRows(n int, start, step float64) []models.FeatureRow {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.FeatureRow, n)
	for i := range rows {
		c := start + step*float64(i)
		rows[i] = models.FeatureRow{
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Close:     c,
			Volume:    500,
			RSI:       50 + float64(i%7),
			EMA:       c - 1,
			MACD:      0.1 * float64(i%3),
		}
	}
	return rows
}

func fitRows(t *testing.T, rows []models.FeatureRow) *scaler.MinMax {
	t.Helper()
	s, err := scaler.Fit(Matrix(rows))
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	return s
}

func TestLabelDeadZone(t *testing.T) {
	cases := []struct {
		change float64
		want   models.Signal
	}{
		{0.6, models.SignalUp},
		{-0.6, models.SignalDown},
		{0.1, models.SignalStable},
		{0.5, models.SignalStable},
		{-0.5, models.SignalStable},
		{0, models.SignalStable},
		{0.5000001, models.SignalUp},
		{-0.5000001, models.SignalDown},
	}
	for _, c := range cases {
		if got := Label(c.change, 0.5); got != c.want {
			t.Fatalf("Label(%v) = %v, want %v", c.change, got, c.want)
		}
	}
}

func TestBuildTrainingWindowCount(t *testing.T) {
	cfg := DefaultConfig()
	for _, n := range []int{cfg.MinRows(), cfg.MinRows() + 1, 50, 120} {
		rows := completeRows(n, 100, 1)
		set, err := BuildTraining(rows, fitRows(t, rows), cfg)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		want := n - cfg.Length - cfg.Horizon + 1
		if set.Len() != want || len(set.Labels) != want {
			t.Fatalf("n=%d: got %d windows, want %d", n, set.Len(), want)
		}
		for i, w := range set.Windows {
			if w.Rows() != cfg.Length || w.Cols() != models.NumFeatures {
				t.Fatalf("n=%d window %d shape (%d, %d)", n, i, w.Rows(), w.Cols())
			}
		}
	}
}

func TestBuildTrainingTooShort(t *testing.T) {
	cfg := DefaultConfig()
	rows := completeRows(cfg.MinRows()-1, 100, 1)
	_, err := BuildTraining(rows, fitRows(t, rows), cfg)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected insufficient data, got %v", err)
	}
}

func TestBuildTrainingRejectsIncompleteRows(t *testing.T) {
	cfg := DefaultConfig()
	rows := completeRows(40, 100, 1)
	s := fitRows(t, rows)
	rows[3].MACD = math.NaN()
	if _, err := BuildTraining(rows, s, cfg); !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("expected malformed input, got %v", err)
	}
}

// 40 rows rising by 1.0 per step: every forward change over H=5 is 5.0.
func TestLinearFortyRowScenario(t *testing.T) {
	cfg := DefaultConfig()
	rows := completeRows(40, 100, 1)

	labeled := LabelRows(rows, cfg.Horizon, cfg.Threshold)
	if len(labeled) != 35 {
		t.Fatalf("labeled rows = %d", len(labeled))
	}
	for i, r := range labeled {
		if r.PriceChange != 5 || r.Label != models.SignalUp {
			t.Fatalf("row %d: change %v label %v", i, r.PriceChange, r.Label)
		}
	}

	set, err := BuildTraining(rows, fitRows(t, rows), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if set.Len() != 6 || set.Rows != 40 {
		t.Fatalf("windows=%d rows=%d", set.Len(), set.Rows)
	}
	for i, l := range set.Labels {
		if l != models.SignalUp {
			t.Fatalf("window %d label %v", i, l)
		}
	}
	// the last window covers rows 5..34 and is labeled by rows 34 -> 39
	last := set.Windows[5]
	wantLast := (rows[34].Close - 100) / 39
	if math.Abs(last.Values[cfg.Length-1][0]-wantLast) > 1e-12 {
		t.Fatalf("last window close = %v, want %v", last.Values[cfg.Length-1][0], wantLast)
	}
}

func TestLabelsAtThresholdBoundary(t *testing.T) {
	// step 0.125 over 4 steps is exactly 0.5, over 5 steps 0.625
	rows := completeRows(40, 100, 0.125)

	atBoundary := LabelRows(rows, 4, 0.5)
	for i, r := range atBoundary {
		if r.PriceChange != 0.5 || r.Label != models.SignalStable {
			t.Fatalf("h=4 row %d: change %v label %v", i, r.PriceChange, r.Label)
		}
	}
	above := LabelRows(rows, 5, 0.5)
	for i, r := range above {
		if r.PriceChange != 0.625 || r.Label != models.SignalUp {
			t.Fatalf("h=5 row %d: change %v label %v", i, r.PriceChange, r.Label)
		}
	}

	falling := completeRows(40, 100, -0.125)
	for i, r := range LabelRows(falling, 5, 0.5) {
		if r.Label != models.SignalDown {
			t.Fatalf("falling row %d: label %v", i, r.Label)
		}
	}
}

func TestCleanKeepsOrder(t *testing.T) {
	rows := completeRows(5, 1, 1)
	rows[1].RSI = math.NaN()
	rows[3].EMA = math.NaN()
	got := Clean(rows)
	if len(got) != 3 || got[0].Close != 1 || got[1].Close != 3 || got[2].Close != 5 {
		t.Fatalf("clean = %+v", got)
	}
}

func TestBuildInferenceFillsEdges(t *testing.T) {
	rows := completeRows(40, 100, 1)
	s := fitRows(t, rows)

	input := completeRows(32, 100, 1)
	// leading warm-up gap and a trailing hole
	for i := 0; i < 5; i++ {
		input[i].MACD = math.NaN()
	}
	input[31].RSI = math.NaN()

	w, err := BuildInference(input, s, 30)
	if err != nil {
		t.Fatalf("build inference: %v", err)
	}
	if w.Rows() != 30 || w.Cols() != models.NumFeatures {
		t.Fatalf("shape (%d, %d)", w.Rows(), w.Cols())
	}
	for i, row := range w.Values {
		for j, v := range row {
			if math.IsNaN(v) {
				t.Fatalf("NaN left at (%d, %d)", i, j)
			}
		}
	}
	// window starts at input[2]; MACD rows 2..4 take input[5]'s value
	want, _ := s.Transform([][]float64{input[5].Values()})
	if w.Values[0][4] != want[0][4] {
		t.Fatalf("backward fill: got %v, want %v", w.Values[0][4], want[0][4])
	}
	// trailing RSI carries input[30] forward
	want, _ = s.Transform([][]float64{input[30].Values()})
	if w.Values[29][2] != want[0][2] {
		t.Fatalf("forward fill: got %v, want %v", w.Values[29][2], want[0][2])
	}
}

func TestBuildInferenceErrors(t *testing.T) {
	rows := completeRows(40, 100, 1)
	s := fitRows(t, rows)

	if _, err := BuildInference(rows[:29], s, 30); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("short input: %v", err)
	}

	blank := completeRows(30, 100, 1)
	for i := range blank {
		blank[i].MACD = math.NaN()
	}
	_, err := BuildInference(blank, s, 30)
	var ide *models.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("all-NaN column: %v", err)
	}
	if ide.Stage != "inference fill (macd)" || ide.Have != 0 || ide.Need != 1 {
		t.Fatalf("error detail = %+v", ide)
	}

	// a single defined value is enough to fill the column
	blank[29].MACD = rows[29].MACD
	if _, err := BuildInference(blank, s, 30); err != nil {
		t.Fatalf("one defined macd value: %v", err)
	}

	if _, err := BuildInference(rows, nil, 30); !errors.Is(err, models.ErrNotFitted) {
		t.Fatalf("unfit scaler: %v", err)
	}
}

func TestFillForwardBackward(t *testing.T) {
	nan := math.NaN()
	m := [][]float64{{nan, 1}, {2, nan}, {nan, nan}, {4, 5}}
	FillForward(m)
	if !math.IsNaN(m[0][0]) || m[2][0] != 2 || m[1][1] != 1 || m[2][1] != 1 {
		t.Fatalf("forward = %v", m)
	}
	FillBackward(m)
	if m[0][0] != 2 {
		t.Fatalf("backward = %v", m)
	}
}
