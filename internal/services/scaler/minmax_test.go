package scaler

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"PriceSignal/internal/domain/models"
)

func TestFitTransform(t *testing.T) {
	s, err := Fit([][]float64{{0, 10}, {5, 10}, {10, 10}})
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	got, err := s.Transform([][]float64{{5, 10}, {20, 12}})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	// constant column maps to x - min; out-of-range values are not clamped
	want := [][]float64{{0.5, 0}, {2, 2}}
	for i := range want {
		for j := range want[i] {
			if math.Abs(got[i][j]-want[i][j]) > 1e-12 {
				t.Fatalf("got[%d][%d] = %v, want %v", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestInverseRoundTrip(t *testing.T) {
	data := [][]float64{{1, -3, 100}, {2, 7, 250}, {4, 1, 175}}
	s, err := Fit(data)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	scaled, _ := s.Transform(data)
	back, err := s.InverseTransform(scaled)
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	again, _ := s.Transform(back)
	for i := range data {
		for j := range data[i] {
			if math.Abs(back[i][j]-data[i][j]) > 1e-9 || math.Abs(again[i][j]-scaled[i][j]) > 1e-12 {
				t.Fatalf("round trip drift at (%d,%d)", i, j)
			}
		}
	}
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	s, _ := Fit([][]float64{{0}, {2}})
	in := [][]float64{{1}}
	if _, err := s.Transform(in); err != nil {
		t.Fatalf("transform: %v", err)
	}
	if in[0][0] != 1 {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestUnfitScaler(t *testing.T) {
	var s *MinMax
	if _, err := s.Transform([][]float64{{1}}); !errors.Is(err, models.ErrNotFitted) {
		t.Fatalf("expected not fitted, got %v", err)
	}
	if _, err := json.Marshal(s); err == nil {
		t.Fatalf("marshal of unfit scaler should fail")
	}
	if s.Features() != 0 {
		t.Fatalf("unfit features = %d", s.Features())
	}
}

func TestFitErrors(t *testing.T) {
	if _, err := Fit(nil); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := Fit([][]float64{{1, 2}, {3}}); !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("ragged: %v", err)
	}
	if _, err := Fit([][]float64{{math.NaN()}}); !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("nan: %v", err)
	}

	s, _ := Fit([][]float64{{1, 2}})
	if _, err := s.Transform([][]float64{{1}}); !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("width mismatch: %v", err)
	}
}

func TestDecode(t *testing.T) {
	s, _ := Fit([][]float64{{1, 5}, {3, 9}})
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	d, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	lo, hi := d.Bounds()
	if lo[0] != 1 || lo[1] != 5 || hi[0] != 3 || hi[1] != 9 {
		t.Fatalf("bounds = %v %v", lo, hi)
	}

	if _, err := Decode([]byte(`{"min":[2],"max":[1]}`)); !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("inverted bounds: %v", err)
	}
	if _, err := Decode([]byte(`{"min":[1],"max":[1,2]}`)); !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("uneven bounds: %v", err)
	}
}
