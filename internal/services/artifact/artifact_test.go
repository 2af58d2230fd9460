package artifact

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"PriceSignal/internal/domain/models"
	"PriceSignal/internal/services/classifier"
	"PriceSignal/internal/services/scaler"
)

func fixture(t *testing.T) (*scaler.MinMax, *classifier.Network) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	cfg := classifier.DefaultConfig()
	cfg.SequenceLength = 5
	cfg.Hidden = 3

	rows := make([][]float64, 20)
	for i := range rows {
		rows[i] = make([]float64, models.NumFeatures)
		for j := range rows[i] {
			rows[i][j] = rng.Float64() * 10
		}
	}
	s, err := scaler.Fit(rows)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	scaled, _ := s.Transform(rows)
	var ws []models.Window
	var ls []models.Signal
	for start := 0; start+cfg.SequenceLength <= len(scaled); start++ {
		ws = append(ws, models.Window{Values: scaled[start : start+cfg.SequenceLength]})
		ls = append(ls, models.Signal(start%models.NumClasses))
	}
	n, err := classifier.New(cfg)
	if err != nil {
		t.Fatalf("new network: %v", err)
	}
	if _, err := n.Train(ws, ls, classifier.TrainOptions{Epochs: 1, BatchSize: 4}); err != nil {
		t.Fatalf("train: %v", err)
	}
	return s, n
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s, n := fixture(t)
	a, err := New(Metadata{Source: "test.csv", Horizon: 5, Threshold: 0.5, Rows: 20}, s, n)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.Meta.ID == "" || !strings.HasSuffix(a.Meta.ID, a.Fingerprint[:12]) {
		t.Fatalf("id %q does not carry fingerprint %q", a.Meta.ID, a.Fingerprint)
	}
	if a.Meta.SequenceLength != 5 || len(a.Meta.Features) != models.NumFeatures {
		t.Fatalf("meta = %+v", a.Meta)
	}

	blob, err := a.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Fingerprint != a.Fingerprint || b.Meta.ID != a.Meta.ID || b.Meta.Source != "test.csv" {
		t.Fatalf("decoded meta differs: %+v", b.Meta)
	}
	if got := b.SequenceConfig(); got.Length != 5 || got.Horizon != 5 || got.Threshold != 0.5 {
		t.Fatalf("sequence config = %+v", got)
	}

	lo, hi := a.Scaler.Bounds()
	lo2, hi2 := b.Scaler.Bounds()
	for j := range lo {
		if lo[j] != lo2[j] || hi[j] != hi2[j] {
			t.Fatalf("scaler bounds changed")
		}
	}
	w := models.Window{Values: make([][]float64, 5)}
	for i := range w.Values {
		w.Values[i] = []float64{0.1, 0.2, 0.3, 0.4, 0.5}
	}
	pa, _ := a.Model.PredictProba(w)
	pb, _ := b.Model.PredictProba(w)
	for k := range pa {
		if pa[k] != pb[k] {
			t.Fatalf("decoded model predicts %v, original %v", pb, pa)
		}
	}
}

func rewrite(t *testing.T, blob []byte, key string, value any) []byte {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(blob, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	env[key] = value
	out, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return out
}

func TestDecodeRejectsTampering(t *testing.T) {
	s, n := fixture(t)
	a, _ := New(Metadata{}, s, n)
	blob, _ := a.Encode()

	if _, err := Decode(rewrite(t, blob, "fingerprint", strings.Repeat("0", 64))); !errors.Is(err, ErrFingerprint) {
		t.Fatalf("fingerprint: %v", err)
	}
	if _, err := Decode(rewrite(t, blob, "scaler", map[string]any{"min": []float64{0}, "max": []float64{1}})); !errors.Is(err, ErrFingerprint) {
		t.Fatalf("swapped scaler: %v", err)
	}
	if _, err := Decode(rewrite(t, blob, "format_version", FormatVersion+1)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("version: %v", err)
	}
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatalf("expected error for garbage")
	}
}

func TestNewChecksParts(t *testing.T) {
	s, n := fixture(t)

	if _, err := New(Metadata{}, nil, n); !errors.Is(err, models.ErrNotFitted) {
		t.Fatalf("nil scaler: %v", err)
	}
	untrained, _ := classifier.New(n.Config())
	if _, err := New(Metadata{}, s, untrained); !errors.Is(err, models.ErrNotFitted) {
		t.Fatalf("untrained model: %v", err)
	}
	narrow, _ := scaler.Fit([][]float64{{1, 2, 3, 4}})
	if _, err := New(Metadata{}, narrow, n); !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("feature mismatch: %v", err)
	}
}
