package classifier

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"PriceSignal/internal/domain/models"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.SequenceLength = 6
	cfg.Hidden = 4
	cfg.LearningRate = 0.01
	return cfg
}

func window(rng *rand.Rand, rows, cols int, base float64) models.Window {
	v := make([][]float64, rows)
	for i := range v {
		v[i] = make([]float64, cols)
		for j := range v[i] {
			v[i][j] = base + 0.1*rng.Float64()
		}
	}
	return models.Window{Values: v}
}

// dataset has low-valued windows labeled Down and high-valued ones Up.
func dataset(cfg Config, n int) ([]models.Window, []models.Signal) {
	rng := rand.New(rand.NewSource(7))
	ws := make([]models.Window, n)
	ls := make([]models.Signal, n)
	for i := range ws {
		if i%2 == 0 {
			ws[i], ls[i] = window(rng, cfg.SequenceLength, cfg.Features, 0), models.SignalDown
		} else {
			ws[i], ls[i] = window(rng, cfg.SequenceLength, cfg.Features, 0.9), models.SignalUp
		}
	}
	return ws, ls
}

func trained(t *testing.T, cfg Config) *Network {
	t.Helper()
	n, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ws, ls := dataset(cfg, 40)
	if _, err := n.Train(ws, ls, TrainOptions{Epochs: 3, BatchSize: 8, ValidationFraction: 0.2}); err != nil {
		t.Fatalf("train: %v", err)
	}
	return n
}

func TestNewRejectsBadConfig(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.SequenceLength = 0 },
		func(c *Config) { c.Hidden = -1 },
		func(c *Config) { c.Dropout = 1 },
		func(c *Config) { c.Classes = 1 },
		func(c *Config) { c.LearningRate = 0 },
	}
	for i, mutate := range bad {
		cfg := smallConfig()
		mutate(&cfg)
		if _, err := New(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestPredictBeforeTrain(t *testing.T) {
	cfg := smallConfig()
	n, _ := New(cfg)
	w := window(rand.New(rand.NewSource(1)), cfg.SequenceLength, cfg.Features, 0)
	if _, err := n.Predict(w); !errors.Is(err, models.ErrNotFitted) {
		t.Fatalf("expected not fitted, got %v", err)
	}
	var nilNet *Network
	if _, err := nilNet.PredictProba(w); !errors.Is(err, models.ErrNotFitted) {
		t.Fatalf("nil network: %v", err)
	}
}

func TestPredictShapeMismatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Hidden = 4
	n := trained(t, cfg)
	rng := rand.New(rand.NewSource(1))

	if _, err := n.Predict(window(rng, 29, models.NumFeatures, 0)); !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("(29, 5): %v", err)
	}
	if _, err := n.Predict(window(rng, 30, 4, 0)); !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("(30, 4): %v", err)
	}
	if _, err := n.Predict(window(rng, 30, models.NumFeatures, 0)); err != nil {
		t.Fatalf("(30, 5): %v", err)
	}
}

func TestPredictProbaIsDistributionAndDeterministic(t *testing.T) {
	cfg := smallConfig()
	n := trained(t, cfg)
	w := window(rand.New(rand.NewSource(3)), cfg.SequenceLength, cfg.Features, 0.5)

	p1, err := n.PredictProba(w)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	p2, _ := n.PredictProba(w)
	sum := 0.0
	for k := range p1 {
		if p1[k] != p2[k] {
			t.Fatalf("repeated predict differs: %v vs %v", p1, p2)
		}
		if p1[k] < 0 || p1[k] > 1 {
			t.Fatalf("probability out of range: %v", p1)
		}
		sum += p1[k]
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
}

func TestTrainingIsReproducible(t *testing.T) {
	cfg := smallConfig()
	a := trained(t, cfg)
	b := trained(t, cfg)
	w := window(rand.New(rand.NewSource(9)), cfg.SequenceLength, cfg.Features, 0.3)
	pa, _ := a.PredictProba(w)
	pb, _ := b.PredictProba(w)
	for k := range pa {
		if pa[k] != pb[k] {
			t.Fatalf("same seed, different weights: %v vs %v", pa, pb)
		}
	}
}

func TestTrainReport(t *testing.T) {
	cfg := smallConfig()
	n, _ := New(cfg)
	ws, ls := dataset(cfg, 50)

	var seen []int
	report, err := n.Train(ws, ls, TrainOptions{
		Epochs:             4,
		BatchSize:          16,
		ValidationFraction: 0.2,
		OnEpoch:            func(s EpochStats) { seen = append(seen, s.Epoch) },
	})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if report.TrainSamples != 40 || report.ValidationSamples != 10 {
		t.Fatalf("split = %d/%d", report.TrainSamples, report.ValidationSamples)
	}
	if len(report.Epochs) != 4 || len(seen) != 4 || seen[3] != 4 {
		t.Fatalf("epochs = %d, callbacks = %v", len(report.Epochs), seen)
	}
	if f := report.Final(); f.Epoch != 4 || math.IsNaN(f.Loss) || math.IsNaN(f.ValLoss) {
		t.Fatalf("final = %+v", f)
	}
	if !n.Trained() {
		t.Fatalf("network not marked trained")
	}
}

func TestTrainRejectsBadInput(t *testing.T) {
	cfg := smallConfig()
	n, _ := New(cfg)
	ws, ls := dataset(cfg, 4)

	if _, err := n.Train(ws, ls[:3], TrainOptions{Epochs: 1}); !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("length mismatch: %v", err)
	}
	bad := append([]models.Signal(nil), ls...)
	bad[2] = 7
	if _, err := n.Train(ws, bad, TrainOptions{Epochs: 1}); !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("unknown class: %v", err)
	}
	short := append([]models.Window(nil), ws...)
	short[1] = models.Window{Values: short[1].Values[:2]}
	if _, err := n.Train(short, ls, TrainOptions{Epochs: 1}); !errors.Is(err, models.ErrShapeMismatch) {
		t.Fatalf("short window: %v", err)
	}
	if n.Trained() {
		t.Fatalf("failed training marked the network trained")
	}
}

func TestSplitTail(t *testing.T) {
	train, val := SplitTail(10, 0.2)
	if len(train) != 8 || len(val) != 2 || train[7] != 7 || val[0] != 8 || val[1] != 9 {
		t.Fatalf("split = %v / %v", train, val)
	}
	again, againVal := SplitTail(10, 0.2)
	for i := range train {
		if train[i] != again[i] {
			t.Fatalf("split not reproducible")
		}
	}
	if len(againVal) != 2 {
		t.Fatalf("split not reproducible")
	}

	if tr, v := SplitTail(5, 0); len(tr) != 5 || len(v) != 0 {
		t.Fatalf("no validation: %v / %v", tr, v)
	}
	if tr, v := SplitTail(0, 0.2); tr != nil || v != nil {
		t.Fatalf("empty: %v / %v", tr, v)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := smallConfig()
	n := trained(t, cfg)
	b, err := n.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m, err := Load(b)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Config() != n.Config() || !m.Trained() {
		t.Fatalf("config or state lost: %+v", m.Config())
	}
	w := window(rand.New(rand.NewSource(5)), cfg.SequenceLength, cfg.Features, 0.4)
	pn, _ := n.PredictProba(w)
	pm, _ := m.PredictProba(w)
	for k := range pn {
		if pn[k] != pm[k] {
			t.Fatalf("restored network predicts %v, original %v", pm, pn)
		}
	}

	if _, err := Load([]byte(`{"config":{}}`)); err == nil {
		t.Fatalf("expected error for empty config")
	}
}

// Analytic gradients must agree with central differences of the loss.
func TestGradientsMatchFiniteDifferences(t *testing.T) {
	cfg := smallConfig()
	cfg.Hidden = 3
	cfg.SequenceLength = 4
	cfg.Dropout = 0
	n, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	w := window(rand.New(rand.NewSource(11)), cfg.SequenceLength, cfg.Features, 0.2)
	const y = 2

	n.opt.zeroGrad()
	_, p := n.forward(w, rand.New(rand.NewSource(1)))
	n.backward(p, y)

	loss := func() float64 {
		probs, _ := n.forward(w, nil)
		return crossEntropy(probs, y)
	}
	const eps = 1e-5
	for _, prm := range n.opt.params {
		for k := range prm.value {
			orig := prm.value[k]
			prm.value[k] = orig + eps
			up := loss()
			prm.value[k] = orig - eps
			down := loss()
			prm.value[k] = orig

			num := (up - down) / (2 * eps)
			got := prm.grad[k]
			if math.Abs(num-got) > 1e-6+1e-3*math.Max(math.Abs(num), math.Abs(got)) {
				t.Fatalf("%s[%d]: analytic %v, numeric %v", prm.name, k, got, num)
			}
		}
	}
}
