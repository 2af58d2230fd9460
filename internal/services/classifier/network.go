// Package classifier implements the sequence classifier: two stacked LSTM
// layers with dropout feeding a softmax over the signal classes, trained
// with sparse categorical cross-entropy and Adam.
package classifier

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"PriceSignal/internal/domain/models"
)

// Network is safe for concurrent Predict calls once trained or loaded.
// Train must not run concurrently with anything else on the same Network.
type Network struct {
	cfg     Config
	l1      *lstm
	l2      *lstm
	out     *dense
	opt     *adam
	rng     *rand.Rand
	trained bool
}

// New builds an untrained network with seeded weights.
func New(cfg Config) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("classifier config: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := &Network{
		cfg: cfg,
		l1:  newLSTM(cfg.Features, cfg.Hidden, rng),
		l2:  newLSTM(cfg.Hidden, cfg.Hidden, rng),
		out: newDense(cfg.Hidden, cfg.Classes, rng),
		rng: rng,
	}
	var ps []*param
	ps = append(ps, n.l1.params("lstm1")...)
	ps = append(ps, n.l2.params("lstm2")...)
	ps = append(ps, n.out.params("output")...)
	n.opt = newAdam(cfg.LearningRate, ps)
	return n, nil
}

func (n *Network) Config() Config { return n.cfg }

// Trained reports whether the network has weights from Train or a snapshot.
func (n *Network) Trained() bool { return n != nil && n.trained }

// Predict returns the most probable class for w.
func (n *Network) Predict(w models.Window) (models.Signal, error) {
	probs, err := n.PredictProba(w)
	if err != nil {
		return 0, err
	}
	return models.Signal(argmax(probs)), nil
}

// PredictProba returns class probabilities for w. It does not modify the
// network.
func (n *Network) PredictProba(w models.Window) ([]float64, error) {
	if !n.Trained() {
		return nil, &models.NotFittedError{Component: "classifier"}
	}
	if err := n.checkShape(w); err != nil {
		return nil, err
	}
	probs, _ := n.forward(w, nil)
	return probs, nil
}

func (n *Network) checkShape(w models.Window) error {
	ok := w.Rows() == n.cfg.SequenceLength
	for _, row := range w.Values {
		if len(row) != n.cfg.Features {
			ok = false
			break
		}
	}
	if !ok {
		return &models.ShapeMismatchError{
			What:     "classifier input",
			WantRows: n.cfg.SequenceLength,
			WantCols: n.cfg.Features,
			GotRows:  w.Rows(),
			GotCols:  w.Cols(),
		}
	}
	return nil
}

// pass holds what one training forward pass needs for backprop.
type pass struct {
	s1    []*lstmStep
	s2    []*lstmStep
	m1    [][]float64
	m2    []float64
	hLast *mat.VecDense
	probs []float64
}

// forward runs one window through the network. With a non-nil rng the
// dropout masks are drawn from it and the pass is returned for backprop.
func (n *Network) forward(w models.Window, rng *rand.Rand) ([]float64, *pass) {
	xs := make([]*mat.VecDense, len(w.Values))
	for t, row := range w.Values {
		xs[t] = mat.NewVecDense(len(row), append([]float64(nil), row...))
	}

	p := &pass{}
	p.s1 = n.l1.forward(xs)
	h1 := make([]*mat.VecDense, len(p.s1))
	if rng != nil {
		p.m1 = make([][]float64, len(p.s1))
	}
	for t, st := range p.s1 {
		if rng == nil {
			h1[t] = st.h
			continue
		}
		p.m1[t] = n.dropoutMask(rng)
		h1[t] = masked(st.h, p.m1[t])
	}

	p.s2 = n.l2.forward(h1)
	p.hLast = p.s2[len(p.s2)-1].h
	if rng != nil {
		p.m2 = n.dropoutMask(rng)
		p.hLast = masked(p.hLast, p.m2)
	}
	p.probs = n.out.forward(p.hLast)
	if rng == nil {
		return p.probs, nil
	}
	return p.probs, p
}

// backward accumulates gradients for a training pass labeled y.
func (n *Network) backward(p *pass, y int) {
	dh := n.out.backward(p.hLast, p.probs, y)
	for k := range dh {
		dh[k] *= p.m2[k]
	}
	dhs2 := make([][]float64, len(p.s2))
	dhs2[len(dhs2)-1] = dh

	dxs2 := n.l2.backward(p.s2, dhs2, true)
	for t := range dxs2 {
		for k := range dxs2[t] {
			dxs2[t][k] *= p.m1[t][k]
		}
	}
	n.l1.backward(p.s1, dxs2, false)
}

// dropoutMask draws an inverted-dropout mask: zero with probability p,
// 1/(1-p) otherwise.
func (n *Network) dropoutMask(rng *rand.Rand) []float64 {
	m := make([]float64, n.cfg.Hidden)
	keep := 1 - n.cfg.Dropout
	for k := range m {
		if rng.Float64() < keep {
			m[k] = 1 / keep
		}
	}
	return m
}

func masked(v *mat.VecDense, mask []float64) *mat.VecDense {
	out := mat.NewVecDense(v.Len(), nil)
	out.MulElemVec(v, mat.NewVecDense(len(mask), mask))
	return out
}

// crossEntropy is the sparse categorical cross-entropy of one sample.
func crossEntropy(probs []float64, y int) float64 {
	const eps = 1e-7
	return -math.Log(math.Max(probs[y], eps))
}

func argmax(v []float64) int {
	best := 0
	for k := range v {
		if v[k] > v[best] {
			best = k
		}
	}
	return best
}
