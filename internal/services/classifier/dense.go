package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// dense is the softmax output layer.
type dense struct {
	w  *mat.Dense    // classes x in
	b  *mat.VecDense // classes
	dw *mat.Dense
	db *mat.VecDense
}

func newDense(in, out int, rng *rand.Rand) *dense {
	return &dense{
		w:  mat.NewDense(out, in, glorot(rng, out*in, in, out)),
		b:  mat.NewVecDense(out, nil),
		dw: mat.NewDense(out, in, nil),
		db: mat.NewVecDense(out, nil),
	}
}

func (d *dense) params(prefix string) []*param {
	return []*param{
		newParam(prefix+".w", d.w.RawMatrix().Data, d.dw.RawMatrix().Data),
		newParam(prefix+".b", d.b.RawVector().Data, d.db.RawVector().Data),
	}
}

// forward returns class probabilities for h.
func (d *dense) forward(h *mat.VecDense) []float64 {
	r, _ := d.w.Dims()
	logits := mat.NewVecDense(r, nil)
	logits.MulVec(d.w, h)
	logits.AddVec(logits, d.b)
	return softmax(logits.RawVector().Data)
}

// backward accumulates gradients of the cross-entropy loss for class y and
// returns the gradient with respect to h.
func (d *dense) backward(h *mat.VecDense, probs []float64, y int) []float64 {
	dl := make([]float64, len(probs))
	copy(dl, probs)
	dl[y] -= 1
	dlv := mat.NewVecDense(len(dl), dl)
	d.dw.RankOne(d.dw, 1, dlv, h)
	d.db.AddVec(d.db, dlv)

	_, c := d.w.Dims()
	dh := mat.NewVecDense(c, nil)
	dh.MulVec(d.w.T(), dlv)
	return dh.RawVector().Data
}

func softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	mx := math.Inf(-1)
	for _, v := range logits {
		mx = math.Max(mx, v)
	}
	sum := 0.0
	for k, v := range logits {
		out[k] = math.Exp(v - mx)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
	return out
}
