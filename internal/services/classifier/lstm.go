package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// lstm is one LSTM layer. Gate rows are stacked input, forget, cell, output.
type lstm struct {
	in     int
	hidden int

	w *mat.Dense    // 4H x in
	u *mat.Dense    // 4H x H
	b *mat.VecDense // 4H

	dw *mat.Dense
	du *mat.Dense
	db *mat.VecDense
}

func newLSTM(in, hidden int, rng *rand.Rand) *lstm {
	g := 4 * hidden
	bias := make([]float64, g)
	for k := hidden; k < 2*hidden; k++ {
		bias[k] = 1 // forget gate starts open
	}
	return &lstm{
		in:     in,
		hidden: hidden,
		w:      mat.NewDense(g, in, glorot(rng, g*in, in, g)),
		u:      mat.NewDense(g, hidden, glorot(rng, g*hidden, hidden, g)),
		b:      mat.NewVecDense(g, bias),
		dw:     mat.NewDense(g, in, nil),
		du:     mat.NewDense(g, hidden, nil),
		db:     mat.NewVecDense(g, nil),
	}
}

func (l *lstm) params(prefix string) []*param {
	return []*param{
		newParam(prefix+".w", l.w.RawMatrix().Data, l.dw.RawMatrix().Data),
		newParam(prefix+".u", l.u.RawMatrix().Data, l.du.RawMatrix().Data),
		newParam(prefix+".b", l.b.RawVector().Data, l.db.RawVector().Data),
	}
}

// lstmStep caches one time step of the forward pass for backprop.
type lstmStep struct {
	x     *mat.VecDense
	hPrev *mat.VecDense
	cPrev []float64
	i     []float64
	f     []float64
	g     []float64
	o     []float64
	tc    []float64 // tanh(c)
	c     []float64
	h     *mat.VecDense
}

// forward runs the layer over a sequence from a zero state. It only reads
// layer weights.
func (l *lstm) forward(xs []*mat.VecDense) []*lstmStep {
	H := l.hidden
	steps := make([]*lstmStep, len(xs))
	h := mat.NewVecDense(H, nil)
	c := make([]float64, H)
	z := mat.NewVecDense(4*H, nil)
	rec := mat.NewVecDense(4*H, nil)
	for t, x := range xs {
		z.MulVec(l.w, x)
		rec.MulVec(l.u, h)
		z.AddVec(z, rec)
		z.AddVec(z, l.b)
		zr := z.RawVector().Data

		st := &lstmStep{
			x: x, hPrev: h, cPrev: c,
			i: make([]float64, H), f: make([]float64, H),
			g: make([]float64, H), o: make([]float64, H),
			tc: make([]float64, H), c: make([]float64, H),
		}
		hn := make([]float64, H)
		for k := 0; k < H; k++ {
			st.i[k] = sigmoid(zr[k])
			st.f[k] = sigmoid(zr[H+k])
			st.g[k] = math.Tanh(zr[2*H+k])
			st.o[k] = sigmoid(zr[3*H+k])
			st.c[k] = st.f[k]*c[k] + st.i[k]*st.g[k]
			st.tc[k] = math.Tanh(st.c[k])
			hn[k] = st.o[k] * st.tc[k]
		}
		h = mat.NewVecDense(H, hn)
		c = st.c
		st.h = h
		steps[t] = st
	}
	return steps
}

// backward accumulates weight gradients for one sequence. dhs[t] is the
// loss gradient flowing into step t's output (nil for none). Input
// gradients are returned only when wantInput is set.
func (l *lstm) backward(steps []*lstmStep, dhs [][]float64, wantInput bool) [][]float64 {
	H := l.hidden
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)
	dz := mat.NewVecDense(4*H, nil)
	dzr := dz.RawVector().Data
	dhRec := mat.NewVecDense(H, nil)

	var dxs [][]float64
	if wantInput {
		dxs = make([][]float64, len(steps))
	}
	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		for k := 0; k < H; k++ {
			dh := dhNext[k]
			if dhs[t] != nil {
				dh += dhs[t][k]
			}
			do := dh * st.tc[k]
			dc := dh*st.o[k]*(1-st.tc[k]*st.tc[k]) + dcNext[k]
			di := dc * st.g[k]
			dg := dc * st.i[k]
			df := dc * st.cPrev[k]
			dcNext[k] = dc * st.f[k]

			dzr[k] = di * st.i[k] * (1 - st.i[k])
			dzr[H+k] = df * st.f[k] * (1 - st.f[k])
			dzr[2*H+k] = dg * (1 - st.g[k]*st.g[k])
			dzr[3*H+k] = do * st.o[k] * (1 - st.o[k])
		}
		l.dw.RankOne(l.dw, 1, dz, st.x)
		l.du.RankOne(l.du, 1, dz, st.hPrev)
		l.db.AddVec(l.db, dz)

		if wantInput {
			dx := mat.NewVecDense(l.in, nil)
			dx.MulVec(l.w.T(), dz)
			dxs[t] = dx.RawVector().Data
		}
		dhRec.MulVec(l.u.T(), dz)
		copy(dhNext, dhRec.RawVector().Data)
	}
	return dxs
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// glorot draws n weights uniformly from +/- sqrt(6 / (fanIn + fanOut)).
func glorot(rng *rand.Rand, n, fanIn, fanOut int) []float64 {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	out := make([]float64, n)
	for k := range out {
		out[k] = (rng.Float64()*2 - 1) * limit
	}
	return out
}
