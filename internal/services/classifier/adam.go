package classifier

import "math"

// param binds a flat view of a weight matrix to its gradient and Adam moments.
type param struct {
	name  string
	value []float64
	grad  []float64
	m     []float64
	v     []float64
}

func newParam(name string, value, grad []float64) *param {
	return &param{
		name:  name,
		value: value,
		grad:  grad,
		m:     make([]float64, len(value)),
		v:     make([]float64, len(value)),
	}
}

// adam is the Adam optimizer with bias-corrected moment estimates.
type adam struct {
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int
	params []*param
}

func newAdam(lr float64, params []*param) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7, params: params}
}

// step applies accumulated gradients scaled by scale, then zeroes them.
func (a *adam) step(scale float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for _, p := range a.params {
		for k, g := range p.grad {
			g *= scale
			p.m[k] = a.beta1*p.m[k] + (1-a.beta1)*g
			p.v[k] = a.beta2*p.v[k] + (1-a.beta2)*g*g
			mh := p.m[k] / c1
			vh := p.v[k] / c2
			p.value[k] -= a.lr * mh / (math.Sqrt(vh) + a.eps)
			p.grad[k] = 0
		}
	}
}

func (a *adam) zeroGrad() {
	for _, p := range a.params {
		for k := range p.grad {
			p.grad[k] = 0
		}
	}
}
