package nn

import (
	"math"

	"github.com/drakos74/go-ex-machina/xmachina/ml"
	"gonum.org/v1/gonum/mat"
)

// AdamW is the adam optimizer with decoupled weight decay.
type AdamW struct {
	rate        *ml.Learning
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64
	steps       int
	m           map[*Param]*mat.Dense
	v           map[*Param]*mat.Dense
}

// NewAdamW creates an AdamW optimizer with the same learning rate for weights and biases.
func NewAdamW(lr float64) *AdamW {
	return NewAdamWWithRate(ml.Rate(lr))
}

// NewAdamWWithRate creates an AdamW optimizer with distinct learning rates for weights and biases.
func NewAdamWWithRate(rate *ml.Learning) *AdamW {
	return &AdamW{
		rate:        rate,
		Beta1:       0.9,
		Beta2:       0.999,
		Eps:         1e-8,
		WeightDecay: 0.01,
		m:           make(map[*Param]*mat.Dense),
		v:           make(map[*Param]*mat.Dense),
	}
}

// Steps returns the number of steps applied so far.
func (a *AdamW) Steps() int {
	return a.steps
}

func (a *AdamW) Step(params []*Param) {
	a.steps++
	c1 := 1 - math.Pow(a.Beta1, float64(a.steps))
	c2 := 1 - math.Pow(a.Beta2, float64(a.steps))
	for _, p := range params {
		lr := a.rate.WRate()
		if p.Bias {
			lr = a.rate.BRate()
		}
		r, c := p.Value.Dims()
		m, ok := a.m[p]
		if !ok {
			m = mat.NewDense(r, c, nil)
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = mat.NewDense(r, c, nil)
			a.v[p] = v
		}
		for i := 0; i < r; i++ {
			value := p.Value.RawRowView(i)
			grad := p.Grad.RawRowView(i)
			mi := m.RawRowView(i)
			vi := v.RawRowView(i)
			for j := 0; j < c; j++ {
				g := grad[j]
				value[j] -= lr * a.WeightDecay * value[j]
				mi[j] = a.Beta1*mi[j] + (1-a.Beta1)*g
				vi[j] = a.Beta2*vi[j] + (1-a.Beta2)*g*g
				mHat := mi[j] / c1
				vHat := vi[j] / c2
				value[j] -= lr * mHat / (math.Sqrt(vHat) + a.Eps)
			}
		}
	}
}
