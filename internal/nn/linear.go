package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear is a fully connected projection y = xW + b.
type Linear struct {
	in, out int
	W       *Param
	B       *Param
}

// NewLinear creates a linear layer with weights and bias drawn from U(-1/sqrt(in), 1/sqrt(in)).
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		in:  in,
		out: out,
		W:   newParam(fmt.Sprintf("linear[%d,%d].w", in, out), in, out, false),
		B:   newParam(fmt.Sprintf("linear[%d,%d].b", in, out), 1, out, true),
	}
	bound := 1 / math.Sqrt(float64(in))
	uniform := func(_, _ int, _ float64) float64 {
		return bound * (2*rng.Float64() - 1)
	}
	l.W.Value.Apply(uniform, l.W.Value)
	l.B.Value.Apply(uniform, l.B.Value)
	return l
}

func (l *Linear) Forward(x *mat.Dense, _ Mode) (*mat.Dense, Backward, error) {
	if _, c := x.Dims(); c != l.in {
		return nil, nil, fmt.Errorf("linear layer expects %d features, got %d", l.in, c)
	}
	var y mat.Dense
	y.Mul(x, l.W.Value)
	bias := l.B.Value.RawRowView(0)
	y.Apply(func(_, j int, v float64) float64 {
		return v + bias[j]
	}, &y)

	// the weights are only modified by the optimizer after the backward pass
	w := l.W.Value
	return &y, func(grad *mat.Dense) *mat.Dense {
		var dw mat.Dense
		dw.Mul(x.T(), grad)
		l.W.Grad.Add(l.W.Grad, &dw)

		r, c := grad.Dims()
		db := l.B.Grad.RawRowView(0)
		for i := 0; i < r; i++ {
			row := grad.RawRowView(i)
			for j := 0; j < c; j++ {
				db[j] += row[j]
			}
		}

		var dx mat.Dense
		dx.Mul(grad, w.T())
		return &dx
	}, nil
}

func (l *Linear) Params() []*Param {
	return []*Param{l.W, l.B}
}
