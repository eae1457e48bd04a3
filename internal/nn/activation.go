package nn

import (
	"github.com/drakos74/go-ex-machina/xmachina/ml"
	"gonum.org/v1/gonum/mat"
)

// Activation applies an element-wise non-linearity.
type Activation struct {
	fn ml.Activation
}

// NewActivation wraps the given activation function into a layer.
func NewActivation(fn ml.Activation) *Activation {
	return &Activation{fn: fn}
}

func (a *Activation) Forward(x *mat.Dense, _ Mode) (*mat.Dense, Backward, error) {
	var y mat.Dense
	y.Apply(func(_, _ int, v float64) float64 {
		return a.fn.F(v)
	}, x)
	return &y, func(grad *mat.Dense) *mat.Dense {
		var dx mat.Dense
		dx.Apply(func(i, j int, g float64) float64 {
			return g * a.fn.D(y.At(i, j))
		}, grad)
		return &dx
	}, nil
}

func (a *Activation) Params() []*Param {
	return nil
}
