package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dropout zeroes features with probability p during training,
// scaling the remaining ones by 1/(1-p). It is the identity in eval mode.
type Dropout struct {
	p   float64
	rng *rand.Rand
}

// NewDropout creates a dropout layer with the given drop probability.
func NewDropout(p float64, rng *rand.Rand) *Dropout {
	return &Dropout{p: p, rng: rng}
}

func (d *Dropout) Forward(x *mat.Dense, mode Mode) (*mat.Dense, Backward, error) {
	if mode == Eval || d.p <= 0 {
		return x, identity, nil
	}
	r, c := x.Dims()
	scale := 1 / (1 - d.p)
	mask := mat.NewDense(r, c, nil)
	mask.Apply(func(_, _ int, _ float64) float64 {
		if d.rng.Float64() < d.p {
			return 0
		}
		return scale
	}, mask)
	var y mat.Dense
	y.MulElem(x, mask)
	return &y, func(grad *mat.Dense) *mat.Dense {
		var dx mat.Dense
		dx.MulElem(grad, mask)
		return &dx
	}, nil
}

func (d *Dropout) Params() []*Param {
	return nil
}
