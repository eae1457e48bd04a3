package nn

import (
	ncdmath "github.com/drakos74/ncd/internal/math"
	"gonum.org/v1/gonum/mat"
)

// Normalization scales each row to unit L1 or L2 norm.
type Normalization struct {
	norm ncdmath.Norm
}

// NewNormalization creates a row normalisation layer.
func NewNormalization(norm ncdmath.Norm) *Normalization {
	return &Normalization{norm: norm}
}

func (nl *Normalization) Forward(x *mat.Dense, _ Mode) (*mat.Dense, Backward, error) {
	if nl.norm == ncdmath.NoNorm {
		return x, identity, nil
	}
	norms := ncdmath.RowNorms(x, nl.norm)
	z := ncdmath.Normalize(x, nl.norm)
	return z, func(grad *mat.Dense) *mat.Dense {
		r, c := grad.Dims()
		dx := mat.NewDense(r, c, nil)
		for i := 0; i < r; i++ {
			g := grad.RawRowView(i)
			out := dx.RawRowView(i)
			s := norms[i]
			if s == 0 {
				copy(out, g)
				continue
			}
			switch nl.norm {
			case ncdmath.L2:
				// (g - z (z.g)) / |x|
				zi := z.RawRowView(i)
				var zg float64
				for j := 0; j < c; j++ {
					zg += zi[j] * g[j]
				}
				for j := 0; j < c; j++ {
					out[j] = (g[j] - zi[j]*zg) / s
				}
			case ncdmath.L1:
				// g/|x| - sign(x) (x.g) / |x|^2
				xi := x.RawRowView(i)
				var xg float64
				for j := 0; j < c; j++ {
					xg += xi[j] * g[j]
				}
				for j := 0; j < c; j++ {
					out[j] = g[j]/s - sign(xi[j])*xg/(s*s)
				}
			}
		}
		return dx
	}, nil
}

func (nl *Normalization) Params() []*Param {
	return nil
}

func sign(f float64) float64 {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}
