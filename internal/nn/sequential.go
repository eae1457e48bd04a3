package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Sequential chains layers, the output of each one feeding the next.
type Sequential struct {
	layers []Layer
}

// NewSequential creates a new chain of the given layers.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Add appends a layer to the chain.
func (s *Sequential) Add(layer Layer) *Sequential {
	s.layers = append(s.layers, layer)
	return s
}

// Layers returns the layers of the chain.
func (s *Sequential) Layers() []Layer {
	return s.layers
}

func (s *Sequential) Forward(x *mat.Dense, mode Mode) (*mat.Dense, Backward, error) {
	backward := make([]Backward, len(s.layers))
	out := x
	for i, layer := range s.layers {
		y, b, err := layer.Forward(out, mode)
		if err != nil {
			return nil, nil, fmt.Errorf("could not forward layer %d (%T): %w", i, layer, err)
		}
		backward[i] = b
		out = y
	}
	return out, func(grad *mat.Dense) *mat.Dense {
		g := grad
		for i := len(backward) - 1; i >= 0; i-- {
			g = backward[i](g)
		}
		return g
	}, nil
}

func (s *Sequential) Params() []*Param {
	params := make([]*Param, 0)
	for _, layer := range s.layers {
		params = append(params, layer.Params()...)
	}
	return params
}
