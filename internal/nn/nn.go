// Package nn holds the building blocks of the projection network.
// Layers operate on batches, one sample per row of a gonum dense matrix.
// The execution mode is given explicitly to each forward pass,
// so that no layer carries a train/eval flag.
package nn

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrBatchTooSmall is returned when batch statistics are needed on less than 2 samples.
	ErrBatchTooSmall = errors.New("batch too small")
	// ErrEmptyBatch is returned when a loss is computed on no samples.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrLabelOutOfRange is returned for labels that do not match an output of the classifier.
	ErrLabelOutOfRange = errors.New("label out of range")
)

// Mode defines the execution mode of a forward pass.
type Mode int

const (
	// Train uses batch statistics and stochastic regularisation.
	Train Mode = iota
	// Eval uses the running statistics and disables dropout.
	Eval
)

func (m Mode) String() string {
	if m == Eval {
		return "eval"
	}
	return "train"
}

// Backward propagates the gradient of the loss w.r.t. the output of a layer
// back to its input, accumulating the gradients of the layer parameters on the way.
type Backward func(grad *mat.Dense) *mat.Dense

// Layer is a differentiable transformation of a batch.
type Layer interface {
	Forward(x *mat.Dense, mode Mode) (*mat.Dense, Backward, error)
	Params() []*Param
}

// Param is a trainable parameter and its accumulated gradient.
type Param struct {
	Name  string
	Bias  bool
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, r, c int, bias bool) *Param {
	return &Param{
		Name:  name,
		Bias:  bias,
		Value: mat.NewDense(r, c, nil),
		Grad:  mat.NewDense(r, c, nil),
	}
}

func (p *Param) String() string {
	r, c := p.Value.Dims()
	return fmt.Sprintf("%s[%dx%d]", p.Name, r, c)
}

// ZeroGrad resets the gradients of all given parameters.
func ZeroGrad(params []*Param) {
	for _, p := range params {
		p.Grad.Zero()
	}
}

// Optimizer applies the accumulated gradients to the parameters.
type Optimizer interface {
	Step(params []*Param)
}

// identity is the backward pass of layers that do not transform the batch.
func identity(grad *mat.Dense) *mat.Dense {
	return grad
}
