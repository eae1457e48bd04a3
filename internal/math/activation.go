package math

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drakos74/go-ex-machina/xmachina/ml"
)

// ErrUnknownActivation is returned for activation tokens we cannot map to a function.
var ErrUnknownActivation = errors.New("unknown activation function")

const (
	ReLU         = "relu"
	LeakyReLU    = "leaky_relu"
	Sigmoid      = "sigmoid"
	TanH         = "tanh"
	NoActivation = "none"
)

// leakySlope is the negative slope of the leaky relu.
const leakySlope = 0.01

// Activation maps the given token to the activation function.
// An empty or 'none' token returns a nil activation, meaning the stage should be omitted.
// NOTE : derivatives are expressed on the output of the function, as in the xmachina contract.
func Activation(token string) (ml.Activation, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", NoActivation:
		return nil, nil
	case ReLU:
		return relu{}, nil
	case LeakyReLU:
		return leakyRelu{slope: leakySlope}, nil
	case Sigmoid:
		return ml.Sigmoid, nil
	case TanH:
		return ml.TanH, nil
	}
	return nil, fmt.Errorf("'%s': %w", token, ErrUnknownActivation)
}

// relu replaces the xmachina one, which does not zero the gradient for negative inputs.
type relu struct{}

func (r relu) F(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func (r relu) D(y float64) float64 {
	if y > 0 {
		return 1
	}
	return 0
}

type leakyRelu struct {
	slope float64
}

func (l leakyRelu) F(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.slope * x
}

// D relies on the output keeping the sign of the input.
func (l leakyRelu) D(y float64) float64 {
	if y > 0 {
		return 1
	}
	return l.slope
}
