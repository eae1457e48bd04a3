package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	batchNormMomentum = 0.1
	batchNormEps      = 1e-5
)

// BatchNorm normalises each feature over the batch.
// Running statistics are tracked during training and used in eval mode.
type BatchNorm struct {
	features    int
	Gamma       *Param
	Beta        *Param
	runningMean []float64
	runningVar  []float64
}

// NewBatchNorm creates a batch normalisation layer for the given number of features.
func NewBatchNorm(features int) *BatchNorm {
	bn := &BatchNorm{
		features:    features,
		Gamma:       newParam(fmt.Sprintf("batchnorm[%d].gamma", features), 1, features, false),
		Beta:        newParam(fmt.Sprintf("batchnorm[%d].beta", features), 1, features, true),
		runningMean: make([]float64, features),
		runningVar:  make([]float64, features),
	}
	for j := 0; j < features; j++ {
		bn.Gamma.Value.Set(0, j, 1)
		bn.runningVar[j] = 1
	}
	return bn
}

// Running returns a copy of the running mean and variance.
func (bn *BatchNorm) Running() ([]float64, []float64) {
	m := make([]float64, bn.features)
	v := make([]float64, bn.features)
	copy(m, bn.runningMean)
	copy(v, bn.runningVar)
	return m, v
}

func (bn *BatchNorm) Forward(x *mat.Dense, mode Mode) (*mat.Dense, Backward, error) {
	n, c := x.Dims()
	if c != bn.features {
		return nil, nil, fmt.Errorf("batch norm expects %d features, got %d", bn.features, c)
	}

	mean := make([]float64, c)
	variance := make([]float64, c)
	if mode == Train {
		if n < 2 {
			return nil, nil, fmt.Errorf("batch norm on %d samples: %w", n, ErrBatchTooSmall)
		}
		col := make([]float64, n)
		for j := 0; j < c; j++ {
			mat.Col(col, j, x)
			m, unbiased := stat.MeanVariance(col, nil)
			mean[j] = m
			variance[j] = unbiased * float64(n-1) / float64(n)
			bn.runningMean[j] = (1-batchNormMomentum)*bn.runningMean[j] + batchNormMomentum*m
			bn.runningVar[j] = (1-batchNormMomentum)*bn.runningVar[j] + batchNormMomentum*unbiased
		}
	} else {
		copy(mean, bn.runningMean)
		copy(variance, bn.runningVar)
	}

	invStd := make([]float64, c)
	for j := range invStd {
		invStd[j] = 1 / math.Sqrt(variance[j]+batchNormEps)
	}

	gamma := mat.DenseCopyOf(bn.Gamma.Value).RawRowView(0)
	beta := bn.Beta.Value.RawRowView(0)

	var xHat mat.Dense
	xHat.Apply(func(_, j int, v float64) float64 {
		return (v - mean[j]) * invStd[j]
	}, x)
	var y mat.Dense
	y.Apply(func(_, j int, v float64) float64 {
		return gamma[j]*v + beta[j]
	}, &xHat)

	return &y, func(grad *mat.Dense) *mat.Dense {
		dGamma := bn.Gamma.Grad.RawRowView(0)
		dBeta := bn.Beta.Grad.RawRowView(0)
		// sums over the batch of dxHat and dxHat*xHat
		sum := make([]float64, c)
		dot := make([]float64, c)
		for i := 0; i < n; i++ {
			for j := 0; j < c; j++ {
				g := grad.At(i, j)
				xh := xHat.At(i, j)
				dGamma[j] += g * xh
				dBeta[j] += g
				sum[j] += g * gamma[j]
				dot[j] += g * gamma[j] * xh
			}
		}
		var dx mat.Dense
		dx.Apply(func(i, j int, g float64) float64 {
			dxHat := g * gamma[j]
			if mode == Eval {
				return dxHat * invStd[j]
			}
			nf := float64(n)
			return invStd[j] / nf * (nf*dxHat - sum[j] - xHat.At(i, j)*dot[j])
		}, grad)
		return &dx
	}, nil
}

func (bn *BatchNorm) Params() []*Param {
	return []*Param{bn.Gamma, bn.Beta}
}
