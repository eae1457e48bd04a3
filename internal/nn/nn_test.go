package nn

import (
	"math"
	"math/rand"
	"testing"

	ncdmath "github.com/drakos74/ncd/internal/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randDense(rng *rand.Rand, r, c int) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	m.Apply(func(_, _ int, _ float64) float64 {
		return rng.NormFloat64()
	}, m)
	return m
}

// weightedSum is a scalar loss with a known gradient w.r.t. y
func weightedSum(y, w *mat.Dense) float64 {
	var e mat.Dense
	e.MulElem(y, w)
	return mat.Sum(&e)
}

func TestSequential_GradientCheck(t *testing.T) {

	type test struct {
		norm ncdmath.Norm
		act  string
	}

	tests := map[string]test{
		"tanh-l2": {
			norm: ncdmath.L2,
			act:  ncdmath.TanH,
		},
		"sigmoid-l1": {
			norm: ncdmath.L1,
			act:  ncdmath.Sigmoid,
		},
		"leaky-none": {
			norm: ncdmath.NoNorm,
			act:  ncdmath.LeakyReLU,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			act, err := ncdmath.Activation(tt.act)
			require.NoError(t, err)

			net := NewSequential(
				NewLinear(3, 4, rng),
				NewActivation(act),
				NewBatchNorm(4),
				NewLinear(4, 2, rng),
				NewNormalization(tt.norm),
			)

			x := randDense(rng, 5, 3)
			w := randDense(rng, 5, 2)

			loss := func() float64 {
				y, _, err := net.Forward(x, Train)
				require.NoError(t, err)
				return weightedSum(y, w)
			}

			ZeroGrad(net.Params())
			_, backward, err := net.Forward(x, Train)
			require.NoError(t, err)
			dx := backward(w)

			h := 1e-6
			for _, p := range net.Params() {
				r, c := p.Value.Dims()
				for i := 0; i < r; i++ {
					for j := 0; j < c; j++ {
						v := p.Value.At(i, j)
						p.Value.Set(i, j, v+h)
						up := loss()
						p.Value.Set(i, j, v-h)
						down := loss()
						p.Value.Set(i, j, v)
						assert.InDelta(t, (up-down)/(2*h), p.Grad.At(i, j), 1e-4, "%s at [%d,%d]", p, i, j)
					}
				}
			}

			r, c := x.Dims()
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					v := x.At(i, j)
					x.Set(i, j, v+h)
					up := loss()
					x.Set(i, j, v-h)
					down := loss()
					x.Set(i, j, v)
					assert.InDelta(t, (up-down)/(2*h), dx.At(i, j), 1e-4, "input at [%d,%d]", i, j)
				}
			}
		})
	}
}

func TestBatchNorm(t *testing.T) {
	bn := NewBatchNorm(2)

	_, _, err := bn.Forward(mat.NewDense(1, 2, []float64{1, 2}), Train)
	assert.ErrorIs(t, err, ErrBatchTooSmall)

	// single samples are fine in eval mode, as the running statistics are used
	y, _, err := bn.Forward(mat.NewDense(1, 2, []float64{1, 2}), Eval)
	require.NoError(t, err)
	assert.InDelta(t, 1, y.At(0, 0), 1e-4)
	assert.InDelta(t, 2, y.At(0, 1), 1e-4)

	x := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})
	y, _, err = bn.Forward(x, Train)
	require.NoError(t, err)
	for j := 0; j < 2; j++ {
		col := mat.Col(nil, j, y)
		var sum, sq float64
		for _, v := range col {
			sum += v
			sq += v * v
		}
		assert.InDelta(t, 0, sum/4, 1e-9)
		assert.InDelta(t, 1, sq/4, 1e-4)
	}

	mean, variance := bn.Running()
	assert.InDelta(t, 0.25, mean[0], 1e-9)
	assert.InDelta(t, 2.5, mean[1], 1e-9)
	// 0.9 * 1 + 0.1 * unbiased variance
	assert.InDelta(t, 0.9+0.1*5.0/3.0, variance[0], 1e-9)
	assert.InDelta(t, 0.9+0.1*500.0/3.0, variance[1], 1e-9)
}

func TestDropout(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDropout(0.5, rng)
	x := mat.NewDense(50, 20, nil)
	x.Apply(func(_, _ int, _ float64) float64 {
		return 1
	}, x)

	y, _, err := d.Forward(x, Eval)
	require.NoError(t, err)
	assert.True(t, mat.Equal(x, y))

	y, backward, err := d.Forward(x, Train)
	require.NoError(t, err)
	var zeros int
	r, c := y.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := y.At(i, j)
			if v == 0 {
				zeros++
			} else {
				assert.Equal(t, 2.0, v)
			}
		}
	}
	assert.InDelta(t, 500, zeros, 100)
	// the gradient follows the same mask
	assert.True(t, mat.Equal(y, backward(x)))

	none := NewDropout(0, rng)
	y, _, err = none.Forward(x, Train)
	require.NoError(t, err)
	assert.True(t, mat.Equal(x, y))
}

func TestCrossEntropy(t *testing.T) {

	_, _, err := CrossEntropy(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	logits := mat.NewDense(2, 3, []float64{
		0, 0, 0,
		10, 0, 0,
	})
	_, _, err = CrossEntropy(logits, []int{0, 3})
	assert.ErrorIs(t, err, ErrLabelOutOfRange)

	loss, grad, err := CrossEntropy(logits, []int{1, 0})
	require.NoError(t, err)
	p := math.Exp(10) / (math.Exp(10) + 2)
	expected := (math.Log(3) - math.Log(p)) / 2
	assert.InDelta(t, expected, loss, 1e-9)
	assert.InDelta(t, (1.0/3-1)/2, grad.At(0, 1), 1e-9)
	assert.InDelta(t, (p-1)/2, grad.At(1, 0), 1e-9)
	// each row of the gradient sums to zero
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 0, mat.Sum(grad.RowView(i)), 1e-12)
	}
}

func TestSumSquares(t *testing.T) {
	target := mat.NewDense(2, 2, []float64{
		1, 2,
		3, 4,
	})

	loss, grad, err := SumSquares(mat.DenseCopyOf(target), target)
	require.NoError(t, err)
	assert.Equal(t, 0.0, loss)
	assert.Equal(t, 0.0, mat.Sum(grad))

	rec := mat.NewDense(2, 2, []float64{
		2, 2,
		3, 1,
	})
	loss, grad, err = SumSquares(rec, target)
	require.NoError(t, err)
	// (1 + 9) / 2 samples
	assert.Equal(t, 5.0, loss)
	assert.Equal(t, 1.0, grad.At(0, 0))
	assert.Equal(t, -3.0, grad.At(1, 1))

	_, _, err = SumSquares(mat.NewDense(1, 2, nil), target)
	assert.Error(t, err)
}

func TestAdamW_Minimises(t *testing.T) {
	// minimise |p - target|^2
	p := newParam("p", 1, 3, false)
	target := []float64{1, -2, 3}
	opt := NewAdamW(0.1)
	opt.WeightDecay = 0

	for i := 0; i < 500; i++ {
		ZeroGrad([]*Param{p})
		for j, v := range target {
			p.Grad.Set(0, j, 2*(p.Value.At(0, j)-v))
		}
		opt.Step([]*Param{p})
	}
	assert.Equal(t, 500, opt.Steps())
	for j, v := range target {
		assert.InDelta(t, v, p.Value.At(0, j), 5e-2)
	}
}

func TestAdamW_WeightDecay(t *testing.T) {
	p := newParam("p", 1, 1, false)
	p.Value.Set(0, 0, 1)
	opt := NewAdamW(0.1)
	// with no gradient, only the decay applies
	opt.Step([]*Param{p})
	assert.InDelta(t, 1-0.1*0.01, p.Value.At(0, 0), 1e-12)
}
