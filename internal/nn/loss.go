package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CrossEntropy computes the mean cross entropy of the logits against the labels,
// and the gradient of the loss w.r.t. the logits.
func CrossEntropy(logits *mat.Dense, labels []int) (float64, *mat.Dense, error) {
	if logits == nil || len(labels) == 0 {
		return 0, nil, fmt.Errorf("cross entropy: %w", ErrEmptyBatch)
	}
	n, c := logits.Dims()
	if n != len(labels) {
		return 0, nil, fmt.Errorf("cross entropy on %d logits for %d labels", n, len(labels))
	}
	grad := mat.NewDense(n, c, nil)
	var loss float64
	for i := 0; i < n; i++ {
		y := labels[i]
		if y < 0 || y >= c {
			return 0, nil, fmt.Errorf("label %d for %d classes: %w", y, c, ErrLabelOutOfRange)
		}
		row := logits.RawRowView(i)
		lse := floats.LogSumExp(row)
		loss += lse - row[y]
		g := grad.RawRowView(i)
		for j := 0; j < c; j++ {
			g[j] = math.Exp(row[j]-lse) / float64(n)
		}
		g[y] -= 1 / float64(n)
	}
	return loss / float64(n), grad, nil
}

// SumSquares computes the sum of squared errors of the reconstruction divided by the batch size,
// and the gradient of the loss w.r.t. the reconstruction.
func SumSquares(reconstruction, target *mat.Dense) (float64, *mat.Dense, error) {
	if reconstruction == nil || target == nil {
		return 0, nil, fmt.Errorf("sum of squares: %w", ErrEmptyBatch)
	}
	n, c := target.Dims()
	if rn, rc := reconstruction.Dims(); rn != n || rc != c {
		return 0, nil, fmt.Errorf("sum of squares on [%dx%d] reconstruction for [%dx%d] target", rn, rc, n, c)
	}
	var diff mat.Dense
	diff.Sub(reconstruction, target)
	var loss float64
	for i := 0; i < n; i++ {
		row := diff.RawRowView(i)
		loss += floats.Dot(row, row)
	}
	var grad mat.Dense
	grad.Scale(2/float64(n), &diff)
	return loss / float64(n), &grad, nil
}
