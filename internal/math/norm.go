package math

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrUnknownNorm is returned for normalisation tokens other than none, l1 or l2.
var ErrUnknownNorm = errors.New("unknown normalization")

// Norm defines the row normalisation applied to latent vectors.
type Norm string

const (
	NoNorm Norm = ""
	L1     Norm = "l1"
	L2     Norm = "l2"
)

// ParseNorm validates the normalisation token.
func ParseNorm(token string) (Norm, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "none":
		return NoNorm, nil
	case string(L1):
		return L1, nil
	case string(L2):
		return L2, nil
	}
	return NoNorm, fmt.Errorf("'%s': %w", token, ErrUnknownNorm)
}

// order returns the order of the norm as expected by floats.Norm.
func (n Norm) order() float64 {
	switch n {
	case L1:
		return 1
	case L2:
		return 2
	}
	return 0
}

// RowNorms returns the norm of each row of x.
func RowNorms(x mat.Matrix, n Norm) []float64 {
	r, _ := x.Dims()
	norms := make([]float64, r)
	if n == NoNorm {
		return norms
	}
	for i := 0; i < r; i++ {
		norms[i] = floats.Norm(Row(x, i), n.order())
	}
	return norms
}

// Normalize divides each row of x by its norm.
// Rows with a zero norm are left as they are.
func Normalize(x mat.Matrix, n Norm) *mat.Dense {
	out := mat.DenseCopyOf(x)
	if n == NoNorm {
		return out
	}
	r, _ := out.Dims()
	norms := RowNorms(out, n)
	for i := 0; i < r; i++ {
		if norms[i] == 0 {
			continue
		}
		floats.Scale(1/norms[i], out.RawRowView(i))
	}
	return out
}

// Row copies the i-th row of x.
func Row(x mat.Matrix, i int) []float64 {
	_, c := x.Dims()
	row := make([]float64, c)
	mat.Row(row, i, x)
	return row
}
