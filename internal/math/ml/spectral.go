package ml

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// neighbours is the rank of the neighbour defining the local scale of each sample.
const neighbours = 7

// Spectral builds the spectral embedding of a set of samples.
type Spectral struct {
	// MinDist is the distance under which samples are fully connected.
	MinDist float64
	// Normed selects the symmetric normalised laplacian instead of D - A.
	Normed bool
}

// Affinity builds the similarity graph of the rows of x.
// Distances are reduced by MinDist and scaled by the local density of each sample,
// a_ij = exp(-d_ij^2 / (s_i * s_j)) where s_i is the distance to the 7th closest sample.
func (s Spectral) Affinity(x mat.Matrix) *mat.SymDense {
	data := Rows(x)
	n := len(data)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := math.Max(0, floats.Distance(data[i], data[j], 2)-s.MinDist)
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	scale := make([]float64, n)
	k := neighbours
	if k > n-1 {
		k = n - 1
	}
	for i := 0; i < n; i++ {
		if k < 1 {
			scale[i] = 1
			continue
		}
		row := append([]float64(nil), dist[i]...)
		sort.Float64s(row)
		// row[0] is the sample itself
		scale[i] = row[k]
	}

	a := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := dist[i][j]
			var w float64
			switch {
			case d == 0:
				w = 1
			case scale[i]*scale[j] == 0:
				w = 0
			default:
				w = math.Exp(-d * d / (scale[i] * scale[j]))
			}
			a.SetSym(i, j, w)
		}
	}
	return a
}

// Laplacian returns the graph laplacian of the affinity matrix.
func (s Spectral) Laplacian(a *mat.SymDense) *mat.SymDense {
	n := a.Symmetric()
	degree := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			degree[i] += a.At(i, j)
		}
	}
	l := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			w := a.At(i, j)
			if !s.Normed {
				if i == j {
					l.SetSym(i, j, degree[i]-w)
				} else {
					l.SetSym(i, j, -w)
				}
				continue
			}
			var v float64
			if degree[i] > 0 && degree[j] > 0 {
				v = -w / math.Sqrt(degree[i]*degree[j])
			}
			if i == j && degree[i] > 0 {
				v += 1
			}
			l.SetSym(i, j, v)
		}
	}
	return l
}

// Embed projects the rows of x onto the eigenvectors of the laplacian with the smallest eigenvalues.
// Each embedded row is scaled to unit length.
func (s Spectral) Embed(x mat.Matrix, components int) (*mat.Dense, error) {
	if isEmpty(x) {
		return nil, fmt.Errorf("spectral embedding on no samples: %w", ErrTooFewSamples)
	}
	n, _ := x.Dims()
	if components < 1 || components > n {
		return nil, fmt.Errorf("spectral embedding of %d components on %d samples: %w", components, n, ErrTooFewSamples)
	}
	l := s.Laplacian(s.Affinity(x))

	var eigen mat.EigenSym
	if ok := eigen.Factorize(l, true); !ok {
		return nil, fmt.Errorf("could not factorize laplacian of %d samples", n)
	}
	var vectors mat.Dense
	eigen.VectorsTo(&vectors)

	// eigenvalues come in ascending order
	embedding := mat.NewDense(n, components, nil)
	embedding.Copy(vectors.Slice(0, n, 0, components))
	for i := 0; i < n; i++ {
		row := embedding.RawRowView(i)
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}
	return embedding, nil
}
