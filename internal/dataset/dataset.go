// Package dataset prepares labeled samples for novel class discovery experiments.
package dataset

import (
	"fmt"
	"math/rand"

	ncdmath "github.com/drakos74/ncd/internal/math"
	"gonum.org/v1/gonum/mat"
)

// Set is a collection of samples, one per row of X, and their labels.
type Set struct {
	X *mat.Dense
	Y []int
}

// Len returns the number of samples.
func (s Set) Len() int {
	return len(s.Y)
}

// Blobs generates n samples from an isotropic gaussian around each of the centers.
// Samples of the i-th center are labeled i.
func Blobs(rng *rand.Rand, centers [][]float64, n int, spread float64) Set {
	dim := len(centers[0])
	x := mat.NewDense(n*len(centers), dim, nil)
	y := make([]int, 0, n*len(centers))
	var row int
	for c, center := range centers {
		for i := 0; i < n; i++ {
			for j := 0; j < dim; j++ {
				x.Set(row, j, center[j]+spread*rng.NormFloat64())
			}
			y = append(y, c)
			row++
		}
	}
	return Set{X: x, Y: y}
}

// Shuffle returns a new set with the samples in random order.
func (s Set) Shuffle(rng *rand.Rand) Set {
	perm := rng.Perm(s.Len())
	return Set{
		X: ncdmath.SelectRows(s.X, perm),
		Y: ncdmath.Pick(s.Y, perm),
	}
}

// Split separates the samples whose label is one of the given classes from the rest.
func (s Set) Split(classes ...int) (Set, Set) {
	in := make(map[int]bool, len(classes))
	for _, c := range classes {
		in[c] = true
	}
	idxIn := ncdmath.Where(s.Y, func(y int) bool {
		return in[y]
	})
	idxOut := ncdmath.Where(s.Y, func(y int) bool {
		return !in[y]
	})
	return s.pick(idxIn), s.pick(idxOut)
}

// TrainTest splits the set, keeping the given ratio of samples for training.
// The order of the samples is preserved.
func (s Set) TrainTest(ratio float64) (Set, Set) {
	n := int(ratio * float64(s.Len()))
	train := make([]int, 0, n)
	test := make([]int, 0, s.Len()-n)
	for i := 0; i < s.Len(); i++ {
		if i < n {
			train = append(train, i)
		} else {
			test = append(test, i)
		}
	}
	return s.pick(train), s.pick(test)
}

// Relabel maps the labels to consecutive values starting at 0, in ascending order of the current labels.
// It returns the mapping applied.
func (s Set) Relabel() (Set, map[int]int) {
	mapping := make(map[int]int)
	for i, y := range ncdmath.Unique(s.Y) {
		mapping[y] = i
	}
	y := make([]int, s.Len())
	for i, v := range s.Y {
		y[i] = mapping[v]
	}
	return Set{X: s.X, Y: y}, mapping
}

// Withhold replaces all labels with the given sentinel.
func (s Set) Withhold(sentinel int) Set {
	y := make([]int, s.Len())
	for i := range y {
		y[i] = sentinel
	}
	return Set{X: s.X, Y: y}
}

// Concat appends the samples of the given sets.
func Concat(sets ...Set) (Set, error) {
	xx := make([]mat.Matrix, 0, len(sets))
	y := make([]int, 0)
	var dim int
	for _, s := range sets {
		if s.Len() == 0 {
			continue
		}
		_, c := s.X.Dims()
		if dim != 0 && c != dim {
			return Set{}, fmt.Errorf("cannot concat sets of %d and %d features", dim, c)
		}
		dim = c
		xx = append(xx, s.X)
		y = append(y, s.Y...)
	}
	return Set{X: ncdmath.StackRows(xx...), Y: y}, nil
}

func (s Set) pick(idx []int) Set {
	return Set{
		X: ncdmath.SelectRows(s.X, idx),
		Y: ncdmath.Pick(s.Y, idx),
	}
}
