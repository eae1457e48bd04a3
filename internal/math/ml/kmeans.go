package ml

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cdipaolo/goml/cluster"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrTooFewSamples is returned when there are less samples than requested clusters.
var ErrTooFewSamples = errors.New("too few samples")

// KMeans runs the goml k-means several times and keeps the run with the lowest inertia.
type KMeans struct {
	k          int
	iterations int
	runs       int
	Centroids  [][]float64
	Inertia    float64
}

// NewKMeans creates a new k-means model for k clusters.
func NewKMeans(k int, iterations int, runs int) *KMeans {
	if runs < 1 {
		runs = 1
	}
	return &KMeans{
		k:          k,
		iterations: iterations,
		runs:       runs,
		Inertia:    math.MaxFloat64,
	}
}

// FitPredict clusters the rows of x and returns the cluster of each row.
func (k *KMeans) FitPredict(x mat.Matrix) ([]int, error) {
	data := Rows(x)
	if k.k < 1 || len(data) < k.k {
		return nil, fmt.Errorf("k-means with %d clusters on %d samples: %w", k.k, len(data), ErrTooFewSamples)
	}
	var best []int
	for r := 0; r < k.runs; r++ {
		model := cluster.NewKMeans(k.k, k.iterations, data)
		// goml reports its progress on the writer, which we dont need
		model.Output = io.Discard
		if err := model.Learn(); err != nil {
			log.Error().
				Err(err).
				Int("k", k.k).
				Int("samples", len(data)).
				Int("run", r).
				Msg("could not train k-means")
			return nil, fmt.Errorf("could not train: %w", err)
		}
		guesses := model.Guesses()
		if len(guesses) != len(data) {
			return nil, fmt.Errorf("could not align guesses with data [ %d | %d ]", len(guesses), len(data))
		}
		inertia := Inertia(data, model.Centroids, guesses)
		if inertia < k.Inertia {
			k.Inertia = inertia
			k.Centroids = model.Centroids
			best = guesses
		}
	}
	if best == nil {
		// all runs produced a non-finite inertia
		return nil, fmt.Errorf("k-means did not produce a finite inertia in %d runs", k.runs)
	}
	return best, nil
}

// Inertia is the sum of squared distances of the samples to their assigned centroid.
func Inertia(data [][]float64, centroids [][]float64, assignment []int) float64 {
	var inertia float64
	for i, x := range data {
		d := floats.Distance(x, centroids[assignment[i]], 2)
		inertia += d * d
	}
	return inertia
}

// Rows copies the rows of x into a slice.
func Rows(x mat.Matrix) [][]float64 {
	r, c := x.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, x)
	}
	return rows
}

// nearest returns the index of the closest centroid and the squared distance to it.
func nearest(x []float64, centroids [][]float64) (int, float64) {
	idx := -1
	min := math.MaxFloat64
	for j, c := range centroids {
		d := floats.Distance(x, c, 2)
		if d*d < min {
			min = d * d
			idx = j
		}
	}
	return idx, min
}
