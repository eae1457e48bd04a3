package ml

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SeededKMeans is a k-means where a set of centroids is given upfront and kept fixed,
// while k new centroids are initialised with k-means++ on the data and moved by the lloyd iterations.
// Samples closer to one of the fixed centroids do not contribute to the new ones.
type SeededKMeans struct {
	pre       [][]float64
	k         int
	rng       *rand.Rand
	centroids [][]float64
	// Inertia of the best initialisation.
	Inertia float64
	// Iterations run by the best initialisation.
	Iterations int
	// Converged reports if the best initialisation reached the tolerance.
	Converged bool
}

// NewSeededKMeans creates a k-means seeded with the rows of pre, looking for k additional clusters.
// pre can be nil, in which case it is a plain k-means++.
func NewSeededKMeans(pre mat.Matrix, k int, rng *rand.Rand) *SeededKMeans {
	var rows [][]float64
	if !isEmpty(pre) {
		rows = Rows(pre)
	}
	return &SeededKMeans{
		pre:     rows,
		k:       k,
		rng:     rng,
		Inertia: math.MaxFloat64,
	}
}

// Centroids returns all the centroids, the fixed ones first.
func (s *SeededKMeans) Centroids() *mat.Dense {
	if len(s.centroids) == 0 {
		return nil
	}
	out := mat.NewDense(len(s.centroids), len(s.centroids[0]), nil)
	for i, c := range s.centroids {
		out.SetRow(i, c)
	}
	return out
}

// Fit runs nInit initialisations on x and keeps the one with the lowest inertia.
func (s *SeededKMeans) Fit(x mat.Matrix, tolerance float64, iterations int, nInit int) error {
	if s.k == 0 {
		if len(s.pre) == 0 {
			return fmt.Errorf("seeded k-means without centroids: %w", ErrTooFewSamples)
		}
		// nothing to learn, the fixed centroids are the model
		s.centroids = s.pre
		if !isEmpty(x) {
			data := Rows(x)
			s.Inertia = inertia(data, s.centroids)
		}
		s.Converged = true
		return nil
	}
	if isEmpty(x) {
		return fmt.Errorf("seeded k-means with %d clusters on no samples: %w", s.k, ErrTooFewSamples)
	}
	data := Rows(x)
	if len(data) < s.k {
		return fmt.Errorf("seeded k-means with %d clusters on %d samples: %w", s.k, len(data), ErrTooFewSamples)
	}
	if nInit < 1 {
		nInit = 1
	}
	s.Inertia = math.MaxFloat64
	for n := 0; n < nInit; n++ {
		centroids := s.init(data)
		iter, converged := s.lloyd(data, centroids, tolerance, iterations)
		in := inertia(data, centroids)
		if in < s.Inertia || s.centroids == nil {
			s.Inertia = in
			s.centroids = centroids
			s.Iterations = iter
			s.Converged = converged
		}
	}
	if !s.Converged {
		log.Debug().
			Int("k", s.k).
			Int("fixed", len(s.pre)).
			Int("iterations", s.Iterations).
			Float64("inertia", s.Inertia).
			Msg("seeded k-means did not converge")
	}
	return nil
}

// init picks the new centroids among the data,
// each one with a probability proportional to its squared distance to the closest existing centroid.
func (s *SeededKMeans) init(data [][]float64) [][]float64 {
	centroids := make([][]float64, 0, len(s.pre)+s.k)
	for _, p := range s.pre {
		centroids = append(centroids, floats.ScaleTo(make([]float64, len(p)), 1, p))
	}
	d2 := make([]float64, len(data))
	for c := 0; c < s.k; c++ {
		var idx int
		if len(centroids) == 0 {
			idx = s.rng.Intn(len(data))
		} else {
			for i, x := range data {
				_, d2[i] = nearest(x, centroids)
			}
			idx = s.sample(d2)
		}
		centroids = append(centroids, floats.ScaleTo(make([]float64, len(data[idx])), 1, data[idx]))
	}
	return centroids
}

// sample draws an index with probability proportional to its weight.
func (s *SeededKMeans) sample(weights []float64) int {
	total := floats.Sum(weights)
	if total <= 0 || math.IsInf(total, 0) || math.IsNaN(total) {
		return s.rng.Intn(len(weights))
	}
	r := s.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// lloyd moves the new centroids to the mean of their samples until the shift drops below the tolerance.
func (s *SeededKMeans) lloyd(data [][]float64, centroids [][]float64, tolerance float64, iterations int) (int, bool) {
	fixed := len(s.pre)
	dim := len(data[0])
	for it := 1; it <= iterations; it++ {
		sums := make([][]float64, s.k)
		counts := make([]int, s.k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for _, x := range data {
			j, _ := nearest(x, centroids)
			if j < fixed {
				continue
			}
			floats.Add(sums[j-fixed], x)
			counts[j-fixed]++
		}
		var shift float64
		for c := 0; c < s.k; c++ {
			if counts[c] == 0 {
				// keep empty clusters where they are
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			d := floats.Distance(sums[c], centroids[fixed+c], 2)
			shift += d * d
			centroids[fixed+c] = sums[c]
		}
		if shift <= tolerance {
			return it, true
		}
	}
	return iterations, false
}

// Predict assigns each row of x to the closest of all centroids.
func (s *SeededKMeans) Predict(x mat.Matrix) []int {
	return assign(x, s.centroids)
}

// PredictUnknown assigns each row of x to the closest of the new centroids.
// If no new centroids were requested, the fixed ones are used instead.
func (s *SeededKMeans) PredictUnknown(x mat.Matrix) []int {
	if s.k == 0 {
		return s.Predict(x)
	}
	return assign(x, s.centroids[len(s.pre):])
}

func assign(x mat.Matrix, centroids [][]float64) []int {
	if isEmpty(x) {
		return []int{}
	}
	data := Rows(x)
	labels := make([]int, len(data))
	for i, d := range data {
		labels[i], _ = nearest(d, centroids)
	}
	return labels
}

func inertia(data [][]float64, centroids [][]float64) float64 {
	var sum float64
	for _, x := range data {
		_, d := nearest(x, centroids)
		sum += d
	}
	return sum
}

func isEmpty(x mat.Matrix) bool {
	if x == nil {
		return true
	}
	if d, ok := x.(*mat.Dense); ok && d == nil {
		return true
	}
	return false
}
