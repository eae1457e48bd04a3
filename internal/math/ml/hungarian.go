package ml

import (
	"fmt"
	"math"
)

// HungarianAccuracy returns the fraction of samples whose predicted cluster matches the true label,
// after mapping the cluster ids to the labels with the assignment that maximises the matches.
func HungarianAccuracy(predicted, truth []int) (float64, error) {
	if len(predicted) != len(truth) {
		return 0, fmt.Errorf("cannot match %d predictions with %d labels", len(predicted), len(truth))
	}
	if len(truth) == 0 {
		return 0, fmt.Errorf("cannot match empty predictions: %w", ErrTooFewSamples)
	}

	pIndex := index(predicted)
	tIndex := index(truth)
	n := len(pIndex)
	if len(tIndex) > n {
		n = len(tIndex)
	}

	// co-occurrence of each predicted id with each true id
	counts := make([][]float64, n)
	for i := range counts {
		counts[i] = make([]float64, n)
	}
	var max float64
	for i := range predicted {
		p, t := pIndex[predicted[i]], tIndex[truth[i]]
		counts[p][t]++
		max = math.Max(max, counts[p][t])
	}

	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, n)
		for j := range cost[i] {
			cost[i][j] = max - counts[i][j]
		}
	}

	var matched float64
	for i, j := range Assign(cost) {
		matched += counts[i][j]
	}
	return matched / float64(len(truth)), nil
}

// index maps each distinct value to a dense index, in order of appearance.
func index(ii []int) map[int]int {
	idx := make(map[int]int)
	for _, i := range ii {
		if _, ok := idx[i]; !ok {
			idx[i] = len(idx)
		}
	}
	return idx
}

// Assign solves the minimum cost assignment of the rows to the columns of a square cost matrix.
// It returns the column assigned to each row.
func Assign(cost [][]float64) []int {
	n := len(cost)
	// potentials and matching are 1-indexed, 0 is a virtual column
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)
	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
			if j0 == 0 {
				break
			}
		}
	}
	assignment := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			assignment[p[j]-1] = j - 1
		}
	}
	return assignment
}
