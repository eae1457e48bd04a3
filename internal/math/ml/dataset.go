package ml

import (
	"gonum.org/v1/gonum/mat"
)

// Cluster summarises the samples assigned to one cluster.
type Cluster struct {
	Size     int
	Centroid []float64
}

// Summarise groups the rows of x by their assignment.
func Summarise(x mat.Matrix, assignment []int) map[int]Cluster {
	data := Rows(x)
	clusters := make(map[int]Cluster)
	for i, row := range data {
		c := clusters[assignment[i]]
		if c.Centroid == nil {
			c.Centroid = make([]float64, len(row))
		}
		c.Size++
		for j, v := range row {
			// running mean
			c.Centroid[j] += (v - c.Centroid[j]) / float64(c.Size)
		}
		clusters[assignment[i]] = c
	}
	return clusters
}
