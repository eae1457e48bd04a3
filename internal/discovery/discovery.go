// Package discovery groups the latent vectors of unknown classes into clusters.
// Four strategies are available, combining k-means or spectral clustering
// with the option to seed the clustering with the known classes.
package discovery

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/drakos74/go-ex-machina/xmath"
	ncdmath "github.com/drakos74/ncd/internal/math"
	"gonum.org/v1/gonum/mat"
)

const (
	// KMeans clusters the unknown samples only.
	KMeans = "kmeans"
	// NCDKMeans seeds the clustering with the prototypes of the known classes.
	NCDKMeans = "ncd_kmeans"
	// Spectral clusters the spectral embedding of the unknown samples.
	Spectral = "spectral_clustering"
	// NCDSpectral embeds known and unknown samples together and seeds the clustering with the known classes.
	NCDSpectral = "ncd_spectral_clustering"
)

var (
	// ErrUnknownStrategy is returned for clustering model names we dont support.
	ErrUnknownStrategy = errors.New("unknown clustering model")
	// ErrMissingKnown is returned when a seeded strategy is called without known samples.
	ErrMissingKnown = errors.New("missing known samples")
)

// Strategies lists the supported clustering models.
var Strategies = []string{KMeans, NCDKMeans, Spectral, NCDSpectral}

// Strategy assigns each unknown latent vector to one of nClusters clusters.
// known and knownLabels are only used by the seeded strategies and can be nil otherwise.
type Strategy interface {
	Name() string
	Discover(nClusters int, unknown *mat.Dense, known *mat.Dense, knownLabels []int) ([]int, error)
}

// Config defines the clustering parameters.
type Config struct {
	// NInit is the number of initialisations, the best one by inertia is kept
	NInit int `json:"n_init"`
	// Tolerance on the centroid shift for the seeded k-means convergence
	Tolerance float64 `json:"tolerance"`
	// MaxIterations caps the k-means iterations
	MaxIterations int `json:"max_iterations"`
	// MinDist is the distance under which samples are fully connected in the spectral graph
	MinDist float64 `json:"min_dist"`
	// Components of the spectral embedding, 0 means one per expected cluster
	Components int `json:"n_components"`
	// NormedLaplacian uses the symmetric normalised laplacian
	NormedLaplacian bool `json:"normed_laplacian"`
}

// DefaultConfig returns the default clustering parameters.
func DefaultConfig() Config {
	return Config{
		NInit:           10,
		Tolerance:       1e-10,
		MaxIterations:   1000,
		MinDist:         0.6,
		Components:      0,
		NormedLaplacian: true,
	}
}

// New validates the strategy name and creates the corresponding strategy.
func New(name string, cfg Config, rng *rand.Rand) (Strategy, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	switch name {
	case KMeans:
		return &kMeans{cfg: cfg}, nil
	case NCDKMeans:
		return &ncdKMeans{cfg: cfg, rng: rng}, nil
	case Spectral:
		return &spectral{cfg: cfg, rng: rng}, nil
	case NCDSpectral:
		return &ncdSpectral{cfg: cfg, rng: rng}, nil
	}
	return nil, fmt.Errorf("'%s' is not one of %v: %w", name, Strategies, ErrUnknownStrategy)
}

// Prototypes computes the mean latent vector of each known class.
// The prototypes are returned in ascending order of their class.
func Prototypes(known *mat.Dense, labels []int) (*mat.Dense, []int, error) {
	if known == nil || len(labels) == 0 {
		return nil, nil, fmt.Errorf("no samples for prototypes: %w", ErrMissingKnown)
	}
	n, dim := known.Dims()
	if n != len(labels) {
		return nil, nil, fmt.Errorf("cannot align %d samples with %d labels", n, len(labels))
	}
	sums := make(map[int]xmath.Vector)
	counts := make(map[int]int)
	for i, y := range labels {
		s, ok := sums[y]
		if !ok {
			s = xmath.Vec(dim)
		}
		sums[y] = s.Add(ncdmath.Row(known, i))
		counts[y]++
	}
	classes := make([]int, 0, len(sums))
	for y := range sums {
		classes = append(classes, y)
	}
	sort.Ints(classes)
	prototypes := mat.NewDense(len(classes), dim, nil)
	for i, y := range classes {
		prototypes.SetRow(i, sums[y].Mult(1/float64(counts[y])))
	}
	return prototypes, classes, nil
}

func validate(nClusters int, unknown *mat.Dense) error {
	if nClusters < 0 {
		return fmt.Errorf("invalid number of clusters %d", nClusters)
	}
	if unknown == nil {
		return fmt.Errorf("no unknown samples to cluster")
	}
	return nil
}
