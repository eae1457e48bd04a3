package discovery

import (
	"fmt"
	"math/rand"

	"github.com/drakos74/ncd/internal/math/ml"
	"gonum.org/v1/gonum/mat"
)

type kMeans struct {
	cfg Config
}

func (k *kMeans) Name() string {
	return KMeans
}

func (k *kMeans) Discover(nClusters int, unknown *mat.Dense, _ *mat.Dense, _ []int) ([]int, error) {
	if err := validate(nClusters, unknown); err != nil {
		return nil, err
	}
	assignment, err := ml.NewKMeans(nClusters, k.cfg.MaxIterations, k.cfg.NInit).FitPredict(unknown)
	if err != nil {
		return nil, fmt.Errorf("could not cluster unknown samples: %w", err)
	}
	return assignment, nil
}

type ncdKMeans struct {
	cfg Config
	rng *rand.Rand
}

func (k *ncdKMeans) Name() string {
	return NCDKMeans
}

func (k *ncdKMeans) Discover(nClusters int, unknown *mat.Dense, known *mat.Dense, knownLabels []int) ([]int, error) {
	if err := validate(nClusters, unknown); err != nil {
		return nil, err
	}
	prototypes, _, err := Prototypes(known, knownLabels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NCDKMeans, err)
	}
	kmeans := ml.NewSeededKMeans(prototypes, nClusters, k.rng)
	if err := kmeans.Fit(unknown, k.cfg.Tolerance, k.cfg.MaxIterations, k.cfg.NInit); err != nil {
		return nil, fmt.Errorf("could not fit seeded k-means: %w", err)
	}
	return kmeans.PredictUnknown(unknown), nil
}
