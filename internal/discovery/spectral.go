package discovery

import (
	"fmt"
	"math/rand"

	ncdmath "github.com/drakos74/ncd/internal/math"
	"github.com/drakos74/ncd/internal/math/ml"
	"gonum.org/v1/gonum/mat"
)

type spectral struct {
	cfg Config
	rng *rand.Rand
}

func (s *spectral) Name() string {
	return Spectral
}

func (s *spectral) Discover(nClusters int, unknown *mat.Dense, _ *mat.Dense, _ []int) ([]int, error) {
	if err := validate(nClusters, unknown); err != nil {
		return nil, err
	}
	embedding, err := embed(s.cfg, unknown, nClusters)
	if err != nil {
		return nil, err
	}
	kmeans := ml.NewSeededKMeans(nil, nClusters, s.rng)
	if err := kmeans.Fit(embedding, s.cfg.Tolerance, s.cfg.MaxIterations, s.cfg.NInit); err != nil {
		return nil, fmt.Errorf("could not cluster spectral embedding: %w", err)
	}
	return kmeans.PredictUnknown(embedding), nil
}

type ncdSpectral struct {
	cfg Config
	rng *rand.Rand
}

func (s *ncdSpectral) Name() string {
	return NCDSpectral
}

func (s *ncdSpectral) Discover(nClusters int, unknown *mat.Dense, known *mat.Dense, knownLabels []int) ([]int, error) {
	if err := validate(nClusters, unknown); err != nil {
		return nil, err
	}
	if known == nil || len(knownLabels) == 0 {
		return nil, fmt.Errorf("%s: %w", NCDSpectral, ErrMissingKnown)
	}
	nKnown, _ := known.Dims()
	nUnknown, _ := unknown.Dims()

	classes := len(ncdmath.Unique(knownLabels))
	embedding, err := embed(s.cfg, ncdmath.StackRows(known, unknown), classes+nClusters)
	if err != nil {
		return nil, err
	}
	knownEmbedding := ncdmath.SliceRows(embedding, 0, nKnown)
	unknownEmbedding := ncdmath.SliceRows(embedding, nKnown, nKnown+nUnknown)

	prototypes, _, err := Prototypes(knownEmbedding, knownLabels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NCDSpectral, err)
	}
	kmeans := ml.NewSeededKMeans(prototypes, nClusters, s.rng)
	if err := kmeans.Fit(unknownEmbedding, s.cfg.Tolerance, s.cfg.MaxIterations, s.cfg.NInit); err != nil {
		return nil, fmt.Errorf("could not cluster spectral embedding: %w", err)
	}
	return kmeans.PredictUnknown(unknownEmbedding), nil
}

func embed(cfg Config, x *mat.Dense, clusters int) (*mat.Dense, error) {
	components := cfg.Components
	if components == 0 {
		components = clusters
	}
	embedding, err := ml.Spectral{
		MinDist: cfg.MinDist,
		Normed:  cfg.NormedLaplacian,
	}.Embed(x, components)
	if err != nil {
		return nil, fmt.Errorf("could not embed samples: %w", err)
	}
	return embedding, nil
}
