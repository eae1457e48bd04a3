package pbn

import (
	"fmt"

	"github.com/drakos74/ncd/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// Predict assigns each unknown sample to one of nClusters new clusters.
// The clustering runs on the latent projection before normalisation.
// The known samples and labels are needed by the strategies seeded with the known classes,
// the others ignore them.
func (m *Model) Predict(nClusters int, xUnknown, xKnown *mat.Dense, yKnown []int) ([]int, error) {
	if xUnknown == nil {
		return nil, fmt.Errorf("no unknown samples to predict")
	}
	zUnknown, err := m.project(xUnknown, nn.Eval)
	if err != nil {
		return nil, err
	}
	var zKnown *mat.Dense
	if xKnown != nil && len(yKnown) > 0 {
		zKnown, err = m.project(xKnown, nn.Eval)
		if err != nil {
			return nil, err
		}
	}
	assignment, err := m.strategy.Discover(nClusters, zUnknown, zKnown, yKnown)
	if err != nil {
		return nil, fmt.Errorf("could not discover %d clusters with '%s': %w", nClusters, m.strategy.Name(), err)
	}
	return assignment, nil
}
