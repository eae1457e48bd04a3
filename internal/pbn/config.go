package pbn

import (
	"fmt"

	"github.com/drakos74/ncd/internal/discovery"
	ncdmath "github.com/drakos74/ncd/internal/math"
)

// Config defines the architecture of the projection network and the clustering model used for discovery.
type Config struct {
	InputSize        int              `json:"input_size"`
	LatentDim        int              `json:"latent_dim"`
	HiddenLayersDims []int            `json:"hidden_layers_dims"`
	NClasses         int              `json:"n_classes"`
	ActivationFct    string           `json:"activation_fct"`
	UseBatchNorm     bool             `json:"use_batchnorm"`
	PDropout         float64          `json:"p_dropout"`
	UseNorm          string           `json:"use_norm"`
	ClusteringModel  string           `json:"clustering_model"`
	Discovery        discovery.Config `json:"discovery"`
	Seed             int64            `json:"seed"`
}

// DefaultConfig returns a config for the given dimensions,
// with the remaining options set to the defaults of the model.
func DefaultConfig(inputSize, latentDim, nClasses int) Config {
	return Config{
		InputSize:        inputSize,
		LatentDim:        latentDim,
		HiddenLayersDims: []int{},
		NClasses:         nClasses,
		ActivationFct:    ncdmath.ReLU,
		UseBatchNorm:     true,
		PDropout:         0,
		UseNorm:          string(ncdmath.L2),
		ClusteringModel:  discovery.NCDKMeans,
		Discovery:        discovery.DefaultConfig(),
	}
}

// Validate checks the dimensions and the option tokens of the config.
func (c Config) Validate() error {
	if c.InputSize <= 0 {
		return fmt.Errorf("input_size must be positive: %d", c.InputSize)
	}
	if c.LatentDim <= 0 {
		return fmt.Errorf("latent_dim must be positive: %d", c.LatentDim)
	}
	if c.NClasses <= 0 {
		return fmt.Errorf("n_classes must be positive: %d", c.NClasses)
	}
	for i, d := range c.HiddenLayersDims {
		if d <= 0 {
			return fmt.Errorf("hidden layer %d must have positive width: %d", i, d)
		}
	}
	if c.PDropout < 0 || c.PDropout >= 1 {
		return fmt.Errorf("p_dropout must be in [0,1): %v", c.PDropout)
	}
	if _, err := ncdmath.ParseNorm(c.UseNorm); err != nil {
		return fmt.Errorf("invalid use_norm: %w", err)
	}
	if _, err := ncdmath.Activation(c.ActivationFct); err != nil {
		return fmt.Errorf("invalid activation_fct: %w", err)
	}
	return nil
}

// TrainConfig defines the parameters of a training run.
type TrainConfig struct {
	BatchSize int     `json:"batch_size"`
	LR        float64 `json:"lr"`
	Epochs    int     `json:"epochs"`
	// W balances the classification loss against the reconstruction loss.
	// The reconstruction loss grows with the input dimension, so W needs calibration per dataset.
	W              float64 `json:"w"`
	ClusteringRuns int     `json:"clustering_runs"`
	Evaluate       bool    `json:"evaluate"`
	// UnknownClass is the label value marking samples of unknown class in the training set.
	UnknownClass int `json:"unknown_class"`
}

// DefaultTrainConfig returns the default training parameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		BatchSize:      256,
		LR:             1e-3,
		Epochs:         30,
		W:              0.5,
		ClusteringRuns: 10,
		Evaluate:       true,
		UnknownClass:   -1,
	}
}

// Validate checks the training parameters.
func (c TrainConfig) Validate() error {
	if c.BatchSize < 2 {
		return fmt.Errorf("batch_size must be at least 2: %d", c.BatchSize)
	}
	if c.LR <= 0 {
		return fmt.Errorf("lr must be positive: %v", c.LR)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("epochs cannot be negative: %d", c.Epochs)
	}
	if c.W < 0 || c.W > 1 {
		return fmt.Errorf("w must be in [0,1]: %v", c.W)
	}
	if c.Evaluate && c.ClusteringRuns <= 0 {
		return fmt.Errorf("clustering_runs must be positive when evaluating: %d", c.ClusteringRuns)
	}
	return nil
}
