// Package pbn implements the projection based network for novel class discovery.
// A shared encoder projects the samples into a latent space that is trained jointly
// to reconstruct the input and to classify the known classes.
// Novel classes are then discovered by clustering the latent vectors of the unknown samples.
package pbn

import (
	"fmt"
	"math/rand"

	xml "github.com/drakos74/go-ex-machina/xmachina/ml"
	"github.com/drakos74/ncd/internal/discovery"
	ncdmath "github.com/drakos74/ncd/internal/math"
	"github.com/drakos74/ncd/internal/nn"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model holds the encoder, decoder and classifier of the projection network.
type Model struct {
	cfg        Config
	norm       ncdmath.Norm
	projection *nn.Sequential
	encoder    *nn.Sequential
	decoder    *nn.Sequential
	classifier *nn.Linear
	strategy   discovery.Strategy
}

// New creates a new model for the given config.
// Unknown normalisation, activation or clustering model tokens are reported immediately.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("could not create model: %w", err)
	}
	norm, err := ncdmath.ParseNorm(cfg.UseNorm)
	if err != nil {
		return nil, fmt.Errorf("could not create model: %w", err)
	}
	activation, err := ncdmath.Activation(cfg.ActivationFct)
	if err != nil {
		return nil, fmt.Errorf("could not create model: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	strategy, err := discovery.New(cfg.ClusteringModel, cfg.Discovery, rand.New(rand.NewSource(rng.Int63())))
	if err != nil {
		return nil, fmt.Errorf("could not create model: %w", err)
	}

	dims := append(append([]int{}, cfg.HiddenLayersDims...), cfg.LatentDim)

	// encoder : linear first, then {activation, batch-norm, dropout, linear} for every following width
	projection := nn.NewSequential(nn.NewLinear(cfg.InputSize, dims[0], rng))
	for i := 1; i < len(dims); i++ {
		regularize(projection, cfg, activation, dims[i-1], rng)
		projection.Add(nn.NewLinear(dims[i-1], dims[i], rng))
	}
	// the normalised output feeds the decoder and the classifier, clustering works on the projection
	encoder := nn.NewSequential(projection, nn.NewNormalization(norm))

	// decoder : {linear, activation, batch-norm, dropout} for every width in reverse, then linear back to the input
	decoder := nn.NewSequential()
	for i := len(dims) - 1; i > 0; i-- {
		decoder.Add(nn.NewLinear(dims[i], dims[i-1], rng))
		regularize(decoder, cfg, activation, dims[i-1], rng)
	}
	decoder.Add(nn.NewLinear(dims[0], cfg.InputSize, rng))

	m := &Model{
		cfg:        cfg,
		norm:       norm,
		projection: projection,
		encoder:    encoder,
		decoder:    decoder,
		classifier: nn.NewLinear(cfg.LatentDim, cfg.NClasses, rng),
		strategy:   strategy,
	}

	log.Debug().
		Ints("dims", dims).
		Str("norm", string(norm)).
		Str("clustering", strategy.Name()).
		Int("encoder", len(projection.Layers())).
		Int("decoder", len(decoder.Layers())).
		Msg("created model")

	return m, nil
}

// regularize appends the optional stages following a projection of the given width.
func regularize(s *nn.Sequential, cfg Config, activation xml.Activation, width int, rng *rand.Rand) {
	if activation != nil {
		s.Add(nn.NewActivation(activation))
	}
	if cfg.UseBatchNorm {
		s.Add(nn.NewBatchNorm(width))
	}
	if cfg.PDropout > 0 {
		s.Add(nn.NewDropout(cfg.PDropout, rng))
	}
}

// Config returns the config of the model.
func (m *Model) Config() Config {
	return m.cfg
}

// Strategy returns the clustering strategy used for discovery.
func (m *Model) Strategy() discovery.Strategy {
	return m.strategy
}

// Params returns all trainable parameters of the model.
func (m *Model) Params() []*nn.Param {
	params := m.encoder.Params()
	params = append(params, m.decoder.Params()...)
	return append(params, m.classifier.Params()...)
}

// Encode projects the samples into the latent space, normalised as configured.
func (m *Model) Encode(x *mat.Dense, mode nn.Mode) (*mat.Dense, error) {
	z, _, err := m.encoder.Forward(x, mode)
	if err != nil {
		return nil, fmt.Errorf("could not encode: %w", err)
	}
	return z, nil
}

// project computes the latent vectors before normalisation.
func (m *Model) project(x *mat.Dense, mode nn.Mode) (*mat.Dense, error) {
	z, _, err := m.projection.Forward(x, mode)
	if err != nil {
		return nil, fmt.Errorf("could not project: %w", err)
	}
	return z, nil
}

// Decode reconstructs the input from the latent vectors.
func (m *Model) Decode(z *mat.Dense, mode nn.Mode) (*mat.Dense, error) {
	x, _, err := m.decoder.Forward(z, mode)
	if err != nil {
		return nil, fmt.Errorf("could not decode: %w", err)
	}
	return x, nil
}

// Classify computes the logits of the known classes for the latent vectors.
func (m *Model) Classify(z *mat.Dense) (*mat.Dense, error) {
	logits, _, err := m.classifier.Forward(z, nn.Eval)
	if err != nil {
		return nil, fmt.Errorf("could not classify: %w", err)
	}
	return logits, nil
}

// ClassifyAccuracy is the ratio of samples for which the most probable known class matches the label.
// Samples labeled with the unknown sentinel are ignored.
func (m *Model) ClassifyAccuracy(x *mat.Dense, y []int, unknownClass int) (float64, error) {
	known := ncdmath.Where(y, func(label int) bool {
		return label != unknownClass
	})
	if len(known) == 0 {
		return 0, fmt.Errorf("no known samples to classify: %w", nn.ErrEmptyBatch)
	}
	xk := x
	if len(known) < len(y) {
		xk = ncdmath.SelectRows(x, known)
	}
	z, err := m.Encode(xk, nn.Eval)
	if err != nil {
		return 0, err
	}
	logits, err := m.Classify(z)
	if err != nil {
		return 0, err
	}
	var correct int
	for i, idx := range known {
		p := xml.SoftMax{}.F(ncdmath.Row(logits, i))
		if floats.MaxIdx(p) == y[idx] {
			correct++
		}
	}
	return float64(correct) / float64(len(known)), nil
}
