package pbn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/drakos74/ncd/internal/dataset"
	"github.com/drakos74/ncd/internal/discovery"
	ncdmath "github.com/drakos74/ncd/internal/math"
	"github.com/drakos74/ncd/internal/nn"
	"github.com/drakos74/ncd/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var quadrants = [][]float64{{4, 4}, {-4, 4}, {-4, -4}, {4, -4}}

func randDense(rng *rand.Rand, r, c int) *mat.Dense {
	x := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}
	return x
}

func snapshot(params []*nn.Param) []*mat.Dense {
	values := make([]*mat.Dense, len(params))
	for i, p := range params {
		values[i] = mat.DenseCopyOf(p.Value)
	}
	return values
}

type counter struct {
	batches int
	epochs  []EpochRecord
}

func (c *counter) OnBatch(record BatchRecord) {
	c.batches++
}

func (c *counter) OnEpoch(record EpochRecord) {
	c.epochs = append(c.epochs, record)
}

func TestNew_Errors(t *testing.T) {

	type test struct {
		update func(cfg *Config)
		err    error
	}

	tests := map[string]test{
		"unknown-norm": {
			update: func(cfg *Config) {
				cfg.UseNorm = "l3"
			},
			err: ncdmath.ErrUnknownNorm,
		},
		"unknown-clustering-model": {
			update: func(cfg *Config) {
				cfg.ClusteringModel = "foo"
			},
			err: discovery.ErrUnknownStrategy,
		},
		"unknown-activation": {
			update: func(cfg *Config) {
				cfg.ActivationFct = "swish"
			},
			err: ncdmath.ErrUnknownActivation,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig(4, 2, 3)
			tt.update(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err), err.Error())
		})
	}
}

func TestConfig_Validate(t *testing.T) {

	tests := map[string]func(cfg *Config){
		"input":   func(cfg *Config) { cfg.InputSize = 0 },
		"latent":  func(cfg *Config) { cfg.LatentDim = -1 },
		"classes": func(cfg *Config) { cfg.NClasses = 0 },
		"hidden":  func(cfg *Config) { cfg.HiddenLayersDims = []int{4, 0} },
		"dropout": func(cfg *Config) { cfg.PDropout = 1 },
	}

	for name, update := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig(4, 2, 3)
			assert.NoError(t, cfg.Validate())
			update(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNew_Architecture(t *testing.T) {
	cfg := DefaultConfig(5, 2, 3)
	cfg.HiddenLayersDims = []int{8, 4}
	cfg.PDropout = 0.1

	m, err := New(cfg)
	require.NoError(t, err)

	types := func(s *nn.Sequential) []string {
		tt := make([]string, len(s.Layers()))
		for i, l := range s.Layers() {
			switch l.(type) {
			case *nn.Linear:
				tt[i] = "linear"
			case *nn.Activation:
				tt[i] = "activation"
			case *nn.BatchNorm:
				tt[i] = "batchnorm"
			case *nn.Dropout:
				tt[i] = "dropout"
			case *nn.Normalization:
				tt[i] = "norm"
			case *nn.Sequential:
				tt[i] = "projection"
			}
		}
		return tt
	}

	assert.Equal(t, []string{
		"linear",
		"activation", "batchnorm", "dropout", "linear",
		"activation", "batchnorm", "dropout", "linear",
	}, types(m.projection))
	assert.Equal(t, []string{"projection", "norm"}, types(m.encoder))
	assert.Equal(t, []string{
		"linear", "activation", "batchnorm", "dropout",
		"linear", "activation", "batchnorm", "dropout",
		"linear",
	}, types(m.decoder))

	rng := rand.New(rand.NewSource(1))
	x := randDense(rng, 6, 5)
	z, err := m.Encode(x, nn.Train)
	require.NoError(t, err)
	r, c := z.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 2, c)

	rec, err := m.Decode(z, nn.Train)
	require.NoError(t, err)
	r, c = rec.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 5, c)

	logits, err := m.Classify(z)
	require.NoError(t, err)
	_, c = logits.Dims()
	assert.Equal(t, 3, c)

	assert.Equal(t, discovery.NCDKMeans, m.Strategy().Name())
}

func TestModel_EncodeNorm(t *testing.T) {

	type test struct {
		norm  string
		order float64
	}

	tests := map[string]test{
		"l2": {norm: "l2", order: 2},
		"l1": {norm: "l1", order: 1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig(5, 3, 2)
			cfg.HiddenLayersDims = []int{8, 4}
			cfg.PDropout = 0.2
			cfg.UseNorm = tt.norm
			m, err := New(cfg)
			require.NoError(t, err)

			x := randDense(rand.New(rand.NewSource(2)), 16, 5)
			for _, mode := range []nn.Mode{nn.Train, nn.Eval} {
				z, err := m.Encode(x, mode)
				require.NoError(t, err)
				for i := 0; i < 16; i++ {
					assert.InDelta(t, 1, floats.Norm(ncdmath.Row(z, i), tt.order), 1e-9)
				}
			}
		})
	}
}

func TestModel_EvalIsDeterministic(t *testing.T) {
	cfg := DefaultConfig(5, 3, 2)
	cfg.HiddenLayersDims = []int{8}
	cfg.PDropout = 0.5
	m, err := New(cfg)
	require.NoError(t, err)

	x := randDense(rand.New(rand.NewSource(3)), 10, 5)
	z1, err := m.Encode(x, nn.Eval)
	require.NoError(t, err)
	z2, err := m.Encode(x, nn.Eval)
	require.NoError(t, err)
	assert.True(t, mat.Equal(z1, z2))
}

func TestModel_Step(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	cfg := DefaultConfig(2, 2, 4)
	cfg.HiddenLayersDims = []int{6}
	m, err := New(cfg)
	require.NoError(t, err)

	data := dataset.Blobs(rng, quadrants, 5, 0.5).Shuffle(rng)
	// the first samples are of unknown class
	y := append([]int{}, data.Y...)
	y[0] = -1
	y[1] = -1

	opt := nn.NewAdamW(0.05)
	var first, last BatchRecord
	for i := 0; i < 50; i++ {
		record, ok, err := m.Step(opt, data.X, y, 0.5, -1)
		require.NoError(t, err)
		require.True(t, ok)
		if i == 0 {
			first = record
		}
		last = record
	}
	assert.Equal(t, 20, first.Size)
	assert.Equal(t, 18, first.Known)
	assert.Equal(t, 50, opt.Steps())
	assert.True(t, first.MSELoss >= 0)
	assert.InDelta(t, 0.5*first.CELoss+0.5*first.MSELoss, first.Loss, 1e-12)
	assert.Less(t, last.Loss, first.Loss)
}

type capture struct {
	unknown *mat.Dense
	known   *mat.Dense
}

func (c *capture) Name() string {
	return "capture"
}

func (c *capture) Discover(nClusters int, unknown *mat.Dense, known *mat.Dense, knownLabels []int) ([]int, error) {
	c.unknown = unknown
	c.known = known
	r, _ := unknown.Dims()
	return make([]int, r), nil
}

func TestModel_PredictOnProjection(t *testing.T) {
	cfg := DefaultConfig(5, 3, 2)
	cfg.HiddenLayersDims = []int{8}
	cfg.UseNorm = "l2"
	m, err := New(cfg)
	require.NoError(t, err)
	c := new(capture)
	m.strategy = c

	rng := rand.New(rand.NewSource(8))
	xUnknown := randDense(rng, 12, 5)
	xKnown := randDense(rng, 6, 5)
	predicted, err := m.Predict(2, xUnknown, xKnown, []int{0, 0, 0, 1, 1, 1})
	require.NoError(t, err)
	assert.Len(t, predicted, 12)

	unitNorm := func(z *mat.Dense) bool {
		r, _ := z.Dims()
		for i := 0; i < r; i++ {
			if math.Abs(floats.Norm(ncdmath.Row(z, i), 2)-1) > 1e-6 {
				return false
			}
		}
		return true
	}

	require.NotNil(t, c.unknown)
	require.NotNil(t, c.known)
	assert.False(t, unitNorm(c.unknown))
	assert.False(t, unitNorm(c.known))

	// the same samples are unit norm on the encoder output
	z, err := m.Encode(xUnknown, nn.Eval)
	require.NoError(t, err)
	assert.True(t, unitNorm(z))

	projected, err := m.project(xUnknown, nn.Eval)
	require.NoError(t, err)
	assert.True(t, mat.Equal(projected, c.unknown))
	assert.True(t, mat.EqualApprox(z, ncdmath.Normalize(projected, ncdmath.L2), 1e-12))
}

func TestModel_StepSkipsSmallBatch(t *testing.T) {
	cfg := DefaultConfig(2, 2, 4)
	cfg.HiddenLayersDims = []int{6}
	m, err := New(cfg)
	require.NoError(t, err)

	params := m.Params()
	before := snapshot(params)

	opt := nn.NewAdamW(0.05)
	record, ok, err := m.Step(opt, mat.NewDense(1, 2, []float64{1, 2}), []int{0}, 0.5, -1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, BatchRecord{}, record)
	assert.Equal(t, 0, opt.Steps())
	for i, p := range params {
		assert.True(t, mat.Equal(before[i], p.Value), p.String())
	}
}

func TestModel_StepWithoutKnownSamples(t *testing.T) {
	cfg := DefaultConfig(2, 2, 4)
	m, err := New(cfg)
	require.NoError(t, err)

	params := m.Params()
	before := snapshot(params)

	opt := nn.NewAdamW(0.05)
	_, ok, err := m.Step(opt, mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}), []int{-1, -1, -1}, 0.5, -1)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, nn.ErrEmptyBatch))
	assert.Equal(t, 0, opt.Steps())
	for i, p := range params {
		assert.True(t, mat.Equal(before[i], p.Value), p.String())
	}
}

func trainingData(rng *rand.Rand) Data {
	return Data{
		Train:       dataset.Blobs(rng, quadrants, 50, 0.5).Shuffle(rng),
		TestKnown:   dataset.Blobs(rng, quadrants, 10, 0.5),
		TestUnknown: dataset.Blobs(rng, [][]float64{{0, 12}, {12, 0}}, 10, 0.5),
	}
}

func TestModel_Train(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	data := trainingData(rng)

	cfg := DefaultConfig(2, 2, 4)
	cfg.UseNorm = "none"
	cfg.Seed = 5
	m, err := New(cfg)
	require.NoError(t, err)

	trainCfg := TrainConfig{
		BatchSize:      20,
		LR:             0.05,
		Epochs:         5,
		W:              0.5,
		ClusteringRuns: 3,
		Evaluate:       true,
		UnknownClass:   -1,
	}

	c := new(counter)
	history, err := m.Train(data, trainCfg, nil, c, LogObserver{Run: "test"})
	require.NoError(t, err)

	assert.Equal(t, 5, history.Epochs())
	for name, series := range history.Series() {
		assert.Len(t, series, 5, name)
	}
	assert.Equal(t, 50, c.batches)
	require.Len(t, c.epochs, 5)
	for i, e := range c.epochs {
		assert.Equal(t, i, e.Epoch)
		assert.Equal(t, 10, e.Batches)
		require.NotNil(t, e.Evaluation)
	}

	acc := history.TrainClassificationAccuracy
	for i := 1; i < len(acc); i++ {
		assert.GreaterOrEqual(t, acc[i], acc[i-1], "epoch %d", i)
		if acc[i-1] < 1 {
			assert.Greater(t, acc[i], acc[i-1], "epoch %d", i)
		}
	}
	assert.Greater(t, acc[4], 0.9)
	assert.Greater(t, history.TestClassificationAccuracy[4], 0.9)
	assert.Less(t, history.TrainLosses[4], history.TrainLosses[0])
	for _, a := range history.TestAverageClusteringAccuracy {
		assert.True(t, a >= 0.5 && a <= 1, a)
	}

	predicted, err := m.Predict(2, data.TestUnknown.X, data.TestKnown.X, data.TestKnown.Y)
	require.NoError(t, err)
	assert.Len(t, predicted, data.TestUnknown.Len())
	for _, p := range predicted {
		assert.True(t, p == 0 || p == 1, p)
	}
}

func TestModel_TrainSkipsLastBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	data := dataset.Blobs(rng, quadrants, 5, 0.5).Shuffle(rng)
	extra := dataset.Blobs(rng, quadrants[:1], 1, 0.5)
	train, err := dataset.Concat(data, extra)
	require.NoError(t, err)
	require.Equal(t, 21, train.Len())

	m, err := New(DefaultConfig(2, 2, 4))
	require.NoError(t, err)

	c := new(counter)
	cfg := DefaultTrainConfig()
	cfg.BatchSize = 20
	cfg.Epochs = 2
	cfg.Evaluate = false
	opt := nn.NewAdamW(cfg.LR)
	history, err := m.Train(Data{Train: train}, cfg, opt, c)
	require.NoError(t, err)

	assert.Equal(t, 2, opt.Steps())
	assert.Equal(t, 2, c.batches)
	assert.Equal(t, 1, c.epochs[0].Batches)
	assert.Nil(t, c.epochs[0].Evaluation)
	assert.Len(t, history.TrainLosses, 2)
	assert.Empty(t, history.TestAverageClusteringAccuracy)
}

func TestModel_TrainErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := trainingData(rng)

	type test struct {
		data   Data
		update func(cfg *TrainConfig)
		err    error
	}

	tests := map[string]test{
		"batch-size": {
			data: data,
			update: func(cfg *TrainConfig) {
				cfg.BatchSize = 1
			},
		},
		"weight": {
			data: data,
			update: func(cfg *TrainConfig) {
				cfg.W = 1.5
			},
		},
		"missing-test-data": {
			data:   Data{Train: data.Train},
			update: func(cfg *TrainConfig) {},
		},
		"single-sample": {
			data: Data{Train: dataset.Blobs(rng, quadrants[:1], 1, 0.5)},
			update: func(cfg *TrainConfig) {
				cfg.Evaluate = false
			},
			err: nn.ErrBatchTooSmall,
		},
		"unknown-batch": {
			data: Data{Train: data.Train.Withhold(-1)},
			update: func(cfg *TrainConfig) {
				cfg.Evaluate = false
			},
			err: nn.ErrEmptyBatch,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := New(DefaultConfig(2, 2, 4))
			require.NoError(t, err)
			cfg := DefaultTrainConfig()
			cfg.Epochs = 1
			cfg.BatchSize = 20
			tt.update(&cfg)
			_, err = m.Train(tt.data, cfg, nil)
			require.Error(t, err)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), err.Error())
			}
		})
	}
}

func TestModel_ClassifyAccuracy(t *testing.T) {
	m, err := New(DefaultConfig(2, 2, 4))
	require.NoError(t, err)

	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	_, err = m.ClassifyAccuracy(x, []int{-1, -1, -1}, -1)
	assert.True(t, errors.Is(err, nn.ErrEmptyBatch))

	acc, err := m.ClassifyAccuracy(x, []int{0, -1, 1}, -1)
	require.NoError(t, err)
	assert.True(t, acc == 0 || acc == 0.5 || acc == 1, acc)
}

func TestHistory_Append(t *testing.T) {
	h0 := NewHistory()
	h1 := h0.Append(EpochRecord{Loss: 1, CELoss: 2, MSELoss: 3})
	h2 := h1.Append(EpochRecord{Loss: 0.5, Evaluation: &Evaluation{
		TrainAccuracy:      0.9,
		TestAccuracy:       0.8,
		ClusteringAccuracy: 0.7,
		ClusteringStd:      0.1,
	}})
	h1bis := h1.Append(EpochRecord{Loss: 0.1})

	assert.Equal(t, 0, h0.Epochs())
	assert.Equal(t, []float64{1}, h1.TrainLosses)
	assert.Equal(t, []float64{1, 0.5}, h2.TrainLosses)
	assert.Equal(t, []float64{1, 0.1}, h1bis.TrainLosses)
	assert.Empty(t, h1.TrainClassificationAccuracy)
	assert.Equal(t, []float64{0.9}, h2.TrainClassificationAccuracy)
	assert.Equal(t, []float64{0.8}, h2.TestClassificationAccuracy)
	assert.Equal(t, []float64{0.7}, h2.TestAverageClusteringAccuracy)
	assert.Equal(t, []float64{0.1}, h2.TestClusteringAccuracyStdev)
	assert.Len(t, h2.Series(), 7)
}

func TestHistory_SaveAndLoad(t *testing.T) {
	store := storage.NewMemoryStorage()
	h := NewHistory().Append(EpochRecord{Loss: 1, CELoss: 2, MSELoss: 3})

	err := SaveHistory(store, "run", h)
	require.NoError(t, err)

	loaded, err := LoadHistory(store, "run")
	require.NoError(t, err)
	assert.Equal(t, h, loaded)

	_, err = LoadHistory(store, "other")
	assert.True(t, errors.Is(err, storage.NotFoundErr))

	_, err = LoadHistory(storage.NewVoidStorage(), "run")
	assert.True(t, errors.Is(err, storage.NotFoundErr))
	assert.False(t, math.IsNaN(loaded.TrainLosses[0]))
}
