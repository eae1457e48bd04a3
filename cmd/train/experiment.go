package main

import (
	"fmt"
	"math/rand"

	"github.com/drakos74/ncd/internal/dataset"
	"github.com/drakos74/ncd/internal/pbn"
	"github.com/drakos74/ncd/internal/storage"
	"github.com/drakos74/ncd/internal/storage/file/json"
)

const (
	JsonStorage   = "json"
	MemoryStorage = "memory"
	VoidStorage   = "void"
)

// Experiment is the config of a training run on synthetic data.
type Experiment struct {
	Model           pbn.Config      `json:"model"`
	Train           pbn.TrainConfig `json:"train"`
	Data            Data            `json:"data"`
	Storage         string          `json:"storage"`
	UseMetrics      bool            `json:"use_metrics"`
	MetricsPort     int             `json:"metrics_port"`
	DisableProgress bool            `json:"disable_progress"`
	Debug           bool            `json:"debug"`
}

// Shard returns the storage of the run artifacts, json files if none is configured.
func (e Experiment) Shard() (storage.Shard, error) {
	switch e.Storage {
	case "", JsonStorage:
		return json.BlobShard(storage.HistoryDir), nil
	case MemoryStorage:
		return storage.MemoryShard(), nil
	case VoidStorage:
		return storage.VoidShard(storage.HistoryDir), nil
	}
	return nil, fmt.Errorf("unknown storage '%s'", e.Storage)
}

// Data defines the synthetic dataset.
// There is one gaussian blob per class, the known classes being the first n_classes of the model.
type Data struct {
	UnknownClasses int     `json:"unknown_classes"`
	Samples        int     `json:"samples"`
	Distance       float64 `json:"distance"`
	Spread         float64 `json:"spread"`
	TestRatio      float64 `json:"test_ratio"`
}

// Generate creates the train and held out sets.
// The unknown samples of the train set are labeled with the given sentinel.
func (d Data) Generate(rng *rand.Rand, dim, known int, sentinel int) (pbn.Data, error) {
	if d.UnknownClasses <= 0 {
		return pbn.Data{}, fmt.Errorf("no unknown classes to discover: %d", d.UnknownClasses)
	}
	if d.TestRatio <= 0 || d.TestRatio >= 1 {
		return pbn.Data{}, fmt.Errorf("test ratio must be in (0,1): %v", d.TestRatio)
	}

	centers := make([][]float64, known+d.UnknownClasses)
	for c := range centers {
		centers[c] = make([]float64, dim)
		for j := range centers[c] {
			centers[c][j] = d.Distance * rng.NormFloat64()
		}
	}

	classes := make([]int, known)
	for c := range classes {
		classes[c] = c
	}

	all := dataset.Blobs(rng, centers, d.Samples, d.Spread).Shuffle(rng)
	knownSet, unknownSet := all.Split(classes...)
	knownTrain, knownTest := knownSet.TrainTest(1 - d.TestRatio)
	unknownTrain, unknownTest := unknownSet.TrainTest(1 - d.TestRatio)
	unknownTest, _ = unknownTest.Relabel()

	train, err := dataset.Concat(knownTrain, unknownTrain.Withhold(sentinel))
	if err != nil {
		return pbn.Data{}, fmt.Errorf("could not create train set: %w", err)
	}

	return pbn.Data{
		Train:       train.Shuffle(rng),
		TestKnown:   knownTest,
		TestUnknown: unknownTest,
	}, nil
}
