package main

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/drakos74/ncd/internal/discovery"
	ncdmath "github.com/drakos74/ncd/internal/math"
	"github.com/drakos74/ncd/internal/pbn"
	"github.com/drakos74/ncd/internal/storage"
	"github.com/drakos74/ncd/internal/storage/file/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestData_Generate(t *testing.T) {
	d := Data{
		UnknownClasses: 2,
		Samples:        40,
		Distance:       5,
		Spread:         1,
		TestRatio:      0.25,
	}
	data, err := d.Generate(rand.New(rand.NewSource(1)), 3, 4, -1)
	require.NoError(t, err)

	assert.Equal(t, 120+60, data.Train.Len())
	assert.Equal(t, 40, data.TestKnown.Len())
	assert.Equal(t, 20, data.TestUnknown.Len())
	assert.Equal(t, []int{-1, 0, 1, 2, 3}, ncdmath.Unique(data.Train.Y))
	assert.Equal(t, []int{0, 1, 2, 3}, ncdmath.Unique(data.TestKnown.Y))
	assert.Equal(t, []int{0, 1}, ncdmath.Unique(data.TestUnknown.Y))
	_, c := data.Train.X.Dims()
	assert.Equal(t, 3, c)
}

func TestData_GenerateErrors(t *testing.T) {
	for name, d := range map[string]Data{
		"no-unknown": {UnknownClasses: 0, Samples: 10, TestRatio: 0.3},
		"ratio":      {UnknownClasses: 2, Samples: 10, TestRatio: 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := d.Generate(rand.New(rand.NewSource(1)), 3, 4, -1)
			assert.Error(t, err)
		})
	}
}

func TestExperiment_Shard(t *testing.T) {
	defer func(dir string) {
		storage.DefaultDir = dir
	}(storage.DefaultDir)
	storage.DefaultDir = t.TempDir()

	type test struct {
		storage string
		store   storage.Persistence
		found   bool
	}

	tests := map[string]test{
		"default": {
			store: &json.BlobStorage{},
			found: true,
		},
		"json": {
			storage: JsonStorage,
			store:   &json.BlobStorage{},
			found:   true,
		},
		"memory": {
			storage: MemoryStorage,
			store:   &storage.MemoryStorage{},
			found:   true,
		},
		"void": {
			storage: VoidStorage,
			store:   &storage.VoidStorage{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			shard, err := Experiment{Storage: tt.storage}.Shard()
			require.NoError(t, err)
			store, err := shard(discovery.NCDKMeans)
			require.NoError(t, err)
			assert.IsType(t, tt.store, store)

			h := pbn.NewHistory().Append(pbn.EpochRecord{Loss: 1})
			require.NoError(t, pbn.SaveHistory(store, name, h))
			loaded, err := pbn.LoadHistory(store, name)
			if tt.found {
				require.NoError(t, err)
				assert.Equal(t, h, loaded)
			} else {
				assert.True(t, errors.Is(err, storage.NotFoundErr))
			}
		})
	}

	_, err := Experiment{Storage: "s3"}.Shard()
	assert.Error(t, err)
}
