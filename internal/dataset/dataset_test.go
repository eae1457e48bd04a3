package dataset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var centers = [][]float64{
	{0, 0},
	{5, 5},
	{-5, 5},
	{5, -5},
}

func TestBlobs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	set := Blobs(rng, centers, 25, 0.1)
	assert.Equal(t, 100, set.Len())
	r, c := set.X.Dims()
	assert.Equal(t, 100, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 0, set.Y[0])
	assert.Equal(t, 3, set.Y[99])
	assert.InDelta(t, 5, set.X.At(30, 0), 1)
}

func TestSet_Shuffle(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	set := Blobs(rng, centers, 10, 0.1)
	shuffled := set.Shuffle(rng)
	assert.Equal(t, set.Len(), shuffled.Len())
	assert.NotEqual(t, set.Y, shuffled.Y)
	// samples keep their label
	for i, y := range shuffled.Y {
		assert.InDelta(t, centers[y][0], shuffled.X.At(i, 0), 1)
		assert.InDelta(t, centers[y][1], shuffled.X.At(i, 1), 1)
	}
}

func TestSet_Split(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	set := Blobs(rng, centers, 10, 0.1)
	known, unknown := set.Split(0, 2)
	assert.Equal(t, 20, known.Len())
	assert.Equal(t, 20, unknown.Len())
	for _, y := range known.Y {
		assert.Contains(t, []int{0, 2}, y)
	}
	for _, y := range unknown.Y {
		assert.Contains(t, []int{1, 3}, y)
	}

	relabeled, mapping := unknown.Relabel()
	assert.Equal(t, map[int]int{1: 0, 3: 1}, mapping)
	assert.Equal(t, 0, relabeled.Y[0])
	assert.Equal(t, 1, relabeled.Y[19])
}

func TestSet_TrainTest(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	set := Blobs(rng, centers, 10, 0.1)
	train, test := set.TrainTest(0.75)
	assert.Equal(t, 30, train.Len())
	assert.Equal(t, 10, test.Len())
	assert.Equal(t, set.X.At(30, 0), test.X.At(0, 0))
}

func TestConcat(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	set := Blobs(rng, centers, 5, 0.1)
	known, unknown := set.Split(0, 1)

	all, err := Concat(known, unknown.Withhold(-1), Set{})
	require.NoError(t, err)
	assert.Equal(t, 20, all.Len())
	assert.Equal(t, -1, all.Y[19])
	assert.Equal(t, 1, all.Y[9])

	other := Blobs(rng, [][]float64{{0, 0, 0}}, 2, 0.1)
	_, err = Concat(known, other)
	assert.Error(t, err)
}
