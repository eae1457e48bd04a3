package json

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/drakos74/ncd/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

func TestBlobStorage_StoreAndLoad(t *testing.T) {
	dir := t.TempDir()
	blob := NewJsonBlobAt(dir, storage.HistoryDir, "shard", true)

	k := storage.Key{Run: "run-1", Label: "history"}
	r := record{Name: "r", Values: []float64{0.1, 0.2}}

	err := blob.Store(k, r)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, storage.HistoryDir, "shard", "history_run-1.json"))
	assert.NoError(t, err)

	var loaded record
	err = blob.Load(k, &loaded)
	require.NoError(t, err)
	assert.Equal(t, r, loaded)
}

func TestBlobStorage_Errors(t *testing.T) {
	dir := t.TempDir()
	blob := NewJsonBlobAt(dir, "table", "shard", false)

	var loaded record
	err := blob.Load(storage.Key{Run: "missing"}, &loaded)
	assert.True(t, errors.Is(err, storage.NotFoundErr))

	p := filepath.Join(dir, "table", "shard")
	require.NoError(t, os.MkdirAll(p, os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(p, "x_broken.json"), []byte("{"), 0644))
	err = blob.Load(storage.Key{Run: "broken", Label: "x"}, &loaded)
	assert.True(t, errors.Is(err, storage.CouldNotLoadErr))
}

func TestBlobShard(t *testing.T) {
	p, err := BlobShard("table")("shard")
	require.NoError(t, err)
	assert.IsType(t, &BlobStorage{}, p)
}
