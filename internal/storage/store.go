package storage

import (
	"errors"
	"fmt"
)

const (
	HistoryDir = "history"
	ConfigDir  = "config"
)

var (
	// DefaultDir is the root directory of the file storage.
	DefaultDir = "file-storage"
)

// Shard creates a new storage implementation for the given shard.
type Shard func(shard string) (Persistence, error)

var (
	NotFoundErr     = errors.New("not found")
	CouldNotLoadErr = errors.New("could not load")
)

// Key is the storage key of the artifacts of a training run.
type Key struct {
	Run   string `json:"run"`
	Label string `json:"label"`
}

func (k Key) Path() string {
	return fmt.Sprintf("%s_%s", k.Label, k.Run)
}

// Persistence stores and loads values by key.
type Persistence interface {
	Store(k Key, value interface{}) error
	Load(k Key, value interface{}) error
}
