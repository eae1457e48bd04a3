package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Path is the directory of the config files, relative to the working directory.
var Path = "infra/config"

// Load loads the config for the given key from <Path>/<key>.json
func Load(key string, v interface{}) ([]byte, error) {
	p := filepath.Join(Path, fmt.Sprintf("%s.json", key))
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("could not load config for %s: %w", key, err)
	}

	err = json.Unmarshal(b, v)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal the config for %s: %w", key, err)
	}

	log.Info().Str("config", key).Str("path", p).Msg("loaded config")
	return b, nil
}

// MustLoad loads the config for the given key
func MustLoad(key string, v interface{}) []byte {
	b, err := Load(key, v)
	if err != nil {
		panic(err.Error())
	}
	return b
}
