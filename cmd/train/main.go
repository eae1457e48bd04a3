package main

import (
	"math/rand"

	"github.com/drakos74/ncd/infra/config"
	ncdmath "github.com/drakos74/ncd/internal/math"
	"github.com/drakos74/ncd/internal/math/ml"
	"github.com/drakos74/ncd/internal/metrics"
	"github.com/drakos74/ncd/internal/pbn"
	"github.com/drakos74/ncd/internal/storage"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {

	var exp Experiment
	config.MustLoad("pbn", &exp)
	if exp.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	run := uuid.New().String()

	rng := rand.New(rand.NewSource(exp.Model.Seed))
	data, err := exp.Data.Generate(rng, exp.Model.InputSize, exp.Model.NClasses, exp.Train.UnknownClass)
	if err != nil {
		log.Fatal().Err(err).Msg("could not generate data")
	}

	model, err := pbn.New(exp.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create model")
	}

	shard, err := exp.Shard()
	if err != nil {
		log.Fatal().Err(err).Msg("could not create storage")
	}
	store, err := shard(exp.Model.ClusteringModel)
	if err != nil {
		log.Fatal().Err(err).Str("shard", exp.Model.ClusteringModel).Msg("could not create storage")
	}

	observers := make([]pbn.Observer, 0)
	if !exp.DisableProgress {
		observers = append(observers, pbn.LogObserver{Run: run})
	}
	if exp.UseMetrics {
		srv := metrics.Serve(exp.MetricsPort)
		defer srv.Close()
		observer, err := metrics.NewObserver(run, prometheus.DefaultRegisterer)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create metrics observer")
		}
		observers = append(observers, observer)
	}

	log.Info().
		Str("run", run).
		Str("clustering", exp.Model.ClusteringModel).
		Int("train", data.Train.Len()).
		Int("test-known", data.TestKnown.Len()).
		Int("test-unknown", data.TestUnknown.Len()).
		Msg("start training")

	history, err := model.Train(data, exp.Train, nil, observers...)
	if err != nil {
		log.Fatal().Err(err).Str("run", run).Msg("could not train model")
	}

	if err := pbn.SaveHistory(store, run, history); err != nil {
		log.Error().Err(err).Str("run", run).Msg("could not save history")
	}
	if err := store.Store(storage.Key{Run: run, Label: storage.ConfigDir}, exp); err != nil {
		log.Error().Err(err).Str("run", run).Msg("could not save config")
	}

	nClusters := len(ncdmath.Unique(data.TestUnknown.Y))
	predicted, err := model.Predict(nClusters, data.TestUnknown.X, data.TestKnown.X, data.TestKnown.Y)
	if err != nil {
		log.Fatal().Err(err).Msg("could not predict unknown classes")
	}
	acc, err := ml.HungarianAccuracy(predicted, data.TestUnknown.Y)
	if err != nil {
		log.Fatal().Err(err).Msg("could not score prediction")
	}
	for c, cluster := range ml.Summarise(data.TestUnknown.X, predicted) {
		log.Info().
			Int("cluster", c).
			Int("size", cluster.Size).
			Floats64("centroid", cluster.Centroid).
			Msg("discovered")
	}
	log.Info().
		Str("run", run).
		Int("epochs", history.Epochs()).
		Int("clusters", nClusters).
		Str("accuracy", ncdmath.Format(acc)).
		Msg("done")
}
