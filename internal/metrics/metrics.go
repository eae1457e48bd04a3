package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/drakos74/ncd/internal/pbn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Observer publishes the progress of a training run as prometheus metrics.
type Observer struct {
	run        string
	prometheus Prometheus
}

// NewObserver creates a metrics observer for the given run and registers its collectors.
// Collectors already registered by a previous run are reused.
func NewObserver(run string, registerer prometheus.Registerer) (*Observer, error) {
	p := NewPrometheusMetrics()
	for i, c := range p.collectors() {
		if err := registerer.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, fmt.Errorf("could not register collector: %w", err)
			}
			switch i {
			case 0:
				p.Batches = are.ExistingCollector.(*prometheus.CounterVec)
			case 1:
				p.Batch = are.ExistingCollector.(*prometheus.GaugeVec)
			case 2:
				p.Epoch = are.ExistingCollector.(*prometheus.GaugeVec)
			}
		}
	}
	return &Observer{
		run:        run,
		prometheus: p,
	}, nil
}

func (o *Observer) OnBatch(record pbn.BatchRecord) {
	o.prometheus.Batches.WithLabelValues(o.run).Inc()
	o.prometheus.Batch.WithLabelValues(o.run, "loss").Set(record.Loss)
	o.prometheus.Batch.WithLabelValues(o.run, "ce_loss").Set(record.CELoss)
	o.prometheus.Batch.WithLabelValues(o.run, "mse_loss").Set(record.MSELoss)
}

func (o *Observer) OnEpoch(record pbn.EpochRecord) {
	o.prometheus.Epoch.WithLabelValues(o.run, "epoch").Set(float64(record.Epoch))
	o.prometheus.Epoch.WithLabelValues(o.run, "train_losses").Set(record.Loss)
	o.prometheus.Epoch.WithLabelValues(o.run, "train_ce_losses").Set(record.CELoss)
	o.prometheus.Epoch.WithLabelValues(o.run, "train_mse_losses").Set(record.MSELoss)
	if e := record.Evaluation; e != nil {
		o.prometheus.Epoch.WithLabelValues(o.run, "train_classification_accuracy").Set(e.TrainAccuracy)
		o.prometheus.Epoch.WithLabelValues(o.run, "test_classification_accuracy").Set(e.TestAccuracy)
		o.prometheus.Epoch.WithLabelValues(o.run, "test_average_clustering_accuracy").Set(e.ClusteringAccuracy)
		o.prometheus.Epoch.WithLabelValues(o.run, "test_clustering_accuracy_std").Set(e.ClusteringStd)
	}
}

// Handler exposes the metrics of the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve exposes the default registry metrics under /metrics on the given port.
func Serve(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		log.Info().Int("port", port).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Int("port", port).Msg("could not serve metrics")
		}
	}()
	return srv
}
