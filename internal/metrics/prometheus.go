package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "ncd"

// Prometheus holds the collectors of the training metrics.
type Prometheus struct {
	Batches *prometheus.CounterVec
	Batch   *prometheus.GaugeVec
	Epoch   *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the collectors of the training metrics.
func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches",
				Help:      "number of training steps applied",
			}, []string{"run"}),
		Batch: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "batch",
				Help:      "losses of the last training step",
			}, []string{"run", "metric"}),
		Epoch: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "epoch",
				Help:      "mean losses and evaluation metrics of the last epoch",
			}, []string{"run", "metric"}),
	}
}

func (p Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{p.Batches, p.Batch, p.Epoch}
}
