package pbn

import (
	"fmt"

	"github.com/drakos74/ncd/internal/storage"
)

// BatchRecord holds the losses of one training step.
type BatchRecord struct {
	Epoch   int     `json:"epoch"`
	Batch   int     `json:"batch"`
	Size    int     `json:"size"`
	Known   int     `json:"known"`
	Loss    float64 `json:"loss"`
	CELoss  float64 `json:"ce_loss"`
	MSELoss float64 `json:"mse_loss"`
}

// Evaluation holds the monitoring metrics of an epoch.
type Evaluation struct {
	TrainAccuracy      float64 `json:"train_accuracy"`
	TestAccuracy       float64 `json:"test_accuracy"`
	ClusteringAccuracy float64 `json:"clustering_accuracy"`
	ClusteringStd      float64 `json:"clustering_std"`
}

// EpochRecord holds the mean losses of the batches of an epoch, and its evaluation if any.
// If all batches were skipped, Batches is 0 and the losses are 0.
type EpochRecord struct {
	Epoch      int         `json:"epoch"`
	Batches    int         `json:"batches"`
	Loss       float64     `json:"loss"`
	CELoss     float64     `json:"ce_loss"`
	MSELoss    float64     `json:"mse_loss"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
}

// History is the epoch indexed record of a training run.
// The evaluation series are only filled for runs with evaluation enabled.
type History struct {
	TrainLosses                   []float64 `json:"train_losses"`
	TrainCELosses                 []float64 `json:"train_ce_losses"`
	TrainMSELosses                []float64 `json:"train_mse_losses"`
	TrainClassificationAccuracy   []float64 `json:"train_classification_accuracy"`
	TestClassificationAccuracy    []float64 `json:"test_classification_accuracy"`
	TestAverageClusteringAccuracy []float64 `json:"test_average_clustering_accuracy"`
	TestClusteringAccuracyStdev   []float64 `json:"test_clustering_accuracy_std"`
}

// NewHistory creates an empty history.
func NewHistory() History {
	return History{
		TrainLosses:                   []float64{},
		TrainCELosses:                 []float64{},
		TrainMSELosses:                []float64{},
		TrainClassificationAccuracy:   []float64{},
		TestClassificationAccuracy:    []float64{},
		TestAverageClusteringAccuracy: []float64{},
		TestClusteringAccuracyStdev:   []float64{},
	}
}

// Append returns a new history extended with the given epoch.
// The receiver is left untouched.
func (h History) Append(record EpochRecord) History {
	next := History{
		TrainLosses:                   extend(h.TrainLosses, record.Loss),
		TrainCELosses:                 extend(h.TrainCELosses, record.CELoss),
		TrainMSELosses:                extend(h.TrainMSELosses, record.MSELoss),
		TrainClassificationAccuracy:   extend(h.TrainClassificationAccuracy),
		TestClassificationAccuracy:    extend(h.TestClassificationAccuracy),
		TestAverageClusteringAccuracy: extend(h.TestAverageClusteringAccuracy),
		TestClusteringAccuracyStdev:   extend(h.TestClusteringAccuracyStdev),
	}
	if e := record.Evaluation; e != nil {
		next.TrainClassificationAccuracy = append(next.TrainClassificationAccuracy, e.TrainAccuracy)
		next.TestClassificationAccuracy = append(next.TestClassificationAccuracy, e.TestAccuracy)
		next.TestAverageClusteringAccuracy = append(next.TestAverageClusteringAccuracy, e.ClusteringAccuracy)
		next.TestClusteringAccuracyStdev = append(next.TestClusteringAccuracyStdev, e.ClusteringStd)
	}
	return next
}

// Epochs returns the number of epochs recorded.
func (h History) Epochs() int {
	return len(h.TrainLosses)
}

// Series returns the series of the history by name.
func (h History) Series() map[string][]float64 {
	return map[string][]float64{
		"train_losses":                     h.TrainLosses,
		"train_ce_losses":                  h.TrainCELosses,
		"train_mse_losses":                 h.TrainMSELosses,
		"train_classification_accuracy":    h.TrainClassificationAccuracy,
		"test_classification_accuracy":     h.TestClassificationAccuracy,
		"test_average_clustering_accuracy": h.TestAverageClusteringAccuracy,
		"test_clustering_accuracy_std":     h.TestClusteringAccuracyStdev,
	}
}

// extend copies the series with room for the given values appended.
func extend(s []float64, v ...float64) []float64 {
	out := make([]float64, len(s), len(s)+len(v)+1)
	copy(out, s)
	return append(out, v...)
}

func historyKey(run string) storage.Key {
	return storage.Key{
		Run:   run,
		Label: storage.HistoryDir,
	}
}

// SaveHistory stores the history of the given run.
func SaveHistory(store storage.Persistence, run string, h History) error {
	if err := store.Store(historyKey(run), h); err != nil {
		return fmt.Errorf("could not store history for run '%s': %w", run, err)
	}
	return nil
}

// LoadHistory loads the history of the given run.
func LoadHistory(store storage.Persistence, run string) (History, error) {
	var h History
	if err := store.Load(historyKey(run), &h); err != nil {
		return History{}, fmt.Errorf("could not load history for run '%s': %w", run, err)
	}
	return h, nil
}
