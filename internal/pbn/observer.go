package pbn

import (
	ncdmath "github.com/drakos74/ncd/internal/math"
	"github.com/rs/zerolog/log"
)

// Observer is notified of the progress of a training run.
// The training results do not depend on the observers.
type Observer interface {
	OnBatch(record BatchRecord)
	OnEpoch(record EpochRecord)
}

// LogObserver logs the progress of the training.
type LogObserver struct {
	Run string
}

func (l LogObserver) OnBatch(record BatchRecord) {
	log.Debug().
		Str("run", l.Run).
		Int("epoch", record.Epoch).
		Int("batch", record.Batch).
		Int("known", record.Known).
		Str("loss", ncdmath.Format(record.Loss)).
		Str("ce", ncdmath.Format(record.CELoss)).
		Str("mse", ncdmath.Format(record.MSELoss)).
		Msg("batch")
}

func (l LogObserver) OnEpoch(record EpochRecord) {
	e := log.Info().
		Str("run", l.Run).
		Int("epoch", record.Epoch).
		Int("batches", record.Batches).
		Str("loss", ncdmath.Format(record.Loss)).
		Str("ce", ncdmath.Format(record.CELoss)).
		Str("mse", ncdmath.Format(record.MSELoss))
	if ev := record.Evaluation; ev != nil {
		e = e.
			Str("train-acc", ncdmath.Format(ev.TrainAccuracy)).
			Str("test-acc", ncdmath.Format(ev.TestAccuracy)).
			Str("clustering-acc", ncdmath.Format(ev.ClusteringAccuracy)).
			Str("clustering-std", ncdmath.Format(ev.ClusteringStd))
	}
	e.Msg("epoch")
}
