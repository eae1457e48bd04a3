package pbn

import (
	"fmt"
	"math"

	"github.com/drakos74/ncd/internal/buffer"
	"github.com/drakos74/ncd/internal/dataset"
	ncdmath "github.com/drakos74/ncd/internal/math"
	"github.com/drakos74/ncd/internal/math/ml"
	"github.com/drakos74/ncd/internal/nn"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Data holds the samples of a training run.
// Train contains the known samples with their labels and optionally unknown samples
// labeled with the unknown class sentinel.
// TestUnknown and TestKnown are held out and only used for evaluation.
type Data struct {
	Train       dataset.Set
	TestUnknown dataset.Set
	TestKnown   dataset.Set
}

// Step trains the model on one batch.
// Batches of less than 2 samples are skipped, in which case the returned flag is false.
// A batch without any known sample is an error, as the classification loss is undefined.
func (m *Model) Step(optimizer nn.Optimizer, x *mat.Dense, y []int, w float64, unknownClass int) (BatchRecord, bool, error) {
	if x == nil {
		log.Warn().Int("size", 0).Msg("skipping empty batch")
		return BatchRecord{}, false, nil
	}
	n, _ := x.Dims()
	if n != len(y) {
		return BatchRecord{}, false, fmt.Errorf("batch of %d samples with %d labels", n, len(y))
	}
	if n < 2 {
		log.Warn().Int("size", n).Msg("skipping batch")
		return BatchRecord{}, false, nil
	}

	known := ncdmath.Where(y, func(label int) bool {
		return label != unknownClass
	})
	if len(known) == 0 {
		return BatchRecord{}, false, fmt.Errorf("no known samples in batch of %d: %w", n, nn.ErrEmptyBatch)
	}

	params := m.Params()
	nn.ZeroGrad(params)

	z, encode, err := m.encoder.Forward(x, nn.Train)
	if err != nil {
		return BatchRecord{}, false, fmt.Errorf("could not encode batch: %w", err)
	}
	reconstruction, decode, err := m.decoder.Forward(z, nn.Train)
	if err != nil {
		return BatchRecord{}, false, fmt.Errorf("could not decode batch: %w", err)
	}
	logits, classify, err := m.classifier.Forward(ncdmath.SelectRows(z, known), nn.Train)
	if err != nil {
		return BatchRecord{}, false, fmt.Errorf("could not classify batch: %w", err)
	}

	ce, dLogits, err := nn.CrossEntropy(logits, ncdmath.Pick(y, known))
	if err != nil {
		return BatchRecord{}, false, fmt.Errorf("could not compute classification loss: %w", err)
	}
	mse, dReconstruction, err := nn.SumSquares(reconstruction, x)
	if err != nil {
		return BatchRecord{}, false, fmt.Errorf("could not compute reconstruction loss: %w", err)
	}

	// total = w * ce + (1 - w) * mse
	dLogits.Scale(w, dLogits)
	dReconstruction.Scale(1-w, dReconstruction)

	// the latent gradient gathers the decoder contribution for all samples
	// and the classifier contribution for the known ones
	dz := mat.DenseCopyOf(decode(dReconstruction))
	dzKnown := classify(dLogits)
	for i, row := range known {
		g := dz.RawRowView(row)
		for j, v := range dzKnown.RawRowView(i) {
			g[j] += v
		}
	}
	encode(dz)

	optimizer.Step(params)

	return BatchRecord{
		Size:    n,
		Known:   len(known),
		Loss:    w*ce + (1-w)*mse,
		CELoss:  ce,
		MSELoss: mse,
	}, true, nil
}

// Train trains the model for the configured number of epochs and returns the history of the run.
// If no optimizer is given, AdamW is used with the configured learning rate.
// Observers are notified after each batch and each epoch.
func (m *Model) Train(data Data, cfg TrainConfig, optimizer nn.Optimizer, observers ...Observer) (History, error) {
	history := NewHistory()
	if err := cfg.Validate(); err != nil {
		return history, fmt.Errorf("could not train: %w", err)
	}
	n := data.Train.Len()
	if n < 2 {
		return history, fmt.Errorf("could not train on %d samples: %w", n, nn.ErrBatchTooSmall)
	}
	if cfg.Evaluate && (data.TestUnknown.Len() == 0 || data.TestKnown.Len() == 0) {
		return history, fmt.Errorf("could not evaluate without held out known and unknown samples")
	}
	if optimizer == nil {
		optimizer = nn.NewAdamW(cfg.LR)
	}

	batches := int(math.Ceil(float64(n) / float64(cfg.BatchSize)))
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		losses := buffer.NewStatsCollector(3)
		for b := 0; b < batches; b++ {
			from := b * cfg.BatchSize
			to := from + cfg.BatchSize
			if to > n {
				to = n
			}
			x := ncdmath.SliceRows(data.Train.X, from, to)
			record, ok, err := m.Step(optimizer, x, data.Train.Y[from:to], cfg.W, cfg.UnknownClass)
			if err != nil {
				return history, fmt.Errorf("could not train batch %d of epoch %d: %w", b, epoch, err)
			}
			if !ok {
				continue
			}
			record.Epoch = epoch
			record.Batch = b
			losses.Push(record.Loss, record.CELoss, record.MSELoss)
			for _, o := range observers {
				o.OnBatch(record)
			}
		}

		avg := losses.Avg()
		record := EpochRecord{
			Epoch:   epoch,
			Batches: losses.Size(),
			Loss:    avg[0],
			CELoss:  avg[1],
			MSELoss: avg[2],
		}
		if cfg.Evaluate {
			evaluation, err := m.Evaluate(data, cfg.ClusteringRuns, cfg.UnknownClass)
			if err != nil {
				return history, fmt.Errorf("could not evaluate epoch %d: %w", epoch, err)
			}
			record.Evaluation = &evaluation
		}
		history = history.Append(record)
		for _, o := range observers {
			o.OnEpoch(record)
		}
	}
	return history, nil
}

// Evaluate measures the classification accuracy on the known classes
// and the clustering accuracy on the held out unknown samples.
// The clustering is repeated for the given number of runs, as its initialisation is random.
// The number of clusters to discover is the number of distinct unknown labels.
func (m *Model) Evaluate(data Data, runs int, unknownClass int) (Evaluation, error) {
	nClusters := len(ncdmath.Unique(data.TestUnknown.Y))
	accuracy := buffer.NewStats()
	for r := 0; r < runs; r++ {
		predicted, err := m.Predict(nClusters, data.TestUnknown.X, data.TestKnown.X, data.TestKnown.Y)
		if err != nil {
			return Evaluation{}, fmt.Errorf("could not predict run %d: %w", r, err)
		}
		acc, err := ml.HungarianAccuracy(predicted, data.TestUnknown.Y)
		if err != nil {
			return Evaluation{}, fmt.Errorf("could not score run %d: %w", r, err)
		}
		accuracy.Push(acc)
	}

	train, err := m.ClassifyAccuracy(data.Train.X, data.Train.Y, unknownClass)
	if err != nil {
		return Evaluation{}, fmt.Errorf("could not evaluate train accuracy: %w", err)
	}
	test, err := m.ClassifyAccuracy(data.TestKnown.X, data.TestKnown.Y, unknownClass)
	if err != nil {
		return Evaluation{}, fmt.Errorf("could not evaluate test accuracy: %w", err)
	}

	return Evaluation{
		TrainAccuracy:      train,
		TestAccuracy:       test,
		ClusteringAccuracy: accuracy.Avg(),
		ClusteringStd:      accuracy.StDev(),
	}, nil
}
