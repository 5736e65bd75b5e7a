package pangpt

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
)

// EpochRunner drives one training or validation pass over a worker's shard.
type EpochRunner struct {
	Model        Model
	Optimizer    Optimizer
	ShowProgress bool
}

// ValidationStats carries the per-worker sums and local macro metrics of
// one validation pass. Loss and accuracy are summed, not averaged: the
// coordinator reduces them across workers and divides by the global
// dataset size.
type ValidationStats struct {
	SumLoss     float64
	SumAccuracy float64
	Metrics     MetricSet
}

func (r *EpochRunner) progress(batches int, desc string) *progressbar.ProgressBar {
	if !r.ShowProgress {
		return nil
	}
	return progressbar.NewOptions(batches,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// TrainEpoch runs one training pass over the loader and returns the summed
// (not averaged) loss for this worker's shard.
func (r *EpochRunner) TrainEpoch(loader *BatchLoader, epoch int) (float64, error) {
	r.Model.SetTraining(true)
	loader.Reset()

	bar := r.progress(loader.NumBatches(), fmt.Sprintf("Epoch %d - Training", epoch))

	totalLoss := 0.0
	for {
		batch, err := loader.Next()
		if err != nil {
			return 0, fmt.Errorf("failed to load training batch: %w", err)
		}
		if batch == nil {
			break
		}

		// Clear gradients before calculating them
		r.Optimizer.ZeroGrad()

		logits, err := r.Model.Forward(batch.EncoderInput, batch.EncoderAttentionMask, batch.DecoderInput, batch.DecoderAttentionMask)
		if err != nil {
			return 0, fmt.Errorf("forward pass failed: %w", err)
		}

		loss, dLogits, err := CrossEntropy(logits, batch.Labels)
		if err != nil {
			return 0, err
		}
		totalLoss += loss * float64(batch.Size())

		if err := r.Model.Backward(dLogits); err != nil {
			return 0, fmt.Errorf("backward pass failed: %w", err)
		}
		if err := r.Optimizer.Step(); err != nil {
			return 0, fmt.Errorf("optimizer step failed: %w", err)
		}

		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	return totalLoss, nil
}

// Validate runs one no-gradient pass over the loader, accumulating summed
// loss, summed token accuracy, and the flattened predictions and labels
// feeding the local macro metrics. Accuracy counts every label position,
// including ignored padding ones; the macro metrics share that convention.
// An empty shard yields all-zero stats, so a worker without validation
// work still takes the same collective path as the rest of the group.
func (r *EpochRunner) Validate(loader *BatchLoader, desc string) (*ValidationStats, error) {
	r.Model.SetTraining(false)
	loader.Reset()

	bar := r.progress(loader.NumBatches(), desc)

	stats := &ValidationStats{}
	var predsAll, labelsAll []int
	for {
		batch, err := loader.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to load validation batch: %w", err)
		}
		if batch == nil {
			break
		}

		logits, err := r.Model.Forward(batch.EncoderInput, batch.EncoderAttentionMask, batch.DecoderInput, batch.DecoderAttentionMask)
		if err != nil {
			return nil, fmt.Errorf("forward pass failed: %w", err)
		}

		loss, _, err := CrossEntropy(logits, batch.Labels)
		if err != nil {
			return nil, err
		}
		stats.SumLoss += loss * float64(batch.Size())

		correct := 0
		total := 0
		for b := range logits {
			for t := range logits[b] {
				pred := Argmax(logits[b][t])
				label := batch.Labels[b][t]
				if pred == label {
					correct++
				}
				total++
				predsAll = append(predsAll, pred)
				labelsAll = append(labelsAll, label)
			}
		}
		if total > 0 {
			stats.SumAccuracy += float64(correct) / float64(total) * float64(batch.Size())
		}

		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	if len(predsAll) == 0 {
		return stats, nil
	}

	metrics, err := CalculateMetrics(predsAll, labelsAll)
	if err != nil {
		return nil, fmt.Errorf("failed to compute validation metrics: %w", err)
	}
	stats.Metrics = metrics

	return stats, nil
}
