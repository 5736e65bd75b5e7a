package pangpt

import (
	"golang.org/x/sync/errgroup"
)

// Batch groups training examples into the five aligned tensors plus the
// window-origin flags consumed by the model.
type Batch struct {
	DecoderInput         [][]int
	EncoderInput         [][]int
	Labels               [][]int
	DecoderAttentionMask [][]int
	EncoderAttentionMask [][]int
	SequenceStart        []int
}

// Size returns the number of examples in the batch
func (b *Batch) Size() int {
	return len(b.Labels)
}

// BatchLoader iterates a shard of dataset indices in fixed-size batches.
// Examples within a batch are assembled by a bounded pool of prefetch
// workers; batch order follows the shard order.
type BatchLoader struct {
	dataset    *GenomeDataset
	indices    []int
	batchSize  int
	numWorkers int
	pos        int
}

// NewBatchLoader creates a loader over the given shard of indices
func NewBatchLoader(dataset *GenomeDataset, indices []int, batchSize, numWorkers int) *BatchLoader {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &BatchLoader{
		dataset:    dataset,
		indices:    indices,
		batchSize:  batchSize,
		numWorkers: numWorkers,
	}
}

// NumExamples returns the number of examples in the shard
func (l *BatchLoader) NumExamples() int {
	return len(l.indices)
}

// NumBatches returns the number of batches the shard yields
func (l *BatchLoader) NumBatches() int {
	return (len(l.indices) + l.batchSize - 1) / l.batchSize
}

// Reset rewinds the loader to the first batch
func (l *BatchLoader) Reset() {
	l.pos = 0
}

// Next assembles and returns the next batch, or (nil, nil) once the shard
// is exhausted.
func (l *BatchLoader) Next() (*Batch, error) {
	if l.pos >= len(l.indices) {
		return nil, nil
	}

	end := l.pos + l.batchSize
	if end > len(l.indices) {
		end = len(l.indices)
	}
	span := l.indices[l.pos:end]
	l.pos = end

	examples := make([]*TrainingExample, len(span))
	var g errgroup.Group
	g.SetLimit(l.numWorkers)
	for i, idx := range span {
		i, idx := i, idx
		g.Go(func() error {
			ex, err := l.dataset.Get(idx)
			if err != nil {
				return err
			}
			examples[i] = ex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &Batch{
		DecoderInput:         make([][]int, len(examples)),
		EncoderInput:         make([][]int, len(examples)),
		Labels:               make([][]int, len(examples)),
		DecoderAttentionMask: make([][]int, len(examples)),
		EncoderAttentionMask: make([][]int, len(examples)),
		SequenceStart:        make([]int, len(examples)),
	}
	for i, ex := range examples {
		batch.DecoderInput[i] = ex.DecoderInput
		batch.EncoderInput[i] = ex.EncoderInput
		batch.Labels[i] = ex.Labels
		batch.DecoderAttentionMask[i] = ex.DecoderAttentionMask
		batch.EncoderAttentionMask[i] = ex.EncoderAttentionMask
		batch.SequenceStart[i] = ex.SequenceStart
	}
	return batch, nil
}
