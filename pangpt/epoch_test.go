package pangpt

import "testing"

func newEpochFixture(t *testing.T, n int) (*EpochRunner, *BatchLoader) {
	t.Helper()
	texts := make([]string, n)
	for i := range texts {
		texts[i] = "3 3 3 3 3 3 3 3"
	}
	ds := NewGenomeDataset(texts, NewMockTokenizer(20, true), 12, 0.2, 42)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	model := NewMockModel(20)
	runner := &EpochRunner{
		Model:     model,
		Optimizer: NewSGDOptimizer(model, 0.5, 0),
	}
	return runner, NewBatchLoader(ds, indices, 2, 1)
}

func TestTrainEpochReducesLoss(t *testing.T) {
	runner, loader := newEpochFixture(t, 8)

	first, err := runner.TrainEpoch(loader, 0)
	if err != nil {
		t.Fatalf("TrainEpoch failed: %v", err)
	}
	var last float64
	for epoch := 1; epoch <= 5; epoch++ {
		last, err = runner.TrainEpoch(loader, epoch)
		if err != nil {
			t.Fatalf("TrainEpoch failed: %v", err)
		}
	}

	// A constant-label corpus is exactly what the bias model can learn
	if last >= first {
		t.Errorf("Expected loss to fall over epochs, got %f then %f", first, last)
	}
}

func TestValidateStats(t *testing.T) {
	runner, loader := newEpochFixture(t, 4)

	stats, err := runner.Validate(loader, "Validation")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if stats.SumLoss <= 0 {
		t.Errorf("Expected positive summed loss, got %f", stats.SumLoss)
	}
	if stats.SumAccuracy < 0 || stats.SumAccuracy > 4 {
		t.Errorf("Expected summed accuracy within [0,4], got %f", stats.SumAccuracy)
	}
}

func TestValidateEmptyShard(t *testing.T) {
	runner, _ := newEpochFixture(t, 4)
	empty := NewBatchLoader(newTestDataset(t, 4), nil, 2, 1)

	stats, err := runner.Validate(empty, "Validation")
	if err != nil {
		t.Fatalf("Validate failed on an empty shard: %v", err)
	}
	if stats.SumLoss != 0 || stats.SumAccuracy != 0 {
		t.Errorf("Expected zero stats for an empty shard, got loss %f accuracy %f",
			stats.SumLoss, stats.SumAccuracy)
	}
	if stats.Metrics.Precision != 0 || stats.Metrics.Kappa != 0 {
		t.Errorf("Expected zero metrics for an empty shard")
	}
}

func TestValidateDoesNotUpdateModel(t *testing.T) {
	runner, loader := newEpochFixture(t, 4)
	model := runner.Model.(*MockModel)

	before := make([]float64, len(model.weights))
	copy(before, model.weights)

	if _, err := runner.Validate(loader, "Validation"); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	for i := range before {
		if model.weights[i] != before[i] {
			t.Errorf("Validation must not modify model weights")
		}
	}
}
