package pangpt

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// TrainResult summarizes a finished training run
type TrainResult struct {
	StartEpoch   int
	EpochsRun    int
	BestValLoss  float64
	EarlyStopped bool
	TestRecord   *EpochRecord
}

// Run trains across Config.WorldSize parallel workers. Each worker owns an
// independent model replica from the factory, processes a disjoint shard
// of every epoch, and joins the in-process collective group for metric
// reduction. Only rank 0 logs, records history, writes checkpoints, and
// evaluates early-stop and learning-rate decisions; those decisions are
// broadcast so every worker leaves the epoch loop together.
func Run(cfg *Config, tokenizer Tokenizer, factory ModelFactory, trainSet, valSet, testSet []string) (*TrainResult, error) {
	if len(trainSet) == 0 || len(valSet) == 0 {
		return nil, fmt.Errorf("training requires non-empty train and validation sets")
	}

	var history *History
	if cfg.HistoryPath != "" {
		var err error
		history, err = OpenHistory(cfg.HistoryPath)
		if err != nil {
			return nil, err
		}
		defer history.Close()
	}

	comms := NewProcessGroup(cfg.WorldSize)
	results := make([]*TrainResult, cfg.WorldSize)

	var g errgroup.Group
	for rank := 0; rank < cfg.WorldSize; rank++ {
		comm := comms[rank]
		g.Go(func() error {
			res, err := runWorker(cfg, comm, tokenizer, factory, trainSet, valSet, testSet, history)
			if err != nil {
				// Wake any rank still blocked in a collective so the
				// failure surfaces instead of deadlocking the group
				comm.Abort(err)
				return fmt.Errorf("rank %d: %w", comm.Rank(), err)
			}
			results[comm.Rank()] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results[0], nil
}

func runWorker(cfg *Config, comm Communicator, tokenizer Tokenizer, factory ModelFactory, trainSet, valSet, testSet []string, history *History) (*TrainResult, error) {
	rank := comm.Rank()
	world := comm.WorldSize()
	isCoordinator := rank == 0

	logf := func(format string, v ...any) {
		if isCoordinator {
			cfg.logger().Printf(format, v...)
		}
	}

	model, optimizer, err := factory(rank)
	if err != nil {
		return nil, fmt.Errorf("model factory failed: %w", err)
	}
	if cfg.GradientCheckpointing {
		model.EnableGradientCheckpointing()
	}

	// Distinct random streams per worker so shard masking is uncorrelated
	workerSeed := cfg.Seed + uint64(rank)*7919
	trainData := NewGenomeDataset(trainSet, tokenizer, cfg.MaxSeqLength, cfg.PropMasked, workerSeed)
	valData := NewGenomeDataset(valSet, tokenizer, cfg.MaxSeqLength, cfg.PropMasked, workerSeed+1)

	trainSampler := NewDistributedSampler(len(trainSet), rank, world, cfg.Seed)
	valSampler := NewDistributedSampler(len(valSet), rank, world, cfg.Seed)

	runner := &EpochRunner{
		Model:        model,
		Optimizer:    optimizer,
		ShowProgress: isCoordinator && cfg.ShowProgress,
	}

	// The writer of a previous run must be finished before anyone reads
	if err := comm.Barrier(); err != nil {
		return nil, err
	}
	startEpoch, loaded := LoadCheckpoint(model, optimizer, cfg.ModelSavePath, cfg.Restart, logf)
	if loaded {
		logf("Continuing training from the loaded checkpoint.")
	} else {
		logf("Starting training from scratch.")
	}

	var earlyStopping *EarlyStopping
	var scheduler *PlateauScheduler
	if isCoordinator {
		earlyStopping = NewEarlyStopping(cfg.EarlyStopPatience, cfg.MinDelta)
		scheduler = NewPlateauScheduler(optimizer, cfg.LRSchedulerFactor, cfg.LRPatience)
	}

	result := &TrainResult{StartEpoch: startEpoch}

	for epoch := startEpoch; epoch < cfg.Epochs; epoch++ {
		trainLoader := NewBatchLoader(trainData, trainSampler.Indices(epoch), cfg.BatchSize, cfg.NumWorkers)
		localTrainLoss, err := runner.TrainEpoch(trainLoader, epoch)
		if err != nil {
			return nil, err
		}

		trainSums, err := comm.AllReduceSum([]float64{localTrainLoss})
		if err != nil {
			return nil, err
		}
		avgTrainLoss := trainSums[0] / float64(len(trainSet))
		trainPerplexity := math.Exp(avgTrainLoss)

		logf("Epoch %d - Training Loss: %.6f, Perplexity: %.6f, Learning Rate: %g",
			epoch, avgTrainLoss, trainPerplexity, optimizer.LR())
		if isCoordinator {
			if err := history.Record(EpochRecord{
				Epoch: epoch, Phase: "train",
				Loss: avgTrainLoss, Perplexity: trainPerplexity, LR: optimizer.LR(),
			}); err != nil {
				logf("%v", err)
			}
		}

		valLoader := NewBatchLoader(valData, valSampler.Indices(epoch), cfg.BatchSize, cfg.NumWorkers)
		stats, err := runner.Validate(valLoader, fmt.Sprintf("Epoch %d - Validation", epoch))
		if err != nil {
			return nil, err
		}

		val, err := reduceValidation(comm, stats, len(valSet))
		if err != nil {
			return nil, err
		}
		if stats.Metrics.Degenerate {
			logf("Warning: all predicted labels are the same. The model might not be learning properly.")
		}
		logf("Epoch %d - Validation Loss: %.6f, Perplexity: %.6f, Accuracy: %.6f, Precision: %.6f, Recall: %.6f, F1: %.6f, Kappa: %.6f",
			epoch, val.Loss, val.Perplexity, val.Accuracy, val.Precision, val.Recall, val.F1, val.Kappa)

		stop := false
		if isCoordinator {
			lr := scheduler.Step(val.Loss)

			bestBefore, hasBest := earlyStopping.BestLoss()
			earlyStopping.Observe(val.Loss)
			if earlyStopping.Stopped() {
				logf("Early stopping triggered.")
				stop = true
			} else if !hasBest || val.Loss <= bestBefore {
				logf("Saving model checkpoint.")
				if err := SaveCheckpoint(model, optimizer, epoch, avgTrainLoss, cfg.ModelSavePath); err != nil {
					// training continues without a checkpoint for this epoch
					logf("Failed to save checkpoint: %v", err)
				}
			}

			val.Epoch = epoch
			val.Phase = "val"
			val.LR = lr
			if err := history.Record(val); err != nil {
				logf("%v", err)
			}

			best, _ := earlyStopping.BestLoss()
			result.BestValLoss = best
			result.EarlyStopped = stop
		}

		// All workers leave the loop together, on rank 0's decision, and
		// pick up rank 0's post-plateau learning rate
		stop, err = comm.BroadcastBool(stop, 0)
		if err != nil {
			return nil, err
		}
		lr, err := comm.BroadcastFloat(optimizer.LR(), 0)
		if err != nil {
			return nil, err
		}
		optimizer.SetLR(lr)

		result.EpochsRun++
		if stop {
			result.EarlyStopped = true
			break
		}
	}

	if len(testSet) > 0 {
		testData := NewGenomeDataset(testSet, tokenizer, cfg.MaxSeqLength, cfg.PropMasked, workerSeed+2)
		testSampler := NewDistributedSampler(len(testSet), rank, world, cfg.Seed)
		testLoader := NewBatchLoader(testData, testSampler.Indices(0), cfg.BatchSize, cfg.NumWorkers)

		stats, err := runner.Validate(testLoader, "Testing")
		if err != nil {
			return nil, err
		}
		test, err := reduceValidation(comm, stats, len(testSet))
		if err != nil {
			return nil, err
		}
		test.Phase = "test"
		test.LR = optimizer.LR()
		logf("Test Loss: %.6f, Perplexity: %.6f, Accuracy: %.6f, Precision: %.6f, Recall: %.6f, F1: %.6f, Kappa: %.6f",
			test.Loss, test.Perplexity, test.Accuracy, test.Precision, test.Recall, test.F1, test.Kappa)
		if isCoordinator {
			if err := history.Record(test); err != nil {
				logf("%v", err)
			}
			result.TestRecord = &test
		}
	} else {
		logf("No test set available for evaluation.")
	}

	return result, nil
}

// reduceValidation combines one worker's validation stats into the global
// view: summed loss and accuracy are divided by the global dataset size,
// while the already-macro-averaged shard metrics are combined as an
// unweighted mean of means across workers.
func reduceValidation(comm Communicator, stats *ValidationStats, globalSize int) (EpochRecord, error) {
	reduced, err := comm.AllReduceSum([]float64{
		stats.SumLoss,
		stats.SumAccuracy,
		stats.Metrics.Precision,
		stats.Metrics.Recall,
		stats.Metrics.F1,
		stats.Metrics.Kappa,
	})
	if err != nil {
		return EpochRecord{}, err
	}

	world := float64(comm.WorldSize())
	avgLoss := reduced[0] / float64(globalSize)
	return EpochRecord{
		Loss:       avgLoss,
		Perplexity: math.Exp(avgLoss),
		Accuracy:   reduced[1] / float64(globalSize),
		Precision:  reduced[2] / world,
		Recall:     reduced[3] / world,
		F1:         reduced[4] / world,
		Kappa:      reduced[5] / world,
	}, nil
}
