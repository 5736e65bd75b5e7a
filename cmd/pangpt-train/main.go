package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"pangpt-go/pangpt"
	"pangpt-go/vocab"
)

const (
	programName = "pangpt-train"
	version     = "0.1.0"
)

// env-first flag defaults: a .env file or exported PANGPT_* variables
// override the built-in defaults, and flags override both
func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func printBanner() {
	fmt.Println(strings.Repeat("=", 56))
	fmt.Printf("=====   %s v%s   =====\n", programName, version)
	fmt.Println("Self-supervised denoising trainer for pan-genomic")
	fmt.Println("token sequences.")
	fmt.Println(strings.Repeat("=", 56))
}

func printParametersTable(logger *log.Logger, params map[string]string) {
	width := 0
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)

	header := strings.Repeat("-", width+20)
	logger.Println("\nParameters:")
	logger.Println(header)
	logger.Printf("%-*s: %s", width, "Parameter", "Setting")
	logger.Println(header)
	for _, k := range keys {
		logger.Printf("%-*s: %s", width, k, params[k])
	}
	logger.Println(header)
}

func main() {
	// .env is optional; exported variables still apply without one
	godotenv.Load()

	inputFile := flag.String("input_file", envString("PANGPT_INPUT_FILE", ""), "Path to the input file (one genome per line)")
	tokenizerType := flag.String("tokenizer", envString("PANGPT_TOKENIZER", "WordLevel"), "Tokenizer type to use, WordLevel or BPE")
	tokenizerPath := flag.String("tokenizer_path", envString("PANGPT_TOKENIZER_PATH", "./pangenome_tokenizer.json"), "Path for saving and loading the tokenizer")
	maxSeqLength := flag.Int("max_seq_length", envInt("PANGPT_MAX_SEQ_LENGTH", 16384), "Maximum sequence length")
	batchSize := flag.Int("batch_size", envInt("PANGPT_BATCH_SIZE", 2), "Batch size for training and validation")
	learningRate := flag.Float64("learning_rate", envFloat("PANGPT_LEARNING_RATE", 0.0001), "Learning rate")
	lrFactor := flag.Float64("lr_scheduler_factor", 0.5, "Factor by which the learning rate is reduced on plateau")
	lrPatience := flag.Int("lr_patience", 10, "Patience for learning rate reduction")
	weightDecay := flag.Float64("weight_decay", 1e-4, "Weight decay for the optimizer")
	earlyStopPatience := flag.Int("early_stop_patience", 10, "Patience for early stopping")
	minDelta := flag.Float64("min_delta", 0.01, "Minimum delta for early stopping")
	epochs := flag.Int("epochs", envInt("PANGPT_EPOCHS", 50), "Number of training epochs")
	maxVocabSize := flag.Int("max_vocab_size", 0, "Maximum vocabulary size; 0 infers it from the corpus")
	modelSavePath := flag.String("model_save_path", envString("PANGPT_MODEL_SAVE_PATH", "./model_checkpoint.json"), "Path to save the model checkpoint")
	historyPath := flag.String("history_db", envString("PANGPT_HISTORY_DB", ""), "Path to the SQLite metrics history; empty disables history")
	trainSize := flag.Float64("train_size", 0.8, "Proportion of the dataset to include in the training set")
	valSize := flag.Float64("val_size", 0.1, "Proportion of the dataset to include in the validation set")
	seed := flag.Uint64("seed", 42, "Random seed for reproducibility")
	worldSize := flag.Int("world_size", envInt("PANGPT_WORLD_SIZE", 1), "Number of parallel training workers")
	numWorkers := flag.Int("num_workers", 1, "Number of data loading prefetch workers per training worker")
	propMasked := flag.Float64("prop_masked", 0.3, "Average proportion of inputs to be masked")
	restart := flag.Bool("restart", false, "Restart training, ignoring any existing checkpoint")
	reuseTokenizer := flag.Bool("reuse_tokenizer", false, "Reuse existing tokenizer if present")
	gradientCheckpointing := flag.Bool("gradient_checkpointing", false, "Use gradient checkpointing; improves memory efficiency at cost to runtime")
	logPath := flag.String("log_file", "training.log", "Path to the training log file")
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -input_file is required.")
		flag.Usage()
		os.Exit(1)
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open log file %q: %v\n", *logPath, err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := log.New(io.MultiWriter(os.Stderr, logFile), "", log.LstdFlags)

	printBanner()

	genomes, err := pangpt.LoadCorpus(*inputFile)
	if err != nil {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}

	stats := pangpt.Stats(genomes)
	logger.Printf("Dataset loaded: %d sequences", stats.NumSequences)
	logger.Printf("Sequence lengths - Min: %d, Max: %d, Avg: %.2f", stats.MinLength, stats.MaxLength, stats.AvgLength)
	logger.Printf("Unique tokens: %d, corpus fingerprint: %016x", stats.UniqueTokens, stats.Fingerprint)

	tokenizer, err := buildTokenizer(*tokenizerType, *tokenizerPath, genomes, *maxVocabSize, *reuseTokenizer, logger)
	if err != nil {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}
	if closer, ok := tokenizer.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	trainSet, valSet, testSet, err := pangpt.SplitCorpus(genomes, *trainSize, *valSize, *seed)
	if err != nil {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}
	logger.Printf("Split: %d train, %d validation, %d test sequences", len(trainSet), len(valSet), len(testSet))

	cfg := pangpt.NewConfig(*inputFile,
		pangpt.WithTokenizerType(pangpt.TokenizerType(*tokenizerType)),
		pangpt.WithTokenizerPath(*tokenizerPath),
		pangpt.WithMaxSeqLength(*maxSeqLength),
		pangpt.WithBatchSize(*batchSize),
		pangpt.WithPropMasked(*propMasked),
		pangpt.WithLearningRate(*learningRate),
		pangpt.WithWeightDecay(*weightDecay),
		pangpt.WithLRScheduler(*lrFactor, *lrPatience),
		pangpt.WithEarlyStopping(*earlyStopPatience, *minDelta),
		pangpt.WithEpochs(*epochs),
		pangpt.WithSplit(*trainSize, *valSize),
		pangpt.WithSeed(*seed),
		pangpt.WithModelSavePath(*modelSavePath),
		pangpt.WithHistoryPath(*historyPath),
		pangpt.WithWorldSize(*worldSize),
		pangpt.WithNumWorkers(*numWorkers),
		pangpt.WithRestart(*restart),
		pangpt.WithGradientCheckpointing(*gradientCheckpointing),
		pangpt.WithProgress(true),
		pangpt.WithLogger(logger),
	)

	printParametersTable(logger, map[string]string{
		"input_file":          *inputFile,
		"tokenizer":           *tokenizerType,
		"tokenizer_path":      *tokenizerPath,
		"max_seq_length":      strconv.Itoa(cfg.MaxSeqLength),
		"batch_size":          strconv.Itoa(cfg.BatchSize),
		"prop_masked":         fmt.Sprintf("%g", cfg.PropMasked),
		"learning_rate":       fmt.Sprintf("%g", cfg.LearningRate),
		"lr_scheduler_factor": fmt.Sprintf("%g", cfg.LRSchedulerFactor),
		"lr_patience":         strconv.Itoa(cfg.LRPatience),
		"weight_decay":        fmt.Sprintf("%g", cfg.WeightDecay),
		"early_stop_patience": strconv.Itoa(cfg.EarlyStopPatience),
		"min_delta":           fmt.Sprintf("%g", cfg.MinDelta),
		"epochs":              strconv.Itoa(cfg.Epochs),
		"train_size":          fmt.Sprintf("%g", cfg.TrainSize),
		"val_size":            fmt.Sprintf("%g", cfg.ValSize),
		"seed":                strconv.FormatUint(cfg.Seed, 10),
		"world_size":          strconv.Itoa(cfg.WorldSize),
		"num_workers":         strconv.Itoa(cfg.NumWorkers),
		"model_save_path":     cfg.ModelSavePath,
		"vocab_size":          strconv.Itoa(tokenizer.VocabSize()),
	})

	// Every worker builds an equivalent replica; parameters stay in sync
	// because replicas are seeded identically and process the reduced
	// learning-rate broadcasts together.
	vocabSize := tokenizer.VocabSize()
	factory := func(rank int) (pangpt.Model, pangpt.Optimizer, error) {
		model := pangpt.NewMockModel(vocabSize)
		return model, pangpt.NewSGDOptimizer(model, cfg.LearningRate, cfg.WeightDecay), nil
	}

	result, err := pangpt.Run(cfg, tokenizer, factory, trainSet, valSet, testSet)
	if err != nil {
		logger.Printf("Training failed: %v", err)
		os.Exit(1)
	}

	logger.Printf("Training finished: %d epoch(s) run (started at %d), best validation loss %.6f",
		result.EpochsRun, result.StartEpoch, result.BestValLoss)
	if result.EarlyStopped {
		logger.Printf("Run ended by early stopping.")
	}
}

func buildTokenizer(kind, path string, genomes []string, maxVocab int, reuse bool, logger *log.Logger) (pangpt.Tokenizer, error) {
	switch pangpt.TokenizerType(kind) {
	case pangpt.TokenizerBPE:
		// BPE tokenizers are trained externally; here one is only loaded
		return vocab.NewBPE(path)
	case pangpt.TokenizerWordLevel:
		if reuse {
			if _, err := os.Stat(path); err == nil {
				logger.Printf("Reusing tokenizer from %s", path)
				return vocab.LoadWordLevel(path)
			}
		}
		tok := vocab.TrainWordLevel(genomes, maxVocab)
		if err := tok.Save(path); err != nil {
			return nil, err
		}
		logger.Printf("Trained WordLevel tokenizer with %d tokens, saved to %s", tok.VocabSize(), path)
		return tok, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer type %q", kind)
	}
}
