package pangpt

import (
	"fmt"
	"log"
)

// TokenizerType selects which tokenizer variant the trainer uses.
type TokenizerType string

const (
	TokenizerWordLevel TokenizerType = "WordLevel"
	TokenizerBPE       TokenizerType = "BPE"
)

// IgnoreIndex is the label value excluded from loss computation.
const IgnoreIndex = -100

// Config holds the configuration for a training run
type Config struct {
	InputFile     string
	TokenizerKind TokenizerType
	TokenizerPath string

	MaxSeqLength int
	BatchSize    int
	PropMasked   float64

	LearningRate      float64
	WeightDecay       float64
	LRSchedulerFactor float64
	LRPatience        int
	EarlyStopPatience int
	MinDelta          float64
	Epochs            int

	TrainSize float64
	ValSize   float64
	Seed      uint64

	ModelSavePath string
	HistoryPath   string

	WorldSize  int
	NumWorkers int

	Restart               bool
	GradientCheckpointing bool
	ShowProgress          bool

	Logger *log.Logger
}

// ConfigOption is a functional option for Config
type ConfigOption func(*Config)

// NewConfig creates a new Config with default values
func NewConfig(inputFile string, opts ...ConfigOption) *Config {
	c := &Config{
		InputFile:         inputFile,
		TokenizerKind:     TokenizerWordLevel,
		TokenizerPath:     "./pangenome_tokenizer.json",
		MaxSeqLength:      16384,
		BatchSize:         2,
		PropMasked:        0.3,
		LearningRate:      0.0001,
		WeightDecay:       1e-4,
		LRSchedulerFactor: 0.5,
		LRPatience:        10,
		EarlyStopPatience: 10,
		MinDelta:          0.01,
		Epochs:            50,
		TrainSize:         0.8,
		ValSize:           0.1,
		Seed:              42,
		ModelSavePath:     "./model_checkpoint.json",
		HistoryPath:       "",
		WorldSize:         1,
		NumWorkers:        1,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		panic(err)
	}

	return c
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.MaxSeqLength < 1 {
		return fmt.Errorf("max_seq_length must be positive, got %d", c.MaxSeqLength)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}

	if c.PropMasked < 0 || c.PropMasked > 1 {
		return fmt.Errorf("prop_masked must be in [0,1], got %f", c.PropMasked)
	}

	if c.TrainSize+c.ValSize > 1.0 {
		return fmt.Errorf("the sum of train_size and val_size must be less than or equal to 1.0")
	}

	if c.WorldSize < 1 {
		return fmt.Errorf("world_size must be at least 1, got %d", c.WorldSize)
	}

	if c.NumWorkers < 1 {
		return fmt.Errorf("num_workers must be at least 1, got %d", c.NumWorkers)
	}

	if c.TokenizerKind != TokenizerWordLevel && c.TokenizerKind != TokenizerBPE {
		return fmt.Errorf("unknown tokenizer type %q", c.TokenizerKind)
	}

	return nil
}

func (c *Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// WithTokenizerType sets the tokenizer variant
func WithTokenizerType(t TokenizerType) ConfigOption {
	return func(c *Config) {
		c.TokenizerKind = t
	}
}

// WithTokenizerPath sets the tokenizer load/save path
func WithTokenizerPath(path string) ConfigOption {
	return func(c *Config) {
		c.TokenizerPath = path
	}
}

// WithMaxSeqLength sets the training window length
func WithMaxSeqLength(n int) ConfigOption {
	return func(c *Config) {
		c.MaxSeqLength = n
	}
}

// WithBatchSize sets the batch size for training and validation
func WithBatchSize(n int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = n
	}
}

// WithPropMasked sets the average proportion of tokens to mask
func WithPropMasked(p float64) ConfigOption {
	return func(c *Config) {
		c.PropMasked = p
	}
}

// WithLearningRate sets the initial learning rate
func WithLearningRate(lr float64) ConfigOption {
	return func(c *Config) {
		c.LearningRate = lr
	}
}

// WithWeightDecay sets the optimizer weight decay
func WithWeightDecay(wd float64) ConfigOption {
	return func(c *Config) {
		c.WeightDecay = wd
	}
}

// WithLRScheduler sets the plateau scheduler factor and patience
func WithLRScheduler(factor float64, patience int) ConfigOption {
	return func(c *Config) {
		c.LRSchedulerFactor = factor
		c.LRPatience = patience
	}
}

// WithEarlyStopping sets the early stopping patience and minimum delta
func WithEarlyStopping(patience int, minDelta float64) ConfigOption {
	return func(c *Config) {
		c.EarlyStopPatience = patience
		c.MinDelta = minDelta
	}
}

// WithEpochs sets the number of training epochs
func WithEpochs(n int) ConfigOption {
	return func(c *Config) {
		c.Epochs = n
	}
}

// WithSplit sets the train and validation proportions
func WithSplit(trainSize, valSize float64) ConfigOption {
	return func(c *Config) {
		c.TrainSize = trainSize
		c.ValSize = valSize
	}
}

// WithSeed sets the random seed for reproducibility
func WithSeed(seed uint64) ConfigOption {
	return func(c *Config) {
		c.Seed = seed
	}
}

// WithModelSavePath sets the checkpoint path
func WithModelSavePath(path string) ConfigOption {
	return func(c *Config) {
		c.ModelSavePath = path
	}
}

// WithHistoryPath sets the SQLite metrics history path (empty disables history)
func WithHistoryPath(path string) ConfigOption {
	return func(c *Config) {
		c.HistoryPath = path
	}
}

// WithWorldSize sets the number of parallel workers
func WithWorldSize(n int) ConfigOption {
	return func(c *Config) {
		c.WorldSize = n
	}
}

// WithNumWorkers sets the number of data loading prefetch workers
func WithNumWorkers(n int) ConfigOption {
	return func(c *Config) {
		c.NumWorkers = n
	}
}

// WithRestart forces training to start from scratch, ignoring any checkpoint
func WithRestart(b bool) ConfigOption {
	return func(c *Config) {
		c.Restart = b
	}
}

// WithGradientCheckpointing trades recomputation for reduced activation storage
func WithGradientCheckpointing(b bool) ConfigOption {
	return func(c *Config) {
		c.GradientCheckpointing = b
	}
}

// WithProgress enables the per-epoch progress bars on the coordinating
// worker
func WithProgress(b bool) ConfigOption {
	return func(c *Config) {
		c.ShowProgress = b
	}
}

// WithLogger sets the logger used for training output
func WithLogger(l *log.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = l
	}
}
