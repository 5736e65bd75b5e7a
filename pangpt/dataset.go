package pangpt

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/exp/rand"
)

// encodeCacheSize bounds the number of base sequence encodings kept in
// memory. Encoding a full genome line is deterministic and relatively
// expensive, so repeated retrievals across epochs hit the cache while
// windowing and masking stay freshly random.
const encodeCacheSize = 4096

// GenomeDataset exposes a corpus of genome token sequences as an indexable
// collection of training examples. Retrieval is intentionally stochastic:
// fetching the same index twice yields different windows and masks. With a
// fixed seed set immediately before retrieval, results are deterministic.
type GenomeDataset struct {
	texts     []string
	tokenizer Tokenizer
	maxLength int
	masker    *Masker

	mu    sync.Mutex
	rng   *rand.Rand
	cache *lru.Cache
}

// NewGenomeDataset creates a dataset over the given genome lines
func NewGenomeDataset(texts []string, tokenizer Tokenizer, maxLength int, propMasked float64, seed uint64) *GenomeDataset {
	rng := rand.New(rand.NewSource(seed))
	cache, _ := lru.New(encodeCacheSize)
	return &GenomeDataset{
		texts:     texts,
		tokenizer: tokenizer,
		maxLength: maxLength,
		masker:    NewMasker(propMasked, rng),
		rng:       rng,
		cache:     cache,
	}
}

// Len returns the number of sequences in the dataset
func (d *GenomeDataset) Len() int {
	return len(d.texts)
}

// Seed resets the random source driving windowing and masking
func (d *GenomeDataset) Seed(seed uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rng.Seed(seed)
}

// encoded returns the cached base encoding of a sequence, including any
// boundary markers the tokenizer emits.
func (d *GenomeDataset) encoded(idx int) ([]int, error) {
	if v, ok := d.cache.Get(idx); ok {
		return v.([]int), nil
	}
	ids, err := d.tokenizer.Encode(d.texts[idx])
	if err != nil {
		return nil, fmt.Errorf("failed to encode sequence %d: %w", idx, err)
	}
	d.cache.Add(idx, ids)
	return ids, nil
}

// Get assembles the training example for the sequence at idx: a randomly
// aligned window of the tokenized sequence, its decoded text corrupted by
// the masker, re-encoded with boundary markers trimmed to the window's
// position within the full sequence.
func (d *GenomeDataset) Get(idx int) (*TrainingExample, error) {
	if idx < 0 || idx >= len(d.texts) {
		return nil, fmt.Errorf("dataset index %d out of range [0,%d)", idx, len(d.texts))
	}

	ids, err := d.encoded(idx)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	win := SampleWindow(ids, d.maxLength, d.rng)
	d.mu.Unlock()

	// Decode and re-encode around masking so that the decoder learns from
	// the same string the encoder sees. Masking collapses runs, so token
	// positions do not map 1:1 between the two sides.
	text, err := d.tokenizer.Decode(win.IDs, true)
	if err != nil {
		return nil, fmt.Errorf("failed to decode window for sequence %d: %w", idx, err)
	}

	d.mu.Lock()
	masked := d.masker.Mask(text)
	d.mu.Unlock()

	encoderIDs, err := d.tokenizer.Encode(masked)
	if err != nil {
		return nil, fmt.Errorf("failed to encode masked window for sequence %d: %w", idx, err)
	}
	encoderIDs = d.trimBoundaryMarkers(encoderIDs, win)

	return AssembleExample(
		win.IDs,
		encoderIDs,
		d.maxLength,
		d.tokenizer.PadTokenID(),
		d.tokenizer.MaskTokenID(),
		win.IsSequenceStart(),
	), nil
}

// trimBoundaryMarkers drops the tokenizer's start marker unless the window
// begins the full sequence, and the end marker unless the window ends it.
// Each sequence therefore contributes each boundary marker exactly once
// across all of its windows.
func (d *GenomeDataset) trimBoundaryMarkers(ids []int, win *Window) []int {
	if bos := d.tokenizer.BosTokenID(); bos >= 0 && !win.IsSequenceStart() {
		if len(ids) > 0 && ids[0] == bos {
			ids = ids[1:]
		}
	}
	if eos := d.tokenizer.EosTokenID(); eos >= 0 && !win.IsSequenceEnd() {
		if len(ids) > 0 && ids[len(ids)-1] == eos {
			ids = ids[:len(ids)-1]
		}
	}
	return ids
}
