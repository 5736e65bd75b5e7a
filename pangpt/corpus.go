package pangpt

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/rand"
)

// CorpusStats summarizes a loaded corpus
type CorpusStats struct {
	NumSequences int
	MinLength    int
	MaxLength    int
	AvgLength    float64
	UniqueTokens int
	Fingerprint  uint64
}

// LoadCorpus reads one genome sequence per line from path. Blank lines are
// skipped. A missing or unreadable file is a fatal condition for the
// caller to act on.
func LoadCorpus(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file %q: %w", path, err)
	}
	defer f.Close()

	var genomes []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			genomes = append(genomes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file %q: %w", path, err)
	}
	if len(genomes) == 0 {
		return nil, fmt.Errorf("input file %q contains no sequences", path)
	}
	return genomes, nil
}

// Stats computes summary statistics over a corpus, including an xxhash
// fingerprint usable to detect corpus drift between a tokenizer and a
// later training run.
func Stats(genomes []string) CorpusStats {
	stats := CorpusStats{NumSequences: len(genomes)}

	unique := make(map[string]struct{})
	total := 0
	h := xxhash.New()
	for i, g := range genomes {
		tokens := strings.Fields(g)
		n := len(tokens)
		total += n
		if i == 0 || n < stats.MinLength {
			stats.MinLength = n
		}
		if n > stats.MaxLength {
			stats.MaxLength = n
		}
		for _, t := range tokens {
			unique[t] = struct{}{}
		}
		h.WriteString(g)
		h.Write([]byte{'\n'})
	}

	if stats.NumSequences > 0 {
		stats.AvgLength = float64(total) / float64(stats.NumSequences)
	}
	stats.UniqueTokens = len(unique)
	stats.Fingerprint = h.Sum64()
	return stats
}

// SplitCorpus partitions a corpus into train, validation and test sets
// with a seeded shuffle. trainSize and valSize are proportions of the full
// corpus; the remainder, if any, becomes the test set.
func SplitCorpus(genomes []string, trainSize, valSize float64, seed uint64) (train, val, test []string, err error) {
	if trainSize+valSize > 1.0 {
		return nil, nil, nil, fmt.Errorf("the sum of train_size and val_size must be less than or equal to 1.0")
	}

	rng := rand.New(rand.NewSource(seed))
	shuffled := make([]string, len(genomes))
	copy(shuffled, genomes)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nTrain := int(float64(len(shuffled)) * trainSize)
	nVal := int(float64(len(shuffled)) * valSize)
	if trainSize+valSize == 1.0 || nTrain+nVal > len(shuffled) {
		// no test set requested; rounding leftovers go to validation
		nVal = len(shuffled) - nTrain
	}

	train = shuffled[:nTrain]
	val = shuffled[nTrain : nTrain+nVal]
	test = shuffled[nTrain+nVal:]
	return train, val, test, nil
}
