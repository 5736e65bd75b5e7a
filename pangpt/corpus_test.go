package pangpt

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCorpus(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadCorpusSkipsBlankLines(t *testing.T) {
	path := writeCorpus(t, "1 2 3\n\n  \n4 5\n")

	genomes, err := LoadCorpus(path)
	if err != nil {
		t.Fatalf("LoadCorpus failed: %v", err)
	}
	if len(genomes) != 2 {
		t.Errorf("Expected 2 sequences, got %d", len(genomes))
	}
	if genomes[0] != "1 2 3" || genomes[1] != "4 5" {
		t.Errorf("Unexpected sequences: %v", genomes)
	}
}

func TestLoadCorpusMissingFile(t *testing.T) {
	if _, err := LoadCorpus(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Errorf("Expected error for a missing input file")
	}
}

func TestLoadCorpusEmptyFile(t *testing.T) {
	path := writeCorpus(t, "\n\n")
	if _, err := LoadCorpus(path); err == nil {
		t.Errorf("Expected error for an input file with no sequences")
	}
}

func TestStats(t *testing.T) {
	s := Stats([]string{"a b c", "a b", "a b c d e"})

	if s.NumSequences != 3 {
		t.Errorf("Expected 3 sequences, got %d", s.NumSequences)
	}
	if s.MinLength != 2 || s.MaxLength != 5 {
		t.Errorf("Expected lengths min 2 max 5, got %d/%d", s.MinLength, s.MaxLength)
	}
	if s.AvgLength != 10.0/3.0 {
		t.Errorf("Expected average length 10/3, got %f", s.AvgLength)
	}
	if s.UniqueTokens != 5 {
		t.Errorf("Expected 5 unique tokens, got %d", s.UniqueTokens)
	}
	if s.Fingerprint == 0 {
		t.Errorf("Expected a non-zero corpus fingerprint")
	}
	if s.Fingerprint != Stats([]string{"a b c", "a b", "a b c d e"}).Fingerprint {
		t.Errorf("Expected a deterministic fingerprint")
	}
}

func TestSplitCorpusProportions(t *testing.T) {
	genomes := make([]string, 100)
	for i := range genomes {
		genomes[i] = "x"
	}

	train, val, test, err := SplitCorpus(genomes, 0.8, 0.1, 42)
	if err != nil {
		t.Fatalf("SplitCorpus failed: %v", err)
	}
	if len(train) != 80 || len(val) != 10 || len(test) != 10 {
		t.Errorf("Expected 80/10/10 split, got %d/%d/%d", len(train), len(val), len(test))
	}
}

func TestSplitCorpusNoTestSet(t *testing.T) {
	genomes := make([]string, 10)
	for i := range genomes {
		genomes[i] = "x"
	}

	train, val, test, err := SplitCorpus(genomes, 0.9, 0.1, 42)
	if err != nil {
		t.Fatalf("SplitCorpus failed: %v", err)
	}
	if len(test) != 0 {
		t.Errorf("Expected empty test set when proportions sum to 1, got %d", len(test))
	}
	if len(train)+len(val) != 10 {
		t.Errorf("Expected every sequence assigned, got %d", len(train)+len(val))
	}
}

func TestSplitCorpusRejectsOversizedSplit(t *testing.T) {
	if _, _, _, err := SplitCorpus([]string{"x"}, 0.8, 0.3, 42); err == nil {
		t.Errorf("Expected error when proportions exceed 1")
	}
}

func TestSplitCorpusDeterministic(t *testing.T) {
	genomes := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	t1, v1, _, _ := SplitCorpus(genomes, 0.5, 0.25, 7)
	t2, v2, _, _ := SplitCorpus(genomes, 0.5, 0.25, 7)

	for i := range t1 {
		if t1[i] != t2[i] {
			t.Fatalf("Expected identical train splits for the same seed")
		}
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("Expected identical validation splits for the same seed")
		}
	}
}
