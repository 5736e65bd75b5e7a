// Package vocab provides the tokenizer variants used for pan-genomic
// sequences: a corpus-trained word-level codec and a HuggingFace BPE
// tokenizer loaded from tokenizer.json.
package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Special token strings shared by both variants.
const (
	UnknownToken = "<unk>"
	BosToken     = "<s>"
	EosToken     = "</s>"
	PadToken     = "<pad>"
	MaskToken    = "<mask>"
)

// WordLevel maps each whitespace-separated genome token to a single ID.
// Decoding joins tokens with single spaces, so Encode and Decode
// round-trip losslessly, which the window masking pipeline depends on.
// The variant emits no boundary markers.
type WordLevel struct {
	vocab    map[string]int
	invVocab map[int]string
	unkID    int
	padID    int
	maskID   int
}

type wordLevelFile struct {
	Type  string         `json:"type"`
	Vocab map[string]int `json:"vocab"`
}

// TrainWordLevel builds a word-level vocabulary from the corpus. Tokens
// are ranked by frequency (ties broken lexicographically) and truncated to
// maxVocab including the special tokens; maxVocab <= 0 keeps every token.
func TrainWordLevel(genomes []string, maxVocab int) *WordLevel {
	counts := make(map[string]int)
	for _, g := range genomes {
		for _, tok := range strings.Fields(g) {
			counts[tok]++
		}
	}

	tokens := make([]string, 0, len(counts))
	for tok := range counts {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})

	specials := []string{UnknownToken, BosToken, EosToken, PadToken, MaskToken}
	if maxVocab > 0 && len(tokens)+len(specials) > maxVocab {
		keep := maxVocab - len(specials)
		if keep < 0 {
			keep = 0
		}
		tokens = tokens[:keep]
	}

	vocab := make(map[string]int, len(tokens)+len(specials))
	for _, s := range specials {
		vocab[s] = len(vocab)
	}
	for _, tok := range tokens {
		if _, ok := vocab[tok]; !ok {
			vocab[tok] = len(vocab)
		}
	}

	return newWordLevel(vocab)
}

// LoadWordLevel reads a saved word-level vocabulary from path
func LoadWordLevel(path string) (*WordLevel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer file %q: %w", path, err)
	}
	var file wordLevelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer file %q: %w", path, err)
	}
	if file.Type != "" && file.Type != "WordLevel" {
		return nil, fmt.Errorf("tokenizer file %q has type %q, expected WordLevel", path, file.Type)
	}
	for _, s := range []string{UnknownToken, PadToken, MaskToken} {
		if _, ok := file.Vocab[s]; !ok {
			return nil, fmt.Errorf("tokenizer file %q is missing special token %q", path, s)
		}
	}
	return newWordLevel(file.Vocab), nil
}

func newWordLevel(vocab map[string]int) *WordLevel {
	inv := make(map[int]string, len(vocab))
	for tok, id := range vocab {
		inv[id] = tok
	}
	return &WordLevel{
		vocab:    vocab,
		invVocab: inv,
		unkID:    vocab[UnknownToken],
		padID:    vocab[PadToken],
		maskID:   vocab[MaskToken],
	}
}

// Save writes the vocabulary as JSON to path
func (t *WordLevel) Save(path string) error {
	data, err := json.MarshalIndent(wordLevelFile{Type: "WordLevel", Vocab: t.vocab}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tokenizer: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tokenizer file %q: %w", path, err)
	}
	return nil
}

// Encode converts whitespace-separated genome text to token IDs. Unknown
// tokens map to the <unk> ID.
func (t *WordLevel) Encode(text string) ([]int, error) {
	fields := strings.Fields(text)
	ids := make([]int, len(fields))
	for i, f := range fields {
		id, ok := t.vocab[f]
		if !ok {
			id = t.unkID
		}
		ids[i] = id
	}
	return ids, nil
}

// Decode converts token IDs back to space-joined text. With skipSpecial,
// padding and boundary markers are dropped; <unk> and <mask> are kept as
// literal tokens so the text re-encodes to the same IDs.
func (t *WordLevel) Decode(tokenIDs []int, skipSpecial bool) (string, error) {
	parts := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		tok, ok := t.invVocab[id]
		if !ok {
			return "", fmt.Errorf("token ID %d outside vocabulary of size %d", id, len(t.vocab))
		}
		if skipSpecial && (tok == PadToken || tok == BosToken || tok == EosToken) {
			continue
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, " "), nil
}

// MaskTokenID returns the mask sentinel ID
func (t *WordLevel) MaskTokenID() int { return t.maskID }

// PadTokenID returns the padding token ID
func (t *WordLevel) PadTokenID() int { return t.padID }

// BosTokenID returns -1: the word-level variant emits no boundary markers
func (t *WordLevel) BosTokenID() int { return -1 }

// EosTokenID returns -1: the word-level variant emits no boundary markers
func (t *WordLevel) EosTokenID() int { return -1 }

// VocabSize returns the vocabulary size
func (t *WordLevel) VocabSize() int { return len(t.vocab) }
