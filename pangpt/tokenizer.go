package pangpt

import (
	"fmt"
	"strconv"
	"strings"
)

// Tokenizer is an interface for converting between genome text and token IDs.
// Implementations must round-trip losslessly: Decode(Encode(text)) with
// special tokens skipped must reproduce the whitespace-joined token text,
// otherwise the window boundary logic in the dataset breaks.
type Tokenizer interface {
	// Encode converts text to token IDs, including any boundary markers
	// the variant defines
	Encode(text string) ([]int, error)

	// Decode converts token IDs to text. When skipSpecial is true,
	// boundary, padding and unknown markers are omitted
	Decode(tokenIDs []int, skipSpecial bool) (string, error)

	// MaskTokenID returns the mask sentinel ID
	MaskTokenID() int

	// PadTokenID returns the padding token ID
	PadTokenID() int

	// BosTokenID returns the start-of-sequence marker ID, or -1 if the
	// variant does not emit one
	BosTokenID() int

	// EosTokenID returns the end-of-sequence marker ID, or -1 if the
	// variant does not emit one
	EosTokenID() int

	// VocabSize returns the vocabulary size
	VocabSize() int
}

// MaskToken is the textual mask sentinel shared by all tokenizer variants.
const MaskToken = "<mask>"

// MockTokenizer is a simple numeric tokenizer for tests and demos.
// Each whitespace-separated token must be a non-negative integer or one of
// the special tokens; the token "7" encodes to ID 7+offset.
type MockTokenizer struct {
	vocabSize int
	maskID    int
	padID     int
	bosID     int
	eosID     int
	offset    int
	addBounds bool
}

// NewMockTokenizer creates a mock tokenizer with the layout
// [pad=0, mask=1, bos=2, eos=3, numeric tokens from 4].
func NewMockTokenizer(vocabSize int, addBounds bool) *MockTokenizer {
	return &MockTokenizer{
		vocabSize: vocabSize,
		padID:     0,
		maskID:    1,
		bosID:     2,
		eosID:     3,
		offset:    4,
		addBounds: addBounds,
	}
}

// Encode performs mock tokenization
func (t *MockTokenizer) Encode(text string) ([]int, error) {
	fields := strings.Fields(text)
	ids := make([]int, 0, len(fields)+2)
	if t.addBounds {
		ids = append(ids, t.bosID)
	}
	for _, f := range fields {
		if f == MaskToken {
			ids = append(ids, t.maskID)
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("mock tokenizer: unknown token %q", f)
		}
		ids = append(ids, n+t.offset)
	}
	if t.addBounds {
		ids = append(ids, t.eosID)
	}
	return ids, nil
}

// Decode performs mock detokenization
func (t *MockTokenizer) Decode(tokenIDs []int, skipSpecial bool) (string, error) {
	parts := make([]string, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		switch id {
		case t.padID, t.bosID, t.eosID:
			if !skipSpecial {
				parts = append(parts, fmt.Sprintf("<%d>", id))
			}
		case t.maskID:
			parts = append(parts, MaskToken)
		default:
			parts = append(parts, strconv.Itoa(id-t.offset))
		}
	}
	return strings.Join(parts, " "), nil
}

// MaskTokenID returns the mask sentinel ID
func (t *MockTokenizer) MaskTokenID() int { return t.maskID }

// PadTokenID returns the padding token ID
func (t *MockTokenizer) PadTokenID() int { return t.padID }

// BosTokenID returns the start-of-sequence marker ID
func (t *MockTokenizer) BosTokenID() int {
	if !t.addBounds {
		return -1
	}
	return t.bosID
}

// EosTokenID returns the end-of-sequence marker ID
func (t *MockTokenizer) EosTokenID() int {
	if !t.addBounds {
		return -1
	}
	return t.eosID
}

// VocabSize returns the vocabulary size
func (t *MockTokenizer) VocabSize() int { return t.vocabSize }
