package vocab

import (
	"fmt"

	"github.com/daulet/tokenizers"
)

// BPE wraps a HuggingFace byte-level BPE tokenizer loaded from a
// tokenizer.json file. Encoding adds the <s> and </s> boundary markers;
// the dataset trims them according to window position.
type BPE struct {
	tk     *tokenizers.Tokenizer
	maskID int
	padID  int
	bosID  int
	eosID  int
}

// NewBPE loads a byte-level BPE tokenizer from a tokenizer.json path.
// Special token IDs are resolved by encoding the literal token strings, so
// the file must register <mask> and <pad> as added tokens.
func NewBPE(path string) (*BPE, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load BPE tokenizer from %q: %w", path, err)
	}

	t := &BPE{tk: tk}
	for _, st := range []struct {
		token string
		id    *int
	}{
		{MaskToken, &t.maskID},
		{PadToken, &t.padID},
		{BosToken, &t.bosID},
		{EosToken, &t.eosID},
	} {
		ids, _ := tk.Encode(st.token, false)
		if len(ids) != 1 {
			tk.Close()
			return nil, fmt.Errorf("tokenizer %q does not map %q to a single token", path, st.token)
		}
		*st.id = int(ids[0])
	}

	return t, nil
}

// Close releases the native tokenizer
func (t *BPE) Close() error {
	t.tk.Close()
	return nil
}

// Encode converts text to token IDs including boundary markers
func (t *BPE) Encode(text string) ([]int, error) {
	raw, _ := t.tk.Encode(text, true)
	ids := make([]int, len(raw))
	for i, id := range raw {
		ids[i] = int(id)
	}
	return ids, nil
}

// Decode converts token IDs back to text
func (t *BPE) Decode(tokenIDs []int, skipSpecial bool) (string, error) {
	raw := make([]uint32, len(tokenIDs))
	for i, id := range tokenIDs {
		if id < 0 {
			return "", fmt.Errorf("cannot decode negative token ID %d", id)
		}
		raw[i] = uint32(id)
	}
	return t.tk.Decode(raw, skipSpecial), nil
}

// MaskTokenID returns the mask sentinel ID
func (t *BPE) MaskTokenID() int { return t.maskID }

// PadTokenID returns the padding token ID
func (t *BPE) PadTokenID() int { return t.padID }

// BosTokenID returns the start-of-sequence marker ID
func (t *BPE) BosTokenID() int { return t.bosID }

// EosTokenID returns the end-of-sequence marker ID
func (t *BPE) EosTokenID() int { return t.eosID }

// VocabSize returns the vocabulary size
func (t *BPE) VocabSize() int { return int(t.tk.VocabSize()) }
