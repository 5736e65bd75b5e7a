package pangpt

import "golang.org/x/exp/rand"

// Window is a contiguous fixed-length slice of a tokenized sequence.
type Window struct {
	IDs         []int
	StartOffset int
	SeqLen      int
}

// IsSequenceStart reports whether the window begins at the start of the
// full sequence.
func (w *Window) IsSequenceStart() bool {
	return w.StartOffset == 0
}

// IsSequenceEnd reports whether the window ends exactly at the end of the
// full sequence.
func (w *Window) IsSequenceEnd() bool {
	return w.StartOffset+len(w.IDs) == w.SeqLen
}

// SampleWindow slices a tokenized sequence into a window of at most
// maxLength tokens. Sequences no longer than maxLength are returned whole;
// longer sequences are sliced at a uniformly random start offset.
func SampleWindow(ids []int, maxLength int, rng *rand.Rand) *Window {
	if len(ids) <= maxLength {
		w := make([]int, len(ids))
		copy(w, ids)
		return &Window{IDs: w, StartOffset: 0, SeqLen: len(ids)}
	}

	start := rng.Intn(len(ids) - maxLength + 1)
	w := make([]int, maxLength)
	copy(w, ids[start:start+maxLength])
	return &Window{IDs: w, StartOffset: start, SeqLen: len(ids)}
}
