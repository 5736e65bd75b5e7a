package pangpt

import (
	"testing"

	"golang.org/x/exp/rand"
)

func TestSampleWindowShortSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []int{10, 11, 12}

	w := SampleWindow(ids, 8, rng)

	if len(w.IDs) != 3 {
		t.Errorf("Expected whole sequence of length 3, got %d", len(w.IDs))
	}
	if !w.IsSequenceStart() {
		t.Errorf("Short window should start the sequence")
	}
	if !w.IsSequenceEnd() {
		t.Errorf("Short window should end the sequence")
	}
	for i, id := range w.IDs {
		if id != ids[i] {
			t.Errorf("Expected id %d at position %d, got %d", ids[i], i, id)
		}
	}
}

func TestSampleWindowExactLength(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := make([]int, 100)
	for i := range ids {
		ids[i] = i
	}

	for trial := 0; trial < 200; trial++ {
		w := SampleWindow(ids, 16, rng)
		if len(w.IDs) != 16 {
			t.Fatalf("Expected window length 16, got %d", len(w.IDs))
		}
		if w.StartOffset < 0 || w.StartOffset > 84 {
			t.Fatalf("Start offset %d outside [0,84]", w.StartOffset)
		}
		// Windows are contiguous slices of the source
		for i, id := range w.IDs {
			if id != w.StartOffset+i {
				t.Fatalf("Window not contiguous at position %d: got %d", i, id)
			}
		}
	}
}

func TestSampleWindowBoundaryFlags(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := make([]int, 50)

	sawStart, sawEnd, sawMiddle := false, false, false
	for trial := 0; trial < 500; trial++ {
		w := SampleWindow(ids, 10, rng)
		switch {
		case w.IsSequenceStart() && w.IsSequenceEnd():
			t.Fatalf("A 10-token window of a 50-token sequence cannot be both start and end")
		case w.IsSequenceStart():
			sawStart = true
		case w.IsSequenceEnd():
			sawEnd = true
		default:
			sawMiddle = true
		}
	}
	if !sawStart || !sawEnd || !sawMiddle {
		t.Errorf("Expected start, end and middle windows over 500 samples: start=%v end=%v middle=%v",
			sawStart, sawEnd, sawMiddle)
	}
}

func TestSampleWindowDoesNotAliasSource(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []int{1, 2, 3}

	w := SampleWindow(ids, 8, rng)
	w.IDs[0] = 99

	if ids[0] != 1 {
		t.Errorf("Window must copy the source slice")
	}
}
