package pangpt

import (
	"strings"
	"testing"

	"golang.org/x/exp/rand"
)

func TestMaskZeroProportion(t *testing.T) {
	m := NewMasker(0, rand.New(rand.NewSource(42)))

	text := "1 2 3 4 5"
	if got := m.Mask(text); got != text {
		t.Errorf("Expected unchanged text with zero proportion, got %q", got)
	}
}

func TestMaskEmptyText(t *testing.T) {
	m := NewMasker(0.5, rand.New(rand.NewSource(42)))

	if got := m.Mask(""); got != "" {
		t.Errorf("Expected empty text to stay empty, got %q", got)
	}
}

func TestMaskNeverExceedsTokenCount(t *testing.T) {
	// A proportion of 1.0 drives the Poisson mean to the full token count;
	// draws above it must be clamped
	m := NewMasker(1.0, rand.New(rand.NewSource(42)))

	for trial := 0; trial < 200; trial++ {
		got := m.Mask("1 2 3 4 5")
		fields := strings.Fields(got)
		if len(fields) != 5 {
			t.Fatalf("Expected 5 tokens, got %d in %q", len(fields), got)
		}
		for _, f := range fields {
			if f != MaskToken && f != "1" && f != "2" && f != "3" && f != "4" && f != "5" {
				t.Fatalf("Unexpected token %q in %q", f, got)
			}
		}
	}
}

func TestMaskPreservesUnmaskedOrder(t *testing.T) {
	m := NewMasker(0.4, rand.New(rand.NewSource(11)))

	got := m.Mask("10 20 30 40 50 60 70 80 90 100")
	want := strings.Fields("10 20 30 40 50 60 70 80 90 100")
	fields := strings.Fields(got)
	if len(fields) != len(want) {
		t.Fatalf("Expected %d tokens, got %d", len(want), len(fields))
	}
	for i, f := range fields {
		if f != MaskToken && f != want[i] {
			t.Errorf("Token %d changed from %q to %q without being masked", i, want[i], f)
		}
	}
}

func TestCollapseMaskRuns(t *testing.T) {
	got := CollapseMaskRuns([]int{5, 1, 1, 1, 6, 1, 7, 1, 1}, 1)
	want := []int{5, 1, 6, 1, 7, 1}

	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestCollapseMaskRunsIdempotent(t *testing.T) {
	once := CollapseMaskRuns([]int{1, 1, 2, 1, 1, 1, 3}, 1)
	twice := CollapseMaskRuns(once, 1)

	if len(once) != len(twice) {
		t.Fatalf("Collapse is not idempotent: %v then %v", once, twice)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("Collapse is not idempotent: %v then %v", once, twice)
		}
	}
	for i := 1; i < len(once); i++ {
		if once[i] == 1 && once[i-1] == 1 {
			t.Errorf("Adjacent mask sentinels survived collapse: %v", once)
		}
	}
}

func TestCollapseMaskRunsNoMasks(t *testing.T) {
	ids := []int{4, 5, 6}
	got := CollapseMaskRuns(ids, 1)
	if len(got) != 3 {
		t.Errorf("Expected untouched sequence of length 3, got %v", got)
	}
}
