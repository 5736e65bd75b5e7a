package pangpt

import (
	"math"
	"testing"
)

func TestCrossEntropyUniformLogits(t *testing.T) {
	// Uniform logits over V classes give loss ln(V) at every position
	logits := [][][]float64{{{0, 0, 0, 0}}}
	labels := [][]int{{2}}

	loss, dLogits, err := CrossEntropy(logits, labels)
	if err != nil {
		t.Fatalf("CrossEntropy failed: %v", err)
	}

	want := math.Log(4)
	if math.Abs(loss-want) > 1e-12 {
		t.Errorf("Expected loss %f, got %f", want, loss)
	}

	// Gradient is softmax minus one-hot: 0.25 everywhere, -0.75 at the label
	for v, g := range dLogits[0][0] {
		want := 0.25
		if v == 2 {
			want = -0.75
		}
		if math.Abs(g-want) > 1e-12 {
			t.Errorf("Expected gradient %f at class %d, got %f", want, v, g)
		}
	}
}

func TestCrossEntropyIgnoresPaddedPositions(t *testing.T) {
	logits := [][][]float64{{{0, 0}, {5, -5}}}
	labels := [][]int{{0, IgnoreIndex}}

	loss, dLogits, err := CrossEntropy(logits, labels)
	if err != nil {
		t.Fatalf("CrossEntropy failed: %v", err)
	}

	want := math.Log(2)
	if math.Abs(loss-want) > 1e-12 {
		t.Errorf("Expected loss %f over the single counted position, got %f", want, loss)
	}
	for v, g := range dLogits[0][1] {
		if g != 0 {
			t.Errorf("Expected zero gradient at ignored position class %d, got %f", v, g)
		}
	}
}

func TestCrossEntropyAllIgnored(t *testing.T) {
	logits := [][][]float64{{{0, 0}}}
	labels := [][]int{{IgnoreIndex}}

	if _, _, err := CrossEntropy(logits, labels); err == nil {
		t.Errorf("Expected error when every position is ignored")
	}
}

func TestCrossEntropyLabelOutOfVocab(t *testing.T) {
	logits := [][][]float64{{{0, 0}}}
	labels := [][]int{{5}}

	if _, _, err := CrossEntropy(logits, labels); err == nil {
		t.Errorf("Expected error for a label outside the vocabulary")
	}
}

func TestCrossEntropyGradientSumsToZero(t *testing.T) {
	logits := [][][]float64{{{1.5, -0.3, 0.7}, {0.1, 0.2, 0.3}}}
	labels := [][]int{{0, 2}}

	_, dLogits, err := CrossEntropy(logits, labels)
	if err != nil {
		t.Fatalf("CrossEntropy failed: %v", err)
	}
	for _, row := range dLogits[0] {
		sum := 0.0
		for _, g := range row {
			sum += g
		}
		if math.Abs(sum) > 1e-12 {
			t.Errorf("Expected gradient row to sum to zero, got %g", sum)
		}
	}
}

func TestCrossEntropyStableWithLargeLogits(t *testing.T) {
	logits := [][][]float64{{{1000, 999, 998}}}
	labels := [][]int{{0}}

	loss, _, err := CrossEntropy(logits, labels)
	if err != nil {
		t.Fatalf("CrossEntropy failed: %v", err)
	}
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		t.Errorf("Expected finite loss with large logits, got %f", loss)
	}
}

func TestArgmax(t *testing.T) {
	if got := Argmax([]float64{0.1, 2.5, -1, 2.4}); got != 1 {
		t.Errorf("Expected argmax 1, got %d", got)
	}
}
