package pangpt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// CrossEntropy computes the token-level cross-entropy between logits
// [batch][seq][vocab] and integer labels [batch][seq], averaging over all
// positions whose label is not IgnoreIndex. It returns the mean loss and
// the gradient of that loss w.r.t. the logits. Ignored positions receive a
// zero gradient.
func CrossEntropy(logits [][][]float64, labels [][]int) (float64, [][][]float64, error) {
	if len(logits) != len(labels) {
		return 0, nil, fmt.Errorf("logits batch %d does not match labels batch %d", len(logits), len(labels))
	}

	counted := 0
	for b := range labels {
		for _, label := range labels[b] {
			if label != IgnoreIndex {
				counted++
			}
		}
	}
	if counted == 0 {
		return 0, nil, fmt.Errorf("no label positions to score")
	}

	total := 0.0
	dLogits := make([][][]float64, len(logits))
	for b := range logits {
		if len(logits[b]) != len(labels[b]) {
			return 0, nil, fmt.Errorf("logits seq %d does not match labels seq %d", len(logits[b]), len(labels[b]))
		}
		dLogits[b] = make([][]float64, len(logits[b]))
		for t := range logits[b] {
			row := logits[b][t]
			grad := make([]float64, len(row))
			dLogits[b][t] = grad

			label := labels[b][t]
			if label == IgnoreIndex {
				continue
			}
			if label < 0 || label >= len(row) {
				return 0, nil, fmt.Errorf("label %d outside vocabulary of size %d", label, len(row))
			}

			// log-softmax with the usual max shift for stability
			max := floats.Max(row)
			sumExp := 0.0
			for _, l := range row {
				sumExp += math.Exp(l - max)
			}
			logZ := max + math.Log(sumExp)
			total += logZ - row[label]

			inv := 1.0 / float64(counted)
			for v, l := range row {
				grad[v] = math.Exp(l-logZ) * inv
			}
			grad[label] -= inv
		}
	}

	return total / float64(counted), dLogits, nil
}

// Argmax returns the index of the largest logit in a row
func Argmax(row []float64) int {
	return floats.MaxIdx(row)
}
