package pangpt

import "fmt"

// MetricSet holds the classification-quality metrics computed over one
// worker's local shard. Precision, recall and F1 are macro-averaged over
// the classes observed in either predictions or labels.
type MetricSet struct {
	Precision float64
	Recall    float64
	F1        float64
	Kappa     float64

	// Degenerate is set when every prediction is the same class, a sign
	// the model may not be learning. Advisory only.
	Degenerate bool
}

// CalculateMetrics computes macro precision/recall/F1 and Cohen's kappa
// from flattened predictions and labels.
func CalculateMetrics(preds, labels []int) (MetricSet, error) {
	if len(preds) != len(labels) {
		return MetricSet{}, fmt.Errorf("got %d predictions for %d labels", len(preds), len(labels))
	}
	if len(preds) == 0 {
		return MetricSet{}, fmt.Errorf("no predictions to score")
	}

	classes := make(map[int]struct{})
	for _, p := range preds {
		classes[p] = struct{}{}
	}
	degenerate := len(classes) == 1
	for _, l := range labels {
		classes[l] = struct{}{}
	}

	tp := make(map[int]int)
	predCount := make(map[int]int)
	labelCount := make(map[int]int)
	agree := 0
	for i := range preds {
		predCount[preds[i]]++
		labelCount[labels[i]]++
		if preds[i] == labels[i] {
			tp[preds[i]]++
			agree++
		}
	}

	var sumPrecision, sumRecall, sumF1 float64
	for c := range classes {
		var precision, recall float64
		if predCount[c] > 0 {
			precision = float64(tp[c]) / float64(predCount[c])
		}
		if labelCount[c] > 0 {
			recall = float64(tp[c]) / float64(labelCount[c])
		}
		sumPrecision += precision
		sumRecall += recall
		if precision+recall > 0 {
			sumF1 += 2 * precision * recall / (precision + recall)
		}
	}

	n := float64(len(preds))
	numClasses := float64(len(classes))

	po := float64(agree) / n
	pe := 0.0
	for c := range classes {
		pe += float64(predCount[c]) * float64(labelCount[c]) / (n * n)
	}
	kappa := 0.0
	if pe < 1 {
		kappa = (po - pe) / (1 - pe)
	}

	return MetricSet{
		Precision:  sumPrecision / numClasses,
		Recall:     sumRecall / numClasses,
		F1:         sumF1 / numClasses,
		Kappa:      kappa,
		Degenerate: degenerate,
	}, nil
}
