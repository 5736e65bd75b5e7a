package pangpt

// EarlyStopping tracks the best validation loss seen so far and trips once
// it fails to improve by MinDelta for Patience consecutive epochs.
type EarlyStopping struct {
	Patience int
	MinDelta float64

	counter  int
	bestLoss float64
	hasBest  bool
	stopped  bool
}

// NewEarlyStopping creates an early stopping tracker
func NewEarlyStopping(patience int, minDelta float64) *EarlyStopping {
	return &EarlyStopping{Patience: patience, MinDelta: minDelta}
}

// Observe records one epoch's validation loss. The first observation sets
// the best loss; afterwards, insufficient improvement increments the
// patience counter and sufficient improvement resets it.
func (e *EarlyStopping) Observe(valLoss float64) {
	if !e.hasBest {
		e.bestLoss = valLoss
		e.hasBest = true
		return
	}
	if valLoss > e.bestLoss-e.MinDelta {
		e.counter++
		if e.counter >= e.Patience {
			e.stopped = true
		}
		return
	}
	e.bestLoss = valLoss
	e.counter = 0
}

// Stopped reports whether the patience window has been exhausted
func (e *EarlyStopping) Stopped() bool {
	return e.stopped
}

// BestLoss returns the best validation loss observed so far. The second
// return is false until the first observation.
func (e *EarlyStopping) BestLoss() (float64, bool) {
	return e.bestLoss, e.hasBest
}

// Counter returns the current patience counter
func (e *EarlyStopping) Counter() int {
	return e.counter
}
