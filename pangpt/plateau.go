package pangpt

// PlateauScheduler reduces the learning rate by Factor once validation
// loss fails to improve for Patience consecutive epochs. Its counters are
// independent of early stopping even though both observe the same loss.
type PlateauScheduler struct {
	Factor   float64
	Patience int
	MinLR    float64

	optimizer Optimizer
	counter   int
	bestLoss  float64
	hasBest   bool
}

// NewPlateauScheduler creates a reduce-on-plateau scheduler bound to an
// optimizer.
func NewPlateauScheduler(optimizer Optimizer, factor float64, patience int) *PlateauScheduler {
	return &PlateauScheduler{
		Factor:    factor,
		Patience:  patience,
		optimizer: optimizer,
	}
}

// Step records one epoch's validation loss and reduces the learning rate
// when the plateau window is exhausted. It returns the learning rate in
// effect after the observation.
func (s *PlateauScheduler) Step(valLoss float64) float64 {
	if !s.hasBest || valLoss < s.bestLoss {
		s.bestLoss = valLoss
		s.hasBest = true
		s.counter = 0
		return s.optimizer.LR()
	}

	s.counter++
	if s.counter >= s.Patience {
		s.counter = 0
		lr := s.optimizer.LR() * s.Factor
		if lr < s.MinLR {
			lr = s.MinLR
		}
		s.optimizer.SetLR(lr)
	}
	return s.optimizer.LR()
}
