package evolution

import "math"

// EarlyStopping stops training after Patience checks without an
// improvement larger than MinDelta.
type EarlyStopping struct {
	Patience int
	MinDelta float64

	bestFitness float64
	counter     int
}

// NewEarlyStopping creates a stopper that has seen nothing yet.
func NewEarlyStopping(patience int, minDelta float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:    patience,
		MinDelta:    minDelta,
		bestFitness: math.Inf(-1),
	}
}

// ShouldStop records the current best fitness and reports whether the run
// has stalled for Patience consecutive checks.
func (es *EarlyStopping) ShouldStop(fitness float64) bool {
	if fitness > es.bestFitness+es.MinDelta {
		es.bestFitness = fitness
		es.counter = 0
		return false
	}

	es.counter++
	return es.counter >= es.Patience
}

// Reset forgets every recorded check.
func (es *EarlyStopping) Reset() {
	es.bestFitness = math.Inf(-1)
	es.counter = 0
}
