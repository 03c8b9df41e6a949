// Package operators provides mutation operators for evolving policy genomes.
package operators

import (
	"math"
	"math/rand"

	"github.com/signalnine/seasalt/gosim/genome"
)

// MutationOperator is the interface for all mutation operators.
type MutationOperator interface {
	// Mutate returns a mutated copy of g. The input is never modified.
	Mutate(g genome.Genome, rng *rand.Rand) genome.Genome

	// Probability returns the per-gene probability of a change.
	Probability() float64

	// Name returns a human-readable name for this operator.
	Name() string
}

// BaseMutation provides common functionality for mutation operators.
type BaseMutation struct {
	probability float64
	name        string
}

// Probability returns the mutation probability.
func (m *BaseMutation) Probability() float64 {
	return m.probability
}

// Name returns the mutation name.
func (m *BaseMutation) Name() string {
	return m.name
}

// ShouldApply returns true if the mutation should be applied based on probability.
func (m *BaseMutation) ShouldApply(rng *rand.Rand) bool {
	return rng.Float64() < m.probability
}

var _ MutationOperator = (*GaussianMutation)(nil)

// GaussianMutation adds normal noise scaled by Strength times the gene's
// range to each gene with the operator's probability, then clamps.
type GaussianMutation struct {
	BaseMutation
	Strength float64
	schema   genome.Schema
}

// NewGaussianMutation creates a Gaussian mutation over schema's genes.
func NewGaussianMutation(schema genome.Schema, rate, strength float64) *GaussianMutation {
	return &GaussianMutation{
		BaseMutation: BaseMutation{probability: rate, name: "gaussian"},
		Strength:     strength,
		schema:       schema,
	}
}

// WithRate returns a copy of the operator using a different rate.
func (m *GaussianMutation) WithRate(rate float64) *GaussianMutation {
	clone := *m
	clone.probability = rate
	return &clone
}

// Mutate implements MutationOperator.
func (m *GaussianMutation) Mutate(g genome.Genome, rng *rand.Rand) genome.Genome {
	for i := range g.Genes {
		if !m.ShouldApply(rng) {
			continue
		}
		gene := genome.Gene(i)
		noise := rng.NormFloat64() * m.Strength * m.schema.Spec(gene).Range()
		g.Genes[i] = m.schema.Clamp(gene, g.Genes[i]+noise)
	}
	return g
}

// AdaptiveRate adjusts the base mutation rate from fitness progress.
type AdaptiveRate struct {
	Enabled bool
	// StallThreshold is the relative improvement below which progress
	// counts as stalled.
	StallThreshold float64
	// LateRatio is the share of generations after which the rate is
	// lowered for fine tuning.
	LateRatio float64
	MaxRate   float64
	MinRate   float64
}

// DefaultAdaptiveRate returns a 1% stall threshold, a 70% late ratio and
// rates bounded to [0.01, 0.3].
func DefaultAdaptiveRate() AdaptiveRate {
	return AdaptiveRate{
		Enabled:        true,
		StallThreshold: 0.01,
		LateRatio:      0.7,
		MaxRate:        0.3,
		MinRate:        0.01,
	}
}

// Rate returns the mutation rate for the next generation. A stalled run
// gets 1.5 times the base rate (at most MaxRate); otherwise a late run gets
// half the base rate (at least MinRate).
func (a AdaptiveRate) Rate(base, current, previous float64, generation, total int) float64 {
	if !a.Enabled {
		return base
	}
	progress := (current - previous) / math.Max(1, previous)
	if progress < a.StallThreshold {
		return math.Min(base*1.5, a.MaxRate)
	}
	if total > 0 && float64(generation)/float64(total) > a.LateRatio {
		return math.Max(base*0.5, a.MinRate)
	}
	return base
}
