// Package evolution provides the genetic algorithm and training loop that
// evolve policy genomes.
package evolution

import (
	"math/rand"

	"github.com/signalnine/seasalt/gosim/genome"
)

// CrossoverOperator defines the interface for crossover operations.
type CrossoverOperator interface {
	// Crossover produces one child from two parent genomes. The child
	// always carries a fresh id.
	Crossover(parent1, parent2 genome.Genome, rng *rand.Rand) genome.Genome

	// Probability returns the probability of crossover being applied.
	Probability() float64

	// Name returns the operator name used in configs.
	Name() string
}

// skipCrossover draws the probability check. A skipped crossover yields a
// copy of parent1 under a new id.
func skipCrossover(probability float64, parent1 genome.Genome, rng *rand.Rand) (genome.Genome, bool) {
	if rng.Float64() >= probability {
		return parent1.WithID(genome.NewID(rng)), true
	}
	return genome.Genome{}, false
}

// UniformCrossover implements uniform crossover where each gene is
// randomly selected from one of the two parents.
type UniformCrossover struct {
	probability float64
}

// NewUniformCrossover creates a new uniform crossover operator.
func NewUniformCrossover(probability float64) *UniformCrossover {
	return &UniformCrossover{probability: probability}
}

// Probability returns the crossover probability.
func (c *UniformCrossover) Probability() float64 {
	return c.probability
}

// Name implements CrossoverOperator.
func (c *UniformCrossover) Name() string {
	return "uniform"
}

// Crossover takes each gene from either parent with equal chance.
func (c *UniformCrossover) Crossover(parent1, parent2 genome.Genome, rng *rand.Rand) genome.Genome {
	if child, skipped := skipCrossover(c.probability, parent1, rng); skipped {
		return child
	}

	child := genome.Genome{ID: genome.NewID(rng)}
	for i := range child.Genes {
		if rng.Float64() < 0.5 {
			child.Genes[i] = parent1.Genes[i]
		} else {
			child.Genes[i] = parent2.Genes[i]
		}
	}
	return child
}

// SinglePointCrossover copies genes before a random cut point from the
// first parent and the rest from the second.
type SinglePointCrossover struct {
	probability float64
}

// NewSinglePointCrossover creates a new single-point crossover operator.
func NewSinglePointCrossover(probability float64) *SinglePointCrossover {
	return &SinglePointCrossover{probability: probability}
}

// Probability returns the crossover probability.
func (c *SinglePointCrossover) Probability() float64 {
	return c.probability
}

// Name implements CrossoverOperator.
func (c *SinglePointCrossover) Name() string {
	return "single"
}

// Crossover picks a point in [0, NumGenes); genes with index < point come
// from parent1.
func (c *SinglePointCrossover) Crossover(parent1, parent2 genome.Genome, rng *rand.Rand) genome.Genome {
	if child, skipped := skipCrossover(c.probability, parent1, rng); skipped {
		return child
	}

	point := rng.Intn(int(genome.NumGenes))
	child := genome.Genome{ID: genome.NewID(rng)}
	for i := range child.Genes {
		if i < point {
			child.Genes[i] = parent1.Genes[i]
		} else {
			child.Genes[i] = parent2.Genes[i]
		}
	}
	return child
}

// NewCrossover returns the operator named by method ("single" or
// "uniform"); anything else is uniform.
func NewCrossover(method string, probability float64) CrossoverOperator {
	if method == "single" {
		return NewSinglePointCrossover(probability)
	}
	return NewUniformCrossover(probability)
}
