package evolution

import (
	"fmt"
	"math/rand"

	"github.com/signalnine/seasalt/gosim/evolution/operators"
	"github.com/signalnine/seasalt/gosim/genome"
)

// GeneticAlgorithm holds the operators that turn one generation into the
// next.
type GeneticAlgorithm struct {
	Schema         genome.Schema
	PopulationSize int
	EliteCount     int
	Select         Selector
	Crossover      CrossoverOperator
	Mutation       *operators.GaussianMutation
}

// NewGeneticAlgorithm builds the operators named by config over schema.
func NewGeneticAlgorithm(config *EvolutionConfig, schema genome.Schema) *GeneticAlgorithm {
	return &GeneticAlgorithm{
		Schema:         schema,
		PopulationSize: config.PopulationSize,
		EliteCount:     config.EliteCount,
		Select:         NewSelector(config.SelectionMethod, config.TournamentSize),
		Crossover:      NewCrossover(config.CrossoverMethod, config.CrossoverRate),
		Mutation:       operators.NewGaussianMutation(schema, config.MutationRate, config.MutationStrength),
	}
}

// InitializePopulation draws size genomes uniformly from the schema.
func (ga *GeneticAlgorithm) InitializePopulation(size int, rng *rand.Rand) *Population {
	return RandomPopulation(&ga.Schema, size, rng)
}

// Evolve builds the next generation. The top EliteCount individuals are
// carried over with ids and genes unchanged; the rest are children of two
// selected parents, crossed over and mutated at mutationRate. Every member
// of the result is unevaluated.
func (ga *GeneticAlgorithm) Evolve(pop *Population, mutationRate float64, rng *rand.Rand) *Population {
	next := make([]*Individual, 0, ga.PopulationSize)

	for _, elite := range SelectElite(pop, ga.EliteCount) {
		next = append(next, &Individual{Genome: elite.Genome})
	}

	mutation := ga.Mutation.WithRate(mutationRate)
	for len(next) < ga.PopulationSize {
		parent1 := ga.Select(pop, rng)
		parent2 := ga.Select(pop, rng)

		child := ga.Crossover.Crossover(parent1.Genome, parent2.Genome, rng)
		child = mutation.Mutate(child, rng)

		next = append(next, &Individual{Genome: child})
	}

	evolved := NewPopulation(next)
	evolved.Generation = pop.Generation + 1
	return evolved
}

// InjectDiversity replaces the last count individuals with random genomes.
// The population must be sorted by fitness, best first, so the replaced
// members are the worst ones. Newcomers keep the fitness of the member they
// replace so the population stays aligned with its fitness scores.
func (ga *GeneticAlgorithm) InjectDiversity(pop *Population, count int, rng *rand.Rand) error {
	if !pop.IsSortedByFitness() {
		return fmt.Errorf("diversity injection needs a population sorted by fitness")
	}
	count = min(count, pop.Size())
	for i := pop.Size() - count; i < pop.Size(); i++ {
		old := pop.Individuals[i]
		pop.Individuals[i] = &Individual{
			Genome:    ga.Schema.Random(rng),
			Fitness:   old.Fitness,
			Evaluated: old.Evaluated,
		}
	}
	return nil
}
