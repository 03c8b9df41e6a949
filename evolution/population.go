package evolution

import (
	"math"
	"math/rand"
	"sort"

	"github.com/signalnine/seasalt/gosim/evolution/fitness"
	"github.com/signalnine/seasalt/gosim/genome"
)

// DiversityThreshold is the diversity below which fresh genomes are injected.
const DiversityThreshold = 0.2

// Individual represents a single genome with its fitness score.
type Individual struct {
	Genome    genome.Genome
	Fitness   float64
	Evaluated bool
	Result    *fitness.EvaluationResult // Full game tally
}

// Clone creates a deep copy of the individual.
func (ind *Individual) Clone() *Individual {
	clone := &Individual{
		Genome:    ind.Genome,
		Fitness:   ind.Fitness,
		Evaluated: ind.Evaluated,
	}
	if ind.Result != nil {
		resultCopy := *ind.Result
		clone.Result = &resultCopy
	}
	return clone
}

// Population represents a collection of individuals.
type Population struct {
	Individuals []*Individual
	Generation  int
}

// NewPopulation creates a new population from a list of individuals.
func NewPopulation(individuals []*Individual) *Population {
	return &Population{
		Individuals: individuals,
		Generation:  0,
	}
}

// PopulationFromGenomes wraps unevaluated genomes.
func PopulationFromGenomes(genomes []genome.Genome) *Population {
	individuals := make([]*Individual, len(genomes))
	for i, g := range genomes {
		individuals[i] = &Individual{Genome: g}
	}
	return NewPopulation(individuals)
}

// RandomPopulation draws size genomes uniformly from the schema.
func RandomPopulation(schema *genome.Schema, size int, rng *rand.Rand) *Population {
	genomes := make([]genome.Genome, size)
	for i := range genomes {
		genomes[i] = schema.Random(rng)
	}
	return PopulationFromGenomes(genomes)
}

// Size returns the number of individuals in the population.
func (p *Population) Size() int {
	return len(p.Individuals)
}

// Genomes returns the genomes in population order.
func (p *Population) Genomes() []genome.Genome {
	genomes := make([]genome.Genome, len(p.Individuals))
	for i, ind := range p.Individuals {
		genomes[i] = ind.Genome
	}
	return genomes
}

// FitnessScores returns the fitness values in population order.
func (p *Population) FitnessScores() []float64 {
	scores := make([]float64, len(p.Individuals))
	for i, ind := range p.Individuals {
		scores[i] = ind.Fitness
	}
	return scores
}

// ApplyEvaluation stores an index-aligned evaluation on the individuals.
func (p *Population) ApplyEvaluation(eval fitness.PopulationEvaluation) {
	for _, ev := range eval.Evaluations {
		if ev.Index < 0 || ev.Index >= len(p.Individuals) {
			continue
		}
		ind := p.Individuals[ev.Index]
		result := ev.Result
		ind.Fitness = ev.Fitness
		ind.Evaluated = true
		ind.Result = &result
	}
}

// ComputeDiversity returns min(1, 4 × mean over genes of variance/range²).
// 0 means every genome is identical.
func (p *Population) ComputeDiversity(schema *genome.Schema) float64 {
	return Diversity(p.Genomes(), schema)
}

// Diversity computes population diversity over a set of genomes.
func Diversity(genomes []genome.Genome, schema *genome.Schema) float64 {
	if len(genomes) < 2 {
		return 0.0
	}

	n := float64(len(genomes))
	var total float64
	for gene := range genome.NumGenes {
		r := schema.Spec(gene).Range()
		if r <= 0 {
			continue
		}

		var mean float64
		for i := range genomes {
			mean += genomes[i].Genes[gene]
		}
		mean /= n

		var variance float64
		for i := range genomes {
			d := genomes[i].Genes[gene] - mean
			variance += d * d
		}
		variance /= n

		total += variance / (r * r)
	}

	return math.Min(1, total/float64(genome.NumGenes)*4)
}

// GetUnevaluated returns all individuals that haven't been evaluated.
func (p *Population) GetUnevaluated() []*Individual {
	var unevaluated []*Individual
	for _, ind := range p.Individuals {
		if !ind.Evaluated {
			unevaluated = append(unevaluated, ind)
		}
	}
	return unevaluated
}

// SortByFitness returns individuals sorted by fitness (descending).
func (p *Population) SortByFitness() []*Individual {
	sorted := make([]*Individual, len(p.Individuals))
	copy(sorted, p.Individuals)

	// Simple insertion sort (stable, works well for partially sorted data)
	for i := 1; i < len(sorted); i++ {
		j := i
		for j > 0 && sorted[j-1].Fitness < sorted[j].Fitness {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
			j--
		}
	}
	return sorted
}

// IsSortedByFitness reports whether fitness never increases along the
// population.
func (p *Population) IsSortedByFitness() bool {
	for i := 1; i < len(p.Individuals); i++ {
		if p.Individuals[i].Fitness > p.Individuals[i-1].Fitness {
			return false
		}
	}
	return true
}

// PopulationStats summarizes the fitness distribution of a population.
type PopulationStats struct {
	Size               int     `json:"size"`
	MaxFitness         float64 `json:"maxFitness"`
	MinFitness         float64 `json:"minFitness"`
	AvgFitness         float64 `json:"avgFitness"`
	MedianFitness      float64 `json:"medianFitness"`
	TopQuartileFitness float64 `json:"topQuartileFitness"`
	Diversity          float64 `json:"diversity"`
}

// Stats computes the population summary. With fitness sorted best first,
// the median is the element at n/2 and the top quartile the one at n/4.
func (p *Population) Stats(schema *genome.Schema) PopulationStats {
	stats := PopulationStats{Size: len(p.Individuals)}
	if stats.Size == 0 {
		return stats
	}

	scores := p.FitnessScores()
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	var sum float64
	for _, f := range scores {
		sum += f
	}
	stats.MaxFitness = scores[0]
	stats.MinFitness = scores[len(scores)-1]
	stats.AvgFitness = sum / float64(len(scores))
	stats.MedianFitness = scores[len(scores)/2]
	stats.TopQuartileFitness = scores[int(float64(len(scores))*0.25)]
	stats.Diversity = p.ComputeDiversity(schema)
	return stats
}
