package evolution

import (
	"math"
	"testing"

	"github.com/signalnine/seasalt/gosim/evolution/fitness"
	"github.com/signalnine/seasalt/gosim/genome"
)

func TestNewPopulation(t *testing.T) {
	pop := createTestPopulation(5)

	if pop.Size() != 5 {
		t.Errorf("Expected size 5, got %d", pop.Size())
	}
	if pop.Generation != 0 {
		t.Errorf("Expected generation 0, got %d", pop.Generation)
	}
}

func TestPopulationGetUnevaluated(t *testing.T) {
	pop := NewPopulation([]*Individual{
		{Genome: genome.DefaultGenome(), Fitness: 2, Evaluated: true},
		{Genome: genome.DefaultGenome(), Fitness: 4, Evaluated: true},
		{Genome: genome.DefaultGenome(), Fitness: 100, Evaluated: false},
	})

	if n := len(pop.GetUnevaluated()); n != 1 {
		t.Errorf("Expected 1 unevaluated individual, got %d", n)
	}
}

func TestDiversityIdenticalGenomes(t *testing.T) {
	schema := genome.DefaultSchema()
	genomes := []genome.Genome{genome.DefaultGenome(), genome.DefaultGenome(), genome.DefaultGenome()}

	if d := Diversity(genomes, &schema); d != 0 {
		t.Errorf("Expected diversity 0 for identical genomes, got %f", d)
	}
	if d := Diversity(genomes[:1], &schema); d != 0 {
		t.Errorf("Expected diversity 0 for a single genome, got %f", d)
	}
}

func TestDiversityExtremes(t *testing.T) {
	schema := genome.DefaultSchema()
	var low, high genome.Genome
	for i := range low.Genes {
		spec := schema.Spec(genome.Gene(i))
		low.Genes[i] = spec.Min
		high.Genes[i] = spec.Max
	}

	// variance = range²/4 per gene, scaled by 4.
	if d := Diversity([]genome.Genome{low, high}, &schema); math.Abs(d-1) > 1e-9 {
		t.Errorf("Expected diversity 1 for opposite bounds, got %f", d)
	}
}

func TestDiversityRandomPopulation(t *testing.T) {
	schema := genome.DefaultSchema()
	pop := RandomPopulation(&schema, 30, newRng(1))

	d := pop.ComputeDiversity(&schema)
	// Uniform genes: var/range² = 1/12, so about 1/3.
	if d < 0.2 || d > 0.5 {
		t.Errorf("Expected diversity near 0.33 for a random population, got %f", d)
	}
}

func TestPopulationSortByFitness(t *testing.T) {
	pop := createTestPopulation(10)

	sorted := pop.SortByFitness()
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Fitness > sorted[i-1].Fitness {
			t.Errorf("Not sorted at index %d: %f > %f", i, sorted[i].Fitness, sorted[i-1].Fitness)
		}
	}
	if pop.IsSortedByFitness() {
		t.Error("Ascending population should not report sorted")
	}
	pop.Individuals = sorted
	if !pop.IsSortedByFitness() {
		t.Error("Sorted population should report sorted")
	}
}

func TestPopulationStats(t *testing.T) {
	individuals := make([]*Individual, 8)
	for i := range individuals {
		individuals[i] = &Individual{Genome: genome.DefaultGenome(), Fitness: float64(i + 1), Evaluated: true}
	}
	pop := NewPopulation(individuals)
	schema := genome.DefaultSchema()

	stats := pop.Stats(&schema)
	if stats.MaxFitness != 8 || stats.MinFitness != 1 {
		t.Errorf("Expected max 8 and min 1, got %f and %f", stats.MaxFitness, stats.MinFitness)
	}
	if stats.AvgFitness != 4.5 {
		t.Errorf("Expected average 4.5, got %f", stats.AvgFitness)
	}
	// Sorted best first: [8 7 6 5 4 3 2 1]
	if stats.MedianFitness != 4 {
		t.Errorf("Expected median 4, got %f", stats.MedianFitness)
	}
	if stats.TopQuartileFitness != 6 {
		t.Errorf("Expected top quartile 6, got %f", stats.TopQuartileFitness)
	}
	if stats.Diversity != 0 {
		t.Errorf("Expected diversity 0, got %f", stats.Diversity)
	}
}

func TestApplyEvaluation(t *testing.T) {
	pop := createTestPopulation(3)
	eval := fitness.PopulationEvaluation{
		Evaluations: []fitness.Evaluation{
			{Index: 2, Fitness: 9, Result: fitness.EvaluationResult{TotalGames: 4}},
			{Index: 0, Fitness: 5},
			{Index: 1, Fitness: 1},
		},
	}
	pop.ApplyEvaluation(eval)

	want := []float64{5, 1, 9}
	for i, ind := range pop.Individuals {
		if ind.Fitness != want[i] || !ind.Evaluated {
			t.Errorf("Individual %d: expected evaluated fitness %f, got %f", i, want[i], ind.Fitness)
		}
	}
	if pop.Individuals[2].Result == nil || pop.Individuals[2].Result.TotalGames != 4 {
		t.Error("Evaluation result not stored")
	}
}

func TestIndividualClone(t *testing.T) {
	original := &Individual{
		Genome:    genome.DefaultGenome(),
		Fitness:   0.75,
		Evaluated: true,
		Result:    &fitness.EvaluationResult{Wins: 3},
	}

	clone := original.Clone()
	clone.Genome.Genes[0] = 99
	clone.Result.Wins = 10

	if original.Genome.Genes[0] == 99 {
		t.Error("Clone shares genes with the original")
	}
	if original.Result.Wins != 3 {
		t.Error("Clone shares the evaluation result with the original")
	}
	if clone.Fitness != 0.75 || !clone.Evaluated {
		t.Error("Clone lost fitness data")
	}
}
