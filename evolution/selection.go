package evolution

import (
	"math/rand"
	"sort"
)

// TournamentSelection selects an individual via tournament selection.
// k is the tournament size (number of candidates to sample).
func TournamentSelection(pop *Population, k int, rng *rand.Rand) *Individual {
	if pop == nil || len(pop.Individuals) == 0 {
		return nil
	}

	if k > len(pop.Individuals) {
		k = len(pop.Individuals)
	}
	if k < 1 {
		k = 1
	}

	// Sample k individuals
	indices := rng.Perm(len(pop.Individuals))[:k]
	candidates := make([]*Individual, k)
	for i, idx := range indices {
		candidates[i] = pop.Individuals[idx]
	}

	// Return best
	best := candidates[0]
	for _, ind := range candidates[1:] {
		if ind.Fitness > best.Fitness {
			best = ind
		}
	}
	return best
}

// SelectElite returns the top n individuals by fitness.
func SelectElite(pop *Population, n int) []*Individual {
	if pop == nil || len(pop.Individuals) == 0 {
		return nil
	}

	if n > len(pop.Individuals) {
		n = len(pop.Individuals)
	}
	if n < 1 {
		return nil
	}

	// Sort by fitness (descending)
	sorted := make([]*Individual, len(pop.Individuals))
	copy(sorted, pop.Individuals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fitness > sorted[j].Fitness
	})

	return sorted[:n]
}

// RouletteWheelSelection selects an individual using fitness-proportionate
// selection. Fitness is shifted by (f - min + 1) so every individual keeps a
// positive share even when scores are negative.
func RouletteWheelSelection(pop *Population, rng *rand.Rand) *Individual {
	if pop == nil || len(pop.Individuals) == 0 {
		return nil
	}

	minFitness := pop.Individuals[0].Fitness
	for _, ind := range pop.Individuals[1:] {
		minFitness = min(minFitness, ind.Fitness)
	}

	var totalFitness float64
	for _, ind := range pop.Individuals {
		totalFitness += ind.Fitness - minFitness + 1
	}

	// Spin the wheel
	spin := rng.Float64() * totalFitness
	var cumulative float64
	for _, ind := range pop.Individuals {
		cumulative += ind.Fitness - minFitness + 1
		if cumulative >= spin {
			return ind
		}
	}

	return pop.Individuals[len(pop.Individuals)-1]
}

// RankSelection selects an individual using rank-based selection.
// Better individuals have higher probability but not proportional to fitness.
func RankSelection(pop *Population, rng *rand.Rand) *Individual {
	if pop == nil || len(pop.Individuals) == 0 {
		return nil
	}

	n := len(pop.Individuals)

	// Sort by fitness (ascending - worst first)
	sorted := make([]*Individual, n)
	copy(sorted, pop.Individuals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fitness < sorted[j].Fitness
	})

	// Assign ranks: worst=1, best=n
	totalRank := float64(n * (n + 1) / 2)

	spin := rng.Float64() * totalRank
	var cumulative float64
	for rank, ind := range sorted {
		cumulative += float64(rank + 1)
		if cumulative >= spin {
			return ind
		}
	}

	return sorted[n-1]
}

// Selector picks one parent from a population.
type Selector func(pop *Population, rng *rand.Rand) *Individual

// NewSelector returns the parent selector named by method: "tournament"
// (with tournamentSize candidates), "roulette" or "rank".
func NewSelector(method string, tournamentSize int) Selector {
	switch method {
	case "roulette":
		return RouletteWheelSelection
	case "rank":
		return RankSelection
	default:
		return func(pop *Population, rng *rand.Rand) *Individual {
			return TournamentSelection(pop, tournamentSize, rng)
		}
	}
}
