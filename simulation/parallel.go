package simulation

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"github.com/signalnine/seasalt/gosim/genome"
)

// GameJob represents a single simulation job
type GameJob struct {
	SimID int
	Seed  uint64
}

type jobResult struct {
	simID  int
	seed   uint64
	result GameResult
	err    error
}

// RunBatchParallel executes a batch using a worker pool. Seeds are drawn
// exactly as RunBatch draws them and results are aggregated in game order,
// so both return the same statistics. numWorkers <= 0 uses every CPU.
func RunBatchParallel(genomes []genome.Genome, cfg MatchConfig, numGames int, seed uint64, numWorkers int) (AggregatedStats, error) {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	jobs := make(chan GameJob, numGames)
	results := make(chan jobResult, numGames)

	var wg sync.WaitGroup

	// Start workers
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go worker(&wg, jobs, results, genomes, cfg)
	}

	// Queue all simulation jobs with deterministic seeds
	rng := rand.New(rand.NewSource(int64(seed)))
	for i := 0; i < numGames; i++ {
		jobs <- GameJob{
			SimID: i,
			Seed:  rng.Uint64(),
		}
	}
	close(jobs)

	// Wait for all workers to complete, then close results
	go func() {
		wg.Wait()
		close(results)
	}()

	return aggregateParallelResults(results, numGames, cfg.PlayerCount)
}

// worker processes simulation jobs from the jobs channel
func worker(wg *sync.WaitGroup, jobs <-chan GameJob, results chan<- jobResult, genomes []genome.Genome, cfg MatchConfig) {
	defer wg.Done()

	for job := range jobs {
		result, err := RunGame(genomes, cfg, job.Seed)
		results <- jobResult{simID: job.SimID, seed: job.Seed, result: result, err: err}
	}
}

// aggregateParallelResults collects all results back into game order. The
// first failing game (by id) is reported.
func aggregateParallelResults(results <-chan jobResult, numGames, playerCount int) (AggregatedStats, error) {
	ordered := make([]GameResult, numGames)
	var firstErr *jobResult

	for r := range results {
		if r.err != nil {
			if firstErr == nil || r.simID < firstErr.simID {
				failed := r
				firstErr = &failed
			}
			continue
		}
		ordered[r.simID] = r.result
	}

	if firstErr != nil {
		return AggregatedStats{}, fmt.Errorf("game %d (seed %d): %w", firstErr.simID, firstErr.seed, firstErr.err)
	}
	return aggregateResults(ordered, playerCount), nil
}
