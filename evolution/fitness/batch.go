package fitness

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/signalnine/seasalt/gosim/genome"
)

// DefaultBatchSize is the number of genomes evaluated per chunk.
const DefaultBatchSize = 10

// Progress is reported after every completed chunk.
type Progress struct {
	Batch            int     `json:"batch"`
	TotalBatches     int     `json:"totalBatches"`
	Progress         float64 `json:"progress"`
	GenomesEvaluated int     `json:"genomesEvaluated"`
}

// BatchEvaluator evaluates a population in fixed-size chunks so callers can
// follow progress and cancel between chunks. For the same genomes and seed
// it returns exactly what Evaluator.EvaluatePopulation returns.
type BatchEvaluator struct {
	Evaluator  *Evaluator
	BatchSize  int
	OnProgress func(Progress)

	logger *zap.Logger
}

// NewBatchEvaluator wraps an evaluator. batchSize <= 0 uses
// DefaultBatchSize; a nil logger discards log output.
func NewBatchEvaluator(evaluator *Evaluator, batchSize int, logger *zap.Logger) *BatchEvaluator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchEvaluator{
		Evaluator: evaluator,
		BatchSize: batchSize,
		logger:    logger,
	}
}

// EvaluatePopulation evaluates genomes chunk by chunk. Cancellation is
// checked before each chunk; an interrupted run returns the context error.
func (b *BatchEvaluator) EvaluatePopulation(ctx context.Context, genomes []genome.Genome, seed uint64) (PopulationEvaluation, error) {
	if len(genomes) == 0 {
		return PopulationEvaluation{}, fmt.Errorf("cannot evaluate an empty population")
	}

	plan := b.Evaluator.plan(genomes, seed)
	evaluations := make([]Evaluation, len(genomes))
	totalBatches := (len(plan) + b.BatchSize - 1) / b.BatchSize

	for batch := 0; batch < totalBatches; batch++ {
		if err := ctx.Err(); err != nil {
			b.logger.Info("evaluation cancelled",
				zap.Int("batch", batch),
				zap.Int("total_batches", totalBatches))
			return PopulationEvaluation{}, err
		}

		start := batch * b.BatchSize
		end := min(start+b.BatchSize, len(plan))
		if err := b.Evaluator.run(ctx, plan[start:end], evaluations); err != nil {
			return PopulationEvaluation{}, fmt.Errorf("batch %d/%d: %w", batch+1, totalBatches, err)
		}

		progress := Progress{
			Batch:            batch + 1,
			TotalBatches:     totalBatches,
			Progress:         float64(batch+1) / float64(totalBatches),
			GenomesEvaluated: end,
		}
		b.logger.Debug("batch evaluated",
			zap.Int("batch", progress.Batch),
			zap.Int("total_batches", totalBatches),
			zap.Int("genomes_evaluated", end))
		if b.OnProgress != nil {
			b.OnProgress(progress)
		}

		runtime.Gosched()
	}

	return summarize(evaluations), nil
}
