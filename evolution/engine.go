package evolution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/signalnine/seasalt/gosim/evolution/fitness"
	"github.com/signalnine/seasalt/gosim/evolution/operators"
	"github.com/signalnine/seasalt/gosim/genome"
	"github.com/signalnine/seasalt/gosim/simulation"
)

// EvolutionConfig holds configuration for a training run.
type EvolutionConfig struct {
	// Population
	PopulationSize int `json:"populationSize" yaml:"population_size"`
	Generations    int `json:"generations" yaml:"generations"`

	// Genetic algorithm
	EliteCount       int     `json:"eliteCount" yaml:"elite_count"`
	MutationRate     float64 `json:"mutationRate" yaml:"mutation_rate"`
	MutationStrength float64 `json:"mutationStrength" yaml:"mutation_strength"`
	CrossoverRate    float64 `json:"crossoverRate" yaml:"crossover_rate"`
	TournamentSize   int     `json:"tournamentSize" yaml:"tournament_size"`
	SelectionMethod  string  `json:"selectionMethod" yaml:"selection_method"` // tournament, roulette, rank
	CrossoverMethod  string  `json:"crossoverMethod" yaml:"crossover_method"` // uniform, single
	AdaptiveMutation bool    `json:"adaptiveMutation" yaml:"adaptive_mutation"`

	// Evaluation
	GamesPerMatch  int                    `json:"gamesPerMatch" yaml:"games_per_match"`
	PeerCount      int                    `json:"peerCount" yaml:"peer_count"`
	BatchSize      int                    `json:"batchSize" yaml:"batch_size"`
	FitnessStyle   string                 `json:"fitnessStyle" yaml:"fitness_style"`
	FitnessWeights *fitness.Weights       `json:"fitnessWeights,omitempty" yaml:"fitness_weights,omitempty"`
	Match          simulation.MatchConfig `json:"match" yaml:"match"`
	// Baseline names the preset (easy, medium, hard) used as the fixed
	// opponent; empty means the default genome.
	Baseline string `json:"baseline,omitempty" yaml:"baseline,omitempty"`

	// Training control
	EnableEarlyStopping   bool    `json:"enableEarlyStopping" yaml:"enable_early_stopping"`
	EarlyStoppingPatience int     `json:"earlyStoppingPatience" yaml:"early_stopping_patience"`
	EarlyStoppingMinDelta float64 `json:"earlyStoppingMinDelta" yaml:"early_stopping_min_delta"`

	// Checkpointing; an empty OutputDir keeps everything in memory.
	CheckpointInterval int    `json:"checkpointInterval" yaml:"checkpoint_interval"`
	OutputDir          string `json:"outputDir" yaml:"output_dir"`

	// Diversity
	InjectDiversityInterval int     `json:"injectDiversityInterval" yaml:"inject_diversity_interval"`
	DiversityInjectionCount int     `json:"diversityInjectionCount" yaml:"diversity_injection_count"`
	DiversityThreshold      float64 `json:"diversityThreshold" yaml:"diversity_threshold"`

	// GeneBounds overrides declared gene ranges by gene name.
	GeneBounds map[string]genome.Bounds `json:"geneBounds,omitempty" yaml:"gene_bounds,omitempty"`

	RandomSeed int64 `json:"randomSeed" yaml:"random_seed"` // 0 = use time
	NumWorkers int   `json:"numWorkers" yaml:"num_workers"` // 0 = auto
}

// DefaultConfig returns a default training configuration.
func DefaultConfig() *EvolutionConfig {
	return &EvolutionConfig{
		PopulationSize: 50,
		Generations:    100,

		EliteCount:       5,
		MutationRate:     0.1,
		MutationStrength: 0.2,
		CrossoverRate:    0.8,
		TournamentSize:   3,
		SelectionMethod:  "tournament",
		CrossoverMethod:  "uniform",
		AdaptiveMutation: true,

		GamesPerMatch: 3,
		PeerCount:     5,
		BatchSize:     fitness.DefaultBatchSize,
		FitnessStyle:  fitness.DefaultStyle,
		Match:         simulation.DefaultMatchConfig(),

		EnableEarlyStopping:   true,
		EarlyStoppingPatience: 30,
		EarlyStoppingMinDelta: 0.1,

		CheckpointInterval: 10,
		OutputDir:          "./trained-ai",

		InjectDiversityInterval: 20,
		DiversityInjectionCount: 3,
		DiversityThreshold:      DiversityThreshold,
	}
}

func configError(field, format string, args ...any) error {
	return &genome.ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate reports the first setting that makes training impossible as a
// *genome.ConfigurationError.
func (c *EvolutionConfig) Validate() error {
	switch {
	case c.PopulationSize <= 0:
		return configError("population_size", "must be positive, got %d", c.PopulationSize)
	case c.Generations <= 0:
		return configError("generations", "must be positive, got %d", c.Generations)
	case c.EliteCount < 0 || c.EliteCount >= c.PopulationSize:
		return configError("elite_count", "must be in [0, %d), got %d", c.PopulationSize, c.EliteCount)
	case !inUnit(c.MutationRate):
		return configError("mutation_rate", "must be in [0, 1], got %g", c.MutationRate)
	case c.MutationStrength < 0 || math.IsNaN(c.MutationStrength):
		return configError("mutation_strength", "must not be negative, got %g", c.MutationStrength)
	case !inUnit(c.CrossoverRate):
		return configError("crossover_rate", "must be in [0, 1], got %g", c.CrossoverRate)
	case c.TournamentSize < 1:
		return configError("tournament_size", "must be at least 1, got %d", c.TournamentSize)
	case c.GamesPerMatch <= 0:
		return configError("games_per_match", "must be positive, got %d", c.GamesPerMatch)
	case c.PeerCount < 0:
		return configError("peer_count", "must not be negative, got %d", c.PeerCount)
	case c.EnableEarlyStopping && c.EarlyStoppingPatience <= 0:
		return configError("early_stopping_patience", "must be positive, got %d", c.EarlyStoppingPatience)
	case c.DiversityInjectionCount < 0 || c.DiversityInjectionCount > c.PopulationSize:
		return configError("diversity_injection_count", "must be in [0, %d], got %d", c.PopulationSize, c.DiversityInjectionCount)
	}

	switch c.SelectionMethod {
	case "", "tournament", "roulette", "rank":
	default:
		return configError("selection_method", "unknown method %q", c.SelectionMethod)
	}
	switch c.CrossoverMethod {
	case "", "uniform", "single":
	default:
		return configError("crossover_method", "unknown method %q", c.CrossoverMethod)
	}

	if err := c.Match.Validate(); err != nil {
		return configError("match", "%v", err)
	}
	if c.Baseline != "" {
		if _, err := genome.Preset(c.Baseline); err != nil {
			return configError("baseline", "%v", err)
		}
	}
	_, err := c.Schema()
	return err
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// Schema returns the default schema with GeneBounds applied.
func (c *EvolutionConfig) Schema() (genome.Schema, error) {
	return genome.DefaultSchema().WithBounds(c.GeneBounds)
}

// FitnessConfig returns the evaluation settings derived from c. Matches
// clamp genes into schema.
func (c *EvolutionConfig) FitnessConfig(schema genome.Schema) fitness.Config {
	match := c.Match
	match.Schema = &schema
	return fitness.Config{
		GamesPerMatch: c.GamesPerMatch,
		PeerCount:     c.PeerCount,
		UseBaseline:   true,
		Workers:       c.NumWorkers,
		Match:         match,
	}
}

// GenerationStats holds statistics for a single generation. It is also the
// training history entry.
type GenerationStats struct {
	Generation          int       `json:"generation"`
	MaxFitness          float64   `json:"maxFitness"`
	AvgFitness          float64   `json:"avgFitness"`
	MinFitness          float64   `json:"minFitness"`
	MedianFitness       float64   `json:"medianFitness"`
	TopQuartileFitness  float64   `json:"topQuartileFitness"`
	Diversity           float64   `json:"diversity"`
	BestWinRate         float64   `json:"bestWinRate"`
	BestBaselineWinRate float64   `json:"bestBaselineWinRate"`
	BestFitnessSoFar    float64   `json:"bestFitnessSoFar"`
	MutationRate        float64   `json:"mutationRate"`
	EvaluationTime      float64   `json:"evaluationTime"` // seconds
	Timestamp           time.Time `json:"timestamp"`
}

// Stop reasons recorded in the report.
const (
	StopCompleted     = "completed"
	StopEarlyStopping = "early_stopping"
	StopRequested     = "stopped"
	StopCancelled     = "cancelled"
)

// TrainingResult is returned by Run.
type TrainingResult struct {
	BestGenome  genome.Genome     `json:"bestGenome"`
	BestFitness float64           `json:"bestFitness"`
	Generations int               `json:"generations"`
	History     []GenerationStats `json:"history"`
	StopReason  string            `json:"stopReason"`
	Duration    time.Duration     `json:"duration"`
}

// Status is a point-in-time view of a run, safe to read while Run is active.
type Status struct {
	IsTraining       bool    `json:"isTraining"`
	Generation       int     `json:"generation"`
	TotalGenerations int     `json:"totalGenerations"`
	Progress         float64 `json:"progress"`
	BestFitness      float64 `json:"bestFitness"`
	PopulationSize   int     `json:"populationSize"`
	TrainingTime     string  `json:"trainingTime"`
	StopReason       string  `json:"stopReason,omitempty"`
}

// EvolutionEngine runs the training loop.
type EvolutionEngine struct {
	Config        *EvolutionConfig
	Schema        genome.Schema
	GA            *GeneticAlgorithm
	Evaluator     *fitness.BatchEvaluator
	EarlyStopping *EarlyStopping
	AdaptiveRate  operators.AdaptiveRate
	Checkpointer  *AutoCheckpointer
	Rng           *rand.Rand

	// Callbacks for progress reporting
	OnGenerationComplete func(stats GenerationStats)

	logger *zap.Logger
	seed   int64

	mu            sync.RWMutex
	population    *Population
	history       []GenerationStats
	bestEver      *Individual
	generation    int // completed generations
	mutationRate  float64
	pendingEvolve bool
	running       bool
	startTime     time.Time
	stopReason    string

	stopRequested atomic.Bool
}

// NewEvolutionEngine validates config and creates a new engine. A nil
// config uses DefaultConfig; a nil logger discards log output.
func NewEvolutionEngine(config *EvolutionConfig, logger *zap.Logger) (*EvolutionEngine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	schema, err := config.Schema()
	if err != nil {
		return nil, err
	}

	// Initialize RNG
	seed := config.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	evaluator := fitness.NewEvaluator(config.FitnessConfig(schema), config.FitnessStyle, config.FitnessWeights)
	if config.Baseline != "" {
		baseline, err := genome.Preset(config.Baseline)
		if err != nil {
			return nil, err
		}
		evaluator.SetBaseline(baseline)
	}

	adaptive := operators.DefaultAdaptiveRate()
	adaptive.Enabled = config.AdaptiveMutation

	e := &EvolutionEngine{
		Config:        config,
		Schema:        schema,
		GA:            NewGeneticAlgorithm(config, schema),
		Evaluator:     fitness.NewBatchEvaluator(evaluator, config.BatchSize, logger),
		EarlyStopping: NewEarlyStopping(config.EarlyStoppingPatience, config.EarlyStoppingMinDelta),
		AdaptiveRate:  adaptive,
		Rng:           rand.New(rand.NewSource(seed)),
		logger:        logger,
		seed:          seed,
		history:       make([]GenerationStats, 0, config.Generations),
		mutationRate:  config.MutationRate,
	}
	e.Checkpointer = NewAutoCheckpointer(e, config.OutputDir, config.CheckpointInterval)
	return e, nil
}

// Close releases resources.
func (e *EvolutionEngine) Close() {
	e.Stop()
}

// Seed returns the seed the engine's rng was created from.
func (e *EvolutionEngine) Seed() int64 {
	return e.seed
}

// Stop asks Run to finish at the next generation boundary. The final
// checkpoint is still written.
func (e *EvolutionEngine) Stop() {
	e.stopRequested.Store(true)
}

// Population returns the current population.
func (e *EvolutionEngine) Population() *Population {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.population
}

// SetPopulation replaces the population, e.g. with seeded genomes.
func (e *EvolutionEngine) SetPopulation(pop *Population) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.population = pop
	e.pendingEvolve = false
}

// BestEver returns a copy of the best individual seen so far.
func (e *EvolutionEngine) BestEver() (*Individual, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.bestEver == nil {
		return nil, false
	}
	return e.bestEver.Clone(), true
}

// Baseline returns the fixed opponent genomes are evaluated against.
func (e *EvolutionEngine) Baseline() genome.Genome {
	return e.Evaluator.Evaluator.Baseline()
}

// History returns a copy of the generation history.
func (e *EvolutionEngine) History() []GenerationStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	history := make([]GenerationStats, len(e.history))
	copy(history, e.history)
	return history
}

// Status returns the current progress of the run.
func (e *EvolutionEngine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := Status{
		IsTraining:       e.running,
		Generation:       e.generation,
		TotalGenerations: e.Config.Generations,
		Progress:         float64(e.generation) / float64(e.Config.Generations),
		StopReason:       e.stopReason,
		TrainingTime:     "N/A",
	}
	if e.bestEver != nil {
		s.BestFitness = e.bestEver.Fitness
	}
	if e.population != nil {
		s.PopulationSize = e.population.Size()
	}
	if !e.startTime.IsZero() {
		s.TrainingTime = FormatTrainingTime(time.Since(e.startTime))
	}
	return s
}

// InitializePopulation draws a random initial population.
func (e *EvolutionEngine) InitializePopulation() {
	pop := e.GA.InitializePopulation(e.Config.PopulationSize, e.Rng)
	e.SetPopulation(pop)
	e.logger.Info("population initialized",
		zap.Int("size", pop.Size()),
		zap.Int64("seed", e.seed))
}

// Run trains until the generation count is reached, early stopping
// triggers, Stop is called or ctx is cancelled. Stopping and cancellation
// are observed at generation boundaries and between evaluation chunks; in
// every one of these cases the final files are written. Simulation and
// persistence errors are returned.
func (e *EvolutionEngine) Run(ctx context.Context) (*TrainingResult, error) {
	e.mu.Lock()
	if e.population == nil {
		e.mu.Unlock()
		e.InitializePopulation()
		e.mu.Lock()
	}
	e.running = true
	e.stopReason = ""
	if e.startTime.IsZero() {
		e.startTime = time.Now()
	}
	if e.pendingEvolve && e.generation < e.Config.Generations {
		e.population = e.evolve(e.population, e.generation-1)
	}
	e.pendingEvolve = false
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.logger.Info("training started",
		zap.Int("population", e.Config.PopulationSize),
		zap.Int("generations", e.Config.Generations),
		zap.Int("start_generation", e.generation+1))

	reason, err := e.loop(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.stopReason = reason
	e.mu.Unlock()

	result := e.result(reason)
	if err := e.Checkpointer.SaveFinal(); err != nil {
		return result, err
	}

	e.logger.Info("training complete",
		zap.String("stop_reason", reason),
		zap.Int("generations", result.Generations),
		zap.Float64("best_fitness", result.BestFitness),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// loop runs generations and returns why it ended.
func (e *EvolutionEngine) loop(ctx context.Context) (string, error) {
	for e.generation < e.Config.Generations {
		if e.stopRequested.Load() {
			e.logger.Info("training stopped by request", zap.Int("generation", e.generation))
			return StopRequested, nil
		}
		if ctx.Err() != nil {
			return StopCancelled, nil
		}

		gen := e.generation
		pop := e.Population()

		evalStart := time.Now()
		eval, err := e.Evaluator.EvaluatePopulation(ctx, pop.Genomes(), e.Rng.Uint64())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return StopCancelled, nil
			}
			return "", fmt.Errorf("generation %d: %w", gen+1, err)
		}
		evalTime := time.Since(evalStart)

		stats := e.record(pop, eval, evalTime)

		if e.OnGenerationComplete != nil {
			e.OnGenerationComplete(stats)
		}
		e.logger.Info("generation complete",
			zap.Int("generation", stats.Generation),
			zap.Float64("max_fitness", stats.MaxFitness),
			zap.Float64("avg_fitness", stats.AvgFitness),
			zap.Float64("diversity", stats.Diversity),
			zap.Float64("best_win_rate", stats.BestWinRate),
			zap.Duration("eval_time", evalTime))

		stop := e.Config.EnableEarlyStopping && e.EarlyStopping.ShouldStop(stats.MaxFitness)

		if !stop && e.Config.InjectDiversityInterval > 0 && (gen+1)%e.Config.InjectDiversityInterval == 0 &&
			stats.Diversity < e.Config.DiversityThreshold {
			e.mu.Lock()
			pop.Individuals = pop.SortByFitness()
			err := e.GA.InjectDiversity(pop, e.Config.DiversityInjectionCount, e.Rng)
			e.mu.Unlock()
			if err != nil {
				return "", err
			}
			e.logger.Info("injected diversity",
				zap.Int("generation", gen+1),
				zap.Float64("diversity", stats.Diversity),
				zap.Int("count", e.Config.DiversityInjectionCount))
		}

		// The checkpoint holds the population exactly as evolve will see it.
		if err := e.Checkpointer.Save(gen + 1); err != nil {
			return "", err
		}

		if stop {
			e.logger.Info("early stopping triggered",
				zap.Int("generation", gen+1),
				zap.Int("patience", e.Config.EarlyStoppingPatience))
			return StopEarlyStopping, nil
		}

		// Generation g+1 draws from seed+g, as RestoreFromCheckpoint does.
		e.Rng.Seed(e.seed + int64(gen+1))

		if gen < e.Config.Generations-1 {
			next := e.evolve(pop, gen)
			e.mu.Lock()
			e.population = next
			e.mu.Unlock()
		}
	}
	return StopCompleted, nil
}

// record stores the evaluation on pop, updates the best genome, appends the
// history entry and marks the generation complete.
func (e *EvolutionEngine) record(pop *Population, eval fitness.PopulationEvaluation, evalTime time.Duration) GenerationStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	pop.ApplyEvaluation(eval)
	summary := pop.Stats(&e.Schema)
	best := pop.Individuals[eval.BestIndex]

	if e.bestEver == nil || best.Fitness > e.bestEver.Fitness {
		e.bestEver = best.Clone()
		e.logger.Info("new best genome",
			zap.String("id", best.Genome.ID),
			zap.Float64("fitness", best.Fitness))
	}

	stats := GenerationStats{
		Generation:          e.generation + 1,
		MaxFitness:          summary.MaxFitness,
		AvgFitness:          summary.AvgFitness,
		MinFitness:          summary.MinFitness,
		MedianFitness:       summary.MedianFitness,
		TopQuartileFitness:  summary.TopQuartileFitness,
		Diversity:           summary.Diversity,
		BestWinRate:         eval.BestWinRate,
		BestBaselineWinRate: eval.BestBaselineWinRate,
		BestFitnessSoFar:    e.bestEver.Fitness,
		MutationRate:        e.mutationRate,
		EvaluationTime:      evalTime.Seconds(),
		Timestamp:           time.Now(),
	}
	e.history = append(e.history, stats)
	e.generation++
	return stats
}

// evolve produces the next generation after generation index gen (0-based)
// with the adaptive mutation rate.
func (e *EvolutionEngine) evolve(pop *Population, gen int) *Population {
	current, previous := 0.0, 0.0
	if n := len(e.history); n > 0 {
		current = e.history[n-1].MaxFitness
		if n > 1 {
			previous = e.history[n-2].MaxFitness
		}
	}
	rate := e.AdaptiveRate.Rate(e.Config.MutationRate, current, previous, gen, e.Config.Generations)
	e.mutationRate = rate
	e.logger.Debug("evolving population",
		zap.Int("generation", gen+1),
		zap.Float64("mutation_rate", rate))
	return e.GA.Evolve(pop, rate, e.Rng)
}

func (e *EvolutionEngine) result(reason string) *TrainingResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := &TrainingResult{
		Generations: e.generation,
		History:     append(make([]GenerationStats, 0, len(e.history)), e.history...),
		StopReason:  reason,
		Duration:    time.Since(e.startTime),
	}
	if e.bestEver != nil {
		result.BestGenome = e.bestEver.Genome
		result.BestFitness = e.bestEver.Fitness
	}
	return result
}

// BenchmarkBest plays the best genome against the baseline.
func (e *EvolutionEngine) BenchmarkBest(games int) (fitness.Comparison, error) {
	best, ok := e.BestEver()
	if !ok {
		return fitness.Comparison{}, fmt.Errorf("no evaluated genome yet")
	}
	return e.Evaluator.Evaluator.Benchmark(best.Genome, games, e.Rng.Uint64())
}
