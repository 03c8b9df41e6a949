package fitness

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/signalnine/seasalt/gosim/genome"
	"github.com/signalnine/seasalt/gosim/simulation"
)

const (
	// DefaultCompareGames is the match count of CompareGenomes when none is given.
	DefaultCompareGames = 30
	// DefaultBenchmarkGames is the match count of Benchmark when none is given.
	DefaultBenchmarkGames = 50
)

// Config controls how many games an evaluation plays.
type Config struct {
	// GamesPerMatch is the number of games against each opponent.
	GamesPerMatch int `json:"gamesPerMatch" yaml:"games_per_match"`
	// PeerCount is the number of population peers each genome meets.
	PeerCount int `json:"peerCount" yaml:"peer_count"`
	// UseBaseline adds the baseline genome to every opponent list.
	UseBaseline bool `json:"useBaseline" yaml:"use_baseline"`
	// Workers bounds concurrent genome evaluations; <= 0 uses every CPU.
	Workers int                    `json:"workers" yaml:"workers"`
	Match   simulation.MatchConfig `json:"match" yaml:"match"`
}

// DefaultConfig returns 3 games per match against the baseline and 5 peers.
func DefaultConfig() Config {
	return Config{
		GamesPerMatch: 3,
		PeerCount:     5,
		UseBaseline:   true,
		Match:         simulation.DefaultMatchConfig(),
	}
}

// Evaluation is the scored result of one population member.
type Evaluation struct {
	Index           int              `json:"index"`
	GenomeID        string           `json:"genomeId"`
	Fitness         float64          `json:"fitness"`
	Result          EvaluationResult `json:"result"`
	WinRate         float64          `json:"winRate"`
	BaselineWinRate float64          `json:"baselineWinRate"`
	AvgScore        float64          `json:"avgScore"`
}

// PopulationEvaluation summarizes one evaluated population.
type PopulationEvaluation struct {
	// Evaluations are sorted by fitness, best first.
	Evaluations []Evaluation `json:"evaluations"`
	// FitnessScores is aligned with the evaluated genomes.
	FitnessScores       []float64 `json:"fitnessScores"`
	BestIndex           int       `json:"bestIndex"`
	BestFitness         float64   `json:"bestFitness"`
	AvgFitness          float64   `json:"avgFitness"`
	BestWinRate         float64   `json:"bestWinRate"`
	BestBaselineWinRate float64   `json:"bestBaselineWinRate"`
}

// Comparison is the outcome of a head-to-head series.
type Comparison struct {
	Games        int     `json:"games"`
	Genome1Wins  int     `json:"genome1Wins"`
	Genome2Wins  int     `json:"genome2Wins"`
	Draws        int     `json:"draws"`
	Genome1Score int     `json:"genome1TotalScore"`
	Genome2Score int     `json:"genome2TotalScore"`
	Genome1Rate  float64 `json:"genome1WinRate"`
	Genome2Rate  float64 `json:"genome2WinRate"`
	Genome1Avg   float64 `json:"genome1AvgScore"`
	Genome2Avg   float64 `json:"genome2AvgScore"`
	// Winner is "genome1", "genome2" or "tie".
	Winner string `json:"winner"`
}

// Evaluator plays evaluation games and scores them with a set of weights.
type Evaluator struct {
	config   Config
	weights  Weights
	style    string
	baseline genome.Genome
}

// NewEvaluator creates a new fitness evaluator.
// If weights is provided it overrides style; an unknown style falls back to
// "balanced".
func NewEvaluator(cfg Config, style string, weights *Weights) *Evaluator {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	w, resolved := ResolveWeights(style, weights)
	return &Evaluator{
		config:   cfg,
		weights:  w,
		style:    resolved,
		baseline: genome.BaselineGenome(),
	}
}

// Style returns the current style preset name.
func (e *Evaluator) Style() string {
	return e.style
}

// Weights returns the weights in use.
func (e *Evaluator) Weights() Weights {
	return e.weights
}

// Config returns the evaluation settings.
func (e *Evaluator) Config() Config {
	return e.config
}

// Baseline returns the fixed opponent.
func (e *Evaluator) Baseline() genome.Genome {
	return e.baseline
}

// SetBaseline replaces the baseline opponent. Its id is forced to the
// baseline id so games against it are tracked separately.
func (e *Evaluator) SetBaseline(g genome.Genome) {
	e.baseline = g.WithID(genome.BaselineID)
}

// EvaluateGenome plays GamesPerMatch games against every opponent with g in
// seat 0. Opponents carrying the baseline id count as baseline games. Game
// seeds are drawn from seed, so the result is reproducible.
func (e *Evaluator) EvaluateGenome(g genome.Genome, opponents []genome.Genome, seed uint64) (EvaluationResult, error) {
	result := EvaluationResult{GenomeID: g.ID}
	rng := rand.New(rand.NewSource(int64(seed)))

	seats := make([]genome.Genome, 2)
	seats[0] = g
	for _, opp := range opponents {
		seats[1] = opp
		againstBaseline := opp.ID == genome.BaselineID
		for game := 0; game < e.config.GamesPerMatch; game++ {
			gameSeed := rng.Uint64()
			res, err := simulation.RunGame(seats, e.config.Match, gameSeed)
			if err != nil {
				return result, fmt.Errorf("genome %s vs %s (seed %d): %w", g.ID, opp.ID, gameSeed, err)
			}
			result.record(res, againstBaseline)
		}
	}
	return result, nil
}

// assignment is the planned evaluation of one population member.
type assignment struct {
	index     int
	genome    genome.Genome
	opponents []genome.Genome
	seed      uint64
}

// plan draws opponents and seeds for every genome sequentially from seed,
// so the plan does not depend on how it is executed.
func (e *Evaluator) plan(genomes []genome.Genome, seed uint64) []assignment {
	rng := rand.New(rand.NewSource(int64(seed)))
	plan := make([]assignment, len(genomes))

	for i, g := range genomes {
		opponents := make([]genome.Genome, 0, e.config.PeerCount+1)
		if e.config.UseBaseline {
			opponents = append(opponents, e.baseline)
		}

		// Peers never include the genome itself.
		peers := min(e.config.PeerCount, len(genomes)-1)
		if peers > 0 {
			for _, p := range rng.Perm(len(genomes) - 1)[:peers] {
				if p >= i {
					p++
				}
				opponents = append(opponents, genomes[p])
			}
		}

		plan[i] = assignment{index: i, genome: g, opponents: opponents, seed: rng.Uint64()}
	}
	return plan
}

// run executes assignments concurrently, writing each evaluation at its
// index. The first failure cancels the remaining work.
func (e *Evaluator) run(ctx context.Context, plan []assignment, out []Evaluation) error {
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(e.config.Workers)

	for _, a := range plan {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := e.EvaluateGenome(a.genome, a.opponents, a.seed)
			if err != nil {
				return err
			}
			out[a.index] = Evaluation{
				Index:           a.index,
				GenomeID:        a.genome.ID,
				Fitness:         e.weights.Fitness(&result),
				Result:          result,
				WinRate:         result.WinRate(),
				BaselineWinRate: result.BaselineWinRate(),
				AvgScore:        result.AvgScore(),
			}
			return nil
		})
	}
	return group.Wait()
}

// EvaluatePopulation evaluates every genome against the baseline and
// PeerCount peers. The same genomes and seed always give the same scores.
func (e *Evaluator) EvaluatePopulation(ctx context.Context, genomes []genome.Genome, seed uint64) (PopulationEvaluation, error) {
	if len(genomes) == 0 {
		return PopulationEvaluation{}, fmt.Errorf("cannot evaluate an empty population")
	}
	evaluations := make([]Evaluation, len(genomes))
	if err := e.run(ctx, e.plan(genomes, seed), evaluations); err != nil {
		return PopulationEvaluation{}, err
	}
	return summarize(evaluations), nil
}

// summarize builds the population summary from index-aligned evaluations.
func summarize(evaluations []Evaluation) PopulationEvaluation {
	summary := PopulationEvaluation{
		FitnessScores: make([]float64, len(evaluations)),
	}
	total := 0.0
	for i, ev := range evaluations {
		summary.FitnessScores[i] = ev.Fitness
		total += ev.Fitness
	}

	sorted := make([]Evaluation, len(evaluations))
	copy(sorted, evaluations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fitness > sorted[j].Fitness
	})

	best := sorted[0]
	summary.Evaluations = sorted
	summary.BestIndex = best.Index
	summary.BestFitness = best.Fitness
	summary.AvgFitness = total / float64(len(evaluations))
	summary.BestWinRate = best.WinRate
	summary.BestBaselineWinRate = best.BaselineWinRate
	return summary
}

// CompareGenomes plays a and b head to head, a in seat 0. games <= 0 plays
// DefaultCompareGames.
func (e *Evaluator) CompareGenomes(a, b genome.Genome, games int, seed uint64) (Comparison, error) {
	if games <= 0 {
		games = DefaultCompareGames
	}
	stats, err := simulation.RunBatchParallel([]genome.Genome{a, b}, e.config.Match, games, seed, e.config.Workers)
	if err != nil {
		return Comparison{}, fmt.Errorf("failed to compare %s and %s: %w", a.ID, b.ID, err)
	}

	c := Comparison{
		Games:        stats.TotalGames,
		Genome1Wins:  stats.Wins[0],
		Genome2Wins:  stats.Wins[1],
		Genome1Score: stats.TotalScores[0],
		Genome2Score: stats.TotalScores[1],
		Genome1Rate:  stats.WinRate(0),
		Genome2Rate:  stats.WinRate(1),
		Genome1Avg:   stats.AvgScores[0],
		Genome2Avg:   stats.AvgScores[1],
	}
	for _, w := range stats.Wins {
		c.Draws -= w
	}
	c.Draws += stats.TotalGames

	switch {
	case c.Genome1Wins > c.Genome2Wins:
		c.Winner = "genome1"
	case c.Genome2Wins > c.Genome1Wins:
		c.Winner = "genome2"
	default:
		c.Winner = "tie"
	}
	return c, nil
}

// Benchmark compares g against the baseline. games <= 0 plays
// DefaultBenchmarkGames.
func (e *Evaluator) Benchmark(g genome.Genome, games int, seed uint64) (Comparison, error) {
	if games <= 0 {
		games = DefaultBenchmarkGames
	}
	return e.CompareGenomes(g, e.baseline, games, seed)
}
