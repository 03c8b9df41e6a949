// Package main provides the seasalt-evolve CLI for training policy genomes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/signalnine/seasalt/gosim/config"
	"github.com/signalnine/seasalt/gosim/evolution"
	"github.com/signalnine/seasalt/gosim/evolution/fitness"
	"github.com/signalnine/seasalt/gosim/genome"
	"github.com/signalnine/seasalt/gosim/monitor"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// CLI flags
var (
	mode           string
	configPath     string
	resumePath     string
	outputDir      string
	generations    int
	populationSize int
	style          string
	baseline       string
	evaluatePath   string
	seed           int64
	workers        int
	benchmarkGames int
	monitorAddr    string
	verbose        bool
	showVersion    bool
)

func init() {
	flag.StringVar(&mode, "mode", config.DefaultMode, "Run mode (test, quick, full, custom)")
	flag.StringVar(&configPath, "config", "", "YAML configuration file")
	flag.StringVar(&resumePath, "resume", "", "Resume from checkpoint file")
	flag.StringVar(&outputDir, "output", "", "Output directory (default ./trained-ai)")
	flag.IntVar(&generations, "generations", 0, "Number of generations (implies -mode custom)")
	flag.IntVar(&populationSize, "population", 0, "Population size (implies -mode custom)")
	flag.StringVar(&style, "style", "", "Fitness style (balanced, baseline, aggressive)")
	flag.StringVar(&baseline, "baseline", "", "Baseline opponent preset (easy, medium, hard)")
	flag.StringVar(&evaluatePath, "evaluate", "", "Benchmark a saved genome (.json or .fb) against the baseline and exit")
	flag.Int64Var(&seed, "seed", 0, "Random seed (0 = use current time)")
	flag.IntVar(&workers, "workers", 0, "Number of worker goroutines (0 = auto-detect CPU count)")
	flag.IntVar(&benchmarkGames, "benchmark", fitness.DefaultBenchmarkGames, "Games in the final benchmark against the baseline (0 = skip)")
	flag.StringVar(&monitorAddr, "monitor", "", "Serve the live monitor on this address (e.g. :8080)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose output")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("seasalt-evolve %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logger, err := newLogger(verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "\nTraining failed: %v\n", err)
		var cfgErr *genome.ConfigurationError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(logger *zap.Logger) error {
	engine, err := buildEngine(logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	if evaluatePath != "" {
		return evaluate(engine)
	}

	printBanner(engine)

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	var mon *monitor.Server
	if monitorAddr != "" {
		mon = monitor.NewServer(engine, engine.Evaluator.Evaluator.Config().Match, logger)
		monCtx, cancelMonitor := context.WithCancel(ctx)
		defer cancelMonitor()
		go func() {
			if err := mon.ListenAndServe(monCtx, monitorAddr); err != nil {
				logger.Error("monitor stopped", zap.Error(err))
			}
		}()
		fmt.Printf("Monitor:          http://%s/api/status\n\n", monitorAddr)
	}

	// Track progress
	startTime := time.Now()
	total := engine.Config.Generations
	engine.OnGenerationComplete = func(stats evolution.GenerationStats) {
		progress := float64(stats.Generation) / float64(total) * 100
		fmt.Printf("\rGen %3d/%d | Best: %.2f | Avg: %.2f | Div: %.3f | WR: %.1f%% | %s (%.0f%%)",
			stats.Generation, total,
			stats.MaxFitness, stats.AvgFitness, stats.Diversity,
			stats.BestBaselineWinRate*100,
			formatDuration(time.Since(startTime)), progress)
		if verbose {
			fmt.Println()
		}
		if mon != nil {
			mon.OnGeneration(stats)
		}
	}

	fmt.Println("Starting training...")
	fmt.Println()
	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	if result.StopReason == evolution.StopCancelled {
		fmt.Println("\n\nInterrupted! Final checkpoint saved.")
	}

	printSummary(result, engine.Config.OutputDir)

	if benchmarkGames > 0 && result.Generations > 0 {
		fmt.Printf("Benchmarking against baseline (%d games)...\n", benchmarkGames)
		cmp, err := engine.BenchmarkBest(benchmarkGames)
		if err != nil {
			return fmt.Errorf("benchmark failed: %w", err)
		}
		printBenchmark(cmp)
	}
	return nil
}

// buildEngine resumes from -resume or builds a config from -config and
// -mode, then applies flag overrides.
func buildEngine(logger *zap.Logger) (*evolution.EvolutionEngine, error) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if resumePath != "" {
		fmt.Printf("Resuming from checkpoint: %s\n", resumePath)
		// Only the run length and parallelism can change on resume
		engine, err := evolution.ResumeFromCheckpoint(resumePath, logger, func(cfg *evolution.EvolutionConfig) {
			if set["generations"] {
				cfg.Generations = generations
			}
			if set["workers"] {
				cfg.NumWorkers = workers
			}
		})
		if err != nil {
			return nil, err
		}
		fmt.Printf("Resumed at generation %d\n", engine.Status().Generation)
		return engine, nil
	}

	var cfg *evolution.EvolutionConfig
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		if set["generations"] || set["population"] {
			mode = config.ModeCustom
		}
		cfg, err = config.ForMode(mode)
	}
	if err != nil {
		return nil, err
	}

	if generations > 0 {
		cfg.Generations = generations
	}
	if populationSize > 0 {
		cfg.PopulationSize = populationSize
		cfg.EliteCount = config.EliteCountFor(populationSize)
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if style != "" {
		cfg.FitnessStyle = style
	}
	if baseline != "" {
		cfg.Baseline = baseline
	}
	if set["seed"] {
		cfg.RandomSeed = seed
	}
	if set["workers"] {
		cfg.NumWorkers = workers
	}

	return evolution.NewEvolutionEngine(cfg, logger)
}

func printBanner(engine *evolution.EvolutionEngine) {
	cfg := engine.Config
	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════════════════╗")
	fmt.Println("║              Sea Salt & Paper AI Training (Go)             ║")
	fmt.Println("╚════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Population:     %d\n", cfg.PopulationSize)
	fmt.Printf("  Generations:    %d\n", cfg.Generations)
	fmt.Printf("  Elite Count:    %d\n", cfg.EliteCount)
	fmt.Printf("  Fitness Style:  %s\n", engine.Evaluator.Evaluator.Style())
	fmt.Printf("  Games/Match:    %d (%d peers + baseline)\n", cfg.GamesPerMatch, cfg.PeerCount)
	fmt.Printf("  Baseline:       %s\n", baselineName(cfg.Baseline))
	fmt.Printf("  Workers:        %d (0=auto)\n", cfg.NumWorkers)
	fmt.Printf("  Seed:           %d\n", engine.Seed())
	if cfg.OutputDir != "" {
		fmt.Printf("  Output:         %s\n", cfg.OutputDir)
		if cfg.CheckpointInterval > 0 {
			fmt.Printf("  Checkpoint:     every %d generations\n", cfg.CheckpointInterval)
		}
	}
	if cfg.EnableEarlyStopping {
		fmt.Printf("  Early Stopping: patience %d\n", cfg.EarlyStoppingPatience)
	}

	games := cfg.PopulationSize * (cfg.PeerCount + 1) * cfg.GamesPerMatch * cfg.Generations
	fmt.Printf("  Total Games:    ~%d\n", games)
	fmt.Println()
}

func baselineName(preset string) string {
	if preset == "" {
		return "default"
	}
	return preset
}

// evaluate loads a saved genome, clamps it into the configured bounds and
// benchmarks it against the baseline opponent.
func evaluate(engine *evolution.EvolutionEngine) error {
	g, issues, err := genome.Load(evaluatePath, &engine.Schema)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Printf("Warning: %s\n", issue)
	}

	games := benchmarkGames
	if games <= 0 {
		games = fitness.DefaultBenchmarkGames
	}
	fmt.Printf("Evaluating %s against the %s baseline (%d games)...\n",
		g.ID, baselineName(engine.Config.Baseline), games)
	cmp, err := engine.Evaluator.Evaluator.Benchmark(g, games, uint64(engine.Seed()))
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}
	printBenchmark(cmp)
	return nil
}

func printSummary(result *evolution.TrainingResult, outputDir string) {
	fmt.Println()
	fmt.Println()
	fmt.Println("════════════════════════════════════════════════════════════")
	fmt.Println("                      TRAINING SUMMARY")
	fmt.Println("════════════════════════════════════════════════════════════")
	fmt.Printf("  Total Time:      %s\n", formatDuration(result.Duration))
	fmt.Printf("  Generations:     %d\n", result.Generations)
	fmt.Printf("  Stop Reason:     %s\n", result.StopReason)

	if result.Generations > 0 {
		g := result.BestGenome
		fmt.Printf("  Best Fitness:    %.2f\n", result.BestFitness)
		fmt.Printf("  Best Genome:     %s\n", g.ID)
		fmt.Printf("  Parameters:\n")
		fmt.Printf("    Declare Threshold:  %.2f\n", g.Get(genome.DeclareThreshold))
		fmt.Printf("    Risk Tolerance:     %.2f\n", g.Get(genome.RiskTolerance))
		fmt.Printf("    Mermaid Priority:   %.2f\n", g.Get(genome.MermaidPriority))
		fmt.Printf("    Sailor Priority:    %.2f\n", g.Get(genome.SailorPriority))
		fmt.Printf("    Deck Base Value:    %.2f\n", g.Get(genome.DeckBaseValue))
	}

	if outputDir != "" {
		fmt.Printf("  Output:          %s\n", outputDir)
	}
	fmt.Println("════════════════════════════════════════════════════════════")
	fmt.Println()
}

func printBenchmark(cmp fitness.Comparison) {
	fmt.Printf("  Trained AI Wins:  %d (%.1f%%)\n", cmp.Genome1Wins, cmp.Genome1Rate*100)
	fmt.Printf("  Baseline Wins:    %d (%.1f%%)\n", cmp.Genome2Wins, cmp.Genome2Rate*100)
	fmt.Printf("  Draws:            %d\n", cmp.Draws)
	fmt.Printf("  Avg Score:        %.1f vs %.1f\n", cmp.Genome1Avg, cmp.Genome2Avg)
	fmt.Println()
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
