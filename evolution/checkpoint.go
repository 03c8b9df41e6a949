package evolution

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/signalnine/seasalt/gosim/genome"
)

// CheckpointData represents the serializable state of a training run.
type CheckpointData struct {
	// Generation is the number of completed generations.
	Generation int             `json:"generation"`
	Population []genome.Genome `json:"population"`
	// Fitness is aligned with Population.
	Fitness []float64 `json:"fitness"`
	// Evaluated is false when the population has not been scored yet.
	Evaluated   bool              `json:"evaluated"`
	BestGenome  *genome.Genome    `json:"bestGenome,omitempty"`
	BestFitness float64           `json:"bestFitness"`
	History     []GenerationStats `json:"history"`
	Config      *EvolutionConfig  `json:"config"`

	// Metadata
	Seed      int64     `json:"seed"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// CheckpointVersion is the current checkpoint format version.
const CheckpointVersion = "1.0"

// Checkpoint builds the in-memory checkpoint of the current state. It is
// available even when writing checkpoints fails.
func (e *EvolutionEngine) Checkpoint() *CheckpointData {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp := &CheckpointData{
		Generation: e.generation,
		History:    append(make([]GenerationStats, 0, len(e.history)), e.history...),
		Config:     e.Config,
		Seed:       e.seed,
		Timestamp:  time.Now(),
		Version:    CheckpointVersion,
	}
	if e.population != nil {
		cp.Population = e.population.Genomes()
		cp.Fitness = e.population.FitnessScores()
		cp.Evaluated = len(e.population.GetUnevaluated()) == 0
	}
	if e.bestEver != nil {
		best := e.bestEver.Genome
		cp.BestGenome = &best
		cp.BestFitness = e.bestEver.Fitness
	}
	return cp
}

// SaveCheckpoint saves the current training state to a file.
func (e *EvolutionEngine) SaveCheckpoint(path string) error {
	if e.Population() == nil {
		return fmt.Errorf("no population to save")
	}
	return writeJSON(path, e.Checkpoint())
}

// writeJSON writes v as indented JSON through a temp file and a rename.
func writeJSON(path string, v any) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write to temp file first, then rename (atomic)
	tempPath := path + ".tmp"
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize %s: %w", filepath.Base(path), err)
	}

	return nil
}

// LoadCheckpoint loads training state from a checkpoint file.
func LoadCheckpoint(path string) (*CheckpointData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var checkpoint CheckpointData
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	return &checkpoint, nil
}

// RestoreFromCheckpoint restores engine state from checkpoint data. Genomes
// are normalized against the engine's schema. An evaluated population is
// evolved before the next generation is scored.
func (e *EvolutionEngine) RestoreFromCheckpoint(checkpoint *CheckpointData) error {
	if checkpoint == nil {
		return fmt.Errorf("nil checkpoint")
	}
	if len(checkpoint.Population) == 0 {
		return fmt.Errorf("checkpoint has an empty population")
	}
	if len(checkpoint.Fitness) != len(checkpoint.Population) {
		return fmt.Errorf("checkpoint has %d fitness values for %d genomes",
			len(checkpoint.Fitness), len(checkpoint.Population))
	}

	individuals := make([]*Individual, len(checkpoint.Population))
	for i, g := range checkpoint.Population {
		individuals[i] = &Individual{
			Genome:    e.Schema.Normalize(g),
			Fitness:   checkpoint.Fitness[i],
			Evaluated: checkpoint.Evaluated,
		}
	}
	pop := NewPopulation(individuals)
	pop.Generation = checkpoint.Generation

	e.mu.Lock()
	defer e.mu.Unlock()

	e.population = pop
	e.generation = checkpoint.Generation
	e.pendingEvolve = checkpoint.Evaluated
	e.history = append([]GenerationStats(nil), checkpoint.History...)
	e.bestEver = nil
	if checkpoint.BestGenome != nil {
		e.bestEver = &Individual{
			Genome:    e.Schema.Normalize(*checkpoint.BestGenome),
			Fitness:   checkpoint.BestFitness,
			Evaluated: true,
		}
	}

	// Replay the history so patience carries over.
	e.EarlyStopping.Reset()
	for _, h := range e.history {
		e.EarlyStopping.ShouldStop(h.MaxFitness)
	}

	if checkpoint.Seed != 0 {
		e.seed = checkpoint.Seed
	}
	e.Rng.Seed(e.seed + int64(checkpoint.Generation))
	return nil
}

// ResumeFromCheckpoint creates a new engine and restores state from a
// checkpoint. A non-nil adjust may change the stored config, such as the run
// length or worker count, before the engine is built from it.
func ResumeFromCheckpoint(path string, logger *zap.Logger, adjust func(*EvolutionConfig)) (*EvolutionEngine, error) {
	checkpoint, err := LoadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	if checkpoint.Config == nil {
		checkpoint.Config = DefaultConfig()
	}
	if adjust != nil {
		adjust(checkpoint.Config)
	}

	// Create engine with checkpoint config
	engine, err := NewEvolutionEngine(checkpoint.Config, logger)
	if err != nil {
		return nil, err
	}

	// Restore state
	if err := engine.RestoreFromCheckpoint(checkpoint); err != nil {
		engine.Close()
		return nil, err
	}

	return engine, nil
}

// Output file names.
const (
	FinalCheckpointFile = "checkpoint-final.json"
	BestGenomeFile      = "best-ai.json"
	BestGenomeBinary    = "best-ai.fb"
	HistoryFile         = "training-history.json"
	ReportFile          = "training-report.json"
)

// AutoCheckpointer provides automatic checkpoint saving.
type AutoCheckpointer struct {
	Engine    *EvolutionEngine
	Dir       string // empty disables every write
	Interval  int    // Save every N generations
	LastSaved int    // Last generation saved
}

// NewAutoCheckpointer creates an auto-checkpointer.
func NewAutoCheckpointer(engine *EvolutionEngine, dir string, interval int) *AutoCheckpointer {
	return &AutoCheckpointer{
		Engine:    engine,
		Dir:       dir,
		Interval:  interval,
		LastSaved: -1,
	}
}

// ShouldSave returns true if it's time to save a checkpoint.
func (ac *AutoCheckpointer) ShouldSave(generation int) bool {
	if ac.Interval <= 0 || ac.Dir == "" {
		return false
	}
	// Don't save at generation 0, only at interval boundaries (10, 20, 30, etc.)
	if generation == 0 {
		return false
	}
	return generation > ac.LastSaved && generation%ac.Interval == 0
}

// Save writes checkpoint-gen{N}.json and best-ai-gen{N}.json if needed.
func (ac *AutoCheckpointer) Save(generation int) error {
	if !ac.ShouldSave(generation) {
		return nil
	}

	path := filepath.Join(ac.Dir, fmt.Sprintf("checkpoint-gen%d.json", generation))
	if err := ac.Engine.SaveCheckpoint(path); err != nil {
		return err
	}
	if best, ok := ac.Engine.BestEver(); ok {
		path := filepath.Join(ac.Dir, fmt.Sprintf("best-ai-gen%d.json", generation))
		if err := genome.SaveJSON(path, best.Genome); err != nil {
			return err
		}
	}

	ac.LastSaved = generation
	return nil
}

// SaveFinal writes the final checkpoint, the best genome in JSON and binary
// form, the history and the report. Every file is attempted; failures are
// joined.
func (ac *AutoCheckpointer) SaveFinal() error {
	if ac.Dir == "" {
		return nil
	}

	var errs []error
	if err := ac.Engine.SaveCheckpoint(filepath.Join(ac.Dir, FinalCheckpointFile)); err != nil {
		errs = append(errs, err)
	}
	if best, ok := ac.Engine.BestEver(); ok {
		if err := genome.SaveJSON(filepath.Join(ac.Dir, BestGenomeFile), best.Genome); err != nil {
			errs = append(errs, err)
		}
		if err := genome.SaveBinary(filepath.Join(ac.Dir, BestGenomeBinary), best.Genome); err != nil {
			errs = append(errs, err)
		}
	}
	if err := writeJSON(filepath.Join(ac.Dir, HistoryFile), ac.Engine.History()); err != nil {
		errs = append(errs, err)
	}
	if err := writeJSON(filepath.Join(ac.Dir, ReportFile), ac.Engine.Report()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
