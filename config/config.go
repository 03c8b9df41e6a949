// Package config builds training configurations from run modes and YAML
// files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/seasalt/gosim/evolution"
	"github.com/signalnine/seasalt/gosim/genome"
)

// Run modes.
const (
	ModeTest   = "test"
	ModeQuick  = "quick"
	ModeFull   = "full"
	ModeCustom = "custom"
)

// DefaultMode is used when neither a flag nor a file names one.
const DefaultMode = ModeQuick

// Mode sizes a training run.
type Mode struct {
	Name           string
	Generations    int
	PopulationSize int
}

var modes = map[string]Mode{
	ModeTest:   {ModeTest, 10, 20},
	ModeQuick:  {ModeQuick, 30, 30},
	ModeFull:   {ModeFull, 100, 50},
	ModeCustom: {ModeCustom, 50, 40},
}

// Modes returns the run modes, smallest first.
func Modes() []Mode {
	return []Mode{modes[ModeTest], modes[ModeQuick], modes[ModeCustom], modes[ModeFull]}
}

// EliteCountFor returns the elite count used for a population of size n:
// a tenth of the population, at least two.
func EliteCountFor(n int) int {
	return max(2, n/10)
}

// ForMode returns the default configuration sized for mode. The test mode
// also disables early stopping and checkpoints every 5 generations.
func ForMode(mode string) (*evolution.EvolutionConfig, error) {
	m, ok := modes[mode]
	if !ok {
		return nil, &genome.ConfigurationError{
			Field:   "mode",
			Message: fmt.Sprintf("unknown mode %q (want test, quick, full or custom)", mode),
		}
	}

	cfg := evolution.DefaultConfig()
	cfg.Generations = m.Generations
	cfg.PopulationSize = m.PopulationSize
	cfg.EliteCount = EliteCountFor(m.PopulationSize)
	cfg.EarlyStoppingPatience = 15
	if mode == ModeTest {
		cfg.EnableEarlyStopping = false
		cfg.CheckpointInterval = 5
	}
	return cfg, nil
}

// File is the YAML layout of a configuration file. Training settings sit
// at the top level next to the mode they override.
type File struct {
	Mode                      string `yaml:"mode,omitempty"`
	evolution.EvolutionConfig `yaml:",inline"`
}

// Load reads a YAML configuration. The file's mode (or DefaultMode) picks
// the starting values; every key present in the file overrides them. The
// result is validated.
func Load(path string) (*evolution.EvolutionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*evolution.EvolutionConfig, error) {
	var header struct {
		Mode string `yaml:"mode"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if header.Mode == "" {
		header.Mode = DefaultMode
	}

	cfg, err := ForMode(header.Mode)
	if err != nil {
		return nil, err
	}
	file := File{Mode: header.Mode, EvolutionConfig: *cfg}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg = &file.EvolutionConfig
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *evolution.EvolutionConfig) error {
	data, err := yaml.Marshal(File{EvolutionConfig: *cfg})
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
