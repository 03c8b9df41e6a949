package genome

import (
	"fmt"
	"sort"
)

// BaselineID is the id carried by the fixed evaluation opponent.
const BaselineID = "baseline"

// DefaultGenome returns the hand-tuned default policy.
func DefaultGenome() Genome {
	g := defaultSchema.Default()
	g.ID = "default"
	return g
}

// BaselineGenome returns the default policy labelled as the baseline opponent.
func BaselineGenome() Genome {
	return DefaultGenome().WithID(BaselineID)
}

// presets adjust the default genome into difficulty levels.
var presets = map[string]map[Gene]float64{
	"easy": {
		DeclareThreshold:       6,
		RiskTolerance:          0.7,
		OpponentScoreAwareness: 0.2,
		DefensivePlayWeight:    0.1,
	},
	"medium": {},
	"hard": {
		DeclareThreshold:       8,
		RiskTolerance:          0.4,
		OpponentScoreAwareness: 0.9,
		DefensivePlayWeight:    0.5,
		SailorPriority:         2.5,
		MermaidPriority:        3,
	},
}

// PresetNames lists the available difficulty presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the genome for a difficulty level (easy, medium, hard).
func Preset(difficulty string) (Genome, error) {
	overrides, ok := presets[difficulty]
	if !ok {
		return Genome{}, fmt.Errorf("unknown preset %q (want one of %v)", difficulty, PresetNames())
	}
	g := defaultSchema.Default()
	g.ID = "preset_" + difficulty
	for gene, value := range overrides {
		g.Genes[gene] = value
	}
	return g, nil
}
