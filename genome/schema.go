// Package genome provides the policy genome: a fixed vector of named,
// range-constrained genes plus the schema that declares their bounds.
package genome

import (
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Gene indexes one named component of a Genome.
type Gene int

// Draw valuation genes.
const (
	DeckBaseValue Gene = iota
	DiscardPairBonus
	DiscardCollectionBonus
	DiscardMultiplierBonus
	DiscardColorBonus
	BlockingWeight

	// Pair valuation genes.
	MinPairValue
	FishPairBonus
	CrabPairBonus
	SailboatPairBonus
	StealPairBonus
	EarlyGamePairThreshold
	EarlyGamePairBonus
	LateGamePairBonus

	// Declaration genes.
	DeclareThreshold
	StopVsLastChanceTurnThreshold
	ScoreDifferenceForStop
	RiskTolerance
	OpponentHandSizeWeight

	// Collection priorities.
	ShellPriority
	OctopusPriority
	PenguinPriority
	SailorPriority
	MermaidPriority

	// Multiplier priorities.
	LighthousePriority
	FishSchoolPriority
	PenguinColonyPriority
	CaptainPriority

	// Game phase genes.
	EarlyGameTurns
	MidGameTurns
	LateGameScoreBonus

	// Opponent modelling genes.
	OpponentScoreAwareness
	OpponentHandAwareness
	DefensivePlayWeight

	// NumGenes is the number of genes in every genome.
	NumGenes
)

// GeneSpec declares a gene's name, group, default value and bounds.
type GeneSpec struct {
	Name    string  `json:"name" yaml:"name"`
	Group   string  `json:"group" yaml:"group"`
	Default float64 `json:"default" yaml:"default"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
}

// Range returns Max - Min.
func (s GeneSpec) Range() float64 {
	return s.Max - s.Min
}

// Bounds overrides the declared range of a gene.
type Bounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Schema declares every gene. It is a value: copies are independent.
type Schema [NumGenes]GeneSpec

var defaultSchema = Schema{
	DeckBaseValue:          {"deckBaseValue", "draw", 3, 2, 5},
	DiscardPairBonus:       {"discardPairBonus", "draw", 3, 1, 5},
	DiscardCollectionBonus: {"discardCollectionBonus", "draw", 2, 1, 4},
	DiscardMultiplierBonus: {"discardMultiplierBonus", "draw", 2, 1, 4},
	DiscardColorBonus:      {"discardColorBonus", "draw", 1.5, 0.5, 3},
	BlockingWeight:         {"blockingWeight", "draw", 0.5, 0, 1},

	MinPairValue:           {"minPairValue", "pair", 0, -2, 5},
	FishPairBonus:          {"fishPairBonus", "pair", 2, 0, 4},
	CrabPairBonus:          {"crabPairBonus", "pair", 3, 0, 5},
	SailboatPairBonus:      {"sailboatPairBonus", "pair", 4, 0, 6},
	StealPairBonus:         {"stealPairBonus", "pair", 3, 0, 5},
	EarlyGamePairThreshold: {"earlyGamePairThreshold", "pair", 5, 3, 8},
	EarlyGamePairBonus:     {"earlyGamePairBonus", "pair", 1.2, 0.8, 1.5},
	LateGamePairBonus:      {"lateGamePairBonus", "pair", 0.9, 0.6, 1.2},

	DeclareThreshold:              {"declareThreshold", "declare", 7, 5, 12},
	StopVsLastChanceTurnThreshold: {"stopVsLastChanceTurnThreshold", "declare", 10, 5, 15},
	ScoreDifferenceForStop:        {"scoreDifferenceForStop", "declare", 3, 0, 5},
	RiskTolerance:                 {"riskTolerance", "declare", 0.5, 0, 1},
	OpponentHandSizeWeight:        {"opponentHandSizeWeight", "declare", 0.5, 0, 1},

	ShellPriority:   {"shellPriority", "collection", 1.3, 0.5, 2.5},
	OctopusPriority: {"octopusPriority", "collection", 1.5, 0.5, 2.5},
	PenguinPriority: {"penguinPriority", "collection", 1.2, 0.5, 2.5},
	SailorPriority:  {"sailorPriority", "collection", 1.8, 0.5, 3},
	MermaidPriority: {"mermaidPriority", "collection", 2.0, 1, 4},

	LighthousePriority:    {"lighthousePriority", "multiplier", 1.5, 0.5, 2.5},
	FishSchoolPriority:    {"fishSchoolPriority", "multiplier", 1.5, 0.5, 2.5},
	PenguinColonyPriority: {"penguinColonyPriority", "multiplier", 1.8, 0.5, 3},
	CaptainPriority:       {"captainPriority", "multiplier", 2.0, 0.5, 3},

	EarlyGameTurns:     {"earlyGameTurns", "phase", 4, 2, 6},
	MidGameTurns:       {"midGameTurns", "phase", 8, 5, 12},
	LateGameScoreBonus: {"lateGameScoreBonus", "phase", 1.3, 1, 2},

	OpponentScoreAwareness: {"opponentScoreAwareness", "opponent", 0.7, 0, 1},
	OpponentHandAwareness:  {"opponentHandAwareness", "opponent", 0.5, 0, 1},
	DefensivePlayWeight:    {"defensivePlayWeight", "opponent", 0.3, 0, 1},
}

var geneByName = func() map[string]Gene {
	m := make(map[string]Gene, NumGenes)
	for i, spec := range defaultSchema {
		m[spec.Name] = Gene(i)
	}
	return m
}()

// DefaultSchema returns the built-in gene declarations.
func DefaultSchema() Schema {
	return defaultSchema
}

// String returns the gene's JSON name.
func (g Gene) String() string {
	if g < 0 || g >= NumGenes {
		return fmt.Sprintf("gene(%d)", int(g))
	}
	return defaultSchema[g].Name
}

// GeneByName looks a gene up by its JSON name.
func GeneByName(name string) (Gene, bool) {
	g, ok := geneByName[name]
	return g, ok
}

// Genome is a named vector of gene values. Genomes are values: operators
// always return new genomes and never modify their inputs.
type Genome struct {
	ID    string
	Genes [NumGenes]float64
}

// Get returns the value of a gene.
func (g *Genome) Get(gene Gene) float64 {
	return g.Genes[gene]
}

// With returns a copy of g with one gene replaced.
func (g Genome) With(gene Gene, value float64) Genome {
	g.Genes[gene] = value
	return g
}

// WithID returns a copy of g carrying a different id.
func (g Genome) WithID(id string) Genome {
	g.ID = id
	return g
}

// NewID returns a fresh genome id. Ids drawn from a seeded reader are
// reproducible; a nil reader uses crypto randomness.
func NewID(r io.Reader) string {
	if r == nil {
		return uuid.NewString()
	}
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Spec returns the declaration for a gene.
func (s *Schema) Spec(gene Gene) GeneSpec {
	return s[gene]
}

// Clamp bounds a single gene value. Non-finite values become the default.
func (s *Schema) Clamp(gene Gene, value float64) float64 {
	spec := s[gene]
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return spec.Default
	}
	return math.Max(spec.Min, math.Min(spec.Max, value))
}

// Normalize returns g with every gene clamped into its declared range.
// A genome is never rejected, only normalized.
func (s *Schema) Normalize(g Genome) Genome {
	for i := range g.Genes {
		g.Genes[i] = s.Clamp(Gene(i), g.Genes[i])
	}
	return g
}

// Default returns the genome made of every gene's default value.
func (s *Schema) Default() Genome {
	var g Genome
	for i, spec := range s {
		g.Genes[i] = spec.Default
	}
	return g
}

// Random draws each gene uniformly from its declared range.
func (s *Schema) Random(rng *rand.Rand) Genome {
	g := Genome{ID: NewID(rng)}
	for i, spec := range s {
		g.Genes[i] = spec.Min + rng.Float64()*spec.Range()
	}
	return g
}

// WithBounds returns a copy of the schema with some gene ranges replaced.
// The result is validated; a default outside a narrowed range is moved to
// the nearest bound.
func (s Schema) WithBounds(overrides map[string]Bounds) (Schema, error) {
	for name, b := range overrides {
		gene, ok := GeneByName(name)
		if !ok {
			return s, &ConfigurationError{
				Field:   "gene_bounds." + name,
				Message: "unknown gene",
			}
		}
		spec := s[gene]
		spec.Min, spec.Max = b.Min, b.Max
		spec.Default = math.Max(spec.Min, math.Min(spec.Max, spec.Default))
		s[gene] = spec
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
