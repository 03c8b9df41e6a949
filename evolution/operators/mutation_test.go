package operators

import (
	"math/rand"
	"testing"

	"github.com/signalnine/seasalt/gosim/genome"
)

func TestGaussianMutationDoesNotModifyInput(t *testing.T) {
	op := NewGaussianMutation(genome.DefaultSchema(), 1, 0.2)
	original := genome.DefaultGenome()
	before := original
	rng := rand.New(rand.NewSource(12345))

	mutated := op.Mutate(original, rng)
	if original != before {
		t.Error("Mutate modified its input")
	}
	if mutated.Genes == original.Genes {
		t.Error("Expected at least one gene to change at rate 1")
	}
	if mutated.ID != original.ID {
		t.Errorf("Expected id %s to be kept, got %s", original.ID, mutated.ID)
	}
}

func TestGaussianMutationStaysInBounds(t *testing.T) {
	schema := genome.DefaultSchema()
	op := NewGaussianMutation(schema, 1, 5)
	rng := rand.New(rand.NewSource(7))
	g := genome.DefaultGenome()

	for i := 0; i < 50; i++ {
		g = op.Mutate(g, rng)
		for j, v := range g.Genes {
			spec := schema.Spec(genome.Gene(j))
			if v < spec.Min || v > spec.Max {
				t.Fatalf("Gene %s = %f outside [%f, %f]", spec.Name, v, spec.Min, spec.Max)
			}
		}
	}
}

func TestGaussianMutationRateZero(t *testing.T) {
	op := NewGaussianMutation(genome.DefaultSchema(), 0, 0.2)
	g := genome.DefaultGenome()
	if op.Mutate(g, rand.New(rand.NewSource(1))) != g {
		t.Error("Rate 0 should never mutate")
	}
	if op.WithRate(0.5).Probability() != 0.5 || op.Probability() != 0 {
		t.Error("WithRate should return an independent copy")
	}
	if op.Name() != "gaussian" {
		t.Errorf("Expected name 'gaussian', got '%s'", op.Name())
	}
}

func TestAdaptiveMutationRate(t *testing.T) {
	tests := []struct {
		name              string
		current, previous float64
		generation, total int
		want              float64
	}{
		{"stalled", 50, 50, 10, 100, 0.15},
		{"stalled below previous", 40, 50, 90, 100, 0.15},
		{"improving early", 60, 50, 10, 100, 0.1},
		{"improving late", 60, 50, 80, 100, 0.05},
		{"small previous", 1.5, 0.2, 10, 100, 0.1},
	}
	for _, tt := range tests {
		if got := DefaultAdaptiveRate().Rate(0.1, tt.current, tt.previous, tt.generation, tt.total); got < tt.want-1e-12 || got > tt.want+1e-12 {
			t.Errorf("%s: expected %f, got %f", tt.name, tt.want, got)
		}
	}
}

func TestAdaptiveRateBounds(t *testing.T) {
	a := DefaultAdaptiveRate()
	if got := a.Rate(0.25, 10, 10, 1, 10); got != 0.3 {
		t.Errorf("Expected rate capped at 0.3, got %f", got)
	}
	if got := a.Rate(0.015, 20, 10, 9, 10); got != 0.01 {
		t.Errorf("Expected rate floored at 0.01, got %f", got)
	}
	a.Enabled = false
	if got := a.Rate(0.1, 10, 10, 1, 10); got != 0.1 {
		t.Errorf("Expected base rate when disabled, got %f", got)
	}
}
