package engine

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/signalnine/seasalt/gosim/genome"
)

func c(id string, k Kind) Card {
	return Card{ID: id, Kind: k, Color: Blue}
}

func colored(id string, k Kind, color Color) Card {
	return Card{ID: id, Kind: k, Color: color}
}

// testState builds a state with the given hands, player 0 to move.
func testState(hands ...[]Card) *GameState {
	s := GetState()
	for i, h := range hands {
		p := s.addPlayer(fmt.Sprintf("player_%d", i), genome.DefaultGenome())
		p.Hand = append(p.Hand, h...)
	}
	return s
}

func TestStatePoolReset(t *testing.T) {
	s1 := testState([]Card{c("fish_1", Fish)}, nil)
	s1.Deck = append(s1.Deck, c("crab_1", Crab))
	s1.TurnCount = 12
	s1.Finished = true
	PutState(s1)

	s2 := GetState()
	if len(s2.Players) != 0 {
		t.Errorf("Expected 0 players, got %d", len(s2.Players))
	}
	if len(s2.Deck) != 0 {
		t.Errorf("Expected empty deck, got %d cards", len(s2.Deck))
	}
	if s2.TurnCount != 0 || s2.Finished || s2.Winner != -1 || s2.Declarer != -1 {
		t.Error("State was not reset")
	}
	if _, ok := s2.PlayerIndex("player_0"); ok {
		t.Error("Player index was not cleared")
	}
	PutState(s2)
}

func TestCatalogMakesFullDeck(t *testing.T) {
	total := 0
	for _, info := range Catalog() {
		total += info.Count
	}
	if total != DeckSize {
		t.Errorf("Expected %d cards, got %d", DeckSize, total)
	}

	deck := BuildDeck(rand.New(rand.NewSource(1)))
	if len(deck) != DeckSize {
		t.Fatalf("Expected deck of %d, got %d", DeckSize, len(deck))
	}
	seen := make(map[string]bool)
	for _, card := range deck {
		if seen[card.ID] {
			t.Errorf("Duplicate card id %s", card.ID)
		}
		seen[card.ID] = true
		if card.Kind == Mermaid && card.Color != Multicolor {
			t.Errorf("Mermaid %s should be multicolor, got %s", card.ID, card.Color)
		}
		if card.Kind != Mermaid && int(card.Color) >= NumColors {
			t.Errorf("Card %s has no colour", card.ID)
		}
	}
	if !seen["fish_1"] || !seen["penguincolony_2"] || !seen["mermaid_4"] {
		t.Error("Card ids should be <lowercase-name>_<n>")
	}
}

func TestNewGameDeals(t *testing.T) {
	state, err := NewGame(nil, 3, DefaultHandSize, nil, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	defer PutState(state)

	if len(state.Players) != 3 {
		t.Fatalf("Expected 3 players, got %d", len(state.Players))
	}
	for i, p := range state.Players {
		if len(p.Hand) != DefaultHandSize {
			t.Errorf("Player %d: expected %d cards, got %d", i, DefaultHandSize, len(p.Hand))
		}
		if p.Genome.ID != "default" {
			t.Errorf("Missing genome should default, got %q", p.Genome.ID)
		}
		if idx, ok := state.PlayerIndex(p.ID); !ok || idx != i {
			t.Errorf("PlayerIndex(%s) = %d, %v", p.ID, idx, ok)
		}
	}
	if len(state.DiscardLeft) != 1 || len(state.DiscardRight) != 1 {
		t.Error("Each discard pile should start with one card")
	}
	if len(state.Deck) != DeckSize-8 {
		t.Errorf("Expected %d cards in deck, got %d", DeckSize-8, len(state.Deck))
	}
	if state.Phase != PhaseDraw || state.TurnCount != 0 {
		t.Error("Match should start in the draw phase at turn 0")
	}
	if err := state.CheckConservation(); err != nil {
		t.Errorf("Fresh deal not conserved: %v", err)
	}
}

func TestNewGameIsDeterministic(t *testing.T) {
	a, _ := NewGame(nil, 2, DefaultHandSize, nil, rand.New(rand.NewSource(7)))
	b, _ := NewGame(nil, 2, DefaultHandSize, nil, rand.New(rand.NewSource(7)))
	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Error("Same seed should deal the same match")
	}
	PutState(a)
	PutState(b)
}

func TestNewGameRejectsBadPlayerCount(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		if _, err := NewGame(nil, n, DefaultHandSize, nil, rand.New(rand.NewSource(1))); err == nil {
			t.Errorf("Expected error for %d players", n)
		}
	}
	if _, err := NewGame(nil, 4, 30, nil, rand.New(rand.NewSource(1))); err == nil {
		t.Error("Expected error for oversized hands")
	}
}

func TestNewGameNormalizesGenomes(t *testing.T) {
	wild := genome.DefaultGenome().With(genome.DeclareThreshold, 1000)
	state, err := NewGame([]genome.Genome{wild}, 2, DefaultHandSize, nil, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	defer PutState(state)
	if v := state.Players[0].Genome.Get(genome.DeclareThreshold); v != 12 {
		t.Errorf("Expected clamped declareThreshold 12, got %f", v)
	}
}

func TestNewGameUsesGivenSchema(t *testing.T) {
	wide, err := genome.DefaultSchema().WithBounds(map[string]genome.Bounds{
		"deckBaseValue": {Min: 2, Max: 8},
	})
	if err != nil {
		t.Fatalf("WithBounds failed: %v", err)
	}
	g := genome.DefaultGenome().With(genome.DeckBaseValue, 8)

	state, err := NewGame([]genome.Genome{g, g}, 2, DefaultHandSize, &wide, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	defer PutState(state)
	if v := state.Players[0].Genome.Get(genome.DeckBaseValue); v != 8 {
		t.Errorf("Expected deckBaseValue 8 under widened bounds, got %f", v)
	}

	narrow, err := NewGame([]genome.Genome{g, g}, 2, DefaultHandSize, nil, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}
	defer PutState(narrow)
	if v := narrow.Players[0].Genome.Get(genome.DeckBaseValue); v != 5 {
		t.Errorf("Expected deckBaseValue clamped to 5, got %f", v)
	}
}

func TestCheckConservationDetectsLoss(t *testing.T) {
	state, _ := NewGame(nil, 2, DefaultHandSize, nil, rand.New(rand.NewSource(3)))
	defer PutState(state)
	state.Deck = state.Deck[:len(state.Deck)-1]
	if err := state.CheckConservation(); err == nil {
		t.Error("Expected conservation error after dropping a card")
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := testState([]Card{c("fish_1", Fish)}, []Card{c("crab_1", Crab)})
	snap := s.Snapshot()
	s.Players[0].Hand[0] = c("shell_1", Shell)

	if snap.Players[0].Hand[0].ID != "fish_1" {
		t.Error("Snapshot shares memory with state")
	}
	if snap.CurrentPlayer != "player_0" || snap.Phase != "draw" {
		t.Errorf("Unexpected snapshot header: %s %s", snap.CurrentPlayer, snap.Phase)
	}
}
