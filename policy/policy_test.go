package policy

import (
	"reflect"
	"testing"

	"github.com/signalnine/seasalt/gosim/engine"
	"github.com/signalnine/seasalt/gosim/genome"
)

func card(id string, k engine.Kind) engine.Card {
	return engine.Card{ID: id, Kind: k, Color: engine.Blue}
}

func twoPlayerState(me, opp []engine.Card) *engine.GameState {
	return &engine.GameState{
		Deck: []engine.Card{card("shell_8", engine.Shell), card("crab_10", engine.Crab)},
		Players: []engine.PlayerState{
			{ID: "player_0", Hand: me, Genome: genome.DefaultGenome()},
			{ID: "player_1", Hand: opp, Genome: genome.DefaultGenome()},
		},
		Declarer: -1,
		Winner:   -1,
	}
}

func TestDrawPrefersBestSource(t *testing.T) {
	g := genome.DefaultGenome()
	s := twoPlayerState(nil, nil)
	s.DiscardLeft = []engine.Card{card("starfish_1", engine.Starfish)}
	s.DiscardRight = []engine.Card{{ID: "mermaid_1", Kind: engine.Mermaid, Color: engine.Multicolor}}

	// deck 3, starfish 2, mermaid 2*mermaidPriority = 4
	a := Decide(&g, s, 0)
	if a.Kind != engine.ActionDraw || a.Source != engine.SourceDiscardRight {
		t.Errorf("Expected draw from right pile, got %s", a)
	}
}

func TestDrawChasesFourthMermaid(t *testing.T) {
	g := genome.DefaultGenome()
	hand := []engine.Card{
		{ID: "mermaid_1", Kind: engine.Mermaid, Color: engine.Multicolor},
		{ID: "mermaid_2", Kind: engine.Mermaid, Color: engine.Multicolor},
		{ID: "mermaid_3", Kind: engine.Mermaid, Color: engine.Multicolor},
	}
	s := twoPlayerState(hand, nil)
	s.DiscardLeft = []engine.Card{{ID: "mermaid_4", Kind: engine.Mermaid, Color: engine.Multicolor}}

	if v := DiscardValue(&g, s.DiscardLeft[0], hand); v < 100 {
		t.Errorf("Expected fourth mermaid to be worth at least 100, got %f", v)
	}
	if a := Decide(&g, s, 0); a.Source != engine.SourceDiscardLeft {
		t.Errorf("Expected draw from left pile, got %s", a)
	}
}

func TestDrawTiesGoToDeck(t *testing.T) {
	g := genome.DefaultGenome().With(genome.DeckBaseValue, 2)
	s := twoPlayerState(nil, nil)
	s.DiscardLeft = []engine.Card{card("starfish_1", engine.Starfish)}

	if a := Decide(&g, s, 0); a.Source != engine.SourceDeck {
		t.Errorf("Expected deck on tie, got %s", a)
	}
}

func TestDrawSkipsEmptySources(t *testing.T) {
	g := genome.DefaultGenome()
	s := twoPlayerState(nil, nil)
	s.Deck = nil
	s.DiscardRight = []engine.Card{card("shell_1", engine.Shell)}

	options := DrawOptions(&g, s, 0)
	if len(options) != 1 || options[0].Source != engine.SourceDiscardRight {
		t.Errorf("Expected only the right pile, got %+v", options)
	}
}

func TestDiscardValueMultiplierSynergy(t *testing.T) {
	g := genome.DefaultGenome()
	hand := []engine.Card{card("sailor_1", engine.Sailor)}

	// Captain: face 2 + 1 sailor * 3 * discardMultiplierBonus(2)
	if v := DiscardValue(&g, card("captain_1", engine.Captain), hand); v != 2+6+1.5 {
		t.Errorf("Expected 9.5 for captain, got %f", v)
	}

	withCaptain := []engine.Card{card("captain_1", engine.Captain)}
	// Sailor: face 0, collection gain 0, captain synergy 3*2, colour 1.5
	if v := DiscardValue(&g, card("sailor_2", engine.Sailor), withCaptain); v != 6+1.5 {
		t.Errorf("Expected 7.5 for sailor, got %f", v)
	}
}

func TestPlayBestPair(t *testing.T) {
	g := genome.DefaultGenome()
	s := twoPlayerState([]engine.Card{
		card("fish_1", engine.Fish), card("fish_2", engine.Fish),
		card("sailboat_1", engine.Sailboat), card("sailboat_2", engine.Sailboat),
	}, nil)
	s.Phase = engine.PhasePair

	a := Decide(&g, s, 0)
	want := engine.PlayPair("sailboat_1", "sailboat_2")
	if a != want {
		t.Errorf("Expected %s, got %s", want, a)
	}
}

func TestPairBelowMinimumEndsTurn(t *testing.T) {
	g := genome.DefaultGenome().With(genome.MinPairValue, 5)
	s := twoPlayerState([]engine.Card{card("sailboat_1", engine.Sailboat), card("sailboat_2", engine.Sailboat)}, nil)
	s.Phase = engine.PhasePair

	if a := Decide(&g, s, 0); a.Kind != engine.ActionEndTurn {
		t.Errorf("Expected end_turn, got %s", a)
	}

	// Late game uses the late multiplier: 4 * 0.9 = 3.6.
	late, ok := BestPair(&g, s.Players[0].Hand, 20)
	if ok {
		t.Errorf("Expected no pair late in the game, got %+v", late)
	}
}

func TestDeclareStopWithLead(t *testing.T) {
	g := genome.DefaultGenome()
	me := []engine.Card{
		card("starfish_1", engine.Starfish), card("starfish_2", engine.Starfish),
		card("starfish_3", engine.Starfish), card("starfish_4", engine.Starfish),
	}
	s := twoPlayerState(me, []engine.Card{card("shell_1", engine.Shell), card("shell_2", engine.Shell)})
	s.Phase = engine.PhaseDeclare

	if a := Decide(&g, s, 0); a != engine.Declare(engine.DeclareStop) {
		t.Errorf("Expected declare(stop), got %s", a)
	}
}

func TestDeclareLastChanceWhenClose(t *testing.T) {
	g := genome.DefaultGenome()
	me := []engine.Card{
		card("starfish_1", engine.Starfish), card("starfish_2", engine.Starfish),
		card("starfish_3", engine.Starfish), card("starfish_4", engine.Starfish),
	}
	opp := []engine.Card{
		card("starfish_5", engine.Starfish), card("starfish_6", engine.Starfish),
		card("starfish_7", engine.Starfish),
	}
	s := twoPlayerState(me, opp)
	s.Phase = engine.PhaseDeclare

	d := EvaluateDeclaration(&g, s, 0)
	if !d.Declare || d.Mode != engine.DeclareLastChance {
		t.Errorf("Expected last_chance, got %+v", d)
	}
	if d.ScoreLead != 2 {
		t.Errorf("Expected lead 2, got %d", d.ScoreLead)
	}

	s.TurnCount = 11
	if a := Decide(&g, s, 0); a != engine.Declare(engine.DeclareStop) {
		t.Errorf("Expected stop late in the game, got %s", a)
	}
}

func TestNoDeclareBelowThreshold(t *testing.T) {
	g := genome.DefaultGenome()
	s := twoPlayerState([]engine.Card{card("starfish_1", engine.Starfish)}, nil)
	s.Phase = engine.PhaseDeclare
	if a := Decide(&g, s, 0); a.Kind != engine.ActionEndTurn {
		t.Errorf("Expected end_turn, got %s", a)
	}
}

func TestDecideIsPure(t *testing.T) {
	g := genome.DefaultGenome()
	s := twoPlayerState([]engine.Card{card("fish_1", engine.Fish), card("fish_2", engine.Fish)}, nil)
	s.DiscardLeft = []engine.Card{card("crab_1", engine.Crab)}
	before := s.Snapshot()

	first := Decide(&g, s, 0)
	second := Decide(&g, s, 0)
	if first != second {
		t.Errorf("Decide not repeatable: %s vs %s", first, second)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("Decide modified the state")
	}
}
