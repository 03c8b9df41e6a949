package engine

import (
	"fmt"
	"strings"

	"github.com/signalnine/seasalt/gosim/genome"
)

const (
	MinPlayers = 2
	MaxPlayers = 4

	// DefaultHandSize is the number of cards dealt to each player.
	DefaultHandSize = 2
)

// KindInfo is the static definition of a card archetype.
type KindInfo struct {
	Name     string
	Category Category
	Value    int
	Count    int
	Effect   PairEffect
}

var catalog = [NumKinds]KindInfo{
	Fish:          {"Fish", CategoryPairEffect, 1, 10, EffectDrawBlind},
	Crab:          {"Crab", CategoryPairEffect, 1, 10, EffectDrawDiscard},
	Shell:         {"Shell", CategoryCollection, 0, 8, EffectNone},
	Starfish:      {"Starfish", CategoryCollection, 2, 8, EffectNone},
	Sailboat:      {"Sailboat", CategoryPairEffect, 1, 6, EffectExtraTurn},
	Shark:         {"Shark", CategoryPairEffect, 2, 6, EffectStealCard},
	Swimmer:       {"Swimmer", CategoryPairEffect, 1, 6, EffectStealCard},
	Sailor:        {"Sailor", CategoryCollection, 0, 4, EffectNone},
	Octopus:       {"Octopus", CategoryCollection, 0, 4, EffectNone},
	Penguin:       {"Penguin", CategoryCollection, 0, 4, EffectNone},
	Lighthouse:    {"Lighthouse", CategoryMultiplier, 1, 2, EffectNone},
	FishSchool:    {"FishSchool", CategoryMultiplier, 1, 2, EffectNone},
	PenguinColony: {"PenguinColony", CategoryMultiplier, 2, 2, EffectNone},
	Captain:       {"Captain", CategoryMultiplier, 2, 2, EffectNone},
	Mermaid:       {"Mermaid", CategorySpecial, 0, 4, EffectNone},
}

// DeckSize is the number of cards in a full deck.
const DeckSize = 78

// Info returns the catalog entry for a kind.
func (k Kind) Info() KindInfo {
	return catalog[k]
}

func (k Kind) String() string {
	if k >= NumKinds {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return catalog[k].Name
}

// Catalog returns every archetype in catalog order.
func Catalog() []KindInfo {
	out := make([]KindInfo, NumKinds)
	copy(out, catalog[:])
	return out
}

// BuildDeck creates the full deck. Each card gets a random colour, then the
// deck is Fisher-Yates shuffled with the same generator.
func BuildDeck(rng RNG) []Card {
	deck := make([]Card, 0, DeckSize)
	for k := Kind(0); k < NumKinds; k++ {
		info := catalog[k]
		prefix := strings.ToLower(info.Name)
		for i := 1; i <= info.Count; i++ {
			color := Color(rng.Intn(NumColors))
			if k == Mermaid {
				color = Multicolor
			}
			deck = append(deck, Card{
				ID:    fmt.Sprintf("%s_%d", prefix, i),
				Kind:  k,
				Color: color,
			})
		}
	}
	shuffle(deck, rng)
	return deck
}

func shuffle(cards []Card, rng RNG) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// NewGame deals a fresh match: handSize cards per player in seat order, one
// card onto each discard pile, and a random starting player. Missing genomes
// are filled with the default genome. Every genome is clamped into schema,
// or into the default schema when schema is nil. The state comes from
// StatePool.
func NewGame(genomes []genome.Genome, playerCount, handSize int, schema *genome.Schema, rng RNG) (*GameState, error) {
	if playerCount < MinPlayers || playerCount > MaxPlayers {
		return nil, fmt.Errorf("player count %d outside [%d, %d]", playerCount, MinPlayers, MaxPlayers)
	}
	if handSize < 0 || handSize*playerCount+2 > DeckSize {
		return nil, fmt.Errorf("starting hand size %d does not fit a %d card deck", handSize, DeckSize)
	}

	if schema == nil {
		def := genome.DefaultSchema()
		schema = &def
	}

	deck := BuildDeck(rng)
	state := GetState()

	next := 0
	for i := 0; i < playerCount; i++ {
		g := genome.DefaultGenome()
		if i < len(genomes) {
			g = genomes[i]
		}
		g = schema.Normalize(g)
		p := state.addPlayer(fmt.Sprintf("player_%d", i), g)
		p.Hand = append(p.Hand, deck[next:next+handSize]...)
		next += handSize
	}

	state.DiscardLeft = append(state.DiscardLeft, deck[next])
	state.DiscardRight = append(state.DiscardRight, deck[next+1])
	state.Deck = append(state.Deck, deck[next+2:]...)

	state.Current = rng.Intn(playerCount)
	return state, nil
}

// CheckConservation verifies that every catalog card is accounted for
// exactly once across piles, hands and played pairs.
func (s *GameState) CheckConservation() error {
	var counts [NumKinds]int
	tally := func(cards []Card) {
		for _, c := range cards {
			counts[c.Kind]++
		}
	}
	tally(s.Deck)
	tally(s.DiscardLeft)
	tally(s.DiscardRight)
	for i := range s.Players {
		p := &s.Players[i]
		tally(p.Hand)
		for _, pair := range p.PlayedPairs {
			tally(pair.Cards[:])
		}
	}
	for k, n := range counts {
		if n != catalog[k].Count {
			return fmt.Errorf("%s count is %d, want %d (%d cards in play)",
				Kind(k), n, catalog[k].Count, s.CardsInPlay())
		}
	}
	return nil
}
