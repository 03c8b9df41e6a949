package engine

import (
	"sync"

	"github.com/signalnine/seasalt/gosim/genome"
)

// Kind identifies a card archetype.
type Kind uint8

const (
	Fish Kind = iota
	Crab
	Shell
	Starfish
	Sailboat
	Shark
	Swimmer
	Sailor
	Octopus
	Penguin
	Lighthouse
	FishSchool
	PenguinColony
	Captain
	Mermaid
	NumKinds
)

// Category groups kinds by how they score.
type Category uint8

const (
	CategoryPairEffect Category = iota
	CategoryCollection
	CategoryMultiplier
	CategorySpecial
)

func (c Category) String() string {
	switch c {
	case CategoryPairEffect:
		return "pair_effect"
	case CategoryCollection:
		return "collection"
	case CategoryMultiplier:
		return "multiplier"
	case CategorySpecial:
		return "special"
	}
	return "unknown"
}

// PairEffect is triggered when a pair of the kind is played.
type PairEffect uint8

const (
	EffectNone PairEffect = iota
	EffectDrawBlind
	EffectDrawDiscard
	EffectExtraTurn
	EffectStealCard
)

func (e PairEffect) String() string {
	switch e {
	case EffectDrawBlind:
		return "draw_blind"
	case EffectDrawDiscard:
		return "draw_discard"
	case EffectExtraTurn:
		return "extra_turn"
	case EffectStealCard:
		return "steal_card"
	}
	return "none"
}

// Color is painted on every card. Mermaids are multicolour and never
// count towards a colour.
type Color uint8

const (
	Blue Color = iota
	Red
	Green
	Yellow
	Gray
	Purple
	Orange
	Multicolor
)

// NumColors is the number of countable colours.
const NumColors = int(Multicolor)

var colorNames = [...]string{"blue", "red", "green", "yellow", "gray", "purple", "orange", "multicolor"}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return "unknown"
}

// Card is an immutable dealt card. Everything but the colour and id is
// looked up from the catalog by Kind.
type Card struct {
	ID    string
	Kind  Kind
	Color Color
}

func (c Card) Name() string           { return catalog[c.Kind].Name }
func (c Card) Value() int             { return catalog[c.Kind].Value }
func (c Card) Category() Category     { return catalog[c.Kind].Category }
func (c Card) PairEffect() PairEffect { return catalog[c.Kind].Effect }

// PlayedPair is a pair laid down in front of a player. Timestamp is the
// match's logical action counter at the time it was played.
type PlayedPair struct {
	Cards     [2]Card
	Timestamp int
}

// PlayerState is mutable and owned by exactly one GameState.
type PlayerState struct {
	ID          string
	Hand        []Card
	PlayedPairs []PlayedPair
	Score       int
	Genome      genome.Genome
}

// CardCount returns hand size plus the cards in played pairs.
func (p *PlayerState) CardCount() int {
	return len(p.Hand) + 2*len(p.PlayedPairs)
}

// AllCards returns hand cards followed by played pair cards.
func (p *PlayerState) AllCards() []Card {
	all := make([]Card, 0, p.CardCount())
	all = append(all, p.Hand...)
	for _, pair := range p.PlayedPairs {
		all = append(all, pair.Cards[0], pair.Cards[1])
	}
	return all
}

// Phase is the step of the current player's turn.
type Phase uint8

const (
	PhaseDraw Phase = iota
	PhasePair
	PhaseDeclare
)

func (p Phase) String() string {
	switch p {
	case PhaseDraw:
		return "draw"
	case PhasePair:
		return "pair"
	case PhaseDeclare:
		return "declare"
	}
	return "unknown"
}

// DeclareMode records which declaration, if any, ends the round.
type DeclareMode uint8

const (
	DeclareNone DeclareMode = iota
	DeclareStop
	DeclareLastChance
)

func (m DeclareMode) String() string {
	switch m {
	case DeclareStop:
		return "stop"
	case DeclareLastChance:
		return "last_chance"
	}
	return "none"
}

func (m DeclareMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// EndReason records why a match finished.
type EndReason uint8

const (
	EndNone EndReason = iota
	EndStop
	EndLastChance
	EndDeckExhausted
	EndMaxTurns
)

func (r EndReason) String() string {
	switch r {
	case EndStop:
		return "stop"
	case EndLastChance:
		return "last_chance"
	case EndDeckExhausted:
		return "deck_exhausted"
	case EndMaxTurns:
		return "max_turns"
	}
	return "none"
}

func (r EndReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// GameState is mutable and pooled. Piles are stacks with the top card last.
type GameState struct {
	Deck         []Card
	DiscardLeft  []Card
	DiscardRight []Card
	Players      []PlayerState

	Current        int
	Phase          Phase
	TurnCount      int
	DeclareMode    DeclareMode
	Declarer       int // -1 = nobody
	RemainingTurns int
	ExtraTurn      bool
	Finished       bool
	EndReason      EndReason
	Winner         int // -1 = undecided

	// Seq counts applied actions.
	Seq int

	index map[string]int
}

// StatePool manages GameState memory
var StatePool = sync.Pool{
	New: func() interface{} {
		return &GameState{
			Deck:         make([]Card, 0, DeckSize),
			DiscardLeft:  make([]Card, 0, DeckSize),
			DiscardRight: make([]Card, 0, DeckSize),
			Players:      make([]PlayerState, 0, MaxPlayers),
			index:        make(map[string]int, MaxPlayers),
		}
	},
}

// GetState acquires a GameState from pool
func GetState() *GameState {
	state := StatePool.Get().(*GameState)
	state.Reset()
	return state
}

// PutState returns a GameState to pool. The state must not be used after.
func PutState(state *GameState) {
	StatePool.Put(state)
}

// Reset clears state for reuse, keeping slice capacity.
func (s *GameState) Reset() {
	s.Deck = s.Deck[:0]
	s.DiscardLeft = s.DiscardLeft[:0]
	s.DiscardRight = s.DiscardRight[:0]
	for i := range s.Players {
		p := &s.Players[i]
		p.ID = ""
		p.Hand = p.Hand[:0]
		p.PlayedPairs = p.PlayedPairs[:0]
		p.Score = 0
		p.Genome = genome.Genome{}
	}
	s.Players = s.Players[:0]
	for id := range s.index {
		delete(s.index, id)
	}
	s.Current = 0
	s.Phase = PhaseDraw
	s.TurnCount = 0
	s.DeclareMode = DeclareNone
	s.Declarer = -1
	s.RemainingTurns = 0
	s.ExtraTurn = false
	s.Finished = false
	s.EndReason = EndNone
	s.Winner = -1
	s.Seq = 0
}

// addPlayer appends a seat, reusing pooled hand storage when available.
func (s *GameState) addPlayer(id string, g genome.Genome) *PlayerState {
	n := len(s.Players)
	if n < cap(s.Players) {
		s.Players = s.Players[:n+1]
	} else {
		s.Players = append(s.Players, PlayerState{})
	}
	p := &s.Players[n]
	p.ID = id
	p.Genome = g
	if s.index == nil {
		s.index = make(map[string]int, MaxPlayers)
	}
	s.index[id] = n
	return p
}

// PlayerIndex looks a seat up by player id.
func (s *GameState) PlayerIndex(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// CurrentPlayer returns the player whose turn it is.
func (s *GameState) CurrentPlayer() *PlayerState {
	return &s.Players[s.Current]
}

// CardsInPlay counts every card in piles, hands and played pairs.
func (s *GameState) CardsInPlay() int {
	n := len(s.Deck) + len(s.DiscardLeft) + len(s.DiscardRight)
	for i := range s.Players {
		n += s.Players[i].CardCount()
	}
	return n
}

// Top returns the top card of a pile.
func Top(pile []Card) (Card, bool) {
	if len(pile) == 0 {
		return Card{}, false
	}
	return pile[len(pile)-1], true
}

func pop(pile *[]Card) Card {
	p := *pile
	c := p[len(p)-1]
	*pile = p[:len(p)-1]
	return c
}
