// Package policy maps a genome and a game state to the next action.
//
// Decide is pure: it only reads the state, so the same genome, state and
// player always produce the same action.
package policy

import (
	"github.com/signalnine/seasalt/gosim/engine"
	"github.com/signalnine/seasalt/gosim/genome"
)

const (
	// deckCollectionWeight scales collection priorities into the deck value.
	deckCollectionWeight = 0.3
	// fourthMermaidBonus makes a winning fourth Mermaid irresistible.
	fourthMermaidBonus = 100
	// handSizePenaltyScale converts opponent hand size into threshold points.
	handSizePenaltyScale = 0.5
)

// Decide returns the action for player in the current phase.
func Decide(g *genome.Genome, s *engine.GameState, player int) engine.Action {
	if player < 0 || player >= len(s.Players) {
		return engine.EndTurn()
	}

	switch s.Phase {
	case engine.PhaseDraw:
		return engine.Draw(BestDrawSource(g, s, player))

	case engine.PhasePair:
		hand := s.Players[player].Hand
		if pair, ok := BestPair(g, hand, s.TurnCount); ok {
			return engine.PlayPair(hand[pair.I].ID, hand[pair.J].ID)
		}
		return engine.EndTurn()

	case engine.PhaseDeclare:
		if d := EvaluateDeclaration(g, s, player); d.Declare {
			return engine.Declare(d.Mode)
		}
		return engine.EndTurn()
	}
	return engine.EndTurn()
}

// DrawOption is a scored draw source.
type DrawOption struct {
	Source engine.Source
	Value  float64
}

// DrawOptions scores every non-empty draw source, in the fixed order deck,
// left, right.
func DrawOptions(g *genome.Genome, s *engine.GameState, player int) []DrawOption {
	hand := s.Players[player].Hand
	options := make([]DrawOption, 0, 3)

	if len(s.Deck) > 0 {
		options = append(options, DrawOption{engine.SourceDeck, deckValue(g, hand)})
	}
	if top, ok := engine.Top(s.DiscardLeft); ok {
		options = append(options, DrawOption{engine.SourceDiscardLeft, DiscardValue(g, top, hand)})
	}
	if top, ok := engine.Top(s.DiscardRight); ok {
		options = append(options, DrawOption{engine.SourceDiscardRight, DiscardValue(g, top, hand)})
	}
	return options
}

// BestDrawSource picks the highest scored source; earlier sources win ties.
func BestDrawSource(g *genome.Genome, s *engine.GameState, player int) engine.Source {
	options := DrawOptions(g, s, player)
	if len(options) == 0 {
		return engine.SourceDeck
	}
	best := options[0]
	for _, o := range options[1:] {
		if o.Value > best.Value {
			best = o
		}
	}
	return best.Source
}

// collectionPriority maps collection kinds to their priority gene.
var collectionPriority = map[engine.Kind]genome.Gene{
	engine.Shell:   genome.ShellPriority,
	engine.Octopus: genome.OctopusPriority,
	engine.Penguin: genome.PenguinPriority,
	engine.Sailor:  genome.SailorPriority,
}

var collectionKinds = [...]engine.Kind{engine.Shell, engine.Octopus, engine.Penguin, engine.Sailor}

func deckValue(g *genome.Genome, hand []engine.Card) float64 {
	value := g.Get(genome.DeckBaseValue)
	counts := engine.KindCounts(hand)
	for _, k := range collectionKinds {
		if counts[k] >= 1 {
			value += deckCollectionWeight * g.Get(collectionPriority[k])
		}
	}
	return value
}

// DiscardValue scores taking card from a discard pile into hand.
func DiscardValue(g *genome.Genome, card engine.Card, hand []engine.Card) float64 {
	value := float64(card.Value())
	counts := engine.KindCounts(hand)

	for _, h := range hand {
		if engine.IsValidPair(card, h) {
			value += g.Get(genome.DiscardPairBonus)
			break
		}
	}

	if _, ok := collectionPriority[card.Kind]; ok {
		n := counts[card.Kind]
		gain := engine.CollectionScore(card.Kind, n+1) - engine.CollectionScore(card.Kind, n)
		value += float64(gain) * g.Get(genome.DiscardCollectionBonus)
	}

	if m, ok := engine.MultiplierFor(card.Kind); ok && counts[m.Target] > 0 {
		value += float64(counts[m.Target]*m.Factor) * g.Get(genome.DiscardMultiplierBonus)
	}
	if m, ok := engine.MultiplierTargeting(card.Kind); ok && counts[m.Card] > 0 {
		value += float64(m.Factor) * g.Get(genome.DiscardMultiplierBonus)
	}

	if dominant, ok := engine.DominantColor(hand); ok && card.Color == dominant {
		value += g.Get(genome.DiscardColorBonus)
	}

	switch card.Kind {
	case engine.Mermaid:
		if counts[engine.Mermaid] == engine.MermaidsToWin-1 {
			value += fourthMermaidBonus
		} else {
			value += g.Get(genome.MermaidPriority) * 2
		}
	case engine.Sailor:
		// The second Sailor completes the set.
		if counts[engine.Sailor] == 1 {
			value += g.Get(genome.SailorPriority) * 3
		}
	}

	return value
}

// PairChoice is a scored pair of hand indices.
type PairChoice struct {
	I, J   int
	Effect engine.PairEffect
	Value  float64
}

// pairGene maps effects to the gene valuing them.
var pairGene = map[engine.PairEffect]genome.Gene{
	engine.EffectDrawBlind:   genome.FishPairBonus,
	engine.EffectDrawDiscard: genome.CrabPairBonus,
	engine.EffectExtraTurn:   genome.SailboatPairBonus,
	engine.EffectStealCard:   genome.StealPairBonus,
}

// BestPair returns the most valuable pair in hand if its value reaches
// minPairValue. Earlier pairs win ties.
func BestPair(g *genome.Genome, hand []engine.Card, turnCount int) (PairChoice, bool) {
	multiplier := g.Get(genome.LateGamePairBonus)
	if float64(turnCount) <= g.Get(genome.EarlyGamePairThreshold) {
		multiplier = g.Get(genome.EarlyGamePairBonus)
	}

	var best PairChoice
	found := false
	for _, ij := range engine.FindPairs(hand) {
		effect := engine.PairEffectOf(hand[ij[0]], hand[ij[1]])
		value := g.Get(pairGene[effect]) * multiplier
		if !found || value > best.Value {
			best = PairChoice{I: ij[0], J: ij[1], Effect: effect, Value: value}
			found = true
		}
	}

	if !found || best.Value < g.Get(genome.MinPairValue) {
		return PairChoice{}, false
	}
	return best, true
}

// Declaration is the outcome of the declare valuation.
type Declaration struct {
	Declare   bool
	Mode      engine.DeclareMode
	Score     int
	ScoreLead int
	Threshold float64
}

// EvaluateDeclaration decides whether player should declare and how.
func EvaluateDeclaration(g *genome.Genome, s *engine.GameState, player int) Declaration {
	if s.DeclareMode != engine.DeclareNone {
		return Declaration{}
	}

	me := &s.Players[player]
	score := engine.CalculateScore(me.Hand, me.PlayedPairs, false).Total
	d := Declaration{Score: score, Threshold: g.Get(genome.DeclareThreshold)}
	if float64(score) < d.Threshold {
		return d
	}

	maxOpponentScore, maxOpponentHand := 0, 0
	for i := range s.Players {
		if i == player {
			continue
		}
		opp := &s.Players[i]
		maxOpponentScore = max(maxOpponentScore, engine.CalculateScore(opp.Hand, opp.PlayedPairs, false).Total)
		maxOpponentHand = max(maxOpponentHand, len(opp.Hand))
	}

	d.ScoreLead = score - maxOpponentScore
	penalty := float64(maxOpponentHand) * g.Get(genome.OpponentHandSizeWeight) * handSizePenaltyScale
	d.Threshold += penalty * (1 - g.Get(genome.RiskTolerance))
	if float64(score) < d.Threshold {
		return d
	}

	d.Declare = true
	switch {
	case float64(s.TurnCount) > g.Get(genome.StopVsLastChanceTurnThreshold):
		d.Mode = engine.DeclareStop
	case float64(d.ScoreLead) >= g.Get(genome.ScoreDifferenceForStop):
		d.Mode = engine.DeclareStop
	default:
		d.Mode = engine.DeclareLastChance
	}
	return d
}
