package engine

import "sort"

// MermaidWinScore is the score reported for a player holding every Mermaid.
const MermaidWinScore = 1000

// MermaidsToWin is the number of Mermaids that wins outright.
const MermaidsToWin = 4

// ScoreBreakdown itemises a player's score.
type ScoreBreakdown struct {
	Base          int `json:"base"`
	PairCardBonus int `json:"pairCardBonus"`
	Pairs         int `json:"pairs"`
	Multipliers   int `json:"multipliers"`
	Mermaids      int `json:"mermaids"`
	ColorBonus    int `json:"colorBonus"`
	Total         int `json:"total"`
}

// CollectionScore returns the points for n cards of a collection kind.
// Kinds without a collection formula score 0.
func CollectionScore(k Kind, n int) int {
	if n <= 0 {
		return 0
	}
	switch k {
	case Shell:
		return (n - 1) * 2
	case Octopus:
		return (n - 1) * 3
	case Penguin:
		return n*2 - 1
	case Sailor:
		// Saturates: a third or fourth Sailor adds nothing.
		if n >= 2 {
			return 5
		}
	}
	return 0
}

// scoresAsCollection reports whether a kind is scored by count rather
// than face value.
func scoresAsCollection(k Kind) bool {
	return k == Shell || k == Octopus || k == Penguin || k == Sailor
}

// Multiplier describes a multiplier card and the kind it boosts.
type Multiplier struct {
	Card   Kind
	Target Kind
	Factor int
}

// Multipliers lists every multiplier in catalog order.
var Multipliers = [...]Multiplier{
	{Lighthouse, Sailboat, 1},
	{FishSchool, Fish, 1},
	{PenguinColony, Penguin, 2},
	{Captain, Sailor, 3},
}

// MultiplierFor returns the multiplier entry whose card is k.
func MultiplierFor(k Kind) (Multiplier, bool) {
	for _, m := range Multipliers {
		if m.Card == k {
			return m, true
		}
	}
	return Multiplier{}, false
}

// MultiplierTargeting returns the multiplier entry that boosts k.
func MultiplierTargeting(k Kind) (Multiplier, bool) {
	for _, m := range Multipliers {
		if m.Target == k {
			return m, true
		}
	}
	return Multiplier{}, false
}

// KindCounts counts cards by kind.
func KindCounts(cards []Card) [NumKinds]int {
	var counts [NumKinds]int
	for _, c := range cards {
		counts[c.Kind]++
	}
	return counts
}

// CountKind counts the cards of one kind.
func CountKind(cards []Card, k Kind) int {
	n := 0
	for _, c := range cards {
		if c.Kind == k {
			n++
		}
	}
	return n
}

// ColorCounts counts cards per colour. Multicolour cards are not counted.
func ColorCounts(cards []Card) [NumColors]int {
	var counts [NumColors]int
	for _, c := range cards {
		if int(c.Color) < NumColors {
			counts[c.Color]++
		}
	}
	return counts
}

// DominantColor returns the most common colour; ties go to the earlier
// colour in declaration order. ok is false when no card has a colour.
func DominantColor(cards []Card) (color Color, ok bool) {
	counts := ColorCounts(cards)
	best := 0
	for c, n := range counts {
		if n > best {
			best = n
			color = Color(c)
			ok = true
		}
	}
	return color, ok
}

// CalculateScore scores a hand plus played pairs. Collection and multiplier
// counts include played pair cards; face values and unplayed pair bonuses
// only look at the hand. The colour bonus is only granted in a last chance
// round.
func CalculateScore(hand []Card, playedPairs []PlayedPair, lastChance bool) ScoreBreakdown {
	all := make([]Card, 0, len(hand)+2*len(playedPairs))
	all = append(all, hand...)
	for _, p := range playedPairs {
		all = append(all, p.Cards[0], p.Cards[1])
	}
	counts := KindCounts(all)
	inHand := KindCounts(hand)

	var b ScoreBreakdown

	for _, k := range [...]Kind{Shell, Octopus, Penguin, Sailor} {
		b.Base += CollectionScore(k, counts[k])
	}
	for _, c := range hand {
		if !scoresAsCollection(c.Kind) {
			b.Base += c.Value()
		}
	}

	b.PairCardBonus = inHand[Fish]/2 + inHand[Crab]/2 + inHand[Sailboat]/2
	b.PairCardBonus += min(inHand[Shark], inHand[Swimmer])

	b.Pairs = len(playedPairs)

	for _, m := range Multipliers {
		if counts[m.Card] > 0 {
			b.Multipliers += counts[m.Target] * m.Factor
		}
	}

	colors := ColorCounts(all)
	if mermaids := counts[Mermaid]; mermaids > 0 {
		ranked := colors
		sort.Sort(sort.Reverse(sort.IntSlice(ranked[:])))
		for i := 0; i < mermaids && i < len(ranked); i++ {
			b.Mermaids += ranked[i]
		}
	}

	if lastChance {
		for _, n := range colors {
			b.ColorBonus = max(b.ColorBonus, n)
		}
	}

	b.Total = b.Base + b.PairCardBonus + b.Pairs + b.Multipliers + b.Mermaids + b.ColorBonus
	return b
}

// Outcome is the scored end of a match.
type Outcome struct {
	Scores     []int
	Breakdowns []ScoreBreakdown
	Winner     int
	MermaidWin bool
}

// ResolveOutcome scores every player and picks the winner: the highest
// score, earliest seat on ties. A player holding four Mermaids then wins
// regardless, with a fixed score. Scores and Winner are written back into
// the state.
func ResolveOutcome(s *GameState) Outcome {
	lastChance := s.DeclareMode == DeclareLastChance
	out := Outcome{
		Scores:     make([]int, len(s.Players)),
		Breakdowns: make([]ScoreBreakdown, len(s.Players)),
		Winner:     -1,
	}

	best := -1
	for i := range s.Players {
		p := &s.Players[i]
		b := CalculateScore(p.Hand, p.PlayedPairs, lastChance)
		out.Breakdowns[i] = b
		out.Scores[i] = b.Total
		if b.Total > best {
			best = b.Total
			out.Winner = i
		}
	}

	for i := range s.Players {
		if CountKind(s.Players[i].AllCards(), Mermaid) >= MermaidsToWin {
			out.Winner = i
			out.Scores[i] = MermaidWinScore
			out.MermaidWin = true
			break
		}
	}

	for i := range s.Players {
		s.Players[i].Score = out.Scores[i]
	}
	s.Winner = out.Winner
	return out
}
