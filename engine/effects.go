package engine

// RNG interface for deterministic random
type RNG interface {
	Intn(n int) int
}

// IsValidPair reports whether two cards can be played together: two of the
// same pair kind among Fish, Crab and Sailboat, or a Shark with a Swimmer.
func IsValidPair(a, b Card) bool {
	if a.Kind == b.Kind {
		return a.Kind == Fish || a.Kind == Crab || a.Kind == Sailboat
	}
	return (a.Kind == Shark && b.Kind == Swimmer) || (a.Kind == Swimmer && b.Kind == Shark)
}

// PairEffectOf returns the effect triggered by playing a and b, or
// EffectNone for an invalid pair.
func PairEffectOf(a, b Card) PairEffect {
	if !IsValidPair(a, b) {
		return EffectNone
	}
	if a.Kind != b.Kind {
		return EffectStealCard
	}
	return a.PairEffect()
}

// FindPairs lists every valid (i, j) index pair in hand with i < j.
func FindPairs(hand []Card) [][2]int {
	var pairs [][2]int
	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			if IsValidPair(hand[i], hand[j]) {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// applyPairEffect resolves the effect of a pair just played by the current
// player.
func (s *GameState) applyPairEffect(effect PairEffect, rng RNG) {
	player := &s.Players[s.Current]

	switch effect {
	case EffectDrawBlind:
		if len(s.Deck) > 0 {
			player.Hand = append(player.Hand, pop(&s.Deck))
		}

	case EffectDrawDiscard:
		// Take the higher value top card; ties go left.
		left, hasLeft := Top(s.DiscardLeft)
		right, hasRight := Top(s.DiscardRight)
		switch {
		case hasLeft && hasRight:
			if left.Value() >= right.Value() {
				player.Hand = append(player.Hand, pop(&s.DiscardLeft))
			} else {
				player.Hand = append(player.Hand, pop(&s.DiscardRight))
			}
		case hasLeft:
			player.Hand = append(player.Hand, pop(&s.DiscardLeft))
		case hasRight:
			player.Hand = append(player.Hand, pop(&s.DiscardRight))
		}

	case EffectExtraTurn:
		s.ExtraTurn = true

	case EffectStealCard:
		target := s.stealTarget()
		if target < 0 {
			return
		}
		victim := &s.Players[target]
		idx := rng.Intn(len(victim.Hand))
		stolen := victim.Hand[idx]
		victim.Hand = append(victim.Hand[:idx], victim.Hand[idx+1:]...)
		player = &s.Players[s.Current]
		player.Hand = append(player.Hand, stolen)
	}
}

// stealTarget returns the opponent holding the most cards, earliest seat on
// ties, or -1 when every opponent's hand is empty.
func (s *GameState) stealTarget() int {
	target, most := -1, 0
	for i := range s.Players {
		if i == s.Current {
			continue
		}
		if n := len(s.Players[i].Hand); n > most {
			target, most = i, n
		}
	}
	return target
}

// reshuffle rebuilds an empty deck from the discard piles. Each pile keeps
// its top card.
func (s *GameState) reshuffle(rng RNG) {
	var rest []Card
	if n := len(s.DiscardLeft); n > 1 {
		rest = append(rest, s.DiscardLeft[:n-1]...)
		s.DiscardLeft = append(s.DiscardLeft[:0], s.DiscardLeft[n-1])
	}
	if n := len(s.DiscardRight); n > 1 {
		rest = append(rest, s.DiscardRight[:n-1]...)
		s.DiscardRight = append(s.DiscardRight[:0], s.DiscardRight[n-1])
	}
	shuffle(rest, rng)
	s.Deck = append(s.Deck[:0], rest...)
}
