package engine

import "fmt"

// ActionKind enumerates the actions a player can take.
type ActionKind uint8

const (
	ActionDraw ActionKind = iota
	ActionPlayPair
	ActionDeclare
	ActionEndTurn
)

func (k ActionKind) String() string {
	switch k {
	case ActionDraw:
		return "draw"
	case ActionPlayPair:
		return "play_pair"
	case ActionDeclare:
		return "declare"
	case ActionEndTurn:
		return "end_turn"
	}
	return "unknown"
}

// Source is where a draw takes cards from.
type Source uint8

const (
	SourceDeck Source = iota
	SourceDiscardLeft
	SourceDiscardRight
)

func (s Source) String() string {
	switch s {
	case SourceDeck:
		return "deck"
	case SourceDiscardLeft:
		return "discard_left"
	case SourceDiscardRight:
		return "discard_right"
	}
	return "unknown"
}

// Action is a single player decision.
type Action struct {
	Kind   ActionKind
	Source Source      // ActionDraw
	Cards  [2]string   // ActionPlayPair
	Mode   DeclareMode // ActionDeclare
}

func Draw(src Source) Action          { return Action{Kind: ActionDraw, Source: src} }
func PlayPair(a, b string) Action     { return Action{Kind: ActionPlayPair, Cards: [2]string{a, b}} }
func Declare(mode DeclareMode) Action { return Action{Kind: ActionDeclare, Mode: mode} }
func EndTurn() Action                 { return Action{Kind: ActionEndTurn} }

func (a Action) String() string {
	switch a.Kind {
	case ActionDraw:
		return "draw(" + a.Source.String() + ")"
	case ActionPlayPair:
		return fmt.Sprintf("play_pair(%s,%s)", a.Cards[0], a.Cards[1])
	case ActionDeclare:
		return "declare(" + a.Mode.String() + ")"
	}
	return a.Kind.String()
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Apply executes one action for the current player. Turn flow is
// draw -> pair -> declare -> end of turn; playing a pair keeps the pair
// phase open, and ending the pair phase skips straight to the end of the
// turn once a declaration is active. An action that is not legal in the
// current phase returns a *SimulationInvariantError and leaves the state
// unchanged.
func (s *GameState) Apply(a Action, rng RNG) error {
	if s.Finished {
		return s.invariant(a, "match already finished")
	}

	switch s.Phase {
	case PhaseDraw:
		if a.Kind != ActionDraw {
			return s.invariant(a, "expected draw")
		}
		if err := s.draw(a); err != nil {
			return err
		}

	case PhasePair:
		switch a.Kind {
		case ActionPlayPair:
			if err := s.playPair(a, rng); err != nil {
				return err
			}
		case ActionEndTurn:
			if s.DeclareMode == DeclareNone {
				s.Phase = PhaseDeclare
			} else {
				s.endTurn(rng)
			}
		default:
			return s.invariant(a, "expected play_pair or end_turn")
		}

	case PhaseDeclare:
		switch a.Kind {
		case ActionDeclare:
			if err := s.declare(a, rng); err != nil {
				return err
			}
		case ActionEndTurn:
			s.endTurn(rng)
		default:
			return s.invariant(a, "expected declare or end_turn")
		}
	}

	s.Seq++
	return nil
}

func (s *GameState) draw(a Action) error {
	player := &s.Players[s.Current]

	switch a.Source {
	case SourceDeck:
		switch len(s.Deck) {
		case 0:
			return s.invariant(a, "deck is empty")
		case 1:
			player.Hand = append(player.Hand, pop(&s.Deck))
		default:
			// Draw two, keep the higher value (first on ties), discard the
			// other to the left pile.
			first := pop(&s.Deck)
			second := pop(&s.Deck)
			keep, discard := first, second
			if second.Value() > first.Value() {
				keep, discard = second, first
			}
			player.Hand = append(player.Hand, keep)
			s.DiscardLeft = append(s.DiscardLeft, discard)
		}
	case SourceDiscardLeft:
		if len(s.DiscardLeft) == 0 {
			return s.invariant(a, "left discard pile is empty")
		}
		player.Hand = append(player.Hand, pop(&s.DiscardLeft))
	case SourceDiscardRight:
		if len(s.DiscardRight) == 0 {
			return s.invariant(a, "right discard pile is empty")
		}
		player.Hand = append(player.Hand, pop(&s.DiscardRight))
	default:
		return s.invariant(a, "unknown draw source")
	}

	s.Phase = PhasePair
	return nil
}

func (s *GameState) playPair(a Action, rng RNG) error {
	player := &s.Players[s.Current]

	if a.Cards[0] == a.Cards[1] {
		return s.invariant(a, "pair uses the same card twice")
	}
	i := indexOfCard(player.Hand, a.Cards[0])
	j := indexOfCard(player.Hand, a.Cards[1])
	if i < 0 || j < 0 {
		return s.invariant(a, "pair card not in hand")
	}
	first, second := player.Hand[i], player.Hand[j]
	if !IsValidPair(first, second) {
		return s.invariant(a, "cards do not form a valid pair")
	}

	// Remove the higher index first so the lower one stays put.
	hi, lo := max(i, j), min(i, j)
	player.Hand = append(player.Hand[:hi], player.Hand[hi+1:]...)
	player.Hand = append(player.Hand[:lo], player.Hand[lo+1:]...)
	player.PlayedPairs = append(player.PlayedPairs, PlayedPair{
		Cards:     [2]Card{first, second},
		Timestamp: s.Seq,
	})

	s.applyPairEffect(PairEffectOf(first, second), rng)
	return nil
}

func (s *GameState) declare(a Action, rng RNG) error {
	if s.DeclareMode != DeclareNone {
		return s.invariant(a, "a declaration is already active")
	}

	switch a.Mode {
	case DeclareStop:
		s.DeclareMode = DeclareStop
		s.Declarer = s.Current
		s.Finished = true
		s.EndReason = EndStop
	case DeclareLastChance:
		s.DeclareMode = DeclareLastChance
		s.Declarer = s.Current
		s.RemainingTurns = len(s.Players) - 1
		// The declarer's turn ends now; a pending extra turn is lost and the
		// countdown starts with the next player.
		s.ExtraTurn = false
		s.advance()
		s.refillDeck(rng)
	default:
		return s.invariant(a, "unknown declare mode")
	}
	return nil
}

// endTurn finishes the current player's turn.
func (s *GameState) endTurn(rng RNG) {
	if s.ExtraTurn {
		s.ExtraTurn = false
		s.Phase = PhaseDraw
		s.refillDeck(rng)
		return
	}

	s.advance()
	if s.DeclareMode == DeclareLastChance {
		s.RemainingTurns--
		if s.RemainingTurns <= 0 {
			s.Finished = true
			s.EndReason = EndLastChance
			return
		}
	}
	s.refillDeck(rng)
}

func (s *GameState) advance() {
	s.Current = (s.Current + 1) % len(s.Players)
	s.Phase = PhaseDraw
	s.TurnCount++
}

// refillDeck reshuffles the discards into an empty deck and ends the match
// when nothing is left to draw.
func (s *GameState) refillDeck(rng RNG) {
	if len(s.Deck) > 0 {
		return
	}
	s.reshuffle(rng)
	if len(s.Deck) == 0 {
		s.Finished = true
		s.EndReason = EndDeckExhausted
	}
}

func indexOfCard(cards []Card, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}
