package engine

// CardView is the plain serializable form of a card.
type CardView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Value int    `json:"value"`
}

// PairView is the serializable form of a played pair.
type PairView struct {
	Cards     [2]CardView `json:"cards"`
	Timestamp int         `json:"timestamp"`
}

// PlayerView is the serializable form of a player.
type PlayerView struct {
	ID          string     `json:"id"`
	Hand        []CardView `json:"hand"`
	PlayedPairs []PairView `json:"playedPairs"`
	Score       int        `json:"score"`
	GenomeID    string     `json:"genomeId"`
}

// Snapshot is a deep, plain copy of a GameState. It shares no memory with
// the state it was taken from.
type Snapshot struct {
	Deck           []CardView   `json:"deck"`
	DiscardLeft    []CardView   `json:"discardLeft"`
	DiscardRight   []CardView   `json:"discardRight"`
	Players        []PlayerView `json:"players"`
	CurrentPlayer  string       `json:"currentPlayerId"`
	Phase          string       `json:"turnPhase"`
	TurnCount      int          `json:"turnCount"`
	DeclareMode    string       `json:"declareMode"`
	Declarer       string       `json:"declaringPlayerId,omitempty"`
	RemainingTurns int          `json:"remainingTurns"`
	ExtraTurn      bool         `json:"extraTurn"`
	Finished       bool         `json:"finished"`
	EndReason      string       `json:"endReason,omitempty"`
	Winner         string       `json:"winner,omitempty"`
}

// View converts a card.
func (c Card) View() CardView {
	return CardView{ID: c.ID, Name: c.Name(), Color: c.Color.String(), Value: c.Value()}
}

func viewCards(cards []Card) []CardView {
	out := make([]CardView, len(cards))
	for i, c := range cards {
		out[i] = c.View()
	}
	return out
}

// Snapshot copies the state into its serializable form.
func (s *GameState) Snapshot() Snapshot {
	snap := Snapshot{
		Deck:           viewCards(s.Deck),
		DiscardLeft:    viewCards(s.DiscardLeft),
		DiscardRight:   viewCards(s.DiscardRight),
		Players:        make([]PlayerView, len(s.Players)),
		Phase:          s.Phase.String(),
		TurnCount:      s.TurnCount,
		DeclareMode:    s.DeclareMode.String(),
		RemainingTurns: s.RemainingTurns,
		ExtraTurn:      s.ExtraTurn,
		Finished:       s.Finished,
	}
	if s.EndReason != EndNone {
		snap.EndReason = s.EndReason.String()
	}

	for i := range s.Players {
		p := &s.Players[i]
		pv := PlayerView{
			ID:          p.ID,
			Hand:        viewCards(p.Hand),
			PlayedPairs: make([]PairView, len(p.PlayedPairs)),
			Score:       p.Score,
			GenomeID:    p.Genome.ID,
		}
		for j, pair := range p.PlayedPairs {
			pv.PlayedPairs[j] = PairView{
				Cards:     [2]CardView{pair.Cards[0].View(), pair.Cards[1].View()},
				Timestamp: pair.Timestamp,
			}
		}
		snap.Players[i] = pv
	}

	if s.Current >= 0 && s.Current < len(s.Players) {
		snap.CurrentPlayer = s.Players[s.Current].ID
	}
	if s.Declarer >= 0 && s.Declarer < len(s.Players) {
		snap.Declarer = s.Players[s.Declarer].ID
	}
	if s.Winner >= 0 && s.Winner < len(s.Players) {
		snap.Winner = s.Players[s.Winner].ID
	}
	return snap
}
