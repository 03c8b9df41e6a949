// Package fitness scores genomes by playing them against the baseline
// policy and against peers from the same population.
package fitness

import (
	"github.com/signalnine/seasalt/gosim/engine"
	"github.com/signalnine/seasalt/gosim/simulation"
)

// EvaluationResult tallies the games one genome played from seat 0.
type EvaluationResult struct {
	GenomeID string `json:"genomeId"`

	TotalGames         int `json:"totalGames"`
	Wins               int `json:"wins"`
	Losses             int `json:"losses"`
	Draws              int `json:"draws"`
	TotalScore         int `json:"totalScore"`
	OpponentTotalScore int `json:"opponentTotalScore"`
	TotalTurns         int `json:"totalTurns"`

	// LastChanceWins counts wins where the genome declared last chance.
	LastChanceWins int `json:"lastChanceWins"`
	// MermaidWins counts wins taken with four Mermaids.
	MermaidWins int `json:"mermaidWins"`

	BaselineGames  int `json:"baselineGames"`
	BaselineWins   int `json:"baselineWins"`
	BaselineLosses int `json:"baselineLosses"`
	BaselineDraws  int `json:"baselineDraws"`
}

// record adds one game to the tally. The evaluated genome is seat 0.
func (r *EvaluationResult) record(game simulation.GameResult, againstBaseline bool) {
	r.TotalGames++
	r.TotalTurns += game.TurnCount
	if len(game.Scores) > 0 {
		r.TotalScore += game.Scores[0]
	}
	if len(game.Scores) > 1 {
		r.OpponentTotalScore += game.Scores[1]
	}
	if againstBaseline {
		r.BaselineGames++
	}

	switch {
	case game.Winner == 0:
		r.Wins++
		if againstBaseline {
			r.BaselineWins++
		}
		if game.DeclareMode == engine.DeclareLastChance && game.Declarer == 0 {
			r.LastChanceWins++
		}
		if len(game.Scores) > 0 && game.Scores[0] >= engine.MermaidWinScore {
			r.MermaidWins++
		}
	case game.Winner > 0:
		r.Losses++
		if againstBaseline {
			r.BaselineLosses++
		}
	default:
		r.Draws++
		if againstBaseline {
			r.BaselineDraws++
		}
	}
}

// WinRate returns wins over all games.
func (r *EvaluationResult) WinRate() float64 {
	if r.TotalGames == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.TotalGames)
}

// BaselineWinRate returns the win rate against the baseline opponent.
func (r *EvaluationResult) BaselineWinRate() float64 {
	if r.BaselineGames == 0 {
		return 0
	}
	return float64(r.BaselineWins) / float64(r.BaselineGames)
}

// PeerGames returns the number of games played against peers.
func (r *EvaluationResult) PeerGames() int {
	return r.TotalGames - r.BaselineGames
}

// PeerWinRate returns the win rate against population peers.
func (r *EvaluationResult) PeerWinRate() float64 {
	games := r.PeerGames()
	if games == 0 {
		return 0
	}
	return float64(r.Wins-r.BaselineWins) / float64(games)
}

// AvgTurns returns the mean match length.
func (r *EvaluationResult) AvgTurns() float64 {
	if r.TotalGames == 0 {
		return 0
	}
	return float64(r.TotalTurns) / float64(r.TotalGames)
}

// AvgScore returns the genome's mean final score.
func (r *EvaluationResult) AvgScore() float64 {
	if r.TotalGames == 0 {
		return 0
	}
	return float64(r.TotalScore) / float64(r.TotalGames)
}
