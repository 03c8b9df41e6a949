package fitness

import "math"

// Weights turns an EvaluationResult into a single fitness value.
type Weights struct {
	BaselineWinRate float64 `json:"baselineWinRate" yaml:"baseline_win_rate"`
	PeerWinRate     float64 `json:"peerWinRate" yaml:"peer_win_rate"`
	LastChanceWin   float64 `json:"lastChanceWin" yaml:"last_chance_win"`
	MermaidWin      float64 `json:"mermaidWin" yaml:"mermaid_win"`
	ShortGameBonus  float64 `json:"shortGameBonus" yaml:"short_game_bonus"`
	// ShortGameTurns is the match length below which the short game
	// bonus starts to accrue.
	ShortGameTurns float64 `json:"shortGameTurns" yaml:"short_game_turns"`
}

// StylePresets defines weight configurations for different training goals.
var StylePresets = map[string]Weights{
	"balanced": {
		BaselineWinRate: 100,
		PeerWinRate:     50,
		LastChanceWin:   5,
		MermaidWin:      10,
		ShortGameBonus:  0.1,
		ShortGameTurns:  20,
	},
	// Beating the fixed baseline dominates; peers barely count.
	"baseline": {
		BaselineWinRate: 150,
		PeerWinRate:     20,
		LastChanceWin:   5,
		MermaidWin:      10,
		ShortGameBonus:  0.1,
		ShortGameTurns:  20,
	},
	"aggressive": {
		BaselineWinRate: 100,
		PeerWinRate:     50,
		LastChanceWin:   10,
		MermaidWin:      20,
		ShortGameBonus:  0.5,
		ShortGameTurns:  20,
	},
}

// DefaultStyle is used when no or an unknown style is requested.
const DefaultStyle = "balanced"

// ResolveWeights picks the weights for a style. Custom weights override the
// style and report it as "custom".
func ResolveWeights(style string, custom *Weights) (Weights, string) {
	if custom != nil {
		return *custom, "custom"
	}
	if w, ok := StylePresets[style]; ok {
		return w, style
	}
	return StylePresets[DefaultStyle], DefaultStyle
}

// Fitness computes
//
//	baselineWR×BaselineWinRate + peerWR×PeerWinRate
//	+ lastChanceWins×LastChanceWin + mermaidWins×MermaidWin
//	+ max(0, ShortGameTurns − avgTurns)×ShortGameBonus
//
// An empty result scores 0.
func (w Weights) Fitness(r *EvaluationResult) float64 {
	if r.TotalGames == 0 {
		return 0
	}
	fitness := r.BaselineWinRate()*w.BaselineWinRate + r.PeerWinRate()*w.PeerWinRate
	fitness += float64(r.LastChanceWins) * w.LastChanceWin
	fitness += float64(r.MermaidWins) * w.MermaidWin
	fitness += math.Max(0, w.ShortGameTurns-r.AvgTurns()) * w.ShortGameBonus
	return fitness
}
