package engine

// TensionMetrics tracks how close a match was, measured on every player's
// live hand score at the end of each turn.
type TensionMetrics struct {
	LeadChanges   int     `json:"leadChanges"`   // Number of times leader switched
	DecisiveTurn  int     `json:"decisiveTurn"`  // Turn the winner took a lead it never lost
	ClosestMargin float64 `json:"closestMargin"` // Smallest normalized gap between 1st and 2nd (0 = tied)
	TotalTurns    int     `json:"totalTurns"`

	currentLeader int   // seat of the current leader, -1 for a tie
	leaderHistory []int // leader at each observed turn
}

// LeaderDetector decides who is ahead in a state.
type LeaderDetector interface {
	GetLeader(state *GameState) int     // Returns the leading seat or -1 for a tie
	GetMargin(state *GameState) float64 // Normalized gap (0-1), 0 = tied, 1 = max gap
}

// NewTensionMetrics creates an initialized tracker.
func NewTensionMetrics() *TensionMetrics {
	return &TensionMetrics{
		currentLeader: -1,
		ClosestMargin: 1.0,
		leaderHistory: make([]int, 0, 64),
	}
}

// ScoreLeaderDetector ranks players by the score their cards would earn if
// the round ended now.
type ScoreLeaderDetector struct{}

func liveScores(state *GameState) []int {
	scores := make([]int, len(state.Players))
	for i := range state.Players {
		p := &state.Players[i]
		scores[i] = CalculateScore(p.Hand, p.PlayedPairs, false).Total
	}
	return scores
}

func (d *ScoreLeaderDetector) GetLeader(state *GameState) int {
	if len(state.Players) < 2 {
		return -1
	}
	scores := liveScores(state)
	maxScore := scores[0]
	leader := 0
	tied := false
	for i := 1; i < len(scores); i++ {
		if scores[i] > maxScore {
			maxScore = scores[i]
			leader = i
			tied = false
		} else if scores[i] == maxScore {
			tied = true
		}
	}
	if tied {
		return -1
	}
	return leader
}

func (d *ScoreLeaderDetector) GetMargin(state *GameState) float64 {
	if len(state.Players) < 2 {
		return 0
	}
	first, second := 0, 0
	for _, s := range liveScores(state) {
		if s > first {
			second = first
			first = s
		} else if s > second {
			second = s
		}
	}
	if first == 0 {
		return 0
	}
	return float64(first-second) / float64(first)
}

// Update records the leader and margin after a turn.
func (tm *TensionMetrics) Update(state *GameState, detector LeaderDetector) {
	leader := detector.GetLeader(state)
	if leader != -1 && leader != tm.currentLeader {
		if tm.currentLeader != -1 {
			tm.LeadChanges++
		}
		tm.currentLeader = leader
	}
	tm.ClosestMargin = min(tm.ClosestMargin, detector.GetMargin(state))
	tm.leaderHistory = append(tm.leaderHistory, leader)
	tm.TotalTurns++
}

// Finalize sets DecisiveTurn for the given winner: the first turn of the
// final run of turns the winner led. A match the winner did not lead at the
// end, or a draw, is decided on the last turn.
func (tm *TensionMetrics) Finalize(winner int) {
	tm.DecisiveTurn = tm.TotalTurns
	if winner < 0 {
		return
	}
	for i := len(tm.leaderHistory) - 1; i >= 0 && tm.leaderHistory[i] == winner; i-- {
		tm.DecisiveTurn = i + 1
	}
}
