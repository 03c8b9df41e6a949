package simulation

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/signalnine/seasalt/gosim/engine"
	"github.com/signalnine/seasalt/gosim/genome"
	"github.com/signalnine/seasalt/gosim/policy"
)

// MatchConfig controls a single simulated match.
type MatchConfig struct {
	PlayerCount      int `json:"playerCount" yaml:"player_count"`
	MaxTurns         int `json:"maxTurns" yaml:"max_turns"`
	StartingHandSize int `json:"startingHandSize" yaml:"starting_hand_size"`

	// EnableLogging records one LogEntry per action.
	EnableLogging bool `json:"enableLogging" yaml:"enable_logging"`
	// RecordReplay records a Snapshot after every action.
	RecordReplay bool `json:"recordReplay" yaml:"record_replay"`
	// SkipInvariantChecks disables the per-action card conservation check.
	SkipInvariantChecks bool `json:"skipInvariantChecks" yaml:"skip_invariant_checks"`
	// TrackTension records lead changes on live hand scores after every turn.
	TrackTension bool `json:"trackTension" yaml:"track_tension"`

	// Schema bounds the genes of every seat; nil means the default schema.
	Schema *genome.Schema `json:"-" yaml:"-"`
}

// DefaultMatchConfig returns two players, 100 turns, two-card hands.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		PlayerCount:      2,
		MaxTurns:         100,
		StartingHandSize: engine.DefaultHandSize,
	}
}

// Validate reports settings no match can be played with.
func (c MatchConfig) Validate() error {
	if c.PlayerCount < engine.MinPlayers || c.PlayerCount > engine.MaxPlayers {
		return fmt.Errorf("player count %d outside [%d, %d]", c.PlayerCount, engine.MinPlayers, engine.MaxPlayers)
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("max turns must be positive, got %d", c.MaxTurns)
	}
	if c.StartingHandSize < 0 {
		return fmt.Errorf("starting hand size must not be negative, got %d", c.StartingHandSize)
	}
	return nil
}

// LogEntry is one line of the optional event log.
type LogEntry struct {
	Turn     int           `json:"turn"`
	Player   string        `json:"player"`
	Phase    string        `json:"phase"`
	Action   engine.Action `json:"decision"`
	HandSize int           `json:"handSize"`
}

// GameResult holds the outcome of a single game
type GameResult struct {
	Winner      int                     `json:"winner"`
	Scores      []int                   `json:"scores"`
	Breakdowns  []engine.ScoreBreakdown `json:"breakdowns"`
	TurnCount   int                     `json:"turnCount"`
	Actions     int                     `json:"actions"`
	DeclareMode engine.DeclareMode      `json:"declareMode"`
	Declarer    int                     `json:"declarer"`
	EndReason   engine.EndReason        `json:"endReason"`
	MermaidWin  bool                    `json:"mermaidWin"`
	DurationNs  uint64                  `json:"durationNs"`
	Log         []LogEntry              `json:"log,omitempty"`
	Replay      []engine.Snapshot       `json:"replay,omitempty"`
	Tension     *engine.TensionMetrics  `json:"tension,omitempty"`
}

// RunGame plays one complete match. Seat i uses genomes[i]; missing seats
// use the default genome. The same genomes, config and seed always produce
// the same result. The match ends on a stop declaration, at the end of the
// last chance countdown, when the deck cannot be refilled, or at MaxTurns.
func RunGame(genomes []genome.Genome, cfg MatchConfig, seed uint64) (GameResult, error) {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return GameResult{}, err
	}

	rng := rand.New(rand.NewSource(int64(seed)))
	state, err := engine.NewGame(genomes, cfg.PlayerCount, cfg.StartingHandSize, cfg.Schema, rng)
	if err != nil {
		return GameResult{}, err
	}
	defer engine.PutState(state)

	var result GameResult
	if cfg.RecordReplay {
		result.Replay = append(result.Replay, state.Snapshot())
	}
	var detector engine.ScoreLeaderDetector
	if cfg.TrackTension {
		result.Tension = engine.NewTensionMetrics()
	}

	for !state.Finished && state.TurnCount < cfg.MaxTurns {
		current := state.Current
		player := &state.Players[current]
		action := policy.Decide(&player.Genome, state, current)

		if cfg.EnableLogging {
			result.Log = append(result.Log, LogEntry{
				Turn:     state.TurnCount,
				Player:   player.ID,
				Phase:    state.Phase.String(),
				Action:   action,
				HandSize: len(player.Hand),
			})
		}

		turn := state.TurnCount
		if err := state.Apply(action, rng); err != nil {
			return GameResult{}, err
		}
		if !cfg.SkipInvariantChecks {
			if err := state.VerifyConservation(action); err != nil {
				return GameResult{}, err
			}
		}
		result.Actions++

		if result.Tension != nil && (state.TurnCount != turn || state.Finished) {
			result.Tension.Update(state, &detector)
		}
		if cfg.RecordReplay {
			result.Replay = append(result.Replay, state.Snapshot())
		}
	}

	if !state.Finished {
		// Runaway protection: scored as-is.
		state.Finished = true
		state.EndReason = engine.EndMaxTurns
	}

	outcome := engine.ResolveOutcome(state)
	result.Winner = outcome.Winner
	result.Scores = outcome.Scores
	result.Breakdowns = outcome.Breakdowns
	result.MermaidWin = outcome.MermaidWin
	result.TurnCount = state.TurnCount
	result.DeclareMode = state.DeclareMode
	result.Declarer = state.Declarer
	result.EndReason = state.EndReason
	if result.Tension != nil {
		result.Tension.Finalize(result.Winner)
	}
	if cfg.RecordReplay {
		result.Replay = append(result.Replay, state.Snapshot())
	}
	result.DurationNs = uint64(time.Since(start).Nanoseconds())
	return result, nil
}

// DeclareCounts tallies how matches ended.
type DeclareCounts struct {
	Stop       int `json:"stop"`
	LastChance int `json:"last_chance"`
	None       int `json:"none"`
}

// AggregatedStats summarizes multiple game results
type AggregatedStats struct {
	TotalGames    int                      `json:"totalGames"`
	Wins          []int                    `json:"wins"`
	TotalScores   []int                    `json:"totalScores"`
	AvgScores     []float64                `json:"avgScores"`
	AvgTurns      float64                  `json:"avgTurns"`
	MedianTurns   int                      `json:"medianTurns"`
	DeclareModes  DeclareCounts            `json:"declareModes"`
	EndReasons    map[engine.EndReason]int `json:"endReasons"`
	MermaidWins   int                      `json:"mermaidWins"`
	AvgDurationNs uint64                   `json:"avgDurationNs"`
}

// WinRate returns the share of games won by a seat.
func (s AggregatedStats) WinRate(seat int) float64 {
	if s.TotalGames == 0 || seat < 0 || seat >= len(s.Wins) {
		return 0
	}
	return float64(s.Wins[seat]) / float64(s.TotalGames)
}

// RunBatch plays numGames matches between the same genomes. Per-game seeds
// are drawn from seed, so a batch is reproducible.
func RunBatch(genomes []genome.Genome, cfg MatchConfig, numGames int, seed uint64) (AggregatedStats, error) {
	results := make([]GameResult, numGames)

	rng := rand.New(rand.NewSource(int64(seed)))
	for i := 0; i < numGames; i++ {
		gameSeed := rng.Uint64()
		result, err := RunGame(genomes, cfg, gameSeed)
		if err != nil {
			return AggregatedStats{}, fmt.Errorf("game %d (seed %d): %w", i, gameSeed, err)
		}
		results[i] = result
	}

	return aggregateResults(results, cfg.PlayerCount), nil
}

// aggregateResults computes summary statistics
func aggregateResults(results []GameResult, playerCount int) AggregatedStats {
	stats := AggregatedStats{
		TotalGames:  len(results),
		Wins:        make([]int, playerCount),
		TotalScores: make([]int, playerCount),
		AvgScores:   make([]float64, playerCount),
		EndReasons:  make(map[engine.EndReason]int),
	}

	turnCounts := make([]int, 0, len(results))
	totalDuration := uint64(0)

	for _, result := range results {
		if result.Winner >= 0 && result.Winner < playerCount {
			stats.Wins[result.Winner]++
		}
		for seat, score := range result.Scores {
			if seat < playerCount {
				stats.TotalScores[seat] += score
			}
		}

		switch result.DeclareMode {
		case engine.DeclareStop:
			stats.DeclareModes.Stop++
		case engine.DeclareLastChance:
			stats.DeclareModes.LastChance++
		default:
			stats.DeclareModes.None++
		}
		stats.EndReasons[result.EndReason]++
		if result.MermaidWin {
			stats.MermaidWins++
		}

		turnCounts = append(turnCounts, result.TurnCount)
		totalDuration += result.DurationNs
	}

	if len(turnCounts) > 0 {
		sum := 0
		for _, tc := range turnCounts {
			sum += tc
		}
		stats.AvgTurns = float64(sum) / float64(len(turnCounts))
		stats.MedianTurns = median(turnCounts)
		for seat := range stats.AvgScores {
			stats.AvgScores[seat] = float64(stats.TotalScores[seat]) / float64(len(results))
		}
		stats.AvgDurationNs = totalDuration / uint64(len(results))
	}

	return stats
}

// median calculates the median of a slice
func median(values []int) int {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
