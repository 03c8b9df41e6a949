package simulation

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/signalnine/seasalt/gosim/engine"
	"github.com/signalnine/seasalt/gosim/genome"
)

func defaultPair() []genome.Genome {
	return []genome.Genome{genome.DefaultGenome(), genome.DefaultGenome()}
}

func snapshotCards(s engine.Snapshot) int {
	n := len(s.Deck) + len(s.DiscardLeft) + len(s.DiscardRight)
	for _, p := range s.Players {
		n += len(p.Hand) + 2*len(p.PlayedPairs)
	}
	return n
}

func TestRunGameFixtureSeed42(t *testing.T) {
	cfg := DefaultMatchConfig()

	first, err := RunGame(defaultPair(), cfg, 42)
	if err != nil {
		t.Fatalf("RunGame failed: %v", err)
	}

	// Player 1 declares last chance on turn 5; both seats finish on 11 and
	// the earlier seat takes the tie.
	if first.Winner != 0 {
		t.Errorf("Expected winner 0, got %d", first.Winner)
	}
	if first.TurnCount != 7 {
		t.Errorf("Expected 7 turns, got %d", first.TurnCount)
	}
	if !reflect.DeepEqual(first.Scores, []int{11, 11}) {
		t.Errorf("Expected scores [11 11], got %v", first.Scores)
	}
	if first.EndReason != engine.EndLastChance {
		t.Errorf("Expected end reason %s, got %s", engine.EndLastChance, first.EndReason)
	}
	if first.DeclareMode != engine.DeclareLastChance || first.Declarer != 1 {
		t.Errorf("Expected last_chance declared by player 1, got %s by %d", first.DeclareMode, first.Declarer)
	}
	if first.MermaidWin {
		t.Error("Expected no mermaid win")
	}

	for i := 0; i < 3; i++ {
		again, err := RunGame(defaultPair(), cfg, 42)
		if err != nil {
			t.Fatalf("RunGame failed: %v", err)
		}
		if again.Winner != first.Winner || again.TurnCount != first.TurnCount ||
			!reflect.DeepEqual(again.Scores, first.Scores) || again.EndReason != first.EndReason {
			t.Errorf("Seed 42 not reproducible: (%d, %d, %v) vs (%d, %d, %v)",
				first.Winner, first.TurnCount, first.Scores,
				again.Winner, again.TurnCount, again.Scores)
		}
	}
}

func TestRunGameHonoursWidenedSchema(t *testing.T) {
	wide, err := genome.DefaultSchema().WithBounds(map[string]genome.Bounds{
		"declareThreshold":       {Min: -100, Max: 12},
		"scoreDifferenceForStop": {Min: -100, Max: 5},
	})
	if err != nil {
		t.Fatalf("WithBounds failed: %v", err)
	}
	eager := genome.DefaultGenome().
		With(genome.DeclareThreshold, -100).
		With(genome.ScoreDifferenceForStop, -100).
		With(genome.RiskTolerance, 1)
	players := []genome.Genome{eager, eager}

	cfg := DefaultMatchConfig()
	cfg.Schema = &wide
	for seed := uint64(1); seed <= 20; seed++ {
		result, err := RunGame(players, cfg, seed)
		if err != nil {
			t.Fatalf("Seed %d: %v", seed, err)
		}
		if result.EndReason != engine.EndStop || result.DeclareMode != engine.DeclareStop {
			t.Errorf("Seed %d: expected an immediate stop, got %s (%s)", seed, result.EndReason, result.DeclareMode)
		}
		if result.TurnCount != 0 {
			t.Errorf("Seed %d: expected stop on turn 0, got %d", seed, result.TurnCount)
		}
	}

	// Default bounds clamp the threshold back to 5: seed 1 then plays on
	// until player 0 stops on turn 3.
	cfg.Schema = nil
	result, err := RunGame(players, cfg, 1)
	if err != nil {
		t.Fatalf("RunGame failed: %v", err)
	}
	if result.TurnCount != 3 || result.Declarer != 0 {
		t.Errorf("Expected player 0 to stop on turn 3, got player %d on turn %d", result.Declarer, result.TurnCount)
	}
}

func TestRunGameConservesCards(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.RecordReplay = true

	for _, players := range []int{2, 3, 4} {
		cfg.PlayerCount = players
		for seed := uint64(1); seed <= 10; seed++ {
			result, err := RunGame(nil, cfg, seed)
			if err != nil {
				t.Fatalf("%d players, seed %d: %v", players, seed, err)
			}
			if len(result.Replay) != result.Actions+2 {
				t.Errorf("Expected %d snapshots, got %d", result.Actions+2, len(result.Replay))
			}
			for i, snap := range result.Replay {
				if n := snapshotCards(snap); n != engine.DeckSize {
					t.Fatalf("%d players, seed %d, snapshot %d: %d cards, want %d",
						players, seed, i, n, engine.DeckSize)
				}
			}
		}
	}
}

func TestRunGameRandomGenomes(t *testing.T) {
	schema := genome.DefaultSchema()
	rng := rand.New(rand.NewSource(99))
	cfg := DefaultMatchConfig()

	for i := 0; i < 50; i++ {
		genomes := []genome.Genome{schema.Random(rng), schema.Random(rng)}
		result, err := RunGame(genomes, cfg, uint64(i))
		if err != nil {
			var inv *engine.SimulationInvariantError
			if errors.As(err, &inv) {
				t.Fatalf("Invariant violated in game %d: %v", i, inv)
			}
			t.Fatalf("Game %d failed: %v", i, err)
		}
		switch result.EndReason {
		case engine.EndStop, engine.EndLastChance, engine.EndDeckExhausted, engine.EndMaxTurns:
		default:
			t.Errorf("Game %d: unexpected end reason %s", i, result.EndReason)
		}
		if result.EndReason == engine.EndMaxTurns && result.TurnCount != cfg.MaxTurns {
			t.Errorf("Game %d hit max turns at turn %d", i, result.TurnCount)
		}
		if result.DeclareMode == engine.DeclareNone && result.Declarer != -1 {
			t.Errorf("Game %d: declarer without declaration", i)
		}
	}
}

func TestRunGameMaxTurnsCap(t *testing.T) {
	// Never declares: both genomes need an unreachable score.
	passive := genome.DefaultGenome().With(genome.DeclareThreshold, 12).
		With(genome.RiskTolerance, 0).With(genome.OpponentHandSizeWeight, 1)
	cfg := DefaultMatchConfig()
	cfg.MaxTurns = 3

	result, err := RunGame([]genome.Genome{passive, passive}, cfg, 5)
	if err != nil {
		t.Fatalf("RunGame failed: %v", err)
	}
	if result.TurnCount > 3 {
		t.Errorf("Expected at most 3 turns, got %d", result.TurnCount)
	}
	if result.TurnCount == 3 && result.EndReason != engine.EndMaxTurns && result.DeclareMode == engine.DeclareNone {
		t.Errorf("Expected max_turns end reason, got %s", result.EndReason)
	}
}

func TestRunGameEventLog(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.EnableLogging = true

	result, err := RunGame(defaultPair(), cfg, 7)
	if err != nil {
		t.Fatalf("RunGame failed: %v", err)
	}
	if len(result.Log) != result.Actions {
		t.Errorf("Expected %d log entries, got %d", result.Actions, len(result.Log))
	}
	if len(result.Log) == 0 || result.Log[0].Phase != "draw" || result.Log[0].Action.Kind != engine.ActionDraw {
		t.Error("First logged action should be a draw")
	}

	quiet, _ := RunGame(defaultPair(), DefaultMatchConfig(), 7)
	if quiet.Log != nil {
		t.Error("Log should be empty when logging is disabled")
	}
	if quiet.Winner != result.Winner || quiet.TurnCount != result.TurnCount {
		t.Error("Logging must not change the outcome")
	}
}

func TestRunGameTension(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.TrackTension = true

	result, err := RunGame(defaultPair(), cfg, 11)
	if err != nil {
		t.Fatalf("RunGame failed: %v", err)
	}
	tm := result.Tension
	if tm == nil {
		t.Fatal("Expected tension metrics")
	}
	if tm.TotalTurns < 1 || tm.TotalTurns > result.TurnCount+1 {
		t.Errorf("Expected 1..%d observed turns, got %d", result.TurnCount+1, tm.TotalTurns)
	}
	if tm.DecisiveTurn < 1 || tm.DecisiveTurn > tm.TotalTurns {
		t.Errorf("Decisive turn %d outside [1, %d]", tm.DecisiveTurn, tm.TotalTurns)
	}
	if tm.ClosestMargin < 0 || tm.ClosestMargin > 1 {
		t.Errorf("Closest margin %f outside [0, 1]", tm.ClosestMargin)
	}

	plain, _ := RunGame(defaultPair(), DefaultMatchConfig(), 11)
	if plain.Tension != nil {
		t.Error("Tension should be nil when tracking is disabled")
	}
	if plain.Winner != result.Winner || !reflect.DeepEqual(plain.Scores, result.Scores) {
		t.Error("Tension tracking must not change the outcome")
	}
}

func TestMatchConfigValidate(t *testing.T) {
	bad := []MatchConfig{
		{PlayerCount: 1, MaxTurns: 10},
		{PlayerCount: 5, MaxTurns: 10},
		{PlayerCount: 2, MaxTurns: 0},
		{PlayerCount: 2, MaxTurns: 10, StartingHandSize: -1},
	}
	for _, cfg := range bad {
		if _, err := RunGame(nil, cfg, 1); err == nil {
			t.Errorf("Expected error for %+v", cfg)
		}
	}
}

func TestRunBatchIsReproducible(t *testing.T) {
	cfg := DefaultMatchConfig()
	a, err := RunBatch(defaultPair(), cfg, 20, 12345)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	b, _ := RunBatch(defaultPair(), cfg, 20, 12345)

	if a.TotalGames != 20 {
		t.Errorf("Expected 20 games, got %d", a.TotalGames)
	}
	if a.Wins[0]+a.Wins[1] != 20 {
		t.Errorf("Every game should have a winner, got %v", a.Wins)
	}
	if a.DeclareModes.Stop+a.DeclareModes.LastChance+a.DeclareModes.None != 20 {
		t.Errorf("Declare modes should cover every game: %+v", a.DeclareModes)
	}
	if !reflect.DeepEqual(a.Wins, b.Wins) || !reflect.DeepEqual(a.TotalScores, b.TotalScores) ||
		a.AvgTurns != b.AvgTurns || a.MedianTurns != b.MedianTurns {
		t.Error("Same seed should give the same batch")
	}
}

func TestRunBatchParallelMatchesSerial(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.PlayerCount = 3
	genomes := []genome.Genome{genome.DefaultGenome(), genome.BaselineGenome()}

	serial, err := RunBatch(genomes, cfg, 30, 777)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	parallel, err := RunBatchParallel(genomes, cfg, 30, 777, 4)
	if err != nil {
		t.Fatalf("RunBatchParallel failed: %v", err)
	}

	if !reflect.DeepEqual(serial.Wins, parallel.Wins) {
		t.Errorf("Wins differ: %v vs %v", serial.Wins, parallel.Wins)
	}
	if !reflect.DeepEqual(serial.TotalScores, parallel.TotalScores) {
		t.Errorf("Scores differ: %v vs %v", serial.TotalScores, parallel.TotalScores)
	}
	if serial.MedianTurns != parallel.MedianTurns || serial.DeclareModes != parallel.DeclareModes {
		t.Error("Turn and declaration stats differ")
	}
	if !reflect.DeepEqual(serial.EndReasons, parallel.EndReasons) {
		t.Errorf("End reasons differ: %v vs %v", serial.EndReasons, parallel.EndReasons)
	}
}

func TestRunBatchParallelReportsErrors(t *testing.T) {
	cfg := MatchConfig{PlayerCount: 9, MaxTurns: 10}
	if _, err := RunBatchParallel(nil, cfg, 5, 1, 2); err == nil {
		t.Error("Expected error from invalid config")
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []int
		want int
	}{
		{nil, 0},
		{[]int{5}, 5},
		{[]int{3, 1, 2}, 2},
		{[]int{4, 1, 3, 2}, 2},
	}
	for _, tt := range tests {
		if got := median(tt.in); got != tt.want {
			t.Errorf("median(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
