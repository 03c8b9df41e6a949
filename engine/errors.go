package engine

import "fmt"

// SimulationInvariantError reports a card conservation failure or an action
// the policy should never produce. It carries the full offending state.
type SimulationInvariantError struct {
	Reason string
	Action Action
	State  Snapshot
}

func (e *SimulationInvariantError) Error() string {
	return fmt.Sprintf("simulation invariant violated: %s (action %s, player %s, phase %s, turn %d)",
		e.Reason, e.Action, e.State.CurrentPlayer, e.State.Phase, e.State.TurnCount)
}

func (s *GameState) invariant(a Action, reason string) *SimulationInvariantError {
	return &SimulationInvariantError{
		Reason: reason,
		Action: a,
		State:  s.Snapshot(),
	}
}

// VerifyConservation wraps CheckConservation into an invariant error
// attributed to the action just applied.
func (s *GameState) VerifyConservation(a Action) error {
	if err := s.CheckConservation(); err != nil {
		return s.invariant(a, err.Error())
	}
	return nil
}
