package states

import "fmt"

// GamePhase represents where a game is within the turn cycle
type GamePhase int

const (
	// PhaseAwaitingRoll - the active player has to roll
	PhaseAwaitingRoll GamePhase = iota

	// PhaseAwaitingChoice - dice are rolled, a sequence has to be picked
	PhaseAwaitingChoice

	// PhaseValidating - a submitted sequence is checked against the legal set
	PhaseValidating

	// PhaseApplying - the executor commits the sequence
	PhaseApplying

	// PhaseCheckingEnd - terminal check after a commit
	PhaseCheckingEnd

	// PhaseGameOver - final state
	PhaseGameOver
)

// String returns the string representation of a GamePhase
func (p GamePhase) String() string {
	switch p {
	case PhaseAwaitingRoll:
		return "AwaitingRoll"
	case PhaseAwaitingChoice:
		return "AwaitingChoice"
	case PhaseValidating:
		return "Validating"
	case PhaseApplying:
		return "Applying"
	case PhaseCheckingEnd:
		return "CheckingEnd"
	case PhaseGameOver:
		return "GameOver"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IsTerminal returns true if the phase represents a terminal state
func (p GamePhase) IsTerminal() bool {
	return p == PhaseGameOver
}

// CanRoll returns true if dice may be rolled in this phase
func (p GamePhase) CanRoll() bool {
	return p == PhaseAwaitingRoll
}

// CanReceiveChoice returns true if a sequence may be submitted in this phase
func (p GamePhase) CanReceiveChoice() bool {
	return p == PhaseAwaitingChoice
}

// IsResting is true for the phases a game can sit in between calls.
// Validating, Applying and CheckingEnd only exist inside a submit.
func (p GamePhase) IsResting() bool {
	return p == PhaseAwaitingRoll || p == PhaseAwaitingChoice || p == PhaseGameOver
}

// AllowedTransitions returns the valid phases this phase can transition to
func (p GamePhase) AllowedTransitions() []GamePhase {
	switch p {
	case PhaseAwaitingRoll:
		// roll, or undo of the previous commit
		return []GamePhase{PhaseAwaitingChoice}
	case PhaseAwaitingChoice:
		// submit, or skip/cancel of the turn
		return []GamePhase{PhaseValidating, PhaseAwaitingRoll}
	case PhaseValidating:
		// accepted, rejected, or cancelled
		return []GamePhase{PhaseApplying, PhaseAwaitingChoice, PhaseAwaitingRoll}
	case PhaseApplying:
		// committed, or the executor refused the sequence
		return []GamePhase{PhaseCheckingEnd, PhaseAwaitingChoice}
	case PhaseCheckingEnd:
		return []GamePhase{PhaseAwaitingRoll, PhaseGameOver}
	case PhaseGameOver:
		// undo of the winning commit
		return []GamePhase{PhaseAwaitingChoice}
	default:
		return []GamePhase{}
	}
}

// CanTransitionTo checks if a transition from this phase to the target phase is allowed
func (p GamePhase) CanTransitionTo(target GamePhase) bool {
	allowed := p.AllowedTransitions()
	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}

// ParsePhase converts a string produced by String back to a GamePhase
func ParsePhase(s string) (GamePhase, error) {
	switch s {
	case "AwaitingRoll":
		return PhaseAwaitingRoll, nil
	case "AwaitingChoice":
		return PhaseAwaitingChoice, nil
	case "Validating":
		return PhaseValidating, nil
	case "Applying":
		return PhaseApplying, nil
	case "CheckingEnd":
		return PhaseCheckingEnd, nil
	case "GameOver":
		return PhaseGameOver, nil
	default:
		return PhaseAwaitingRoll, fmt.Errorf("unknown phase %q", s)
	}
}
