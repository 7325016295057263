package states

import (
	"fmt"
	"time"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

// AwaitingRollState waits for the active player to roll
type AwaitingRollState struct{}

func NewAwaitingRollState() State {
	return &AwaitingRollState{}
}

func (s *AwaitingRollState) Phase() GamePhase {
	return PhaseAwaitingRoll
}

func (s *AwaitingRollState) Enter(ctx *GameContext) error {
	ctx.Dice = nil
	ctx.LegalCount = 0
	ctx.Logger.Debug().Str("player", ctx.Turn.String()).Msg("Waiting for roll")
	return nil
}

func (s *AwaitingRollState) Exit(ctx *GameContext) error {
	return nil
}

func (s *AwaitingRollState) Validate(ctx *GameContext) error {
	if !ctx.Turn.Valid() {
		return fmt.Errorf("no player on turn")
	}
	return nil
}

// AwaitingChoiceState holds a rolled turn until a sequence is submitted
type AwaitingChoiceState struct{}

func NewAwaitingChoiceState() State {
	return &AwaitingChoiceState{}
}

func (s *AwaitingChoiceState) Phase() GamePhase {
	return PhaseAwaitingChoice
}

func (s *AwaitingChoiceState) Enter(ctx *GameContext) error {
	ctx.Logger.Debug().
		Str("player", ctx.Turn.String()).
		Ints("dice", ctx.Dice).
		Int("legal_count", ctx.LegalCount).
		Msg("Waiting for choice")
	return nil
}

func (s *AwaitingChoiceState) Exit(ctx *GameContext) error {
	return nil
}

func (s *AwaitingChoiceState) Validate(ctx *GameContext) error {
	if len(ctx.Dice) == 0 {
		return fmt.Errorf("cannot await a choice without dice")
	}
	return nil
}

// ValidatingState checks a submitted sequence
type ValidatingState struct{}

func NewValidatingState() State {
	return &ValidatingState{}
}

func (s *ValidatingState) Phase() GamePhase {
	return PhaseValidating
}

func (s *ValidatingState) Enter(ctx *GameContext) error {
	return nil
}

func (s *ValidatingState) Exit(ctx *GameContext) error {
	return nil
}

func (s *ValidatingState) Validate(ctx *GameContext) error {
	return nil
}

// ApplyingState commits an accepted sequence
type ApplyingState struct{}

func NewApplyingState() State {
	return &ApplyingState{}
}

func (s *ApplyingState) Phase() GamePhase {
	return PhaseApplying
}

func (s *ApplyingState) Enter(ctx *GameContext) error {
	return nil
}

func (s *ApplyingState) Exit(ctx *GameContext) error {
	return nil
}

func (s *ApplyingState) Validate(ctx *GameContext) error {
	return nil
}

// CheckingEndState runs the terminal check after a commit
type CheckingEndState struct{}

func NewCheckingEndState() State {
	return &CheckingEndState{}
}

func (s *CheckingEndState) Phase() GamePhase {
	return PhaseCheckingEnd
}

func (s *CheckingEndState) Enter(ctx *GameContext) error {
	return nil
}

func (s *CheckingEndState) Exit(ctx *GameContext) error {
	return nil
}

func (s *CheckingEndState) Validate(ctx *GameContext) error {
	return nil
}

// GameOverState represents a finished game
type GameOverState struct{}

func NewGameOverState() State {
	return &GameOverState{}
}

func (s *GameOverState) Phase() GamePhase {
	return PhaseGameOver
}

func (s *GameOverState) Enter(ctx *GameContext) error {
	ctx.EndTime = time.Now()
	ctx.Dice = nil
	ctx.Logger.Info().
		Str("winner", ctx.Winner.String()).
		Dur("duration", ctx.GetElapsedTime()).
		Msg("Game over")
	return nil
}

// Exit only happens when the winning sequence is undone.
func (s *GameOverState) Exit(ctx *GameContext) error {
	ctx.Logger.Info().Str("winner", ctx.Winner.String()).Msg("Reopening finished game")
	ctx.EndTime = time.Time{}
	ctx.Winner = core.NoPlayer
	return nil
}

func (s *GameOverState) Validate(ctx *GameContext) error {
	if !ctx.Winner.Valid() {
		return fmt.Errorf("cannot end game without a winner")
	}
	return nil
}
