package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/events"
	"github.com/mitchelldurbincs/bgcore/internal/game/players"
	"github.com/mitchelldurbincs/bgcore/internal/game/processor"
	"github.com/mitchelldurbincs/bgcore/internal/game/rules"
	"github.com/mitchelldurbincs/bgcore/internal/game/states"
	"github.com/rs/zerolog"
)

// Engine drives one game through the turn cycle. It owns the committed
// state, the pending roll and its legal set, and the executor's history.
// All methods are safe for concurrent use; event handlers run while the
// engine is locked and must not call back into it.
type Engine struct {
	mu sync.Mutex

	gameID string
	logger zerolog.Logger

	state        *core.State
	dice         core.DiceSource
	generator    *rules.MoveGenerator
	executor     *processor.Executor
	winCondition *rules.WinConditionChecker
	eventBus     *events.EventBus
	stateMachine *states.StateMachine

	// legal is the legal set for the pending roll, nil between turns.
	legal []core.Sequence
	// rollSeq changes whenever the pending roll is replaced or dropped.
	rollSeq    uint64
	rejections int
	outcome    rules.Outcome

	// skips lists the turns skipped since the last commit; skipLog holds
	// the same list for each earlier commit still in the undo history.
	skips   []core.Player
	skipLog [][]core.Player

	players     [2]*PlayerProfile
	maxRetries  int
	turnTimeout time.Duration

	turnProcessor *TurnProcessor
}

// Roll draws two dice for the player on turn and computes the legal set.
// When nothing can be played the turn is skipped: the opponent is put on
// turn, the phase returns to AwaitingRoll and legal is empty.
func (e *Engine) Roll() (dice []int, legal []core.Sequence, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rolled, skipped, err := e.rollLocked()
	if err != nil {
		return nil, nil, err
	}
	if skipped {
		return rolled, nil, nil
	}
	return rolled, copySequences(e.legal), nil
}

// rollLocked returns the die uses rolled. skipped is true when they could
// not be played and the opponent is now on turn.
func (e *Engine) rollLocked() (rolled []int, skipped bool, err error) {
	phase := e.stateMachine.CurrentPhase()
	if phase == states.PhaseGameOver {
		return nil, false, core.WrapGameStateError(e.state.TurnNumber, "roll", core.ErrGameOver)
	}
	if !phase.CanRoll() {
		return nil, false, core.WrapGameStateError(e.state.TurnNumber, "roll", fmt.Errorf("%w: %s", core.ErrWrongPhase, phase))
	}

	v := e.state.Variant()
	d1 := e.dice.NextDie(v.DieFaces)
	d2 := e.dice.NextDie(v.DieFaces)
	player := e.state.Turn

	e.state.Dice = core.ExpandRoll(v, d1, d2)
	rolled = append([]int(nil), e.state.Dice...)
	e.legal = e.generator.LegalSequences(e.state, e.state.Dice)
	e.rollSeq++
	e.rejections = 0

	e.logger.Debug().
		Str("player", player.String()).
		Int("die1", d1).
		Int("die2", d2).
		Int("legal_count", len(e.legal)).
		Int("turn", e.state.TurnNumber).
		Msg("Dice rolled")

	e.eventBus.Publish(events.NewDiceRolledEvent(e.gameID, player, e.state.Dice, len(e.legal), e.state.TurnNumber))

	gc := e.stateMachine.GetContext()
	gc.Turn = player
	gc.Dice = append([]int(nil), e.state.Dice...)
	gc.LegalCount = len(e.legal)
	if err := e.stateMachine.TransitionTo(states.PhaseAwaitingChoice, "dice rolled"); err != nil {
		return nil, false, core.WrapGameStateError(e.state.TurnNumber, "roll", err)
	}

	if len(e.legal) > 0 {
		return rolled, false, nil
	}

	// No legal sequence: the roll is forfeited and the opponent moves next.
	e.eventBus.Publish(events.NewTurnSkippedEvent(e.gameID, player, rolled))
	e.recordSkip(player)

	e.state.Dice = nil
	e.legal = nil
	e.state.Turn = player.Opponent()
	gc.Turn = e.state.Turn
	if err := e.stateMachine.TransitionTo(states.PhaseAwaitingRoll, "no legal moves"); err != nil {
		return rolled, true, core.WrapGameStateError(e.state.TurnNumber, "skip", err)
	}
	e.logger.Info().
		Str("player", player.String()).
		Ints("dice", rolled).
		Msg("Turn skipped, no legal moves")
	return rolled, true, nil
}

// Legal returns the legal set for the pending roll, empty when no roll is pending.
func (e *Engine) Legal() []core.Sequence {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copySequences(e.legal)
}

// Submit plays seq for the player on turn. A sequence outside the legal set
// is rejected with an error wrapping core.ErrIllegalChoice and the roll stays
// pending. Membership ignores move order, but the moves must also be legal in
// the order given; the committed moves are the canonical ordering from the
// legal set.
func (e *Engine) Submit(seq core.Sequence) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitLocked(seq)
}

func (e *Engine) submitLocked(seq core.Sequence) error {
	phase := e.stateMachine.CurrentPhase()
	if phase == states.PhaseGameOver {
		return core.WrapGameStateError(e.state.TurnNumber, "submit", core.ErrGameOver)
	}
	if !phase.CanReceiveChoice() {
		return core.WrapGameStateError(e.state.TurnNumber, "submit", fmt.Errorf("%w: %s", core.ErrWrongPhase, phase))
	}

	player := e.state.Turn
	v := e.state.Variant()
	if err := e.stateMachine.TransitionTo(states.PhaseValidating, "sequence submitted"); err != nil {
		return core.WrapGameStateError(e.state.TurnNumber, "validating", err)
	}

	idx := core.IndexOf(e.legal, seq)
	var orderErr error
	if idx >= 0 {
		orderErr = rules.CheckSequence(e.state, seq)
	}
	if idx < 0 || orderErr != nil {
		e.rejections++
		e.logger.Warn().
			Err(orderErr).
			Str("player", player.String()).
			Str("sequence", seq.String()).
			Int("attempt", e.rejections).
			Msg("Rejected illegal choice")
		e.eventBus.Publish(events.NewChoiceRejectedEvent(e.gameID, player, seq, e.rejections))
		if err := e.stateMachine.TransitionTo(states.PhaseAwaitingChoice, "illegal choice"); err != nil {
			return core.WrapGameStateError(e.state.TurnNumber, "validating", err)
		}
		return core.NewGameError(e.state.TurnNumber, player, "submit",
			fmt.Errorf("%w: %s", core.ErrIllegalChoice, seq.Notation(v)))
	}
	canonical := e.legal[idx]

	if err := e.stateMachine.TransitionTo(states.PhaseApplying, "sequence accepted"); err != nil {
		return core.WrapGameStateError(e.state.TurnNumber, "applying", err)
	}
	next, err := e.executor.Execute(e.state, canonical)
	if err != nil {
		// Nothing was committed; the roll is still pending.
		if terr := e.stateMachine.TransitionTo(states.PhaseAwaitingChoice, "commit failed"); terr != nil {
			e.logger.Error().Err(terr).Msg("Failed to reopen choice after commit failure")
		}
		return core.WrapGameStateError(e.state.TurnNumber, "applying", err)
	}
	e.state = next
	e.recordTurn(player, canonical, e.executor.LastHits())
	e.eventBus.Publish(events.NewSequenceAppliedEvent(
		e.gameID, player, canonical, canonical.Notation(v), e.state.TurnNumber, e.state.HistoryLen,
	))

	if err := e.stateMachine.TransitionTo(states.PhaseCheckingEnd, "sequence committed"); err != nil {
		return core.WrapGameStateError(e.state.TurnNumber, "checking end", err)
	}
	return e.finishTurnLocked(player)
}

// finishTurnLocked ends the game or hands the dice to the opponent.
func (e *Engine) finishTurnLocked(player core.Player) error {
	e.state.Dice = nil
	e.legal = nil
	e.rollSeq++
	gc := e.stateMachine.GetContext()

	if outcome, over := e.winCondition.CheckGameOver(e.state); over {
		e.outcome = outcome
		e.recordGameEnd(outcome)
		gc.Winner = outcome.Winner
		if err := e.stateMachine.TransitionTo(states.PhaseGameOver, "all checkers borne off"); err != nil {
			return core.WrapGameStateError(e.state.TurnNumber, "game over", err)
		}
		e.eventBus.Publish(events.NewGameEndedEvent(
			e.gameID, outcome.Winner, outcome.Kind.String(), outcome.Points, gc.GetElapsedTime(), e.state.TurnNumber,
		))
		return nil
	}

	e.state.Turn = player.Opponent()
	e.state.TurnNumber++
	gc.Turn = e.state.Turn
	if err := e.stateMachine.TransitionTo(states.PhaseAwaitingRoll, "turn complete"); err != nil {
		return core.WrapGameStateError(e.state.TurnNumber, "end turn", err)
	}
	return nil
}

// CancelTurn drops the pending roll. The same player rolls again.
func (e *Engine) CancelTurn(reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	phase := e.stateMachine.CurrentPhase()
	if !phase.CanReceiveChoice() {
		return core.WrapGameStateError(e.state.TurnNumber, "cancel", fmt.Errorf("%w: %s", core.ErrWrongPhase, phase))
	}
	return e.cancelTurnLocked(reason)
}

func (e *Engine) cancelTurnLocked(reason string) error {
	player := e.state.Turn
	e.state.Dice = nil
	e.legal = nil
	e.rollSeq++
	if err := e.stateMachine.TransitionTo(states.PhaseAwaitingRoll, reason); err != nil {
		return core.WrapGameStateError(e.state.TurnNumber, "cancel", err)
	}
	e.eventBus.Publish(events.NewTurnCancelledEvent(e.gameID, player, reason))
	e.logger.Info().Str("player", player.String()).Str("reason", reason).Msg("Turn cancelled")
	return nil
}

// Undo reverts the most recent committed sequence. The player who made it
// is back on turn with the same dice and the game waits for their choice.
// A pending roll is discarded first; a finished game is reopened.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.executor.Len() == 0 {
		return core.WrapGameStateError(e.state.TurnNumber, "undo", core.ErrEmptyHistory)
	}

	phase := e.stateMachine.CurrentPhase()
	if phase == states.PhaseAwaitingChoice {
		if err := e.cancelTurnLocked("roll discarded for undo"); err != nil {
			return err
		}
		phase = states.PhaseAwaitingRoll
	}
	if !phase.IsResting() {
		return core.WrapGameStateError(e.state.TurnNumber, "undo", fmt.Errorf("%w: %s", core.ErrWrongPhase, phase))
	}

	last, _ := e.executor.Last()
	hits := e.executor.LastHits()
	prev, err := e.executor.Undo(e.state)
	if err != nil {
		return core.WrapGameStateError(e.state.TurnNumber, "undo", err)
	}
	e.state = prev
	e.unrecordTurn(prev.Turn, last, hits)
	if phase == states.PhaseGameOver {
		e.unrecordGameEnd(e.outcome)
		e.outcome = rules.Outcome{Winner: core.NoPlayer}
	}

	e.legal = e.generator.LegalSequences(prev, prev.Dice)
	e.rollSeq++
	e.rejections = 0

	gc := e.stateMachine.GetContext()
	gc.Turn = prev.Turn
	gc.Dice = append([]int(nil), prev.Dice...)
	gc.LegalCount = len(e.legal)
	if err := e.stateMachine.TransitionTo(states.PhaseAwaitingChoice, "undo"); err != nil {
		return core.WrapGameStateError(e.state.TurnNumber, "undo", err)
	}
	e.eventBus.Publish(events.NewMoveUndoneEvent(e.gameID, prev.Turn, last, prev.HistoryLen))
	return nil
}

// PlayTurn runs a full turn, rolling if needed and asking chooser for the
// sequence. See TurnProcessor.PlayTurn.
func (e *Engine) PlayTurn(ctx context.Context, chooser players.Chooser) (TurnResult, error) {
	return e.turnProcessor.PlayTurn(ctx, chooser)
}

// GameID returns the game's identifier
func (e *Engine) GameID() string { return e.gameID }

// EventBus returns the game's event bus
func (e *Engine) EventBus() *events.EventBus { return e.eventBus }

// State returns a copy of the committed state including any pending dice.
func (e *Engine) State() *core.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// CurrentPhase returns the phase of the turn cycle
func (e *Engine) CurrentPhase() states.GamePhase {
	return e.stateMachine.CurrentPhase()
}

// IsGameOver reports whether a player has borne off every checker
func (e *Engine) IsGameOver() bool {
	return e.stateMachine.CurrentPhase() == states.PhaseGameOver
}

// Outcome returns the result of a finished game
func (e *Engine) Outcome() (rules.Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stateMachine.CurrentPhase() != states.PhaseGameOver {
		return rules.Outcome{Winner: core.NoPlayer}, false
	}
	return e.outcome, true
}

// Winner returns the winner, or core.NoPlayer while the game runs
func (e *Engine) Winner() core.Player {
	o, _ := e.Outcome()
	return o.Winner
}

// History returns every sequence that can still be undone, oldest first.
func (e *Engine) History() []core.Sequence {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executor.History()
}

// CanUndo reports whether there is a committed sequence to undo
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executor.Len() > 0
}

// Board renders the current position as text
func (e *Engine) Board() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return RenderBoard(e.state, false)
}

func copySequences(in []core.Sequence) []core.Sequence {
	if len(in) == 0 {
		return nil
	}
	out := make([]core.Sequence, len(in))
	for i, s := range in {
		out[i] = append(core.Sequence(nil), s...)
	}
	return out
}
