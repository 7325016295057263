package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/players"
	"github.com/mitchelldurbincs/bgcore/internal/game/rules"
	"github.com/mitchelldurbincs/bgcore/internal/game/states"
	"github.com/rs/zerolog"
)

// TurnResult describes one turn played through PlayTurn.
type TurnResult struct {
	Player core.Player
	Dice   []int
	// Sequence is the committed sequence, nil when the turn was skipped or cancelled.
	Sequence core.Sequence
	Skipped  bool
	// Rejected counts illegal choices made before the turn ended.
	Rejected int
	GameOver bool
	Outcome  rules.Outcome
}

// TurnProcessor handles the orchestration of a single turn
type TurnProcessor struct {
	engine *Engine
	logger zerolog.Logger
}

// NewTurnProcessor creates a new turn processor
func NewTurnProcessor(engine *Engine) *TurnProcessor {
	return &TurnProcessor{
		engine: engine,
		logger: engine.logger.With().Str("component", "TurnProcessor").Logger(),
	}
}

// PlayTurn executes a complete turn for the player on turn. It rolls when no
// roll is pending, then asks chooser for a sequence. Illegal choices are
// retried up to the engine's retry limit. When ctx ends, the per-turn timeout
// expires, the chooser fails, or the retries run out, the pending roll is
// discarded and the game is left at the last committed state with the same
// player to roll.
//
// The engine is unlocked while chooser runs. If the roll changes in the
// meantime (another caller cancelled, undid or restored) the choice is
// dropped and ErrWrongPhase is returned.
func (tp *TurnProcessor) PlayTurn(ctx context.Context, chooser players.Chooser) (TurnResult, error) {
	e := tp.engine
	if e.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.turnTimeout)
		defer cancel()
	}

	e.mu.Lock()
	if err := tp.checkContext(ctx, "before rolling"); err != nil {
		e.mu.Unlock()
		return TurnResult{}, core.WrapGameStateError(e.state.TurnNumber, "play turn", err)
	}

	res := TurnResult{Player: e.state.Turn, Outcome: rules.Outcome{Winner: core.NoPlayer}}
	phase := e.stateMachine.CurrentPhase()
	switch {
	case phase == states.PhaseGameOver:
		e.mu.Unlock()
		return res, core.WrapGameStateError(e.state.TurnNumber, "play turn", core.ErrGameOver)
	case phase.CanRoll():
		rolled, skipped, err := e.rollLocked()
		if err != nil {
			e.mu.Unlock()
			return res, err
		}
		res.Dice = rolled
		if skipped {
			res.Skipped = true
			e.mu.Unlock()
			return res, nil
		}
	case phase.CanReceiveChoice():
		res.Dice = append([]int(nil), e.state.Dice...)
	default:
		e.mu.Unlock()
		return res, core.WrapGameStateError(e.state.TurnNumber, "play turn", fmt.Errorf("%w: %s", core.ErrWrongPhase, phase))
	}

	turnLogger := tp.logger.With().
		Str("game_id", e.gameID).
		Int("turn", e.state.TurnNumber).
		Str("player", res.Player.String()).
		Logger()

	for attempt := 1; ; attempt++ {
		st := e.state.Clone()
		legal := copySequences(e.legal)
		rollSeq := e.rollSeq
		e.mu.Unlock()

		turnLogger.Debug().Int("attempt", attempt).Int("legal_count", len(legal)).Msg("Waiting for choice")
		choice, chooseErr := chooser.Choose(ctx, st, legal)

		e.mu.Lock()
		if e.rollSeq != rollSeq || !e.stateMachine.CurrentPhase().CanReceiveChoice() {
			e.mu.Unlock()
			turnLogger.Warn().Msg("Roll changed while choosing, dropping choice")
			return res, core.WrapGameStateError(st.TurnNumber, "play turn", fmt.Errorf("%w: roll changed while choosing", core.ErrWrongPhase))
		}

		if chooseErr != nil {
			reason := "chooser failed"
			if errors.Is(chooseErr, context.DeadlineExceeded) {
				reason = "turn timed out"
			} else if errors.Is(chooseErr, context.Canceled) {
				reason = "turn cancelled"
			}
			turnLogger.Warn().Err(chooseErr).Str("reason", reason).Msg("Abandoning turn")
			if err := e.cancelTurnLocked(reason); err != nil {
				turnLogger.Error().Err(err).Msg("Failed to cancel turn")
			}
			e.mu.Unlock()
			return res, core.WrapPlayerError(res.Player, "choose", chooseErr)
		}

		err := e.submitLocked(choice)
		if err == nil {
			committed, _ := e.executor.Last()
			res.Sequence = committed
			res.GameOver = e.stateMachine.CurrentPhase() == states.PhaseGameOver
			if res.GameOver {
				res.Outcome = e.outcome
			}
			e.mu.Unlock()
			turnLogger.Debug().Str("sequence", committed.String()).Msg("Turn complete")
			return res, nil
		}
		if !errors.Is(err, core.ErrIllegalChoice) {
			e.mu.Unlock()
			return res, err
		}

		res.Rejected++
		if res.Rejected > e.maxRetries {
			if cerr := e.cancelTurnLocked("too many illegal choices"); cerr != nil {
				turnLogger.Error().Err(cerr).Msg("Failed to cancel turn")
			}
			e.mu.Unlock()
			return res, core.WrapPlayerError(res.Player, "choose",
				fmt.Errorf("%w: gave up after %d attempts", core.ErrIllegalChoice, res.Rejected))
		}
		if err := tp.checkContext(ctx, "before retry"); err != nil {
			if cerr := e.cancelTurnLocked("turn cancelled"); cerr != nil {
				turnLogger.Error().Err(cerr).Msg("Failed to cancel turn")
			}
			e.mu.Unlock()
			return res, core.WrapPlayerError(res.Player, "choose", err)
		}
	}
}

// checkContext checks if the context is cancelled
func (tp *TurnProcessor) checkContext(ctx context.Context, phase string) error {
	select {
	case <-ctx.Done():
		tp.logger.Warn().
			Err(ctx.Err()).
			Int("turn", tp.engine.state.TurnNumber).
			Str("phase", phase).
			Msg("Turn cancelled or timed out")
		return ctx.Err()
	default:
		return nil
	}
}
