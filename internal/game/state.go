package game

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/events"
	"github.com/mitchelldurbincs/bgcore/internal/game/rules"
	"github.com/mitchelldurbincs/bgcore/internal/game/states"
)

// PlayerProfile is one seat of a game
type PlayerProfile struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Side  core.Player `json:"side"`
	Stats PlayerStats `json:"stats"`
}

// Snapshot is the logical schema of a whole game: the board state plus the
// turn-cycle phase and the result once the game is over.
type Snapshot struct {
	core.Snapshot
	GameID  string         `json:"game_id"`
	Phase   string         `json:"phase"`
	Winner  core.Player    `json:"winner"`
	Outcome *rules.Outcome `json:"outcome,omitempty"`
	Players [2]string      `json:"players"`
}

// MarshalSnapshot encodes a game snapshot as JSON
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// UnmarshalSnapshot decodes a game snapshot produced by MarshalSnapshot
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode game snapshot: %w", err)
	}
	return snap, nil
}

// Snapshot captures the game. Restoring it on any engine reproduces the
// same state, phase, pending dice and result.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	gc := e.stateMachine.GetContext()
	snap := Snapshot{
		Snapshot: e.state.Snapshot(),
		GameID:   e.gameID,
		Phase:    e.stateMachine.CurrentPhase().String(),
		Winner:   gc.Winner,
		Players:  [2]string{e.players[core.White].Name, e.players[core.Black].Name},
	}
	if e.stateMachine.CurrentPhase() == states.PhaseGameOver {
		o := e.outcome
		snap.Outcome = &o
	}
	return snap
}

// Restore replaces the game with snap. The variant must match the engine's.
// The undo history restarts empty; sequences committed before the snapshot
// cannot be undone.
func (e *Engine) Restore(snap Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := core.FromSnapshot(snap.Snapshot)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if !sameVariant(st.Variant(), e.state.Variant()) {
		return fmt.Errorf("restore: %w: snapshot variant differs from the game's", core.ErrInvalidVariant)
	}
	phase, err := states.ParsePhase(snap.Phase)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if !phase.IsResting() {
		return fmt.Errorf("restore: %w: cannot resume in %s", core.ErrWrongPhase, phase)
	}

	outcome, over := rules.ResultOf(st)
	var legal []core.Sequence
	switch phase {
	case states.PhaseAwaitingRoll:
		if len(st.Dice) > 0 {
			return fmt.Errorf("restore: %w: dice pending while awaiting a roll", core.ErrIllegalStateTransition)
		}
	case states.PhaseAwaitingChoice:
		if len(st.Dice) == 0 {
			return fmt.Errorf("restore: %w: awaiting a choice without dice", core.ErrIllegalStateTransition)
		}
		legal = e.generator.LegalSequences(st, st.Dice)
		if len(legal) == 0 {
			return fmt.Errorf("restore: %w: pending dice have no legal sequence", core.ErrIllegalStateTransition)
		}
	case states.PhaseGameOver:
		if !over || outcome.Winner != snap.Winner {
			return fmt.Errorf("restore: %w: game over phase does not match the board", core.ErrIllegalStateTransition)
		}
	}
	if over && phase != states.PhaseGameOver {
		return fmt.Errorf("restore: %w: finished board in phase %s", core.ErrIllegalStateTransition, phase)
	}

	e.state = st
	e.legal = legal
	e.rollSeq++
	e.rejections = 0
	e.executor.Reset(st.HistoryLen)
	e.resetSkips()
	e.outcome = rules.Outcome{Winner: core.NoPlayer}
	if over {
		e.outcome = outcome
	}
	if snap.Players[core.White] != "" {
		e.players[core.White].Name = snap.Players[core.White]
	}
	if snap.Players[core.Black] != "" {
		e.players[core.Black].Name = snap.Players[core.Black]
	}

	gc := e.stateMachine.GetContext()
	gc.Turn = st.Turn
	gc.Dice = append([]int(nil), st.Dice...)
	gc.LegalCount = len(legal)
	gc.Winner = e.outcome.Winner
	gc.EndTime = time.Time{}
	if err := e.stateMachine.Reset(phase, "restored from snapshot"); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	e.eventBus.Publish(events.NewGameRestoredEvent(e.gameID, st.TurnNumber, st.HistoryLen))

	e.logger.Info().
		Str("phase", phase.String()).
		Int("turn", st.TurnNumber).
		Int("history_len", st.HistoryLen).
		Msg("Game restored from snapshot")
	return nil
}

// Players returns copies of both seats, White first
func (e *Engine) Players() [2]PlayerProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return [2]PlayerProfile{*e.players[core.White], *e.players[core.Black]}
}

func sameVariant(a, b core.Variant) bool {
	return a.Points == b.Points &&
		a.HomeSize == b.HomeSize &&
		a.Checkers == b.Checkers &&
		a.DieFaces == b.DieFaces &&
		a.DoublesUses == b.DoublesUses &&
		a.ForceHigherDie == b.ForceHigherDie &&
		slices.Equal(a.Layout, b.Layout)
}
