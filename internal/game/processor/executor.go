// Package processor commits legal sequences to the game state and keeps the
// history ledger used for undo.
package processor

import (
	"fmt"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/rs/zerolog"
)

// ledgerEntry is the inverse delta of one committed sequence.
type ledgerEntry struct {
	seq            core.Sequence
	hits           []bool
	prevDice       []int
	prevTurn       core.Player
	prevTurnNumber int
}

// Executor applies sequences and owns the history ledger. It trusts the
// caller to pass sequences taken from the legal set and only repeats the
// board's occupancy checks. Not safe for concurrent use; one executor serves
// one game.
type Executor struct {
	logger zerolog.Logger
	ledger []ledgerEntry
	// base counts sequences committed before the last Reset; they cannot be undone.
	base int
}

// NewExecutor creates a new executor with an empty ledger
func NewExecutor(logger zerolog.Logger) *Executor {
	return &Executor{
		logger: logger.With().Str("component", "Executor").Logger(),
	}
}

// Execute plays seq for the player on turn and returns the new committed
// state. st itself is never modified. The returned state keeps the same
// player on turn with the consumed dice removed; switching sides is up to
// the caller.
func (e *Executor) Execute(st *core.State, seq core.Sequence) (*core.State, error) {
	if len(seq) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", core.ErrIllegalStateTransition)
	}

	next := st.Clone()
	entry := ledgerEntry{
		seq:            append(core.Sequence(nil), seq...),
		hits:           make([]bool, 0, len(seq)),
		prevDice:       append([]int(nil), st.Dice...),
		prevTurn:       st.Turn,
		prevTurnNumber: st.TurnNumber,
	}

	for _, m := range seq {
		if m.Player != st.Turn {
			err := core.WrapMoveError(m, fmt.Errorf("%w: %s is not on turn", core.ErrIllegalStateTransition, m.Player))
			e.logger.Error().Err(err).Msg("Rejected sequence")
			return nil, err
		}
		rest, ok := core.RemoveDie(next.Dice, m.Die)
		if !ok {
			err := core.WrapMoveError(m, fmt.Errorf("%w: die %d not available", core.ErrIllegalStateTransition, m.Die))
			e.logger.Error().Err(err).Msg("Rejected sequence")
			return nil, err
		}
		hit, err := next.Board.Apply(m)
		if err != nil {
			wrapped := core.WrapMoveError(m, err)
			e.logger.Error().Err(wrapped).Str("sequence", seq.String()).Msg("Failed to apply move")
			return nil, wrapped
		}
		if hit {
			e.logger.Debug().Str("move", m.String()).Msg("Move hit a blot")
		}
		next.Dice = rest
		entry.hits = append(entry.hits, hit)
	}

	e.ledger = append(e.ledger, entry)
	next.HistoryLen = e.base + len(e.ledger)

	e.logger.Debug().
		Str("player", st.Turn.String()).
		Str("sequence", seq.String()).
		Int("history_len", next.HistoryLen).
		Msg("Sequence committed")
	return next, nil
}

// Undo reverts the most recent committed sequence on a copy of st and
// restores the turn, dice and turn counter that were current before it.
// The ledger entry is only dropped when the revert succeeds.
func (e *Executor) Undo(st *core.State) (*core.State, error) {
	if len(e.ledger) == 0 {
		return nil, core.ErrEmptyHistory
	}
	entry := e.ledger[len(e.ledger)-1]

	prev := st.Clone()
	for i := len(entry.seq) - 1; i >= 0; i-- {
		if err := prev.Board.Revert(entry.seq[i], entry.hits[i]); err != nil {
			wrapped := core.WrapMoveError(entry.seq[i], err)
			e.logger.Error().Err(wrapped).Msg("Failed to revert move")
			return nil, wrapped
		}
	}

	e.ledger = e.ledger[:len(e.ledger)-1]
	prev.Turn = entry.prevTurn
	prev.Dice = append([]int(nil), entry.prevDice...)
	prev.TurnNumber = entry.prevTurnNumber
	prev.HistoryLen = e.base + len(e.ledger)

	e.logger.Debug().
		Str("player", prev.Turn.String()).
		Str("sequence", entry.seq.String()).
		Int("history_len", prev.HistoryLen).
		Msg("Sequence undone")
	return prev, nil
}

// Len is the number of sequences that can still be undone.
func (e *Executor) Len() int { return len(e.ledger) }

// Last returns the most recently committed sequence.
func (e *Executor) Last() (core.Sequence, bool) {
	if len(e.ledger) == 0 {
		return nil, false
	}
	return append(core.Sequence(nil), e.ledger[len(e.ledger)-1].seq...), true
}

// LastHits counts the blots hit by the most recently committed sequence.
func (e *Executor) LastHits() int {
	if len(e.ledger) == 0 {
		return 0
	}
	n := 0
	for _, hit := range e.ledger[len(e.ledger)-1].hits {
		if hit {
			n++
		}
	}
	return n
}

// History returns copies of every committed sequence, oldest first.
func (e *Executor) History() []core.Sequence {
	out := make([]core.Sequence, len(e.ledger))
	for i, entry := range e.ledger {
		out[i] = append(core.Sequence(nil), entry.seq...)
	}
	return out
}

// Reset drops the ledger. base is the history length of the position the
// game continues from, e.g. a restored snapshot.
func (e *Executor) Reset(base int) {
	e.ledger = nil
	e.base = base
}
