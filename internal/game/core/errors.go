package core

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalStateTransition means a caller bypassed the rules engine and
	// asked the board for a move its occupancy cannot support.
	ErrIllegalStateTransition = errors.New("illegal state transition")
	// ErrIllegalChoice means an adapter proposed a sequence outside the legal set.
	ErrIllegalChoice  = errors.New("illegal choice")
	ErrEmptyHistory   = errors.New("empty history")
	ErrGameOver       = errors.New("game is over")
	ErrInvalidPlayer  = errors.New("invalid player")
	ErrWrongPhase     = errors.New("action not allowed in current phase")
	ErrInvalidVariant = errors.New("invalid variant")
)

// WrapMoveError adds move context to an error.
// Format: "player white: move 12->9 (die 3): <err>"
func WrapMoveError(m Move, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("player %s: move %s->%s (die %d): %w", m.Player, locationString(m.From), locationString(m.To), m.Die, err)
}

// WrapGameStateError adds turn and phase context.
// Format: "game turn 7 [applying]: <err>"
func WrapGameStateError(turn int, phase string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("game turn %d [%s]: %w", turn, phase, err)
}

// WrapPlayerError adds player context.
// Format: "player black choose: <err>"
func WrapPlayerError(p Player, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("player %s %s: %w", p, operation, err)
}

// GameError is a structured error carrying turn, player and operation.
type GameError struct {
	Turn      int
	Player    Player
	Operation string
	Err       error
}

func (e *GameError) Error() string {
	if e.Player.Valid() {
		return fmt.Sprintf("turn %d: player %s %s: %v", e.Turn, e.Player, e.Operation, e.Err)
	}
	return fmt.Sprintf("turn %d: %s: %v", e.Turn, e.Operation, e.Err)
}

func (e *GameError) Unwrap() error { return e.Err }

// NewGameError builds a GameError. Pass NoPlayer when no player is involved.
func NewGameError(turn int, p Player, operation string, err error) *GameError {
	return &GameError{Turn: turn, Player: p, Operation: operation, Err: err}
}
