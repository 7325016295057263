// Package rules decides move legality, generates legal turns and detects the
// end of the game. Nothing in this package mutates its inputs.
package rules

import (
	"errors"
	"fmt"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

// Reasons a single move is illegal. Check returns one of these.
var (
	ErrNotYourTurn       = errors.New("not the active player")
	ErrDieUnavailable    = errors.New("die not available")
	ErrNoChecker         = errors.New("no own checker on origin")
	ErrMustEnterFromBar  = errors.New("checkers on the bar must enter first")
	ErrWrongDistance     = errors.New("destination does not match die")
	ErrBlocked           = errors.New("destination is blocked")
	ErrBearOffNotAllowed = errors.New("cannot bear off with checkers outside home")
	ErrBearOffOverage    = errors.New("die exceeds distance and a farther checker remains")
)

// Destination is where a checker of p on from lands when moved by die.
// It returns core.Off when the move carries the checker past the last point.
func Destination(v core.Variant, p core.Player, from, die int) int {
	if from == core.Bar {
		return v.EntryPoint(p, die)
	}
	to := from - die
	if p == core.Black {
		to = from + die
	}
	if to < 0 || to >= v.Points {
		return core.Off
	}
	return to
}

// IsLegal reports whether m may be played in st.
func IsLegal(st *core.State, m core.Move) bool {
	return Check(st, m) == nil
}

// Check runs every sub-rule in order and returns the first violation.
func Check(st *core.State, m core.Move) error {
	if err := CheckTurn(st, m); err != nil {
		return err
	}
	if err := CheckOrigin(st, m); err != nil {
		return err
	}
	if err := CheckDistance(st, m); err != nil {
		return err
	}
	if err := CheckDestination(st, m); err != nil {
		return err
	}
	return CheckBearOff(st, m)
}

// CheckTurn: the mover is on turn and the die is still available.
func CheckTurn(st *core.State, m core.Move) error {
	if m.Player != st.Turn || !m.Player.Valid() {
		return ErrNotYourTurn
	}
	if m.Die < 1 || m.Die > st.Variant().DieFaces || !core.HasDie(st.Dice, m.Die) {
		return ErrDieUnavailable
	}
	return nil
}

// CheckOrigin: the origin holds one of the mover's checkers. While the mover
// has checkers on the bar, only bar entries are allowed.
func CheckOrigin(st *core.State, m core.Move) error {
	onBar := st.Board.BarCount(m.Player)
	if m.From == core.Bar {
		if onBar == 0 {
			return ErrNoChecker
		}
		return nil
	}
	if onBar > 0 {
		return ErrMustEnterFromBar
	}
	if !st.Board.IsOwnedBy(m.From, m.Player) {
		return ErrNoChecker
	}
	return nil
}

// CheckDistance: the destination is exactly die points away in the mover's direction.
func CheckDistance(st *core.State, m core.Move) error {
	if m.To != Destination(st.Variant(), m.Player, m.From, m.Die) {
		return ErrWrongDistance
	}
	return nil
}

// CheckDestination: the landing point is not held by two or more opposing checkers.
func CheckDestination(st *core.State, m core.Move) error {
	if m.To == core.Off {
		return nil
	}
	if st.Board.IsBlockedFor(m.To, m.Player) {
		return ErrBlocked
	}
	return nil
}

// CheckBearOff: bearing off needs every checker home. A die larger than the
// exact distance may only bear off the checker farthest from exit.
func CheckBearOff(st *core.State, m core.Move) error {
	if m.To != core.Off {
		return nil
	}
	if !st.Board.AllHome(m.Player) {
		return ErrBearOffNotAllowed
	}
	exact := st.Variant().ExitDistance(m.Player, m.From)
	if m.Die == exact {
		return nil
	}
	if m.Die > exact && st.Board.FarthestDistance(m.Player) == exact {
		return nil
	}
	return ErrBearOffOverage
}

// CheckSequence replays seq move by move on a copy of st and returns the
// first violation, so an order that is illegal as played is caught even when
// another order of the same moves is legal.
func CheckSequence(st *core.State, seq core.Sequence) error {
	s := st.Clone()
	for _, m := range seq {
		if err := Check(s, m); err != nil {
			return fmt.Errorf("%s: %w", m, err)
		}
		if _, err := s.Board.Apply(m); err != nil {
			return fmt.Errorf("%s: %w", m, err)
		}
		s.Dice, _ = core.RemoveDie(s.Dice, m.Die)
	}
	return nil
}
