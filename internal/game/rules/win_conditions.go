package rules

import (
	"fmt"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/rs/zerolog"
)

// OutcomeKind grades a win by how far the loser got.
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeSingle
	OutcomeGammon
	OutcomeBackgammon
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNone:
		return "none"
	case OutcomeSingle:
		return "single"
	case OutcomeGammon:
		return "gammon"
	case OutcomeBackgammon:
		return "backgammon"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Points is the value of the win.
func (k OutcomeKind) Points() int {
	switch k {
	case OutcomeSingle:
		return 1
	case OutcomeGammon:
		return 2
	case OutcomeBackgammon:
		return 3
	default:
		return 0
	}
}

// Outcome describes a finished game.
type Outcome struct {
	Winner core.Player `json:"winner"`
	Kind   OutcomeKind `json:"kind"`
	Points int         `json:"points"`
}

// IsGameOver returns the winner once a player has borne off every checker.
func IsGameOver(st *core.State) (core.Player, bool) {
	checkers := st.Variant().Checkers
	for _, p := range core.Players {
		if st.Board.BornOff(p) == checkers {
			return p, true
		}
	}
	return core.NoPlayer, false
}

// ResultOf grades a finished game. ok is false while the game is still running.
// The loser is gammoned with nothing borne off, and backgammoned if it also
// still has a checker on the bar or in the winner's home region.
func ResultOf(st *core.State) (Outcome, bool) {
	winner, over := IsGameOver(st)
	if !over {
		return Outcome{Winner: core.NoPlayer}, false
	}
	loser := winner.Opponent()
	kind := OutcomeSingle
	if st.Board.BornOff(loser) == 0 {
		kind = OutcomeGammon
		if st.Board.BarCount(loser) > 0 || inHomeOf(st, winner, loser) {
			kind = OutcomeBackgammon
		}
	}
	return Outcome{Winner: winner, Kind: kind, Points: kind.Points()}, true
}

func inHomeOf(st *core.State, home, who core.Player) bool {
	v := st.Variant()
	for i := 0; i < v.Points; i++ {
		if v.InHome(home, i) && st.Board.PieceCount(i, who) > 0 {
			return true
		}
	}
	return false
}

// WinConditionChecker handles game over detection and winner determination
type WinConditionChecker struct {
	logger zerolog.Logger
}

// NewWinConditionChecker creates a new win condition checker
func NewWinConditionChecker(logger zerolog.Logger) *WinConditionChecker {
	return &WinConditionChecker{
		logger: logger.With().Str("component", "WinConditionChecker").Logger(),
	}
}

// CheckGameOver grades the position and logs the result.
func (wc *WinConditionChecker) CheckGameOver(st *core.State) (Outcome, bool) {
	wc.logger.Debug().Msg("Checking game over conditions")

	outcome, over := ResultOf(st)
	if over {
		wc.logger.Info().
			Str("winner", outcome.Winner.String()).
			Str("kind", outcome.Kind.String()).
			Int("points", outcome.Points).
			Msg("Winner determined")
	}

	wc.logger.Debug().
		Bool("is_game_over", over).
		Int("white_borne_off", st.Board.BornOff(core.White)).
		Int("black_borne_off", st.Board.BornOff(core.Black)).
		Msg("Game over check complete")
	return outcome, over
}
