package game

import (
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/rules"
)

// This file contains all player statistics bookkeeping for the engine.
// Every record has an inverse so that undo leaves the statistics exactly as
// they were before the undone sequence. Skips are kept per commit: undoing a
// commit also forgets the turns skipped after it.

// PlayerStats accumulates per-seat statistics over a game
type PlayerStats struct {
	GamesPlayed  int `json:"games_played"`
	Wins         int `json:"wins"`
	Losses       int `json:"losses"`
	PointsWon    int `json:"points_won"`
	PointsLost   int `json:"points_lost"`
	Gammons      int `json:"gammons"`
	Backgammons  int `json:"backgammons"`
	TurnsPlayed  int `json:"turns_played"`
	TurnsSkipped int `json:"turns_skipped"`
	PipsMoved    int `json:"pips_moved"`
	Hits         int `json:"hits"`
}

// recordTurn counts a committed sequence and the blots it hit
func (e *Engine) recordTurn(p core.Player, seq core.Sequence, hits int) {
	e.skipLog = append(e.skipLog, e.skips)
	e.skips = nil
	s := &e.players[p].Stats
	s.TurnsPlayed++
	s.PipsMoved += seq.Pips()
	s.Hits += hits
}

func (e *Engine) unrecordTurn(p core.Player, seq core.Sequence, hits int) {
	for _, skipped := range e.skips {
		e.players[skipped].Stats.TurnsSkipped--
	}
	e.skips = nil
	if n := len(e.skipLog); n > 0 {
		e.skips = e.skipLog[n-1]
		e.skipLog = e.skipLog[:n-1]
	}
	s := &e.players[p].Stats
	s.TurnsPlayed--
	s.PipsMoved -= seq.Pips()
	s.Hits -= hits
}

func (e *Engine) recordSkip(p core.Player) {
	e.players[p].Stats.TurnsSkipped++
	e.skips = append(e.skips, p)
}

// resetSkips drops the skip log when the undo history is re-based.
func (e *Engine) resetSkips() {
	e.skips = nil
	e.skipLog = nil
}

// recordGameEnd credits the winner and debits the loser
func (e *Engine) recordGameEnd(o rules.Outcome) {
	e.applyGameEnd(o, 1)
}

func (e *Engine) unrecordGameEnd(o rules.Outcome) {
	e.applyGameEnd(o, -1)
}

func (e *Engine) applyGameEnd(o rules.Outcome, sign int) {
	if !o.Winner.Valid() {
		return
	}
	w := &e.players[o.Winner].Stats
	l := &e.players[o.Winner.Opponent()].Stats
	w.GamesPlayed += sign
	l.GamesPlayed += sign
	w.Wins += sign
	l.Losses += sign
	w.PointsWon += sign * o.Points
	l.PointsLost += sign * o.Points
	switch o.Kind {
	case rules.OutcomeGammon:
		w.Gammons += sign
	case rules.OutcomeBackgammon:
		w.Backgammons += sign
	}

	e.logger.Debug().
		Str("winner", o.Winner.String()).
		Int("points", o.Points).
		Int("sign", sign).
		Msg("Player stats updated")
}
