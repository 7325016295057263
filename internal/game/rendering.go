package game

import (
	"fmt"
	"strings"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

// This file contains all board rendering functionality for the game engine.

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorBlue   = "\033[34m"
	ColorYellow = "\033[33m"
	ColorGray   = "\033[90m"
)

var playerColors = [2]string{ColorRed, ColorBlue}

// RenderBoard draws st as text. Points are labelled 1..N from White's side:
// the top row runs from the middle point to N, the bottom row from the
// middle point down to 1. With color set, checkers are drawn in ANSI colors.
func RenderBoard(st *core.State, color bool) string {
	const (
		EmptySymbol = "."
		WhiteSymbol = "W"
		BlackSymbol = "B"
	)

	b := st.Board
	n := b.Len()
	half := (n + 1) / 2

	cell := func(point int) string {
		owner, count := b.Owner(point)
		if count == 0 {
			if color {
				return fmt.Sprintf(" %s%3s%s", ColorGray, EmptySymbol, ColorReset)
			}
			return fmt.Sprintf(" %3s", EmptySymbol)
		}
		sym := WhiteSymbol
		if owner == core.Black {
			sym = BlackSymbol
		}
		text := fmt.Sprintf("%s%d", sym, count)
		if color {
			return fmt.Sprintf(" %s%3s%s", playerColors[owner], text, ColorReset)
		}
		return fmt.Sprintf(" %3s", text)
	}

	var sb strings.Builder

	// Top row: points half+1..n
	for i := half; i < n; i++ {
		fmt.Fprintf(&sb, " %3d", i+1)
	}
	sb.WriteString("\n")
	for i := half; i < n; i++ {
		sb.WriteString(cell(i))
	}
	sb.WriteString("\n\n")

	// Bottom row: points half..1
	for i := half - 1; i >= 0; i-- {
		sb.WriteString(cell(i))
	}
	sb.WriteString("\n")
	for i := half - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, " %3d", i+1)
	}
	sb.WriteString("\n\n")

	for _, p := range core.Players {
		name := p.String()
		if color {
			name = playerColors[p] + name + ColorReset
		}
		fmt.Fprintf(&sb, "%s: bar %d, off %d, pips %d\n", name, b.BarCount(p), b.BornOff(p), b.PipCount(p))
	}

	turn := st.Turn.String()
	if color {
		turn = ColorYellow + turn + ColorReset
	}
	fmt.Fprintf(&sb, "Turn %d, %s to play", st.TurnNumber+1, turn)
	if len(st.Dice) > 0 {
		fmt.Fprintf(&sb, ", dice %v", st.Dice)
	}
	sb.WriteString("\n")
	return sb.String()
}
