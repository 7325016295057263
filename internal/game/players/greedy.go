package players

import (
	"context"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

// Weights used by Evaluate. All integer; the engine never sees floats.
const (
	weightBornOff     = 12
	weightOpponentBar = 15
	weightMadePoint   = 4
	weightHomePoint   = 2
	weightBlot        = -3
	weightExposedBlot = -3
)

// GreedyChooser plays the sequence whose resulting position scores best
// under Evaluate. Ties go to the earliest sequence in the legal set, so the
// choice is deterministic.
type GreedyChooser struct{}

func NewGreedyChooser() *GreedyChooser {
	return &GreedyChooser{}
}

func (g *GreedyChooser) Choose(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(legal) == 0 {
		return nil, ErrNoChoices
	}

	me := st.Turn
	best, bestScore, found := 0, 0, false
	for i, seq := range legal {
		after := st.Board.Clone()
		ok := true
		for _, m := range seq {
			if _, err := after.Apply(m); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		score := Evaluate(after, me)
		if !found || score > bestScore {
			best, bestScore, found = i, score, true
		}
	}
	return legal[best], nil
}

// Evaluate scores a board from p's point of view. Higher is better.
func Evaluate(b *core.Board, p core.Player) int {
	v := b.Variant()
	opp := p.Opponent()

	score := weightBornOff*b.BornOff(p) + weightOpponentBar*b.BarCount(opp)
	score -= b.PipCount(p)
	score += b.PipCount(opp) / 2

	for i := 0; i < v.Points; i++ {
		n := b.PieceCount(i, p)
		switch {
		case n >= 2:
			score += weightMadePoint
			if v.InHome(p, i) {
				score += weightHomePoint
			}
		case n == 1:
			score += weightBlot
			if exposed(b, p, i) {
				score += weightExposedBlot
			}
		}
	}
	return score
}

// exposed reports whether an opposing checker (or one on the bar) sits within
// direct range of the blot on point.
func exposed(b *core.Board, p core.Player, point int) bool {
	v := b.Variant()
	opp := p.Opponent()
	if b.BarCount(opp) > 0 {
		return true
	}
	for d := 1; d <= v.DieFaces; d++ {
		// Opponents approach a White blot from lower indices and a Black blot from higher ones.
		from := point - d
		if p == core.Black {
			from = point + d
		}
		if from < 0 || from >= v.Points {
			break
		}
		if b.PieceCount(from, opp) > 0 {
			return true
		}
	}
	return false
}
