package testutil

import (
	"testing"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/stretchr/testify/require"
)

// Position describes a board for a test. Points holds signed counts keyed by
// board index: positive for White, negative for Black.
type Position struct {
	Points map[int]int
	Bar    [2]int
	Off    [2]int
}

// SmallVariant is an 8 point board with 3 checkers a side and 3-faced dice,
// small enough for exhaustive enumeration.
func SmallVariant() core.Variant {
	return core.Variant{
		Points:         8,
		HomeSize:       2,
		Checkers:       3,
		DieFaces:       3,
		DoublesUses:    4,
		ForceHigherDie: true,
		Layout: []core.Placement{
			{Point: 7, Count: 1},
			{Point: 4, Count: 2},
		},
	}
}

// NewState builds a state from pos with turn to move and the given die uses.
// Checkers missing from pos are counted as borne off, so the result always
// conserves the variant's checker total.
func NewState(t testing.TB, v core.Variant, turn core.Player, pos Position, dice ...int) *core.State {
	t.Helper()

	b, err := core.NewBoard(v)
	require.NoError(t, err)
	for point, n := range pos.Points {
		switch {
		case n > 0:
			require.NoError(t, b.Place(point, core.White, n))
		case n < 0:
			require.NoError(t, b.Place(point, core.Black, -n))
		}
	}
	for _, p := range core.Players {
		require.NoError(t, b.SetBar(p, pos.Bar[p]))
		require.NoError(t, b.SetBornOff(p, pos.Off[p]))
		missing := v.Checkers - b.Total(p)
		require.GreaterOrEqual(t, missing, 0, "too many %s checkers", p)
		require.NoError(t, b.SetBornOff(p, pos.Off[p]+missing))
	}
	require.NoError(t, b.Validate())

	st := &core.State{Board: b, Turn: turn}
	if len(dice) > 0 {
		st.Dice = append([]int(nil), dice...)
	}
	return st
}

// StartState returns the standard opening position with White to play dice.
func StartState(t testing.TB, dice ...int) *core.State {
	t.Helper()
	st, err := core.NewGameState(core.StandardVariant())
	require.NoError(t, err)
	if len(dice) > 0 {
		st.Dice = append([]int(nil), dice...)
	}
	return st
}

// Seq is shorthand for building a sequence of moves for one player.
// Each move is given as {from, to, die}.
func Seq(p core.Player, moves ...[3]int) core.Sequence {
	s := make(core.Sequence, len(moves))
	for i, m := range moves {
		s[i] = core.Move{Player: p, From: m[0], To: m[1], Die: m[2]}
	}
	return s
}

// Keys returns the order-insensitive keys of a set of sequences.
func Keys(set []core.Sequence) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = s.Key()
	}
	return out
}

// ApplySequence plays seq on a copy of st without any rule checks and
// returns the copy.
func ApplySequence(t testing.TB, st *core.State, seq core.Sequence) *core.State {
	t.Helper()
	next := st.Clone()
	for _, m := range seq {
		_, err := next.Board.Apply(m)
		require.NoError(t, err, "apply %s", m)
		var ok bool
		next.Dice, ok = core.RemoveDie(next.Dice, m.Die)
		require.True(t, ok, "die %d not available for %s", m.Die, m)
	}
	return next
}
