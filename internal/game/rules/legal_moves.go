package rules

import (
	"iter"
	"slices"
	"sort"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

// MoveGenerator enumerates legal turns, using IsLegal as its oracle.
type MoveGenerator struct{}

// NewMoveGenerator creates a new move generator
func NewMoveGenerator() *MoveGenerator {
	return &MoveGenerator{}
}

// ForRoll expands a two-dice roll (doubles included) and generates the legal turns.
func (g *MoveGenerator) ForRoll(st *core.State, d1, d2 int) []core.Sequence {
	return g.LegalSequences(st, core.ExpandRoll(st.Variant(), d1, d2))
}

// LegalSequences collects Sequences into a slice.
func (g *MoveGenerator) LegalSequences(st *core.State, dice []int) []core.Sequence {
	return slices.Collect(g.Sequences(st, dice))
}

// Sequences lazily yields every legal turn for the player on turn in st with
// the given die uses (already expanded for doubles).
//
// Only turns that use as many dice as possible are produced; with
// ForceHigherDie they must also use the highest pip total, so a lone playable
// die has to be the larger one. Reorderings of the same moves are yielded
// once, in their smallest legal order, and the output is sorted
// lexicographically by origin, destination and die. An empty result means
// the player cannot move.
//
// st is never modified; the search runs on a private copy with apply/revert
// rollback. The returned sequence is single-use.
func (g *MoveGenerator) Sequences(st *core.State, dice []int) iter.Seq[core.Sequence] {
	used := false
	return func(yield func(core.Sequence) bool) {
		if used {
			return
		}
		used = true

		s := newSearch(st, dice)
		s.measure(0, 0)
		if s.bestDepth == 0 {
			return
		}
		s.emit(0, 0, yield)
	}
}

// CanMove reports whether at least one die can be played.
func (g *MoveGenerator) CanMove(st *core.State, dice []int) bool {
	s := newSearch(st, dice)
	return len(s.candidates()) > 0
}

type search struct {
	st        *core.State
	force     bool
	total     int
	totalPips int

	bestDepth int
	bestPips  int

	path core.Sequence
	seen map[string]struct{}
}

func newSearch(st *core.State, dice []int) *search {
	scratch := st.Clone()
	scratch.Dice = append([]int(nil), dice...)
	pips := 0
	for _, d := range dice {
		pips += d
	}
	return &search{
		st:        scratch,
		force:     st.Variant().ForceHigherDie,
		total:     len(dice),
		totalPips: pips,
		path:      make(core.Sequence, 0, len(dice)),
		seen:      make(map[string]struct{}),
	}
}

// candidates lists the legal single moves from the current scratch state, sorted.
func (s *search) candidates() []core.Move {
	v := s.st.Variant()
	p := s.st.Turn
	dice := core.DistinctDice(s.st.Dice)

	origins := make([]int, 0, 8)
	if s.st.Board.BarCount(p) > 0 {
		origins = append(origins, core.Bar)
	} else {
		for i := 0; i < v.Points; i++ {
			if s.st.Board.IsOwnedBy(i, p) {
				origins = append(origins, i)
			}
		}
	}

	var out []core.Move
	for _, from := range origins {
		for _, die := range dice {
			m := core.Move{Player: p, From: from, To: Destination(v, p, from, die), Die: die}
			if IsLegal(s.st, m) {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// play applies m to the scratch state; the returned func reverts it.
func (s *search) play(m core.Move) (undo func(), ok bool) {
	hit, err := s.st.Board.Apply(m)
	if err != nil {
		return nil, false
	}
	prev := s.st.Dice
	s.st.Dice, _ = core.RemoveDie(prev, m.Die)
	return func() {
		s.st.Dice = prev
		// Revert cannot fail for a move Apply just accepted.
		_ = s.st.Board.Revert(m, hit)
	}, true
}

func (s *search) better(depth, pips int) bool {
	if depth != s.bestDepth {
		return depth > s.bestDepth
	}
	return s.force && pips > s.bestPips
}

func (s *search) complete() bool {
	return s.bestDepth == s.total && (!s.force || s.bestPips == s.totalPips)
}

// measure finds the deepest reachable depth (and pip total) by exhaustive search.
// It stops as soon as every die has been shown usable.
func (s *search) measure(depth, pips int) {
	if s.better(depth, pips) {
		s.bestDepth, s.bestPips = depth, pips
	}
	if s.complete() {
		return
	}
	for _, m := range s.candidates() {
		undo, ok := s.play(m)
		if !ok {
			continue
		}
		s.measure(depth+1, pips+m.Die)
		undo()
		if s.complete() {
			return
		}
	}
}

// emit walks the tree again in sorted order and yields the maximal turns.
func (s *search) emit(depth, pips int, yield func(core.Sequence) bool) bool {
	if depth == s.bestDepth {
		if s.force && pips != s.bestPips {
			return true
		}
		key := s.path.Key()
		if _, dup := s.seen[key]; dup {
			return true
		}
		s.seen[key] = struct{}{}
		out := make(core.Sequence, len(s.path))
		copy(out, s.path)
		return yield(out)
	}
	for _, m := range s.candidates() {
		undo, ok := s.play(m)
		if !ok {
			continue
		}
		s.path = append(s.path, m)
		cont := s.emit(depth+1, pips+m.Die, yield)
		s.path = s.path[:len(s.path)-1]
		undo()
		if !cont {
			return false
		}
	}
	return true
}
