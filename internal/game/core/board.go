package core

import "fmt"

// Board holds checker placement for both players.
// points[i] > 0 means White checkers on i, < 0 means Black checkers.
// A point never holds both colours at once.
type Board struct {
	variant Variant
	points  []int8
	bar     [2]int8
	off     [2]int8
}

// NewBoard returns an empty board for the given variant.
func NewBoard(v Variant) (*Board, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &Board{variant: v, points: make([]int8, v.Points)}, nil
}

// StartingBoard returns the variant's canonical opening layout.
func StartingBoard(v Variant) (*Board, error) {
	b, err := NewBoard(v)
	if err != nil {
		return nil, err
	}
	for _, pl := range v.Layout {
		b.points[pl.Point] = int8(pl.Count)
		b.points[v.Mirror(pl.Point)] = -int8(pl.Count)
	}
	return b, nil
}

func (b *Board) Variant() Variant { return b.variant }
func (b *Board) Len() int         { return len(b.points) }

func (b *Board) inBounds(point int) bool { return point >= 0 && point < len(b.points) }

// PieceCount returns how many of p's checkers sit on point.
func (b *Board) PieceCount(point int, p Player) int {
	if !b.inBounds(point) || !p.Valid() {
		return 0
	}
	n := b.points[point] * p.Sign()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Owner returns who holds point and how many checkers are there.
func (b *Board) Owner(point int) (Player, int) {
	if !b.inBounds(point) {
		return NoPlayer, 0
	}
	switch n := b.points[point]; {
	case n > 0:
		return White, int(n)
	case n < 0:
		return Black, int(-n)
	default:
		return NoPlayer, 0
	}
}

// IsOwnedBy reports whether p has at least one checker on point.
func (b *Board) IsOwnedBy(point int, p Player) bool {
	return b.PieceCount(point, p) > 0
}

// IsBlockedFor reports whether point is held by two or more of p's opponent's checkers.
func (b *Board) IsBlockedFor(point int, p Player) bool {
	return b.PieceCount(point, p.Opponent()) >= 2
}

func (b *Board) BarCount(p Player) int {
	if !p.Valid() {
		return 0
	}
	return int(b.bar[p])
}

func (b *Board) BornOff(p Player) int {
	if !p.Valid() {
		return 0
	}
	return int(b.off[p])
}

// OnBoard counts p's checkers on points only.
func (b *Board) OnBoard(p Player) int {
	total := 0
	for i := range b.points {
		total += b.PieceCount(i, p)
	}
	return total
}

// Total counts all of p's checkers: points, bar and borne off.
func (b *Board) Total(p Player) int {
	return b.OnBoard(p) + b.BarCount(p) + b.BornOff(p)
}

// PipCount is the total distance p still has to travel to bear everything off.
func (b *Board) PipCount(p Player) int {
	pips := b.BarCount(p) * (b.variant.Points + 1)
	for i := range b.points {
		if n := b.PieceCount(i, p); n > 0 {
			pips += n * b.variant.ExitDistance(p, i)
		}
	}
	return pips
}

// AllHome reports whether every checker p still has in play is inside the home region.
func (b *Board) AllHome(p Player) bool {
	if b.BarCount(p) > 0 {
		return false
	}
	for i := range b.points {
		if b.PieceCount(i, p) > 0 && !b.variant.InHome(p, i) {
			return false
		}
	}
	return true
}

// FarthestDistance is the exit distance of p's farthest checker on the board, 0 if none.
func (b *Board) FarthestDistance(p Player) int {
	farthest := 0
	for i := range b.points {
		if b.PieceCount(i, p) > 0 {
			if d := b.variant.ExitDistance(p, i); d > farthest {
				farthest = d
			}
		}
	}
	return farthest
}

// Place sets point to hold count checkers of p. It is a setup primitive for
// building positions and restoring snapshots, not a game move.
func (b *Board) Place(point int, p Player, count int) error {
	if !b.inBounds(point) {
		return fmt.Errorf("%w: point %d out of range", ErrIllegalStateTransition, point)
	}
	if !p.Valid() && count != 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPlayer, p)
	}
	if count < 0 || count > 127 {
		return fmt.Errorf("%w: count %d out of range", ErrIllegalStateTransition, count)
	}
	if count == 0 {
		b.points[point] = 0
		return nil
	}
	b.points[point] = int8(count) * p.Sign()
	return nil
}

// SetBar sets p's bar counter. Setup primitive.
func (b *Board) SetBar(p Player, count int) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidPlayer, p)
	}
	if count < 0 || count > 127 {
		return fmt.Errorf("%w: bar count %d out of range", ErrIllegalStateTransition, count)
	}
	b.bar[p] = int8(count)
	return nil
}

// SetBornOff sets p's borne-off counter. Setup primitive.
func (b *Board) SetBornOff(p Player, count int) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidPlayer, p)
	}
	if count < 0 || count > 127 {
		return fmt.Errorf("%w: off count %d out of range", ErrIllegalStateTransition, count)
	}
	b.off[p] = int8(count)
	return nil
}

// Apply relocates exactly one checker. A lone opposing checker on the
// destination is sent to its bar; hit reports whether that happened.
// Apply does not judge dice or turn order, only occupancy. On error the
// board is left untouched.
func (b *Board) Apply(m Move) (hit bool, err error) {
	p := m.Player
	if !p.Valid() {
		return false, fmt.Errorf("%w: %w", ErrIllegalStateTransition, ErrInvalidPlayer)
	}
	if m.From == m.To {
		return false, fmt.Errorf("%w: origin equals destination", ErrIllegalStateTransition)
	}

	switch {
	case m.From == Bar:
		if b.bar[p] == 0 {
			return false, fmt.Errorf("%w: %s has no checker on the bar", ErrIllegalStateTransition, p)
		}
	case b.inBounds(m.From):
		if b.PieceCount(m.From, p) == 0 {
			return false, fmt.Errorf("%w: %s has no checker on point %d", ErrIllegalStateTransition, p, m.From)
		}
	default:
		return false, fmt.Errorf("%w: invalid origin %d", ErrIllegalStateTransition, m.From)
	}

	switch {
	case m.To == Off:
	case b.inBounds(m.To):
		if b.IsBlockedFor(m.To, p) {
			return false, fmt.Errorf("%w: point %d is blocked for %s", ErrIllegalStateTransition, m.To, p)
		}
		hit = b.PieceCount(m.To, p.Opponent()) == 1
	default:
		return false, fmt.Errorf("%w: invalid destination %d", ErrIllegalStateTransition, m.To)
	}

	if m.From == Bar {
		b.bar[p]--
	} else {
		b.points[m.From] -= p.Sign()
	}

	if m.To == Off {
		b.off[p]++
		return false, nil
	}
	if hit {
		b.points[m.To] = 0
		b.bar[p.Opponent()]++
	}
	b.points[m.To] += p.Sign()
	return hit, nil
}

// Revert undoes a move previously applied with Apply, restoring a hit
// checker when hit is true. On error the board is left untouched.
func (b *Board) Revert(m Move, hit bool) error {
	p := m.Player
	if !p.Valid() {
		return fmt.Errorf("%w: %w", ErrIllegalStateTransition, ErrInvalidPlayer)
	}

	switch {
	case m.To == Off:
		if b.off[p] == 0 {
			return fmt.Errorf("%w: %s has nothing borne off", ErrIllegalStateTransition, p)
		}
		if hit {
			return fmt.Errorf("%w: a bear-off cannot hit", ErrIllegalStateTransition)
		}
	case b.inBounds(m.To):
		if b.PieceCount(m.To, p) == 0 {
			return fmt.Errorf("%w: %s has no checker on point %d", ErrIllegalStateTransition, p, m.To)
		}
		if hit && (b.PieceCount(m.To, p) != 1 || b.bar[p.Opponent()] == 0) {
			return fmt.Errorf("%w: cannot restore hit checker on point %d", ErrIllegalStateTransition, m.To)
		}
	default:
		return fmt.Errorf("%w: invalid destination %d", ErrIllegalStateTransition, m.To)
	}

	switch {
	case m.From == Bar:
	case b.inBounds(m.From):
		if b.PieceCount(m.From, p.Opponent()) > 0 {
			return fmt.Errorf("%w: point %d is occupied by %s", ErrIllegalStateTransition, m.From, p.Opponent())
		}
	default:
		return fmt.Errorf("%w: invalid origin %d", ErrIllegalStateTransition, m.From)
	}

	if m.To == Off {
		b.off[p]--
	} else {
		b.points[m.To] -= p.Sign()
		if hit {
			b.points[m.To] = p.Opponent().Sign()
			b.bar[p.Opponent()]--
		}
	}

	if m.From == Bar {
		b.bar[p]++
	} else {
		b.points[m.From] += p.Sign()
	}
	return nil
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	c := &Board{
		variant: b.variant,
		points:  make([]int8, len(b.points)),
		bar:     b.bar,
		off:     b.off,
	}
	copy(c.points, b.points)
	return c
}

// Equal compares checker placement. The variants are assumed identical when
// the point counts match.
func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	if len(b.points) != len(o.points) || b.bar != o.bar || b.off != o.off {
		return false
	}
	for i := range b.points {
		if b.points[i] != o.points[i] {
			return false
		}
	}
	return true
}

// Validate checks the board invariants: non-negative counters and
// per-player conservation of checkers.
func (b *Board) Validate() error {
	for _, p := range Players {
		if b.bar[p] < 0 || b.off[p] < 0 {
			return fmt.Errorf("%w: negative counter for %s", ErrIllegalStateTransition, p)
		}
		if total := b.Total(p); total != b.variant.Checkers {
			return fmt.Errorf("%w: %s has %d checkers, want %d", ErrIllegalStateTransition, p, total, b.variant.Checkers)
		}
	}
	return nil
}

// RawPoints returns a copy of the signed point counts.
func (b *Board) RawPoints() []int8 {
	out := make([]int8, len(b.points))
	copy(out, b.points)
	return out
}
