package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Special move locations. Board points use 0..N-1.
const (
	Bar = -1 // origin only: a checker re-entering from the bar
	Off = -2 // destination only: a checker bearing off
)

// Move relocates one checker by one die. Moves are values; equality is structural.
type Move struct {
	Player Player `json:"player"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	Die    int    `json:"die"`
}

// Less orders moves by origin, then destination, then die.
func (m Move) Less(o Move) bool {
	if m.From != o.From {
		return m.From < o.From
	}
	if m.To != o.To {
		return m.To < o.To
	}
	return m.Die < o.Die
}

// String renders the move with raw board indices, e.g. "white 12->9 (3)".
func (m Move) String() string {
	return fmt.Sprintf("%s %s->%s (%d)", m.Player, locationString(m.From), locationString(m.To), m.Die)
}

func locationString(loc int) string {
	switch loc {
	case Bar:
		return "bar"
	case Off:
		return "off"
	default:
		return strconv.Itoa(loc)
	}
}

// Notation renders the move in conventional 1-based notation from the mover's
// point of view ("13/10", "bar/22", "6/off").
func (m Move) Notation(v Variant) string {
	return notationPoint(v, m.Player, m.From) + "/" + notationPoint(v, m.Player, m.To)
}

func notationPoint(v Variant, p Player, loc int) string {
	switch loc {
	case Bar:
		return "bar"
	case Off:
		return "off"
	}
	if p == Black {
		return strconv.Itoa(v.Points - loc)
	}
	return strconv.Itoa(loc + 1)
}

// ParseNotationPoint is the inverse of the notation used by Move.Notation.
func ParseNotationPoint(v Variant, p Player, s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bar":
		return Bar, nil
	case "off":
		return Off, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid point %q: %w", s, err)
	}
	if n < 1 || n > v.Points {
		return 0, fmt.Errorf("point %d out of range 1..%d", n, v.Points)
	}
	if p == Black {
		return v.Points - n, nil
	}
	return n - 1, nil
}

// Sequence is the ordered list of moves that make up one turn.
type Sequence []Move

// Dice returns the die values consumed by the sequence, in play order.
func (s Sequence) Dice() []int {
	out := make([]int, len(s))
	for i, m := range s {
		out[i] = m.Die
	}
	return out
}

// Pips is the sum of the die values consumed.
func (s Sequence) Pips() int {
	total := 0
	for _, m := range s {
		total += m.Die
	}
	return total
}

// Equal reports element-wise equality, order included.
func (s Sequence) Equal(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Less compares two sequences lexicographically move by move; shorter prefixes sort first.
func (s Sequence) Less(o Sequence) bool {
	for i := 0; i < len(s) && i < len(o); i++ {
		if s[i] != o[i] {
			return s[i].Less(o[i])
		}
	}
	return len(s) < len(o)
}

// Key identifies the turn regardless of move order. Two legal orderings of the
// same moves reach the same position and count as one choice.
func (s Sequence) Key() string {
	sorted := make(Sequence, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	var sb strings.Builder
	for i, m := range sorted {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d:%d>%d/%d", m.Player, m.From, m.To, m.Die)
	}
	return sb.String()
}

// Notation renders the whole turn, e.g. "13/10 13/8".
func (s Sequence) Notation(v Variant) string {
	if len(s) == 0 {
		return "(no move)"
	}
	parts := make([]string, len(s))
	for i, m := range s {
		parts[i] = m.Notation(v)
	}
	return strings.Join(parts, " ")
}

func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, m := range s {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// IndexOf finds s in set by Key; -1 when absent.
func IndexOf(set []Sequence, s Sequence) int {
	key := s.Key()
	for i, c := range set {
		if len(c) == len(s) && c.Key() == key {
			return i
		}
	}
	return -1
}
