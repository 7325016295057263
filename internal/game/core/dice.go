package core

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// DiceSource yields die faces in 1..faces. Controllers never touch a global
// random source; they are handed one of these.
type DiceSource interface {
	NextDie(faces int) int
}

// RandSource draws dice from a seeded math/rand generator.
type RandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSource creates a source from rng; nil seeds from the clock.
func NewRandSource(rng *rand.Rand) *RandSource {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandSource{rng: rng}
}

// NewSeededSource is shorthand for a reproducible source.
func NewSeededSource(seed int64) *RandSource {
	return NewRandSource(rand.New(rand.NewSource(seed)))
}

func (s *RandSource) NextDie(faces int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(faces) + 1
}

// FixedSource replays a preset list of faces, cycling when exhausted.
type FixedSource struct {
	mu    sync.Mutex
	faces []int
	pos   int
}

func NewFixedSource(faces ...int) *FixedSource {
	return &FixedSource{faces: faces}
}

func (s *FixedSource) NextDie(faces int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.faces) == 0 {
		return 1
	}
	f := s.faces[s.pos%len(s.faces)]
	s.pos++
	if f < 1 {
		f = 1
	}
	if f > faces {
		f = faces
	}
	return f
}

// ExpandRoll turns a two-dice roll into the die uses available this turn,
// highest first. Doubles are played v.DoublesUses times.
func ExpandRoll(v Variant, d1, d2 int) []int {
	if d1 == d2 {
		uses := make([]int, v.DoublesUses)
		for i := range uses {
			uses[i] = d1
		}
		return uses
	}
	if d1 < d2 {
		d1, d2 = d2, d1
	}
	return []int{d1, d2}
}

// RemoveDie returns dice without one occurrence of die. ok is false when die is absent.
func RemoveDie(dice []int, die int) (rest []int, ok bool) {
	for i, d := range dice {
		if d == die {
			rest = make([]int, 0, len(dice)-1)
			rest = append(rest, dice[:i]...)
			rest = append(rest, dice[i+1:]...)
			return rest, true
		}
	}
	return dice, false
}

// HasDie reports whether die is still available.
func HasDie(dice []int, die int) bool {
	for _, d := range dice {
		if d == die {
			return true
		}
	}
	return false
}

// DistinctDice returns the distinct die values in ascending order.
func DistinctDice(dice []int) []int {
	out := make([]int, 0, 2)
	for _, d := range dice {
		if !HasDie(out, d) {
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out
}

// SameDice compares two dice lists as multisets.
func SameDice(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]int(nil), a...)
	y := append([]int(nil), b...)
	sort.Ints(x)
	sort.Ints(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
