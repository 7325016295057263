package core

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the stable logical schema of a State. It round-trips losslessly
// through FromSnapshot.
type Snapshot struct {
	Variant    Variant `json:"variant"`
	Points     []int   `json:"points"` // signed: positive White, negative Black
	Bar        [2]int  `json:"bar"`
	Off        [2]int  `json:"off"`
	Turn       Player  `json:"turn"`
	Dice       []int   `json:"dice"`
	TurnNumber int     `json:"turn_number"`
	HistoryLen int     `json:"history_len"`
}

// Snapshot projects the state into its logical schema.
func (s *State) Snapshot() Snapshot {
	raw := s.Board.RawPoints()
	points := make([]int, len(raw))
	for i, n := range raw {
		points[i] = int(n)
	}
	dice := make([]int, len(s.Dice))
	copy(dice, s.Dice)
	return Snapshot{
		Variant:    s.Variant(),
		Points:     points,
		Bar:        [2]int{s.Board.BarCount(White), s.Board.BarCount(Black)},
		Off:        [2]int{s.Board.BornOff(White), s.Board.BornOff(Black)},
		Turn:       s.Turn,
		Dice:       dice,
		TurnNumber: s.TurnNumber,
		HistoryLen: s.HistoryLen,
	}
}

// FromSnapshot rebuilds a State and checks its invariants.
func FromSnapshot(snap Snapshot) (*State, error) {
	b, err := NewBoard(snap.Variant)
	if err != nil {
		return nil, err
	}
	if len(snap.Points) != snap.Variant.Points {
		return nil, fmt.Errorf("%w: snapshot has %d points, variant wants %d", ErrIllegalStateTransition, len(snap.Points), snap.Variant.Points)
	}
	for i, n := range snap.Points {
		switch {
		case n > 0:
			err = b.Place(i, White, n)
		case n < 0:
			err = b.Place(i, Black, -n)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, p := range Players {
		if err := b.SetBar(p, snap.Bar[p]); err != nil {
			return nil, err
		}
		if err := b.SetBornOff(p, snap.Off[p]); err != nil {
			return nil, err
		}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if !snap.Turn.Valid() {
		return nil, fmt.Errorf("%w: snapshot turn %s", ErrInvalidPlayer, snap.Turn)
	}
	if snap.TurnNumber < 0 || snap.HistoryLen < 0 {
		return nil, fmt.Errorf("%w: negative turn number %d or history length %d",
			ErrIllegalStateTransition, snap.TurnNumber, snap.HistoryLen)
	}
	if !rollRemainder(snap.Variant, snap.Dice) {
		return nil, fmt.Errorf("%w: dice %v cannot come from one roll", ErrIllegalStateTransition, snap.Dice)
	}
	var dice []int
	if len(snap.Dice) > 0 {
		dice = append([]int(nil), snap.Dice...)
	}
	return &State{
		Board:      b,
		Turn:       snap.Turn,
		Dice:       dice,
		TurnNumber: snap.TurnNumber,
		HistoryLen: snap.HistoryLen,
	}, nil
}

// rollRemainder reports whether dice is what is left of a single roll: up to
// DoublesUses equal faces, or at most two different ones.
func rollRemainder(v Variant, dice []int) bool {
	for _, d := range dice {
		if d < 1 || d > v.DieFaces {
			return false
		}
	}
	switch {
	case len(dice) <= 1:
		return true
	case len(dice) == 2 && dice[0] != dice[1]:
		return true
	}
	if len(dice) > v.DoublesUses {
		return false
	}
	for _, d := range dice[1:] {
		if d != dice[0] {
			return false
		}
	}
	return true
}

// MarshalText renders players as "white"/"black" in JSON.
func (p Player) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Player) UnmarshalText(text []byte) error {
	parsed, err := ParsePlayer(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalSnapshot is a convenience for hosting layers that persist JSON.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
