package core

// State is the full game position: the board, whose turn it is, the dice
// still to be played this turn, and how far the game has progressed.
// Committed states are treated as immutable; changes go through Clone.
type State struct {
	Board *Board
	Turn  Player
	// Dice holds the remaining die uses for the turn in progress, highest first.
	Dice []int
	// TurnNumber counts committed turns.
	TurnNumber int
	// HistoryLen is the number of committed sequences in the history ledger.
	HistoryLen int
}

// NewGameState returns the canonical starting position with White to roll.
func NewGameState(v Variant) (*State, error) {
	b, err := StartingBoard(v)
	if err != nil {
		return nil, err
	}
	return &State{Board: b, Turn: White}, nil
}

func (s *State) Variant() Variant { return s.Board.Variant() }

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.Board = s.Board.Clone()
	if s.Dice != nil {
		c.Dice = append([]int(nil), s.Dice...)
	}
	return &c
}

// Equal compares every field, dice as an ordered list.
func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Turn != o.Turn || s.TurnNumber != o.TurnNumber || s.HistoryLen != o.HistoryLen {
		return false
	}
	if len(s.Dice) != len(o.Dice) {
		return false
	}
	for i := range s.Dice {
		if s.Dice[i] != o.Dice[i] {
			return false
		}
	}
	return s.Board.Equal(o.Board)
}
