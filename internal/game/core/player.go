package core

import "fmt"

// Player identifies one side of the board.
// White moves from high point indices towards 0; Black moves towards N-1.
type Player int8

const (
	NoPlayer Player = -1
	White    Player = 0
	Black    Player = 1
)

// Players lists both sides in turn order.
var Players = [2]Player{White, Black}

func (p Player) Valid() bool { return p == White || p == Black }

// Opponent returns the other side. NoPlayer stays NoPlayer.
func (p Player) Opponent() Player {
	switch p {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoPlayer
	}
}

// Sign is the sign used for this player's checkers in a point count.
func (p Player) Sign() int8 {
	if p == Black {
		return -1
	}
	return 1
}

func (p Player) String() string {
	switch p {
	case White:
		return "white"
	case Black:
		return "black"
	case NoPlayer:
		return "none"
	default:
		return fmt.Sprintf("Player(%d)", int8(p))
	}
}

// ParsePlayer converts "white"/"black" back to a Player.
func ParsePlayer(s string) (Player, error) {
	switch s {
	case "white", "White", "w", "W":
		return White, nil
	case "black", "Black", "b", "B":
		return Black, nil
	case "none", "":
		return NoPlayer, nil
	default:
		return NoPlayer, fmt.Errorf("%w: %q", ErrInvalidPlayer, s)
	}
}
