package core

import "fmt"

// Placement puts Count checkers on Point, expressed in White's indexing.
// Black's layout is the mirror image (N-1-Point).
type Placement struct {
	Point int `json:"point" mapstructure:"point"`
	Count int `json:"count" mapstructure:"count"`
}

// Variant fixes the board topology and the dice rules for a game.
// It is set once at construction and never changes afterwards.
type Variant struct {
	Points         int         `json:"points"`
	HomeSize       int         `json:"home_size"`
	Checkers       int         `json:"checkers"`
	DieFaces       int         `json:"die_faces"`
	DoublesUses    int         `json:"doubles_uses"`
	ForceHigherDie bool        `json:"force_higher_die"`
	Layout         []Placement `json:"layout"`
}

// StandardVariant is regular backgammon: 24 points, 15 checkers, doubles played four times.
func StandardVariant() Variant {
	return Variant{
		Points:         24,
		HomeSize:       6,
		Checkers:       15,
		DieFaces:       6,
		DoublesUses:    4,
		ForceHigherDie: true,
		Layout: []Placement{
			{Point: 23, Count: 2},
			{Point: 12, Count: 5},
			{Point: 7, Count: 3},
			{Point: 5, Count: 5},
		},
	}
}

// Validate checks the topology is self-consistent.
func (v Variant) Validate() error {
	if v.Points < 2 {
		return fmt.Errorf("%w: points must be at least 2, got %d", ErrInvalidVariant, v.Points)
	}
	if v.HomeSize < 1 || v.HomeSize > v.Points {
		return fmt.Errorf("%w: home size must be in 1..%d, got %d", ErrInvalidVariant, v.Points, v.HomeSize)
	}
	if v.Checkers < 1 || v.Checkers > 127 {
		return fmt.Errorf("%w: checkers must be in 1..127, got %d", ErrInvalidVariant, v.Checkers)
	}
	if v.DieFaces < 1 || v.DieFaces > v.Points {
		return fmt.Errorf("%w: die faces must be in 1..%d, got %d", ErrInvalidVariant, v.Points, v.DieFaces)
	}
	if v.DoublesUses < 2 {
		return fmt.Errorf("%w: doubles uses must be at least 2, got %d", ErrInvalidVariant, v.DoublesUses)
	}

	total := 0
	seen := make(map[int]bool, len(v.Layout))
	for _, pl := range v.Layout {
		if pl.Point < 0 || pl.Point >= v.Points {
			return fmt.Errorf("%w: layout point %d out of range", ErrInvalidVariant, pl.Point)
		}
		if pl.Count < 1 {
			return fmt.Errorf("%w: layout count on point %d must be positive", ErrInvalidVariant, pl.Point)
		}
		if seen[pl.Point] {
			return fmt.Errorf("%w: layout point %d listed twice", ErrInvalidVariant, pl.Point)
		}
		// White's checkers on p face Black's on N-1-p; the two layouts may not overlap.
		if seen[v.Points-1-pl.Point] || pl.Point == v.Points-1-pl.Point {
			return fmt.Errorf("%w: layout point %d collides with the mirrored layout", ErrInvalidVariant, pl.Point)
		}
		seen[pl.Point] = true
		total += pl.Count
	}
	if total != v.Checkers {
		return fmt.Errorf("%w: layout places %d checkers, want %d", ErrInvalidVariant, total, v.Checkers)
	}
	return nil
}

// InHome reports whether point lies in the player's home region.
func (v Variant) InHome(p Player, point int) bool {
	if p == White {
		return point >= 0 && point < v.HomeSize
	}
	return point >= v.Points-v.HomeSize && point < v.Points
}

// ExitDistance is the number of pips a checker on point needs to bear off.
func (v Variant) ExitDistance(p Player, point int) int {
	if p == White {
		return point + 1
	}
	return v.Points - point
}

// EntryPoint is where a checker entering from the bar with die lands.
func (v Variant) EntryPoint(p Player, die int) int {
	if p == White {
		return v.Points - die
	}
	return die - 1
}

// Mirror converts a White-perspective index to the same point for Black.
func (v Variant) Mirror(point int) int {
	return v.Points - 1 - point
}
