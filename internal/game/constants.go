package game

import (
	"time"

	"github.com/mitchelldurbincs/bgcore/internal/config"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

// DefaultVariant builds the configured board topology. An empty configured
// layout falls back to the standard starting layout.
func DefaultVariant() core.Variant {
	c := config.Get().Game.Variant
	v := core.Variant{
		Points:         c.Points,
		HomeSize:       c.HomeSize,
		Checkers:       c.Checkers,
		DieFaces:       c.DieFaces,
		DoublesUses:    c.DoublesUses,
		ForceHigherDie: c.ForceHigherDie,
	}
	if len(c.Layout) == 0 {
		v.Layout = core.StandardVariant().Layout
		return v
	}
	v.Layout = make([]core.Placement, len(c.Layout))
	for i, l := range c.Layout {
		v.Layout[i] = core.Placement{Point: l.Point, Count: l.Count}
	}
	return v
}

// Turn policy functions
func MaxChoiceRetries() int {
	return config.Get().Game.MaxChoiceRetries
}

func TurnTimeout() time.Duration {
	return config.Get().Game.TurnTimeout()
}

// DiceSeed is the configured seed; zero means seed from the clock.
func DiceSeed() int64 {
	return config.Get().Game.Seed
}
