// Package players holds the adapters that pick one sequence out of a legal
// set. The engine only sees the Chooser interface; it never asks which kind
// of player it is talking to.
package players

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
)

// ErrNoChoices is returned when a chooser is handed an empty legal set.
var ErrNoChoices = errors.New("no legal sequences to choose from")

// Chooser picks a sequence for the player on turn in st. legal is the full
// legal set for the pending roll and is never empty when called by the
// engine. st and legal must not be modified. A returned sequence outside
// legal is rejected and the chooser is asked again.
type Chooser interface {
	Choose(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error)
}

// FuncChooser adapts a function to the Chooser interface.
type FuncChooser func(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error)

func (f FuncChooser) Choose(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
	return f(ctx, st, legal)
}

// RandomChooser picks uniformly from the legal set.
type RandomChooser struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomChooser creates a random chooser; nil rng seeds from the clock.
func NewRandomChooser(rng *rand.Rand) *RandomChooser {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomChooser{rng: rng}
}

func (r *RandomChooser) Choose(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(legal) == 0 {
		return nil, ErrNoChoices
	}
	r.mu.Lock()
	idx := r.rng.Intn(len(legal))
	r.mu.Unlock()
	return legal[idx], nil
}
