package states

import (
	"time"

	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/rs/zerolog"
)

// GameContext provides game-specific information to states for making decisions
type GameContext struct {
	// GameID uniquely identifies this game instance
	GameID string

	// Logger for state-specific logging
	Logger zerolog.Logger

	// Turn is the player whose turn is in progress
	Turn core.Player

	// Dice holds the die uses of the pending roll
	Dice []int

	// LegalCount is the size of the legal set for the pending roll
	LegalCount int

	// StartTime is when the game was created
	StartTime time.Time

	// EndTime is when PhaseGameOver was entered
	EndTime time.Time

	// Winner is the player who bore off first, NoPlayer while the game runs
	Winner core.Player

	// Error holds the last error that interrupted a turn
	Error error

	// Metadata for custom state data
	Metadata map[string]interface{}
}

// NewGameContext creates a new game context
func NewGameContext(gameID string, logger zerolog.Logger) *GameContext {
	return &GameContext{
		GameID:    gameID,
		Logger:    logger.With().Str("game_id", gameID).Logger(),
		Turn:      core.White,
		Winner:    core.NoPlayer,
		StartTime: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// GetElapsedTime returns the time since the game started, up to its end if it ended
func (gc *GameContext) GetElapsedTime() time.Duration {
	if gc.StartTime.IsZero() {
		return 0
	}
	if !gc.EndTime.IsZero() {
		return gc.EndTime.Sub(gc.StartTime)
	}
	return time.Since(gc.StartTime)
}

// SetMetadata stores custom data for states
func (gc *GameContext) SetMetadata(key string, value interface{}) {
	gc.Metadata[key] = value
}

// GetMetadata retrieves custom data stored by states
func (gc *GameContext) GetMetadata(key string) (interface{}, bool) {
	val, exists := gc.Metadata[key]
	return val, exists
}
