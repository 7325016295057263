package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/events"
	"github.com/mitchelldurbincs/bgcore/internal/game/processor"
	"github.com/mitchelldurbincs/bgcore/internal/game/rules"
	"github.com/mitchelldurbincs/bgcore/internal/game/states"
	"github.com/rs/zerolog"
)

// GameConfig holds everything needed to start a game. The zero value of a
// field means "use the default", except MaxChoiceRetries and TurnTimeout,
// which are taken as given; DefaultGameConfig fills those from config.
type GameConfig struct {
	GameID  string
	Variant core.Variant
	// Players are the display names of White and Black.
	Players [2]string
	Dice    core.DiceSource
	Logger  zerolog.Logger
	// EventBus lets a host share one bus between games; nil creates one.
	EventBus *events.EventBus

	MaxChoiceRetries int
	TurnTimeout      time.Duration
}

// DefaultGameConfig returns a config with the configured variant and turn policy.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		Variant:          DefaultVariant(),
		MaxChoiceRetries: MaxChoiceRetries(),
		TurnTimeout:      TurnTimeout(),
	}
}

// EngineInitializer handles the initialization of a game engine
type EngineInitializer struct {
	config GameConfig
	logger zerolog.Logger
}

// NewEngineInitializer creates a new engine initializer
func NewEngineInitializer(cfg GameConfig) *EngineInitializer {
	return &EngineInitializer{
		config: cfg,
		logger: cfg.Logger.With().Str("component", "GameEngine").Logger(),
	}
}

// NewEngine creates a game in the starting position with White to roll.
func NewEngine(ctx context.Context, cfg GameConfig) (*Engine, error) {
	return NewEngineInitializer(cfg).Initialize(ctx)
}

// Initialize creates and initializes a new game engine
func (ei *EngineInitializer) Initialize(ctx context.Context) (*Engine, error) {
	select {
	case <-ctx.Done():
		ei.logger.Error().Err(ctx.Err()).Msg("Engine creation cancelled or timed out during initial phase")
		return nil, ctx.Err()
	default:
	}

	ei.setupDefaults()

	st, err := core.NewGameState(ei.config.Variant)
	if err != nil {
		return nil, fmt.Errorf("initial position: %w", err)
	}

	engine := ei.createEngine(st)

	if err := ei.initializeStateMachine(engine); err != nil {
		return nil, fmt.Errorf("state machine initialization failed: %w", err)
	}

	engine.eventBus.Publish(events.NewGameStartedEvent(engine.gameID, ei.config.Players, ei.config.Variant))

	ei.logger.Info().
		Str("game_id", engine.gameID).
		Int("points", ei.config.Variant.Points).
		Int("checkers", ei.config.Variant.Checkers).
		Str("white", ei.config.Players[core.White]).
		Str("black", ei.config.Players[core.Black]).
		Msg("Engine created successfully")

	return engine, nil
}

// setupDefaults sets up default values for missing configuration
func (ei *EngineInitializer) setupDefaults() {
	if ei.config.GameID == "" {
		ei.config.GameID = uuid.New().String()
	}
	ei.logger = ei.logger.With().Str("game_id", ei.config.GameID).Logger()

	if ei.config.Variant.Points == 0 {
		ei.config.Variant = DefaultVariant()
	}
	if ei.config.Dice == nil {
		if seed := DiceSeed(); seed != 0 {
			ei.logger.Debug().Int64("seed", seed).Msg("Using configured dice seed")
			ei.config.Dice = core.NewSeededSource(seed)
		} else {
			ei.logger.Debug().Msg("No dice source provided, seeding from the clock")
			ei.config.Dice = core.NewRandSource(nil)
		}
	}
	if ei.config.Players[core.White] == "" {
		ei.config.Players[core.White] = core.White.String()
	}
	if ei.config.Players[core.Black] == "" {
		ei.config.Players[core.Black] = core.Black.String()
	}
	if ei.config.MaxChoiceRetries < 0 {
		ei.config.MaxChoiceRetries = 0
	}
}

// createEngine creates the engine with all its components
func (ei *EngineInitializer) createEngine(st *core.State) *Engine {
	eventBus := ei.config.EventBus
	if eventBus == nil {
		eventBus = events.NewEventBusWithLogger(ei.logger)
	}

	gameContext := states.NewGameContext(ei.config.GameID, ei.logger)
	stateMachine := states.NewStateMachine(gameContext, eventBus)

	engine := &Engine{
		gameID:       ei.config.GameID,
		logger:       ei.logger,
		state:        st,
		dice:         ei.config.Dice,
		generator:    rules.NewMoveGenerator(),
		executor:     processor.NewExecutor(ei.logger),
		winCondition: rules.NewWinConditionChecker(ei.logger),
		eventBus:     eventBus,
		stateMachine: stateMachine,
		outcome:      rules.Outcome{Winner: core.NoPlayer},
		maxRetries:   ei.config.MaxChoiceRetries,
		turnTimeout:  ei.config.TurnTimeout,
	}
	for _, p := range core.Players {
		engine.players[p] = &PlayerProfile{
			ID:   uuid.New().String(),
			Name: ei.config.Players[p],
			Side: p,
		}
	}

	engine.turnProcessor = NewTurnProcessor(engine)
	return engine
}

// initializeStateMachine puts the player on turn into the game context
func (ei *EngineInitializer) initializeStateMachine(engine *Engine) error {
	gameContext := engine.stateMachine.GetContext()
	gameContext.Turn = engine.state.Turn
	gameContext.Winner = core.NoPlayer

	if engine.stateMachine.CurrentPhase() != states.PhaseAwaitingRoll {
		return fmt.Errorf("new game starts in %s, want %s", engine.stateMachine.CurrentPhase(), states.PhaseAwaitingRoll)
	}
	return nil
}
