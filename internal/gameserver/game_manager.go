// Package gameserver hosts independent games side by side. Each game is an
// engine keyed by UUID; the manager enforces a capacity limit, drops idle
// games and hands finished games to an optional archive.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/bgcore/internal/config"
	"github.com/mitchelldurbincs/bgcore/internal/game"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/events"
	"github.com/mitchelldurbincs/bgcore/internal/game/events/subscribers"
	"github.com/mitchelldurbincs/bgcore/internal/game/players"
	"github.com/mitchelldurbincs/bgcore/internal/game/states"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrAtCapacity   = errors.New("server at capacity")
)

// Archive stores finished games. Implementations must be safe for
// concurrent use. history holds the sequences committed since the engine
// was created or last restored; the snap.HistoryLen-len(history) sequences
// before them are not available.
type Archive interface {
	ArchiveGame(ctx context.Context, snap game.Snapshot, history []core.Sequence) error
}

type gameInstance struct {
	id     string
	engine *game.Engine
	mu     sync.Mutex // guards the fields below; the engine has its own lock

	// Activity tracking for cleanup
	createdAt    time.Time
	lastActivity time.Time
	archived     bool

	// Idempotency tracking
	idempotencyManager *IdempotencyManager
}

func (g *gameInstance) touch() {
	g.mu.Lock()
	g.lastActivity = time.Now()
	g.mu.Unlock()
}

// GameSummary describes a hosted game for listings
type GameSummary struct {
	ID           string
	Players      [2]string
	Phase        states.GamePhase
	Turn         core.Player
	TurnNumber   int
	Winner       core.Player
	CreatedAt    time.Time
	LastActivity time.Time
}

// ManagerConfig configures a GameManager. A zero MaxGames means unlimited;
// a zero CleanupInterval disables the background cleanup.
type ManagerConfig struct {
	MaxGames        int
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	// NewGameConfig returns the engine settings for each new game.
	NewGameConfig func() game.GameConfig
	Archive       Archive
	// DevModeEvents attaches a verbose event logger to every game.
	DevModeEvents bool
	Logger        zerolog.Logger
}

// DefaultManagerConfig reads the server section of the configuration
func DefaultManagerConfig() ManagerConfig {
	c := config.Get()
	return ManagerConfig{
		MaxGames:        c.Server.MaxGames,
		IdleTimeout:     c.Server.IdleTimeout(),
		CleanupInterval: c.Server.CleanupInterval(),
		NewGameConfig:   game.DefaultGameConfig,
		DevModeEvents:   c.Development.DevModeEvents,
		Logger:          log.Logger,
	}
}

// GameManager manages all active game instances
type GameManager struct {
	mu       sync.RWMutex
	games    map[string]*gameInstance
	cfg      ManagerConfig
	logger   zerolog.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

// NewGameManager creates a new game manager and starts its cleanup loop
func NewGameManager(cfg ManagerConfig) *GameManager {
	if cfg.NewGameConfig == nil {
		cfg.NewGameConfig = game.DefaultGameConfig
	}
	gm := &GameManager{
		games:  make(map[string]*gameInstance),
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "GameManager").Logger(),
		stop:   make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go gm.runCleanup()
	}
	return gm
}

// Close stops the cleanup loop. Hosted games stay readable.
func (gm *GameManager) Close() {
	gm.stopOnce.Do(func() { close(gm.stop) })
}

// NewGame starts a game between the named players and returns its ID and
// initial snapshot.
func (gm *GameManager) NewGame(ctx context.Context, names [2]string) (string, game.Snapshot, error) {
	if err := gm.checkCapacity(); err != nil {
		return "", game.Snapshot{}, err
	}

	gameID := uuid.New().String()
	gameCfg := gm.cfg.NewGameConfig()
	gameCfg.GameID = gameID
	gameCfg.Players = names
	gameCfg.Logger = gm.cfg.Logger
	gameCfg.EventBus = events.NewEventBusWithLogger(gm.cfg.Logger)
	if gm.cfg.DevModeEvents {
		sub := subscribers.NewLoggerSubscriber("dev-logger-"+gameID, gm.cfg.Logger, zerolog.DebugLevel)
		sub.SetDevMode(true)
		gameCfg.EventBus.Subscribe(sub)
	}

	engine, err := game.NewEngine(ctx, gameCfg)
	if err != nil {
		return "", game.Snapshot{}, fmt.Errorf("create game: %w", err)
	}

	now := time.Now()
	inst := &gameInstance{
		id:                 gameID,
		engine:             engine,
		createdAt:          now,
		lastActivity:       now,
		idempotencyManager: NewIdempotencyManager(),
	}

	gm.mu.Lock()
	if gm.cfg.MaxGames > 0 && len(gm.games) >= gm.cfg.MaxGames {
		current := len(gm.games)
		gm.mu.Unlock()
		return "", game.Snapshot{}, fmt.Errorf("%w: %d/%d games active", ErrAtCapacity, current, gm.cfg.MaxGames)
	}
	gm.games[gameID] = inst
	currentCount := len(gm.games)
	gm.mu.Unlock()

	gm.logger.Info().
		Str("game_id", gameID).
		Int("current_games", currentCount).
		Int("max_games", gm.cfg.MaxGames).
		Str("white", names[core.White]).
		Str("black", names[core.Black]).
		Msg("Successfully created new game")

	return gameID, engine.Snapshot(), nil
}

func (gm *GameManager) checkCapacity() error {
	gm.mu.RLock()
	currentGames := len(gm.games)
	gm.mu.RUnlock()

	if gm.cfg.MaxGames > 0 && currentGames >= gm.cfg.MaxGames {
		gm.logger.Warn().
			Int("current_games", currentGames).
			Int("max_games", gm.cfg.MaxGames).
			Msg("Rejecting game creation - server at capacity")
		return fmt.Errorf("%w: %d/%d games active", ErrAtCapacity, currentGames, gm.cfg.MaxGames)
	}
	return nil
}

func (gm *GameManager) getGame(gameID string) (*gameInstance, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	g, exists := gm.games[gameID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g, nil
}

// Engine returns the engine of a hosted game
func (gm *GameManager) Engine(gameID string) (*game.Engine, error) {
	g, err := gm.getGame(gameID)
	if err != nil {
		return nil, err
	}
	return g.engine, nil
}

// GetState returns the current snapshot of a game
func (gm *GameManager) GetState(gameID string) (game.Snapshot, error) {
	g, err := gm.getGame(gameID)
	if err != nil {
		return game.Snapshot{}, err
	}
	return g.engine.Snapshot(), nil
}

// Roll rolls for the player on turn
func (gm *GameManager) Roll(gameID string) ([]int, []core.Sequence, error) {
	g, err := gm.getGame(gameID)
	if err != nil {
		return nil, nil, err
	}
	g.touch()
	return g.engine.Roll()
}

// GetLegalMoves returns the legal set for the pending roll
func (gm *GameManager) GetLegalMoves(gameID string) ([]core.Sequence, error) {
	g, err := gm.getGame(gameID)
	if err != nil {
		return nil, err
	}
	if !g.engine.CurrentPhase().CanReceiveChoice() {
		return nil, fmt.Errorf("legal moves: %w: %s", core.ErrWrongPhase, g.engine.CurrentPhase())
	}
	return g.engine.Legal(), nil
}

// SubmitMove plays seq. A non-empty idempotencyKey makes the call safe to
// retry: a repeated key from the same player returns the snapshot of the
// first successful submission without playing again.
func (gm *GameManager) SubmitMove(ctx context.Context, gameID string, seq core.Sequence, idempotencyKey string) (game.Snapshot, error) {
	g, err := gm.getGame(gameID)
	if err != nil {
		return game.Snapshot{}, err
	}
	if len(seq) == 0 {
		return game.Snapshot{}, fmt.Errorf("submit: %w: empty sequence", core.ErrIllegalChoice)
	}

	mover := seq[0].Player
	if snap, ok := g.idempotencyManager.Check(mover, idempotencyKey); ok {
		gm.logger.Debug().
			Str("game_id", gameID).
			Str("idempotency_key", idempotencyKey).
			Msg("Returning cached submission result")
		return snap, nil
	}

	g.touch()
	if err := g.engine.Submit(seq); err != nil {
		return game.Snapshot{}, err
	}
	snap := g.engine.Snapshot()
	g.idempotencyManager.Store(mover, idempotencyKey, snap)

	gm.archiveIfFinished(ctx, g)
	return snap, nil
}

// Undo takes back the last committed sequence of a game
func (gm *GameManager) Undo(gameID string) (game.Snapshot, error) {
	g, err := gm.getGame(gameID)
	if err != nil {
		return game.Snapshot{}, err
	}
	g.touch()
	if err := g.engine.Undo(); err != nil {
		return game.Snapshot{}, err
	}
	// Keys used for the undone turn may be reused for the replacement.
	g.idempotencyManager.Clear()
	return g.engine.Snapshot(), nil
}

// PlayTurn plays one turn of a game with chooser
func (gm *GameManager) PlayTurn(ctx context.Context, gameID string, chooser players.Chooser) (game.TurnResult, error) {
	g, err := gm.getGame(gameID)
	if err != nil {
		return game.TurnResult{}, err
	}
	g.touch()
	res, err := g.engine.PlayTurn(ctx, chooser)
	if err != nil {
		return res, err
	}
	if res.GameOver {
		gm.archiveIfFinished(ctx, g)
	}
	return res, nil
}

// RemoveGame drops a game. Finished games are archived first.
func (gm *GameManager) RemoveGame(ctx context.Context, gameID string) error {
	g, err := gm.getGame(gameID)
	if err != nil {
		return err
	}
	gm.archiveIfFinished(ctx, g)

	gm.mu.Lock()
	delete(gm.games, gameID)
	gm.mu.Unlock()

	gm.logger.Info().Str("game_id", gameID).Msg("Game removed")
	return nil
}

// ListGames returns a summary of every hosted game, oldest first
func (gm *GameManager) ListGames() []GameSummary {
	gm.mu.RLock()
	refs := make([]*gameInstance, 0, len(gm.games))
	for _, g := range gm.games {
		refs = append(refs, g)
	}
	gm.mu.RUnlock()

	out := make([]GameSummary, 0, len(refs))
	for _, g := range refs {
		snap := g.engine.Snapshot()
		phase, _ := states.ParsePhase(snap.Phase)
		g.mu.Lock()
		out = append(out, GameSummary{
			ID:           g.id,
			Players:      snap.Players,
			Phase:        phase,
			Turn:         snap.Turn,
			TurnNumber:   snap.TurnNumber,
			Winner:       snap.Winner,
			CreatedAt:    g.createdAt,
			LastActivity: g.lastActivity,
		})
		g.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GetActiveGames returns the number of hosted games
func (gm *GameManager) GetActiveGames() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.games)
}

// archiveIfFinished hands a finished game to the archive once
func (gm *GameManager) archiveIfFinished(ctx context.Context, g *gameInstance) {
	if gm.cfg.Archive == nil || !g.engine.IsGameOver() {
		return
	}

	g.mu.Lock()
	if g.archived {
		g.mu.Unlock()
		return
	}
	g.archived = true
	g.mu.Unlock()

	snap := g.engine.Snapshot()
	if err := gm.cfg.Archive.ArchiveGame(ctx, snap, g.engine.History()); err != nil {
		g.mu.Lock()
		g.archived = false
		g.mu.Unlock()
		gm.logger.Error().Err(err).Str("game_id", g.id).Msg("Failed to archive finished game")
		return
	}
	gm.logger.Info().Str("game_id", g.id).Str("winner", snap.Winner.String()).Msg("Archived finished game")
}

// runCleanup periodically removes finished and abandoned games
func (gm *GameManager) runCleanup() {
	defer func() {
		if r := recover(); r != nil {
			gm.logger.Error().
				Interface("panic", r).
				Msg("Game cleanup goroutine panicked - restarting")
			select {
			case <-gm.stop:
			case <-time.After(5 * time.Second):
				go gm.runCleanup()
			}
		}
	}()

	ticker := time.NewTicker(gm.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gm.stop:
			return
		case <-ticker.C:
			gm.cleanupGames()
		}
	}
}

// cleanupGames removes games idle for longer than the idle timeout
func (gm *GameManager) cleanupGames() {
	if gm.cfg.IdleTimeout <= 0 {
		return
	}

	// Phase 1: Collect game references without holding the manager lock while accessing game locks
	gm.mu.RLock()
	gameRefs := make([]*gameInstance, 0, len(gm.games))
	for _, g := range gm.games {
		gameRefs = append(gameRefs, g)
	}
	gm.mu.RUnlock()

	// Phase 2: Check each game independently (no nested locks)
	now := time.Now()
	var toDelete []*gameInstance

	for _, g := range gameRefs {
		g.mu.Lock()
		idle := now.Sub(g.lastActivity)
		createdAt := g.createdAt
		g.mu.Unlock()

		if idle <= gm.cfg.IdleTimeout {
			continue
		}
		reason := "game abandoned (no activity)"
		if g.engine.IsGameOver() {
			reason = "finished game TTL expired"
		}
		toDelete = append(toDelete, g)
		gm.logger.Info().
			Str("game_id", g.id).
			Str("reason", reason).
			Dur("age", now.Sub(createdAt)).
			Dur("inactive", idle).
			Msg("Cleaning up game")
	}

	if len(toDelete) == 0 {
		return
	}

	// Phase 3: Archive outside the manager lock, then remove with a single lock
	for _, g := range toDelete {
		gm.archiveIfFinished(context.Background(), g)
	}

	gm.mu.Lock()
	for _, g := range toDelete {
		delete(gm.games, g.id)
	}
	remainingCount := len(gm.games)
	gm.mu.Unlock()

	gm.logger.Info().
		Int("cleaned", len(toDelete)).
		Int("remaining", remainingCount).
		Msg("Game cleanup completed")
}
