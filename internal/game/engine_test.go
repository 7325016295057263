package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/events"
	"github.com/mitchelldurbincs/bgcore/internal/game/players"
	"github.com/mitchelldurbincs/bgcore/internal/game/rules"
	"github.com/mitchelldurbincs/bgcore/internal/game/states"
	"github.com/mitchelldurbincs/bgcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder collects every event published on a bus
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) ofType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, evt := range r.events {
		if evt.Type() == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func testGameConfig(dice ...int) GameConfig {
	return GameConfig{
		GameID:           "test-game",
		Variant:          core.StandardVariant(),
		Players:          [2]string{"alice", "bob"},
		Dice:             core.NewFixedSource(dice...),
		Logger:           testutil.NopLogger(),
		MaxChoiceRetries: 2,
	}
}

func newTestEngine(t *testing.T, dice ...int) *Engine {
	t.Helper()
	e, err := NewEngine(context.Background(), testGameConfig(dice...))
	require.NoError(t, err)
	return e
}

// newRecordedEngine returns an engine whose events are all recorded,
// including GameStarted.
func newRecordedEngine(t *testing.T, cfg GameConfig) (*Engine, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	bus := events.NewEventBus()
	for _, typ := range []string{
		events.TypeGameStarted, events.TypeGameEnded, events.TypeGameRestored,
		events.TypeDiceRolled, events.TypeTurnSkipped, events.TypeTurnCancelled,
		events.TypeChoiceRejected, events.TypeSequenceApplied, events.TypeMoveUndone,
	} {
		bus.SubscribeFunc(typ, rec.handle)
	}
	cfg.EventBus = bus
	e, err := NewEngine(context.Background(), cfg)
	require.NoError(t, err)
	return e, rec
}

// restorePosition puts st on the engine in the given resting phase.
func restorePosition(t *testing.T, e *Engine, st *core.State, phase states.GamePhase) {
	t.Helper()
	snap := e.Snapshot()
	snap.Snapshot = st.Snapshot()
	snap.Phase = phase.String()
	snap.Outcome = nil
	snap.Winner = core.NoPlayer
	if o, over := rules.ResultOf(st); over {
		snap.Winner = o.Winner
	}
	require.NoError(t, e.Restore(snap))
}

// 8/3 6/3 for the opening 5-3, given in the order a player might type it.
func openingFiveThree() core.Sequence {
	return testutil.Seq(core.White, [3]int{5, 2, 3}, [3]int{7, 2, 5})
}

// A White checker sits on the bar facing a closed Black home board.
func closedOutState(t *testing.T) *core.State {
	return testutil.NewState(t, core.StandardVariant(), core.White, testutil.Position{
		Points: map[int]int{
			3:  14,
			17: -3, 18: -2, 19: -2, 20: -2, 21: -2, 22: -2, 23: -2,
		},
		Bar: [2]int{1, 0},
	})
}

// White bears off its last checker with any roll. Black has borne off nothing.
func lastCheckerState(t *testing.T, blackPoints map[int]int) *core.State {
	points := map[int]int{0: 1}
	for k, v := range blackPoints {
		points[k] = v
	}
	return testutil.NewState(t, core.StandardVariant(), core.White, testutil.Position{Points: points})
}

func TestNewEngine(t *testing.T) {
	e := newTestEngine(t, 3, 5)

	assert.Equal(t, "test-game", e.GameID())
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
	assert.False(t, e.IsGameOver())
	assert.Equal(t, core.NoPlayer, e.Winner())
	assert.False(t, e.CanUndo())
	assert.Empty(t, e.Legal())
	assert.Empty(t, e.History())

	st := e.State()
	assert.Equal(t, core.White, st.Turn)
	assert.Equal(t, 0, st.TurnNumber)
	assert.Empty(t, st.Dice)
	assert.Equal(t, 167, st.Board.PipCount(core.White))
	assert.Equal(t, 167, st.Board.PipCount(core.Black))

	seats := e.Players()
	assert.Equal(t, "alice", seats[core.White].Name)
	assert.Equal(t, "bob", seats[core.Black].Name)
	assert.Equal(t, core.White, seats[core.White].Side)
	assert.Equal(t, core.Black, seats[core.Black].Side)
	assert.NotEqual(t, seats[core.White].ID, seats[core.Black].ID)
}

func TestNewEngine_Defaults(t *testing.T) {
	e, err := NewEngine(context.Background(), GameConfig{Logger: testutil.NopLogger()})
	require.NoError(t, err)

	_, err = uuid.Parse(e.GameID())
	assert.NoError(t, err, "generated game id should be a uuid")
	assert.Equal(t, DefaultVariant(), e.State().Variant())

	seats := e.Players()
	assert.Equal(t, core.White.String(), seats[core.White].Name)
	assert.Equal(t, core.Black.String(), seats[core.Black].Name)
}

func TestNewEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := NewEngine(ctx, testGameConfig())
	assert.Nil(t, e)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngine_InvalidVariant(t *testing.T) {
	cfg := testGameConfig()
	cfg.Variant.HomeSize = 30

	_, err := NewEngine(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewEngine_PublishesGameStarted(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig())

	started := rec.ofType(events.TypeGameStarted)
	require.Len(t, started, 1)
	evt := started[0].(*events.GameStartedEvent)
	assert.Equal(t, e.GameID(), evt.GameID())
	assert.Equal(t, [2]string{"alice", "bob"}, evt.Players)
	assert.Equal(t, 24, evt.Variant.Points)
}

func TestEngine_RollOpening(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))

	dice, legal, err := e.Roll()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3}, dice)
	assert.Len(t, legal, 10)
	assert.Equal(t, states.PhaseAwaitingChoice, e.CurrentPhase())
	assert.Equal(t, []int{5, 3}, e.State().Dice)
	assert.Len(t, e.Legal(), 10)

	rolled := rec.ofType(events.TypeDiceRolled)
	require.Len(t, rolled, 1)
	assert.Equal(t, 10, rolled[0].(*events.DiceRolledEvent).LegalCount)

	// The pending roll has to be played first
	_, _, err = e.Roll()
	assert.ErrorIs(t, err, core.ErrWrongPhase)
}

func TestEngine_SubmitBeforeRoll(t *testing.T) {
	e := newTestEngine(t, 3, 5)

	err := e.Submit(openingFiveThree())
	assert.ErrorIs(t, err, core.ErrWrongPhase)
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
}

func TestEngine_SubmitIllegalIsRecoverable(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))
	_, _, err := e.Roll()
	require.NoError(t, err)
	before := e.State()

	// 6/1 lands on Black's two checkers
	illegal := testutil.Seq(core.White, [3]int{5, 0, 5}, [3]int{5, 2, 3})
	err = e.Submit(illegal)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIllegalChoice)

	var gameErr *core.GameError
	require.True(t, errors.As(err, &gameErr))
	assert.Equal(t, core.White, gameErr.Player)

	assert.Equal(t, states.PhaseAwaitingChoice, e.CurrentPhase())
	assert.True(t, before.Equal(e.State()), "rejected choice must not change the state")
	assert.Len(t, e.Legal(), 10)
	require.Len(t, rec.ofType(events.TypeChoiceRejected), 1)

	// The roll is still playable
	require.NoError(t, e.Submit(openingFiveThree()))
}

func TestEngine_SubmitRejectsIllegalOrder(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))
	_, legal, err := e.Roll()
	require.NoError(t, err)
	before := e.State()

	// 21/16 before 24/21 moves a checker that is not there yet.
	reversed := testutil.Seq(core.White, [3]int{20, 15, 5}, [3]int{23, 20, 3})
	require.GreaterOrEqual(t, core.IndexOf(legal, reversed), 0, "same moves are legal in the other order")

	err = e.Submit(reversed)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIllegalChoice)
	assert.Equal(t, states.PhaseAwaitingChoice, e.CurrentPhase())
	assert.True(t, before.Equal(e.State()))
	require.Len(t, rec.ofType(events.TypeChoiceRejected), 1)

	require.NoError(t, e.Submit(testutil.Seq(core.White, [3]int{23, 20, 3}, [3]int{20, 15, 5})))
	assert.Equal(t, core.Black, e.State().Turn)
}

func TestEngine_SubmitCommitsCanonicalOrder(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))
	_, legal, err := e.Roll()
	require.NoError(t, err)

	submitted := openingFiveThree()
	idx := core.IndexOf(legal, submitted)
	require.GreaterOrEqual(t, idx, 0)

	require.NoError(t, e.Submit(submitted))

	history := e.History()
	require.Len(t, history, 1)
	assert.True(t, legal[idx].Equal(history[0]), "committed %s, want %s", history[0], legal[idx])

	st := e.State()
	assert.Equal(t, core.Black, st.Turn)
	assert.Equal(t, 1, st.TurnNumber)
	assert.Equal(t, 1, st.HistoryLen)
	assert.Empty(t, st.Dice)
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
	assert.Empty(t, e.Legal())

	owner, count := st.Board.Owner(2)
	assert.Equal(t, core.White, owner)
	assert.Equal(t, 2, count)
	assert.Equal(t, 167-8, st.Board.PipCount(core.White))

	applied := rec.ofType(events.TypeSequenceApplied)
	require.Len(t, applied, 1)
	assert.Equal(t, legal[idx].Notation(core.StandardVariant()), applied[0].(*events.SequenceAppliedEvent).Notation)

	seats := e.Players()
	assert.Equal(t, 1, seats[core.White].Stats.TurnsPlayed)
	assert.Equal(t, 8, seats[core.White].Stats.PipsMoved)
}

func TestEngine_SkipTurn(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(1, 2))
	restorePosition(t, e, closedOutState(t), states.PhaseAwaitingRoll)

	dice, legal, err := e.Roll()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, dice)
	assert.Empty(t, legal)

	st := e.State()
	assert.Equal(t, core.Black, st.Turn)
	assert.Equal(t, 0, st.TurnNumber, "a skipped turn is not counted")
	assert.Empty(t, st.Dice)
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
	assert.False(t, e.CanUndo())

	skipped := rec.ofType(events.TypeTurnSkipped)
	require.Len(t, skipped, 1)
	assert.Equal(t, core.White, skipped[0].(*events.TurnSkippedEvent).Player)
	assert.Equal(t, 1, e.Players()[core.White].Stats.TurnsSkipped)
}

func TestEngine_UndoForgetsLaterSkips(t *testing.T) {
	e := newTestEngine(t, 6, 5, 2, 1, 6, 5)
	closed := testutil.NewState(t, core.StandardVariant(), core.White, testutil.Position{
		Points: map[int]int{
			3:  14,
			10: -3, 18: -2, 19: -2, 20: -2, 21: -2, 22: -2, 23: -2,
		},
		Bar: [2]int{1, 0},
	})
	restorePosition(t, e, closed, states.PhaseAwaitingRoll)

	_, legal, err := e.Roll()
	require.NoError(t, err)
	require.Empty(t, legal)

	_, legal, err = e.Roll()
	require.NoError(t, err)
	seq := testutil.Seq(core.Black, [3]int{10, 11, 1}, [3]int{10, 12, 2})
	require.GreaterOrEqual(t, core.IndexOf(legal, seq), 0)
	require.NoError(t, e.Submit(seq))

	_, legal, err = e.Roll()
	require.NoError(t, err)
	require.Empty(t, legal)
	assert.Equal(t, 2, e.Players()[core.White].Stats.TurnsSkipped)

	require.NoError(t, e.Undo())
	assert.Equal(t, core.Black, e.State().Turn)
	assert.Equal(t, 1, e.Players()[core.White].Stats.TurnsSkipped, "the skip before the undone commit stays")
	assert.Equal(t, 0, e.Players()[core.Black].Stats.TurnsPlayed)
}

func TestEngine_CancelTurn(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))

	err := e.CancelTurn("nothing pending")
	assert.ErrorIs(t, err, core.ErrWrongPhase)

	_, _, err = e.Roll()
	require.NoError(t, err)
	require.NoError(t, e.CancelTurn("player left"))

	st := e.State()
	assert.Equal(t, core.White, st.Turn, "the same player rolls again")
	assert.Empty(t, st.Dice)
	assert.Empty(t, e.Legal())
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())

	cancelled := rec.ofType(events.TypeTurnCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "player left", cancelled[0].(*events.TurnCancelledEvent).Reason)
}

func TestEngine_UndoEmptyHistory(t *testing.T) {
	e := newTestEngine(t, 3, 5)
	err := e.Undo()
	assert.ErrorIs(t, err, core.ErrEmptyHistory)
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
}

func TestEngine_Undo(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))
	start := e.State()

	_, _, err := e.Roll()
	require.NoError(t, err)
	require.NoError(t, e.Submit(openingFiveThree()))
	require.True(t, e.CanUndo())

	require.NoError(t, e.Undo())

	st := e.State()
	assert.Equal(t, core.White, st.Turn)
	assert.Equal(t, []int{5, 3}, st.Dice)
	assert.Equal(t, 0, st.TurnNumber)
	assert.Equal(t, 0, st.HistoryLen)
	assert.True(t, start.Board.Equal(st.Board))
	assert.Equal(t, states.PhaseAwaitingChoice, e.CurrentPhase())
	assert.Len(t, e.Legal(), 10)
	assert.False(t, e.CanUndo())
	assert.Equal(t, 0, e.Players()[core.White].Stats.TurnsPlayed)
	assert.Equal(t, 0, e.Players()[core.White].Stats.PipsMoved)
	require.Len(t, rec.ofType(events.TypeMoveUndone), 1)

	// The restored roll can be played differently
	_, legal, _ := e.Roll()
	assert.Nil(t, legal, "roll is not allowed while a choice is pending")
	require.NoError(t, e.Submit(e.Legal()[0]))
}

func TestEngine_UndoDiscardsPendingRoll(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))
	_, _, err := e.Roll()
	require.NoError(t, err)
	require.NoError(t, e.Submit(openingFiveThree()))

	// Black rolls, then White takes back 8/3 6/3
	_, _, err = e.Roll()
	require.NoError(t, err)
	require.NoError(t, e.Undo())

	st := e.State()
	assert.Equal(t, core.White, st.Turn)
	assert.Equal(t, []int{5, 3}, st.Dice)
	assert.Equal(t, states.PhaseAwaitingChoice, e.CurrentPhase())

	cancelled := rec.ofType(events.TypeTurnCancelled)
	require.Len(t, cancelled, 1)
	evt := cancelled[0].(*events.TurnCancelledEvent)
	assert.Equal(t, core.Black, evt.Player)
	assert.Equal(t, "roll discarded for undo", evt.Reason)
}

func TestEngine_GameOver(t *testing.T) {
	tests := []struct {
		name   string
		black  map[int]int
		kind   rules.OutcomeKind
		points int
	}{
		{"gammon", map[int]int{12: -15}, rules.OutcomeGammon, 2},
		{"backgammon", map[int]int{12: -14, 3: -1}, rules.OutcomeBackgammon, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newRecordedEngine(t, testGameConfig(2, 1))
			restorePosition(t, e, lastCheckerState(t, tt.black), states.PhaseAwaitingRoll)

			_, legal, err := e.Roll()
			require.NoError(t, err)
			require.NotEmpty(t, legal)
			require.NoError(t, e.Submit(legal[0]))

			assert.True(t, e.IsGameOver())
			assert.Equal(t, states.PhaseGameOver, e.CurrentPhase())
			outcome, over := e.Outcome()
			require.True(t, over)
			assert.Equal(t, core.White, outcome.Winner)
			assert.Equal(t, tt.kind, outcome.Kind)
			assert.Equal(t, tt.points, outcome.Points)
			assert.Equal(t, core.White, e.Winner())

			ended := rec.ofType(events.TypeGameEnded)
			require.Len(t, ended, 1)
			evt := ended[0].(*events.GameEndedEvent)
			assert.Equal(t, core.White, evt.Winner)
			assert.Equal(t, tt.kind.String(), evt.Kind)
			assert.Equal(t, tt.points, evt.Points)

			seats := e.Players()
			assert.Equal(t, 1, seats[core.White].Stats.Wins)
			assert.Equal(t, tt.points, seats[core.White].Stats.PointsWon)
			assert.Equal(t, 1, seats[core.Black].Stats.Losses)
			assert.Equal(t, tt.points, seats[core.Black].Stats.PointsLost)

			_, _, err = e.Roll()
			assert.ErrorIs(t, err, core.ErrGameOver)
			assert.ErrorIs(t, e.Submit(legal[0]), core.ErrGameOver)
			_, err = e.PlayTurn(context.Background(), players.NewGreedyChooser())
			assert.ErrorIs(t, err, core.ErrGameOver)
		})
	}
}

func TestEngine_UndoReopensFinishedGame(t *testing.T) {
	e := newTestEngine(t, 2, 1)
	restorePosition(t, e, lastCheckerState(t, map[int]int{12: -15}), states.PhaseAwaitingRoll)

	_, legal, err := e.Roll()
	require.NoError(t, err)
	require.NoError(t, e.Submit(legal[0]))
	require.True(t, e.IsGameOver())

	require.NoError(t, e.Undo())

	assert.False(t, e.IsGameOver())
	assert.Equal(t, states.PhaseAwaitingChoice, e.CurrentPhase())
	_, over := e.Outcome()
	assert.False(t, over)
	assert.Equal(t, core.NoPlayer, e.Winner())
	assert.Equal(t, []int{2, 1}, e.State().Dice)
	assert.Equal(t, 1, e.State().Board.PieceCount(0, core.White))

	seats := e.Players()
	assert.Equal(t, PlayerStats{}, seats[core.White].Stats)
	assert.Equal(t, PlayerStats{}, seats[core.Black].Stats)
}

func TestEngine_SnapshotRoundTrip(t *testing.T) {
	e := newTestEngine(t, 3, 5)
	_, _, err := e.Roll()
	require.NoError(t, err)

	data, err := MarshalSnapshot(e.Snapshot())
	require.NoError(t, err)
	snap, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, "AwaitingChoice", snap.Phase)
	assert.Nil(t, snap.Outcome)

	other, rec := newRecordedEngine(t, testGameConfig(6, 6))
	require.NoError(t, other.Restore(snap))

	assert.Equal(t, states.PhaseAwaitingChoice, other.CurrentPhase())
	assert.True(t, e.State().Equal(other.State()))
	assert.ElementsMatch(t, testutil.Keys(e.Legal()), testutil.Keys(other.Legal()))
	assert.Equal(t, "alice", other.Players()[core.White].Name)
	require.Len(t, rec.ofType(events.TypeGameRestored), 1)

	require.NoError(t, other.Submit(openingFiveThree()))
	assert.Equal(t, core.Black, other.State().Turn)
}

func TestEngine_SnapshotOfFinishedGame(t *testing.T) {
	e := newTestEngine(t, 2, 1)
	restorePosition(t, e, lastCheckerState(t, map[int]int{12: -15}), states.PhaseAwaitingRoll)
	_, legal, err := e.Roll()
	require.NoError(t, err)
	require.NoError(t, e.Submit(legal[0]))

	snap := e.Snapshot()
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, rules.OutcomeGammon, snap.Outcome.Kind)
	assert.Equal(t, core.White, snap.Winner)

	other := newTestEngine(t)
	require.NoError(t, other.Restore(snap))
	assert.True(t, other.IsGameOver())
	outcome, over := other.Outcome()
	require.True(t, over)
	assert.Equal(t, 2, outcome.Points)
	assert.False(t, other.CanUndo(), "history before a snapshot cannot be undone")
}

func TestEngine_RestoreRejects(t *testing.T) {
	base := func(t *testing.T) (*Engine, Snapshot) {
		e := newTestEngine(t, 3, 5)
		return e, e.Snapshot()
	}

	tests := []struct {
		name    string
		mutate  func(t *testing.T, snap *Snapshot)
		wantErr error
	}{
		{
			name: "different variant",
			mutate: func(t *testing.T, snap *Snapshot) {
				st, err := core.NewGameState(testutil.SmallVariant())
				require.NoError(t, err)
				snap.Snapshot = st.Snapshot()
			},
			wantErr: core.ErrInvalidVariant,
		},
		{
			name:    "transient phase",
			mutate:  func(t *testing.T, snap *Snapshot) { snap.Phase = states.PhaseValidating.String() },
			wantErr: core.ErrWrongPhase,
		},
		{
			name:    "dice while awaiting a roll",
			mutate:  func(t *testing.T, snap *Snapshot) { snap.Dice = []int{5, 3} },
			wantErr: core.ErrIllegalStateTransition,
		},
		{
			name: "dice no roll can produce",
			mutate: func(t *testing.T, snap *Snapshot) {
				snap.Phase = states.PhaseAwaitingChoice.String()
				snap.Dice = []int{6, 5, 4}
			},
			wantErr: core.ErrIllegalStateTransition,
		},
		{
			name:    "negative history length",
			mutate:  func(t *testing.T, snap *Snapshot) { snap.HistoryLen = -1 },
			wantErr: core.ErrIllegalStateTransition,
		},
		{
			name:    "awaiting a choice without dice",
			mutate:  func(t *testing.T, snap *Snapshot) { snap.Phase = states.PhaseAwaitingChoice.String() },
			wantErr: core.ErrIllegalStateTransition,
		},
		{
			name: "game over on a running board",
			mutate: func(t *testing.T, snap *Snapshot) {
				snap.Phase = states.PhaseGameOver.String()
				snap.Winner = core.White
			},
			wantErr: core.ErrIllegalStateTransition,
		},
		{
			name: "finished board still running",
			mutate: func(t *testing.T, snap *Snapshot) {
				snap.Snapshot = lastCheckerState(t, map[int]int{12: -15}).Snapshot()
				snap.Points[0] = 0
				snap.Off[core.White]++
			},
			wantErr: core.ErrIllegalStateTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, snap := base(t)
			before := e.State()
			tt.mutate(t, &snap)

			err := e.Restore(snap)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
			assert.True(t, before.Equal(e.State()), "rejected restore must not change the game")
		})
	}

	t.Run("unknown phase", func(t *testing.T) {
		e, snap := base(t)
		snap.Phase = "Bogus"
		assert.Error(t, e.Restore(snap))
	})
}

func TestEngine_Board(t *testing.T) {
	e := newTestEngine(t, 3, 5)
	board := e.Board()
	assert.Contains(t, board, "W5")
	assert.Contains(t, board, "B5")
	assert.Contains(t, board, "white: bar 0, off 0, pips 167")
}

func TestEngine_ConcurrentReaders(t *testing.T) {
	e := newTestEngine(t, 3, 5)
	_, _, err := e.Roll()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = e.State()
				_ = e.Legal()
				_ = e.Snapshot()
				_ = e.Board()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, states.PhaseAwaitingChoice, e.CurrentPhase())
}

func TestPlayTurn_SelfPlayToCompletion(t *testing.T) {
	cfg := testGameConfig()
	cfg.Dice = core.NewSeededSource(42)
	e, rec := newRecordedEngine(t, cfg)

	choosers := [2]players.Chooser{
		players.NewGreedyChooser(),
		players.NewRandomChooser(testutil.NewTestRNG(7)),
	}

	const maxTurns = 5000
	turns := 0
	for ; turns < maxTurns && !e.IsGameOver(); turns++ {
		mover := e.State().Turn
		res, err := e.PlayTurn(context.Background(), choosers[mover])
		require.NoError(t, err)
		assert.Equal(t, mover, res.Player)
		assert.Zero(t, res.Rejected)
		if !res.Skipped {
			assert.NotEmpty(t, res.Sequence)
		}
	}
	require.True(t, e.IsGameOver(), "game did not finish in %d turns", maxTurns)

	outcome, over := e.Outcome()
	require.True(t, over)
	assert.True(t, outcome.Winner.Valid())
	assert.GreaterOrEqual(t, outcome.Points, 1)
	assert.LessOrEqual(t, outcome.Points, 3)

	st := e.State()
	assert.Equal(t, 15, st.Board.BornOff(outcome.Winner))
	require.Len(t, rec.ofType(events.TypeGameEnded), 1)

	seats := e.Players()
	assert.Equal(t, 1, seats[outcome.Winner].Stats.Wins)
	assert.Equal(t, 1, seats[outcome.Winner.Opponent()].Stats.Losses)
	assert.Equal(t, len(e.History()), seats[core.White].Stats.TurnsPlayed+seats[core.Black].Stats.TurnsPlayed)
}

func TestPlayTurn_UsesPendingRoll(t *testing.T) {
	e := newTestEngine(t, 3, 5)
	_, _, err := e.Roll()
	require.NoError(t, err)

	res, err := e.PlayTurn(context.Background(), players.FuncChooser(
		func(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
			return openingFiveThree(), nil
		}))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3}, res.Dice)
	assert.Equal(t, core.White, res.Player)
	assert.Equal(t, core.Black, e.State().Turn)
}

func TestPlayTurn_RetriesIllegalChoice(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))

	calls := 0
	chooser := players.FuncChooser(func(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
		calls++
		if calls == 1 {
			return testutil.Seq(core.White, [3]int{5, 0, 5}, [3]int{5, 2, 3}), nil
		}
		return openingFiveThree(), nil
	})

	res, err := e.PlayTurn(context.Background(), chooser)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, openingFiveThree().Key(), res.Sequence.Key())
	assert.False(t, res.GameOver)
	require.Len(t, rec.ofType(events.TypeChoiceRejected), 1)
}

func TestPlayTurn_TooManyIllegalChoices(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))

	calls := 0
	chooser := players.FuncChooser(func(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
		calls++
		return testutil.Seq(core.White, [3]int{5, 0, 5}, [3]int{5, 2, 3}), nil
	})

	res, err := e.PlayTurn(context.Background(), chooser)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIllegalChoice)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")
	assert.Equal(t, 3, calls, "first try plus two retries")
	assert.Equal(t, 3, res.Rejected)

	st := e.State()
	assert.Equal(t, core.White, st.Turn)
	assert.Empty(t, st.Dice)
	assert.Equal(t, 0, st.HistoryLen)
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())

	cancelled := rec.ofType(events.TypeTurnCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "too many illegal choices", cancelled[0].(*events.TurnCancelledEvent).Reason)
}

func TestPlayTurn_Timeout(t *testing.T) {
	cfg := testGameConfig(3, 5)
	cfg.TurnTimeout = 20 * time.Millisecond
	e, rec := newRecordedEngine(t, cfg)

	chooser := players.FuncChooser(func(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := e.PlayTurn(context.Background(), chooser)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
	assert.Equal(t, core.White, e.State().Turn)

	cancelled := rec.ofType(events.TypeTurnCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "turn timed out", cancelled[0].(*events.TurnCancelledEvent).Reason)
}

func TestPlayTurn_CancelledBeforeRoll(t *testing.T) {
	e, rec := newRecordedEngine(t, testGameConfig(3, 5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.PlayTurn(ctx, players.NewGreedyChooser())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
	assert.Empty(t, rec.ofType(events.TypeDiceRolled))
}

func TestPlayTurn_ChooserError(t *testing.T) {
	e := newTestEngine(t, 3, 5)
	boom := errors.New("boom")

	res, err := e.PlayTurn(context.Background(), players.FuncChooser(
		func(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
			return nil, boom
		}))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, core.White, res.Player)
	assert.Nil(t, res.Sequence)
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
}

func TestPlayTurn_RollChangedWhileChoosing(t *testing.T) {
	e := newTestEngine(t, 3, 5)

	chooser := players.FuncChooser(func(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
		require.NoError(t, e.CancelTurn("taken back"))
		return legal[0], nil
	})

	_, err := e.PlayTurn(context.Background(), chooser)
	assert.ErrorIs(t, err, core.ErrWrongPhase)
	assert.Equal(t, states.PhaseAwaitingRoll, e.CurrentPhase())
	assert.False(t, e.CanUndo(), "the stale choice must not be committed")
}

func TestPlayTurn_Skip(t *testing.T) {
	e := newTestEngine(t, 1, 2)
	restorePosition(t, e, closedOutState(t), states.PhaseAwaitingRoll)

	called := false
	res, err := e.PlayTurn(context.Background(), players.FuncChooser(
		func(ctx context.Context, st *core.State, legal []core.Sequence) (core.Sequence, error) {
			called = true
			return nil, nil
		}))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, called, "chooser is not asked when nothing can be played")
	assert.Equal(t, []int{2, 1}, res.Dice)
	assert.Equal(t, core.Black, e.State().Turn)
}

func TestPlayTurn_GameOverResult(t *testing.T) {
	e := newTestEngine(t, 2, 1)
	restorePosition(t, e, lastCheckerState(t, map[int]int{12: -14, 3: -1}), states.PhaseAwaitingRoll)

	res, err := e.PlayTurn(context.Background(), players.NewGreedyChooser())
	require.NoError(t, err)
	assert.True(t, res.GameOver)
	assert.Equal(t, core.White, res.Outcome.Winner)
	assert.Equal(t, rules.OutcomeBackgammon, res.Outcome.Kind)
}
