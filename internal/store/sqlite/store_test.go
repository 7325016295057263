package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/bgcore/internal/game"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/rules"
	"github.com/mitchelldurbincs/bgcore/internal/testutil"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	store, err := Open(context.Background(), path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// finishedSnapshot builds the snapshot of a game White won with a gammon.
func finishedSnapshot(t *testing.T, gameID string, names [2]string, winner core.Player) game.Snapshot {
	t.Helper()
	pos := testutil.Position{Points: map[int]int{12: -15}}
	if winner == core.Black {
		pos = testutil.Position{Points: map[int]int{12: 15}}
	}
	st := testutil.NewState(t, core.StandardVariant(), winner, pos)
	outcome, over := rules.ResultOf(st)
	require.True(t, over)
	return game.Snapshot{
		Snapshot: st.Snapshot(),
		GameID:   gameID,
		Phase:    "GameOver",
		Winner:   outcome.Winner,
		Outcome:  &outcome,
		Players:  names,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ", zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	first, err := Open(context.Background(), path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(context.Background(), path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestArchiveGetRoundTrip(t *testing.T) {
	store := openTempStore(t)
	finished := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return finished }

	snap := finishedSnapshot(t, "game-1", [2]string{"alice", "bob"}, core.White)
	history := []core.Sequence{
		testutil.Seq(core.White, [3]int{7, 2, 5}, [3]int{5, 2, 3}),
		testutil.Seq(core.Black, [3]int{0, 5, 6}),
	}
	require.NoError(t, store.ArchiveGame(context.Background(), snap, history))

	rec, err := store.GetGame(context.Background(), "game-1")
	require.NoError(t, err)
	assert.Equal(t, "game-1", rec.GameID)
	assert.Equal(t, [2]string{"alice", "bob"}, rec.Players)
	assert.Equal(t, core.White, rec.Winner)
	assert.Equal(t, "gammon", rec.Kind)
	assert.Equal(t, 2, rec.Points)
	assert.Equal(t, finished, rec.FinishedAt)
	assert.Equal(t, []string{
		history[0].Notation(core.StandardVariant()),
		history[1].Notation(core.StandardVariant()),
	}, rec.History)

	assert.Zero(t, rec.HistoryOffset)
	assert.Equal(t, snap.GameID, rec.Snapshot.GameID)
	require.NotNil(t, rec.Snapshot.Outcome)
	assert.Equal(t, *snap.Outcome, *rec.Snapshot.Outcome)
	st, err := core.FromSnapshot(rec.Snapshot.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, 15, st.Board.BornOff(core.White))
}

func TestArchiveResumedGameKeepsHistoryOffset(t *testing.T) {
	store := openTempStore(t)
	snap := finishedSnapshot(t, "resumed", [2]string{"alice", "bob"}, core.White)
	snap.TurnNumber = 9
	snap.HistoryLen = 9
	history := []core.Sequence{
		testutil.Seq(core.Black, [3]int{0, 5, 6}),
		testutil.Seq(core.White, [3]int{0, core.Off, 1}),
	}
	require.NoError(t, store.ArchiveGame(context.Background(), snap, history))

	rec, err := store.GetGame(context.Background(), "resumed")
	require.NoError(t, err)
	assert.Equal(t, 9, rec.Turns)
	assert.Len(t, rec.History, 2)
	assert.Equal(t, 7, rec.HistoryOffset)
}

func TestArchiveRejects(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	unfinished := finishedSnapshot(t, "game-1", [2]string{"a", "b"}, core.White)
	unfinished.Outcome = nil
	assert.ErrorIs(t, store.ArchiveGame(ctx, unfinished, nil), ErrNotFinished)

	noID := finishedSnapshot(t, "", [2]string{"a", "b"}, core.White)
	assert.Error(t, store.ArchiveGame(ctx, noID, nil))

	snap := finishedSnapshot(t, "game-2", [2]string{"a", "b"}, core.White)
	require.NoError(t, store.ArchiveGame(ctx, snap, nil))
	assert.ErrorIs(t, store.ArchiveGame(ctx, snap, nil), ErrAlreadyExists)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, store.ArchiveGame(cancelled, finishedSnapshot(t, "game-3", [2]string{"a", "b"}, core.White), nil), context.Canceled)
}

func TestGetGameNotFound(t *testing.T) {
	store := openTempStore(t)
	_, err := store.GetGame(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListGames(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"g1", "g2", "g3"} {
		at := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return at }
		require.NoError(t, store.ArchiveGame(ctx, finishedSnapshot(t, id, [2]string{"a", "b"}, core.White), nil))
	}

	all, err := store.ListGames(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "g3", all[0].GameID, "most recent first")
	assert.Equal(t, "g1", all[2].GameID)

	limited, err := store.ListGames(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "g3", limited[0].GameID)
	assert.Equal(t, "g2", limited[1].GameID)
}

func TestPlayerSummary(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	require.NoError(t, store.ArchiveGame(ctx, finishedSnapshot(t, "g1", [2]string{"alice", "bob"}, core.White), nil))
	require.NoError(t, store.ArchiveGame(ctx, finishedSnapshot(t, "g2", [2]string{"bob", "alice"}, core.White), nil))
	require.NoError(t, store.ArchiveGame(ctx, finishedSnapshot(t, "g3", [2]string{"carol", "alice"}, core.Black), nil))

	sum, err := store.PlayerSummary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", sum.Name)
	assert.Equal(t, 3, sum.Games)
	assert.Equal(t, 2, sum.Wins)
	assert.Equal(t, 4, sum.PointsWon)
	assert.Equal(t, 2, sum.PointsLost)

	none, err := store.PlayerSummary(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, PlayerSummary{Name: "nobody"}, none)
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE x (id INTEGER);\n-- +migrate Down\nDROP TABLE x;\n"
	assert.Equal(t, "\nCREATE TABLE x (id INTEGER);\n", extractUpMigration(content))
	assert.Equal(t, "SELECT 1;", extractUpMigration("SELECT 1;"))
}
