package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/bgcore/internal/config"
	"github.com/mitchelldurbincs/bgcore/internal/game"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/game/rules"
	"github.com/mitchelldurbincs/bgcore/internal/store/sqlite"
)

// writeConfig writes a quiet config that archives into a temp database.
func writeConfig(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "archive.db")
	cfgPath = filepath.Join(dir, "config.yaml")
	content := "logging:\n  level: error\n  format: json\nstore:\n  path: " + dbPath + "\n  archive_finished: true\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath, dbPath
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func notationOf(legal []core.Sequence, v core.Variant) []string {
	out := make([]string, len(legal))
	for i, seq := range legal {
		out[i] = seq.Notation(v)
	}
	return out
}

func TestMovesFromStartingPosition(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := runCLI(t, "", "moves", "6", "1", "--json", "--config", cfg)
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	st, err := core.NewGameState(core.StandardVariant())
	require.NoError(t, err)
	want := notationOf(rules.NewMoveGenerator().ForRoll(st, 6, 1), st.Variant())
	assert.NotEmpty(t, got)
	assert.Equal(t, want, got)
}

func TestMovesFromSnapshot(t *testing.T) {
	cfg, _ := writeConfig(t)
	st, err := core.NewGameState(core.StandardVariant())
	require.NoError(t, err)
	st.Turn = core.Black

	data, err := game.MarshalSnapshot(game.Snapshot{
		Snapshot: st.Snapshot(),
		GameID:   "snap",
		Phase:    "AwaitingRoll",
		Winner:   core.NoPlayer,
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	out, err := runCLI(t, "", "moves", "4", "2", "--snapshot", path, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "black to play [4 2]")

	want := notationOf(rules.NewMoveGenerator().ForRoll(st, 4, 2), st.Variant())
	for _, n := range want {
		assert.Contains(t, out, n)
	}
}

func TestMovesRejectsBadDie(t *testing.T) {
	cfg, _ := writeConfig(t)
	_, err := runCLI(t, "", "moves", "0", "3", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 1 and 6")

	_, err = runCLI(t, "", "moves", "3", "--config", cfg)
	assert.Error(t, err)
}

func TestSelfplayArchivesGames(t *testing.T) {
	cfg, dbPath := writeConfig(t)
	out, err := runCLI(t, "", "selfplay", "--games", "2", "--seed", "7", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "2 games in")
	assert.Contains(t, out, "archived to "+dbPath)

	out, err = runCLI(t, "", "archive", "summary", "greedy", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "greedy: 2 games")

	out, err = runCLI(t, "", "archive", "list", "--config", cfg)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)

	store, err := sqlite.Open(context.Background(), dbPath, zerolog.Nop())
	require.NoError(t, err)
	recs, err := store.ListGames(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, recs, 2)

	out, err = runCLI(t, "", "archive", "show", recs[0].GameID, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Game "+recs[0].GameID)
	assert.Contains(t, out, recs[0].History[0])

	out, err = runCLI(t, "", "archive", "export", recs[0].GameID, "--config", cfg)
	require.NoError(t, err)
	snap, err := game.UnmarshalSnapshot([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, recs[0].GameID, snap.GameID)
	assert.NotNil(t, snap.Outcome)
}

func TestSelfplaySeedIsReproducible(t *testing.T) {
	cfg, dbPath := writeConfig(t)
	_, err := runCLI(t, "", "selfplay", "--games", "1", "--seed", "11", "--config", cfg)
	require.NoError(t, err)
	_, err = runCLI(t, "", "selfplay", "--games", "1", "--seed", "11", "--config", cfg)
	require.NoError(t, err)

	store, err := sqlite.Open(context.Background(), dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.ListGames(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.NotEqual(t, recs[0].GameID, recs[1].GameID)
	assert.Equal(t, recs[0].History, recs[1].History)
}

func TestSelfplayRejectsUnknownPlayer(t *testing.T) {
	cfg, _ := writeConfig(t)
	_, err := runCLI(t, "", "selfplay", "--white", "bogus", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown player")
}

func TestArchiveShowMissingGame(t *testing.T) {
	cfg, _ := writeConfig(t)
	_, err := runCLI(t, "", "archive", "show", "missing", "--config", cfg)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestPlayAbandonsAtEndOfInput(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := runCLI(t, "", "play", "--no-archive", "--color=false", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "white to play")
	assert.Contains(t, out, "Game abandoned")
}

func TestPlayHumanChoiceIsCommitted(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := runCLI(t, "1\n", "play", "--no-archive", "--color=false", "--name", "alice", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "alice rolled")
	assert.Contains(t, out, "greedy rolled")
	assert.Contains(t, out, "Game abandoned")
}

func TestPlayRejectsBadSide(t *testing.T) {
	cfg, _ := writeConfig(t)
	_, err := runCLI(t, "", "play", "--side", "none", "--config", cfg)
	assert.Error(t, err)
}

func TestEffectiveLevel(t *testing.T) {
	c := &config.Config{Logging: config.LoggingConfig{Level: "warn"}}
	logLevel = ""
	assert.Equal(t, "warn", effectiveLevel(c))

	c.Development.VerboseLogging = true
	assert.Equal(t, "debug", effectiveLevel(c))

	logLevel = "error"
	defer func() { logLevel = "" }()
	assert.Equal(t, "error", effectiveLevel(c))
}
