// Package sqlite archives finished games in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mitchelldurbincs/bgcore/internal/game"
	"github.com/mitchelldurbincs/bgcore/internal/game/core"
	"github.com/mitchelldurbincs/bgcore/internal/store/sqlite/migrations"
)

var (
	ErrNotFound      = errors.New("archived game not found")
	ErrAlreadyExists = errors.New("game already archived")
	ErrNotFinished   = errors.New("game is not finished")
)

// GameRecord is one archived game
type GameRecord struct {
	GameID  string
	Players [2]string
	Winner  core.Player
	Kind    string
	Points  int
	Turns   int
	// History holds the notation of the committed sequences, oldest first.
	// A game resumed from a snapshot only has what was played after the
	// resume; HistoryOffset counts the sequences before History[0].
	History       []string
	HistoryOffset int
	Snapshot      game.Snapshot
	FinishedAt    time.Time
}

// PlayerSummary aggregates the archived results of one player name
type PlayerSummary struct {
	Name       string
	Games      int
	Wins       int
	PointsWon  int
	PointsLost int
}

// Store persists finished games in SQLite.
type Store struct {
	sqlDB  *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite archive and applies embedded migrations.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.With().Str("component", "ArchiveStore").Logger()
	logger.Debug().Str("path", cleanPath).Msg("Opened game archive")
	return &Store{sqlDB: sqlDB, logger: logger, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// ArchiveGame stores a finished game with its committed history.
func (s *Store) ArchiveGame(ctx context.Context, snap game.Snapshot, history []core.Sequence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID := strings.TrimSpace(snap.GameID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if snap.Outcome == nil {
		return fmt.Errorf("archive %s: %w", gameID, ErrNotFinished)
	}

	notation := make([]string, len(history))
	for i, seq := range history {
		notation[i] = seq.Notation(snap.Variant)
	}
	offset := max(0, snap.HistoryLen-len(history))
	historyJSON, err := json.Marshal(notation)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	snapJSON, err := game.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO games (
		   game_id,
		   white,
		   black,
		   winner,
		   outcome_kind,
		   points,
		   turns,
		   history,
		   history_offset,
		   snapshot,
		   finished_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gameID,
		snap.Players[core.White],
		snap.Players[core.Black],
		int(snap.Outcome.Winner),
		snap.Outcome.Kind.String(),
		snap.Outcome.Points,
		snap.TurnNumber,
		string(historyJSON),
		offset,
		string(snapJSON),
		toMillis(s.now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("archive %s: %w", gameID, ErrAlreadyExists)
		}
		return fmt.Errorf("archive game: %w", err)
	}

	s.logger.Debug().
		Str("game_id", gameID).
		Str("winner", snap.Outcome.Winner.String()).
		Int("points", snap.Outcome.Points).
		Msg("Game archived")
	return nil
}

const selectGameColumns = `game_id, white, black, winner, outcome_kind, points, turns, history, history_offset, snapshot, finished_at`

// GetGame returns one archived game by ID.
func (s *Store) GetGame(ctx context.Context, gameID string) (GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return GameRecord{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+selectGameColumns+` FROM games WHERE game_id = ?`, gameID)
	rec, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return GameRecord{}, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	if err != nil {
		return GameRecord{}, fmt.Errorf("get game: %w", err)
	}
	return rec, nil
}

// ListGames returns up to limit archived games, most recent first.
// A non-positive limit returns every game.
func (s *Store) ListGames(ctx context.Context, limit int) ([]GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := `SELECT ` + selectGameColumns + ` FROM games ORDER BY finished_at DESC, game_id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return out, nil
}

// PlayerSummary aggregates every archived game played under name.
func (s *Store) PlayerSummary(ctx context.Context, name string) (PlayerSummary, error) {
	if err := ctx.Err(); err != nil {
		return PlayerSummary{}, err
	}
	sum := PlayerSummary{Name: name}
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT
		  COUNT(*),
		  COALESCE(SUM(CASE WHEN (white = ? AND winner = ?) OR (black = ? AND winner = ?) THEN 1 ELSE 0 END), 0),
		  COALESCE(SUM(CASE WHEN (white = ? AND winner = ?) OR (black = ? AND winner = ?) THEN points ELSE 0 END), 0),
		  COALESCE(SUM(CASE WHEN (white = ? AND winner = ?) OR (black = ? AND winner = ?) THEN points ELSE 0 END), 0)
		FROM games
		WHERE white = ? OR black = ?`,
		name, int(core.White), name, int(core.Black),
		name, int(core.White), name, int(core.Black),
		name, int(core.Black), name, int(core.White),
		name, name,
	)
	if err := row.Scan(&sum.Games, &sum.Wins, &sum.PointsWon, &sum.PointsLost); err != nil {
		return PlayerSummary{}, fmt.Errorf("player summary: %w", err)
	}
	return sum, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (GameRecord, error) {
	var (
		rec         GameRecord
		winner      int
		historyJSON string
		snapJSON    string
		finishedAt  int64
	)
	if err := row.Scan(
		&rec.GameID,
		&rec.Players[core.White],
		&rec.Players[core.Black],
		&winner,
		&rec.Kind,
		&rec.Points,
		&rec.Turns,
		&historyJSON,
		&rec.HistoryOffset,
		&snapJSON,
		&finishedAt,
	); err != nil {
		return GameRecord{}, err
	}
	rec.Winner = core.Player(winner)
	rec.FinishedAt = fromMillis(finishedAt)
	if err := json.Unmarshal([]byte(historyJSON), &rec.History); err != nil {
		return GameRecord{}, fmt.Errorf("decode history of %s: %w", rec.GameID, err)
	}
	snap, err := game.UnmarshalSnapshot([]byte(snapJSON))
	if err != nil {
		return GameRecord{}, err
	}
	rec.Snapshot = snap
	return rec, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed")
}
