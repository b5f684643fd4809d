package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/pokerrooms/internal/game"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	creator          TEXT NOT NULL,
	status           TEXT NOT NULL,
	pot              INTEGER NOT NULL DEFAULT 0,
	players          INTEGER NOT NULL DEFAULT 0,
	min_seats        INTEGER NOT NULL,
	max_seats        INTEGER NOT NULL,
	small_blind      INTEGER NOT NULL,
	big_blind        INTEGER NOT NULL,
	starting_chips   INTEGER NOT NULL,
	created_at       INTEGER NOT NULL,
	last_activity_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS rooms_status_activity ON rooms (status, last_activity_at);
`

const roomColumns = `id, name, creator, status, pot, players, min_seats, max_seats,
	small_blind, big_blind, starting_chips, created_at, last_activity_at`

// SQLiteStore is the embedded durable store. Timestamps are stored as Unix
// milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:" is
// accepted for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if path != ":memory:" {
		if parent := filepath.Dir(path); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveRoom(ctx context.Context, r RoomRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			pot = excluded.pot,
			players = excluded.players,
			last_activity_at = excluded.last_activity_at`,
		r.ID, r.Name, r.Creator, r.Status.String(), r.Pot, r.Players, r.MinSeats, r.MaxSeats,
		r.SmallBlind, r.BigBlind, r.StartingChips, r.CreatedAt.UnixMilli(), r.LastActivityAt.UnixMilli(),
	)
	if err != nil {
		return game.Unavailable("save room "+r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Room(ctx context.Context, id string) (RoomRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	r, err := scanSQLiteRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RoomRecord{}, fmt.Errorf("room %s: %w", id, game.ErrRoomNotFound)
	}
	if err != nil {
		return RoomRecord{}, game.Unavailable("load room "+id, err)
	}
	return r, nil
}

func (s *SQLiteStore) ActiveRooms(ctx context.Context, limit int) ([]RoomRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE status <> ?
		ORDER BY last_activity_at DESC
		LIMIT ?`, game.Finished.String(), limit)
	if err != nil {
		return nil, game.Unavailable("list active rooms", err)
	}
	return collectSQLiteRooms(rows)
}

func (s *SQLiteStore) IdleRooms(ctx context.Context, cutoff time.Time) ([]RoomRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE status = ? AND last_activity_at < ?
		ORDER BY last_activity_at`, game.Waiting.String(), cutoff.UnixMilli())
	if err != nil {
		return nil, game.Unavailable("list idle rooms", err)
	}
	return collectSQLiteRooms(rows)
}

func (s *SQLiteStore) MarkFinished(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rooms SET status = ?, last_activity_at = ? WHERE id = ?`,
		game.Finished.String(), at.UnixMilli(), id)
	if err != nil {
		return game.Unavailable("finish room "+id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish room %s: %w", id, game.ErrRoomNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRoom(row rowScanner) (RoomRecord, error) {
	var (
		r                 RoomRecord
		status            string
		created, activity int64
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Creator, &status, &r.Pot, &r.Players, &r.MinSeats, &r.MaxSeats,
		&r.SmallBlind, &r.BigBlind, &r.StartingChips, &created, &activity); err != nil {
		return RoomRecord{}, err
	}
	st, err := game.ParseStatus(status)
	if err != nil {
		return RoomRecord{}, err
	}
	r.Status = st
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.LastActivityAt = time.UnixMilli(activity).UTC()
	return r, nil
}

func collectSQLiteRooms(rows *sql.Rows) ([]RoomRecord, error) {
	defer rows.Close()
	var out []RoomRecord
	for rows.Next() {
		r, err := scanSQLiteRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, game.Unavailable("scan rooms", err)
	}
	return out, nil
}
