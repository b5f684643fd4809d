package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lox/pokerrooms/internal/game"
)

const postgresSchema = `
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
	created_at       TIMESTAMPTZ NOT NULL,
	last_activity_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS rooms_status_activity ON rooms (status, last_activity_at);
`

// PostgresStore is the durable store for multi-node deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects with dsn and ensures the rooms table exists.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) SaveRoom(ctx context.Context, r RoomRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			pot = EXCLUDED.pot,
			players = EXCLUDED.players,
			last_activity_at = EXCLUDED.last_activity_at`,
		r.ID, r.Name, r.Creator, r.Status.String(), r.Pot, r.Players, r.MinSeats, r.MaxSeats,
		r.SmallBlind, r.BigBlind, r.StartingChips, r.CreatedAt, r.LastActivityAt,
	)
	if err != nil {
		return game.Unavailable("save room "+r.ID, err)
	}
	return nil
}

func (s *PostgresStore) Room(ctx context.Context, id string) (RoomRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	r, err := scanPostgresRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return RoomRecord{}, fmt.Errorf("room %s: %w", id, game.ErrRoomNotFound)
	}
	if err != nil {
		return RoomRecord{}, game.Unavailable("load room "+id, err)
	}
	return r, nil
}

func (s *PostgresStore) ActiveRooms(ctx context.Context, limit int) ([]RoomRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE status <> $1
		ORDER BY last_activity_at DESC
		LIMIT $2`, game.Finished.String(), limit)
	if err != nil {
		return nil, game.Unavailable("list active rooms", err)
	}
	return collectPostgresRooms(rows)
}

func (s *PostgresStore) IdleRooms(ctx context.Context, cutoff time.Time) ([]RoomRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE status = $1 AND last_activity_at < $2
		ORDER BY last_activity_at`, game.Waiting.String(), cutoff)
	if err != nil {
		return nil, game.Unavailable("list idle rooms", err)
	}
	return collectPostgresRooms(rows)
}

func (s *PostgresStore) MarkFinished(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE rooms SET status = $1, last_activity_at = $2 WHERE id = $3`,
		game.Finished.String(), at, id)
	if err != nil {
		return game.Unavailable("finish room "+id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish room %s: %w", id, game.ErrRoomNotFound)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPostgresRoom(row pgx.Row) (RoomRecord, error) {
	var (
		r      RoomRecord
		status string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Creator, &status, &r.Pot, &r.Players, &r.MinSeats, &r.MaxSeats,
		&r.SmallBlind, &r.BigBlind, &r.StartingChips, &r.CreatedAt, &r.LastActivityAt); err != nil {
		return RoomRecord{}, err
	}
	st, err := game.ParseStatus(status)
	if err != nil {
		return RoomRecord{}, err
	}
	r.Status = st
	return r, nil
}

func collectPostgresRooms(rows pgx.Rows) ([]RoomRecord, error) {
	defer rows.Close()
	var out []RoomRecord
	for rows.Next() {
		r, err := scanPostgresRoom(rows)
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
