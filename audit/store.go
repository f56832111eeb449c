// Package audit persists an append-only history of board events
// (flips, matches, resets) to Postgres for later inspection. It is not
// part of the board engine's own state — see the non-goal in
// SPEC_FULL.md: the board itself is never restored from this log.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS board_event (
	id          UUID PRIMARY KEY,
	event_type  TEXT NOT NULL,
	player_id   TEXT NOT NULL,
	card_index  INT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_board_event_player_id ON board_event(player_id);
CREATE INDEX IF NOT EXISTS idx_board_event_recorded_at ON board_event(recorded_at DESC);
`

// PostgresStore persists board events to a Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Ensure *PostgresStore implements Store at compile time.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to Postgres and ensures the board_event
// table exists. If databaseURL is empty, NewPostgresStore returns
// (nil, nil) and callers should treat audit logging as disabled.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "audit")
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool. Safe to call on a nil store.
func (s *PostgresStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// RecordEvent appends an event to the log. Safe to call on a nil
// store, in which case it is a no-op.
func (s *PostgresStore) RecordEvent(ctx context.Context, eventType EventType, playerID string, index int) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO board_event (id, event_type, player_id, card_index) VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), string(eventType), playerID, index)
	return err
}

// ListByPlayerID returns every recorded event for playerID, most
// recent first.
func (s *PostgresStore) ListByPlayerID(ctx context.Context, playerID string) ([]Event, error) {
	events := []Event{}
	if s == nil || s.pool == nil {
		return events, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_type, player_id, card_index, recorded_at FROM board_event WHERE player_id = $1 ORDER BY recorded_at DESC`,
		playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e Event
		var recordedAt time.Time
		var t string
		if err := rows.Scan(&e.ID, &t, &e.PlayerID, &e.Index, &recordedAt); err != nil {
			return nil, err
		}
		e.Type = EventType(t)
		e.RecordedAt = recordedAt.Format(time.RFC3339)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Activity returns per-player flip/match counts across all recorded
// events.
func (s *PostgresStore) Activity(ctx context.Context) ([]PlayerActivity, error) {
	activity := []PlayerActivity{}
	if s == nil || s.pool == nil {
		return activity, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT player_id,
			COUNT(*) FILTER (WHERE event_type = 'flip') AS flip_count,
			COUNT(*) FILTER (WHERE event_type = 'match') AS match_count
		FROM board_event
		GROUP BY player_id
		ORDER BY flip_count DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a PlayerActivity
		if err := rows.Scan(&a.PlayerID, &a.FlipCount, &a.MatchCount); err != nil {
			return nil, err
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}
