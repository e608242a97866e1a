package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// SessionRecord is the persisted form of a supervised run.
type SessionRecord struct {
	ID          string    `json:"id"`
	Script      string    `json:"script"`
	Prompt      string    `json:"prompt"`
	Cursor      int       `json:"cursor"`
	Log         string    `json:"log"`
	Waiting     bool      `json:"waiting"`
	WaitMessage string    `json:"wait_message"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionStore persists session records.
type SessionStore interface {
	Save(ctx context.Context, rec *SessionRecord) error
	Load(ctx context.Context, id string) (*SessionRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]SessionRecord, error)
}

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the PostgreSQL SessionStore.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ SessionStore = (*Store)(nil)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const (
	sqlCreateSessions = `
        CREATE TABLE IF NOT EXISTS handoff_sessions (
            id           TEXT PRIMARY KEY,
            script       TEXT NOT NULL,
            prompt       TEXT NOT NULL DEFAULT '',
            step_cursor  INTEGER NOT NULL DEFAULT 0,
            log          TEXT NOT NULL DEFAULT '',
            waiting      BOOLEAN NOT NULL DEFAULT FALSE,
            wait_message TEXT NOT NULL DEFAULT '',
            status       TEXT NOT NULL,
            created_at   TIMESTAMPTZ NOT NULL,
            updated_at   TIMESTAMPTZ NOT NULL
        );`

	sqlUpsertSession = `
        INSERT INTO handoff_sessions (id, script, prompt, step_cursor, log, waiting, wait_message, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            script = EXCLUDED.script,
            prompt = EXCLUDED.prompt,
            step_cursor = EXCLUDED.step_cursor,
            log = EXCLUDED.log,
            waiting = EXCLUDED.waiting,
            wait_message = EXCLUDED.wait_message,
            status = EXCLUDED.status,
            updated_at = EXCLUDED.updated_at;`

	sqlSelectSessionColumns = `
        SELECT id, script, prompt, step_cursor, log, waiting, wait_message, status, created_at, updated_at
        FROM handoff_sessions`

	sqlSelectSession = sqlSelectSessionColumns + ` WHERE id = $1;`
	sqlListSessions  = sqlSelectSessionColumns + ` ORDER BY created_at;`
	sqlDeleteSession = `DELETE FROM handoff_sessions WHERE id = $1;`
)

// Migrate creates the sessions table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateSessions); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// Save inserts or updates rec. UpdatedAt is set to now; CreatedAt is filled
// in when zero.
func (s *Store) Save(ctx context.Context, rec *SessionRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.Exec(ctx, sqlUpsertSession,
		rec.ID, rec.Script, rec.Prompt, rec.Cursor, rec.Log,
		rec.Waiting, rec.WaitMessage, rec.Status, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", rec.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanSession(row pgx.Row) (*SessionRecord, error) {
	var rec SessionRecord
	err := row.Scan(&rec.ID, &rec.Script, &rec.Prompt, &rec.Cursor, &rec.Log,
		&rec.Waiting, &rec.WaitMessage, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Load fetches one session.
func (s *Store) Load(ctx context.Context, id string) (*SessionRecord, error) {
	rec, err := scanSession(s.pool.QueryRow(ctx, sqlSelectSession, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes one session.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, sqlDeleteSession, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns every session, oldest first.
func (s *Store) List(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.pool.Query(ctx, sqlListSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return out, nil
}
