package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

var sessionColumns = []string{"id", "script", "prompt", "step_cursor", "log", "waiting", "wait_message", "status", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing()
	s, err := New(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return s, mockPool
}

// -- Test Cases --

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestStore_Migrate(t *testing.T) {
	s, mockPool := newMockStore(t)
	mockPool.ExpectExec(flexibleSQLMatcher(sqlCreateSessions)).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestStore_Save(t *testing.T) {
	t.Run("upserts inside a transaction", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		rec := &SessionRecord{ID: "abc", Script: "steps: []", Cursor: 1, Log: "log", Waiting: true, WaitMessage: "sign in", Status: "paused_for_user"}

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertSession)).
			WithArgs("abc", "steps: []", "", 1, "log", true, "sign in", "paused_for_user", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		require.NoError(t, s.Save(context.Background(), rec))
		assert.False(t, rec.CreatedAt.IsZero())
		assert.False(t, rec.UpdatedAt.IsZero())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		dbErr := errors.New("disk full")

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlUpsertSession)).WillReturnError(dbErr)
		mockPool.ExpectRollback()

		err := s.Save(context.Background(), &SessionRecord{ID: "abc"})
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestStore_Load(t *testing.T) {
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectSession)).
			WithArgs("abc").
			WillReturnRows(pgxmock.NewRows(sessionColumns).
				AddRow("abc", "steps: []", "X", 2, "log", false, "", "completed", created, created))

		rec, err := s.Load(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "X", rec.Prompt)
		assert.Equal(t, 2, rec.Cursor)
		assert.Equal(t, "completed", rec.Status)
		assert.Equal(t, created, rec.CreatedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		mockPool.ExpectQuery(flexibleSQLMatcher(sqlSelectSession)).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

		_, err := s.Load(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestStore_Delete(t *testing.T) {
	s, mockPool := newMockStore(t)
	mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteSession)).WithArgs("abc").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mockPool.ExpectExec(flexibleSQLMatcher(sqlDeleteSession)).WithArgs("abc").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.Delete(context.Background(), "abc"))
	assert.ErrorIs(t, s.Delete(context.Background(), "abc"), ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestStore_List(t *testing.T) {
	s, mockPool := newMockStore(t)
	t1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlListSessions)).
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("a", "s", "", 0, "", false, "", "idle", t1, t1).
			AddRow("b", "s", "", 1, "", true, "go", "paused_for_user", t2, t2))

	recs, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.True(t, recs[1].Waiting)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, err := m.Load(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	first := &SessionRecord{ID: "b", Status: "idle", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	second := &SessionRecord{ID: "a", Status: "idle", CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, m.Save(ctx, first))
	require.NoError(t, m.Save(ctx, second))

	loaded, err := m.Load(ctx, "b")
	require.NoError(t, err)
	loaded.Status = "mutated"
	again, _ := m.Load(ctx, "b")
	assert.Equal(t, "idle", again.Status, "loaded records are copies")

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	require.NoError(t, m.Delete(ctx, "b"))
	assert.ErrorIs(t, m.Delete(ctx, "b"), ErrNotFound)
}
