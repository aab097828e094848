package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs   []execCall
	execErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func TestInsert(t *testing.T) {
	db := &fakeDB{}
	repo := NewFailedNotificationRepository(db)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := repo.Insert(context.Background(), FailedNotification{
		AckID:        "ack-1",
		HistoryID:    12345,
		Outcome:      "resolve_failed",
		ErrorMessage: "history lookup failed",
		Payload:      []byte(`{"historyId":12345}`),
		Attempts:     2,
		FailedAt:     at,
	})
	require.NoError(t, err)
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO failed_notifications")
	args := db.execs[0].args
	require.Len(t, args, 10)
	assert.Equal(t, "ack-1", args[0])
	assert.Equal(t, int64(12345), args[2])
	assert.Equal(t, "resolve_failed", args[4])
	assert.Equal(t, int64(2), args[7])
	assert.Equal(t, at, args[9])
}

func TestInsert_Error(t *testing.T) {
	dbErr := errors.New("connection refused")
	repo := NewFailedNotificationRepository(&fakeDB{execErr: dbErr})

	assert.ErrorIs(t, repo.Insert(context.Background(), FailedNotification{AckID: "a"}), dbErr)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewFailedNotificationRepository(db).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS failed_notifications")
}

func TestListPending_QueryError(t *testing.T) {
	_, err := NewFailedNotificationRepository(&fakeDB{}).ListPending(context.Background(), 10)
	assert.Error(t, err)
}
