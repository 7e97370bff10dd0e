package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authcore/kvstore"
)

func TestKVSet(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)INSERT INTO kv_entries .* ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("authcore:mfa:login:a", []byte("v"), now.Add(time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	kv := NewKV(db).WithClock(func() time.Time { return now })
	require.NoError(t, kv.Set(context.Background(), "authcore:mfa:login:a", []byte("v"), time.Minute))
}

func TestKVGetAndDelete(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`DELETE FROM kv_entries WHERE key = \$1 AND expires_at > \$2 RETURNING value`).
		WithArgs("k", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("v")))
	mock.ExpectQuery(`DELETE FROM kv_entries`).
		WithArgs("k", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	kv := NewKV(db)
	v, err := kv.GetAndDelete(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	_, err = kv.GetAndDelete(context.Background(), "k")
	require.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestKVGetBackendError(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(`SELECT value FROM kv_entries`).
		WithArgs("k", sqlmock.AnyArg()).
		WillReturnError(errors.New("conn reset"))

	_, err := NewKV(db).Get(context.Background(), "k")
	require.ErrorIs(t, err, kvstore.ErrUnavailable)
}

func TestKVDelete(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM kv_entries WHERE key = \$1`).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewKV(db).Delete(context.Background(), "k"))
}
