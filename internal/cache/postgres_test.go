package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_GetHit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM artifacts`).
		WithArgs(NSCompanyDomains, "0000320193").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{"domain":"apple.com"}`)))

	s := NewPostgresWithQuerier(mock)
	value, ok, err := s.Get(context.Background(), NSCompanyDomains, "0000320193")

	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"domain":"apple.com"}`, string(value))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM artifacts`).
		WithArgs(NSCompanyDomains, "absent").
		WillReturnRows(pgxmock.NewRows([]string{"value"}))

	s := NewPostgresWithQuerier(mock)
	_, ok, err := s.Get(context.Background(), NSCompanyDomains, "absent")

	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetWithTTL(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO artifacts`).
		WithArgs(NSFilings, "k", []byte("v"), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithQuerier(mock)
	require.NoError(t, s.Set(context.Background(), NSFilings, "k", []byte("v"), time.Hour))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetZeroTTLStoresNullExpiry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var nilTime *time.Time
	mock.ExpectExec(`INSERT INTO artifacts`).
		WithArgs(NSEmbeddings, "k", []byte("v"), nilTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithQuerier(mock)
	require.NoError(t, s.Set(context.Background(), NSEmbeddings, "k", []byte("v"), 0))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ClearNamespace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM artifacts WHERE namespace`).
		WithArgs(NSFilings).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	s := NewPostgresWithQuerier(mock)
	n, err := s.ClearNamespace(context.Background(), NSFilings)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Stats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT namespace, COUNT`).
		WillReturnRows(pgxmock.NewRows([]string{"namespace", "count"}).
			AddRow(NSFilings, int64(2)).
			AddRow(NSEmbeddings, int64(5)))

	s := NewPostgresWithQuerier(mock)
	stats, err := s.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.Entries)
	assert.Equal(t, int64(2), stats.ByNamespace[NSFilings])
	assert.Equal(t, int64(5), stats.ByNamespace[NSEmbeddings])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Sweep(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM artifacts WHERE expires_at IS NOT NULL`).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	s := NewPostgresWithQuerier(mock)
	n, err := s.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
