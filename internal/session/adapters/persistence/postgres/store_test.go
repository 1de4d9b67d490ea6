package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiongate/internal/session/adapters/persistence/postgres"
	"sessiongate/internal/session/adapters/persistence/sealed"
	"sessiongate/internal/session/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func samplePair() domain.TokenPair {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.TokenPair{
		Access:  domain.AccessToken{Value: "access", ExpiresAt: exp},
		Refresh: domain.RefreshToken{Value: "refresh", ExpiresAt: exp.Add(time.Hour)},
	}
}

func TestLoad(t *testing.T) {
	mock := newMock(t)
	store := postgres.NewStore(mock, "default", nil)

	payload, err := sealed.JSON{}.Encode(samplePair())
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT payload\s+FROM session_tokens`).
			WithArgs("default").
			WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

		pair, err := store.Load(context.Background())

		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.Equal(t, "refresh", pair.Refresh.Value)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT payload\s+FROM session_tokens`).
			WithArgs("default").
			WillReturnError(pgx.ErrNoRows)

		pair, err := store.Load(context.Background())

		require.NoError(t, err)
		assert.Nil(t, pair)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT payload\s+FROM session_tokens`).
			WithArgs("default").
			WillReturnError(errors.New("connection lost"))

		_, err := store.Load(context.Background())

		assert.ErrorContains(t, err, postgres.ErrLoadTokens)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		mock.ExpectQuery(`SELECT payload\s+FROM session_tokens`).
			WithArgs("default").
			WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow([]byte("{")))

		_, err := store.Load(context.Background())

		assert.ErrorContains(t, err, sealed.ErrDecode)
	})
}

func TestSave(t *testing.T) {
	mock := newMock(t)
	store := postgres.NewStore(mock, "default", nil)
	pair := samplePair()

	t.Run("upsert", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO session_tokens").
			WithArgs("default", pgxmock.AnyArg(), &pair.Refresh.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Save(context.Background(), pair))
	})

	t.Run("unknown refresh expiry stored as null", func(t *testing.T) {
		noExpiry := pair
		noExpiry.Refresh.ExpiresAt = time.Time{}
		mock.ExpectExec("INSERT INTO session_tokens").
			WithArgs("default", pgxmock.AnyArg(), (*time.Time)(nil)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Save(context.Background(), noExpiry))
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO session_tokens").
			WithArgs("default", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("disk full"))

		err := store.Save(context.Background(), pair)

		assert.ErrorContains(t, err, postgres.ErrStoreTokens)
	})
}

func TestClear(t *testing.T) {
	mock := newMock(t)
	store := postgres.NewStore(mock, "default", nil)

	mock.ExpectExec("DELETE FROM session_tokens").
		WithArgs("default").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, store.Clear(context.Background()))

	mock.ExpectExec("DELETE FROM session_tokens").
		WithArgs("default").
		WillReturnError(errors.New("connection lost"))
	assert.ErrorContains(t, store.Clear(context.Background()), postgres.ErrDeleteTokens)
}

func TestCleanupExpired(t *testing.T) {
	mock := newMock(t)
	store := postgres.NewStore(mock, "default", nil)

	mock.ExpectExec(`DELETE FROM session_tokens\s+WHERE refresh_expires_at`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, store.CleanupExpired(context.Background()))
}
