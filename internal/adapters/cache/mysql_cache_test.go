package cache

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

var selectQuery = regexp.QuoteMeta("SELECT verdict, created_at, expires_at FROM verdict_cache WHERE cache_key = ? AND expires_at > ?")

func newMockCache(t *testing.T) (*SQLCache, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewMySQLCacheFromDB(db, zap.NewNop(), 0), mock
}

func TestSQLCacheGet(t *testing.T) {
	c, mock := newMockCache(t)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	expires := created.Add(24 * time.Hour)

	mock.ExpectQuery(selectQuery).
		WithArgs("abc", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"verdict", "created_at", "expires_at"}).
			AddRow([]byte(`{"prediction":"spam","reason":"bait","recommendation":"Delete","spam_words":["win"]}`), created, expires))

	entry, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", entry.Key)
	assert.Equal(t, core.LabelSpam, entry.Verdict.Prediction)
	assert.Equal(t, []string{"win"}, entry.Verdict.SpamWords)
	assert.Equal(t, expires, entry.ExpiresAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCacheGetMissing(t *testing.T) {
	c, mock := newMockCache(t)

	mock.ExpectQuery(selectQuery).
		WithArgs("nope", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"verdict", "created_at", "expires_at"}))

	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)

	mock.ExpectQuery(selectQuery).
		WithArgs("broken", sqlmock.AnyArg()).
		WillReturnError(errors.New("connection lost"))

	_, err = c.Get(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCacheSetDeleteCleanup(t *testing.T) {
	c, mock := newMockCache(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO verdict_cache (cache_key, verdict, created_at, expires_at)")).
		WithArgs("abc", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM verdict_cache WHERE cache_key = ?")).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM verdict_cache WHERE expires_at <= ?")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectClose()

	require.NoError(t, c.Set(context.Background(), &core.CacheEntry{
		Key:       "abc",
		Verdict:   core.GenerativeVerdict{Prediction: core.LabelNotSpam},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, c.Delete(context.Background(), "abc"))
	require.NoError(t, c.Cleanup(context.Background()))
	require.NoError(t, c.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}
