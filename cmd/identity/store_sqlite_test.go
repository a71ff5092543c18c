package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)

	res, err := MigrateSQLite(ctx, db)
	require.NoError(t, err)
	require.NotEmpty(t, res.Applied)

	s, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return newTestSQLiteStore(t)
	})
}

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	first, err := MigrateSQLite(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, first.Applied)

	second, err := MigrateSQLite(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, second.Applied)
}

func TestSQLiteStore_DeleteCascadesCredentials(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, CreateUserInput{Username: "ana", Email: "ana@x.com", PasswordHash: testHash})
	require.NoError(t, err)
	require.NoError(t, s.DeleteUser(ctx, u.ID))

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM user_credentials WHERE user_id = ?`, u.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestSQLiteStore_PingAfterClose(t *testing.T) {
	s := newTestSQLiteStore(t)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())
	err := s.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	require.Error(t, err)
}
