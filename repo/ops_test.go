package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/userstore/appctx"
	"github.com/Skryldev/userstore/apperr"
	"github.com/Skryldev/userstore/db"
	"github.com/Skryldev/userstore/migrations"
	"github.com/Skryldev/userstore/models"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(db.Config{
		DSN:        filepath.Join(t.TempDir(), "ops.db") + "?_busy_timeout=5000",
		DriverName: "sqlite3",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	require.NoError(t, migrations.Up(context.Background(), d, nil))
	return d
}

func TestOps_RollbackDiscardsInsert(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	boom := errors.New("boom")
	err := d.ExecTx(ctx, func(tx *db.Tx) error {
		id, err := insertUser(ctx, tx, &models.User{Name: "Tx", Email: "tx@ops.com", CreatedAt: now, UpdatedAt: now})
		require.NoError(t, err)
		assert.NotZero(t, id)

		// Visible inside the transaction.
		_, err = findUser(ctx, tx, "test", models.UserFilter{ID: &id})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	users, total, err := findUsers(ctx, d, models.UserFilter{})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Zero(t, total)
}

func TestOps_UpdateAndDelete(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	u := &models.User{Name: "Ops", Email: "ops@ops.com", Password: models.Ptr("pw"), CreatedAt: now, UpdatedAt: now}
	id, err := insertUser(ctx, d, u)
	require.NoError(t, err)
	u.ID = id

	u.Name = "Renamed"
	u.Password = nil
	u.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, updateUser(ctx, d, u))

	got, err := findUser(ctx, d, "test", models.UserFilter{ID: &id})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Nil(t, got.Password)
	assert.True(t, got.UpdatedAt.Equal(u.UpdatedAt))

	require.NoError(t, deleteUser(ctx, d, id))
	_, err = findUser(ctx, d, "test", models.UserFilter{ID: &id})
	assert.True(t, apperr.IsNotFound(err))
}

func TestOps_DuplicateEmailMapsToConflict(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := &models.User{Name: "A", Email: "same@ops.com", CreatedAt: now, UpdatedAt: now}
	_, err := insertUser(ctx, d, u)
	require.NoError(t, err)

	_, err = insertUser(ctx, d, u)
	require.Error(t, err)
	assert.True(t, db.IsDuplicateKey(err), "got %v", err)
	assert.True(t, apperr.IsConflict(apperr.FromDB("create", err)))
}

func TestAuthorize(t *testing.T) {
	target := &models.User{ID: 7}

	assert.NoError(t, authorize(appctx.WithUser(appctx.Background(), models.User{ID: 7}), "op", target))

	err := authorize(appctx.WithUser(appctx.Background(), models.User{ID: 8}), "op", target)
	assert.True(t, apperr.IsUnauthorized(err))

	err = authorize(appctx.Background(), "op", target)
	assert.True(t, apperr.IsUnauthorized(err))

	err = authorize(appctx.Background(), "op", &models.User{ID: appctx.NoUserID})
	assert.True(t, apperr.IsUnauthorized(err), "missing identity never matches")
}

func TestDescribeFilter(t *testing.T) {
	assert.Equal(t, "id 3", describeFilter(models.UserFilter{ID: models.Ptr(int64(3))}))
	assert.Equal(t, `email "a@b.c"`, describeFilter(models.UserFilter{Email: models.Ptr("a@b.c")}))
	assert.Equal(t, "filter", describeFilter(models.UserFilter{}))
}
