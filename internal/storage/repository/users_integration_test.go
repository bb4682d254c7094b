package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_EnsureUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	u, err := storage.EnsureUser(ctx, 100, "alice", "Alice", 10, false)
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.TgID)
	assert.Equal(t, 10, u.Credits)
	assert.False(t, u.IsAdmin)

	// повторный вызов не перезаписывает баланс
	require.NoError(t, storage.AddCredits(ctx, 100, 5))
	u, err = storage.EnsureUser(ctx, 100, "alice", "Alice", 10, false)
	require.NoError(t, err)
	assert.Equal(t, 15, u.Credits)
}

func TestStorage_GetUser_NotFound(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, err := storage.GetUser(context.Background(), 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStorage_DeductCredits(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, 200, "bob", 3, false)

	ok, err := storage.DeductCredits(ctx, 200, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, factory.Credits(t, 200))

	// списание больше баланса отклоняется, баланс не меняется
	ok, err = storage.DeductCredits(ctx, 200, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, factory.Credits(t, 200))
}

// Конкурентные списания по одному кредиту: успешных ровно min(N, B),
// итоговый баланс max(B-N, 0), отрицательным не бывает.
func TestStorage_DeductCredits_Concurrent(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	const startBalance = 5
	const attempts = 20
	factory.CreateUser(t, 300, "carol", startBalance, false)

	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := storage.DeductCredits(ctx, 300, 1)
			require.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	assert.Equal(t, startBalance, succeeded)
	assert.Equal(t, 0, factory.Credits(t, 300))
}

func TestStorage_SetBan(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, 400, "dave", 0, false)

	until := time.Now().Add(time.Hour).UTC()
	require.NoError(t, storage.SetBan(ctx, 400, &until))

	u, err := storage.GetUser(ctx, 400)
	require.NoError(t, err)
	require.NotNil(t, u.BannedUntil)
	assert.True(t, u.Banned(time.Now()))

	require.NoError(t, storage.SetBan(ctx, 400, nil))
	u, err = storage.GetUser(ctx, 400)
	require.NoError(t, err)
	assert.Nil(t, u.BannedUntil)
}

func TestStorage_ListRecentUsers(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	factory.CreateUser(t, 1, "first", 0, false)
	factory.CreateUser(t, 2, "second", 0, false)
	factory.CreateUser(t, 3, "third", 0, false)

	users, err := storage.ListRecentUsers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	ids, err := storage.AllUserIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids)
}

func TestStorage_Maintenance(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	on, err := storage.IsMaintenance(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, storage.SetMaintenance(ctx, true))
	on, err = storage.IsMaintenance(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, storage.SetMaintenance(ctx, false))
	on, err = storage.IsMaintenance(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

// Воркер рассылки ждёт применения миграций перед стартом потребителя.
func TestStorage_CheckDatabaseReady(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	require.NoError(t, CheckDatabaseReady(storage))

	_, err := storage.DB.Exec(`DROP TABLE users CASCADE`)
	require.NoError(t, err)
	assert.Error(t, CheckDatabaseReady(storage))
}
