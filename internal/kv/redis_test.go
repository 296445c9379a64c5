package kv

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Get(context.Background(), "user:nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_PutGetDelete(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user:1", []byte(`{"id":"1"}`), 0))

	data, err := store.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(data))

	require.NoError(t, store.Delete(ctx, "user:1", "user:missing"))
	_, err = store.Get(ctx, "user:1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_PutWithTTL(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "quota:1", []byte("{}"), time.Minute))
	mr.FastForward(61 * time.Second)

	_, err := store.Get(ctx, "quota:1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ListByPrefix(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	for _, k := range []string{"user:a", "user:b", "quota:a", "users-archive"} {
		require.NoError(t, store.Put(ctx, k, []byte("{}"), 0))
	}

	keys, err := store.List(ctx, "user:")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"user:a", "user:b"}, keys)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, "user:", escapeGlob("user:"))
	assert.Equal(t, `odd\*\?\[x\]`, escapeGlob("odd*?[x]"))
}

func TestJSONHelpers(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	type record struct {
		Count int `json:"count"`
	}

	require.NoError(t, PutJSON(ctx, store, "rec", record{Count: 3}, 0))

	got, err := GetJSON[record](ctx, store, "rec")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Count)

	_, err = GetJSON[record](ctx, store, "absent")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "broken", []byte("not json"), 0))
	_, err = GetJSON[record](ctx, store, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
