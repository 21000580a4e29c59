package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/shopcart/internal/errors"
)

func setupMiniredis(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStorage(client), mr
}

func TestRedisStorage_Get(t *testing.T) {
	storage, mr := setupMiniredis(t)
	c := context.Background()

	mr.Set("carts:a", `[{"id":"1","quantity":2}]`)

	blob, err := storage.Get(c, "carts:a")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1","quantity":2}]`, string(blob))

	_, err = storage.Get(c, "carts:missing")
	assert.ErrorIs(t, err, inErrors.ErrBlobNotFound)
}

func TestRedisStorage_SetReplacesWithoutExpiry(t *testing.T) {
	storage, mr := setupMiniredis(t)
	c := context.Background()

	require.NoError(t, storage.Set(c, "carts:a", []byte(`[{"id":"1"}]`)))
	require.NoError(t, storage.Set(c, "carts:a", []byte(`[{"id":"2"}]`)))

	got, err := mr.Get("carts:a")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"2"}]`, got)
	assert.Zero(t, mr.TTL("carts:a"))
}

func TestRedisStorage_Delete(t *testing.T) {
	storage, mr := setupMiniredis(t)
	c := context.Background()

	mr.Set("carts:a", `[]`)
	require.NoError(t, storage.Delete(c, "carts:a"))
	assert.False(t, mr.Exists("carts:a"))

	require.NoError(t, storage.Delete(c, "carts:a"), "deleting an absent key is not an error")
}

func TestRedisStorage_TransportError(t *testing.T) {
	storage, mr := setupMiniredis(t)
	c := context.Background()

	mr.Close()

	_, err := storage.Get(c, "carts:a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, inErrors.ErrBlobNotFound)
	assert.Error(t, storage.Set(c, "carts:a", []byte(`[]`)))
}
