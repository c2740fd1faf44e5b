package cartstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "cart:visitor:abc", key("abc"))
}

func TestRedisStore_UnreachableIsNotEmpty(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, time.Hour)

	_, err := store.Load(context.Background(), "v1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmpty), "infrastructure errors must not look like an empty cart")

	called := false
	err = store.Update(context.Background(), "v1", func([]byte) ([]byte, error) {
		called = true
		return []byte(`{}`), nil
	})
	assert.Error(t, err)
	assert.False(t, called, "nothing is written without a successful read")
	assert.Error(t, store.Ping(context.Background()))
}
