// SPDX-License-Identifier: Apache-2.0

package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxverify/rxverify-mcp/internal/cache"
)

type entry struct {
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
}

func TestKey(t *testing.T) {
	a := cache.Key("fp1", "text", []byte("Tab Paracetamol"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, cache.Key("fp1", "text", []byte("Tab Paracetamol")))
	assert.NotEqual(t, a, cache.Key("fp2", "text", []byte("Tab Paracetamol")))
	assert.NotEqual(t, a, cache.Key("fp1", "vision", []byte("Tab Paracetamol")))
	assert.NotEqual(t, a, cache.Key("fp1", "text", []byte("Tab Paracetamol ")))
	// separators keep the parts from running together
	assert.NotEqual(t, cache.Key("fp1", "ab", []byte("c")), cache.Key("fp1", "a", []byte("bc")))
	assert.NotEqual(t, cache.Key("fp1", "text", nil), cache.Key("fp", "1text", nil))
}

func TestRedisCache_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.NewRedisCache(db, cache.WithPrefix("test:"))
	ctx := context.Background()

	want := entry{Name: "Paracetamol", Confidence: 95}
	data, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet("test:hit").SetVal(string(data))
	mock.ExpectGet("test:miss").RedisNil()
	mock.ExpectGet("test:down").SetErr(errors.New("connection refused"))
	mock.ExpectGet("test:garbage").SetVal("{not json")

	var got entry
	require.NoError(t, c.Get(ctx, "hit", &got))
	assert.Equal(t, want, got)

	assert.ErrorIs(t, c.Get(ctx, "miss", &got), cache.ErrCacheMiss)

	err = c.Get(ctx, "down", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrCacheMiss)
	assert.Contains(t, err.Error(), "connection refused")

	err = c.Get(ctx, "garbage", &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode cached value")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := cache.NewRedisCache(db, cache.WithPrefix("test:"), cache.WithTTL(time.Hour))
	ctx := context.Background()

	value := entry{Name: "Ibuprofen", Confidence: 70}
	data, err := json.Marshal(value)
	require.NoError(t, err)

	mock.ExpectSet("test:k", data, time.Hour).SetVal("OK")
	mock.ExpectSet("test:k2", data, time.Hour).SetErr(errors.New("readonly"))

	require.NoError(t, c.Set(ctx, "k", value))
	err = c.Set(ctx, "k2", value)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set")

	assert.Error(t, c.Set(ctx, "bad", make(chan int)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNop(t *testing.T) {
	var c cache.Cache = cache.Nop{}
	var dest entry
	assert.ErrorIs(t, c.Get(context.Background(), "k", &dest), cache.ErrCacheMiss)
	assert.NoError(t, c.Set(context.Background(), "k", entry{}))
}
