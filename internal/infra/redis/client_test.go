package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := NewClient(Config{URL: "redis://" + mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func TestClient_PayloadRoundTrip(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	_, found, err := c.GetPayload(ctx, "http://remote/items")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetPayload(ctx, "http://remote/items", []byte(`[1,2,3]`), 0))

	got, found, err := c.GetPayload(ctx, "http://remote/items")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`[1,2,3]`), got)

	assert.Equal(t, time.Minute, mr.TTL("payload:http://remote/items"))
}

func TestClient_PayloadExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetPayload(ctx, "u", []byte("x"), 5*time.Second))
	mr.FastForward(6 * time.Second)

	_, found, err := c.GetPayload(ctx, "u")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(Config{URL: "not a url"})
	assert.Error(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewClient(Config{URL: "redis://" + addr})
	assert.Error(t, err)
}

func TestClient_DefaultTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err := NewClient(Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, DefaultTTL, c.TTL())
	assert.NoError(t, c.Health(context.Background()))
}
