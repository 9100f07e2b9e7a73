package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPublishToStream_FlattensValues(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	_, err := PublishToStream(ctx, client, "s", 0, map[string]interface{}{
		"n":    int64(7),
		"f":    1.5,
		"ok":   true,
		"tags": []string{"a"},
	})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, "s", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "7", msgs[0].Values["n"])
	assert.Equal(t, "1.5", msgs[0].Values["f"])
	assert.Equal(t, "true", msgs[0].Values["ok"])
	assert.Equal(t, `["a"]`, msgs[0].Values["tags"])
}

func TestPublishJSONToStream(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	id, err := PublishJSONToStream(ctx, client, "alerts", 100, map[string]int{"alert_id": 3})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "alerts", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var payload map[string]int
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &payload))
	assert.Equal(t, 3, payload["alert_id"])
	assert.NotEmpty(t, msgs[0].Values["timestamp"])
}
