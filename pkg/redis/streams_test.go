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

func setupStreamClient(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublishAndReadFromStream(t *testing.T) {
	client := setupStreamClient(t)
	ctx := context.Background()

	const stream = "photo:jobs"
	const group = "photo-workers"

	require.NoError(t, CreateConsumerGroup(ctx, client, stream, group))

	job := map[string]string{
		"agency_id":   "agency-1",
		"property_id": "property-1",
		"file_url":    "https://cdn.example.com/p.jpg",
	}
	id, err := PublishJSONToStream(ctx, client, stream, job)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	messages, err := ReadFromStream(ctx, client, stream, group, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	data, ok := messages[0].Values["data"].(string)
	require.True(t, ok)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, "property-1", decoded["property_id"])
	assert.Contains(t, messages[0].Values, "timestamp")

	require.NoError(t, AckMessage(ctx, client, stream, group, messages[0].ID))
}

func TestCreateConsumerGroup_Idempotent(t *testing.T) {
	client := setupStreamClient(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "s", "g"))
	require.NoError(t, CreateConsumerGroup(ctx, client, "s", "g"))
}

func TestPublishToStream_StringifiesValues(t *testing.T) {
	client := setupStreamClient(t)
	ctx := context.Background()

	_, err := PublishToStream(ctx, client, "s", map[string]interface{}{
		"count":   3,
		"ok":      true,
		"payload": map[string]string{"k": "v"},
	})
	require.NoError(t, err)

	require.NoError(t, CreateConsumerGroup(ctx, client, "s", "g"))
	messages, err := ReadFromStream(ctx, client, "s", "g", "c", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "3", messages[0].Values["count"])
	assert.Equal(t, "true", messages[0].Values["ok"])
	assert.JSONEq(t, `{"k":"v"}`, messages[0].Values["payload"].(string))
}
