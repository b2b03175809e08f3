package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := ConnectRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	mr.Close()
	_, err = ConnectRedis(context.Background(), mr.Addr(), "", 0)
	assert.Error(t, err)
}

func TestJournalPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	j := NewJournal(rdb, "")
	assert.Equal(t, DefaultQueueName, j.Queue())

	rec := ActionRecord{
		GameID:        uuid.New(),
		RoomID:        "a1b",
		ActionIndex:   3,
		ActorUserID:   uuid.New(),
		ActionType:    "song_selected",
		ActionPayload: map[string]interface{}{"song_id": "xyz"},
		Timestamp:     1700000000000,
	}
	require.NoError(t, j.Publish(context.Background(), rec))

	items, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var got ActionRecord
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	assert.Equal(t, rec.GameID, got.GameID)
	assert.Equal(t, "a1b", got.RoomID)
	assert.Equal(t, "song_selected", got.ActionType)
	assert.Equal(t, "xyz", got.ActionPayload["song_id"])
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Publish(context.Background(), ActionRecord{}))
}
