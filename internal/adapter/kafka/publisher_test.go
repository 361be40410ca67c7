package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	snap := domain.Snapshot{
		TakenAt:  now,
		Mentions: domain.Mentions{"kyiv": 3, "lviv": 1},
	}

	msg, err := serializeToMessage(snap)
	require.NoError(t, err)

	assert.Equal(t, []byte("2024-04-26 15:10 UTC"), msg.Key)
	assert.JSONEq(t, `{"kyiv":3,"lviv":1}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "taken_at", msg.Headers[0].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[0].Value)
	assert.Equal(t, "places", msg.Headers[1].Key)
	assert.Equal(t, []byte("2"), msg.Headers[1].Value)
}

func TestSerializeToMessage_EmptySnapshot(t *testing.T) {
	snap := domain.Snapshot{TakenAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	msg, err := serializeToMessage(snap)
	require.NoError(t, err)

	assert.JSONEq(t, `{}`, string(msg.Value))
	assert.Equal(t, []byte("0"), msg.Headers[1].Value)
}
