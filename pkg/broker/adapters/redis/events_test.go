package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-vision/queue-vision/pkg/broker"
)

func TestParseEventQueueWaiting(t *testing.T) {
	event, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:wait", "lpush")
	require.True(t, ok)
	assert.Equal(t, broker.EventWaiting, event.Kind)
	assert.Equal(t, "emails", event.Queue)
	assert.Equal(t, "", event.JobID)
}

func TestParseEventQueueDequeuedFromActive(t *testing.T) {
	event, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:active", "lrem")
	require.True(t, ok)
	assert.Equal(t, broker.EventDequeued, event.Kind)
	assert.Equal(t, "emails", event.Queue)
}

func TestParseEventCompleted(t *testing.T) {
	event, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:completed", "zadd")
	require.True(t, ok)
	assert.Equal(t, broker.EventCompleted, event.Kind)
}

func TestParseEventFailed(t *testing.T) {
	event, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:failed", "zadd")
	require.True(t, ok)
	assert.Equal(t, broker.EventFailed, event.Kind)
}

func TestParseEventDelayed(t *testing.T) {
	event, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:delayed", "zadd")
	require.True(t, ok)
	assert.Equal(t, broker.EventDelayed, event.Kind)
}

func TestParseEventJobUpdated(t *testing.T) {
	event, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:42", "hset")
	require.True(t, ok)
	assert.Equal(t, broker.EventUpdated, event.Kind)
	assert.Equal(t, "emails", event.Queue)
	assert.Equal(t, "42", event.JobID)
}

func TestParseEventJobRemoved(t *testing.T) {
	event, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:42", "del")
	require.True(t, ok)
	assert.Equal(t, broker.EventRemoved, event.Kind)
}

func TestParseEventUnknownOpDefaultsToUpdated(t *testing.T) {
	event, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:42", "expire")
	require.True(t, ok)
	assert.Equal(t, broker.EventUpdated, event.Kind)
}

func TestParseEventDropsMetaKey(t *testing.T) {
	_, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:meta", "hset")
	assert.False(t, ok)
}

func TestParseEventRejectsWrongPrefix(t *testing.T) {
	_, ok := ParseEvent("bull", 0, "__keyspace@0__:other:emails:42", "hset")
	assert.False(t, ok)
}

func TestParseEventRejectsWrongDB(t *testing.T) {
	_, ok := ParseEvent("bull", 0, "__keyspace@3__:bull:emails:42", "hset")
	assert.False(t, ok)
}

func TestParseEventEmbeddedColonsBelongToJobID(t *testing.T) {
	event, ok := ParseEvent("bull", 0, "__keyspace@0__:bull:emails:weird:id:with:colons", "hset")
	require.True(t, ok)
	assert.Equal(t, broker.EventUpdated, event.Kind)
	assert.Equal(t, "emails", event.Queue)
	assert.Equal(t, "weird:id:with:colons", event.JobID)
}
