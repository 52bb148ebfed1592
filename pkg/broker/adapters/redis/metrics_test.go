package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsFailureRateAndThroughput(t *testing.T) {
	adapter, s := newTestAdapter(t)
	ctx := context.Background()

	now := float64(time.Now().UnixMilli())
	s.ZAdd("bull:emails:completed", now, "1")
	s.ZAdd("bull:emails:completed", now, "2")
	s.ZAdd("bull:emails:failed", now, "3")

	seedJob(t, s, "emails", "1", map[string]string{"processedOn": "100", "finishedOn": "300"})
	seedJob(t, s, "emails", "2", map[string]string{"processedOn": "100", "finishedOn": "500"})

	m, err := adapter.Metrics(ctx, "emails")
	require.NoError(t, err)

	assert.Equal(t, int64(3), m.Throughput)
	assert.InDelta(t, 1.0/3.0, m.FailureRate, 0.001)
	assert.InDelta(t, 300, m.AvgProcessingMs, 0.001)
}

func TestMetricsEmptyQueueYieldsZeroValues(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	m, err := adapter.Metrics(context.Background(), "emails")
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Throughput)
	assert.Equal(t, 0.0, m.FailureRate)
	assert.Equal(t, 0.0, m.AvgProcessingMs)
}

func TestMetricsRejectsEmptyQueueName(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	_, err := adapter.Metrics(context.Background(), "")
	assert.Error(t, err)
}
