package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-vision/queue-vision/pkg/broker"
	"github.com/queue-vision/queue-vision/pkg/broker/adapters/memory"
)

func TestDiscoverReturnsSeededQueues(t *testing.T) {
	adapter := memory.New()
	require.NoError(t, adapter.Connect(context.Background(), ""))

	adapter.Seed("emails", broker.StatusWaiting, broker.Job{Queue: "emails", ID: "1"})
	adapter.Seed("emails", broker.StatusCompleted, broker.Job{Queue: "emails", ID: "2"})

	queues, err := adapter.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, queues, 1)
	assert.Equal(t, "emails", queues[0].Name)
	assert.Equal(t, int64(1), queues[0].Waiting)
	assert.Equal(t, int64(1), queues[0].Completed)
}

func TestListJobsPaginates(t *testing.T) {
	adapter := memory.New()
	require.NoError(t, adapter.Connect(context.Background(), ""))

	for i := 0; i < 5; i++ {
		adapter.Seed("emails", broker.StatusWaiting, broker.Job{Queue: "emails", ID: string(rune('a' + i))})
	}

	jobs, err := adapter.ListJobs(context.Background(), broker.ListJobsQuery{
		Queue: "emails", Status: broker.StatusWaiting, Offset: 2, Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}

func TestFetchJobNotFound(t *testing.T) {
	adapter := memory.New()
	require.NoError(t, adapter.Connect(context.Background(), ""))

	_, err := adapter.FetchJob(context.Background(), "emails", "missing")
	assert.Error(t, err)
}

func TestOperationsRequireConnect(t *testing.T) {
	adapter := memory.New()
	_, err := adapter.Discover(context.Background())
	assert.Error(t, err)
}

func TestSubscribeReceivesEmittedEvents(t *testing.T) {
	adapter := memory.New()
	require.NoError(t, adapter.Connect(context.Background(), ""))

	received := make(chan broker.JobEvent, 1)
	unregister, err := adapter.Subscribe(func(e broker.JobEvent) {
		received <- e
	})
	require.NoError(t, err)
	defer unregister()

	adapter.Emit(broker.JobEvent{Kind: broker.EventCompleted, Queue: "emails", JobID: "1"})

	event := <-received
	assert.Equal(t, broker.EventCompleted, event.Kind)
	assert.Equal(t, "emails", event.Queue)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	adapter := memory.New()
	require.NoError(t, adapter.Connect(context.Background(), ""))

	calls := 0
	unregister, err := adapter.Subscribe(func(e broker.JobEvent) {
		calls++
	})
	require.NoError(t, err)
	unregister()

	adapter.Emit(broker.JobEvent{Kind: broker.EventUpdated})
	assert.Equal(t, 0, calls)
}
