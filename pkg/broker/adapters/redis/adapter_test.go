package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queue-vision/queue-vision/pkg/broker"
	redisAdapter "github.com/queue-vision/queue-vision/pkg/broker/adapters/redis"
)

func newTestAdapter(t *testing.T) (*redisAdapter.Adapter, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	adapter := redisAdapter.New(redisAdapter.Config{Prefix: "bull"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := adapter.Connect(ctx, "redis://"+s.Addr()+"/0")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = adapter.Disconnect(context.Background())
	})

	return adapter, s
}

func seedJob(t *testing.T, s *miniredis.Miniredis, queue, id string, fields map[string]string) {
	t.Helper()
	key := "bull:" + queue + ":" + id
	for field, value := range fields {
		s.HSet(key, field, value)
	}
}

func TestConnectRejectsMalformedEndpoint(t *testing.T) {
	adapter := redisAdapter.New(redisAdapter.Config{})
	err := adapter.Connect(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
}

func TestOperationsBeforeConnectFail(t *testing.T) {
	adapter := redisAdapter.New(redisAdapter.Config{})
	_, err := adapter.Discover(context.Background())
	assert.Error(t, err)
}

func TestDiscoverFindsQueuesViaMetaKeys(t *testing.T) {
	adapter, s := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, s.Set("bull:emails:meta", "{}"))
	s.Lpush("bull:emails:wait", "1")
	s.Lpush("bull:emails:wait", "2")
	s.Lpush("bull:emails:active", "3")

	queues, err := adapter.Discover(ctx)
	require.NoError(t, err)
	require.Len(t, queues, 1)
	assert.Equal(t, "emails", queues[0].Name)
	assert.Equal(t, int64(2), queues[0].Waiting)
	assert.Equal(t, int64(1), queues[0].Active)
}

func TestDiscoverDropsReservedQueueNames(t *testing.T) {
	adapter, s := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, s.Set("bull:wait:meta", "{}"))
	require.NoError(t, s.Set("bull:emails:meta", "{}"))

	queues, err := adapter.Discover(ctx)
	require.NoError(t, err)
	require.Len(t, queues, 1)
	assert.Equal(t, "emails", queues[0].Name)
}

func TestListJobsWaiting(t *testing.T) {
	adapter, s := newTestAdapter(t)
	ctx := context.Background()

	s.Lpush("bull:emails:wait", "2")
	s.Lpush("bull:emails:wait", "1")
	seedJob(t, s, "emails", "1", map[string]string{"data": `{"to":"a"}`})
	seedJob(t, s, "emails", "2", map[string]string{"data": `{"to":"b"}`})

	jobs, err := adapter.ListJobs(ctx, broker.ListJobsQuery{
		Queue: "emails", Status: broker.StatusWaiting, Offset: 0, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, broker.StatusWaiting, jobs[0].Status)
}

func TestListJobsRejectsInvalidLimit(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	_, err := adapter.ListJobs(context.Background(), broker.ListJobsQuery{Queue: "emails", Status: broker.StatusWaiting, Limit: 0})
	assert.Error(t, err)

	_, err = adapter.ListJobs(context.Background(), broker.ListJobsQuery{Queue: "emails", Status: broker.StatusWaiting, Limit: 101})
	assert.Error(t, err)
}

func TestFetchJobProbesEachStatus(t *testing.T) {
	adapter, s := newTestAdapter(t)
	ctx := context.Background()

	s.ZAdd("bull:emails:completed", 100, "5")
	seedJob(t, s, "emails", "5", map[string]string{
		"data":        `{"to":"c"}`,
		"processedOn": "100",
		"finishedOn":  "200",
	})

	job, err := adapter.FetchJob(ctx, "emails", "5")
	require.NoError(t, err)
	assert.Equal(t, broker.StatusCompleted, job.Status)
}

func TestFetchJobNotFound(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	_, err := adapter.FetchJob(context.Background(), "emails", "missing")
	assert.Error(t, err)
}

func TestSubscribeFailsWithoutKeyspaceNotifications(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	_, err := adapter.Subscribe(func(broker.JobEvent) {})
	assert.Error(t, err)
}

func TestDisconnectThenOperationFails(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	require.NoError(t, adapter.Disconnect(context.Background()))

	_, err := adapter.Discover(context.Background())
	assert.Error(t, err)
}
