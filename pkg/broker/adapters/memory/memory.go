// Package memory implements an in-process fake of pkg/broker.Adapter
// for tests and local development, the way pkg/compute/vm/adapters/memory
// and its siblings fake their own contracts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/queue-vision/queue-vision/pkg/broker"
)

// Adapter is an in-memory broker.Adapter backed by plain maps. It
// never talks to the network; Connect only flips the connected flag.
// It does not parse or record the endpoint, so broker.Queue.Endpoint
// is always the zero value.
type Adapter struct {
	mu        sync.RWMutex
	connected bool
	endpoint  broker.Endpoint

	queues map[string]map[broker.JobStatus][]broker.Job

	listenersMu sync.Mutex
	listeners   map[uint64]broker.Listener
	nextID      uint64
}

func New() *Adapter {
	return &Adapter{
		queues:    make(map[string]map[broker.JobStatus][]broker.Job),
		listeners: make(map[uint64]broker.Listener),
	}
}

func (a *Adapter) Connect(_ context.Context, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = true
	return nil
}

func (a *Adapter) Disconnect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return nil
}

func (a *Adapter) requireConnected() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.connected {
		return broker.ErrNotConnected()
	}
	return nil
}

// Seed installs jobs directly into a queue's status bucket, bypassing
// Connect — a test helper, not part of broker.Adapter.
func (a *Adapter) Seed(queue string, status broker.JobStatus, jobs ...broker.Job) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.queues[queue] == nil {
		a.queues[queue] = make(map[broker.JobStatus][]broker.Job)
	}
	a.queues[queue][status] = append(a.queues[queue][status], jobs...)
}

func (a *Adapter) Discover(_ context.Context) ([]broker.Queue, error) {
	if err := a.requireConnected(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.queues))
	for name := range a.queues {
		names = append(names, name)
	}
	sort.Strings(names)

	queues := make([]broker.Queue, 0, len(names))
	for _, name := range names {
		buckets := a.queues[name]
		queues = append(queues, broker.Queue{
			Name:      name,
			Waiting:   int64(len(buckets[broker.StatusWaiting])),
			Active:    int64(len(buckets[broker.StatusActive])),
			Completed: int64(len(buckets[broker.StatusCompleted])),
			Failed:    int64(len(buckets[broker.StatusFailed])),
			Delayed:   int64(len(buckets[broker.StatusDelayed])),
			Endpoint:  a.endpoint,
		})
	}
	return queues, nil
}

func (a *Adapter) ListJobs(_ context.Context, q broker.ListJobsQuery) ([]broker.Job, error) {
	if err := a.requireConnected(); err != nil {
		return nil, err
	}
	if q.Queue == "" {
		return nil, broker.ErrInvalidArgument("queue is required")
	}
	if q.Limit <= 0 {
		return nil, broker.ErrInvalidArgument("limit must be positive")
	}
	if q.Offset < 0 {
		return nil, broker.ErrInvalidArgument("offset must not be negative")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	all := a.queues[q.Queue][q.Status]
	if q.Offset >= len(all) {
		return []broker.Job{}, nil
	}
	end := q.Offset + q.Limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]broker.Job, end-q.Offset)
	copy(out, all[q.Offset:end])
	return out, nil
}

func (a *Adapter) FetchJob(_ context.Context, queue, id string) (broker.Job, error) {
	if err := a.requireConnected(); err != nil {
		return broker.Job{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, bucket := range a.queues[queue] {
		for _, job := range bucket {
			if job.ID == id {
				return job, nil
			}
		}
	}
	return broker.Job{}, broker.ErrNotFound(queue, id)
}

func (a *Adapter) Metrics(_ context.Context, queue string) (broker.Metrics, error) {
	if err := a.requireConnected(); err != nil {
		return broker.Metrics{}, err
	}
	if queue == "" {
		return broker.Metrics{}, broker.ErrInvalidArgument("queue is required")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	buckets := a.queues[queue]
	completed := len(buckets[broker.StatusCompleted])
	failed := len(buckets[broker.StatusFailed])

	var failureRate float64
	if denom := completed + failed; denom > 0 {
		failureRate = float64(failed) / float64(denom)
	}

	return broker.Metrics{
		Queue:       queue,
		Throughput:  int64(completed + failed),
		FailureRate: failureRate,
	}, nil
}

// Subscribe registers listener and returns an unregister func. Emit
// drives notifications to registered listeners; there is no
// background pump since nothing produces events on its own.
func (a *Adapter) Subscribe(listener broker.Listener) (broker.Unregister, error) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()

	id := a.nextID
	a.nextID++
	a.listeners[id] = listener

	return func() {
		a.listenersMu.Lock()
		delete(a.listeners, id)
		a.listenersMu.Unlock()
	}, nil
}

// Emit delivers event to every registered listener — a test helper
// for exercising Subscribe-dependent collaborators.
func (a *Adapter) Emit(event broker.JobEvent) {
	a.listenersMu.Lock()
	listeners := make([]broker.Listener, 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.listenersMu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}

var _ broker.Adapter = (*Adapter)(nil)
