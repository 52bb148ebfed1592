package broker

import (
	"context"
	"encoding/json"
	"time"
)

// JobStatus is the closed set of states a job or queue can report.
// Paused is a queue-level flag only; it never appears on a Job.
type JobStatus string

const (
	StatusWaiting   JobStatus = "waiting"
	StatusActive    JobStatus = "active"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusDelayed   JobStatus = "delayed"
	StatusPaused    JobStatus = "paused"
)

// Endpoint is the immutable connection descriptor captured at connect
// time. It is purely diagnostic.
type Endpoint struct {
	Host string
	Port string
	DB   int
}

// Queue is a per-queue snapshot captured at Discover time. It is never
// cached implicitly; callers get a fresh snapshot on every call.
type Queue struct {
	Name      string
	Waiting   int64
	Active    int64
	Completed int64
	Failed    int64
	Delayed   int64
	Endpoint  Endpoint
}

// JobError is the terminal error record attached to a failed job.
type JobError struct {
	Message string
	Stack   []string
}

// Job is a single unit of work identified by (Queue, ID).
type Job struct {
	Queue  string
	ID     string
	Data   json.RawMessage
	Status JobStatus

	Err *JobError

	Attempts    int
	MaxAttempts *int

	CreatedAt   time.Time
	ProcessedAt *time.Time
	FinishedAt  *time.Time
	ScheduledAt *time.Time
	ReturnValue json.RawMessage
}

// Metrics is a per-queue rolling snapshot computed over a sampled
// window of the most recent terminal jobs (see Adapter.Metrics).
type Metrics struct {
	Queue           string
	Throughput      int64
	FailureRate     float64
	AvgProcessingMs float64
}

// EventKind enumerates the job-lifecycle transitions an adapter can
// report through Subscribe.
type EventKind string

const (
	EventUpdated   EventKind = "updated"
	EventRemoved   EventKind = "removed"
	EventWaiting   EventKind = "waiting"
	EventDequeued  EventKind = "dequeued"
	EventActive    EventKind = "active"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventDelayed   EventKind = "delayed"
)

// JobEvent reports a single observed mutation. JobID is empty for
// queue-list events that don't carry an id inline (waiting, dequeued,
// active, completed, failed, delayed at the index level).
type JobEvent struct {
	Kind      EventKind
	Queue     string
	JobID     string
	Timestamp time.Time
}

// Listener receives JobEvents from Subscribe. A listener must not block
// for long; adapters run the delivery loop serially and a slow listener
// delays every other registered listener.
type Listener func(JobEvent)

// Unregister removes a previously registered listener. It is safe to
// call more than once.
type Unregister func()

// ListJobsQuery selects a page of one queue's jobs in one status.
type ListJobsQuery struct {
	Queue  string
	Status JobStatus
	Offset int
	Limit  int
}

// Adapter is the contract every broker plugin implements. Methods that
// touch the broker take a context and stop waiting once it is done.
// The Redis adapter reports this as a Cancelled error (via pkg/errors)
// only from Discover's key scan; its other broker calls report it as a
// Transport error that wraps the context's error.
type Adapter interface {
	// Connect opens the command connection and blocks until the first
	// of {ready, error}, bounded by the adapter's configured connect
	// timeout. It fails with InvalidArgument if endpoint is malformed.
	Connect(ctx context.Context, endpoint string) error

	// Disconnect releases both connections. It is idempotent: calling
	// it again after a successful call is a no-op.
	Disconnect(ctx context.Context) error

	// Discover enumerates queues and their status counts. Returns an
	// empty, non-error collection when the broker has no queues.
	Discover(ctx context.Context) ([]Queue, error)

	// ListJobs returns one page of one queue's jobs in one status.
	// Tombstones (ids present in the index but missing as records) are
	// dropped silently rather than surfaced as errors.
	ListJobs(ctx context.Context, q ListJobsQuery) ([]Job, error)

	// FetchJob resolves a job's status by probing the five status
	// indexes in a fixed order and stops at the first match.
	FetchJob(ctx context.Context, queue, id string) (Job, error)

	// Metrics computes a rolling snapshot over the sampling horizon.
	Metrics(ctx context.Context, queue string) (Metrics, error)

	// Subscribe registers listener for job-lifecycle events across all
	// queues on this connection. How many listeners may be registered
	// at once depends on the adapter: the Redis adapter allows one
	// active subscription and fails a second Subscribe with
	// AlreadySubscribed; the memory fake accepts any number.
	Subscribe(listener Listener) (Unregister, error)
}
