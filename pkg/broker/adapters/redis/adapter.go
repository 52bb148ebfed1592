// Package redis adapts a BullMQ-on-Redis broker to the pkg/broker
// contract, the way pkg/cache/adapters/redis and
// pkg/concurrency/distlock/adapters/redis adapt Redis to their own
// contracts.
package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/queue-vision/queue-vision/pkg/broker"
	"github.com/queue-vision/queue-vision/pkg/errors"
)

type connState int32

const (
	stateDisconnected connState = iota
	stateConnected
	stateSubscribed
)

// Adapter implements broker.Adapter against a BullMQ-compatible Redis
// instance. It owns two connections (command, subscriber) and a
// single listener slot — the single-subscriber model
// described in SPEC_FULL.md §9: a second concurrent Subscribe fails
// rather than fanning out to two independent Redis subscriptions.
type Adapter struct {
	cfg  Config
	keys keyLayout

	state atomic.Int32

	storeMu sync.Mutex
	store   *store

	endpoint broker.Endpoint

	subMu      sync.Mutex
	listener   broker.Listener
	pubsub     *goredis.PubSub
	cancelPump context.CancelFunc
	pumpDone   chan struct{}
}

// New builds an adapter from cfg. It does not connect; call Connect to
// establish the Redis sessions.
func New(cfg Config) *Adapter {
	cfg = cfg.withDefaults()
	return &Adapter{
		cfg:  cfg,
		keys: newKeyLayout(cfg.Prefix),
	}
}

func (a *Adapter) Connect(ctx context.Context, endpoint string) error {
	if connState(a.state.Load()) != stateDisconnected {
		return broker.ErrInvalidArgument("adapter is already connected")
	}

	cmdClient, ep, err := openEndpoint(ctx, endpoint, a.cfg.ConnectTimeout)
	if err != nil {
		return err
	}

	a.storeMu.Lock()
	a.store = &store{cmd: cmdClient}
	a.endpoint = ep
	a.storeMu.Unlock()

	a.state.Store(int32(stateConnected))
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	if connState(a.state.Load()) == stateDisconnected {
		return nil
	}

	a.stopSubscription()

	a.storeMu.Lock()
	defer a.storeMu.Unlock()

	var err error
	if a.store != nil {
		err = a.store.close()
		a.store = nil
	}
	a.state.Store(int32(stateDisconnected))
	return err
}

func (a *Adapter) currentStore() (*store, error) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	if a.store == nil {
		return nil, broker.ErrNotConnected()
	}
	return a.store, nil
}

func (a *Adapter) Discover(ctx context.Context) ([]broker.Queue, error) {
	st, err := a.currentStore()
	if err != nil {
		return nil, err
	}

	metaKeys, err := st.scanAll(ctx, a.keys.MetaPattern())
	if err != nil {
		return nil, err
	}

	queueNames := make([]string, 0, len(metaKeys))
	for _, key := range metaKeys {
		if name, ok := a.keys.ParseMetaKey(key); ok {
			queueNames = append(queueNames, name)
		}
	}

	queues := make([]broker.Queue, len(queueNames))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range queueNames {
		i, name := i, name
		g.Go(func() error {
			q, err := a.discoverOne(gctx, st, name)
			if err != nil {
				return err
			}
			queues[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return queues, nil
}

func (a *Adapter) discoverOne(ctx context.Context, st *store, name string) (broker.Queue, error) {
	waiting, err := st.listLen(ctx, a.keys.Wait(name))
	if err != nil {
		return broker.Queue{}, err
	}
	active, err := st.listLen(ctx, a.keys.Active(name))
	if err != nil {
		return broker.Queue{}, err
	}
	completed, err := st.zCard(ctx, a.keys.Completed(name))
	if err != nil {
		return broker.Queue{}, err
	}
	failed, err := st.zCard(ctx, a.keys.Failed(name))
	if err != nil {
		return broker.Queue{}, err
	}
	delayed, err := st.zCard(ctx, a.keys.Delayed(name))
	if err != nil {
		return broker.Queue{}, err
	}

	return broker.Queue{
		Name:      name,
		Waiting:   waiting,
		Active:    active,
		Completed: completed,
		Failed:    failed,
		Delayed:   delayed,
		Endpoint:  a.endpoint,
	}, nil
}

func (a *Adapter) ListJobs(ctx context.Context, q broker.ListJobsQuery) ([]broker.Job, error) {
	st, err := a.currentStore()
	if err != nil {
		return nil, err
	}
	if q.Queue == "" {
		return nil, broker.ErrInvalidArgument("queue is required")
	}
	if q.Limit <= 0 {
		return nil, broker.ErrInvalidArgument("limit must be positive")
	}
	if q.Limit > 100 {
		return nil, broker.ErrInvalidArgument("limit must not exceed 100")
	}
	if q.Offset < 0 {
		return nil, broker.ErrInvalidArgument("offset must not be negative")
	}

	ids, err := a.idsForStatus(ctx, st, q)
	if err != nil {
		return nil, err
	}

	slots := make([]*broker.Job, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			job, err := a.fetchJobFields(gctx, st, q.Queue, id, q.Status)
			if err != nil {
				// A tombstone: the id is still in the index but its
				// record is gone. Drop it rather than failing the page.
				if errors.Code(err) == broker.CodeNotFound {
					return nil
				}
				return err
			}
			slots[i] = &job
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	jobs := make([]broker.Job, 0, len(slots))
	for _, job := range slots {
		if job != nil {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

func (a *Adapter) idsForStatus(ctx context.Context, st *store, q broker.ListJobsQuery) ([]string, error) {
	stop := q.Offset + q.Limit - 1
	switch q.Status {
	case broker.StatusWaiting:
		return st.listRange(ctx, a.keys.Wait(q.Queue), int64(q.Offset), int64(stop))
	case broker.StatusActive:
		return st.listRange(ctx, a.keys.Active(q.Queue), int64(q.Offset), int64(stop))
	case broker.StatusCompleted:
		members, err := st.zRangeDesc(ctx, a.keys.Completed(q.Queue), int64(q.Offset), int64(stop))
		if err != nil {
			return nil, err
		}
		return idsOf(members), nil
	case broker.StatusFailed:
		members, err := st.zRangeDesc(ctx, a.keys.Failed(q.Queue), int64(q.Offset), int64(stop))
		if err != nil {
			return nil, err
		}
		return idsOf(members), nil
	case broker.StatusDelayed:
		members, err := st.zRangeAsc(ctx, a.keys.Delayed(q.Queue), int64(q.Offset), int64(stop))
		if err != nil {
			return nil, err
		}
		return idsOf(members), nil
	default:
		return nil, broker.ErrInvalidArgument("unknown status: " + string(q.Status))
	}
}

func idsOf(members []member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

func (a *Adapter) fetchJobFields(ctx context.Context, st *store, queue, id string, status broker.JobStatus) (broker.Job, error) {
	fields, err := st.hGetAll(ctx, a.keys.Job(queue, id))
	if err != nil {
		return broker.Job{}, err
	}
	if len(fields) == 0 {
		return broker.Job{}, broker.ErrNotFound(queue, id)
	}
	return decodeJob(queue, id, fields, status)
}

// FetchJob probes every status index for id, in the fixed order
// waiting, active, completed, failed, delayed, and decodes with whichever
// status it finds the job under.
func (a *Adapter) FetchJob(ctx context.Context, queue, id string) (broker.Job, error) {
	st, err := a.currentStore()
	if err != nil {
		return broker.Job{}, err
	}

	type probe struct {
		status broker.JobStatus
		check  func(context.Context) (bool, error)
	}
	probes := []probe{
		{broker.StatusWaiting, func(ctx context.Context) (bool, error) { return st.listPosition(ctx, a.keys.Wait(queue), id) }},
		{broker.StatusActive, func(ctx context.Context) (bool, error) { return st.listPosition(ctx, a.keys.Active(queue), id) }},
		{broker.StatusCompleted, func(ctx context.Context) (bool, error) { return st.zScore(ctx, a.keys.Completed(queue), id) }},
		{broker.StatusFailed, func(ctx context.Context) (bool, error) { return st.zScore(ctx, a.keys.Failed(queue), id) }},
		{broker.StatusDelayed, func(ctx context.Context) (bool, error) { return st.zScore(ctx, a.keys.Delayed(queue), id) }},
	}

	for _, p := range probes {
		found, err := p.check(ctx)
		if err != nil {
			return broker.Job{}, err
		}
		if found {
			return a.fetchJobFields(ctx, st, queue, id, p.status)
		}
	}
	return broker.Job{}, broker.ErrNotFound(queue, id)
}

func (a *Adapter) Metrics(ctx context.Context, queue string) (broker.Metrics, error) {
	st, err := a.currentStore()
	if err != nil {
		return broker.Metrics{}, err
	}
	if queue == "" {
		return broker.Metrics{}, broker.ErrInvalidArgument("queue is required")
	}
	return a.computeMetrics(ctx, queue, time.Now(), a.cfg.MetricsSampleN)
}

// Subscribe opens the subscriber connection, verifies the broker is
// configured to emit keyspace notifications, and starts the pump
// goroutine that translates raw messages into JobEvents for listener.
// This adapter supports exactly one active subscription at a time: a
// second concurrent Subscribe fails with AlreadySubscribed rather than
// opening a second Redis subscription.
func (a *Adapter) Subscribe(listener broker.Listener) (broker.Unregister, error) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	if a.pubsub != nil {
		return nil, broker.ErrAlreadySubscribed()
	}

	if err := a.startSubscription(listener); err != nil {
		return nil, err
	}

	pubsub := a.pubsub
	return func() {
		a.subMu.Lock()
		current := a.pubsub == pubsub
		a.subMu.Unlock()
		if current {
			a.stopSubscription()
		}
	}, nil
}

// startSubscription must be called with subMu held.
func (a *Adapter) startSubscription(listener broker.Listener) error {
	st, err := a.currentStore()
	if err != nil {
		return err
	}

	enabled, err := st.keyspaceNotificationsEnabled(context.Background())
	if err != nil {
		return err
	}
	if !enabled {
		return broker.ErrTransport("keyspace notifications disabled", nil)
	}

	if err := a.ensureSubscriberConn(st); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	pubsub, err := st.psubscribe(ctx, a.keys.KeyspacePattern(a.endpoint.DB))
	if err != nil {
		cancel()
		return err
	}

	a.pubsub = pubsub
	a.listener = listener
	a.cancelPump = cancel
	a.pumpDone = make(chan struct{})
	a.state.Store(int32(stateSubscribed))

	go a.pump(ctx, pubsub, a.pumpDone)
	return nil
}

// ensureSubscriberConn opens the dedicated subscriber connection the
// first time Subscribe is called, cloning the command connection's
// options. Must be called with subMu held.
func (a *Adapter) ensureSubscriberConn(st *store) error {
	if st.sub != nil {
		return nil
	}
	client := goredis.NewClient(st.cmd.Options())
	pingCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return broker.ErrTransport("failed to open subscriber connection", err)
	}

	a.storeMu.Lock()
	st.sub = client
	a.storeMu.Unlock()
	return nil
}

func (a *Adapter) pump(ctx context.Context, pubsub *goredis.PubSub, done chan struct{}) {
	defer close(done)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			event, ok := ParseEvent(a.cfg.Prefix, a.endpoint.DB, msg.Channel, msg.Payload)
			if !ok {
				continue
			}
			event.Timestamp = time.Now()
			a.dispatch(event)
		}
	}
}

func (a *Adapter) dispatch(event broker.JobEvent) {
	a.subMu.Lock()
	listener := a.listener
	a.subMu.Unlock()

	if listener != nil {
		listener(event)
	}
}

// stopSubscription tears down the active subscription, if any. Safe
// to call even when no subscription is active.
func (a *Adapter) stopSubscription() {
	a.subMu.Lock()
	pubsub := a.pubsub
	cancel := a.cancelPump
	done := a.pumpDone
	a.pubsub = nil
	a.cancelPump = nil
	a.pumpDone = nil
	a.listener = nil
	a.subMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if pubsub != nil {
		_ = pubsub.Close()
	}
	if done != nil {
		<-done
	}
	if connState(a.state.Load()) == stateSubscribed {
		a.state.Store(int32(stateConnected))
	}
}

var _ broker.Adapter = (*Adapter)(nil)
