package redis

import (
	"strconv"
	"strings"

	"github.com/queue-vision/queue-vision/pkg/broker"
)

const keyspaceEnvelope = "__keyspace@"

// queueOpKind maps a Redis command notification on a reserved
// status-index key to the JobEvent kind it represents.
var queueOpKind = map[string]map[string]broker.EventKind{
	"wait": {
		"lpush": broker.EventWaiting,
		"rpush": broker.EventWaiting,
		"lrem":  broker.EventDequeued,
		"lpop":  broker.EventDequeued,
		"rpop":  broker.EventDequeued,
	},
	"active": {
		"lpush": broker.EventActive,
		"rpush": broker.EventActive,
		"lrem":  broker.EventDequeued,
		"lpop":  broker.EventDequeued,
		"rpop":  broker.EventDequeued,
	},
	"completed": {
		"zadd": broker.EventCompleted,
	},
	"failed": {
		"zadd": broker.EventFailed,
	},
	"delayed": {
		"zadd": broker.EventDelayed,
		"zrem": broker.EventDequeued,
	},
}

// jobOpKind maps a command notification on a job-record hash key to
// the JobEvent kind it represents.
var jobOpKind = map[string]broker.EventKind{
	"hset":   broker.EventUpdated,
	"hmset":  broker.EventUpdated,
	"hdel":   broker.EventUpdated,
	"del":    broker.EventRemoved,
	"unlink": broker.EventRemoved,
}

// ParseEvent translates one keyspace-notification message into a
// JobEvent. channel is the pattern-subscribe channel the message
// arrived on (e.g. "__keyspace@0__:bull:emails:3"), payload is the
// command name Redis reports (e.g. "hset", "zadd", "del").
//
// It returns ok=false for anything that isn't a recognized job or
// queue key under prefix — most commonly a "meta" key, which this
// adapter treats as internal bookkeeping rather than a user-visible
// event.
func ParseEvent(prefix string, db int, channel, payload string) (broker.JobEvent, bool) {
	key, ok := stripKeyspaceEnvelope(channel, db)
	if !ok {
		return broker.JobEvent{}, false
	}

	parts := strings.Split(key, ":")
	if len(parts) < 3 || parts[0] != prefix {
		return broker.JobEvent{}, false
	}

	// The queue name is the single token right after the prefix —
	// it's opaque and delimiter-free (§3) — and the joined remainder
	// is the tail. Every colon past the queue token belongs to the
	// job-id, not the queue name.
	queue := parts[1]
	tail := strings.Join(parts[2:], ":")

	if tail == "meta" {
		return broker.JobEvent{}, false
	}

	op := strings.ToLower(payload)

	if kinds, isQueueSuffix := queueOpKind[tail]; isQueueSuffix {
		kind, known := kinds[op]
		if !known {
			kind = broker.EventUpdated
		}
		return broker.JobEvent{
			Kind:  kind,
			Queue: queue,
			JobID: "",
		}, true
	}

	// Any other tail names a job-id (possibly containing colons): the
	// key is a job-record hash.
	kind, known := jobOpKind[op]
	if !known {
		kind = broker.EventUpdated
	}
	return broker.JobEvent{
		Kind:  kind,
		Queue: queue,
		JobID: tail,
	}, true
}

func stripKeyspaceEnvelope(channel string, db int) (string, bool) {
	want := keyspaceEnvelope + strconv.Itoa(db) + "__:"
	if !strings.HasPrefix(channel, want) {
		return "", false
	}
	return strings.TrimPrefix(channel, want), true
}
