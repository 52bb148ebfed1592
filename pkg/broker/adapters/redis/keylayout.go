package redis

import (
	"fmt"
	"strings"
)

// reservedSuffixes is the set of tail tokens that identify a status
// index rather than a job-id. A queue name that collides with one of
// these is rejected at discovery time (see keyLayout.ParseMetaKey) —
// the reference source drops rather than surfaces it.
var reservedSuffixes = map[string]bool{
	"meta":      true,
	"wait":      true,
	"active":    true,
	"completed": true,
	"failed":    true,
	"delayed":   true,
}

// keyLayout is a pure, stateless mapping between (queue, suffix|id) and
// the broker's flat key namespace: "<prefix>:<queue>:<suffix>". It is a
// bijection so reverse parsing (ParseMetaKey, and the event parser in
// events.go) can recover the queue name and discriminate a job-record
// key from a status-index key.
type keyLayout struct {
	prefix string
}

func newKeyLayout(prefix string) keyLayout {
	if prefix == "" {
		prefix = "bull"
	}
	return keyLayout{prefix: prefix}
}

func (k keyLayout) Meta(queue string) string      { return k.join(queue, "meta") }
func (k keyLayout) Wait(queue string) string      { return k.join(queue, "wait") }
func (k keyLayout) Active(queue string) string    { return k.join(queue, "active") }
func (k keyLayout) Completed(queue string) string { return k.join(queue, "completed") }
func (k keyLayout) Failed(queue string) string    { return k.join(queue, "failed") }
func (k keyLayout) Delayed(queue string) string   { return k.join(queue, "delayed") }
func (k keyLayout) Job(queue, id string) string   { return k.join(queue, id) }

func (k keyLayout) join(queue, suffix string) string {
	return k.prefix + ":" + queue + ":" + suffix
}

// MetaPattern is the cursor-scan pattern Discover uses to enumerate
// queues.
func (k keyLayout) MetaPattern() string {
	return k.prefix + ":*:meta"
}

// KeyspacePattern is the glob pattern Subscribe issues on the
// subscriber connection.
func (k keyLayout) KeyspacePattern(db int) string {
	return fmt.Sprintf("__keyspace@%d__:%s:*", db, k.prefix)
}

// ParseMetaKey recovers the queue name from a key returned by a
// MetaPattern cursor scan. It returns ok=false for anything that isn't
// a well-formed "<prefix>:<queue>:meta" key, including a queue name
// that collides with a reserved suffix token (§9 design note).
func (k keyLayout) ParseMetaKey(key string) (queue string, ok bool) {
	parts := strings.Split(key, ":")
	if len(parts) < 3 {
		return "", false
	}
	if parts[0] != k.prefix {
		return "", false
	}
	suffix := parts[len(parts)-1]
	if suffix != "meta" {
		return "", false
	}
	queue = strings.Join(parts[1:len(parts)-1], ":")
	if queue == "" {
		return "", false
	}
	if reservedSuffixes[queue] {
		return "", false
	}
	return queue, true
}
