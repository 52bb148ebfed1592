package redis

import (
	"context"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/queue-vision/queue-vision/pkg/broker"
)

// member is one entry of an ordered-set range read: a job-id paired
// with its score (a timestamp in ms since epoch for every index this
// adapter reads).
type member struct {
	ID    string
	Score float64
}

// store is the thin layer over go-redis (Store Client, §4.2). It never
// retries: one send, one outcome, translated to a broker error.
type store struct {
	cmd *goredis.Client
	sub *goredis.Client
}

// openEndpoint parses and pings a Redis endpoint URL, bounded by
// timeout. It reports InvalidArgument for a malformed URL and
// Transport for anything that fails to come up.
func openEndpoint(ctx context.Context, endpoint string, timeout time.Duration) (*goredis.Client, broker.Endpoint, error) {
	if !strings.HasPrefix(endpoint, "redis://") && !strings.HasPrefix(endpoint, "rediss://") {
		return nil, broker.Endpoint{}, broker.ErrInvalidArgument("endpoint must start with redis:// or rediss://")
	}

	opts, err := goredis.ParseURL(endpoint)
	if err != nil {
		return nil, broker.Endpoint{}, broker.ErrInvalidArgument("invalid redis endpoint: " + err.Error())
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, broker.Endpoint{}, broker.ErrTransport("failed to connect to redis", err)
	}

	ep := broker.Endpoint{Host: opts.Addr, Port: "", DB: opts.DB}
	if host, port, splitErr := splitHostPort(opts.Addr); splitErr == nil {
		ep.Host, ep.Port = host, port
	}
	return client, ep, nil
}

func splitHostPort(addr string) (string, string, error) {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return addr, "", nil
	}
	return addr[:idx], addr[idx+1:], nil
}

func (s *store) listRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	ids, err := s.cmd.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, broker.ErrTransport("lrange failed", err)
	}
	return ids, nil
}

func (s *store) listLen(ctx context.Context, key string) (int64, error) {
	n, err := s.cmd.LLen(ctx, key).Result()
	if err != nil {
		return 0, broker.ErrTransport("llen failed", err)
	}
	return n, nil
}

func (s *store) listPosition(ctx context.Context, key, value string) (bool, error) {
	_, err := s.cmd.LPos(ctx, key, value, goredis.LPosArgs{}).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, broker.ErrTransport("lpos failed", err)
	}
	return true, nil
}

func (s *store) zRangeAsc(ctx context.Context, key string, start, stop int64) ([]member, error) {
	zs, err := s.cmd.ZRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, broker.ErrTransport("zrange failed", err)
	}
	return toMembers(zs), nil
}

func (s *store) zRangeDesc(ctx context.Context, key string, start, stop int64) ([]member, error) {
	zs, err := s.cmd.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, broker.ErrTransport("zrevrange failed", err)
	}
	return toMembers(zs), nil
}

func toMembers(zs []goredis.Z) []member {
	out := make([]member, len(zs))
	for i, z := range zs {
		id, _ := z.Member.(string)
		out[i] = member{ID: id, Score: z.Score}
	}
	return out
}

func (s *store) zCard(ctx context.Context, key string) (int64, error) {
	n, err := s.cmd.ZCard(ctx, key).Result()
	if err != nil {
		return 0, broker.ErrTransport("zcard failed", err)
	}
	return n, nil
}

func (s *store) zScore(ctx context.Context, key, member string) (bool, error) {
	_, err := s.cmd.ZScore(ctx, key, member).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, broker.ErrTransport("zscore failed", err)
	}
	return true, nil
}

func (s *store) hGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.cmd.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, broker.ErrTransport("hgetall failed", err)
	}
	return fields, nil
}

// scanAll cursor-scans every key matching pattern to completion,
// returning to the start sentinel (cursor 0) as the loop-termination
// condition.
func (s *store) scanAll(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, broker.ErrCancelled(err)
		}

		batch, next, err := s.cmd.Scan(ctx, cursor, pattern, 0).Result()
		if err != nil {
			return nil, broker.ErrTransport("scan failed", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// keyspaceNotificationsEnabled checks whether the broker is configured
// to emit the keyspace events Subscribe depends on (K, E, and at least
// one of the data-type categories this adapter cares about).
func (s *store) keyspaceNotificationsEnabled(ctx context.Context) (bool, error) {
	res, err := s.cmd.ConfigGet(ctx, "notify-keyspace-events").Result()
	if err != nil {
		return false, broker.ErrTransport("config get failed", err)
	}
	flags := res["notify-keyspace-events"]
	hasK := strings.ContainsRune(flags, 'K') || strings.ContainsRune(flags, 'A')
	hasE := strings.ContainsRune(flags, 'E') || strings.ContainsRune(flags, 'A')
	hasData := strings.ContainsAny(flags, "g$lshzxetA")
	return hasK && hasE && hasData, nil
}

// close attempts a graceful shutdown of both connections. go-redis'
// Close drains and releases the connection pool unconditionally, so
// there is no separate forced-close path to fall through to: either
// Close succeeds, or it returns an error while still tearing down the
// underlying net resources.
func (s *store) close() error {
	var firstErr error
	if s.sub != nil {
		if err := s.sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.cmd != nil {
		if err := s.cmd.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return broker.ErrTransport("failed to close redis connection", firstErr)
	}
	return nil
}

// psubscribe opens a pattern subscription on the dedicated subscriber
// connection. The caller owns the returned PubSub's lifetime and must
// Close it to unsubscribe.
func (s *store) psubscribe(ctx context.Context, pattern string) (*goredis.PubSub, error) {
	pubsub := s.sub.PSubscribe(ctx, pattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, broker.ErrTransport("psubscribe failed", err)
	}
	return pubsub, nil
}
