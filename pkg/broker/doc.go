// Package broker defines the normalized contract consumed by job-broker
// dashboard collaborators: queue discovery, paginated job listing,
// per-job lookup, aggregate metrics, and a job-lifecycle event stream.
//
// The package itself has zero external dependencies. Each broker gets
// its own adapter in a sub-package (pkg/broker/adapters/{driver}) that
// implements Adapter against that broker's native storage layout. The
// reference adapter (pkg/broker/adapters/redis) targets BullMQ-on-Redis.
//
// Usage:
//
//	import (
//	    "github.com/queue-vision/queue-vision/pkg/broker"
//	    "github.com/queue-vision/queue-vision/pkg/broker/adapters/redis"
//	)
//
//	adapter := redis.New(redis.Config{Prefix: "bull"})
//	if err := adapter.Connect(ctx, "redis://localhost:6379/0"); err != nil { ... }
//	defer adapter.Disconnect(ctx)
//
//	queues, err := adapter.Discover(ctx)
package broker
