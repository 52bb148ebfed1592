package redis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/queue-vision/queue-vision/pkg/broker"
)

const metricsWindow = time.Hour

// computeMetrics samples up to sampleN of the most recent completed
// and failed members (by score, descending) and derives throughput,
// failure rate, and average processing time from them. The two
// ordered-set reads are independent, so they run concurrently and
// either caller cancellation or a single transport failure cancels
// both.
func (a *Adapter) computeMetrics(ctx context.Context, queue string, now time.Time, sampleN int64) (broker.Metrics, error) {
	var completed, failed []member

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := a.store.zRangeDesc(gctx, a.keys.Completed(queue), 0, sampleN-1)
		if err != nil {
			return err
		}
		completed = m
		return nil
	})
	g.Go(func() error {
		m, err := a.store.zRangeDesc(gctx, a.keys.Failed(queue), 0, sampleN-1)
		if err != nil {
			return err
		}
		failed = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return broker.Metrics{}, err
	}

	cutoff := float64(now.Add(-metricsWindow).UnixMilli())

	var throughput int64
	for _, m := range completed {
		if m.Score >= cutoff {
			throughput++
		}
	}
	for _, m := range failed {
		if m.Score >= cutoff {
			throughput++
		}
	}

	var failureRate float64
	if denom := len(completed) + len(failed); denom > 0 {
		failureRate = float64(len(failed)) / float64(denom)
	}

	avgProcessingMs, err := a.avgProcessingTime(ctx, queue, completed)
	if err != nil {
		return broker.Metrics{}, err
	}

	return broker.Metrics{
		Queue:           queue,
		Throughput:      throughput,
		FailureRate:     failureRate,
		AvgProcessingMs: avgProcessingMs,
	}, nil
}

// avgProcessingTime reads processedOn/finishedOn off each sampled
// completed job and averages finishedOn-processedOn over the ones
// that have both. A job missing either timestamp is skipped rather
// than failing the whole computation.
func (a *Adapter) avgProcessingTime(ctx context.Context, queue string, completed []member) (float64, error) {
	if len(completed) == 0 {
		return 0, nil
	}

	var total float64
	var n int
	for _, m := range completed {
		fields, err := a.store.hGetAll(ctx, a.keys.Job(queue, m.ID))
		if err != nil {
			return 0, err
		}
		processedOn, ok1 := fields["processedOn"]
		finishedOn, ok2 := fields["finishedOn"]
		if !ok1 || !ok2 || processedOn == "" || finishedOn == "" {
			continue
		}
		p, err := parseEpochMillis(processedOn)
		if err != nil {
			continue
		}
		f, err := parseEpochMillis(finishedOn)
		if err != nil {
			continue
		}
		total += float64(f.Sub(p).Milliseconds())
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return total / float64(n), nil
}
