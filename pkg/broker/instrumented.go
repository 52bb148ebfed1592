package broker

import (
	"context"

	"github.com/queue-vision/queue-vision/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedAdapter wraps an Adapter to add logging and tracing
// around every operation, the way pkg/cache.InstrumentedCache and
// pkg/messaging.InstrumentedBroker do for their respective contracts.
type InstrumentedAdapter struct {
	next   Adapter
	tracer trace.Tracer
}

// NewInstrumentedAdapter wraps next with OTel spans and structured logs.
func NewInstrumentedAdapter(next Adapter) *InstrumentedAdapter {
	return &InstrumentedAdapter{
		next:   next,
		tracer: otel.Tracer("pkg/broker"),
	}
}

func (a *InstrumentedAdapter) Connect(ctx context.Context, endpoint string) error {
	ctx, span := a.tracer.Start(ctx, "broker.Connect")
	defer span.End()

	logger.L().InfoContext(ctx, "connecting to broker")
	err := a.next.Connect(ctx, endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.L().ErrorContext(ctx, "connect failed", "error", err)
	}
	return err
}

func (a *InstrumentedAdapter) Disconnect(ctx context.Context) error {
	ctx, span := a.tracer.Start(ctx, "broker.Disconnect")
	defer span.End()

	err := a.next.Disconnect(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.L().ErrorContext(ctx, "disconnect failed", "error", err)
	}
	return err
}

func (a *InstrumentedAdapter) Discover(ctx context.Context) ([]Queue, error) {
	ctx, span := a.tracer.Start(ctx, "broker.Discover")
	defer span.End()

	queues, err := a.next.Discover(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.L().ErrorContext(ctx, "discover failed", "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("broker.queue_count", len(queues)))
	return queues, nil
}

func (a *InstrumentedAdapter) ListJobs(ctx context.Context, q ListJobsQuery) ([]Job, error) {
	ctx, span := a.tracer.Start(ctx, "broker.ListJobs", trace.WithAttributes(
		attribute.String("broker.queue", q.Queue),
		attribute.String("broker.status", string(q.Status)),
		attribute.Int("broker.offset", q.Offset),
		attribute.Int("broker.limit", q.Limit),
	))
	defer span.End()

	jobs, err := a.next.ListJobs(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.L().ErrorContext(ctx, "list jobs failed", "queue", q.Queue, "status", q.Status, "error", err)
		return nil, err
	}
	return jobs, nil
}

func (a *InstrumentedAdapter) FetchJob(ctx context.Context, queue, id string) (Job, error) {
	ctx, span := a.tracer.Start(ctx, "broker.FetchJob", trace.WithAttributes(
		attribute.String("broker.queue", queue),
		attribute.String("broker.job_id", id),
	))
	defer span.End()

	job, err := a.next.FetchJob(ctx, queue, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.L().DebugContext(ctx, "fetch job failed", "queue", queue, "id", id, "error", err)
		return Job{}, err
	}
	return job, nil
}

func (a *InstrumentedAdapter) Metrics(ctx context.Context, queue string) (Metrics, error) {
	ctx, span := a.tracer.Start(ctx, "broker.Metrics", trace.WithAttributes(
		attribute.String("broker.queue", queue),
	))
	defer span.End()

	m, err := a.next.Metrics(ctx, queue)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.L().ErrorContext(ctx, "metrics failed", "queue", queue, "error", err)
		return Metrics{}, err
	}
	return m, nil
}

func (a *InstrumentedAdapter) Subscribe(listener Listener) (Unregister, error) {
	logger.L().Info("subscribing to broker events")
	unregister, err := a.next.Subscribe(listener)
	if err != nil {
		logger.L().Error("subscribe failed", "error", err)
		return nil, err
	}
	return unregister, nil
}

var _ Adapter = (*InstrumentedAdapter)(nil)
