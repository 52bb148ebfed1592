// Command dashboard exposes a broker.Adapter over HTTP: queue and job
// listings, per-queue metrics, and a live SSE feed of job events. It
// is a demonstration collaborator, not part of the broker contract
// itself.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	otelecho "go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/queue-vision/queue-vision/pkg/broker"
	redisAdapter "github.com/queue-vision/queue-vision/pkg/broker/adapters/redis"
	"github.com/queue-vision/queue-vision/pkg/config"
	appErrors "github.com/queue-vision/queue-vision/pkg/errors"
	"github.com/queue-vision/queue-vision/pkg/logger"
	"github.com/queue-vision/queue-vision/pkg/telemetry"
)

// appConfig is the flat environment-backed configuration for the
// dashboard process: broker connection, HTTP bind address, and the
// ambient logging/tracing settings every service in this repo loads
// the same way.
type appConfig struct {
	Endpoint       string        `env:"BROKER_ENDPOINT" env-default:"redis://localhost:6379/0" validate:"required"`
	Prefix         string        `env:"BROKER_PREFIX" env-default:"bull"`
	MetricsSampleN int64         `env:"BROKER_METRICS_SAMPLE_N" env-default:"100"`
	ConnectTimeout time.Duration `env:"BROKER_CONNECT_TIMEOUT" env-default:"10s"`

	HTTPAddr string `env:"DASHBOARD_HTTP_ADDR" env-default:":8080"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"INFO"`
	LogFormat string `env:"LOG_FORMAT" env-default:"JSON"`

	OTELServiceName string `env:"OTEL_SERVICE_NAME" env-default:"queue-vision-dashboard"`
	OTELEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
}

func main() {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if cfg.OTELEndpoint != "" {
		shutdown, err := telemetry.Init(telemetry.Config{
			ServiceName: cfg.OTELServiceName,
			Endpoint:    cfg.OTELEndpoint,
		})
		if err != nil {
			logger.L().Error("failed to init telemetry", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	adapter := redisAdapter.New(redisAdapter.Config{
		Prefix:         cfg.Prefix,
		MetricsSampleN: cfg.MetricsSampleN,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	instrumented := broker.NewInstrumentedAdapter(adapter)

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	if err := instrumented.Connect(connectCtx, cfg.Endpoint); err != nil {
		cancel()
		log.Fatalf("failed to connect to broker: %v", err)
	}
	cancel()

	srv := newServer(instrumented)

	e := echo.New()
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(cfg.OTELServiceName))
	srv.registerRoutes(e)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			logger.L().Error("http server stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("http server shutdown error", "error", err)
	}
	if err := instrumented.Disconnect(context.Background()); err != nil {
		logger.L().Error("broker disconnect error", "error", err)
	}
}

// server wires HTTP handlers to a broker.Adapter.
type server struct {
	adapter broker.Adapter
}

func newServer(adapter broker.Adapter) *server {
	return &server{adapter: adapter}
}

func (s *server) registerRoutes(e *echo.Echo) {
	e.GET("/queues", s.listQueues)
	e.GET("/queues/:queue/jobs", s.listJobs)
	e.GET("/queues/:queue/jobs/:id", s.fetchJob)
	e.GET("/queues/:queue/metrics", s.queueMetrics)
	e.GET("/queues/:queue/events", s.streamEvents)
}

func (s *server) listQueues(c echo.Context) error {
	queues, err := s.adapter.Discover(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, queues)
}

func (s *server) listJobs(c echo.Context) error {
	status := broker.JobStatus(c.QueryParam("status"))
	if status == "" {
		status = broker.StatusWaiting
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	jobs, err := s.adapter.ListJobs(c.Request().Context(), broker.ListJobsQuery{
		Queue:  c.Param("queue"),
		Status: status,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

func (s *server) fetchJob(c echo.Context) error {
	job, err := s.adapter.FetchJob(c.Request().Context(), c.Param("queue"), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

func (s *server) queueMetrics(c echo.Context) error {
	m, err := s.adapter.Metrics(c.Request().Context(), c.Param("queue"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// streamEvents relays broker job events for one queue as
// server-sent events until the client disconnects.
func (s *server) streamEvents(c echo.Context) error {
	queue := c.Param("queue")

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := make(chan broker.JobEvent, 16)
	unregister, err := s.adapter.Subscribe(func(e broker.JobEvent) {
		if e.Queue != queue {
			return
		}
		select {
		case events <- e:
		default:
		}
	})
	if err != nil {
		return writeError(c, err)
	}
	defer unregister()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-events:
			fmt.Fprintf(w, "event: %s\ndata: {\"jobId\":\"%s\",\"timestamp\":\"%s\"}\n\n",
				event.Kind, event.JobID, event.Timestamp.Format(time.RFC3339))
			w.Flush()
		}
	}
}

func writeError(c echo.Context, err error) error {
	code := appErrors.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case broker.CodeInvalidArgument:
		status = http.StatusBadRequest
	case broker.CodeNotFound:
		status = http.StatusNotFound
	case broker.CodeNotConnected, broker.CodeTransport:
		status = http.StatusServiceUnavailable
	case broker.CodeAlreadySubscribed:
		status = http.StatusConflict
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
