package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harborgate/site-api/internal/observability/metrics"
	"github.com/harborgate/site-api/pkg/logging"
)

// Event is a single operation timing record.
type Event struct {
	Operation string
	Table     string
	Duration  time.Duration
	Metadata  map[string]string
}

// Collector receives operation timing events. Implementations must never
// fail the surrounding operation; delivery is best effort.
type Collector interface {
	Track(ctx context.Context, event Event)
}

const defaultStreamMaxLen = 100_000

// RedisCollector appends events to a capped Redis stream.
type RedisCollector struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *logging.Logger
}

// NewRedisCollector creates a collector writing to the given stream.
func NewRedisCollector(client *redis.Client, stream string, logger *logging.Logger) *RedisCollector {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisCollector{
		client: client,
		stream: stream,
		maxLen: defaultStreamMaxLen,
		logger: logger,
	}
}

// Track appends the event to the stream. Failures are logged and dropped.
func (c *RedisCollector) Track(ctx context.Context, event Event) {
	if c == nil || c.client == nil || c.stream == "" {
		return
	}

	values := map[string]any{
		"operation":   event.Operation,
		"table":       event.Table,
		"duration_ms": strconv.FormatInt(event.Duration.Milliseconds(), 10),
		"at":          time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range event.Metadata {
		values["meta:"+k] = v
	}

	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		MaxLen: c.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		c.logger.Debug("analytics event dropped", "error", err, "operation", event.Operation)
	}
}

// NopCollector discards all events.
type NopCollector struct{}

func (NopCollector) Track(context.Context, Event) {}

// MetricsCollector mirrors event timings into prometheus histograms.
type MetricsCollector struct {
	Metrics *metrics.Metrics
}

func (c MetricsCollector) Track(_ context.Context, event Event) {
	c.Metrics.ObserveStoreOp(event.Operation, event.Duration.Seconds())
}

// MultiCollector fans an event out to every collector in order.
type MultiCollector []Collector

func (m MultiCollector) Track(ctx context.Context, event Event) {
	for _, c := range m {
		if c != nil {
			c.Track(ctx, event)
		}
	}
}

var (
	_ Collector = (*RedisCollector)(nil)
	_ Collector = NopCollector{}
	_ Collector = MetricsCollector{}
	_ Collector = MultiCollector{}
)
