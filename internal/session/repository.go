package session

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/sessiongate/internal/config"
	"github.com/vyrodovalexey/sessiongate/internal/observability"
	"github.com/vyrodovalexey/sessiongate/internal/retry"
)

// tracerName is the OpenTelemetry tracer name for repository operations.
const tracerName = "sessiongate/session"

// Repository persists sessions partitioned by system. Implementations are
// safe for concurrent use.
type Repository interface {
	// SaveSession upserts s in the namespace of system and restarts its TTL.
	SaveSession(ctx context.Context, system string, s *StoredSession) error

	// RemoveSession deletes a session. Removing an absent session succeeds.
	RemoveSession(ctx context.Context, system, id string) error

	// FindSession returns a copy of the session, or (nil, nil) when it is
	// absent or known to be expired.
	FindSession(ctx context.Context, system, id string) (*StoredSession, error)

	// FindSessions lazily yields every live session of system in no
	// particular order. A backend failure is yielded once as (nil, err)
	// and ends the sequence.
	FindSessions(ctx context.Context, system string) iter.Seq2[*StoredSession, error]

	// Close releases the resources held by the repository.
	Close() error
}

// Scavenger is implemented by repositories that evict expired sessions
// with a background task.
type Scavenger interface {
	Start(ctx context.Context)
	Stop()
}

// Pinger is implemented by repositories backed by a remote store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type options struct {
	logger           observability.Logger
	now              func() time.Time
	keyPrefix        string
	scavengeInterval time.Duration
	retry            *retry.Config
}

// Option configures a repository.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithKeyPrefix sets the prefix of every namespaced key.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithScavengeInterval sets how often the in-process scavenger runs.
func WithScavengeInterval(d time.Duration) Option {
	return func(o *options) {
		o.scavengeInterval = d
	}
}

// WithRetry sets the retry policy of remote round trips.
func WithRetry(cfg *retry.Config) Option {
	return func(o *options) {
		o.retry = cfg
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:           observability.NopLogger(),
		now:              time.Now,
		scavengeInterval: config.DefaultScavengeInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scavengeInterval <= 0 {
		o.scavengeInterval = config.DefaultScavengeInterval
	}
	return o
}

// New creates the repository selected by cfg. The in-process repository is
// returned with its scavenger stopped; callers start it through Scavenger.
func New(cfg *config.SessionStoreConfig, logger observability.Logger, opts ...Option) (Repository, error) {
	if cfg == nil {
		cfg = &config.SessionStoreConfig{}
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	opts = append([]Option{
		WithLogger(logger),
		WithKeyPrefix(cfg.KeyPrefix),
		WithScavengeInterval(cfg.ScavengeInterval.Duration()),
	}, opts...)

	switch cfg.Type {
	case config.StoreTypeMemory, "":
		return NewMemoryRepository(opts...), nil
	case config.StoreTypeRedis:
		return NewRedisRepository(cfg.Redis, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreType, cfg.Type)
	}
}

func startSpan(ctx context.Context, name, backend, system string, kind trace.SpanKind) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(
			attribute.String("session.backend", backend),
			attribute.String("session.system", system),
		),
	)
}

func recordSpanError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

// observe records the count and duration of one operation.
func observe(backend, op string, start time.Time, err error) {
	m := GetMetrics()
	m.operationsTotal.WithLabelValues(backend, op).Inc()
	m.operationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.errorsTotal.WithLabelValues(backend, op).Inc()
	}
}
