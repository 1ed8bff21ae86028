package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/sessiongate/internal/config"
	"github.com/vyrodovalexey/sessiongate/internal/observability"
	"github.com/vyrodovalexey/sessiongate/internal/retry"
)

const defaultScanCount = 100

// redisRetryConfig returns the retry configuration for Redis round trips.
func redisRetryConfig() *retry.Config {
	return &retry.Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		JitterFactor:   retry.DefaultJitterFactor,
	}
}

// isRetryableRedisError reports whether err is worth another attempt.
// Misses and caller cancellations are final.
func isRetryableRedisError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, redis.Nil) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// RedisRepository stores sessions in Redis as JSON strings under namespaced
// keys. Redis enforces the TTL, so expired sessions are never returned.
type RedisRepository struct {
	logger    observability.Logger
	client    redis.UniversalClient
	keys      keyspace
	breaker   *gobreaker.CircuitBreaker
	retry     *retry.Config
	now       func() time.Time
	scanCount int64
}

var (
	_ Repository = (*RedisRepository)(nil)
	_ Pinger     = (*RedisRepository)(nil)
)

// NewRedisRepository connects to Redis in standalone or Sentinel mode and
// verifies the connection with a PING.
func NewRedisRepository(cfg *config.RedisStoreConfig, opts ...Option) (*RedisRepository, error) {
	if cfg == nil {
		return nil, errors.New("redis configuration is required")
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	if err := pingRedis(client, cfg.ConnectTimeout.Duration()); err != nil {
		_ = client.Close()
		return nil, unavailable("ping", err)
	}

	r := NewRedisRepositoryFromClient(client, cfg.Breaker, opts...)
	if cfg.ScanCount > 0 {
		r.scanCount = cfg.ScanCount
	}
	return r, nil
}

// NewRedisRepositoryFromClient wraps an existing client. The repository owns
// the client and closes it on Close.
func NewRedisRepositoryFromClient(
	client redis.UniversalClient,
	breakerCfg *config.BreakerConfig,
	opts ...Option,
) *RedisRepository {
	o := buildOptions(opts)

	r := &RedisRepository{
		logger:    o.logger,
		client:    client,
		keys:      newKeyspace(o.keyPrefix),
		retry:     o.retry,
		now:       o.now,
		scanCount: defaultScanCount,
	}
	if r.retry == nil {
		r.retry = redisRetryConfig()
	}
	r.breaker = r.newBreaker(breakerCfg)

	r.logger.Info("redis session repository initialized",
		observability.String("keyPrefix", r.keys.prefix))

	return r
}

func newRedisClient(cfg *config.RedisStoreConfig) (redis.UniversalClient, error) {
	if s := cfg.Sentinel; s != nil && s.MasterName != "" {
		if len(s.SentinelAddrs) == 0 {
			return nil, errors.New("at least one sentinel address is required")
		}
		opts := &redis.FailoverOptions{
			MasterName:       s.MasterName,
			SentinelAddrs:    s.SentinelAddrs,
			SentinelPassword: s.SentinelPassword,
			Password:         s.Password,
			DB:               s.DB,
			PoolSize:         cfg.PoolSize,
			DialTimeout:      cfg.ConnectTimeout.Duration(),
			ReadTimeout:      cfg.ReadTimeout.Duration(),
			WriteTimeout:     cfg.WriteTimeout.Duration(),
		}
		return redis.NewFailoverClient(opts), nil
	}

	if cfg.URL == "" {
		return nil, errors.New("redis URL is required for standalone mode")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}
	return redis.NewClient(opts), nil
}

func pingRedis(client redis.UniversalClient, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = config.DefaultRedisPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

func (r *RedisRepository) newBreaker(cfg *config.BreakerConfig) *gobreaker.CircuitBreaker {
	threshold := uint32(config.DefaultBreakerThreshold)
	timeout := config.DefaultBreakerTimeout
	if cfg != nil {
		if cfg.Threshold > 0 {
			threshold = uint32(cfg.Threshold) //nolint:gosec // validated positive
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout.Duration()
		}
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "session-redis",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !isRetryableRedisError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			GetMetrics().breakerState.WithLabelValues(name).Set(float64(to))
			r.logger.Warn("session store circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()))
		},
	})
}

// do runs one logical round trip through the circuit breaker and the retry
// loop. Connection failures come back wrapped in ErrBackendUnavailable;
// redis.Nil and context errors are returned as they are.
func (r *RedisRepository) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, retry.Do(ctx, r.retry, func() error {
			return fn(ctx)
		}, &retry.Options{
			ShouldRetry: isRetryableRedisError,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				r.logger.Debug("retrying redis operation",
					observability.String("operation", op),
					observability.Int("attempt", attempt),
					observability.Duration("backoff", backoff),
					observability.Error(err))
			},
		})
	})

	if err == nil || !isRetryableRedisError(err) {
		return err
	}
	return unavailable(op, err)
}

// SaveSession writes s and sets the key TTL to the session TTL.
func (r *RedisRepository) SaveSession(ctx context.Context, system string, s *StoredSession) (err error) {
	ctx, span := startSpan(ctx, "session.Save", backendRedis, system, trace.SpanKindClient)
	defer span.End()
	start := time.Now()
	defer func() { observe(backendRedis, opSave, start, err) }()

	if err = ValidateSystem(system); err != nil {
		recordSpanError(span, err)
		return err
	}
	if err = s.validate(); err != nil {
		recordSpanError(span, err)
		return err
	}

	stored := s.stamp(r.now())
	data, err := encodeSession(stored)
	if err != nil {
		recordSpanError(span, err)
		return err
	}

	key := r.keys.key(system, s.ID)
	err = r.do(ctx, opSave, func(ctx context.Context) error {
		return r.client.Set(ctx, key, data, stored.TTL()).Err()
	})
	if err != nil {
		recordSpanError(span, err)
		r.logger.Error("redis session save failed",
			observability.String("system", system),
			observability.String("sessionID", s.ID),
			observability.Error(err))
		return err
	}

	r.logger.Debug("session saved",
		observability.String("system", system),
		observability.String("sessionID", s.ID),
		observability.Int("ttlSeconds", s.TTLSeconds))
	return nil
}

// RemoveSession deletes the session key. Deleting a missing key succeeds.
func (r *RedisRepository) RemoveSession(ctx context.Context, system, id string) (err error) {
	ctx, span := startSpan(ctx, "session.Remove", backendRedis, system, trace.SpanKindClient)
	defer span.End()
	start := time.Now()
	defer func() { observe(backendRedis, opRemove, start, err) }()

	if err = ValidateSystem(system); err != nil {
		recordSpanError(span, err)
		return err
	}

	key := r.keys.key(system, id)
	var removed int64
	err = r.do(ctx, opRemove, func(ctx context.Context) error {
		var delErr error
		removed, delErr = r.client.Del(ctx, key).Result()
		return delErr
	})
	if err != nil {
		recordSpanError(span, err)
		r.logger.Error("redis session remove failed",
			observability.String("system", system),
			observability.String("sessionID", id),
			observability.Error(err))
		return err
	}

	span.SetAttributes(attribute.Bool("session.existed", removed > 0))
	r.logger.Debug("session removed",
		observability.String("system", system),
		observability.String("sessionID", id),
		observability.Bool("existed", removed > 0))
	return nil
}

// FindSession fetches a session. An undecodable record is deleted and
// reported as absent.
func (r *RedisRepository) FindSession(ctx context.Context, system, id string) (_ *StoredSession, err error) {
	ctx, span := startSpan(ctx, "session.Find", backendRedis, system, trace.SpanKindClient)
	defer span.End()
	start := time.Now()
	defer func() { observe(backendRedis, opFind, start, err) }()

	if err = ValidateSystem(system); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if validateID(id) != nil {
		span.SetAttributes(attribute.Bool("session.found", false))
		return nil, nil
	}

	s, err := r.load(ctx, r.keys.key(system, id), id)
	if err != nil {
		recordSpanError(span, err)
		r.logger.Error("redis session find failed",
			observability.String("system", system),
			observability.String("sessionID", id),
			observability.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Bool("session.found", s != nil))
	return s, nil
}

// FindSessions walks the namespace with SCAN and fetches each key. Keys that
// disappear between SCAN and GET are skipped.
func (r *RedisRepository) FindSessions(ctx context.Context, system string) iter.Seq2[*StoredSession, error] {
	return func(yield func(*StoredSession, error) bool) {
		ctx, span := startSpan(ctx, "session.FindAll", backendRedis, system, trace.SpanKindClient)
		defer span.End()

		var err error
		start := time.Now()
		defer func() { observe(backendRedis, opList, start, err) }()

		if err = ValidateSystem(system); err != nil {
			recordSpanError(span, err)
			yield(nil, err)
			return
		}

		pattern := r.keys.pattern(system)
		seen := make(map[string]struct{})
		count := 0
		var cursor uint64

		for {
			var keys []string
			var next uint64
			err = r.do(ctx, opList, func(ctx context.Context) error {
				var scanErr error
				keys, next, scanErr = r.client.Scan(ctx, cursor, pattern, r.scanCount).Result()
				return scanErr
			})
			if err != nil {
				recordSpanError(span, err)
				yield(nil, err)
				return
			}

			for _, key := range keys {
				id, ok := r.keys.sessionID(system, key)
				if _, dup := seen[key]; dup || !ok {
					continue
				}
				seen[key] = struct{}{}

				var s *StoredSession
				s, err = r.load(ctx, key, id)
				if err != nil {
					recordSpanError(span, err)
					yield(nil, err)
					return
				}
				if s == nil {
					continue
				}
				count++
				if !yield(s, nil) {
					span.SetAttributes(attribute.Int("session.count", count))
					return
				}
			}

			cursor = next
			if cursor == 0 {
				break
			}
		}

		span.SetAttributes(attribute.Int("session.count", count))
	}
}

// load fetches and decodes one key. A missing key yields (nil, nil).
func (r *RedisRepository) load(ctx context.Context, key, id string) (*StoredSession, error) {
	var data []byte
	err := r.do(ctx, opFind, func(ctx context.Context) error {
		var getErr error
		data, getErr = r.client.Get(ctx, key).Bytes()
		return getErr
	})
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s, err := decodeSession(data)
	if err == nil && s.ID != id {
		err = fmt.Errorf("corrupt session record: id %q stored under key %q", s.ID, key)
	}
	if err != nil {
		r.discardCorrupt(ctx, key, err)
		return nil, nil
	}
	return s, nil
}

func (r *RedisRepository) discardCorrupt(ctx context.Context, key string, cause error) {
	GetMetrics().corruptTotal.Inc()

	err := r.do(ctx, opRemove, func(ctx context.Context) error {
		return r.client.Del(ctx, key).Err()
	})

	r.logger.Warn("corrupt session record removed",
		observability.String("key", key),
		observability.Error(cause),
		observability.Bool("deleted", err == nil))
}

// Ping checks that Redis answers. It goes through the circuit breaker, so an
// open breaker reports the store as unavailable without a round trip.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.do(ctx, opPing, func(ctx context.Context) error {
		return r.client.Ping(ctx).Err()
	})
}

// Close closes the Redis client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
