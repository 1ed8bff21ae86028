package session

import (
	"context"
	"iter"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/sessiongate/internal/observability"
)

// MemoryRepository keeps sessions in process memory.
//
// Expired sessions are not filtered on read. A background scavenger removes
// them every scavenge interval, so a session may still be returned for up to
// one interval after it expired.
type MemoryRepository struct {
	logger   observability.Logger
	keys     keyspace
	now      func() time.Time
	interval time.Duration

	// entries maps a namespaced key to *memoryEntry.
	entries sync.Map

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type memoryEntry struct {
	system  string
	session *StoredSession
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Scavenger  = (*MemoryRepository)(nil)
)

// NewMemoryRepository creates an in-process repository. Its scavenger does
// not run until Start is called.
func NewMemoryRepository(opts ...Option) *MemoryRepository {
	o := buildOptions(opts)

	r := &MemoryRepository{
		logger:   o.logger,
		keys:     newKeyspace(o.keyPrefix),
		now:      o.now,
		interval: o.scavengeInterval,
	}

	r.logger.Info("memory session repository initialized",
		observability.String("keyPrefix", r.keys.prefix),
		observability.Duration("scavengeInterval", r.interval))

	return r
}

// SaveSession stores a copy of s.
func (r *MemoryRepository) SaveSession(ctx context.Context, system string, s *StoredSession) (err error) {
	_, span := startSpan(ctx, "session.Save", backendMemory, system, trace.SpanKindInternal)
	defer span.End()
	start := time.Now()
	defer func() { observe(backendMemory, opSave, start, err) }()

	if err = ValidateSystem(system); err != nil {
		recordSpanError(span, err)
		return err
	}
	if err = s.validate(); err != nil {
		recordSpanError(span, err)
		return err
	}

	stored := s.stamp(r.now())
	if _, replaced := r.entries.Swap(r.keys.key(system, s.ID), &memoryEntry{system: system, session: stored}); !replaced {
		GetMetrics().memorySessions.Inc()
	}

	r.logger.Debug("session saved",
		observability.String("system", system),
		observability.String("sessionID", s.ID),
		observability.Int("ttlSeconds", s.TTLSeconds))
	return nil
}

// RemoveSession deletes a session if present.
func (r *MemoryRepository) RemoveSession(ctx context.Context, system, id string) (err error) {
	_, span := startSpan(ctx, "session.Remove", backendMemory, system, trace.SpanKindInternal)
	defer span.End()
	start := time.Now()
	defer func() { observe(backendMemory, opRemove, start, err) }()

	if err = ValidateSystem(system); err != nil {
		recordSpanError(span, err)
		return err
	}

	_, existed := r.entries.LoadAndDelete(r.keys.key(system, id))
	if existed {
		GetMetrics().memorySessions.Dec()
	}
	span.SetAttributes(attribute.Bool("session.existed", existed))

	r.logger.Debug("session removed",
		observability.String("system", system),
		observability.String("sessionID", id),
		observability.Bool("existed", existed))
	return nil
}

// FindSession returns a copy of the session, or nil when it is absent.
func (r *MemoryRepository) FindSession(ctx context.Context, system, id string) (_ *StoredSession, err error) {
	_, span := startSpan(ctx, "session.Find", backendMemory, system, trace.SpanKindInternal)
	defer span.End()
	start := time.Now()
	defer func() { observe(backendMemory, opFind, start, err) }()

	if err = ValidateSystem(system); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if validateID(id) != nil {
		span.SetAttributes(attribute.Bool("session.found", false))
		return nil, nil
	}

	v, ok := r.entries.Load(r.keys.key(system, id))
	span.SetAttributes(attribute.Bool("session.found", ok))
	if !ok {
		return nil, nil
	}
	return v.(*memoryEntry).session.Clone(), nil
}

// FindSessions yields a copy of every session stored for system.
func (r *MemoryRepository) FindSessions(ctx context.Context, system string) iter.Seq2[*StoredSession, error] {
	return func(yield func(*StoredSession, error) bool) {
		_, span := startSpan(ctx, "session.FindAll", backendMemory, system, trace.SpanKindInternal)
		defer span.End()

		var err error
		defer func(start time.Time) { observe(backendMemory, opList, start, err) }(time.Now())

		if err = ValidateSystem(system); err != nil {
			recordSpanError(span, err)
			yield(nil, err)
			return
		}

		count := 0
		r.entries.Range(func(_, v any) bool {
			if err = ctx.Err(); err != nil {
				return false
			}
			entry := v.(*memoryEntry)
			if entry.system != system {
				return true
			}
			count++
			return yield(entry.session.Clone(), nil)
		})
		if err != nil {
			recordSpanError(span, err)
			yield(nil, err)
		}
		span.SetAttributes(attribute.Int("session.count", count))
	}
}

// Len returns the number of stored sessions, expired ones included.
func (r *MemoryRepository) Len() int {
	n := 0
	r.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Scavenge removes every session expired at the current time and returns
// how many were removed. An entry replaced concurrently by a save is kept.
func (r *MemoryRepository) Scavenge() int {
	now := r.now()
	removed, live := 0, 0

	r.entries.Range(func(k, v any) bool {
		entry := v.(*memoryEntry)
		if !entry.session.IsExpired(now) {
			live++
			return true
		}
		if r.entries.CompareAndDelete(k, v) {
			removed++
		}
		return true
	})

	m := GetMetrics()
	m.scavengedTotal.Add(float64(removed))
	m.memorySessions.Sub(float64(removed))

	if removed > 0 {
		r.logger.Debug("expired sessions scavenged",
			observability.Int("removed", removed),
			observability.Int("live", live))
	}
	return removed
}

// Start launches the scavenger. It runs until Stop is called or ctx is
// done. Calling Start while the scavenger runs has no effect.
func (r *MemoryRepository) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		select {
		case <-r.done:
			r.cancel()
		default:
			return
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go r.scavengeLoop(ctx, done)

	r.logger.Debug("session scavenger started",
		observability.Duration("interval", r.interval))
}

// Stop halts the scavenger and waits for it to exit. Calling Stop when the
// scavenger is not running has no effect.
func (r *MemoryRepository) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil

	r.logger.Debug("session scavenger stopped")
}

// Close stops the scavenger.
func (r *MemoryRepository) Close() error {
	r.Stop()
	return nil
}

func (r *MemoryRepository) scavengeLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Scavenge()
		}
	}
}
