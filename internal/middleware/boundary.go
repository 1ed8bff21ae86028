package middleware

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vyrodovalexey/sessiongate/internal/config"
	"github.com/vyrodovalexey/sessiongate/internal/observability"
	"github.com/vyrodovalexey/sessiongate/internal/session"
	"github.com/vyrodovalexey/sessiongate/internal/subject"
	"github.com/vyrodovalexey/sessiongate/internal/token"
)

// tracerName is the OpenTelemetry tracer name for the request boundary.
const tracerName = "sessiongate/middleware"

// SessionFinder looks up a stored session. session.Repository satisfies it.
type SessionFinder interface {
	FindSession(ctx context.Context, system, id string) (*session.StoredSession, error)
}

// systemSet is an immutable snapshot of the configured systems.
type systemSet struct {
	names   []string
	configs map[string]config.SystemConfig
}

func newSystemSet(systems map[string]config.SystemConfig) *systemSet {
	configs := maps.Clone(systems)
	if configs == nil {
		configs = make(map[string]config.SystemConfig)
	}
	delete(configs, "")
	names := slices.Sorted(maps.Keys(configs))
	if def, ok := systems[""]; ok {
		configs[""] = def
	}
	return &systemSet{names: names, configs: configs}
}

// Boundary installs the subjects of a request on entry and clears them on
// exit. It is safe for concurrent use.
type Boundary struct {
	sessions SessionFinder
	logger   observability.Logger
	systems  atomic.Pointer[systemSet]
}

// BoundaryOption configures a Boundary.
type BoundaryOption func(*Boundary)

// WithBoundaryLogger sets the logger.
func WithBoundaryLogger(logger observability.Logger) BoundaryOption {
	return func(b *Boundary) {
		b.logger = logger
	}
}

// NewBoundary creates a boundary resolving sessions through sessions for the
// given systems. The entry keyed by "" configures the default system.
func NewBoundary(
	sessions SessionFinder,
	systems map[string]config.SystemConfig,
	opts ...BoundaryOption,
) *Boundary {
	b := &Boundary{
		sessions: sessions,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.systems.Store(newSystemSet(systems))
	return b
}

// UpdateSystems replaces the configured systems. Requests already inside
// the boundary keep the systems they entered with.
func (b *Boundary) UpdateSystems(systems map[string]config.SystemConfig) {
	set := newSystemSet(systems)
	b.systems.Store(set)
	b.logger.Info("boundary systems updated",
		observability.Strings("systems", set.names),
	)
}

// Systems returns the configured non-default system names in sorted order.
func (b *Boundary) Systems() []string {
	return slices.Clone(b.systems.Load().names)
}

// OnEnter normalizes X-Forwarded-For and returns r carrying a registry with
// the default subject followed by one subject per configured system, plus a
// subject.SecurityContext. When a session cannot be resolved the partial
// registry is cleared and r is returned unchanged with the error.
func (b *Boundary) OnEnter(r *http.Request) (*http.Request, error) {
	start := time.Now()
	metrics := GetMiddlewareMetrics()
	defer func() {
		metrics.enterDuration.Observe(time.Since(start).Seconds())
	}()

	clientIP := NormalizeForwardedFor(r)

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "boundary.enter")
	defer span.End()

	set := b.systems.Load()
	reg := subject.NewRegistry()

	systems := append([]string{""}, set.names...)
	for _, system := range systems {
		s, err := b.subjectFor(ctx, r, system, set.configs[system])
		if err != nil {
			reg.Clear()
			metrics.enterFailures.Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			b.logger.WithContext(ctx).Error("failed to install subjects",
				observability.String("system", system),
				observability.String("client_ip", clientIP),
				observability.Error(err),
			)
			return r, fmt.Errorf("resolving session for system %q: %w", system, err)
		}
		reg.Add(s)

		state := stateAnonymous
		if s.IsAuthenticated() {
			state = stateAuthenticated
		}
		metrics.subjectsInstalled.WithLabelValues(state).Inc()
	}

	span.SetAttributes(attribute.Int("subjects", reg.Len()))
	b.logger.WithContext(ctx).Debug("subjects installed",
		observability.Int("count", reg.Len()),
		observability.String("client_ip", clientIP),
	)

	secure := r.TLS != nil
	sc := subject.NewSecurityContext(reg, func() bool { return secure })

	out := r.Context()
	out = subject.NewContext(out, reg)
	out = subject.ContextWithSecurityContext(out, sc)
	return r.WithContext(out), nil
}

func (b *Boundary) subjectFor(
	ctx context.Context,
	r *http.Request,
	system string,
	cfg config.SystemConfig,
) (*subject.Subject, error) {
	var opts []subject.Option

	if id := sessionID(r, cfg, system); id != "" {
		s, err := b.sessions.FindSession(ctx, system, id)
		if err != nil {
			return nil, err
		}
		opts = append(opts, subject.WithSession(s))
	}

	if system == "" {
		if login, password, ok := r.BasicAuth(); ok {
			tok := token.NewLoginPasswordTokenWithScheme("", token.SchemeBasic, []byte(login), []byte(password))
			b.logger.WithContext(ctx).Debug("basic credentials captured",
				observability.Object("token", tok),
			)
			opts = append(opts, subject.WithToken(tok))
		}
	}

	return subject.New(system, opts...), nil
}

// sessionID returns the session id a request presents for system: the
// system's header first, then its cookie.
func sessionID(r *http.Request, cfg config.SystemConfig, system string) string {
	if id := strings.TrimSpace(r.Header.Get(cfg.Header(system))); id != "" {
		return id
	}
	if c, err := r.Cookie(cfg.Cookie(system)); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// OnExit clears the registry carried by r. It never panics.
func (b *Boundary) OnExit(r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			GetMiddlewareMetrics().exitFailures.Inc()
			b.logger.Error("panic while clearing subjects",
				observability.Any("error", rec),
			)
		}
	}()

	if r == nil {
		return
	}
	if reg, ok := subject.RegistryFromContext(r.Context()); ok {
		reg.Clear()
	}
}

// Handler wraps next with OnEnter and a deferred OnExit. Requests whose
// sessions cannot be resolved are answered with 503.
func (b *Boundary) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered, err := b.OnEnter(r)
		defer b.OnExit(entered)

		if err != nil {
			w.Header().Set(HeaderContentType, ContentTypeJSON)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, ErrServiceUnavailable)
			return
		}

		next.ServeHTTP(w, entered)
	})
}

// Gin returns the boundary as gin middleware.
func (b *Boundary) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		entered, err := b.OnEnter(c.Request)
		c.Request = entered
		defer b.OnExit(entered)

		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "service unavailable",
				"message": "session store unavailable",
			})
			return
		}

		c.Next()
	}
}
