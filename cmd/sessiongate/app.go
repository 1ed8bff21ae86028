package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/sessiongate/internal/config"
	"github.com/vyrodovalexey/sessiongate/internal/health"
	"github.com/vyrodovalexey/sessiongate/internal/middleware"
	"github.com/vyrodovalexey/sessiongate/internal/observability"
	"github.com/vyrodovalexey/sessiongate/internal/session"
)

// readHeaderTimeout bounds the time allowed to read request headers.
const readHeaderTimeout = 5 * time.Second

// application holds all application components.
type application struct {
	config     *config.Config
	tracer     *observability.Tracer
	repository session.Repository
	boundary   *middleware.Boundary
	health     *health.Checker
	server     *http.Server
}

// newApplication initializes all application components.
func newApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	tracer, err := observability.NewTracer(ctx, observability.TracerConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	session.GetMetrics().Init()
	middleware.GetMiddlewareMetrics().Init()
	health.GetHealthMetrics().Init()

	repo, err := session.New(&cfg.Sessions, logger)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create session repository: %w", err)
	}

	boundary := middleware.NewBoundary(repo, cfg.Systems, middleware.WithBoundaryLogger(logger))

	checker := health.NewChecker(version)
	if pinger, ok := repo.(session.Pinger); ok {
		checker.RegisterCheck("session-store", pinger.Ping, true)
	}

	app := &application{
		config:     cfg,
		tracer:     tracer,
		repository: repo,
		boundary:   boundary,
		health:     checker,
	}
	app.server = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           app.routes(logger),
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout),
	}

	return app, nil
}

// routes builds the HTTP handler.
// The execution order (outermost executes first):
// RequestID -> Logging -> Recovery -> Boundary -> [whoami]
func (a *application) routes(logger observability.Logger) http.Handler {
	mux := http.NewServeMux()

	var whoami http.Handler = http.HandlerFunc(whoamiHandler)
	whoami = a.boundary.Handler(whoami)
	whoami = middleware.Recovery(logger)(whoami)
	whoami = middleware.Logging(logger)(whoami)
	whoami = middleware.RequestID()(whoami)

	mux.Handle("GET /whoami", whoami)
	mux.HandleFunc("GET /healthz", a.health.HealthHandler())
	mux.HandleFunc("GET /readyz", a.health.ReadinessHandler())
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
