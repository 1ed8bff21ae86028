// Package middleware provides the HTTP request boundary of sessiongate.
//
// Boundary installs one subject.Subject per configured system, plus the
// default subject, into the request context when a request enters and
// clears them when it leaves. The clear runs from a deferred call so it
// also happens when the handler panics.
//
// # Components
//
//   - Boundary: OnEnter/OnExit hooks with net/http and gin adapters
//   - Client IP: X-Forwarded-For normalization
//   - Request ID: unique request identifier injection
//   - Recovery: panic recovery with stack trace logging
//   - Logging: structured request logging
//
// # Usage
//
//	boundary := middleware.NewBoundary(repo, cfg.Systems,
//	    middleware.WithBoundaryLogger(logger))
//
//	handler := middleware.RequestID()(
//	    middleware.Logging(logger)(
//	        middleware.Recovery(logger)(
//	            boundary.Handler(mux),
//	        ),
//	    ),
//	)
package middleware
