// Package health provides liveness and readiness endpoints.
//
// A Checker holds named dependency checks. Liveness never runs them.
// Readiness runs every check with a timeout and answers 503 when a
// critical dependency fails; a failing non-critical dependency only
// degrades the reported status.
package health
