// Package subject provides the per-request view of who is calling.
//
// A Subject is the caller as seen by one system. The Registry holds one
// Subject per system for the lifetime of a single request and travels in
// the request's context.Context. The default system is the empty string.
//
// SecurityContext adapts the Registry to the questions a request handler
// asks: who is the user, does the user have a role, which authentication
// scheme was used and whether the transport is secure.
package subject
