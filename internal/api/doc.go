// Package api implements the Coursebook gateway's HTTP surface.
//
// This package provides:
//   - Account endpoints (register, login) guarded by a per-IP rate limiter
//   - Course and wish commands published to the document workers
//   - Read-through course and wish queries against the document store
//   - Usage statistics read from the counters service
//   - The completion callback (POST /respond) and a WebSocket completion feed
//   - Middleware stack (request ID, access log, recovery, CORS, body limit)
//
// # Request Flow
//
// Commands that expect an answer (register, course and wish creation) are
// registered with the pending registry under a fresh correlation id before
// they are published. The handler then blocks until a worker's completion
// resolves the entry, the entry times out, or the client goes away. Updates
// and deletes are fire-and-forget and answer 202 as soon as they are queued.
//
// Every request also publishes a usage stat to the counters route. Stat
// failures are logged and never fail the request.
//
// # Security
//
// Mutating course and wish routes, the stats routes, the audit log and the
// WebSocket feed require a bearer token issued by the token service.
// Validation runs before the token check on mutating routes.
package api
