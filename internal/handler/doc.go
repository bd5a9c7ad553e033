// Package handler implements the HTTP API of osintgraph.
//
// The router is built on chi with request ids, panic recovery, CORS and a
// zap request logger. Graph endpoints live under /api; /metrics exposes the
// session's Prometheus registry and /health reports liveness.
//
// # Errors
//
// Errors are returned as JSON {error, details}. Invalid entities or
// relations and unknown formats map to 400, missing entities and sessions to
// 404, oversized graphs to 422, capability failures to 502 and capability
// timeouts to 504.
//
// # Server-Sent Events
//
// GET /api/events streams session events (entity and relation changes,
// completed analyses) when an events handler is wired in.
package handler
