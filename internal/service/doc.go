// Package service coordinates an analysis session for the handlers and the
// CLI.
//
// A Session owns the entity graph store and runs the pattern finder, the
// anomaly detector, the timeline correlator and the entity extractor over
// snapshots of it. Mutations and completed analyses are published on an
// EventBus, which the SSE hub relays to connected clients, and counted in a
// per-session Prometheus registry.
package service
