// Package store holds the entity graph for one investigation session.
//
// The graph is undirected with at most one relation per entity pair.
// Re-registering an entity merges attributes; re-registering a pair
// overwrites its label. Adding a relation creates absent endpoints with
// empty attributes. Self-loops are rejected.
//
// Analyses never read the live graph. They take a Snapshot, a deep copy
// that is safe to share between goroutines while producers keep writing.
package store
