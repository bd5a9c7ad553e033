// Package domain defines the core types of the osintgraph correlation engine.
//
// The types here carry no infrastructure concerns: no storage, no network,
// no logging. Every other package speaks in these terms.
//
// # Core Types
//
// Entity is a uniquely identified subject of investigation (a person, an IP,
// a domain, an email address) with an open-ended attribute mapping.
//
// Relation is a labeled, undirected connection between two entities. A pair
// of entities carries at most one relation; endpoints are normalized so the
// pair has a single canonical form and a deterministic ID.
//
// Value is the tagged union used for attribute values: null, string,
// number, boolean, nested map or sequence. It round-trips through JSON and
// YAML and encodes maps with sorted keys, so its JSON form is canonical.
//
// # Interchange
//
// Fragment is a batch of observations from one producer. Document is the
// node-link form used for export, import and archiving.
//
// # Timeline
//
// Event is a timestamped, actor-attributed observation that never enters
// the graph. Timestamps accept numeric epochs and RFC 3339 strings.
//
// # Errors
//
// Sentinel errors (ErrInvalidEntity, ErrInvalidRelation, ErrNotFound,
// ErrGraphTooLarge) are matched with errors.Is. CapabilityError scopes a
// failure of an external capability to the call that triggered it.
package domain
