// Package pattern finds structure in a graph snapshot.
//
// # Cliques
//
// Maximal cliques are enumerated with gonum's pivoting Bron-Kerbosch
// (degeneracy ordering). The worst case is exponential, so a Finder can be
// bounded by entity count with WithMaxCliqueNodes; beyond the bound it
// returns domain.ErrGraphTooLarge rather than running.
//
// # Communities
//
// Communities come from greedy modularity agglomeration
// (Clauset-Newman-Moore). The result is always a partition of the entity
// set. The partition is scored with gonum's community.Q.
//
// Output ordering depends only on graph content, never on insertion order.
package pattern
