// Package timeline pairs temporally adjacent events that share an actor.
package timeline

import (
	"sort"
	"time"

	"osintgraph/internal/domain"
)

// Pair is two adjacent events of the same actor, earlier first
type Pair struct {
	Earlier domain.Event  `json:"earlier"`
	Later   domain.Event  `json:"later"`
	Gap     time.Duration `json:"gap_ns"`
}

// Correlator orders events and emits same-actor adjacent pairs
type Correlator struct {
	// MaxGap drops pairs further apart than this. Zero keeps every pair.
	MaxGap time.Duration
}

// Sort returns a copy of events ordered by timestamp ascending. Ties keep
// their original relative order.
func Sort(events []domain.Event) []domain.Event {
	sorted := make([]domain.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp.Time)
	})
	return sorted
}

// Correlate sorts events and compares each strictly adjacent pair. A pair
// is emitted when both events have the same actor; an actor's events are
// never paired across an intervening event of another actor.
func (c Correlator) Correlate(events []domain.Event) []Pair {
	sorted := Sort(events)
	pairs := make([]Pair, 0)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Actor != cur.Actor {
			continue
		}
		gap := cur.Timestamp.Sub(prev.Timestamp.Time)
		if c.MaxGap > 0 && gap > c.MaxGap {
			continue
		}
		pairs = append(pairs, Pair{Earlier: prev, Later: cur, Gap: gap})
	}
	return pairs
}
