// Package anomaly flags entities whose attributes set them apart from the
// rest of the graph.
//
// Encode turns a snapshot into a deterministic numeric matrix. The
// Detector hands that matrix to an OutlierModel; the built-in model is an
// IsolationForest seeded for reproducible output, with trees built in
// parallel.
//
// With no model wired in, or with fewer than two entities, the detector
// returns a status result carrying a sentinel message instead of failing.
package anomaly
