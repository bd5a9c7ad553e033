package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"osintgraph/internal/anomaly"
	"osintgraph/internal/codec"
	"osintgraph/internal/domain"
	"osintgraph/internal/extract"
	"osintgraph/internal/pattern"
	"osintgraph/internal/report"
	"osintgraph/internal/store"
	"osintgraph/internal/timeline"
)

// Analysis kinds used in events and metrics
const (
	AnalysisPatterns  = "patterns"
	AnalysisAnomalies = "anomalies"
	AnalysisTimeline  = "timeline"
	AnalysisExtract   = "extract"
	AnalysisInsights  = "insights"
)

// Config wires the components of a session. Nil components get defaults:
// an unbounded finder, a detector without a model, and an extractor
// without capabilities.
type Config struct {
	Finder     *pattern.Finder
	Detector   *anomaly.Detector
	Correlator timeline.Correlator
	Extractor  *extract.Extractor
	Codecs     *codec.Registry
	EventBus   *EventBus
	Metrics    *Metrics
	Logger     *zap.Logger
}

// Session is one analysis session: a graph store plus the analyses that
// run over snapshots of it. Mutations publish events and update metrics.
type Session struct {
	store      *store.Store
	finder     *pattern.Finder
	detector   *anomaly.Detector
	correlator timeline.Correlator
	extractor  *extract.Extractor
	codecs     *codec.Registry
	eventBus   *EventBus
	metrics    *Metrics
	logger     *zap.Logger
}

// NewSession creates an empty session
func NewSession(cfg Config) *Session {
	s := &Session{
		finder:     cfg.Finder,
		detector:   cfg.Detector,
		correlator: cfg.Correlator,
		extractor:  cfg.Extractor,
		codecs:     cfg.Codecs,
		eventBus:   cfg.EventBus,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.finder == nil {
		s.finder = pattern.NewFinder(pattern.WithLogger(s.logger))
	}
	if s.detector == nil {
		s.detector = anomaly.NewDetector(nil, anomaly.DefaultOutlierFraction, s.logger)
	}
	if s.extractor == nil {
		s.extractor = extract.New(nil, nil, s.logger)
	}
	if s.codecs == nil {
		s.codecs = codec.NewRegistry()
	}
	if s.eventBus == nil {
		s.eventBus = NewEventBus()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics("osintgraph")
	}
	s.store = store.New(store.WithLogger(s.logger))
	return s
}

// EventBus returns the session's event bus
func (s *Session) EventBus() *EventBus { return s.eventBus }

// Metrics returns the session's metrics
func (s *Session) Metrics() *Metrics { return s.metrics }

// Codecs returns the session's codec registry
func (s *Session) Codecs() *codec.Registry { return s.codecs }

// AddEntity registers an entity, merging attributes into an existing one
func (s *Session) AddEntity(id string, attrs domain.Attributes) (bool, error) {
	created, err := s.store.AddEntity(id, attrs)
	if err != nil {
		return false, err
	}
	if created {
		s.metrics.EntitiesCreated.Inc()
	}
	s.updateSize()

	s.eventBus.Publish(Event{
		Type:    EventEntityAdded,
		Payload: map[string]interface{}{"id": id, "created": created},
	})
	return created, nil
}

// AddRelation registers an undirected relation. A relation over an
// existing pair overwrites its label.
func (s *Session) AddRelation(a, b, label string) (store.RelationChange, error) {
	change, err := s.store.AddRelation(a, b, label)
	if err != nil {
		s.metrics.RelationsRejected.Inc()
		return change, err
	}

	s.metrics.EntitiesCreated.Add(float64(len(change.CreatedEndpoints)))
	switch change.Kind {
	case store.ChangeCreated:
		s.metrics.RelationsCreated.Inc()
		s.eventBus.Publish(Event{Type: EventRelationAdded, Payload: change})
	case store.ChangeRelabeled:
		s.metrics.Relabels.Inc()
		s.eventBus.Publish(Event{Type: EventRelationRelabeled, Payload: change})
	}
	s.updateSize()
	return change, nil
}

// Apply applies a fragment of observations atomically
func (s *Session) Apply(f *domain.Fragment) (*store.ApplyResult, error) {
	result, err := s.store.Apply(f)
	if err != nil {
		return nil, err
	}
	s.recordApply(result)

	s.eventBus.Publish(Event{
		Type: EventFragmentApplied,
		Payload: map[string]interface{}{
			"source": f.Source,
			"result": result,
		},
	})
	return result, nil
}

// ApplyFunc adapts Apply to the producer registry's callback
func (s *Session) ApplyFunc(ctx context.Context, source string, f *domain.Fragment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.Apply(f)
	if err != nil {
		return err
	}
	s.logger.Info("applied producer output",
		zap.String("producer", source),
		zap.Int("entities_created", result.EntitiesCreated),
		zap.Int("entities_merged", result.EntitiesMerged),
		zap.Int("relations_created", result.RelationsCreated),
		zap.Int("relations_relabeled", result.RelationsRelabeled))
	return nil
}

// Replace discards the session graph and loads doc in its place
func (s *Session) Replace(doc *domain.Document) (*store.ApplyResult, error) {
	result, err := s.store.Replace(doc)
	if err != nil {
		return nil, err
	}
	s.recordApply(result)

	s.eventBus.Publish(Event{Type: EventGraphReplaced, Payload: result})
	return result, nil
}

func (s *Session) recordApply(result *store.ApplyResult) {
	s.metrics.EntitiesCreated.Add(float64(result.EntitiesCreated))
	s.metrics.RelationsCreated.Add(float64(result.RelationsCreated))
	s.metrics.Relabels.Add(float64(result.RelationsRelabeled))
	s.updateSize()
}

func (s *Session) updateSize() {
	s.metrics.SetGraphSize(s.store.Counts())
}

// Entity returns a copy of one entity
func (s *Session) Entity(id string) (domain.Entity, error) {
	return s.store.Entity(id)
}

// Snapshot returns a consistent read-only view of the graph
func (s *Session) Snapshot() *store.Snapshot {
	return s.store.Snapshot()
}

// Graph returns the node-link document of the current graph
func (s *Session) Graph() *domain.Document {
	return s.store.Snapshot().Document()
}

// FindPatterns runs clique and community detection over a snapshot
func (s *Session) FindPatterns(ctx context.Context) (*pattern.Result, error) {
	started := time.Now()
	result, err := s.finder.Find(ctx, s.store.Snapshot())
	if err != nil {
		s.metrics.ObserveAnalysis(AnalysisPatterns, "error", started)
		return nil, err
	}
	s.metrics.ObserveAnalysis(AnalysisPatterns, "ok", started)

	s.eventBus.Publish(Event{
		Type: EventAnalysisCompleted,
		Payload: map[string]interface{}{
			"kind":        AnalysisPatterns,
			"cliques":     len(result.Cliques),
			"communities": len(result.Communities),
			"modularity":  result.Modularity,
		},
	})
	return result, nil
}

// DetectAnomalies runs outlier detection over a snapshot
func (s *Session) DetectAnomalies(ctx context.Context) (*anomaly.Result, error) {
	started := time.Now()
	result, err := s.detector.Detect(ctx, s.store.Snapshot())
	if err != nil {
		s.metrics.ObserveAnalysis(AnalysisAnomalies, "error", started)
		return nil, err
	}
	s.metrics.ObserveAnalysis(AnalysisAnomalies, string(result.Status), started)
	s.metrics.OutliersFlagged.Add(float64(len(result.Outliers)))

	s.eventBus.Publish(Event{
		Type: EventAnalysisCompleted,
		Payload: map[string]interface{}{
			"kind":     AnalysisAnomalies,
			"status":   result.Status,
			"outliers": len(result.Outliers),
		},
	})
	return result, nil
}

// CorrelateTimeline pairs adjacent same-actor events
func (s *Session) CorrelateTimeline(events []domain.Event) []timeline.Pair {
	started := time.Now()
	pairs := s.correlator.Correlate(events)
	s.metrics.ObserveAnalysis(AnalysisTimeline, "ok", started)
	return pairs
}

// ExtractEntities runs the entity extractor over text. With merge set, the
// extracted entities are applied to the session graph.
func (s *Session) ExtractEntities(ctx context.Context, text string, merge bool) (*extract.Result, error) {
	started := time.Now()
	result, err := s.extractor.Extract(ctx, text)
	if err != nil {
		s.metrics.ObserveAnalysis(AnalysisExtract, "error", started)
		return nil, err
	}
	s.metrics.ObserveAnalysis(AnalysisExtract, string(result.Status), started)

	if merge && result.Status == extract.StatusOK && len(result.Entities) > 0 {
		if _, err := s.Apply(result.Fragment("extract")); err != nil {
			return nil, fmt.Errorf("merge extracted entities: %w", err)
		}
	}
	return result, nil
}

// Insights returns a free-text analysis of text
func (s *Session) Insights(ctx context.Context, text string) (string, extract.Status, error) {
	started := time.Now()
	summary, status, err := s.extractor.Summarize(ctx, text)
	if err != nil {
		s.metrics.ObserveAnalysis(AnalysisInsights, "error", started)
		return "", status, err
	}
	s.metrics.ObserveAnalysis(AnalysisInsights, string(status), started)
	return summary, status, nil
}

// Report runs patterns and anomalies over one snapshot and assembles the
// report material. Timeline pairs and insights are optional.
func (s *Session) Report(ctx context.Context, events []domain.Event, insights string) (*report.Report, error) {
	snap := s.store.Snapshot()

	started := time.Now()
	patterns, err := s.finder.Find(ctx, snap)
	if err != nil {
		s.metrics.ObserveAnalysis(AnalysisPatterns, "error", started)
		return nil, fmt.Errorf("patterns: %w", err)
	}
	s.metrics.ObserveAnalysis(AnalysisPatterns, "ok", started)

	started = time.Now()
	anomalies, err := s.detector.Detect(ctx, snap)
	if err != nil {
		s.metrics.ObserveAnalysis(AnalysisAnomalies, "error", started)
		return nil, fmt.Errorf("anomalies: %w", err)
	}
	s.metrics.ObserveAnalysis(AnalysisAnomalies, string(anomalies.Status), started)
	s.metrics.OutliersFlagged.Add(float64(len(anomalies.Outliers)))

	r := &report.Report{
		GeneratedAt: time.Now(),
		Entities:    snap.Len(),
		Relations:   len(snap.Relations()),
		Patterns:    patterns,
		Anomalies:   anomalies,
		Insights:    insights,
	}
	if len(events) > 0 {
		r.Timeline = s.CorrelateTimeline(events)
	}
	return r, nil
}

// Export writes the graph document in the named format
func (s *Session) Export(w io.Writer, format string) error {
	exp, err := s.codecs.Exporter(format)
	if err != nil {
		return err
	}
	return exp.Export(s.Graph(), w)
}

// Import reads a graph document in the named format and replaces the
// session graph with it
func (s *Session) Import(r io.Reader, format string) (*store.ApplyResult, error) {
	dec, err := s.codecs.Decoder(format)
	if err != nil {
		return nil, err
	}
	doc, err := dec.Decode(r)
	if err != nil {
		return nil, err
	}
	return s.Replace(doc)
}

// Ingest parses producer output in the named format and applies it
func (s *Session) Ingest(r io.Reader, format string) (*store.ApplyResult, error) {
	imp, err := s.codecs.Importer(format)
	if err != nil {
		return nil, err
	}
	f, err := imp.Parse(r)
	if err != nil {
		return nil, err
	}
	return s.Apply(f)
}
