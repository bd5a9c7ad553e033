package extract

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"osintgraph/internal/domain"
)

// Status describes the outcome of an extraction or summary call
type Status string

const (
	StatusOK            Status = "ok"
	StatusNotConfigured Status = "not_configured"
)

const (
	// MessageNotConfigured is returned when no NLP capability is wired in
	MessageNotConfigured = "Entity extraction not configured."
	// MessageSummaryNotConfigured is returned in place of a summary when no
	// language model is wired in
	MessageSummaryNotConfigured = "LLM analysis not configured."
)

// Chunk is one named entity found in text
type Chunk struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// NLP segments, tags and chunks text into named entities. It is an
// external capability; implementations apply their own timeouts.
type NLP interface {
	Extract(ctx context.Context, text string) ([]Chunk, error)
}

// Summarizer produces a free-text analysis of text
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Result maps surface forms to entity types
type Result struct {
	Status   Status            `json:"status"`
	Message  string            `json:"message,omitempty"`
	Entities map[string]string `json:"entities"`
}

// Names returns the surface forms in sorted order
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Entities))
	for n := range r.Entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fragment converts the result into observations for the store. Each
// surface form becomes an entity carrying its type under "entity_type".
// The caller decides whether to apply it.
func (r *Result) Fragment(source string) *domain.Fragment {
	f := domain.NewFragment(source)
	for _, name := range r.Names() {
		f.AddEntity(name, domain.Attributes{"entity_type": domain.String(r.Entities[name])})
	}
	return f
}

// Extractor wraps the NLP and summary capabilities. Either may be nil.
type Extractor struct {
	nlp        NLP
	summarizer Summarizer
	logger     *zap.Logger
}

// New creates an extractor
func New(nlp NLP, summarizer Summarizer, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{nlp: nlp, summarizer: summarizer, logger: logger}
}

// Extract returns the surface form to entity type mapping for text. When
// the same surface form recurs with different types, the last one seen
// wins. Capability failures are returned as *domain.CapabilityError.
func (e *Extractor) Extract(ctx context.Context, text string) (*Result, error) {
	if e.nlp == nil {
		return &Result{Status: StatusNotConfigured, Message: MessageNotConfigured, Entities: map[string]string{}}, nil
	}

	chunks, err := e.nlp.Extract(ctx, text)
	if err != nil {
		return nil, domain.NewCapabilityError("nlp", err)
	}

	entities := make(map[string]string, len(chunks))
	for _, c := range chunks {
		surface := strings.TrimSpace(c.Text)
		if surface == "" {
			continue
		}
		if prev, ok := entities[surface]; ok && prev != c.Type {
			e.logger.Debug("conflicting entity type",
				zap.String("text", surface),
				zap.String("previous", prev),
				zap.String("type", c.Type))
		}
		entities[surface] = c.Type
	}
	return &Result{Status: StatusOK, Entities: entities}, nil
}

// Summarize returns a free-text analysis of text, or the not-configured
// sentinel when no summarizer is wired in
func (e *Extractor) Summarize(ctx context.Context, text string) (string, Status, error) {
	if e.summarizer == nil {
		return MessageSummaryNotConfigured, StatusNotConfigured, nil
	}
	summary, err := e.summarizer.Summarize(ctx, text)
	if err != nil {
		return "", StatusOK, domain.NewCapabilityError("summarizer", err)
	}
	return summary, StatusOK, nil
}
