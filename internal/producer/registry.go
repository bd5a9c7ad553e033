package producer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"osintgraph/internal/domain"
)

// ApplyFunc is called with each collected fragment. Calls are serialized:
// the registry never invokes it from two goroutines at once.
type ApplyFunc func(ctx context.Context, source string, fragment *domain.Fragment) error

// Outcome is the result of one producer in a collection run
type Outcome struct {
	Producer  string `json:"producer"`
	Entities  int    `json:"entities"`
	Relations int    `json:"relations"`
	Error     string `json:"error,omitempty"`
}

// Registry manages producers and runs them. Producers keep their
// registration order, which is the order their fragments are applied in.
type Registry struct {
	mu        sync.RWMutex
	producers []Producer
	byName    map[string]Producer
	apply     ApplyFunc
	logger    *zap.Logger
}

// NewRegistry creates a new producer registry
func NewRegistry(apply ApplyFunc, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byName: make(map[string]Producer),
		apply:  apply,
		logger: logger,
	}
}

// Register adds a producer to the registry
func (r *Registry) Register(p Producer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("producer %s already registered", name)
	}
	r.byName[name] = p
	r.producers = append(r.producers, p)
	r.logger.Debug("registered producer", zap.String("producer", name))
	return nil
}

// Names lists the registered producers in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.producers))
	for _, p := range r.producers {
		names = append(names, p.Name())
	}
	return names
}

type collected struct {
	fragment *domain.Fragment
	err      error
}

// CollectAll runs every producer concurrently, then applies the fragments
// one at a time in registration order, so the same producers always build
// the same graph. A failing producer does not stop the others; all failures
// are joined into the returned error. Outcomes follow registration order.
func (r *Registry) CollectAll(ctx context.Context) ([]Outcome, error) {
	r.mu.RLock()
	producers := make([]Producer, len(r.producers))
	copy(producers, r.producers)
	r.mu.RUnlock()

	ready := make([]chan collected, len(producers))
	for i, p := range producers {
		ready[i] = make(chan collected, 1)
		go func(p Producer, out chan<- collected) {
			fragment, err := p.Collect(ctx)
			out <- collected{fragment: fragment, err: err}
		}(p, ready[i])
	}

	outcomes := make([]Outcome, 0, len(producers))
	var errs []error
	for i, p := range producers {
		res := <-ready[i]
		name := p.Name()
		outcome := Outcome{Producer: name}
		err := res.err
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err == nil && res.fragment != nil {
			outcome.Entities = len(res.fragment.Entities)
			outcome.Relations = len(res.fragment.Relations)
			err = r.apply(ctx, name, res.fragment)
		}
		if err != nil {
			outcome.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			r.logger.Warn("producer failed", zap.String("producer", name), zap.Error(err))
		} else {
			r.logger.Info("producer applied",
				zap.String("producer", name),
				zap.Int("entities", outcome.Entities),
				zap.Int("relations", outcome.Relations))
		}
		outcomes = append(outcomes, outcome)
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return outcomes, errors.Join(errs...)
}
