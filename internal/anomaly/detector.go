package anomaly

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"osintgraph/internal/domain"
	"osintgraph/internal/store"
)

// DefaultOutlierFraction is the expected share of outliers
const DefaultOutlierFraction = 0.1

// Status describes the outcome of a detection run
type Status string

const (
	StatusOK               Status = "ok"
	StatusNotConfigured    Status = "not_configured"
	StatusInsufficientData Status = "insufficient_data"
)

const (
	// MessageInsufficientData is reported instead of an outlier list when
	// the graph holds fewer than two entities
	MessageInsufficientData = "Not enough data for anomaly detection."
	// MessageNotConfigured is reported when no outlier model is wired in
	MessageNotConfigured = "Anomaly detection not configured."
)

// OutlierModel flags outlier rows of a feature matrix. Implementations may
// be remote; they must honor ctx.
type OutlierModel interface {
	FitPredict(ctx context.Context, rows [][]float64, fraction float64) ([]bool, error)
}

// Result is the outcome of one detection run. Outliers follow snapshot
// order.
type Result struct {
	Status   Status   `json:"status"`
	Message  string   `json:"message,omitempty"`
	Outliers []string `json:"outliers"`
	Features []string `json:"features,omitempty"`
}

// Summary renders the result the way reports show it: the outlier IDs, or
// the sentinel message for degraded outcomes
func (r *Result) Summary() string {
	if r.Status != StatusOK {
		return r.Message
	}
	data, err := json.Marshal(r.Outliers)
	if err != nil {
		return fmt.Sprint(r.Outliers)
	}
	return string(data)
}

// Detector encodes snapshots and runs an outlier model over them
type Detector struct {
	model    OutlierModel
	fraction float64
	logger   *zap.Logger
}

// NewDetector creates a detector. A nil model yields a detector that
// reports StatusNotConfigured. Fractions outside (0, 0.5] fall back to the
// default.
func NewDetector(model OutlierModel, fraction float64, logger *zap.Logger) *Detector {
	if fraction <= 0 || fraction > 0.5 {
		fraction = DefaultOutlierFraction
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{model: model, fraction: fraction, logger: logger}
}

// Fraction returns the configured outlier fraction
func (d *Detector) Fraction() float64 { return d.fraction }

// Detect flags outlier entities in snap. Degraded outcomes (no model, fewer
// than two entities) are results, not errors. A model failure is returned
// as a *domain.CapabilityError.
func (d *Detector) Detect(ctx context.Context, snap *store.Snapshot) (*Result, error) {
	if d.model == nil {
		return &Result{Status: StatusNotConfigured, Message: MessageNotConfigured, Outliers: []string{}}, nil
	}
	if snap.Len() < 2 {
		return &Result{Status: StatusInsufficientData, Message: MessageInsufficientData, Outliers: []string{}}, nil
	}

	start := time.Now()
	features := Encode(snap)

	flags, err := d.model.FitPredict(ctx, features.Rows, d.fraction)
	if err != nil {
		return nil, domain.NewCapabilityError("anomaly model", err)
	}
	if len(flags) != len(features.Rows) {
		return nil, domain.NewCapabilityError("anomaly model",
			fmt.Errorf("returned %d flags for %d rows", len(flags), len(features.Rows)))
	}

	outliers := make([]string, 0)
	for i, flagged := range flags {
		if flagged {
			outliers = append(outliers, features.IDs[i])
		}
	}

	d.logger.Debug("anomaly detection complete",
		zap.Int("entities", len(features.IDs)),
		zap.Int("features", len(features.Columns)),
		zap.Int("outliers", len(outliers)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Status:   StatusOK,
		Outliers: outliers,
		Features: features.Columns,
	}, nil
}
