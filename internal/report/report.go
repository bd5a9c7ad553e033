package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"osintgraph/internal/anomaly"
	"osintgraph/internal/pattern"
	"osintgraph/internal/timeline"
)

const (
	DefaultReportPath = "correlation_report.txt"
	DefaultExportPath = "correlation_graph.json"
)

// Report is the material of one correlation report
type Report struct {
	GeneratedAt time.Time
	Entities    int
	Relations   int
	Patterns    *pattern.Result
	Anomalies   *anomaly.Result
	Timeline    []timeline.Pair
	Insights    string
}

// Render writes the human-readable report: a timestamp header, the
// patterns section and the anomalies section
func Render(w io.Writer, r *Report) error {
	var b bytes.Buffer

	header := fmt.Sprintf("Data Correlation Report - %s", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintln(&b, header)
	fmt.Fprintln(&b, strings.Repeat("=", len(header)))
	fmt.Fprintf(&b, "Entities: %d\nRelations: %d\n\n", r.Entities, r.Relations)

	fmt.Fprintln(&b, "Patterns Identified:")
	if r.Patterns == nil {
		fmt.Fprintln(&b, "  (not run)")
	} else {
		fmt.Fprintln(&b, "Cliques:")
		if err := writeGroups(&b, r.Patterns.Cliques); err != nil {
			return err
		}
		fmt.Fprintln(&b, "Communities:")
		if err := writeGroups(&b, r.Patterns.Communities); err != nil {
			return err
		}
		fmt.Fprintf(&b, "Modularity: %.4f\n", r.Patterns.Modularity)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Anomalies Detected:")
	if r.Anomalies == nil {
		fmt.Fprintln(&b, "  (not run)")
	} else {
		fmt.Fprintln(&b, r.Anomalies.Summary())
	}

	if len(r.Timeline) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Timeline Correlations:")
		for _, p := range r.Timeline {
			fmt.Fprintf(&b, "  %s: %s -> %s\n", p.Earlier.Actor, p.Earlier.Timestamp, p.Later.Timestamp)
		}
	}

	if r.Insights != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Insights:")
		fmt.Fprintln(&b, r.Insights)
	}

	_, err := w.Write(b.Bytes())
	return err
}

// writeGroups pretty-prints a list of ID lists
func writeGroups(b *bytes.Buffer, groups [][]string) error {
	if groups == nil {
		groups = [][]string{}
	}
	data, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return err
	}
	b.Write(data)
	b.WriteByte('\n')
	return nil
}
