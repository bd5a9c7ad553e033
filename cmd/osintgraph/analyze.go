package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"osintgraph/internal/codec"
	"osintgraph/internal/domain"
	"osintgraph/internal/producer"
	"osintgraph/internal/report"
)

var (
	analyzeReportPath string
	analyzeExportPath string
	analyzeExportFmt  string
	analyzeInputFmt   string
	analyzeBasePath   string
	analyzeEventsPath string
	analyzeNotesPath  string
	analyzeArchive    bool
	analyzeLabel      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Ingest producer files, correlate and write the report and export",
	Long: `Ingest producer output (node-link JSON/YAML, nmap XML, known_hosts),
find cliques and communities, flag outliers and write the correlation report
and the node-link export.

Each file is one producer; a file that fails to parse is reported and the
others are still applied.`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeReportPath, "report", "", "report path (default from config)")
	f.StringVar(&analyzeExportPath, "export", "", "export path (default from config)")
	f.StringVar(&analyzeExportFmt, "export-format", "", "export format: json or yaml (default from config)")
	f.StringVar(&analyzeInputFmt, "format", "", "input format for every file (default: detect from name)")
	f.StringVar(&analyzeBasePath, "base", "", "start from a previous export document")
	f.StringVar(&analyzeEventsPath, "events", "", "events JSON file to correlate into the report")
	f.StringVar(&analyzeNotesPath, "notes", "", "free-text notes to summarize into the report insights")
	f.BoolVar(&analyzeArchive, "archive", false, "store the export in the session archive")
	f.StringVar(&analyzeLabel, "label", "", "archive label")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reportPath := firstNonEmpty(analyzeReportPath, a.cfg.Report.Path)
	exportPath := firstNonEmpty(analyzeExportPath, a.cfg.Report.ExportPath)
	exportFmt := firstNonEmpty(analyzeExportFmt, a.cfg.Report.ExportFormat)

	if analyzeBasePath != "" {
		dec, err := a.codecs.Decoder(formatOf(analyzeBasePath, "json"))
		if err != nil {
			return err
		}
		doc, err := report.ImportFile(analyzeBasePath, dec)
		if err != nil {
			return err
		}
		if _, err := a.session.Replace(doc); err != nil {
			return fmt.Errorf("load base %s: %w", analyzeBasePath, err)
		}
	}

	if err := a.collect(ctx, args); err != nil {
		return err
	}

	var events []domain.Event
	if analyzeEventsPath != "" {
		if events, err = readEvents(analyzeEventsPath); err != nil {
			return err
		}
	}

	var insights string
	if analyzeNotesPath != "" {
		notes, err := readText(analyzeNotesPath)
		if err != nil {
			return err
		}
		// A failing summarizer degrades the insights section, not the report
		summary, _, err := a.session.Insights(ctx, notes)
		if err != nil {
			a.logger.Warn("insights unavailable", zap.Error(err))
			summary = fmt.Sprintf("Insights unavailable: %v", err)
		}
		insights = summary
	}

	rep, err := a.session.Report(ctx, events, insights)
	if err != nil {
		return err
	}
	if err := ensureParentDir(reportPath); err != nil {
		return err
	}
	if err := report.WriteFile(reportPath, rep); err != nil {
		return err
	}

	exporter, err := a.codecs.Exporter(exportFmt)
	if err != nil {
		return err
	}
	doc := a.session.Graph()
	if err := ensureParentDir(exportPath); err != nil {
		return err
	}
	if err := report.ExportFile(exportPath, doc, exporter); err != nil {
		return err
	}

	fmt.Printf("Entities: %d, relations: %d\n", rep.Entities, rep.Relations)
	fmt.Printf("Cliques: %d, communities: %d (modularity %.4f)\n",
		len(rep.Patterns.Cliques), len(rep.Patterns.Communities), rep.Patterns.Modularity)
	fmt.Printf("Anomalies: %s\n", rep.Anomalies.Summary())
	if len(rep.Timeline) > 0 {
		fmt.Printf("Timeline correlations: %d\n", len(rep.Timeline))
	}
	fmt.Printf("Report written to %s\n", reportPath)
	fmt.Printf("Graph exported to %s\n", exportPath)

	if analyzeArchive || a.cfg.Archive.Enabled {
		repo, err := a.openArchive()
		if err != nil {
			return err
		}
		defer repo.Close()

		info, err := repo.Save(ctx, analyzeLabel, doc)
		if err != nil {
			return err
		}
		fmt.Printf("Archived as session %s\n", info.ID)
	}

	return nil
}

// ensureParentDir creates the directory path is written into. The report
// writers themselves never create directories.
func ensureParentDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &report.WriteError{Path: path, Err: err}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// formatOf detects the format of path, falling back when the name says
// nothing
func formatOf(path, fallback string) string {
	if f, err := codec.DetectFormat(path); err == nil {
		return f
	}
	return fallback
}

// collect runs one file producer per path and applies what they produce
func (a *app) collect(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	registry := producer.NewRegistry(a.session.ApplyFunc, a.logger)
	for _, path := range paths {
		var p *producer.FileProducer
		var err error
		if analyzeInputFmt != "" {
			p, err = producer.NewFileProducerWithFormat(path, analyzeInputFmt, a.codecs)
		} else {
			p, err = producer.NewFileProducer(path, a.codecs)
		}
		if err != nil {
			return err
		}
		if err := registry.Register(p); err != nil {
			return err
		}
	}

	outcomes, err := registry.CollectAll(ctx)
	applied := 0
	for _, o := range outcomes {
		if o.Error != "" {
			fmt.Fprintf(os.Stderr, "  %-30s failed: %s\n", o.Producer, o.Error)
			continue
		}
		applied++
		fmt.Printf("  %-30s %d entities, %d relations\n", o.Producer, o.Entities, o.Relations)
	}
	if err != nil {
		a.logger.Warn("some producers failed", zap.Error(err))
		if applied == 0 {
			return fmt.Errorf("no producer succeeded: %w", err)
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return nil
}
