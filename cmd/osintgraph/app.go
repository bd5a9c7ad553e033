package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"osintgraph/internal/anomaly"
	"osintgraph/internal/codec"
	"osintgraph/internal/config"
	"osintgraph/internal/domain"
	"osintgraph/internal/extract"
	"osintgraph/internal/llm"
	"osintgraph/internal/logging"
	"osintgraph/internal/pattern"
	"osintgraph/internal/repository/sqlite"
	"osintgraph/internal/service"
	"osintgraph/internal/timeline"
)

// app holds the configuration and components shared by the commands
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	codecs  *codec.Registry
	session *service.Session
}

func loadConfig() (*config.Config, string, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func newApp() (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Debug("loaded config", zap.String("path", path))
	}

	codecs := codec.NewRegistry()

	forest := &anomaly.IsolationForest{
		Trees:      cfg.Anomaly.Trees,
		SampleSize: cfg.Anomaly.SampleSize,
		Seed:       cfg.Anomaly.Seed,
	}

	var nlp extract.NLP
	var summarizer extract.Summarizer
	if key := cfg.LLM.ResolveAPIKey(); key != "" {
		client, err := llm.New(llm.Config{
			APIKey:  key,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout.Duration(),
		}, logger)
		if err != nil {
			return nil, err
		}
		nlp, summarizer = client, client
	} else {
		logger.Debug("no LLM API key configured; extraction and insights disabled")
	}

	session := service.NewSession(service.Config{
		Finder:     pattern.NewFinder(pattern.WithMaxCliqueNodes(cfg.Patterns.MaxCliqueNodes), pattern.WithLogger(logger)),
		Detector:   anomaly.NewDetector(forest, cfg.Anomaly.OutlierFraction, logger),
		Correlator: timeline.Correlator{MaxGap: cfg.Timeline.MaxGap.Duration()},
		Extractor:  extract.New(nlp, summarizer, logger),
		Codecs:     codecs,
		Logger:     logger,
	})

	return &app{cfg: cfg, logger: logger, codecs: codecs, session: session}, nil
}

func (a *app) close() {
	a.logger.Sync()
}

func (a *app) openArchive() (*sqlite.Repository, error) {
	repo, err := sqlite.New(a.cfg.Archive.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", a.cfg.Archive.Path, err)
	}
	return repo, nil
}

// openInput opens path, or stdin for "-"
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func readEvents(path string) ([]domain.Event, error) {
	r, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var events []domain.Event
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, fmt.Errorf("parse events %s: %w", path, err)
	}
	return events, nil
}

func readText(path string) (string, error) {
	r, err := openInput(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
