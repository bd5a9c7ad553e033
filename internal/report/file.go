package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"osintgraph/internal/codec"
	"osintgraph/internal/domain"
)

// WriteError reports a failed report or export write. No partial file is
// left at Path.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteFile renders r to path. The file is written to a temporary sibling
// and renamed into place, so readers never see a partial report.
func WriteFile(path string, r *Report) error {
	return writeAtomic(path, func(w io.Writer) error {
		return Render(w, r)
	})
}

// ExportFile writes doc to path with exp, all or nothing
func ExportFile(path string, doc *domain.Document, exp codec.Exporter) error {
	return writeAtomic(path, func(w io.Writer) error {
		return exp.Export(doc, w)
	})
}

// ImportFile reads a document previously written by ExportFile
func ImportFile(path string, dec codec.Decoder) (*domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}
	return doc, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}

	if err := write(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
