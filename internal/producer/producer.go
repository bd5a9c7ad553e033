package producer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"osintgraph/internal/codec"
	"osintgraph/internal/domain"
)

// Producer supplies observations to the graph. Lookup clients (DNS, WHOIS,
// breach data, social profiles) and file importers all sit behind it.
type Producer interface {
	// Name returns the unique identifier for this producer
	Name() string

	// Collect gathers observations. It is called once per collection run
	// and may run concurrently with other producers.
	Collect(ctx context.Context) (*domain.Fragment, error)
}

// FileProducer reads one producer output file through a codec
type FileProducer struct {
	path     string
	importer codec.Importer
}

// NewFileProducer creates a producer for path, detecting the format from
// the file name
func NewFileProducer(path string, codecs *codec.Registry) (*FileProducer, error) {
	format, err := codec.DetectFormat(path)
	if err != nil {
		return nil, err
	}
	return NewFileProducerWithFormat(path, format, codecs)
}

// NewFileProducerWithFormat creates a producer for path using an explicit
// format
func NewFileProducerWithFormat(path, format string, codecs *codec.Registry) (*FileProducer, error) {
	importer, err := codecs.Importer(format)
	if err != nil {
		return nil, err
	}
	return &FileProducer{path: path, importer: importer}, nil
}

// Name returns the file name and format
func (p *FileProducer) Name() string {
	return fmt.Sprintf("%s:%s", p.importer.Format(), filepath.Base(p.path))
}

// Path returns the file path
func (p *FileProducer) Path() string {
	return p.path
}

// Collect parses the file
func (p *FileProducer) Collect(ctx context.Context) (*domain.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p.path, err)
	}
	defer f.Close()

	fragment, err := p.importer.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.path, err)
	}
	fragment.Source = p.Name()
	return fragment, nil
}

// StaticProducer hands out a fixed fragment. The HTTP API uses it for
// posted fragments so they go through the same path as file intake.
type StaticProducer struct {
	name     string
	fragment *domain.Fragment
}

// NewStaticProducer creates a producer returning fragment
func NewStaticProducer(name string, fragment *domain.Fragment) *StaticProducer {
	return &StaticProducer{name: name, fragment: fragment}
}

// Name returns the producer name
func (p *StaticProducer) Name() string { return p.name }

// Collect returns the fragment
func (p *StaticProducer) Collect(context.Context) (*domain.Fragment, error) {
	if p.fragment.Source == "" {
		p.fragment.Source = p.name
	}
	return p.fragment, nil
}
