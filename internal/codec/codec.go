package codec

import (
	"io"

	"osintgraph/internal/domain"
)

// Importer turns producer output into a fragment of observations
type Importer interface {
	Parse(r io.Reader) (*domain.Fragment, error)
	Format() string
}

// Exporter writes a graph document in an interchange format
type Exporter interface {
	Export(doc *domain.Document, w io.Writer) error
	Format() string
}

// Decoder reads a graph document in an interchange format. It is the exact
// inverse of the matching Exporter.
type Decoder interface {
	Decode(r io.Reader) (*domain.Document, error)
	Format() string
}
