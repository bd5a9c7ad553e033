package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupportedFormat is returned for unknown format names and paths
var ErrUnsupportedFormat = errors.New("unsupported format")

// Registry looks codecs up by format name
type Registry struct {
	mu        sync.RWMutex
	importers map[string]Importer
	exporters map[string]Exporter
	decoders  map[string]Decoder
}

// NewRegistry creates a registry holding every built-in codec
func NewRegistry() *Registry {
	r := &Registry{
		importers: make(map[string]Importer),
		exporters: make(map[string]Exporter),
		decoders:  make(map[string]Decoder),
	}
	jsonCodec := NewJSONCodec()
	yamlCodec := NewYAMLCodec()

	r.RegisterImporter(jsonCodec)
	r.RegisterImporter(yamlCodec)
	r.RegisterImporter(NewNmapCodec())
	r.RegisterImporter(NewKnownHostsCodec())
	r.RegisterExporter(jsonCodec)
	r.RegisterExporter(yamlCodec)
	r.RegisterDecoder(jsonCodec)
	r.RegisterDecoder(yamlCodec)
	return r
}

// RegisterImporter adds or replaces an importer
func (r *Registry) RegisterImporter(i Importer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.importers[i.Format()] = i
}

// RegisterExporter adds or replaces an exporter
func (r *Registry) RegisterExporter(e Exporter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exporters[e.Format()] = e
}

// RegisterDecoder adds or replaces a document decoder
func (r *Registry) RegisterDecoder(d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[d.Format()] = d
}

// Importer returns the importer for format
func (r *Registry) Importer(format string) (Importer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.importers[format]; ok {
		return i, nil
	}
	return nil, fmt.Errorf("%w: import %q (have %s)", ErrUnsupportedFormat, format, strings.Join(keys(r.importers), ", "))
}

// Exporter returns the exporter for format
func (r *Registry) Exporter(format string) (Exporter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.exporters[format]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: export %q (have %s)", ErrUnsupportedFormat, format, strings.Join(keys(r.exporters), ", "))
}

// Decoder returns the document decoder for format
func (r *Registry) Decoder(format string) (Decoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.decoders[format]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: document %q (have %s)", ErrUnsupportedFormat, format, strings.Join(keys(r.decoders), ", "))
}

// ImportFormats lists the importable formats
func (r *Registry) ImportFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.importers)
}

// DetectFormat infers a format name from a file path
func DetectFormat(path string) (string, error) {
	base := strings.ToLower(filepath.Base(path))
	if base == "known_hosts" || strings.HasSuffix(base, ".known_hosts") {
		return "known_hosts", nil
	}
	switch filepath.Ext(base) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	case ".xml":
		return "nmap", nil
	}
	return "", fmt.Errorf("%w: cannot detect format of %s", ErrUnsupportedFormat, path)
}

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
