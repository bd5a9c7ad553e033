package anomaly

import (
	"encoding/json"
	"math"

	"github.com/cespare/xxhash/v2"

	"osintgraph/internal/domain"
	"osintgraph/internal/store"
)

const (
	// hashBuckets is the range that hashed string and structured values are
	// reduced into
	hashBuckets = 1000
	// missing encodes an attribute the entity does not carry
	missing = -1.0
)

// Features is the numeric encoding of a snapshot: one row per entity in
// snapshot order, one column per attribute name.
type Features struct {
	Columns []string    `json:"columns"`
	IDs     []string    `json:"ids"`
	Rows    [][]float64 `json:"rows"`
}

// Encode builds the feature matrix. Columns are the sorted union of
// attribute names. Numbers encode as themselves, booleans as 1 or 0, null
// as 0, strings as xxhash64 mod 1000 and maps or lists as xxhash64 of their
// canonical JSON mod 1000. An absent attribute encodes as -1. The same
// graph always produces the same matrix.
func Encode(snap *store.Snapshot) *Features {
	names := make(map[string]struct{})
	for _, e := range snap.Entities() {
		for k := range e.Attributes {
			names[k] = struct{}{}
		}
	}
	cols := make(domain.Attributes, len(names))
	for k := range names {
		cols[k] = domain.Null()
	}
	columns := cols.Keys()

	f := &Features{
		Columns: columns,
		IDs:     snap.IDs(),
		Rows:    make([][]float64, snap.Len()),
	}
	for i, e := range snap.Entities() {
		row := make([]float64, len(columns))
		for j, col := range columns {
			v, ok := e.Attributes[col]
			if !ok {
				row[j] = missing
				continue
			}
			row[j] = EncodeValue(v)
		}
		f.Rows[i] = row
	}
	return f
}

// EncodeValue maps one attribute value to its feature
func EncodeValue(v domain.Value) float64 {
	switch v.Kind() {
	case domain.KindNumber:
		n, _ := v.Num()
		switch {
		case math.IsNaN(n):
			return missing
		case math.IsInf(n, 1):
			return math.MaxFloat64
		case math.IsInf(n, -1):
			return -math.MaxFloat64
		}
		return n
	case domain.KindBool:
		if b, _ := v.Boolean(); b {
			return 1
		}
		return 0
	case domain.KindString:
		s, _ := v.Str()
		return float64(xxhash.Sum64String(s) % hashBuckets)
	case domain.KindMap, domain.KindList:
		data, err := json.Marshal(v)
		if err != nil {
			return missing
		}
		return float64(xxhash.Sum64(data) % hashBuckets)
	default:
		return 0
	}
}
