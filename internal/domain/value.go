package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a producer-supplied attribute value: string, number, boolean,
// nested map or sequence. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	m    map[string]Value
	l    []Value
}

// Null returns the null value
func Null() Value { return Value{} }

// String wraps a string
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a float64
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int wraps an integer as a number
func Int(i int) Value { return Value{kind: KindNumber, num: float64(i)} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map wraps a nested mapping. The map is copied.
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v.Clone()
	}
	return Value{kind: KindMap, m: cp}
}

// List wraps a sequence. The slice is copied.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	for i, v := range items {
		cp[i] = v.Clone()
	}
	return Value{kind: KindList, l: cp}
}

// Kind returns the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string variant
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the number variant
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the bool variant
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Fields returns the map variant. The returned map must not be mutated.
func (v Value) Fields() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Items returns the list variant. The returned slice must not be mutated.
func (v Value) Items() ([]Value, bool) { return v.l, v.kind == KindList }

// Clone returns a deep copy of v
func (v Value) Clone() Value {
	switch v.kind {
	case KindMap:
		return Map(v.m)
	case KindList:
		return List(v.l...)
	default:
		return v
	}
}

// Equal reports deep equality
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case KindBool:
		return v.b == o.b
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Any converts v to plain Go values (string, float64, bool, nil,
// map[string]any, []any)
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Any()
		}
		return out
	case KindList:
		out := make([]any, len(v.l))
		for i, item := range v.l {
			out[i] = item.Any()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts decoded JSON/YAML data or plain Go values into a Value
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case string:
		if !utf8.ValidString(t) {
			return Value{}, errInvalidUTF8
		}
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			if !utf8.ValidString(k) {
				return Value{}, fmt.Errorf("field %q: %w", k, errInvalidUTF8)
			}
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			m[k] = v
		}
		return Value{kind: KindMap, m: m}, nil
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("field %v: %w", k, err)
			}
			key := fmt.Sprint(k)
			if !utf8.ValidString(key) {
				return Value{}, fmt.Errorf("field %q: %w", key, errInvalidUTF8)
			}
			m[key] = v
		}
		return Value{kind: KindMap, m: m}, nil
	case []any:
		l := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			l[i] = v
		}
		return Value{kind: KindList, l: l}, nil
	case []string:
		l := make([]Value, len(t))
		for i, s := range t {
			if !utf8.ValidString(s) {
				return Value{}, fmt.Errorf("index %d: %w", i, errInvalidUTF8)
			}
			l[i] = String(s)
		}
		return Value{kind: KindList, l: l}, nil
	case []int:
		l := make([]Value, len(t))
		for i, n := range t {
			l[i] = Int(n)
		}
		return Value{kind: KindList, l: l}, nil
	default:
		return Value{}, fmt.Errorf("unsupported attribute value type %T", x)
	}
}

var errInvalidUTF8 = errors.New("string is not valid UTF-8")

// Validate reports strings and map keys that are not valid UTF-8. The
// interchange formats cannot carry them unchanged.
func (v Value) Validate() error {
	switch v.kind {
	case KindString:
		if !utf8.ValidString(v.str) {
			return errInvalidUTF8
		}
	case KindMap:
		for k, item := range v.m {
			if !utf8.ValidString(k) {
				return fmt.Errorf("field %q: %w", k, errInvalidUTF8)
			}
			if err := item.Validate(); err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
		}
	case KindList:
		for i, item := range v.l {
			if err := item.Validate(); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
	}
	return nil
}

// MustValue is FromAny for literals known to be supported
func MustValue(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// MarshalJSON encodes v as its natural JSON form. Map keys are emitted in
// sorted order, which makes the encoding canonical.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := v.m[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.l {
			if i > 0 {
				buf.WriteByte(',')
			}
			ib, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(ib)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("cannot encode non-finite number %v", v.num)
		}
		return json.Marshal(v.num)
	default:
		return json.Marshal(v.Any())
	}
}

// UnmarshalJSON decodes any JSON value
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Any(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Attributes is the open-ended attribute mapping of an entity
type Attributes map[string]Value

// AttributesFrom converts a plain map into Attributes
func AttributesFrom(m map[string]any) (Attributes, error) {
	attrs := make(Attributes, len(m))
	for k, x := range m {
		v, err := FromAny(x)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		attrs[k] = v
	}
	return attrs, nil
}

// Validate rejects attribute names and values that cannot be exported
// unchanged
func (a Attributes) Validate() error {
	for _, k := range a.Keys() {
		if !utf8.ValidString(k) {
			return fmt.Errorf("%w: attribute %q: %v", ErrInvalidEntity, k, errInvalidUTF8)
		}
		if err := a[k].Validate(); err != nil {
			return fmt.Errorf("%w: attribute %q: %v", ErrInvalidEntity, k, err)
		}
	}
	return nil
}

// Clone returns a deep copy
func (a Attributes) Clone() Attributes {
	cp := make(Attributes, len(a))
	for k, v := range a {
		cp[k] = v.Clone()
	}
	return cp
}

// Keys returns the attribute names in sorted order
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both mappings hold the same keys and values
func (a Attributes) Equal(o Attributes) bool {
	if len(a) != len(o) {
		return false
	}
	for k, v := range a {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
