// Package fieldfmt parses the flat key:value text format returned by the
// exchange realm's read-only query functions.
//
// A record is a comma-separated list of key:value pairs. A value may be a
// composite wrapped in a single level of braces, which is parsed as a nested
// record. Lists of records are joined with a separator (usually ";") and a
// record may carry an identifying key in front of a ">" separator:
//
//	p1>TokenA:{Path:a.tok,Decimals:6},ReserveA:100
package fieldfmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const maxDepth = 1

var (
	ErrUnbalanced = errors.New("unbalanced braces")
	ErrTooDeep    = errors.New("composite nested deeper than one level")
)

// Value is either a raw scalar or a nested composite record.
type Value struct {
	Raw    string
	Fields *Record
}

// IsComposite reports whether the value was wrapped in braces.
func (v Value) IsComposite() bool {
	return v.Fields != nil
}

// Field is a single key:value pair.
type Field struct {
	Key   string
	Value Value
}

// Record is an ordered set of fields. Lookups return the first occurrence.
type Record struct {
	fields []Field
}

// Fields returns the pairs in source order.
func (r Record) Fields() []Field {
	return r.fields
}

func (r Record) Len() int {
	return len(r.fields)
}

// Lookup returns the first value stored under key.
func (r Record) Lookup(key string) (Value, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// String returns a scalar value. Composite values are reported as absent.
func (r Record) String(key string) (string, bool) {
	v, ok := r.Lookup(key)
	if !ok || v.IsComposite() {
		return "", false
	}
	return v.Raw, true
}

// Uint returns a scalar parsed as a base-10 unsigned integer. Signs,
// non-digit characters and overflow all report the field as absent.
func (r Record) Uint(key string) (uint64, bool) {
	raw, ok := r.String(key)
	if !ok {
		return 0, false
	}
	return ParseUint(raw)
}

// Nested returns a composite value.
func (r Record) Nested(key string) (Record, bool) {
	v, ok := r.Lookup(key)
	if !ok || !v.IsComposite() {
		return Record{}, false
	}
	return *v.Fields, true
}

// Map exposes the record as nested maps. Composite values become
// map[string]any, scalars stay strings. Later duplicates are dropped.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		if _, ok := out[f.Key]; ok {
			continue
		}
		if f.Value.IsComposite() {
			out[f.Key] = f.Value.Fields.Map()
			continue
		}
		out[f.Key] = f.Value.Raw
	}
	return out
}

// ParseUint parses a non-empty run of ASCII digits.
func ParseUint(raw string) (uint64, bool) {
	if raw == "" {
		return 0, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
	}
	val, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// Parse tokenizes one record.
func Parse(text string) (Record, error) {
	return parse(text, 0)
}

func parse(text string, depth int) (Record, error) {
	parts, err := splitTop(text, ',')
	if err != nil {
		return Record{}, err
	}

	rec := Record{fields: make([]Field, 0, len(parts))}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.IndexByte(part, ':')
		if idx < 0 {
			return Record{}, fmt.Errorf("pair %q has no key separator", part)
		}
		key := strings.TrimSpace(part[:idx])
		raw := strings.TrimSpace(part[idx+1:])
		if key == "" {
			return Record{}, fmt.Errorf("pair %q has an empty key", part)
		}
		if strings.ContainsAny(key, "{}") {
			return Record{}, fmt.Errorf("key %q: %w", key, ErrUnbalanced)
		}

		if strings.HasPrefix(raw, "{") {
			if !strings.HasSuffix(raw, "}") {
				return Record{}, fmt.Errorf("field %s: %w", key, ErrUnbalanced)
			}
			if depth >= maxDepth {
				return Record{}, fmt.Errorf("field %s: %w", key, ErrTooDeep)
			}
			nested, err := parse(raw[1:len(raw)-1], depth+1)
			if err != nil {
				return Record{}, fmt.Errorf("field %s: %w", key, err)
			}
			rec.fields = append(rec.fields, Field{Key: key, Value: Value{Fields: &nested}})
			continue
		}
		if strings.ContainsAny(raw, "{}") {
			return Record{}, fmt.Errorf("field %s: %w", key, ErrUnbalanced)
		}

		rec.fields = append(rec.fields, Field{Key: key, Value: Value{Raw: raw}})
	}

	return rec, nil
}

// splitTop splits on sep wherever the brace depth is zero.
func splitTop(text string, sep byte) ([]string, error) {
	parts := make([]string, 0, 8)
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, ErrUnbalanced
			}
		case sep:
			if depth == 0 {
				parts = append(parts, text[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, ErrUnbalanced
	}
	parts = append(parts, text[start:])
	return parts, nil
}
