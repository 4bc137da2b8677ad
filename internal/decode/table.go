package decode

import (
	"fmt"
	"strings"

	"gnodesk/internal/fieldfmt"
)

// setter assigns one field value onto the entity being built.
type setter[T any] func(out *T, v fieldfmt.Value) error

// fieldTable maps field names to setters. Optional fields that fail to parse
// are treated as absent; a required field that is absent or fails rejects
// the record.
type fieldTable[T any] struct {
	setters  map[string]setter[T]
	required []string
}

func (t fieldTable[T]) apply(rec fieldfmt.Record, out *T) error {
	seen := make(map[string]bool, len(t.setters))
	failures := make(map[string]error)

	for _, f := range rec.Fields() {
		set, ok := t.setters[f.Key]
		if !ok || seen[f.Key] {
			continue
		}
		if _, failed := failures[f.Key]; failed {
			continue
		}
		if err := set(out, f.Value); err != nil {
			failures[f.Key] = err
			continue
		}
		seen[f.Key] = true
	}

	for _, key := range t.required {
		if seen[key] {
			continue
		}
		if err, ok := failures[key]; ok {
			return fmt.Errorf("field %s: %w", key, err)
		}
		return fmt.Errorf("missing required field %s", key)
	}
	return nil
}

func scalar(v fieldfmt.Value) (string, error) {
	if v.IsComposite() {
		return "", fmt.Errorf("expected scalar, got composite")
	}
	return v.Raw, nil
}

func stringField[T any](assign func(*T, string)) setter[T] {
	return func(out *T, v fieldfmt.Value) error {
		raw, err := scalar(v)
		if err != nil {
			return err
		}
		assign(out, raw)
		return nil
	}
}

// requiredString rejects empty values so a present-but-blank identifier does
// not satisfy a required field.
func requiredString[T any](assign func(*T, string)) setter[T] {
	return func(out *T, v fieldfmt.Value) error {
		raw, err := scalar(v)
		if err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("empty value")
		}
		assign(out, raw)
		return nil
	}
}

func uintField[T any](assign func(*T, uint64)) setter[T] {
	return func(out *T, v fieldfmt.Value) error {
		raw, err := scalar(v)
		if err != nil {
			return err
		}
		val, ok := fieldfmt.ParseUint(raw)
		if !ok {
			return fmt.Errorf("invalid unsigned integer %q", raw)
		}
		assign(out, val)
		return nil
	}
}

func nestedField[T any](assign func(*T, fieldfmt.Record) error) setter[T] {
	return func(out *T, v fieldfmt.Value) error {
		if !v.IsComposite() {
			return fmt.Errorf("expected composite, got %q", v.Raw)
		}
		return assign(out, *v.Fields)
	}
}
