// Package types holds value types shared by request and message payloads.
package types

import (
	"encoding/json"

	"github.com/swaggest/jsonschema-go"
	"gopkg.in/yaml.v3"
)

// Optional distinguishes an absent field from an explicit null. Use it with
// the omitzero tag option so unset values are left out when encoding.
type Optional[T any] struct {
	set   bool
	null  bool
	value T
}

func New[T any](value T) Optional[T] {
	return Optional[T]{
		value: value,
		set:   true,
	}
}

func Null[T any]() Optional[T] {
	return Optional[T]{
		set:  true,
		null: true,
	}
}

func (n *Optional[T]) Set(value T) {
	n.value = value
	n.set = true
	n.null = false
}

func (n *Optional[T]) SetNull() {
	var zero T
	n.value = zero
	n.set = true
	n.null = true
}

func (n Optional[T]) IsSet() bool { return n.set }

func (n Optional[T]) IsNull() bool { return n.set && n.null }

// IsZero reports whether the field was absent.
func (n Optional[T]) IsZero() bool {
	return !n.set
}

func (n Optional[T]) Value() (T, bool) {
	return n.value, n.set && !n.null
}

func (n Optional[T]) ValueOrDefault(defaultValue T) T {
	if v, ok := n.Value(); ok {
		return v
	}
	return defaultValue
}

// MarshalJSON writes null for both null and unset values.
func (n Optional[T]) MarshalJSON() ([]byte, error) {
	v, ok := n.Value()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON is only called for present fields, so an absent field stays unset.
func (n *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.SetNull()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Set(v)
	return nil
}

// UnmarshalYAML sets the value. yaml.v3 does not call it for null nodes,
// which therefore decode as unset.
func (n *Optional[T]) UnmarshalYAML(node *yaml.Node) error {
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	n.Set(v)
	return nil
}

// JSONSchema documents the field as nullable T.
func (n Optional[T]) JSONSchema() (jsonschema.Schema, error) {
	var (
		schema jsonschema.Schema
		zero   T
	)

	switch typ := any(zero).(type) {
	case string:
		schema.WithType(jsonschema.String.Type())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		schema.WithType(jsonschema.Integer.Type())
	case float32, float64:
		schema.WithType(jsonschema.Number.Type())
	case bool:
		schema.WithType(jsonschema.Boolean.Type())
	default:
		if obj, ok := typ.(jsonschema.Exposer); ok {
			s, err := obj.JSONSchema()
			if err != nil {
				return s, err
			}
			schema = s
		} else {
			schema.WithType(jsonschema.Object.Type())
		}
	}

	schema.AddType(jsonschema.Null)
	return schema, nil
}
