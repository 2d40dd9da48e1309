package outbox

import (
	"fmt"
	"reflect"
	"sort"
)

// Entry maps a payload type to its message type. Build entries with Register.
type Entry struct {
	typ         reflect.Type
	messageType string
}

// Register returns the entry mapping payloads of type T to messageType.
// T and *T resolve to the same message type.
func Register[T any](messageType string) Entry {
	return Entry{
		typ:         baseType(reflect.TypeFor[T]()),
		messageType: messageType,
	}
}

// Registry resolves payload types to message types. It is immutable once built
// and safe for concurrent use.
type Registry struct {
	byType map[reflect.Type]string
}

// NewRegistry builds a registry from entries. Empty message types and
// duplicate payload or message types are rejected.
func NewRegistry(entries ...Entry) (*Registry, error) {
	byType := make(map[reflect.Type]string, len(entries))
	seen := make(map[string]reflect.Type, len(entries))

	for _, e := range entries {
		if e.typ == nil {
			return nil, fmt.Errorf("outbox: registry: entry without payload type")
		}
		if e.messageType == "" {
			return nil, fmt.Errorf("outbox: registry: empty message type for %s", e.typ)
		}
		if existing, ok := byType[e.typ]; ok {
			return nil, fmt.Errorf("outbox: registry: %s already registered as %q", e.typ, existing)
		}
		if other, ok := seen[e.messageType]; ok {
			return nil, fmt.Errorf("outbox: registry: message type %q already used by %s", e.messageType, other)
		}
		byType[e.typ] = e.messageType
		seen[e.messageType] = e.typ
	}

	return &Registry{byType: byType}, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the message type for payload.
func (r *Registry) Resolve(payload any) (string, error) {
	if isNil(payload) {
		return "", preconditionFailed(ErrNilPayload, "outbox: payload is nil")
	}
	return r.ResolveType(reflect.TypeOf(payload))
}

// ResolveType returns the message type registered for t.
func (r *Registry) ResolveType(t reflect.Type) (string, error) {
	if t == nil {
		return "", preconditionFailed(ErrNilPayload, "outbox: payload type is nil")
	}
	messageType, ok := r.byType[baseType(t)]
	if !ok {
		return "", preconditionFailed(ErrNotRegistered, "outbox: payload type %s is not registered", t)
	}
	return messageType, nil
}

// MessageTypes returns the registered message types in sorted order.
func (r *Registry) MessageTypes() []string {
	types := make([]string, 0, len(r.byType))
	for _, mt := range r.byType {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
