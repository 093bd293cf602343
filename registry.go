package pectin

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"reflect"
	"sync"
	"time"
)

// Registry stores type descriptors under two indices: by Go type and by
// registered name. The process-wide registry is populated before first use
// (normally from init functions) and is effectively write-once-read-many;
// registering concurrently with active (de)serialization is unsupported.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*TypeDescriptor
	byName map[string]*TypeDescriptor
}

// NewRegistry creates an empty registry. Most callers use the process-wide
// registry through Register and Prop; a private registry (threaded in with
// WithRegistry) isolates tests or embedded deployments.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*TypeDescriptor),
		byName: make(map[string]*TypeDescriptor),
	}
}

// Register stores or updates the descriptor for t. A non-empty name also
// indexes the descriptor for polymorphic resolution by name. Pointer types
// are normalized to their element type.
func (r *Registry) Register(t reflect.Type, name string, opts ...TypeOption) *TypeDescriptor {
	t = derefType(t)
	r.mu.Lock()
	d := r.byType[t]
	if d == nil {
		d = &TypeDescriptor{Type: t}
		r.byType[t] = d
	}
	d.Name = name
	for _, opt := range opts {
		opt(d)
	}
	if name != "" {
		r.byName[name] = d
	}
	r.mu.Unlock()

	emitTypeRegistered(name, t.String())
	return d
}

// Declare appends or overwrites a property descriptor for t; idempotent per
// key. Declaring on an unregistered type creates an anonymous descriptor. The
// bound Go field must exist on t.
func (r *Registry) Declare(t reflect.Type, key string, p PropertyDescriptor) {
	t = derefType(t)
	field := p.field
	if field == "" {
		field = exportName(key)
	}
	if _, ok := t.FieldByName(field); !ok {
		panic(fmt.Sprintf("pectin: type %s has no field %q for property %q", t, field, key))
	}
	p.field = field

	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.byType[t]
	if d == nil {
		d = &TypeDescriptor{Type: t}
		r.byType[t] = d
	}
	d.declare(key, p)
}

// LookupType returns the descriptor registered for t, if any. Absence is a
// normal outcome, not an error.
func (r *Registry) LookupType(t reflect.Type) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byType[derefType(t)]
	return d, ok
}

// LookupName returns the descriptor registered under name, if any.
func (r *Registry) LookupName(name string) (*TypeDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// effective returns the ordered effective property set for t: the union of
// its own declarations and all ancestors', ancestor properties first (oldest
// ancestor leading), with re-declared keys overriding in place. The chain is
// walked even through ancestors with no declared properties.
func (r *Registry) effective(t reflect.Type) []boundProperty {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []boundProperty
	index := make(map[string]int)
	seen := make(map[reflect.Type]bool)

	var collect func(t reflect.Type)
	collect = func(t reflect.Type) {
		if seen[t] {
			return
		}
		seen[t] = true
		d := r.byType[t]
		if d == nil {
			return
		}
		for _, anc := range d.ancestors {
			collect(anc)
		}
		for _, key := range d.keys {
			p := d.props[key]
			if i, ok := index[key]; ok {
				out[i].Desc = p
				out[i].Field = p.field
				continue
			}
			index[key] = len(out)
			out = append(out, boundProperty{Key: key, Desc: p, Field: p.field})
		}
	}
	collect(derefType(t))
	return out
}

// global is the process-wide registry, consulted by default for both
// type-to-descriptor and name-to-descriptor resolution.
var global = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return global
}

// Register records T in the process-wide registry under name. Call once per
// type, before any serialize or deserialize call; an init function is a good
// place. Pass an empty name for anonymous types serialized only in contexts
// that pin their type.
func Register[T any](name string, opts ...TypeOption) {
	global.Register(reflect.TypeFor[T](), name, opts...)
}

// Prop declares a property of T in the process-wide registry. Declaration
// order is serialization order. The property key is the wire key; the Go
// field defaults to the exported form of the key.
func Prop[T any](key string, p PropertyDescriptor) {
	global.Declare(reflect.TypeFor[T](), key, p)
}

// Built-in converters for binary buffers, big integers, and timestamps.
// These serialize to text and need a declared type (or these exact runtime
// types) to deserialize; inside untyped regions they are one-way.
func init() {
	global.Register(reflect.TypeFor[[]byte](), "",
		WithTypeSerializer(func(v any) (any, error) {
			b, ok := v.([]byte)
			if !ok {
				return nil, fmt.Errorf("expected []byte, got %T", v)
			}
			return base64.StdEncoding.EncodeToString(b), nil
		}),
		WithTypeDeserializer(func(v any) (any, error) {
			switch s := v.(type) {
			case []byte:
				return s, nil
			case string:
				return base64.StdEncoding.DecodeString(s)
			}
			return nil, fmt.Errorf("expected base64 string, got %T", v)
		}),
	)

	global.Register(reflect.TypeFor[big.Int](), "",
		WithTypeSerializer(func(v any) (any, error) {
			switch b := v.(type) {
			case *big.Int:
				return b.String(), nil
			case big.Int:
				return b.String(), nil
			}
			return nil, fmt.Errorf("expected big.Int, got %T", v)
		}),
		WithTypeDeserializer(func(v any) (any, error) {
			switch s := v.(type) {
			case *big.Int:
				return s, nil
			case string:
				b, ok := new(big.Int).SetString(s, 10)
				if !ok {
					return nil, fmt.Errorf("bad big integer literal %q", s)
				}
				return b, nil
			case float64:
				// Small integers that travelled as JSON numbers.
				if s != float64(int64(s)) {
					return nil, fmt.Errorf("non-integer value %v for big integer", s)
				}
				return big.NewInt(int64(s)), nil
			}
			return nil, fmt.Errorf("expected decimal string, got %T", v)
		}),
	)

	global.Register(reflect.TypeFor[time.Time](), "",
		WithTypeSerializer(func(v any) (any, error) {
			switch t := v.(type) {
			case time.Time:
				return t.Format(time.RFC3339Nano), nil
			case *time.Time:
				return t.Format(time.RFC3339Nano), nil
			}
			return nil, fmt.Errorf("expected time.Time, got %T", v)
		}),
		WithTypeDeserializer(func(v any) (any, error) {
			switch s := v.(type) {
			case time.Time:
				return s, nil
			case string:
				return time.Parse(time.RFC3339Nano, s)
			}
			return nil, fmt.Errorf("expected RFC 3339 string, got %T", v)
		}),
	)
}
