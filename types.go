package pectin

import (
	"reflect"
)

// Kind identifies how a registered property is encoded.
// Use these constants when declaring properties with Prop.
type Kind string

const (
	// KindScalar encodes the property as a single value of its declared type.
	KindScalar Kind = "scalar"

	// KindArray encodes the property element-wise against its declared
	// element type.
	KindArray Kind = "array"

	// KindSet encodes the property as a sequence drawn from a Set in
	// iteration order. Deserialization inserts elements in array order, so a
	// round trip preserves the serialized iteration order.
	KindSet Kind = "set"

	// KindMap encodes the property as an ordered sequence of entries; the
	// output entry shape follows the configured MapEncoding, and both shapes
	// are always accepted on input.
	KindMap Kind = "map"

	// KindDynamic passes the property through structurally with no type
	// coercion. Only JSON-primitive-compatible shapes are guaranteed to
	// round-trip inside a dynamic property; binary, big-integer, and time
	// values serialize but cannot be restored without a declared type.
	KindDynamic Kind = "dynamic"
)

// MapEncoding selects the serialized shape of Map entries.
type MapEncoding string

const (
	// EncodePairs emits each entry as a two-element [key, value] array.
	EncodePairs MapEncoding = "pairs"

	// EncodeKeyValueObjects emits each entry as a {"key": ..., "value": ...}
	// object.
	EncodeKeyValueObjects MapEncoding = "objects"
)

// validMapEncodings contains all valid map encodings for config validation.
var validMapEncodings = map[MapEncoding]bool{
	EncodePairs:           true,
	EncodeKeyValueObjects: true,
}

// IsValidMapEncoding returns true if e is a known map encoding.
func IsValidMapEncoding(e MapEncoding) bool {
	return validMapEncodings[e]
}

// Hook transforms a whole value during serialization or deserialization.
// Hooks registered on a type bypass the structural per-property walk; hooks
// registered on a property transform that property's value before the engine
// continues.
type Hook func(v any) (any, error)

// TypeRef references a declared value or key type. A reference is either
// concrete or deferred; deferred references break declaration-order cycles
// between mutually referential types.
type TypeRef struct {
	typ reflect.Type
	fn  func() reflect.Type
}

// Type returns a concrete reference to T.
func Type[T any]() TypeRef {
	return TypeRef{typ: reflect.TypeFor[T]()}
}

// TypeOf returns a concrete reference to t.
func TypeOf(t reflect.Type) TypeRef {
	return TypeRef{typ: t}
}

// Deferred returns a reference resolved on first use, for types that are not
// yet registered (or not yet declared) at declaration time.
func Deferred(fn func() reflect.Type) TypeRef {
	return TypeRef{fn: fn}
}

// Untyped marks a map key or value as intentionally untyped. Untyped slots
// pass through structurally like dynamic properties.
func Untyped() TypeRef {
	return TypeRef{}
}

// Resolve returns the referenced type, or nil for an untyped reference.
func (r TypeRef) Resolve() reflect.Type {
	if r.typ != nil {
		return r.typ
	}
	if r.fn != nil {
		return r.fn()
	}
	return nil
}

func (r TypeRef) isZero() bool {
	return r.typ == nil && r.fn == nil
}

// PropertyDescriptor describes one registered property: its encoding kind,
// declared element/key types, value transform hooks, and the Go field it
// binds to.
type PropertyDescriptor struct {
	Kind         Kind
	Value        TypeRef
	Key          TypeRef
	Serializer   Hook
	Deserializer Hook

	field string // Go field name; derived from the key when empty
}

// Scalar declares a single-value property. An untyped reference is allowed;
// the value then passes through structurally, but serializing an instance of
// an unregistered type into such a property is an ambiguity error because the
// type cannot be recovered later.
func Scalar(value TypeRef) PropertyDescriptor {
	return PropertyDescriptor{Kind: KindScalar, Value: value}
}

// Array declares a sequence property with the given element type.
func Array(elem TypeRef) PropertyDescriptor {
	if elem.isZero() {
		panic("pectin: array property requires an element type")
	}
	return PropertyDescriptor{Kind: KindArray, Value: elem}
}

// SetOf declares a Set-valued property with the given element type.
func SetOf(elem TypeRef) PropertyDescriptor {
	if elem.isZero() {
		panic("pectin: set property requires an element type")
	}
	return PropertyDescriptor{Kind: KindSet, Value: elem}
}

// MapOf declares a Map-valued property. Pass Untyped() to leave either slot
// intentionally untyped.
func MapOf(key, value TypeRef) PropertyDescriptor {
	return PropertyDescriptor{Kind: KindMap, Key: key, Value: value}
}

// Dynamic declares a property whose contents pass through structurally.
func Dynamic() PropertyDescriptor {
	return PropertyDescriptor{Kind: KindDynamic}
}

// WithSerializer attaches a per-property serialize hook.
func (d PropertyDescriptor) WithSerializer(h Hook) PropertyDescriptor {
	d.Serializer = h
	return d
}

// WithDeserializer attaches a per-property deserialize hook.
func (d PropertyDescriptor) WithDeserializer(h Hook) PropertyDescriptor {
	d.Deserializer = h
	return d
}

// FromField binds the property to an explicit Go field name instead of the
// exported form of the property key.
func (d PropertyDescriptor) FromField(name string) PropertyDescriptor {
	d.field = name
	return d
}

// TypeDescriptor holds the registered metadata for one type: its serialized
// name, whole-value hooks, instance factory, ancestor list, and ordered
// property declarations.
type TypeDescriptor struct {
	Name         string
	Type         reflect.Type
	Serializer   Hook
	Deserializer Hook
	Factory      func() any

	ancestors []reflect.Type // oldest first
	keys      []string
	props     map[string]PropertyDescriptor
}

// declare appends or overwrites a property; re-declaring a key replaces the
// descriptor without changing its position.
func (d *TypeDescriptor) declare(key string, p PropertyDescriptor) {
	if d.props == nil {
		d.props = make(map[string]PropertyDescriptor)
	}
	if _, ok := d.props[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.props[key] = p
}

// instantiate builds a new addressable instance, preferring the registered
// factory. A factory returning an incompatible value falls back to zero
// allocation; invariants normally established by the factory then do not
// hold.
func (d *TypeDescriptor) instantiate() reflect.Value {
	if d.Factory != nil {
		if out := d.Factory(); out != nil {
			rv := reflect.ValueOf(out)
			if rv.Kind() == reflect.Ptr && rv.Type().Elem() == d.Type && !rv.IsNil() {
				return rv
			}
			if rv.Type() == d.Type {
				p := reflect.New(d.Type)
				p.Elem().Set(rv)
				return p
			}
		}
	}
	return reflect.New(d.Type)
}

// TypeOption configures a type registration.
type TypeOption func(*TypeDescriptor)

// WithTypeSerializer attaches a whole-value serialize hook; the hook's result
// is serialized recursively in place of the structural property walk.
func WithTypeSerializer(h Hook) TypeOption {
	return func(d *TypeDescriptor) { d.Serializer = h }
}

// WithTypeDeserializer attaches a whole-value deserialize hook; its output
// becomes the raw value for the remaining deserialization steps.
func WithTypeDeserializer(h Hook) TypeOption {
	return func(d *TypeDescriptor) { d.Deserializer = h }
}

// WithFactory registers an instance factory used in place of zero allocation.
func WithFactory(fn func() any) TypeOption {
	return func(d *TypeDescriptor) { d.Factory = fn }
}

// Extends declares B as an ancestor. Ancestor properties order before the
// type's own, oldest ancestor first; the chain is walked even through
// ancestors that declare no properties. The Go type is expected to embed B so
// ancestor properties resolve through field promotion.
func Extends[B any]() TypeOption {
	return extends(derefType(reflect.TypeFor[B]()))
}

func extends(t reflect.Type) TypeOption {
	return func(d *TypeDescriptor) { d.ancestors = append(d.ancestors, t) }
}

// boundProperty pairs a property key with its descriptor and resolved Go
// field name for one concrete type.
type boundProperty struct {
	Key   string
	Desc  PropertyDescriptor
	Field string
}

// derefType unwraps pointer types to their element type.
func derefType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// exportName derives the Go field name from a property key.
func exportName(key string) string {
	if key == "" {
		return key
	}
	r := []rune(key)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
