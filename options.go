package pectin

import (
	"reflect"
	"strings"
)

// config is a Serializer's option snapshot, immutable after construction.
type config struct {
	typeTag  string
	refField string
	mapEnc   MapEncoding
	indent   string

	serResolver   func(v any) any
	deserResolver func(raw any) any

	useGlobal bool
	typeTable map[string]reflect.Type

	failUnresolved     bool
	failRootUnresolved bool
	failUntyped        bool
	allowTagOverride   bool

	codec Codec
	reg   *Registry
}

// Option configures a Serializer.
type Option func(*config)

// TypeTagField sets the key carrying the resolved type name in serialized
// output and input. Default "#type".
func TypeTagField(name string) Option {
	return func(c *config) { c.typeTag = name }
}

// RefField enables circular/shared-reference encoding using the given marker
// field. Without it, cycles through the live object graph fail with a
// CycleError; a re-encounter of a sibling (not an ancestor) re-serializes the
// value, producing duplicated non-identity-preserving output.
func RefField(name string) Option {
	return func(c *config) { c.refField = name }
}

// WithMapEncoding selects the output shape of Map entries. Input always
// accepts both shapes regardless of this setting.
func WithMapEncoding(e MapEncoding) Option {
	return func(c *config) { c.mapEnc = e }
}

// IndentTabs enables tab-indented pretty printing of JSON output.
func IndentTabs() Option {
	return func(c *config) { c.indent = "\t" }
}

// IndentSpaces enables pretty printing with n-space indentation.
func IndentSpaces(n int) Option {
	return func(c *config) { c.indent = strings.Repeat(" ", n) }
}

// IndentString enables pretty printing with a custom indent string.
func IndentString(s string) Option {
	return func(c *config) { c.indent = s }
}

// SerializeResolver overrides automatic type-to-name resolution on output.
// The callback receives the value being serialized and returns a registered
// name (string), a reflect.Type, or nil to fall through.
func SerializeResolver(fn func(v any) any) Option {
	return func(c *config) { c.serResolver = fn }
}

// DeserializeResolver supplies the type for a raw object node on input,
// replacing the default of reading the type-tag field. The callback returns a
// name (string), a reflect.Type, or nil.
func DeserializeResolver(fn func(raw any) any) Option {
	return func(c *config) { c.deserResolver = fn }
}

// UseGlobalRegistry controls whether name resolution consults the process-wide
// registry. Default true. Type-to-descriptor lookups are unaffected.
func UseGlobalRegistry(use bool) Option {
	return func(c *config) { c.useGlobal = use }
}

// TypeTable supplies caller-local name-to-type overrides consulted before the
// registry.
func TypeTable(table map[string]reflect.Type) Option {
	return func(c *config) {
		c.typeTable = make(map[string]reflect.Type, len(table))
		for k, v := range table {
			c.typeTable[k] = v
		}
	}
}

// FailIfTypeUnresolved makes failed name resolution fatal instead of
// best-effort.
func FailIfTypeUnresolved() Option {
	return func(c *config) { c.failUnresolved = true }
}

// FailIfRootTypeUnresolved makes an undeterminable top-level type fatal
// instead of falling back to an untyped mapping.
func FailIfRootTypeUnresolved() Option {
	return func(c *config) { c.failRootUnresolved = true }
}

// FailIfUntypedObjects makes any node falling back to untyped plain-object
// handling fatal.
func FailIfUntypedObjects() Option {
	return func(c *config) { c.failUntyped = true }
}

// AllowTagOverride controls whether an in-data type tag may override a
// caller-supplied target type. Default true.
func AllowTagOverride(allow bool) Option {
	return func(c *config) { c.allowTagOverride = allow }
}

// WithCodec replaces the byte codec used by Marshal and Unmarshal. Default is
// the JSON codec honoring the configured indentation.
func WithCodec(codec Codec) Option {
	return func(c *config) { c.codec = codec }
}

// WithRegistry threads a private registry through the serializer in place of
// the process-wide one.
func WithRegistry(r *Registry) Option {
	return func(c *config) { c.reg = r }
}

// Serializer converts typed object graphs to plain trees and back. Instances
// are cheap and disposable. A single top-level call runs to completion before
// returning; one instance must not run overlapping calls concurrently. Use
// one instance per concurrent call or serialize access externally.
type Serializer struct {
	cfg config
}

// New creates a Serializer from the given options.
func New(opts ...Option) *Serializer {
	cfg := config{
		typeTag:          "#type",
		mapEnc:           EncodePairs,
		useGlobal:        true,
		allowTagOverride: true,
		reg:              global,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.codec == nil {
		if cfg.indent != "" {
			cfg.codec = JSONIndent(cfg.indent)
		} else {
			cfg.codec = JSON()
		}
	}
	return &Serializer{cfg: cfg}
}

// defaultSerializer is the shared convenience instance behind the
// package-level Marshal/Unmarshal functions.
var defaultSerializer = New()

// resolveName maps a type name to a descriptor: the supplementary type table
// first, then the registry's name index when enabled.
func (c *config) resolveName(name string) (*TypeDescriptor, bool) {
	if c.typeTable != nil {
		if t, ok := c.typeTable[name]; ok {
			return c.reg.LookupType(t)
		}
	}
	if c.useGlobal {
		return c.reg.LookupName(name)
	}
	return nil, false
}
