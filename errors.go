package pectin

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrTypeUnresolved indicates a type name or value could not be mapped to
	// a registered descriptor when one was required.
	ErrTypeUnresolved = errors.New("type unresolved")

	// ErrAmbiguousProperty indicates a property value whose type cannot be
	// recovered on deserialization: no declared value type, no deserialize
	// hook, and no registered descriptor for the runtime type.
	ErrAmbiguousProperty = errors.New("ambiguous property")

	// ErrCircularReference indicates a cycle through the live object graph
	// while reference encoding is disabled.
	ErrCircularReference = errors.New("circular reference")

	// ErrInvalidConfig indicates an unrecognized value for an enumerated
	// configuration option.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidPath indicates a path that does not resolve within the value
	// tree it addresses.
	ErrInvalidPath = errors.New("invalid path")

	// ErrMarshal indicates the codec failed to encode the plain tree.
	ErrMarshal = errors.New("marshal failed")

	// ErrUnmarshal indicates the codec failed to decode input data.
	ErrUnmarshal = errors.New("unmarshal failed")
)

// ResolutionError reports a failed type resolution. Name carries the
// unresolved type name when resolution was by name; Value carries the
// offending raw or runtime value.
type ResolutionError struct {
	Err   error
	Name  string
	Value any
	Path  Path
}

func (e *ResolutionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: no descriptor for name %q at %s", e.Err.Error(), e.Name, e.Path)
	}
	return fmt.Sprintf("%s: no descriptor for value %v (%T) at %s", e.Err.Error(), e.Value, e.Value, e.Path)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// AmbiguityError reports a property value whose class cannot be recovered
// later.
type AmbiguityError struct {
	Err      error
	Property string
	Value    any
	Path     Path
}

func (e *AmbiguityError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("%s %q at %s: value of type %T has no declared type, hook, or registered descriptor", e.Err.Error(), e.Property, e.Path, e.Value)
	}
	return fmt.Sprintf("%s at %s: value of type %T cannot be represented", e.Err.Error(), e.Path, e.Value)
}

func (e *AmbiguityError) Unwrap() error {
	return e.Err
}

// CycleError reports a circular reference encountered while reference
// encoding is disabled.
type CycleError struct {
	Err  error
	Path Path
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s at %s: enable reference encoding with RefField to serialize cycles", e.Err.Error(), e.Path)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// ConfigError reports an unrecognized value for an enumerated option.
type ConfigError struct {
	Err    error
	Option string
	Value  any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: option %s has unrecognized value %v", e.Err.Error(), e.Option, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// PathError reports a navigation or mutation failure at a path.
type PathError struct {
	Err    error
	Path   Path
	Detail string
}

func (e *PathError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s at %s: %s", e.Err.Error(), e.Path, e.Detail)
	}
	return fmt.Sprintf("%s at %s", e.Err.Error(), e.Path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// CodecError reports an encode/decode failure from the byte codec.
type CodecError struct {
	Err   error // ErrMarshal or ErrUnmarshal
	Cause error
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// newResolutionError creates a ResolutionError for a failed name or value
// resolution.
func newResolutionError(name string, value any, path Path) error {
	return &ResolutionError{
		Err:   ErrTypeUnresolved,
		Name:  name,
		Value: value,
		Path:  path.clone(),
	}
}

// newAmbiguityError creates an AmbiguityError for an unrecoverable property
// value.
func newAmbiguityError(property string, value any, path Path) error {
	return &AmbiguityError{
		Err:      ErrAmbiguousProperty,
		Property: property,
		Value:    value,
		Path:     path.clone(),
	}
}

// newCycleError creates a CycleError at the given path.
func newCycleError(path Path) error {
	return &CycleError{
		Err:  ErrCircularReference,
		Path: path.clone(),
	}
}

// newConfigError creates a ConfigError for an unrecognized option value.
func newConfigError(option string, value any) error {
	return &ConfigError{
		Err:    ErrInvalidConfig,
		Option: option,
		Value:  value,
	}
}

// newPathError creates a PathError with detail text.
func newPathError(path Path, detail string) error {
	return &PathError{
		Err:    ErrInvalidPath,
		Path:   path.clone(),
		Detail: detail,
	}
}

// newCodecError creates a CodecError for marshal/unmarshal failures.
func newCodecError(sentinel, cause error) error {
	return &CodecError{
		Err:   sentinel,
		Cause: cause,
	}
}
