package pectin

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

// pendingRef records one reference marker found during the structural walk:
// the location the marker occupied and the path it points at. Markers are
// never stored into slots; the slot stays zero until finalize patches it.
type pendingRef struct {
	at     Path
	target Path
}

// deserializeState is the transient state of one top-level deserialize call.
type deserializeState struct {
	s       *Serializer
	pending []pendingRef
}

// FromPlain reconstructs a typed value from a plain tree into target, which
// must be a non-nil pointer. The pointed-to type, when registered, hints the
// root type so untagged data still deserializes.
func (s *Serializer) FromPlain(raw any, target any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return newConfigError("target", fmt.Sprintf("%T (need a non-nil pointer)", target))
	}

	typeName := fmt.Sprintf("%T", target)
	emitDeserializeStart(typeName)
	start := time.Now()

	st := &deserializeState{s: s}
	err := st.run(raw, rv)

	emitDeserializeComplete(typeName, time.Since(start), len(st.pending), err)
	return err
}

func (st *deserializeState) run(raw any, rv reflect.Value) error {
	decl := declContext{typ: rv.Type().Elem()}
	if rv.Type().Elem().Kind() == reflect.Interface {
		decl = declContext{}
	}
	out, err := st.value(raw, decl, Path{})
	if err != nil {
		return err
	}
	if err := assignValue(rv.Elem(), out); err != nil {
		return newPathError(Path{}, err.Error())
	}

	// Reference paths address the final graph, so patching happens against
	// the caller's target to preserve identity.
	var root any
	if rv.Elem().Kind() == reflect.Struct {
		root = rv.Interface()
	} else {
		root = rv.Elem().Interface()
	}
	return st.finalize(root)
}

// FromPlain reconstructs a typed value using the shared default instance.
func FromPlain(raw any, target any) error {
	return defaultSerializer.FromPlain(raw, target)
}

// Unmarshal decodes data with the configured codec and reconstructs the
// typed value into target.
func (s *Serializer) Unmarshal(data []byte, target any) error {
	raw, err := s.cfg.codec.Unmarshal(data)
	if err != nil {
		return err
	}
	return s.FromPlain(raw, target)
}

// Unmarshal decodes JSON using the shared default instance.
func Unmarshal(data []byte, target any) error {
	return defaultSerializer.Unmarshal(data, target)
}

// As decodes data into a value of type T using the shared default instance.
func As[T any](data []byte) (T, error) {
	var out T
	err := defaultSerializer.Unmarshal(data, &out)
	return out, err
}

// AsPlain reconstructs a value of type T from an already-decoded plain tree
// using the shared default instance.
func AsPlain[T any](raw any) (T, error) {
	var out T
	err := defaultSerializer.FromPlain(raw, &out)
	return out, err
}

func (st *deserializeState) value(raw any, decl declContext, path Path) (any, error) {
	if raw == nil {
		return nil, nil
	}

	if target, ok := st.refMarker(raw); ok {
		st.pending = append(st.pending, pendingRef{at: path.clone(), target: target})
		return nil, nil
	}

	// Declared-type whole-value hooks: the built-in buffer, big-integer, and
	// timestamp decoders, plus user types with custom deserializers.
	if decl.typ != nil {
		if d, ok := st.s.cfg.reg.LookupType(decl.typ); ok && d.Deserializer != nil {
			out, err := d.Deserializer(raw)
			if err != nil {
				return nil, newPathError(path, err.Error())
			}
			return out, nil
		}
	}

	switch v := raw.(type) {
	case bool, string, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return convertScalar(v, decl.typ, path)
	case []any:
		switch decl.kind {
		case KindMap:
			return st.mapValue(v, decl, path)
		case KindSet:
			return st.setValue(v, decl, path)
		}
		return st.sliceValue(v, decl, path)
	case *Object:
		return st.objectValue(v, decl, path)
	case map[string]any:
		// Codecs that lose ordering hand back native maps.
		return st.objectValue(sortedObject(v), decl, path)
	}
	return raw, nil
}

// refMarker recognizes a reference marker: a single-field object whose only
// key is the configured reference field and whose value parses as a path.
// With no reference field configured, markers are ordinary data.
func (st *deserializeState) refMarker(raw any) (Path, bool) {
	field := st.s.cfg.refField
	if field == "" {
		return nil, false
	}
	o, ok := raw.(*Object)
	if !ok || o.Len() != 1 {
		return nil, false
	}
	v, ok := o.Get(field)
	if !ok {
		return nil, false
	}
	p, err := parsePath(v)
	if err != nil {
		return nil, false
	}
	return p, true
}

func (st *deserializeState) sliceValue(arr []any, decl declContext, path Path) (any, error) {
	elem := st.elemDecl(decl)
	out := make([]any, len(arr))
	for i, e := range arr {
		v, err := st.value(e, declContext{typ: elem}, path.child(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (st *deserializeState) setValue(arr []any, decl declContext, path Path) (any, error) {
	out := NewSet()
	for i, e := range arr {
		v, err := st.value(e, declContext{typ: decl.elem}, path.child(i))
		if err != nil {
			return nil, err
		}
		// Positional append: deduplicating here would shift indices out of
		// alignment with reference paths into this set.
		out.append(v)
	}
	return out, nil
}

// mapValue parses Map entries. Both entry encodings are always accepted on
// input, whatever encoding this instance writes.
func (st *deserializeState) mapValue(arr []any, decl declContext, path Path) (any, error) {
	out := NewMap()
	for i, e := range arr {
		rawKey, err := entrySlot(e, 0)
		if err != nil {
			return nil, newPathError(path.child(EntryRef{Index: i, Slot: 0}), err.Error())
		}
		rawVal, err := entrySlot(e, 1)
		if err != nil {
			return nil, newPathError(path.child(EntryRef{Index: i, Slot: 1}), err.Error())
		}
		k, err := st.value(rawKey, declContext{typ: decl.key}, path.child(EntryRef{Index: i, Slot: 0}))
		if err != nil {
			return nil, err
		}
		v, err := st.value(rawVal, declContext{typ: decl.elem}, path.child(EntryRef{Index: i, Slot: 1}))
		if err != nil {
			return nil, err
		}
		out.append(k, v)
	}
	return out, nil
}

// objectValue reconstructs a typed instance when the object's type resolves,
// and otherwise passes the object through structurally.
func (st *deserializeState) objectValue(o *Object, decl declContext, path Path) (any, error) {
	cfg := &st.s.cfg

	var tag string
	rawTag, hasTag := o.Get(cfg.typeTag)
	if hasTag {
		s, ok := rawTag.(string)
		if !ok {
			return nil, newPathError(path.child(cfg.typeTag), fmt.Sprintf("type tag must be a string, got %T", rawTag))
		}
		tag = s
	}

	var declared *TypeDescriptor
	if decl.typ != nil {
		if d, ok := cfg.reg.LookupType(decl.typ); ok {
			declared = d
		}
	}

	// A name yielded by any resolution step (tag, resolver, type table) that
	// matches no descriptor counts as a failed resolution under strict mode.
	var d *TypeDescriptor
	var missedName string
	var missed bool
	if hasTag && (cfg.allowTagOverride || declared == nil) {
		if rd, ok := cfg.resolveName(tag); ok {
			d = rd
		} else {
			missedName, missed = tag, true
		}
	}
	if d == nil {
		d = declared
	}
	if d == nil && cfg.deserResolver != nil {
		switch r := cfg.deserResolver(o).(type) {
		case string:
			if rd, ok := cfg.resolveName(r); ok {
				d = rd
			} else {
				missedName, missed = r, true
			}
		case reflect.Type:
			if rd, ok := cfg.reg.LookupType(r); ok {
				d = rd
			}
		}
	}

	if d == nil {
		if missed && cfg.failUnresolved {
			return nil, newResolutionError(missedName, o, path)
		}
		if len(path) == 0 && cfg.failRootUnresolved && !isPlainTarget(decl.typ) {
			return nil, newResolutionError(tag, o, path)
		}
		return st.structuralObject(o, path)
	}

	if d.Deserializer != nil {
		out, err := d.Deserializer(o)
		if err != nil {
			return nil, newPathError(path, err.Error())
		}
		return out, nil
	}

	instance := d.instantiate()
	elem := instance.Elem()
	for _, bp := range cfg.reg.effective(d.Type) {
		rawProp, ok := o.Get(bp.Key)
		if !ok {
			// Absent properties stay at their zero or factory-set value.
			continue
		}
		childPath := path.child(bp.Key)
		fv := elem.FieldByName(bp.Field)
		if !fv.IsValid() {
			return nil, newPathError(childPath, fmt.Sprintf("type %s has no field %q", d.Type, bp.Field))
		}

		var val any
		var err error
		if bp.Desc.Deserializer != nil {
			val, err = bp.Desc.Deserializer(rawProp)
			if err != nil {
				return nil, newPathError(childPath, err.Error())
			}
		} else {
			val, err = st.value(rawProp, propDecl(bp.Desc), childPath)
			if err != nil {
				return nil, err
			}
		}
		if err := assignValue(fv, val); err != nil {
			return nil, newPathError(childPath, err.Error())
		}
	}
	return instance.Interface(), nil
}

// structuralObject deserializes children without instantiating a type. An
// unresolvable type tag is kept as data so re-serialization preserves it.
func (st *deserializeState) structuralObject(o *Object, path Path) (any, error) {
	out := NewObject()
	for _, k := range o.Keys() {
		raw, _ := o.Get(k)
		v, err := st.value(raw, declContext{}, path.child(k))
		if err != nil {
			return nil, err
		}
		out.Set(k, v)
	}
	return out, nil
}

// finalize patches every recorded reference with the value its path resolves
// to. A marker whose own location no longer exists, because a hook replaced
// the enclosing region, is skipped; an unresolvable target path is an error.
func (st *deserializeState) finalize(root any) error {
	reg := st.s.cfg.reg
	for _, p := range st.pending {
		target, err := pathGet(root, p.target, reg)
		if err != nil {
			return newPathError(p.target, "unresolved reference: "+err.Error())
		}
		if len(p.at) > 0 {
			if _, err := pathGet(root, p.at[:len(p.at)-1], reg); err != nil {
				continue
			}
		}
		if err := pathSet(root, p.at, target, reg); err != nil {
			return newPathError(p.at, err.Error())
		}
	}
	return nil
}

func (st *deserializeState) elemDecl(decl declContext) reflect.Type {
	if decl.elem != nil {
		return decl.elem
	}
	if decl.typ != nil {
		if t := derefType(decl.typ); t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
			if !isByteSlice(t) {
				return t.Elem()
			}
		}
	}
	return nil
}

// propDecl translates a property declaration into the walk context for its
// value.
func propDecl(d PropertyDescriptor) declContext {
	switch d.Kind {
	case KindScalar:
		return declContext{typ: d.Value.Resolve()}
	case KindArray:
		return declContext{kind: KindArray, elem: d.Value.Resolve()}
	case KindSet:
		return declContext{kind: KindSet, elem: d.Value.Resolve()}
	case KindMap:
		return declContext{kind: KindMap, key: d.Key.Resolve(), elem: d.Value.Resolve()}
	}
	return declContext{}
}

// isPlainTarget reports whether t is one of the plain container types, where
// an unresolved root is the caller's stated intent rather than a failure.
func isPlainTarget(t reflect.Type) bool {
	if t == nil {
		return false
	}
	t = derefType(t)
	return t == reflect.TypeFor[Object]() || t.Kind() == reflect.Map
}

// convertScalar coerces a decoded scalar toward a declared type. With no
// declared type the scalar passes through as the codec produced it.
func convertScalar(v any, t reflect.Type, path Path) (any, error) {
	if t == nil {
		return v, nil
	}
	t = derefType(t)
	if t.Kind() == reflect.Interface {
		return v, nil
	}
	out, err := coerceValue(reflect.ValueOf(v), t)
	if err != nil {
		return nil, newPathError(path, err.Error())
	}
	return out.Interface(), nil
}

// assignValue stores v into the settable destination fv, adapting pointer
// levels, building typed slices and maps from plain trees, and coercing
// scalars. A nil v zeroes the destination.
func assignValue(fv reflect.Value, v any) error {
	t := fv.Type()
	if v == nil {
		fv.Set(reflect.Zero(t))
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		fv.Set(rv)
		return nil
	}
	if rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Type().Elem().AssignableTo(t) {
		fv.Set(rv.Elem())
		return nil
	}
	if t.Kind() == reflect.Ptr {
		p := reflect.New(t.Elem())
		if err := assignValue(p.Elem(), v); err != nil {
			return err
		}
		fv.Set(p)
		return nil
	}
	if t.Kind() == reflect.Slice && !isByteSlice(t) {
		if arr, ok := v.([]any); ok {
			out := reflect.MakeSlice(t, len(arr), len(arr))
			for i, e := range arr {
				if err := assignValue(out.Index(i), e); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			fv.Set(out)
			return nil
		}
	}
	if t.Kind() == reflect.Map && t.Key().Kind() == reflect.String {
		if o, ok := v.(*Object); ok {
			out := reflect.MakeMapWithSize(t, o.Len())
			for _, k := range o.Keys() {
				val, _ := o.Get(k)
				ev := reflect.New(t.Elem()).Elem()
				if err := assignValue(ev, val); err != nil {
					return fmt.Errorf("key %q: %w", k, err)
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
			}
			fv.Set(out)
			return nil
		}
	}
	cv, err := coerceValue(rv, t)
	if err != nil {
		return err
	}
	fv.Set(cv)
	return nil
}

// coerceValue converts rv to type t where the conversion is lossless:
// numeric widths, named scalar types, and whole-valued floats into integer
// types. Anything else is a mismatch.
func coerceValue(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	sk, tk := rv.Kind(), t.Kind()
	switch {
	case isNumericKind(sk) && isNumericKind(tk):
		if isFloatKind(sk) && !isFloatKind(tk) {
			f := rv.Float()
			if f != math.Trunc(f) {
				return reflect.Value{}, fmt.Errorf("cannot store %v in %s", f, t)
			}
		}
		if !rv.Type().ConvertibleTo(t) {
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", rv.Type(), t)
		}
		return rv.Convert(t), nil
	case sk == reflect.String && tk == reflect.String,
		sk == reflect.Bool && tk == reflect.Bool:
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot store %s in %s", rv.Type(), t)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
