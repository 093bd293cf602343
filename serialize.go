package pectin

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"reflect"
	"time"
)

// declContext carries the declared types surrounding a node: the node's own
// declared type (for type-tag omission) and the element/key types declared by
// an enclosing collection property.
type declContext struct {
	kind Kind // expected container kind, when a property declares one
	typ  reflect.Type
	elem reflect.Type
	key  reflect.Type
}

// identity keys the visited map. Values are tracked by referential identity:
// pointers, maps, slices, and the ordered containers. Slices carry their
// length too, so overlapping reslices of one backing array stay distinct.
type identity struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// serializeState is the transient state of one top-level serialize call. It
// is created fresh per call and never shared, so nothing leaks across calls
// or across instances.
type serializeState struct {
	s       *Serializer
	visited map[identity]Path
	stack   []identity
}

// ToPlain converts v into a plain tree: *Object, []any, string, float64 and
// other scalars, nil. The result is safe to hand to any Codec.
func (s *Serializer) ToPlain(v any) (any, error) {
	typeName := fmt.Sprintf("%T", v)
	emitSerializeStart(typeName)
	start := time.Now()

	st := &serializeState{s: s, visited: make(map[identity]Path)}
	out, err := st.value(v, declContext{}, Path{})

	emitSerializeComplete(typeName, time.Since(start), len(st.visited), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal serializes v and encodes the plain tree with the configured codec.
func (s *Serializer) Marshal(v any) ([]byte, error) {
	plain, err := s.ToPlain(v)
	if err != nil {
		return nil, err
	}
	return s.cfg.codec.Marshal(plain)
}

// ToPlain converts v into a plain tree using the shared default instance.
func ToPlain(v any) (any, error) {
	return defaultSerializer.ToPlain(v)
}

// Marshal serializes v to JSON using the shared default instance.
func Marshal(v any) ([]byte, error) {
	return defaultSerializer.Marshal(v)
}

func (st *serializeState) value(v any, decl declContext, path Path) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return nil, nil
		}
	}
	if isScalarKind(rv.Kind()) {
		return v, nil
	}

	// Big integers travel as exact decimal strings.
	switch b := v.(type) {
	case *big.Int:
		return b.String(), nil
	case big.Int:
		return b.String(), nil
	}

	if id, ok := identityOf(rv); ok {
		if first, seen := st.visited[id]; seen {
			if st.s.cfg.refField != "" {
				return NewObject().Set(st.s.cfg.refField, first.wire()), nil
			}
			if st.onStack(id) {
				return nil, newCycleError(path)
			}
			// A sibling re-encounter is not a cycle: re-serialize, accepting
			// duplicated, non-identity-preserving output.
		} else {
			st.visited[id] = path.clone()
		}
		st.stack = append(st.stack, id)
		defer func() { st.stack = st.stack[:len(st.stack)-1] }()
	}

	// Whole-value hooks registered for the exact runtime type: the built-in
	// buffer/time converters and user types with custom serializers.
	if d, ok := st.s.cfg.reg.LookupType(rv.Type()); ok && d.Serializer != nil {
		out, err := d.Serializer(v)
		if err != nil {
			return nil, err
		}
		if !sameValue(out, v) {
			return st.value(out, decl, path)
		}
	}

	if isByteSlice(rv.Type()) {
		return base64.StdEncoding.EncodeToString(rv.Bytes()), nil
	}

	switch c := v.(type) {
	case *Set:
		return st.sequence(c.Values(), st.elemDecl(decl), path)
	case *Map:
		return st.mapEntries(c, decl.key, decl.elem, path)
	case *Object:
		out := NewObject()
		for _, k := range c.Keys() {
			val, _ := c.Get(k)
			enc, err := st.value(val, declContext{}, path.child(k))
			if err != nil {
				return nil, err
			}
			out.Set(k, enc)
		}
		return out, nil
	case Path:
		// Paths are not serializable values; they only appear in markers.
		return nil, newAmbiguityError("", v, path)
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
		return st.sequence(elems, st.elemDecl(decl), path)
	case reflect.Map:
		return st.nativeMap(rv, path)
	}

	// Self-conversion hook; guard against hooks returning their receiver.
	if p, ok := v.(Plainable); ok {
		out := p.Plain()
		if !sameValue(out, v) {
			return st.value(out, decl, path)
		}
	}

	if sv := derefValue(rv); sv.IsValid() && sv.Kind() == reflect.Struct {
		return st.objectValue(v, sv, decl, path)
	}

	return nil, newAmbiguityError("", v, path)
}

// sequence serializes elements in order, extending the path by index.
func (st *serializeState) sequence(elems []any, elem reflect.Type, path Path) ([]any, error) {
	out := make([]any, len(elems))
	for i, e := range elems {
		enc, err := st.value(e, declContext{typ: elem}, path.child(i))
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

// mapEntries serializes a Map per the configured encoding. Keys and values
// are serialized independently; each entry's path segments address the key
// and value slots.
func (st *serializeState) mapEntries(m *Map, keyType, valType reflect.Type, path Path) ([]any, error) {
	enc := st.s.cfg.mapEnc
	if !IsValidMapEncoding(enc) {
		return nil, newConfigError("map encoding", enc)
	}
	out := make([]any, 0, m.Len())
	for i, e := range m.Entries() {
		k, err := st.value(e.Key, declContext{typ: keyType}, path.child(EntryRef{Index: i, Slot: 0}))
		if err != nil {
			return nil, err
		}
		v, err := st.value(e.Value, declContext{typ: valType}, path.child(EntryRef{Index: i, Slot: 1}))
		if err != nil {
			return nil, err
		}
		switch enc {
		case EncodePairs:
			out = append(out, []any{k, v})
		case EncodeKeyValueObjects:
			out = append(out, NewObject().Set("key", k).Set("value", v))
		}
	}
	return out, nil
}

// nativeMap serializes a string-keyed Go map as an untyped mapping with
// sorted keys, for deterministic output. Maps with non-string keys have no
// stable untyped representation; use Map.
func (st *serializeState) nativeMap(rv reflect.Value, path Path) (any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, newAmbiguityError("", rv.Interface(), path)
	}
	plain := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		plain[iter.Key().String()] = iter.Value().Interface()
	}
	src := sortedObject(plain)
	out := NewObject()
	for _, k := range src.Keys() {
		val, _ := src.Get(k)
		enc, err := st.value(val, declContext{}, path.child(k))
		if err != nil {
			return nil, err
		}
		out.Set(k, enc)
	}
	return out, nil
}

// objectValue serializes a typed instance through its descriptor, or falls
// back to an untyped mapping of exported fields.
func (st *serializeState) objectValue(v any, sv reflect.Value, decl declContext, path Path) (any, error) {
	cfg := &st.s.cfg
	d := st.resolveDescriptor(v, sv)
	if d == nil {
		if cfg.failUntyped {
			return nil, newResolutionError("", v, path)
		}
		return st.fallbackObject(sv, path)
	}

	// Descriptors found through the name/resolver chain may carry hooks the
	// exact-type pre-step did not see.
	if d.Serializer != nil {
		out, err := d.Serializer(v)
		if err != nil {
			return nil, err
		}
		if !sameValue(out, v) {
			return st.value(out, decl, path)
		}
	}

	runtime := sv.Type()
	out := NewObject()
	if d.Name != "" && !(decl.typ != nil && derefType(decl.typ) == runtime) {
		out.Set(cfg.typeTag, d.Name)
	}

	// Walk the resolved descriptor's property set; for name-resolved values
	// the runtime type itself carries no declarations.
	for _, bp := range cfg.reg.effective(d.Type) {
		fv := sv.FieldByName(bp.Field)
		if !fv.IsValid() {
			return nil, newPathError(path.child(bp.Key), fmt.Sprintf("type %s has no field %q", runtime, bp.Field))
		}
		raw := fv.Interface()
		childPath := path.child(bp.Key)

		if bp.Desc.Serializer != nil {
			hooked, err := bp.Desc.Serializer(raw)
			if err != nil {
				return nil, err
			}
			enc, err := st.value(hooked, declContext{}, childPath)
			if err != nil {
				return nil, err
			}
			out.Set(bp.Key, enc)
			continue
		}

		if err := st.checkRecoverable(bp, raw, childPath); err != nil {
			return nil, err
		}

		var childDecl declContext
		switch bp.Desc.Kind {
		case KindScalar:
			childDecl = declContext{typ: bp.Desc.Value.Resolve()}
		case KindArray, KindSet:
			childDecl = declContext{elem: bp.Desc.Value.Resolve()}
		case KindMap:
			childDecl = declContext{key: bp.Desc.Key.Resolve(), elem: bp.Desc.Value.Resolve()}
		case KindDynamic:
			childDecl = declContext{}
		}
		enc, err := st.value(raw, childDecl, childPath)
		if err != nil {
			return nil, err
		}
		out.Set(bp.Key, enc)
	}
	return out, nil
}

// resolveDescriptor resolves a value's descriptor: exact runtime type, then
// an attached-name back-reference, then the configured class resolver.
func (st *serializeState) resolveDescriptor(v any, sv reflect.Value) *TypeDescriptor {
	cfg := &st.s.cfg
	if d, ok := cfg.reg.LookupType(sv.Type()); ok {
		return d
	}
	if tn, ok := v.(TypeNamer); ok {
		if d, ok := cfg.resolveName(tn.TypeName()); ok {
			return d
		}
	}
	if cfg.serResolver != nil {
		switch r := cfg.serResolver(v).(type) {
		case string:
			if d, ok := cfg.resolveName(r); ok {
				return d
			}
		case reflect.Type:
			if d, ok := cfg.reg.LookupType(r); ok {
				return d
			}
		}
	}
	return nil
}

// fallbackObject serializes an unregistered struct as an untyped mapping of
// its exported fields.
func (st *serializeState) fallbackObject(sv reflect.Value, path Path) (any, error) {
	t := sv.Type()
	out := NewObject()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		enc, err := st.value(sv.Field(i).Interface(), declContext{}, path.child(sf.Name))
		if err != nil {
			return nil, err
		}
		out.Set(sf.Name, enc)
	}
	return out, nil
}

// checkRecoverable rejects property values whose type could not be recovered
// on deserialization: an untyped scalar property holding an instance of an
// unregistered type, with no deserialize hook to take over.
func (st *serializeState) checkRecoverable(bp boundProperty, raw any, path Path) error {
	if bp.Desc.Kind != KindScalar || !bp.Desc.Value.isZero() || bp.Desc.Deserializer != nil {
		return nil
	}
	if raw == nil {
		return nil
	}
	switch raw.(type) {
	case *Object:
		return nil
	case *Set, *Map:
		return newAmbiguityError(bp.Key, raw, path)
	}
	if _, ok := raw.(Plainable); ok {
		return nil
	}
	rv := derefValue(reflect.ValueOf(raw))
	if rv.IsValid() && rv.Kind() == reflect.Struct {
		if _, ok := st.s.cfg.reg.LookupType(rv.Type()); !ok {
			return newAmbiguityError(bp.Key, raw, path)
		}
	}
	return nil
}

// elemDecl extracts the declared element type for a sequence node.
func (st *serializeState) elemDecl(decl declContext) reflect.Type {
	if decl.elem != nil {
		return decl.elem
	}
	if decl.typ != nil {
		if t := derefType(decl.typ); t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
			return t.Elem()
		}
	}
	return nil
}

func (st *serializeState) onStack(id identity) bool {
	for _, s := range st.stack {
		if s == id {
			return true
		}
	}
	return false
}

func identityOf(rv reflect.Value) (identity, bool) {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map:
		t := derefType(rv.Type())
		if t == bigIntType || t == timeType {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), typ: rv.Type()}, true
	case reflect.Slice:
		if isByteSlice(rv.Type()) || rv.Len() == 0 {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), typ: rv.Type(), len: rv.Len()}, true
	}
	return identity{}, false
}

func sameValue(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !ra.IsValid() || !rb.IsValid() || ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	return false
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

var (
	bigIntType = reflect.TypeFor[big.Int]()
	timeType   = reflect.TypeFor[time.Time]()
)
