package pectin

import (
	"fmt"
	"reflect"
	"strings"
)

// EntryRef addresses one slot of a Map entry: Slot 0 is the key, 1 the value.
type EntryRef struct {
	Index int
	Slot  int
}

// Path locates a node in a value tree. Each segment is a property key
// (string), a sequence index (int), or a map-entry locator (EntryRef). The
// wire form of an EntryRef segment is a two-element [entryIndex, slot] array.
type Path []any

// child returns a fresh path extended by seg. Paths recorded in per-call
// state must not share backing arrays with the walk's working path.
func (p Path) child(seg any) Path {
	c := make(Path, len(p)+1)
	copy(c, p)
	c[len(p)] = seg
	return c
}

func (p Path) clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

// wire returns the plain encoding of the path.
func (p Path) wire() []any {
	out := make([]any, len(p))
	for i, seg := range p {
		if e, ok := seg.(EntryRef); ok {
			out[i] = []any{e.Index, e.Slot}
		} else {
			out[i] = seg
		}
	}
	return out
}

func (p Path) String() string {
	if len(p) == 0 {
		return "$"
	}
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range p {
		switch s := seg.(type) {
		case string:
			fmt.Fprintf(&b, ".%s", s)
		case int:
			fmt.Fprintf(&b, "[%d]", s)
		case EntryRef:
			fmt.Fprintf(&b, "[%d,%d]", s.Index, s.Slot)
		default:
			fmt.Fprintf(&b, ".%v", s)
		}
	}
	return b.String()
}

// parsePath decodes the wire form of a path.
func parsePath(raw any) (Path, error) {
	segs, ok := raw.([]any)
	if !ok {
		return nil, newPathError(nil, fmt.Sprintf("reference path must be an array, got %T", raw))
	}
	p := make(Path, 0, len(segs))
	for _, seg := range segs {
		switch s := seg.(type) {
		case string:
			p = append(p, s)
		case []any:
			if len(s) != 2 {
				return nil, newPathError(p, "map-entry locator must have two elements")
			}
			idx, ok1 := toInt(s[0])
			slot, ok2 := toInt(s[1])
			if !ok1 || !ok2 || (slot != 0 && slot != 1) {
				return nil, newPathError(p, fmt.Sprintf("bad map-entry locator %v", s))
			}
			p = append(p, EntryRef{Index: idx, Slot: slot})
		default:
			if i, ok := toInt(seg); ok {
				p = append(p, i)
				continue
			}
			return nil, newPathError(p, fmt.Sprintf("bad path segment %v (%T)", seg, seg))
		}
	}
	return p, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// pathGet navigates root along path and returns the node it addresses. It
// handles both plain trees (Object, []any) and typed values (registered
// structs, Set, Map).
func pathGet(root any, path Path, reg *Registry) (any, error) {
	cur := root
	for i, seg := range path {
		next, err := pathStep(cur, seg, reg, false)
		if err != nil {
			return nil, newPathError(path[:i+1], err.Error())
		}
		cur = next
	}
	return cur, nil
}

// pathSet overwrites the node addressed by path with v. The final segment's
// container must be mutable in place; struct fields are reached through
// pointer handles so typed results built by deserialization are patchable.
func pathSet(root any, path Path, v any, reg *Registry) error {
	if len(path) == 0 {
		return newPathError(path, "cannot replace the root value")
	}
	cur := root
	for i := 0; i < len(path)-1; i++ {
		next, err := pathStep(cur, path[i], reg, true)
		if err != nil {
			return newPathError(path[:i+1], err.Error())
		}
		cur = next
	}
	if err := pathAssign(cur, path[len(path)-1], v, reg); err != nil {
		return newPathError(path, err.Error())
	}
	return nil
}

// pathStep resolves one segment. With addressable set, struct-valued fields
// are returned as pointers so a later assignment mutates the original tree.
func pathStep(cur any, seg any, reg *Registry, addressable bool) (any, error) {
	switch s := seg.(type) {
	case string:
		switch c := cur.(type) {
		case *Object:
			v, ok := c.Get(s)
			if !ok {
				return nil, fmt.Errorf("no key %q", s)
			}
			return v, nil
		case map[string]any:
			v, ok := c[s]
			if !ok {
				return nil, fmt.Errorf("no key %q", s)
			}
			return v, nil
		}
		fv, err := structField(cur, s, reg)
		if err != nil {
			return nil, err
		}
		if addressable && fv.Kind() == reflect.Struct && fv.CanAddr() {
			return fv.Addr().Interface(), nil
		}
		return fv.Interface(), nil
	case int:
		switch c := cur.(type) {
		case []any:
			if s < 0 || s >= len(c) {
				return nil, fmt.Errorf("index %d out of range", s)
			}
			return c[s], nil
		case *Set:
			if s < 0 || s >= c.Len() {
				return nil, fmt.Errorf("index %d out of range", s)
			}
			return c.At(s), nil
		}
		rv := derefValue(reflect.ValueOf(cur))
		if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
			if s < 0 || s >= rv.Len() {
				return nil, fmt.Errorf("index %d out of range", s)
			}
			ev := rv.Index(s)
			if addressable && ev.Kind() == reflect.Struct && ev.CanAddr() {
				return ev.Addr().Interface(), nil
			}
			return ev.Interface(), nil
		}
		return nil, fmt.Errorf("cannot index %T", cur)
	case EntryRef:
		switch c := cur.(type) {
		case *Map:
			if s.Index < 0 || s.Index >= c.Len() {
				return nil, fmt.Errorf("entry %d out of range", s.Index)
			}
			e := c.entryAt(s.Index)
			if s.Slot == 0 {
				return e.Key, nil
			}
			return e.Value, nil
		case []any:
			// Plain-encoded map entries, either shape.
			if s.Index < 0 || s.Index >= len(c) {
				return nil, fmt.Errorf("entry %d out of range", s.Index)
			}
			return entrySlot(c[s.Index], s.Slot)
		}
		return nil, fmt.Errorf("cannot address map entry in %T", cur)
	}
	return nil, fmt.Errorf("bad path segment %v (%T)", seg, seg)
}

// pathAssign writes v into container at the final segment.
func pathAssign(container any, seg any, v any, reg *Registry) error {
	switch s := seg.(type) {
	case string:
		switch c := container.(type) {
		case *Object:
			c.Set(s, v)
			return nil
		case map[string]any:
			c[s] = v
			return nil
		}
		fv, err := structField(container, s, reg)
		if err != nil {
			return err
		}
		if !fv.CanSet() {
			return fmt.Errorf("field for %q is not settable", s)
		}
		return assignValue(fv, v)
	case int:
		switch c := container.(type) {
		case []any:
			if s < 0 || s >= len(c) {
				return fmt.Errorf("index %d out of range", s)
			}
			c[s] = v
			return nil
		case *Set:
			if s < 0 || s >= c.Len() {
				return fmt.Errorf("index %d out of range", s)
			}
			c.setAt(s, v)
			return nil
		}
		rv := derefValue(reflect.ValueOf(container))
		if rv.IsValid() && rv.Kind() == reflect.Slice {
			if s < 0 || s >= rv.Len() {
				return fmt.Errorf("index %d out of range", s)
			}
			return assignValue(rv.Index(s), v)
		}
		return fmt.Errorf("cannot index %T", container)
	case EntryRef:
		switch c := container.(type) {
		case *Map:
			if s.Index < 0 || s.Index >= c.Len() {
				return fmt.Errorf("entry %d out of range", s.Index)
			}
			e := c.entryAt(s.Index)
			if s.Slot == 0 {
				e.Key = v
			} else {
				e.Value = v
			}
			return nil
		case []any:
			if s.Index < 0 || s.Index >= len(c) {
				return fmt.Errorf("entry %d out of range", s.Index)
			}
			return setEntrySlot(c[s.Index], s.Slot, v)
		}
		return fmt.Errorf("cannot address map entry in %T", container)
	}
	return fmt.Errorf("bad path segment %v (%T)", seg, seg)
}

// structField resolves a property key to a field value on a typed instance,
// using the registry's effective properties for the instance's type.
func structField(cur any, key string, reg *Registry) (reflect.Value, error) {
	rv := derefValue(reflect.ValueOf(cur))
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("cannot address key %q in %T", key, cur)
	}
	for _, bp := range reg.effective(rv.Type()) {
		if bp.Key == key {
			fv := rv.FieldByName(bp.Field)
			if !fv.IsValid() {
				return reflect.Value{}, fmt.Errorf("type %s has no field %q", rv.Type(), bp.Field)
			}
			return fv, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("type %s has no property %q", rv.Type(), key)
}

// entrySlot reads the key or value slot of one plain-encoded map entry.
func entrySlot(entry any, slot int) (any, error) {
	switch e := entry.(type) {
	case []any:
		if len(e) != 2 {
			return nil, fmt.Errorf("map entry pair has %d elements", len(e))
		}
		return e[slot], nil
	case *Object:
		name := "key"
		if slot == 1 {
			name = "value"
		}
		v, ok := e.Get(name)
		if !ok {
			return nil, fmt.Errorf("map entry object has no %q", name)
		}
		return v, nil
	}
	return nil, fmt.Errorf("bad map entry %T", entry)
}

func setEntrySlot(entry any, slot int, v any) error {
	switch e := entry.(type) {
	case []any:
		if len(e) != 2 {
			return fmt.Errorf("map entry pair has %d elements", len(e))
		}
		e[slot] = v
		return nil
	case *Object:
		name := "key"
		if slot == 1 {
			name = "value"
		}
		e.Set(name, v)
		return nil
	}
	return fmt.Errorf("bad map entry %T", entry)
}

func derefValue(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}
