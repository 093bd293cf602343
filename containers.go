package pectin

import "reflect"

// Set is an insertion-ordered collection of distinct values. Iteration order
// is insertion order, which is also the order elements serialize in.
// Non-comparable values (slices, maps) are matched with reflect.DeepEqual.
type Set struct {
	items []any
	index map[any]int
}

// NewSet creates a Set containing the given values in order, dropping
// duplicates.
func NewSet(values ...any) *Set {
	s := &Set{index: make(map[any]int)}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v if not already present. Reports whether v was inserted.
func (s *Set) Add(v any) bool {
	if s.Has(v) {
		return false
	}
	s.append(v)
	return true
}

// append inserts without a membership check, preserving positional indices.
// Used during deserialization where element order must match the input.
func (s *Set) append(v any) {
	if s.index == nil {
		s.index = make(map[any]int)
	}
	if isComparable(v) {
		if _, ok := s.index[v]; !ok {
			s.index[v] = len(s.items)
		}
	}
	s.items = append(s.items, v)
}

// Has reports whether v is present.
func (s *Set) Has(v any) bool {
	if isComparable(v) {
		_, ok := s.index[v]
		return ok
	}
	for _, it := range s.items {
		if reflect.DeepEqual(it, v) {
			return true
		}
	}
	return false
}

// Len returns the number of elements.
func (s *Set) Len() int {
	return len(s.items)
}

// At returns the element at position i in insertion order.
func (s *Set) At(i int) any {
	return s.items[i]
}

// Values returns the elements in insertion order.
func (s *Set) Values() []any {
	out := make([]any, len(s.items))
	copy(out, s.items)
	return out
}

// setAt replaces the element at position i, used by reference finalization.
func (s *Set) setAt(i int, v any) {
	old := s.items[i]
	if isComparable(old) {
		if at, ok := s.index[old]; ok && at == i {
			delete(s.index, old)
		}
	}
	s.items[i] = v
	if isComparable(v) {
		if _, ok := s.index[v]; !ok {
			s.index[v] = i
		}
	}
}

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Map is an insertion-ordered mapping with keys of any type. Entry order is
// insertion order, which is also the order entries serialize in.
// Non-comparable keys are matched with reflect.DeepEqual.
type Map struct {
	entries []MapEntry
	index   map[any]int
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[any]int)}
}

// Set inserts or replaces the entry for key. Replacing keeps the entry's
// original position. Returns the map for chaining.
func (m *Map) Set(key, value any) *Map {
	if i, ok := m.lookup(key); ok {
		m.entries[i].Value = value
		return m
	}
	if m.index == nil {
		m.index = make(map[any]int)
	}
	if isComparable(key) {
		m.index[key] = len(m.entries)
	}
	m.entries = append(m.entries, MapEntry{Key: key, Value: value})
	return m
}

// append adds an entry without a key lookup, preserving positional indices.
// Used during deserialization where entry order must match the input.
func (m *Map) append(key, value any) {
	if m.index == nil {
		m.index = make(map[any]int)
	}
	if isComparable(key) {
		if _, ok := m.index[key]; !ok {
			m.index[key] = len(m.entries)
		}
	}
	m.entries = append(m.entries, MapEntry{Key: key, Value: value})
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key any) (any, bool) {
	if i, ok := m.lookup(key); ok {
		return m.entries[i].Value, true
	}
	return nil, false
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Entries returns the entries in insertion order.
func (m *Map) Entries() []MapEntry {
	out := make([]MapEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// entryAt returns a mutable reference to the entry at position i, used by
// reference finalization.
func (m *Map) entryAt(i int) *MapEntry {
	return &m.entries[i]
}

func (m *Map) lookup(key any) (int, bool) {
	if isComparable(key) {
		if i, ok := m.index[key]; ok {
			return i, ok
		}
	}
	// Entries mutated in place (reference finalization) bypass the index.
	for i := range m.entries {
		if reflect.DeepEqual(m.entries[i].Key, key) {
			return i, true
		}
	}
	return 0, false
}

func isComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}
