package pectin

import (
	"errors"
	"reflect"
	"testing"
)

func TestPath_String(t *testing.T) {
	tests := []struct {
		path Path
		want string
	}{
		{Path{}, "$"},
		{Path{"a"}, "$.a"},
		{Path{"a", 0}, "$.a[0]"},
		{Path{"a", 0, EntryRef{Index: 1, Slot: 0}}, "$.a[0][1,0]"},
	}
	for _, tt := range tests {
		if got := tt.path.String(); got != tt.want {
			t.Errorf("String(%v) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestPath_WireRoundTrip(t *testing.T) {
	p := Path{"a", 3, EntryRef{Index: 1, Slot: 1}}
	back, err := parsePath(p.wire())
	if err != nil {
		t.Fatalf("parsePath failed: %v", err)
	}
	if !reflect.DeepEqual(back, p) {
		t.Errorf("got %v, want %v", back, p)
	}
}

func TestParsePath_JSONNumbers(t *testing.T) {
	// Paths decoded from JSON arrive with float64 segments.
	p, err := parsePath([]any{"a", 2.0, []any{0.0, 1.0}})
	if err != nil {
		t.Fatalf("parsePath failed: %v", err)
	}
	want := Path{"a", 2, EntryRef{Index: 0, Slot: 1}}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("got %v, want %v", p, want)
	}
}

func TestParsePath_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"not an array", "a.b"},
		{"fractional index", []any{1.5}},
		{"bad locator arity", []any{[]any{1.0}}},
		{"bad locator slot", []any{[]any{0.0, 2.0}}},
		{"bool segment", []any{true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parsePath(tt.raw); !errors.Is(err, ErrInvalidPath) {
				t.Errorf("expected ErrInvalidPath, got %v", err)
			}
		})
	}
}

func TestPathGet_PlainTree(t *testing.T) {
	tree := NewObject().
		Set("a", []any{NewObject().Set("b", 7.0)}).
		Set("m", []any{[]any{"k", "v"}}).
		Set("mo", []any{NewObject().Set("key", "k").Set("value", "v")})

	tests := []struct {
		path Path
		want any
	}{
		{Path{"a", 0, "b"}, 7.0},
		{Path{"m", EntryRef{Index: 0, Slot: 0}}, "k"},
		{Path{"m", EntryRef{Index: 0, Slot: 1}}, "v"},
		{Path{"mo", EntryRef{Index: 0, Slot: 1}}, "v"},
	}
	for _, tt := range tests {
		got, err := pathGet(tree, tt.path, DefaultRegistry())
		if err != nil {
			t.Fatalf("pathGet(%s) failed: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("pathGet(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestPathGet_TypedGraph(t *testing.T) {
	n := &Node{Name: "r", Children: []*Node{{Name: "c"}}}
	got, err := pathGet(n, Path{"children", 0, "name"}, DefaultRegistry())
	if err != nil {
		t.Fatalf("pathGet failed: %v", err)
	}
	if got != "c" {
		t.Errorf("got %v, want c", got)
	}

	b := &Box{Labels: NewMap().Set("k", "v")}
	got, err = pathGet(b, Path{"labels", EntryRef{Index: 0, Slot: 1}}, DefaultRegistry())
	if err != nil {
		t.Fatalf("pathGet failed: %v", err)
	}
	if got != "v" {
		t.Errorf("got %v, want v", got)
	}
}

func TestPathGet_EmptyPathReturnsRoot(t *testing.T) {
	n := &Node{Name: "r"}
	got, err := pathGet(n, Path{}, DefaultRegistry())
	if err != nil {
		t.Fatalf("pathGet failed: %v", err)
	}
	if got != any(n) {
		t.Errorf("got %v, want the root", got)
	}
}

func TestPathGet_Missing(t *testing.T) {
	tree := NewObject().Set("a", 1)
	if _, err := pathGet(tree, Path{"nope"}, DefaultRegistry()); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
	n := &Node{}
	if _, err := pathGet(n, Path{"bogus"}, DefaultRegistry()); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}

func TestPathSet_TypedGraph(t *testing.T) {
	n := &Node{Name: "r", Children: []*Node{{Name: "c"}}}
	if err := pathSet(n, Path{"children", 0, "name"}, "x", DefaultRegistry()); err != nil {
		t.Fatalf("pathSet failed: %v", err)
	}
	if n.Children[0].Name != "x" {
		t.Errorf("name = %q, want x", n.Children[0].Name)
	}

	other := &Node{Name: "p"}
	if err := pathSet(n, Path{"parent"}, other, DefaultRegistry()); err != nil {
		t.Fatalf("pathSet failed: %v", err)
	}
	if n.Parent != other {
		t.Error("parent not assigned")
	}
}

func TestPathSet_PlainTree(t *testing.T) {
	tree := NewObject().Set("a", []any{NewObject().Set("b", 7.0)})
	if err := pathSet(tree, Path{"a", 0, "b"}, 9.0, DefaultRegistry()); err != nil {
		t.Fatalf("pathSet failed: %v", err)
	}
	got, err := pathGet(tree, Path{"a", 0, "b"}, DefaultRegistry())
	if err != nil {
		t.Fatalf("pathGet failed: %v", err)
	}
	if got != 9.0 {
		t.Errorf("got %v, want 9", got)
	}
}

func TestPathSet_Containers(t *testing.T) {
	b := &Box{Items: NewSet("a", "b"), Labels: NewMap().Set("k", "v")}
	if err := pathSet(b, Path{"items", 1}, "c", DefaultRegistry()); err != nil {
		t.Fatalf("pathSet failed: %v", err)
	}
	if b.Items.At(1) != "c" {
		t.Errorf("items = %v", b.Items.Values())
	}
	if err := pathSet(b, Path{"labels", EntryRef{Index: 0, Slot: 1}}, "w", DefaultRegistry()); err != nil {
		t.Fatalf("pathSet failed: %v", err)
	}
	if v, _ := b.Labels.Get("k"); v != "w" {
		t.Errorf("labels[k] = %v, want w", v)
	}
}

func TestPathSet_RootRejected(t *testing.T) {
	if err := pathSet(NewObject(), Path{}, 1, DefaultRegistry()); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}
