package pectin

import (
	"reflect"
	"strings"
	"testing"
)

type regBase struct {
	A string
	B string
}

type regChild struct {
	regBase
	C string
}

type regMid struct {
	regBase
}

type regLeaf struct {
	regMid
	D string
}

func declareRegFixtures(reg *Registry) {
	reg.Register(reflect.TypeFor[regBase](), "RegBase")
	reg.Declare(reflect.TypeFor[regBase](), "a", Scalar(Untyped()))
	reg.Declare(reflect.TypeFor[regBase](), "b", Scalar(Untyped()))
	reg.Register(reflect.TypeFor[regChild](), "RegChild", Extends[regBase]())
	reg.Declare(reflect.TypeFor[regChild](), "c", Scalar(Untyped()))
}

func TestRegistry_Lookups(t *testing.T) {
	reg := NewRegistry()
	declareRegFixtures(reg)

	if d, ok := reg.LookupType(reflect.TypeFor[regBase]()); !ok || d.Name != "RegBase" {
		t.Errorf("LookupType = %v, %v", d, ok)
	}
	// Pointer types normalize to their element type.
	if _, ok := reg.LookupType(reflect.TypeFor[*regBase]()); !ok {
		t.Error("pointer lookup should normalize")
	}
	if d, ok := reg.LookupName("RegChild"); !ok || d.Type != reflect.TypeFor[regChild]() {
		t.Errorf("LookupName = %v, %v", d, ok)
	}
	if _, ok := reg.LookupName("Nope"); ok {
		t.Error("unknown name should miss")
	}
}

func TestRegistry_AnonymousTypesNotNameIndexed(t *testing.T) {
	reg := NewRegistry()
	reg.Register(reflect.TypeFor[regBase](), "")
	if _, ok := reg.LookupName(""); ok {
		t.Error("empty name should not be indexed")
	}
	if _, ok := reg.LookupType(reflect.TypeFor[regBase]()); !ok {
		t.Error("type index should still hold the descriptor")
	}
}

func TestRegistry_EffectiveOrdering(t *testing.T) {
	reg := NewRegistry()
	declareRegFixtures(reg)

	props := reg.effective(reflect.TypeFor[regChild]())
	keys := make([]string, len(props))
	for i, p := range props {
		keys[i] = p.Key
	}
	if !reflect.DeepEqual(keys, []string{"a", "b", "c"}) {
		t.Errorf("keys = %v, want ancestors first", keys)
	}
}

func TestRegistry_ZeroPropertyAncestorStillWalked(t *testing.T) {
	reg := NewRegistry()
	declareRegFixtures(reg)
	reg.Register(reflect.TypeFor[regMid](), "RegMid", Extends[regBase]())
	reg.Register(reflect.TypeFor[regLeaf](), "RegLeaf", Extends[regMid]())
	reg.Declare(reflect.TypeFor[regLeaf](), "d", Scalar(Untyped()))

	props := reg.effective(reflect.TypeFor[regLeaf]())
	keys := make([]string, len(props))
	for i, p := range props {
		keys[i] = p.Key
	}
	// The chain resolves through regMid even though it declares nothing.
	if !reflect.DeepEqual(keys, []string{"a", "b", "d"}) {
		t.Fatalf("keys = %v, want root ancestor first", keys)
	}

	ser := New(WithRegistry(reg))
	data, err := ser.Marshal(&regLeaf{regMid: regMid{regBase: regBase{A: "1", B: "2"}}, D: "4"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"#type":"RegLeaf","a":"1","b":"2","d":"4"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestRegistry_RedeclareOverridesInPlace(t *testing.T) {
	reg := NewRegistry()
	declareRegFixtures(reg)

	hook := func(v any) (any, error) { return v, nil }
	reg.Declare(reflect.TypeFor[regChild](), "a", Scalar(Untyped()).WithSerializer(hook))

	props := reg.effective(reflect.TypeFor[regChild]())
	if props[0].Key != "a" {
		t.Fatalf("redeclared key moved: %v", props)
	}
	if props[0].Desc.Serializer == nil {
		t.Error("redeclared descriptor should carry the override")
	}
}

func TestRegistry_DeclareMissingFieldPanics(t *testing.T) {
	reg := NewRegistry()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for missing field")
		}
		if !strings.Contains(r.(string), "no field") {
			t.Errorf("panic = %v", r)
		}
	}()
	reg.Declare(reflect.TypeFor[regBase](), "missing", Scalar(Untyped()))
}

func TestRegistry_PrivateRegistryIsolation(t *testing.T) {
	reg := NewRegistry()
	declareRegFixtures(reg)
	ser := New(WithRegistry(reg))

	data, err := ser.Marshal(&regChild{regBase: regBase{A: "1", B: "2"}, C: "3"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"#type":"RegChild","a":"1","b":"2","c":"3"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	// Globally registered types are invisible through a private registry.
	data, err = ser.Marshal(&Point{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"X":1,"Y":2}` {
		t.Errorf("expected untyped fallback, got %s", data)
	}
}

func TestTypeOf_PinsDeclaredType(t *testing.T) {
	type regHolder struct {
		Inner regBase
	}
	reg := NewRegistry()
	declareRegFixtures(reg)
	reg.Register(reflect.TypeFor[regHolder](), "RegHolder")
	reg.Declare(reflect.TypeFor[regHolder](), "inner", Scalar(TypeOf(reflect.TypeFor[regBase]())))

	ser := New(WithRegistry(reg))
	data, err := ser.Marshal(&regHolder{Inner: regBase{A: "1", B: "2"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	// The TypeOf reference pins the inner type, so its tag is omitted.
	want := `{"#type":"RegHolder","inner":{"a":"1","b":"2"}}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestExportName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"name", "Name"},
		{"Name", "Name"},
		{"x", "X"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := exportName(tt.in); got != tt.want {
			t.Errorf("exportName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
